package websocket

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"ai-docchat-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	h := NewHub(nil, logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "hub.log")))
	go h.Run()
	return h
}

func connections(h *Hub, userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

func waitConnections(t *testing.T, h *Hub, userID uuid.UUID, want int) {
	t.Helper()
	assert.Eventually(t, func() bool {
		return connections(h, userID) == want
	}, time.Second, 5*time.Millisecond)
}

// attach registers a bare client, no websocket conn behind it; tests read
// frames straight off the Send channel.
func attach(t *testing.T, h *Hub, userID uuid.UUID, buffer int) *Client {
	t.Helper()
	before := connections(h, userID)
	client := &Client{Hub: h, UserID: userID, Send: make(chan []byte, buffer)}
	h.register <- client
	waitConnections(t, h, userID, before+1)
	return client
}

type pushFrame struct {
	Type string       `json:"type"`
	Data Notification `json:"data"`
}

func receiveFrame(t *testing.T, c *Client) pushFrame {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed before a frame arrived")
		}
		var frame pushFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			t.Fatalf("malformed frame %q: %v", raw, err)
		}
		return frame
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}
	return pushFrame{}
}

func assertNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected frame: %s", raw)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHubTracksMultiDeviceRegistration(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()

	phone := attach(t, h, userID, 8)
	laptop := attach(t, h, userID, 8)
	assert.Equal(t, 2, connections(h, userID))

	h.unregister <- phone
	waitConnections(t, h, userID, 1)

	h.unregister <- laptop
	waitConnections(t, h, userID, 0)

	_, open := <-laptop.Send
	assert.False(t, open, "unregister should close the send channel")
}

func TestHubSendReachesEveryDeviceOfUser(t *testing.T) {
	h := newTestHub(t)
	alice, bob := uuid.New(), uuid.New()

	phone := attach(t, h, alice, 8)
	laptop := attach(t, h, alice, 8)
	other := attach(t, h, bob, 8)

	h.Send(alice, NewNotification("DOCUMENT_READY", "Document ready", "contract.pdf is ready", map[string]interface{}{"file_name": "contract.pdf"}))

	for _, c := range []*Client{phone, laptop} {
		frame := receiveFrame(t, c)
		assert.Equal(t, "notification", frame.Type)
		assert.Equal(t, "DOCUMENT_READY", frame.Data.Type)
		assert.Equal(t, "Document ready", frame.Data.Title)
		assert.Equal(t, "contract.pdf", frame.Data.Data["file_name"])
		assert.NotEqual(t, uuid.Nil, frame.Data.Id)
	}
	assertNoFrame(t, other)
}

func TestHubBroadcastReachesAllUsers(t *testing.T) {
	h := newTestHub(t)

	clients := []*Client{
		attach(t, h, uuid.New(), 8),
		attach(t, h, uuid.New(), 8),
		attach(t, h, uuid.New(), 8),
	}

	h.Broadcast(NewNotification("SYSTEM_BROADCAST", "Maintenance", "Back at 02:00 UTC", nil))

	for _, c := range clients {
		frame := receiveFrame(t, c)
		assert.Equal(t, "notification", frame.Type)
		assert.Equal(t, "Maintenance", frame.Data.Title)
		assert.Equal(t, "Back at 02:00 UTC", frame.Data.Message)
	}
}

func TestHubSendToUnknownUserIsNoOp(t *testing.T) {
	h := newTestHub(t)
	bystander := attach(t, h, uuid.New(), 8)

	h.Send(uuid.New(), NewNotification("DOCUMENT_READY", "Document ready", "nobody is listening", nil))

	assertNoFrame(t, bystander)
}

func TestHubDropsClientWithFullBuffer(t *testing.T) {
	h := newTestHub(t)
	userID := uuid.New()
	slow := attach(t, h, userID, 1)

	h.Send(userID, NewNotification("DOCUMENT_READY", "Document ready", "first", nil))
	h.Send(userID, NewNotification("DOCUMENT_READY", "Document ready", "second", nil))

	// The second frame overflows the buffer, so the hub drops the client.
	waitConnections(t, h, userID, 0)

	frame := receiveFrame(t, slow)
	assert.Equal(t, "first", frame.Data.Message)
	_, open := <-slow.Send
	assert.False(t, open)
}

func TestHubSendBeforeRunDoesNotBlock(t *testing.T) {
	// Services hold the hub before Run starts; pushes into an empty hub
	// must return immediately.
	h := NewHub(nil, logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "hub.log")))

	done := make(chan struct{})
	go func() {
		h.Send(uuid.New(), NewNotification("DOCUMENT_READY", "Document ready", "no clients yet", nil))
		h.Broadcast(NewNotification("SYSTEM_BROADCAST", "Maintenance", "empty hub", nil))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Send or Broadcast blocked on an empty hub")
	}
}
