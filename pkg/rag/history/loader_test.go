package history

import (
	"context"
	"fmt"
	"testing"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/rag/ragtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func seedMessage(t *testing.T, repo *ragtest.FakeMessageRepo, sessionId uuid.UUID, role, text string) {
	t.Helper()
	err := repo.Create(context.Background(), &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          text,
		Role:          role,
		ChatSessionId: sessionId,
	})
	assert.NoError(t, err)
}

func TestLoadConversationHistoryChronologicalRoles(t *testing.T) {
	factory := ragtest.NewFakeFactory()
	sessionId := uuid.New()

	seedMessage(t, factory.UoW.Messages, sessionId, constant.ChatMessageRoleUser, "what is the notice period")
	seedMessage(t, factory.UoW.Messages, sessionId, constant.ChatMessageRoleModel, "thirty days")
	seedMessage(t, factory.UoW.Messages, sessionId, constant.ChatMessageRoleUser, "and for the landlord")

	loader := NewLoader(factory)
	messages, err := loader.LoadConversationHistory(context.Background(), sessionId, 10)

	assert.NoError(t, err)
	assert.Len(t, messages, 3)
	assert.Equal(t, "user", messages[0].Role)
	assert.Equal(t, "what is the notice period", messages[0].Content)
	assert.Equal(t, "assistant", messages[1].Role)
	assert.Equal(t, "thirty days", messages[1].Content)
	assert.Equal(t, "user", messages[2].Role)
}

func TestLoadConversationHistoryKeepsMostRecent(t *testing.T) {
	factory := ragtest.NewFakeFactory()
	sessionId := uuid.New()

	for i := 1; i <= 15; i++ {
		seedMessage(t, factory.UoW.Messages, sessionId, constant.ChatMessageRoleUser, fmt.Sprintf("turn %d", i))
	}

	loader := NewLoader(factory)
	messages, err := loader.LoadConversationHistory(context.Background(), sessionId, 0)

	assert.NoError(t, err)
	assert.Len(t, messages, DefaultLimit)
	assert.Equal(t, "turn 6", messages[0].Content)
	assert.Equal(t, "turn 15", messages[len(messages)-1].Content)
}

func TestLoadConversationHistoryScopedToSession(t *testing.T) {
	factory := ragtest.NewFakeFactory()
	mine := uuid.New()
	other := uuid.New()

	seedMessage(t, factory.UoW.Messages, mine, constant.ChatMessageRoleUser, "mine")
	seedMessage(t, factory.UoW.Messages, other, constant.ChatMessageRoleUser, "not mine")

	loader := NewLoader(factory)
	messages, err := loader.LoadConversationHistory(context.Background(), mine, 10)

	assert.NoError(t, err)
	assert.Len(t, messages, 1)
	assert.Equal(t, "mine", messages[0].Content)
}

func TestLoadConversationHistoryEmptySession(t *testing.T) {
	factory := ragtest.NewFakeFactory()

	loader := NewLoader(factory)
	messages, err := loader.LoadConversationHistory(context.Background(), uuid.New(), 10)

	assert.NoError(t, err)
	assert.Empty(t, messages)
}
