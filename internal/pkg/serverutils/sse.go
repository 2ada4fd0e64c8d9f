package serverutils

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// SetSSEHeaders prepares a fiber response for Server-Sent Events streaming.
func SetSSEHeaders(ctx *fiber.Ctx) {
	ctx.Set(fiber.HeaderContentType, "text/event-stream")
	ctx.Set(fiber.HeaderCacheControl, "no-cache")
	ctx.Set(fiber.HeaderConnection, "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")
}

// WriteSSEEvent writes a named event in SSE wire format and flushes it.
// Multi-line payloads get a "data: " prefix per line, as text/event-stream
// requires.
func WriteSSEEvent(w *bufio.Writer, event string, payload string) error {
	if _, err := fmt.Fprintf(w, "event: %s\n", event); err != nil {
		return fmt.Errorf("write event name: %w", err)
	}

	for _, line := range strings.Split(payload, "\n") {
		if _, err := fmt.Fprintf(w, "data: %s\n", line); err != nil {
			return fmt.Errorf("write data line: %w", err)
		}
	}

	if _, err := w.WriteString("\n"); err != nil {
		return fmt.Errorf("write terminator: %w", err)
	}

	return w.Flush()
}

// WriteSSEJSON marshals v and writes it as a named SSE event.
func WriteSSEJSON(w *bufio.Writer, event string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal sse payload: %w", err)
	}
	return WriteSSEEvent(w, event, string(data))
}
