package history

import (
	"context"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/llm"

	"github.com/google/uuid"
)

// DefaultLimit caps how many recent messages are replayed to the model.
const DefaultLimit = 10

// Loader turns persisted chat rows into provider-ready conversation history.
type Loader struct {
	uowFactory unitofwork.RepositoryFactory
}

// NewLoader creates a new history loader
func NewLoader(uowFactory unitofwork.RepositoryFactory) *Loader {
	return &Loader{
		uowFactory: uowFactory,
	}
}

// LoadConversationHistory loads the most recent messages of a session in
// chronological order. limit <= 0 falls back to DefaultLimit.
func (l *Loader) LoadConversationHistory(ctx context.Context, sessionId uuid.UUID, limit int) ([]llm.Message, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	uow := l.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: true},
		specification.Pagination{Limit: limit},
	)
	if err != nil {
		return nil, err
	}

	// Rows arrive newest-first; the model wants them oldest-first.
	messages := make([]llm.Message, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]

		role := "user"
		if row.Role == constant.ChatMessageRoleModel {
			role = "assistant"
		}

		messages = append(messages, llm.Message{
			Role:    role,
			Content: row.Chat,
		})
	}

	return messages, nil
}
