package service

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/events"
	"ai-docchat-be/pkg/llm"
	pktNats "ai-docchat-be/pkg/nats"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/executor"
	"ai-docchat-be/pkg/rag/history"
	"ai-docchat-be/pkg/rag/partition"
	"ai-docchat-be/pkg/rag/rerank"
	"ai-docchat-be/pkg/rag/response"
	"ai-docchat-be/pkg/rag/stream"
	"ai-docchat-be/pkg/store"
	"ai-docchat-be/pkg/translate"

	"github.com/google/uuid"
)

const defaultSessionTitle = "Unnamed session"

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error)
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (<-chan stream.Event, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error
}

// chatService fronts the answering pipeline with session bookkeeping:
// ownership checks, title derivation, optional answer translation and
// event publication. The pipeline itself persists each turn.
type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	pipelineExecutor *executor.Executor
	partitionManager *partition.Manager
	eventPublisher   *pktNats.Publisher
	translator       translate.Translator
	ragLogger        *log.Logger
}

// NewChatService wires the answering pipeline and its session facade.
func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	llmProvider llm.LLMProvider,
	partitionRepo contract.PartitionRepository,
	partitionCache partition.Cache,
	eventPublisher *pktNats.Publisher,
	translator translate.Translator,
	ragCfg rag.Config,
) IChatService {
	ragLogger := initRagLogger()

	partitionManager := partition.NewManager(partitionRepo, partitionCache, ragLogger)
	historyLoader := history.NewLoader(uowFactory)
	pipelineExecutor := executor.NewExecutor(
		llmProvider,
		embeddingProvider,
		partitionManager,
		historyLoader,
		rerank.NewLexicalBlend(0.3),
		uowFactory,
		ragCfg,
		ragLogger,
	)

	return &chatService{
		uowFactory:       uowFactory,
		pipelineExecutor: pipelineExecutor,
		partitionManager: partitionManager,
		eventPublisher:   eventPublisher,
		translator:       translator,
		ragLogger:        ragLogger,
	}
}

func initRagLogger() *log.Logger {
	logPath := filepath.Join(".", "logs", "llm_rag.log")
	if err := os.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		log.Printf("Failed to create logs directory: %v", err)
	}
	file, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return log.New(os.Stdout, "[LLM-RAG] ", log.LstdFlags)
	}
	return log.New(file, "", log.LstdFlags)
}

// CreateSession creates a new chat session seeded with a model greeting.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID, request *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)
	now := time.Now()

	title := defaultSessionTitle
	if request != nil && request.Title != "" {
		title = request.Title
	}
	language := ""
	if request != nil {
		language = request.Language
	}

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     title,
		Language:  language,
		CreatedAt: now,
	}

	greeting := entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          "Hi, how can I help you ?",
		Role:          constant.ChatMessageRoleModel,
		ChatSessionId: chatSession.Id,
		CreatedAt:     now,
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, &greeting); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions retrieves all chat sessions
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		resp = append(resp, &dto.GetAllSessionsResponse{
			Id:        s.Id,
			Title:     s.Title,
			Language:  s.Language,
			CreatedAt: s.CreatedAt,
			UpdatedAt: s.UpdatedAt,
		})
	}

	return resp, nil
}

// GetChatHistory retrieves a session's messages in conversation order.
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "seq", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Chat:      msg.Chat,
			Strategy:  msg.Strategy,
			CreatedAt: msg.CreatedAt,
			Citations: citationsToDTO(msg.Citations),
		})
	}

	return resp, nil
}

// SendChat answers one query synchronously through the pipeline.
func (cs *chatService) SendChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId)
	if err != nil {
		return nil, err
	}

	priorMessages, err := uow.ChatMessageRepository().Count(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
	)
	if err != nil {
		priorMessages = -1
	}

	answer, err := cs.pipelineExecutor.Execute(ctx, executor.Request{
		UserId:    userId,
		SessionId: request.ChatSessionId,
		Query:     request.Chat,
	})
	if err != nil {
		return nil, err
	}

	// First real user turn names the session.
	if priorMessages >= 0 && priorMessages <= 1 && chatSession.Title == defaultSessionTitle {
		now := time.Now()
		chatSession.Title = deriveTitle(request.Chat)
		chatSession.UpdatedAt = &now
		if err := uow.ChatSessionRepository().Update(ctx, chatSession); err != nil {
			cs.ragLogger.Printf("[WARN] Session title update failed for %s: %v", chatSession.Id, err)
		}
	}

	replyText := cs.translateAnswer(ctx, chatSession, answer.Text)

	sent, reply := cs.readBackTurn(ctx, request, answer)
	reply.Chat = replyText

	if cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "CHAT_ANSWERED",
			Data: map[string]interface{}{
				"user_id":    userId,
				"session_id": request.ChatSessionId,
				"strategy":   string(answer.Strategy),
			},
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.ragLogger.Printf("[WARN] Failed to publish CHAT_ANSWERED event: %v", err)
		}
	}

	return &dto.SendChatResponse{
		ChatSessionId:    chatSession.Id,
		ChatSessionTitle: chatSession.Title,
		Strategy:         string(answer.Strategy),
		Degraded:         response.IsApology(answer),
		Sent:             sent,
		Reply:            reply,
	}, nil
}

// StreamChat answers one query as an event stream. Ownership is checked
// before the pipeline starts so unauthorized callers never open a stream.
func (cs *chatService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.SendChatRequest) (<-chan stream.Event, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return nil, err
	}

	return cs.pipelineExecutor.ExecuteStream(ctx, executor.Request{
		UserId:    userId,
		SessionId: request.ChatSessionId,
		Query:     request.Chat,
	}), nil
}

// DeleteSession removes a session with everything scoped to it: messages,
// documents, chunks and the retrieval partition.
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, request *dto.DeleteSessionRequest) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	if _, err := cs.verifySession(ctx, uow, userId, request.ChatSessionId); err != nil {
		return err
	}

	part, err := uow.PartitionRepository().FindByChatSessionId(ctx, request.ChatSessionId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if err := uow.DocumentRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}
	if part != nil {
		if err := uow.DocumentChunkRepository().DeleteByPartitionId(ctx, part.Id); err != nil {
			return err
		}
	}
	if err := uow.PartitionRepository().DeleteByChatSessionId(ctx, request.ChatSessionId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	cs.partitionManager.Invalidate(request.ChatSessionId)

	if cs.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "SESSION_DELETED",
			Data: map[string]interface{}{
				"user_id":    userId,
				"session_id": request.ChatSessionId,
			},
			OccurredAt: time.Now(),
		}
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.ragLogger.Printf("[WARN] Failed to publish SESSION_DELETED event: %v", err)
		}
	}

	return nil
}

// verifySession loads the session and enforces ownership.
func (cs *chatService) verifySession(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, sessionId uuid.UUID) (*entity.ChatSession, error) {
	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}
	return sess, nil
}

// translateAnswer converts the canonical answer into the session language.
// Failures degrade to the untranslated text; the stored message always keeps
// the canonical form.
func (cs *chatService) translateAnswer(ctx context.Context, sess *entity.ChatSession, text string) string {
	if cs.translator == nil || sess.Language == "" || sess.Language == "en" {
		return text
	}
	translated, err := cs.translator.Translate(ctx, text, sess.Language)
	if err != nil {
		cs.ragLogger.Printf("[WARN] Translation to %s failed, returning original: %v", sess.Language, err)
		return text
	}
	return translated
}

// readBackTurn fetches the turn the pipeline just persisted so the response
// carries real message ids. If the read misses (persistence is best-effort)
// the texts are still returned, just without storage identity.
func (cs *chatService) readBackTurn(ctx context.Context, request *dto.SendChatRequest, answer *store.Answer) (*dto.SendChatResponseChat, *dto.SendChatResponseChat) {
	sent := &dto.SendChatResponseChat{
		Chat:      request.Chat,
		Role:      constant.ChatMessageRoleUser,
		CreatedAt: time.Now(),
	}
	reply := &dto.SendChatResponseChat{
		Chat:      answer.Text,
		Role:      constant.ChatMessageRoleModel,
		Strategy:  string(answer.Strategy),
		CreatedAt: time.Now(),
		Citations: sourcesToDTO(answer.Sources),
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	latest, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: request.ChatSessionId},
		specification.OrderBy{Field: "seq", Desc: true},
		specification.Pagination{Limit: 2},
	)
	if err != nil || len(latest) < 2 {
		cs.ragLogger.Printf("[WARN] Turn read-back failed for session %s: %v", request.ChatSessionId, err)
		return sent, reply
	}

	if latest[0].Role == constant.ChatMessageRoleModel && latest[1].Role == constant.ChatMessageRoleUser {
		reply.Id = latest[0].Id
		reply.CreatedAt = latest[0].CreatedAt
		sent.Id = latest[1].Id
		sent.CreatedAt = latest[1].CreatedAt
	}
	return sent, reply
}

func deriveTitle(query string) string {
	const maxTitle = 80
	if utf8.RuneCountInString(query) <= maxTitle {
		return query
	}
	runes := []rune(query)
	return string(runes[:maxTitle]) + "..."
}

func citationsToDTO(citations []entity.Citation) []dto.CitationDTO {
	if len(citations) == 0 {
		return nil
	}
	out := make([]dto.CitationDTO, len(citations))
	for i, c := range citations {
		out[i] = dto.CitationDTO{
			FileName: c.FileName,
			Page:     c.PageNumber,
			Snippet:  c.Snippet,
		}
	}
	return out
}

func sourcesToDTO(sources []store.Citation) []dto.CitationDTO {
	if len(sources) == 0 {
		return nil
	}
	out := make([]dto.CitationDTO, len(sources))
	for i, s := range sources {
		out[i] = dto.CitationDTO{
			FileName: s.FileName,
			Page:     s.PageNumber,
			Snippet:  s.Snippet,
		}
	}
	return out
}
