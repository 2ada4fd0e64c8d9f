package executor

import (
	"context"
	"log"

	"ai-docchat-be/internal/constant"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/llm"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/classify"
	"ai-docchat-be/pkg/rag/decompose"
	"ai-docchat-be/pkg/rag/fallback"
	"ai-docchat-be/pkg/rag/history"
	"ai-docchat-be/pkg/rag/partition"
	"ai-docchat-be/pkg/rag/rerank"
	"ai-docchat-be/pkg/rag/response"
	"ai-docchat-be/pkg/rag/search"
	"ai-docchat-be/pkg/rag/strategy"
	"ai-docchat-be/pkg/rag/stream"
	"ai-docchat-be/pkg/store"

	"github.com/google/uuid"
)

// State names the pipeline's position. Working states double as the labels
// of layer-update stream events.
type State string

const (
	StateClassify       State = "CLASSIFY"
	StateRoute          State = "ROUTE"
	StateRetrieve       State = "RETRIEVE"
	StateDecompose      State = "DECOMPOSE"
	StateAssemble       State = "ASSEMBLE"
	StateGenerate       State = "GENERATE"
	StateResponded      State = "RESPONDED"
	StateErrorResponded State = "ERROR_RESPONDED"
)

// eventBuffer decouples the pipeline from a slow stream consumer.
const eventBuffer = 32

// Request is one user turn entering the pipeline.
type Request struct {
	UserId    uuid.UUID
	SessionId uuid.UUID
	Query     string
}

// turn carries the per-request working set through the stages.
type turn struct {
	req           Request
	correlationId string
	partitionId   uuid.UUID
	history       []llm.Message
	chunkCount    int64
	totalPages    int64
	state         State
	emitter       *stream.Emitter
	uow           unitofwork.UnitOfWork
}

// Executor drives one query through classification, routing, retrieval,
// strategy execution and generation, degrading through the fallback chain
// until an answer exists. Every query resolves to a structured answer; the
// only error it ever returns is an unavailable partition.
type Executor struct {
	partitionManager   *partition.Manager
	classifier         *classify.Classifier
	searchEngine       *search.Engine
	reranker           rerank.Reranker
	decomposer         *decompose.Engine
	generator          *response.Generator
	fallbackController *fallback.Controller
	historyLoader      *history.Loader
	uowFactory         unitofwork.RepositoryFactory
	cfg                rag.Config
	logger             *log.Logger
}

// NewExecutor wires the pipeline components. A nil reranker falls back to
// plain score order.
func NewExecutor(
	llmProvider llm.LLMProvider,
	embeddingProvider embedding.EmbeddingProvider,
	partitionManager *partition.Manager,
	historyLoader *history.Loader,
	reranker rerank.Reranker,
	uowFactory unitofwork.RepositoryFactory,
	cfg rag.Config,
	logger *log.Logger,
) *Executor {
	if reranker == nil {
		reranker = rerank.ByScore{}
	}
	return &Executor{
		partitionManager:   partitionManager,
		classifier:         classify.NewClassifier(llmProvider, logger),
		searchEngine:       search.NewEngine(embeddingProvider, logger),
		reranker:           reranker,
		decomposer:         decompose.NewEngine(llmProvider, logger),
		generator:          response.NewGenerator(llmProvider, logger),
		fallbackController: fallback.NewController(logger),
		historyLoader:      historyLoader,
		uowFactory:         uowFactory,
		cfg:                cfg.Normalize(),
		logger:             logger,
	}
}

// Execute answers one query synchronously. The returned error is non-nil
// only when the session's partition cannot be created; callers map it to
// service-unavailable.
func (e *Executor) Execute(ctx context.Context, req Request) (*store.Answer, error) {
	return e.resolve(ctx, req, nil)
}

// ExecuteStream answers one query as an event stream. The channel closes
// after exactly one terminal event; cancelling ctx stops emission while the
// turn still completes and persists server-side.
func (e *Executor) ExecuteStream(ctx context.Context, req Request) <-chan stream.Event {
	emitter := stream.NewEmitter(ctx, eventBuffer)

	go func() {
		answer, err := e.resolve(ctx, req, emitter)
		if err != nil {
			emitter.Fail(response.ServiceUnavailableMessage)
			return
		}

		for _, citation := range answer.Sources {
			if !emitter.Send(stream.Source(citation)) {
				return
			}
		}
		for _, chunk := range stream.Words(answer.Text, e.cfg.StreamWordChunk) {
			if !emitter.Send(stream.TextDelta(chunk)) {
				return
			}
		}
		emitter.Finish()
	}()

	return emitter.Events()
}

// resolve is the shared state machine behind both entry points.
func (e *Executor) resolve(ctx context.Context, req Request, emitter *stream.Emitter) (*store.Answer, error) {
	t := &turn{
		req:           req,
		correlationId: uuid.New().String(),
		emitter:       emitter,
	}

	e.logger.Printf("[PIPELINE] Starting query=%q session=%s correlation_id=%s",
		truncate(req.Query, 50), req.SessionId, t.correlationId)

	partitionId, err := e.partitionManager.GetOrCreate(ctx, req.UserId, req.SessionId)
	if err != nil {
		e.logger.Printf("[ERROR] Partition unavailable (correlation_id=%s): %v", t.correlationId, err)
		return nil, err
	}
	t.partitionId = partitionId
	t.uow = e.uowFactory.NewUnitOfWork(ctx)

	e.transition(t, StateClassify)

	recent, err := e.historyLoader.LoadConversationHistory(ctx, req.SessionId, history.DefaultLimit)
	if err != nil {
		e.logger.Printf("[WARN] History unavailable, continuing without it (correlation_id=%s): %v",
			t.correlationId, err)
	} else {
		t.history = recent
	}

	count, err := t.uow.DocumentChunkRepository().CountByPartition(ctx, partitionId)
	if err != nil {
		// Assume content exists; retrieval will surface the real failure.
		e.logger.Printf("[WARN] Chunk count unavailable, assuming documents present (correlation_id=%s): %v",
			t.correlationId, err)
		count = -1
	}
	t.chunkCount = count

	classification := e.classifier.Classify(ctx, req.Query, count != 0, t.history)

	e.transition(t, StateRoute)
	e.logger.Printf("[PIPELINE] Route=%s reason=%q correlation_id=%s",
		classification.Route, classification.Reason, t.correlationId)

	answer := e.routeAnswer(ctx, t, classification)

	if response.IsApology(answer) {
		e.transition(t, StateErrorResponded)
	} else {
		e.transition(t, StateResponded)
	}

	e.persistTurn(ctx, t, answer)

	e.logger.Printf("[PIPELINE] Done route=%s strategy=%s sources=%d correlation_id=%s",
		classification.Route, answer.Strategy, len(answer.Sources), t.correlationId)
	return answer, nil
}

// routeAnswer dispatches on the classifier's verdict. GREETING and SIMPLE
// short-circuit without touching the embedding service or the index.
func (e *Executor) routeAnswer(ctx context.Context, t *turn, classification store.Classification) *store.Answer {
	switch classification.Route {
	case store.RouteGreeting:
		return response.Greeting()

	case store.RouteSimple:
		if t.chunkCount == 0 {
			return response.UploadPrompt()
		}
		e.transition(t, StateGenerate)
		text, err := e.generator.GenerateConversational(ctx, t.req.Query, t.history)
		if err != nil {
			e.logger.Printf("[ERROR] Conversational generation failed (correlation_id=%s): %v",
				t.correlationId, err)
			return response.Apology()
		}
		return &store.Answer{
			Text:      text,
			Sources:   []store.Citation{},
			Reasoning: "answered from conversation context",
		}

	default:
		if t.chunkCount == 0 {
			return response.UploadPrompt()
		}
		return e.answerWithRetrieval(ctx, t)
	}
}

// answerWithRetrieval picks the opening strategy and lets the fallback
// controller degrade through the chain. It always yields an answer.
func (e *Executor) answerWithRetrieval(ctx context.Context, t *turn) *store.Answer {
	totalPages, err := t.uow.DocumentRepository().SumPageCount(ctx, t.req.SessionId)
	if err != nil {
		e.logger.Printf("[WARN] Page count unavailable, full-document disabled (correlation_id=%s): %v",
			t.correlationId, err)
		totalPages = 0
	}
	t.totalPages = totalPages

	start := strategy.Select(totalPages, t.req.Query, e.cfg)
	e.logger.Printf("[PIPELINE] Opening strategy=%s total_pages=%d correlation_id=%s",
		start, totalPages, t.correlationId)

	return e.fallbackController.Run(ctx, start, totalPages, e.cfg,
		func(ctx context.Context, strat store.Strategy, _ string) (*store.Answer, error) {
			return e.attempt(ctx, t, strat)
		})
}

// transition advances the request state. Working states surface to the
// stream as layer updates; terminal states only close out the trace.
func (e *Executor) transition(t *turn, next State) {
	t.state = next
	e.logger.Printf("[PIPELINE] state=%s correlation_id=%s", next, t.correlationId)

	if t.emitter == nil || next == StateResponded || next == StateErrorResponded {
		return
	}
	t.emitter.Send(stream.LayerUpdate(string(next)))
}

// persistTurn appends the user and assistant messages as one transaction
// with server-assigned ordering. The answer is already computed at this
// point, so a storage failure is logged instead of failing the request.
func (e *Executor) persistTurn(ctx context.Context, t *turn, answer *store.Answer) {
	persistCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.StageTimeout)
	defer cancel()

	uow := e.uowFactory.NewUnitOfWork(persistCtx)
	if err := uow.Begin(persistCtx); err != nil {
		e.logger.Printf("[ERROR] Message push could not open a transaction (correlation_id=%s): %v",
			t.correlationId, err)
		return
	}

	messages := uow.ChatMessageRepository()
	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          t.req.Query,
		Role:          constant.ChatMessageRoleUser,
		ChatSessionId: t.req.SessionId,
		CorrelationId: t.correlationId,
	}
	assistantMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		Chat:          answer.Text,
		Role:          constant.ChatMessageRoleModel,
		ChatSessionId: t.req.SessionId,
		Strategy:      string(answer.Strategy),
		CorrelationId: t.correlationId,
		Citations:     toEntityCitations(answer.Sources),
	}

	if err := messages.Create(persistCtx, userMessage); err != nil {
		uow.Rollback()
		e.logger.Printf("[ERROR] Message push failed (correlation_id=%s): %v", t.correlationId, err)
		return
	}
	if err := messages.Create(persistCtx, assistantMessage); err != nil {
		uow.Rollback()
		e.logger.Printf("[ERROR] Message push failed (correlation_id=%s): %v", t.correlationId, err)
		return
	}
	if err := uow.Commit(); err != nil {
		e.logger.Printf("[ERROR] Message push did not commit (correlation_id=%s): %v", t.correlationId, err)
	}
}

func toEntityCitations(sources []store.Citation) []entity.Citation {
	citations := make([]entity.Citation, len(sources))
	for i, source := range sources {
		citations[i] = entity.Citation{
			FileName:   source.FileName,
			PageNumber: source.PageNumber,
			Snippet:    source.Snippet,
		}
	}
	return citations
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
