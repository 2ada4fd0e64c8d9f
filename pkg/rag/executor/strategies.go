package executor

import (
	"context"
	"fmt"
	"strings"

	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/assemble"
	"ai-docchat-be/pkg/rag/response"
	"ai-docchat-be/pkg/store"
)

// attempt executes one strategy under the stage timeout. A timeout is
// indistinguishable from any other stage failure: the fallback controller
// degrades either way.
func (e *Executor) attempt(ctx context.Context, t *turn, strat store.Strategy) (*store.Answer, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.StageTimeout)
	defer cancel()

	switch strat {
	case store.StrategyDecompose:
		return e.runDecompose(attemptCtx, t)
	case store.StrategyFullDocument:
		return e.runFullDocument(attemptCtx, t)
	case store.StrategySimpleRAG:
		return e.runSimpleRAG(attemptCtx, t)
	default:
		return e.runSmartChunk(attemptCtx, t)
	}
}

// runSmartChunk is the standard path: retrieve topK, rerank down to the
// context window, assemble, generate.
func (e *Executor) runSmartChunk(ctx context.Context, t *turn) (*store.Answer, error) {
	e.transition(t, StateRetrieve)
	candidates, err := e.searchEngine.Retrieve(ctx, t.uow, t.partitionId, t.req.Query, e.cfg)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return response.NoRelevantInfo(store.StrategySmartChunk), nil
	}

	e.transition(t, StateAssemble)
	top := e.reranker.Rerank(t.req.Query, candidates, e.cfg.MaxContextChunks)
	assembled := assemble.Assemble(top, e.cfg)

	e.transition(t, StateGenerate)
	text, err := e.generator.GenerateGrounded(ctx, t.req.Query, assembled.Text, t.history)
	if err != nil {
		return nil, err
	}

	return &store.Answer{
		Text:      text,
		Sources:   assembled.Citations,
		Reasoning: fmt.Sprintf("answered from %d of %d retrieved chunks", len(top), len(candidates)),
	}, nil
}

// runSimpleRAG is the last resort before the apology: one retrieval pass
// straight into assembly, no reranking.
func (e *Executor) runSimpleRAG(ctx context.Context, t *turn) (*store.Answer, error) {
	e.transition(t, StateRetrieve)
	candidates, err := e.searchEngine.Retrieve(ctx, t.uow, t.partitionId, t.req.Query, e.cfg)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return response.NoRelevantInfo(store.StrategySimpleRAG), nil
	}

	e.transition(t, StateAssemble)
	assembled := assemble.Assemble(candidates, e.cfg)

	e.transition(t, StateGenerate)
	text, err := e.generator.GenerateGrounded(ctx, t.req.Query, assembled.Text, t.history)
	if err != nil {
		return nil, err
	}

	return &store.Answer{
		Text:      text,
		Sources:   assembled.Citations,
		Reasoning: fmt.Sprintf("answered from a single retrieval pass over %d chunks", len(candidates)),
	}, nil
}

// runFullDocument answers over every page of the partition in reading
// order. The fallback chain only schedules it below the page ceiling.
func (e *Executor) runFullDocument(ctx context.Context, t *turn) (*store.Answer, error) {
	e.transition(t, StateRetrieve)
	pages, err := t.uow.DocumentChunkRepository().GetAllPagesInPartition(ctx, t.partitionId)
	if err != nil {
		return nil, fmt.Errorf("load partition pages: %w", err)
	}
	if len(pages) == 0 {
		return response.NoRelevantInfo(store.StrategyFullDocument), nil
	}

	e.transition(t, StateAssemble)
	var sb strings.Builder
	for i, page := range pages {
		if i > 0 {
			sb.WriteString(assemble.Separator)
		}
		sb.WriteString(fmt.Sprintf("[Source %d: %s, Page %d]\n%s",
			i+1, page.FileName, page.PageNumber, page.Content))
	}

	e.transition(t, StateGenerate)
	text, err := e.generator.GenerateGrounded(ctx, t.req.Query, sb.String(), t.history)
	if err != nil {
		return nil, err
	}

	return &store.Answer{
		Text:      text,
		Sources:   fileCitations(pages, e.cfg),
		Reasoning: fmt.Sprintf("answered over all %d pages", len(pages)),
	}, nil
}

// runDecompose splits a compound query, answers the parts through the
// sub-query runner and synthesizes one combined answer.
func (e *Executor) runDecompose(ctx context.Context, t *turn) (*store.Answer, error) {
	e.transition(t, StateDecompose)
	result, err := e.decomposer.Execute(ctx, t.req.Query, &subQueryRunner{executor: e, turn: t}, e.cfg)
	if err != nil {
		return nil, err
	}

	return &store.Answer{
		Text:      result.Answer,
		Sources:   result.Citations,
		Reasoning: fmt.Sprintf("decomposed into %d sub-queries", len(result.SubQueries)),
	}, nil
}

// subQueryRunner answers one decomposition sub-query with the narrow
// pipeline: retrieve, rerank to the citation limit, assemble, generate.
// Sub-queries skip conversation history so each stays focused.
type subQueryRunner struct {
	executor *Executor
	turn     *turn
}

func (r *subQueryRunner) RunSubQuery(ctx context.Context, query string) (string, []store.Citation, error) {
	e, t := r.executor, r.turn

	candidates, err := e.searchEngine.Retrieve(ctx, t.uow, t.partitionId, query, e.cfg)
	if err != nil {
		return "", nil, err
	}
	if len(candidates) == 0 {
		return response.NoRelevantInfoMessage, []store.Citation{}, nil
	}

	top := e.reranker.Rerank(query, candidates, e.cfg.RerankLimit)
	assembled := assemble.Assemble(top, e.cfg)

	text, err := e.generator.GenerateGrounded(ctx, query, assembled.Text, nil)
	if err != nil {
		return "", nil, err
	}
	return text, assembled.Citations, nil
}

// fileCitations cites each file once, from its first page in reading order.
func fileCitations(pages []*entity.DocumentChunk, cfg rag.Config) []store.Citation {
	seen := make(map[string]bool)
	citations := make([]store.Citation, 0, cfg.MaxCitations)
	for _, page := range pages {
		if seen[page.FileName] {
			continue
		}
		seen[page.FileName] = true
		citations = append(citations, store.Citation{
			FileName:   page.FileName,
			PageNumber: page.PageNumber,
			Snippet:    assemble.Snippet(page.Content, cfg.SnippetLength),
		})
		if len(citations) >= cfg.MaxCitations {
			break
		}
	}
	return citations
}
