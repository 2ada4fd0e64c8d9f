package search

import (
	"context"
	"log"
	"sort"

	"ai-docchat-be/internal/repository/contract"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/store"

	"github.com/google/uuid"
)

// Engine embeds a query and searches one partition for similar chunks.
type Engine struct {
	embeddingProvider embedding.EmbeddingProvider
	logger            *log.Logger
}

// NewEngine creates a new retrieval engine
func NewEngine(embeddingProvider embedding.EmbeddingProvider, logger *log.Logger) *Engine {
	return &Engine{
		embeddingProvider: embeddingProvider,
		logger:            logger,
	}
}

// Retrieve returns the partition's chunks ranked by similarity, best
// first, with everything below cfg.ScoreThreshold dropped. An empty
// result is a valid outcome, not an error: the caller renders it as
// "no relevant information found".
func (e *Engine) Retrieve(
	ctx context.Context,
	uow unitofwork.UnitOfWork,
	partitionId uuid.UUID,
	query string,
	cfg rag.Config,
) ([]store.Candidate, error) {

	embeddingRes, err := e.embeddingProvider.Generate(query, "RETRIEVAL_QUERY")
	if err != nil {
		e.logger.Printf("[ERROR] Query embedding failed: %v", err)
		return nil, rag.NewFailure(rag.KindEmbedding, "retrieve", err)
	}

	scoredResults, err := uow.DocumentChunkRepository().SearchSimilarWithScore(
		ctx,
		embeddingRes.Embedding.Values,
		cfg.TopK,
		partitionId,
		cfg.ScoreThreshold,
	)
	if err != nil {
		e.logger.Printf("[ERROR] Vector search failed: %v", err)
		return nil, rag.NewFailure(rag.KindVectorSearch, "retrieve", err)
	}

	candidates := e.filterCandidates(scoredResults, cfg.ScoreThreshold)

	// The store already orders by similarity, but the ranking contract
	// belongs here, not to whichever backend served the query.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	e.logger.Printf("[RETRIEVE] %d of %d candidates kept above threshold %.2f",
		len(candidates), len(scoredResults), cfg.ScoreThreshold)

	return candidates, nil
}

func (e *Engine) filterCandidates(results []*contract.ScoredDocumentChunk, threshold float64) []store.Candidate {
	candidates := make([]store.Candidate, 0, len(results))

	for i, res := range results {
		if res.Similarity < threshold {
			e.logger.Printf("[DEBUG] Candidate %d: score=%.4f [FILTERED]", i+1, res.Similarity)
			continue
		}

		chunk := res.Chunk
		candidates = append(candidates, store.Candidate{
			Chunk: store.Chunk{
				ID:         chunk.Id,
				DocumentID: chunk.DocumentId,
				FileName:   chunk.FileName,
				PageNumber: chunk.PageNumber,
				Content:    chunk.Content,
				Language:   chunk.Language,
			},
			Distance: 1 - res.Similarity,
			Score:    res.Similarity,
		})

		e.logger.Printf("[DEBUG] Candidate %d: score=%.4f [KEEP]", i+1, res.Similarity)
	}

	return candidates
}
