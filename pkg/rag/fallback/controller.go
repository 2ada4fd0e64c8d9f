// Package fallback walks the strategy degradation chain and guarantees
// the caller a structured answer, never a raw error.
package fallback

import (
	"context"
	"log"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/response"
	"ai-docchat-be/pkg/store"

	"github.com/google/uuid"
)

// degradationOrder is fixed; attempts only ever move rightward.
var degradationOrder = []store.Strategy{
	store.StrategyDecompose,
	store.StrategySmartChunk,
	store.StrategyFullDocument,
	store.StrategySimpleRAG,
}

// AttemptFunc runs one strategy attempt. The correlation id identifies
// the attempt in logs and on the persisted message.
type AttemptFunc func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error)

// Controller degrades through strategies on soft failures and stops the
// chain on hard ones.
type Controller struct {
	logger *log.Logger
}

// NewController creates a new fallback controller
func NewController(logger *log.Logger) *Controller {
	return &Controller{logger: logger}
}

// Chain returns the degradation path starting at start. FULL_DOCUMENT
// only appears while the corpus fits under the page ceiling; a start of
// FULL_DOCUMENT above the ceiling is a precondition violation and is
// demoted to SMART_CHUNKING.
func Chain(start store.Strategy, totalPages int64, cfg rag.Config) []store.Strategy {
	fullDocAllowed := totalPages > 0 && totalPages <= int64(cfg.FullDocPageLimit)

	if start == store.StrategyFullDocument && !fullDocAllowed {
		start = store.StrategySmartChunk
	}

	startIdx := 0
	for i, s := range degradationOrder {
		if s == start {
			startIdx = i
			break
		}
	}

	var chain []store.Strategy
	for _, s := range degradationOrder[startIdx:] {
		if s == store.StrategyFullDocument && !fullDocAllowed {
			continue
		}
		chain = append(chain, s)
	}
	return chain
}

// Run attempts each strategy in the chain until one answers. A nil
// error is success. rag-fatal errors and a dead context end the chain
// immediately; every other error degrades to the next strategy. When
// the chain is exhausted the generic apology is the answer.
func (c *Controller) Run(
	ctx context.Context,
	start store.Strategy,
	totalPages int64,
	cfg rag.Config,
	attempt AttemptFunc,
) *store.Answer {

	chain := Chain(start, totalPages, cfg)

	for i, strat := range chain {
		correlationId := uuid.New().String()
		c.logger.Printf("[FALLBACK] Attempt %d/%d strategy=%s correlation_id=%s",
			i+1, len(chain), strat, correlationId)

		answer, err := attempt(ctx, strat, correlationId)
		if err == nil && answer != nil {
			answer.Strategy = strat
			return answer
		}

		if err != nil && rag.IsFatal(err) {
			c.logger.Printf("[ERROR] Strategy %s hit a fatal failure (correlation_id=%s): %v",
				strat, correlationId, err)
			break
		}
		if ctx.Err() != nil {
			c.logger.Printf("[WARN] Request context ended during %s (correlation_id=%s): %v",
				strat, correlationId, ctx.Err())
			break
		}

		c.logger.Printf("[WARN] Strategy %s failed (correlation_id=%s), degrading: %v",
			strat, correlationId, err)
	}

	c.logger.Printf("[FALLBACK] Chain exhausted, answering with apology")
	return response.Apology()
}
