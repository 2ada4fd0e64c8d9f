package fallback

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/response"
	"ai-docchat-be/pkg/store"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestChainOrder(t *testing.T) {
	cfg := rag.DefaultConfig()

	tests := []struct {
		name       string
		start      store.Strategy
		totalPages int64
		want       []store.Strategy
	}{
		{
			name:       "full chain from decomposition",
			start:      store.StrategyDecompose,
			totalPages: 20,
			want: []store.Strategy{
				store.StrategyDecompose,
				store.StrategySmartChunk,
				store.StrategyFullDocument,
				store.StrategySimpleRAG,
			},
		},
		{
			name:       "full document dropped above the ceiling",
			start:      store.StrategyDecompose,
			totalPages: 500,
			want: []store.Strategy{
				store.StrategyDecompose,
				store.StrategySmartChunk,
				store.StrategySimpleRAG,
			},
		},
		{
			name:       "smart chunking start",
			start:      store.StrategySmartChunk,
			totalPages: 20,
			want: []store.Strategy{
				store.StrategySmartChunk,
				store.StrategyFullDocument,
				store.StrategySimpleRAG,
			},
		},
		{
			name:       "full document start",
			start:      store.StrategyFullDocument,
			totalPages: 20,
			want: []store.Strategy{
				store.StrategyFullDocument,
				store.StrategySimpleRAG,
			},
		},
		{
			name:       "full document start above ceiling is demoted",
			start:      store.StrategyFullDocument,
			totalPages: 500,
			want: []store.Strategy{
				store.StrategySmartChunk,
				store.StrategySimpleRAG,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Chain(tt.start, tt.totalPages, cfg))
		})
	}
}

func TestRunFirstStrategyWins(t *testing.T) {
	c := NewController(discardLogger())

	var attempts []store.Strategy
	answer := c.Run(context.Background(), store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			attempts = append(attempts, strategy)
			assert.NotEmpty(t, correlationId)
			return &store.Answer{Text: "done"}, nil
		})

	assert.Equal(t, "done", answer.Text)
	assert.Equal(t, store.StrategyDecompose, answer.Strategy)
	assert.Len(t, attempts, 1)
}

func TestRunDegradesOnSoftFailure(t *testing.T) {
	c := NewController(discardLogger())

	var attempts []store.Strategy
	answer := c.Run(context.Background(), store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			attempts = append(attempts, strategy)
			if strategy == store.StrategySimpleRAG {
				return &store.Answer{Text: "rescued"}, nil
			}
			return nil, rag.NewFailure(rag.KindVectorSearch, "retrieve", errors.New("index down"))
		})

	assert.Equal(t, "rescued", answer.Text)
	assert.Equal(t, store.StrategySimpleRAG, answer.Strategy)
	assert.Equal(t, []store.Strategy{
		store.StrategyDecompose,
		store.StrategySmartChunk,
		store.StrategyFullDocument,
		store.StrategySimpleRAG,
	}, attempts)
}

func TestRunApologyAfterExhaustion(t *testing.T) {
	c := NewController(discardLogger())

	calls := 0
	answer := c.Run(context.Background(), store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			calls++
			return nil, errors.New("everything is on fire")
		})

	assert.Equal(t, 4, calls, "every strategy in the chain gets one attempt")
	assert.Equal(t, response.ApologyMessage, answer.Text)
	assert.Empty(t, answer.Sources)
}

func TestRunStopsOnFatalFailure(t *testing.T) {
	c := NewController(discardLogger())

	calls := 0
	answer := c.Run(context.Background(), store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			calls++
			return nil, rag.NewFailure(rag.KindPartitionCreation, "partition", errors.New("isolation lost"))
		})

	assert.Equal(t, 1, calls, "fatal failures must not degrade further")
	assert.Equal(t, response.ApologyMessage, answer.Text)
}

func TestRunStopsOnDeadContext(t *testing.T) {
	c := NewController(discardLogger())

	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	answer := c.Run(ctx, store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			calls++
			cancel()
			return nil, errors.New("interrupted")
		})

	assert.Equal(t, 1, calls, "no further attempts once the caller is gone")
	assert.Equal(t, response.ApologyMessage, answer.Text)
}

func TestRunDistinctCorrelationIds(t *testing.T) {
	c := NewController(discardLogger())

	seen := make(map[string]bool)
	c.Run(context.Background(), store.StrategyDecompose, 20, rag.DefaultConfig(),
		func(ctx context.Context, strategy store.Strategy, correlationId string) (*store.Answer, error) {
			assert.False(t, seen[correlationId], "each attempt needs its own correlation id")
			seen[correlationId] = true
			return nil, errors.New("keep going")
		})

	assert.Len(t, seen, 4)
}
