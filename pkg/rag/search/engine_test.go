package search

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"ai-docchat-be/pkg/rag"
	"ai-docchat-be/pkg/rag/ragtest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestRetrieveRanksAndFilters(t *testing.T) {
	partitionId := uuid.New()
	uow := ragtest.NewFakeUnitOfWork()

	low := ragtest.NewChunk(partitionId, "report.pdf", 4, "quarterly overhead")
	mid := ragtest.NewChunk(partitionId, "report.pdf", 2, "revenue grew by 12 percent")
	high := ragtest.NewChunk(partitionId, "annex.pdf", 1, "revenue breakdown by region")

	uow.Chunks.Scored = append(uow.Chunks.Scored,
		ragtest.Scored(0.61, mid),
		ragtest.Scored(0.92, high),
		ragtest.Scored(0.12, low),
	)

	engine := NewEngine(&ragtest.FakeEmbedder{}, discardLogger())
	got, err := engine.Retrieve(context.Background(), uow, partitionId, "revenue", rag.DefaultConfig())

	assert.NoError(t, err)
	assert.Len(t, got, 2, "below-threshold candidate must be dropped")

	assert.Equal(t, "annex.pdf", got[0].Chunk.FileName, "results must be sorted best first")
	assert.Equal(t, 1, got[0].Chunk.PageNumber)
	assert.InDelta(t, 0.92, got[0].Score, 1e-9)
	assert.InDelta(t, 0.08, got[0].Distance, 1e-9)

	assert.Equal(t, "report.pdf", got[1].Chunk.FileName)
	assert.InDelta(t, 0.61, got[1].Score, 1e-9)
}

func TestRetrieveEmbeddingFailure(t *testing.T) {
	uow := ragtest.NewFakeUnitOfWork()
	embedder := &ragtest.FakeEmbedder{Err: errors.New("model offline")}

	engine := NewEngine(embedder, discardLogger())
	_, err := engine.Retrieve(context.Background(), uow, uuid.New(), "anything", rag.DefaultConfig())

	assert.Error(t, err)
	kind, ok := rag.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, rag.KindEmbedding, kind)
	assert.False(t, rag.IsFatal(err))
	assert.Equal(t, 0, uow.Chunks.SearchCallCount(), "no vector search after a failed embedding")
}

func TestRetrieveVectorSearchFailure(t *testing.T) {
	uow := ragtest.NewFakeUnitOfWork()
	uow.Chunks.SearchErr = errors.New("index unavailable")

	engine := NewEngine(&ragtest.FakeEmbedder{}, discardLogger())
	_, err := engine.Retrieve(context.Background(), uow, uuid.New(), "anything", rag.DefaultConfig())

	assert.Error(t, err)
	kind, ok := rag.KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, rag.KindVectorSearch, kind)
}

func TestRetrieveEmptyIsNotAnError(t *testing.T) {
	uow := ragtest.NewFakeUnitOfWork()

	engine := NewEngine(&ragtest.FakeEmbedder{}, discardLogger())
	got, err := engine.Retrieve(context.Background(), uow, uuid.New(), "anything", rag.DefaultConfig())

	assert.NoError(t, err)
	assert.Empty(t, got)
}
