package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/pkg/rag/ragtest"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

const testIngestTopic = "ingest_document"

type consumerRig struct {
	factory  *ragtest.FakeFactory
	embedder *ragtest.FakeEmbedder
	pubSub   *gochannel.GoChannel
}

func newConsumerRig(t *testing.T) *consumerRig {
	t.Helper()

	factory := ragtest.NewFakeFactory()
	embedder := &ragtest.FakeEmbedder{}
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { pubSub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	svc := NewConsumerService(pubSub, testIngestTopic, factory, embedder, nil)
	assert.NoError(t, svc.Consume(ctx))

	return &consumerRig{factory: factory, embedder: embedder, pubSub: pubSub}
}

func (r *consumerRig) seedUploadedDocument(t *testing.T, pages []string) *entity.Document {
	t.Helper()

	doc := &entity.Document{
		Id:            uuid.New(),
		UserId:        uuid.New(),
		ChatSessionId: uuid.New(),
		FileName:      "upload.pdf",
		PageCount:     len(pages),
		Language:      "en",
		Status:        entity.DocumentStatusUploaded,
	}
	assert.NoError(t, r.factory.UoW.Documents.Create(context.Background(), doc))

	partitionId := uuid.New()
	chunks := make([]*entity.DocumentChunk, 0, len(pages))
	for i, content := range pages {
		chunk := ragtest.NewChunk(partitionId, doc.FileName, i+1, content)
		chunk.DocumentId = doc.Id
		chunks = append(chunks, chunk)
	}
	if len(chunks) > 0 {
		assert.NoError(t, r.factory.UoW.Chunks.CreateBulk(context.Background(), chunks))
	}
	return doc
}

func (r *consumerRig) publish(t *testing.T, payload []byte) {
	t.Helper()
	assert.NoError(t, r.pubSub.Publish(testIngestTopic, message.NewMessage(watermill.NewUUID(), payload)))
}

func (r *consumerRig) publishIngest(t *testing.T, documentId uuid.UUID) {
	t.Helper()
	raw, err := json.Marshal(dto.PublishIngestDocumentMessage{DocumentId: documentId})
	assert.NoError(t, err)
	r.publish(t, raw)
}

func (r *consumerRig) statusIs(id uuid.UUID, want entity.DocumentStatus) func() bool {
	return func() bool {
		got, ok := r.factory.UoW.Documents.StatusOf(id)
		return ok && got == want
	}
}

func TestConsumeEmbedsPagesAndMarksReady(t *testing.T) {
	r := newConsumerRig(t)
	doc := r.seedUploadedDocument(t, []string{"alpha page", "beta page"})

	r.publishIngest(t, doc.Id)

	assert.Eventually(t, r.statusIs(doc.Id, entity.DocumentStatusReady), 2*time.Second, 10*time.Millisecond)

	chunks, err := r.factory.UoW.Chunks.FindAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, doc.Id, c.DocumentId)
		assert.NotEmpty(t, c.EmbeddingValue)
	}
	assert.Equal(t, 2, r.embedder.CallCount())
}

func TestConsumeSplitsOversizedPage(t *testing.T) {
	r := newConsumerRig(t)
	doc := r.seedUploadedDocument(t, []string{strings.Repeat("a", 6100)})

	r.publishIngest(t, doc.Id)

	assert.Eventually(t, r.statusIs(doc.Id, entity.DocumentStatusReady), 2*time.Second, 10*time.Millisecond)

	// 6100 runes with a 6000 window and 200 overlap make two chunks, both
	// citing the same page.
	chunks, err := r.factory.UoW.Chunks.FindAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, chunks, 2)
	for _, c := range chunks {
		assert.Equal(t, 1, c.PageNumber)
	}
	assert.Equal(t, 2, r.embedder.CallCount())
}

func TestConsumeEmbedFailureMarksFailed(t *testing.T) {
	r := newConsumerRig(t)
	r.embedder.Err = errors.New("embedding service down")
	doc := r.seedUploadedDocument(t, []string{"alpha page"})

	r.publishIngest(t, doc.Id)

	assert.Eventually(t, r.statusIs(doc.Id, entity.DocumentStatusFailed), 2*time.Second, 10*time.Millisecond)

	// The unembedded originals survive, so a re-upload is not required for
	// the pages themselves; retrieval just never sees them.
	chunks, err := r.factory.UoW.Chunks.FindAll(context.Background())
	assert.NoError(t, err)
	assert.Len(t, chunks, 1)
	assert.Empty(t, chunks[0].EmbeddingValue)
}

func TestConsumeDocumentWithoutPagesFails(t *testing.T) {
	r := newConsumerRig(t)
	doc := r.seedUploadedDocument(t, nil)

	r.publishIngest(t, doc.Id)

	assert.Eventually(t, r.statusIs(doc.Id, entity.DocumentStatusFailed), 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, r.embedder.CallCount())
}

func TestConsumeMissingDocumentIsDropped(t *testing.T) {
	r := newConsumerRig(t)

	r.publishIngest(t, uuid.New())

	assert.Never(t, func() bool { return r.embedder.CallCount() > 0 }, 300*time.Millisecond, 25*time.Millisecond)
}

func TestConsumeInvalidPayloadDoesNotWedgeTheQueue(t *testing.T) {
	r := newConsumerRig(t)
	doc := r.seedUploadedDocument(t, []string{"alpha page"})

	// The broken message must be acked and dropped so the real one behind
	// it still processes.
	r.publish(t, []byte("{not json"))
	r.publishIngest(t, doc.Id)

	assert.Eventually(t, r.statusIs(doc.Id, entity.DocumentStatusReady), 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 1, r.embedder.CallCount())
}
