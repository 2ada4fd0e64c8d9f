package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/embedding"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"
	"ai-docchat-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

// nomic-embed-text tops out around 8k tokens; stay well inside it. Pages
// longer than the window become several chunks sharing one page number.
const (
	embedWindowChars  = 6000
	embedOverlapChars = 200
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService turns uploaded pages into retrievable chunks: embed every
// page, then swap the document's chunk set in one transaction. Replays are
// safe because the swap is delete-then-insert keyed by document id.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishIngestDocumentMessage
	err := json.Unmarshal(msg.Payload, &payload)
	if err != nil {
		log.Printf("[ERROR] Failed to unmarshal ingestion message: %v", err)
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	log.Printf("[INFO] Processing document ingestion for DocumentId: %s", payload.DocumentId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx, specification.ByID{ID: payload.DocumentId})
	if err != nil {
		log.Printf("[ERROR] Failed to get document %s: %v", payload.DocumentId, err)
		msg.Nack() // Nack for retriable errors
		return
	}
	if document == nil {
		log.Printf("[ERROR] Document not found: %s", payload.DocumentId)
		msg.Ack() // Document deleted? Ack.
		return
	}

	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusProcessing); err != nil {
		log.Printf("[ERROR] Failed to mark document %s processing: %v", document.Id, err)
		msg.Nack()
		return
	}

	pages, err := uow.DocumentChunkRepository().GetPages(ctx, document.Id)
	if err != nil {
		log.Printf("[ERROR] Failed to load pages for document %s: %v", document.Id, err)
		msg.Nack()
		return
	}
	if len(pages) == 0 {
		log.Printf("[ERROR] Document %s has no pages, marking failed", document.Id)
		cs.finishFailed(ctx, uow, document)
		msg.Ack()
		return
	}

	log.Printf("[INFO] Generating embeddings for document %s (%d pages)", document.Id, len(pages))

	newChunks := make([]*entity.DocumentChunk, 0, len(pages))
	for _, page := range pages {
		parts := utils.SplitText(page.Content, embedWindowChars, embedOverlapChars)
		if len(parts) > 1 {
			log.Printf("[INFO] Page %d of document %s exceeds the embed window, splitting into %d chunks", page.PageNumber, document.Id, len(parts))
		}
		for _, part := range parts {
			res, err := cs.embeddingProvider.Generate(part, "RETRIEVAL_DOCUMENT")
			if err != nil {
				// Embedding failure is terminal for this upload; the client can
				// re-upload once the provider recovers.
				log.Printf("[ERROR] Failed to embed page %d of document %s: %v", page.PageNumber, document.Id, err)
				cs.finishFailed(ctx, uow, document)
				msg.Ack()
				return
			}

			newChunks = append(newChunks, &entity.DocumentChunk{
				Id:             uuid.New(),
				DocumentId:     document.Id,
				PartitionId:    page.PartitionId,
				FileName:       page.FileName,
				PageNumber:     page.PageNumber,
				Content:        part,
				Language:       page.Language,
				EmbeddingValue: res.Embedding.Values,
				CreatedAt:      time.Now(),
			})
		}
	}

	if err := uow.Begin(ctx); err != nil {
		log.Printf("[ERROR] Failed to begin transaction: %v", err)
		msg.Nack()
		return
	}
	defer uow.Rollback()

	log.Printf("[INFO] Replacing chunks for document %s", document.Id)
	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, document.Id); err != nil {
		log.Printf("[ERROR] Failed to delete old chunks: %v", err)
		msg.Nack()
		return
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, newChunks); err != nil {
		log.Printf("[ERROR] Failed to create embedded chunks: %v", err)
		msg.Nack()
		return
	}
	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusReady); err != nil {
		log.Printf("[ERROR] Failed to mark document %s ready: %v", document.Id, err)
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		log.Printf("[ERROR] Failed to commit transaction: %v", err)
		msg.Nack()
		return
	}

	cs.publishStatusEvent(ctx, "DOCUMENT_READY", document)

	log.Printf("[SUCCESS] Document processed: %d chunks from %d pages for DocumentId: %s", len(newChunks), len(pages), document.Id)
	msg.Ack()
}

func (cs *consumerService) finishFailed(ctx context.Context, uow unitofwork.UnitOfWork, document *entity.Document) {
	if err := uow.DocumentRepository().UpdateStatus(ctx, document.Id, entity.DocumentStatusFailed); err != nil {
		log.Printf("[ERROR] Failed to mark document %s failed: %v", document.Id, err)
	}
	cs.publishStatusEvent(ctx, "DOCUMENT_FAILED", document)
}

func (cs *consumerService) publishStatusEvent(ctx context.Context, eventType string, document *entity.Document) {
	if cs.eventPublisher == nil {
		return
	}
	evt := events.BaseEvent{
		Type: eventType,
		Data: map[string]interface{}{
			"document_id": document.Id,
			"file_name":   document.FileName,
			"user_id":     document.UserId,
			"session_id":  document.ChatSessionId,
		},
		OccurredAt: time.Now(),
	}
	if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
		log.Printf("[WARN] Failed to publish %s event: %v", eventType, err)
	}
}
