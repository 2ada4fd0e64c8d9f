package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"ai-docchat-be/internal/dto"
	"ai-docchat-be/internal/entity"
	"ai-docchat-be/internal/repository/specification"
	"ai-docchat-be/internal/repository/unitofwork"
	"ai-docchat-be/pkg/events"
	pktNats "ai-docchat-be/pkg/nats"
	"ai-docchat-be/pkg/rag/partition"

	"github.com/google/uuid"
)

type IDocumentService interface {
	Upload(ctx context.Context, userId uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error)
	GetAllBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetDocumentsResponse, error)
	Delete(ctx context.Context, userId uuid.UUID, request *dto.DeleteDocumentRequest) error
}

// documentService accepts page-wise uploads, persists them unembedded and
// hands the embedding work to the ingestion queue. Retrieval only ever sees
// a chunk once the consumer has written its vector.
type documentService struct {
	uowFactory       unitofwork.RepositoryFactory
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IDocumentService {
	return &documentService{
		uowFactory:       uowFactory,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
	}
}

func (ds *documentService) Upload(ctx context.Context, userId uuid.UUID, request *dto.UploadDocumentRequest) (*dto.UploadDocumentResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: request.ChatSessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("session not found or access denied")
	}

	language := request.Language
	if language == "" {
		language = sess.Language
	}
	if language == "" {
		language = "en"
	}

	// The partition must exist before chunks reference it. CreateOrGet is
	// idempotent, so racing with a first query is harmless.
	part, err := uow.PartitionRepository().CreateOrGet(ctx, &entity.Partition{
		Id:            uuid.New(),
		UserId:        userId,
		ChatSessionId: request.ChatSessionId,
		Key:           partition.DeriveKey(userId, request.ChatSessionId),
		CreatedAt:     time.Now(),
	})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	document := entity.Document{
		Id:            uuid.New(),
		UserId:        userId,
		ChatSessionId: request.ChatSessionId,
		FileName:      request.FileName,
		PageCount:     len(request.Pages),
		Language:      language,
		Status:        entity.DocumentStatusUploaded,
		CreatedAt:     now,
	}

	chunks := make([]*entity.DocumentChunk, 0, len(request.Pages))
	for _, page := range request.Pages {
		chunks = append(chunks, &entity.DocumentChunk{
			Id:          uuid.New(),
			DocumentId:  document.Id,
			PartitionId: part.Id,
			FileName:    document.FileName,
			PageNumber:  page.PageNumber,
			Content:     page.Content,
			Language:    language,
			CreatedAt:   now,
		})
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	if err := uow.DocumentRepository().Create(ctx, &document); err != nil {
		return nil, err
	}
	if err := uow.DocumentChunkRepository().CreateBulk(ctx, chunks); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	msgPayload := dto.PublishIngestDocumentMessage{
		DocumentId: document.Id,
	}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := ds.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	if ds.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "DOCUMENT_UPLOADED",
			Data: map[string]interface{}{
				"document_id": document.Id,
				"file_name":   document.FileName,
				"user_id":     userId,
				"session_id":  request.ChatSessionId,
			},
			OccurredAt: time.Now(),
		}
		if err := ds.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_UPLOADED event: %v", err)
		}
	}

	return &dto.UploadDocumentResponse{
		Id:        document.Id,
		FileName:  document.FileName,
		PageCount: document.PageCount,
		Status:    string(document.Status),
	}, nil
}

func (ds *documentService) GetAllBySession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetDocumentsResponse, error) {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

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

	documents, err := uow.DocumentRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetDocumentsResponse, 0, len(documents))
	for _, d := range documents {
		resp = append(resp, &dto.GetDocumentsResponse{
			Id:        d.Id,
			FileName:  d.FileName,
			PageCount: d.PageCount,
			Language:  d.Language,
			Status:    string(d.Status),
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		})
	}

	return resp, nil
}

func (ds *documentService) Delete(ctx context.Context, userId uuid.UUID, request *dto.DeleteDocumentRequest) error {
	uow := ds.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindOne(ctx,
		specification.ByID{ID: request.DocumentId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if document == nil {
		return fmt.Errorf("document not found or access denied")
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.DocumentChunkRepository().DeleteByDocumentId(ctx, request.DocumentId); err != nil {
		return err
	}
	if err := uow.DocumentRepository().Delete(ctx, request.DocumentId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if ds.eventPublisher != nil {
		evt := events.BaseEvent{
			Type: "DOCUMENT_DELETED",
			Data: map[string]interface{}{
				"document_id": document.Id,
				"file_name":   document.FileName,
				"user_id":     userId,
				"session_id":  document.ChatSessionId,
			},
			OccurredAt: time.Now(),
		}
		if err := ds.eventPublisher.Publish(ctx, evt); err != nil {
			log.Printf("[WARN] Failed to publish DOCUMENT_DELETED event: %v", err)
		}
	}

	return nil
}
