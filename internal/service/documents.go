package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/itskum47/KMRL-DocAI/internal/audit"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/queue"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
	"github.com/itskum47/KMRL-DocAI/internal/storage"
)

// DocumentsService owns the document state machine and is the only component
// that enqueues processing jobs.
type DocumentsService struct {
	documents repository.DocumentsRepository
	jobs      queue.Queue
	gateway   storage.Gateway
	recorder  *audit.Recorder
	logger    *log.Logger
	signTTL   time.Duration
}

type DocumentsDependencies struct {
	Documents repository.DocumentsRepository
	Jobs      queue.Queue
	Gateway   storage.Gateway
	Recorder  *audit.Recorder
	Logger    *log.Logger
	SignTTL   time.Duration
}

func NewDocumentsService(deps DocumentsDependencies) *DocumentsService {
	if deps.SignTTL <= 0 {
		deps.SignTTL = time.Hour
	}
	return &DocumentsService{
		documents: deps.Documents,
		jobs:      deps.Jobs,
		gateway:   deps.Gateway,
		recorder:  deps.Recorder,
		logger:    deps.Logger,
		signTTL:   deps.SignTTL,
	}
}

type PresignInput struct {
	FileName    string
	ContentType string
	DocType     domain.DocType
}

type PresignOutput struct {
	DocumentID string `json:"document_id"`
	UploadURL  string `json:"upload_url"`
	StorageKey string `json:"storage_key"`
}

// DocumentView is a document plus a freshly issued download URL. URLs are
// never cached: they expire, so each read re-signs.
type DocumentView struct {
	Document    domain.Document
	DownloadURL string
}

// Presign mints a document id, obtains a write-scoped upload URL and persists
// the document as uploaded. The URL is issued before the insert; if the
// insert fails the time-limited token is simply abandoned, never revoked.
func (s *DocumentsService) Presign(
	ctx context.Context,
	actor domain.User,
	input PresignInput,
) (PresignOutput, error) {
	documentID := uuid.NewString()
	now := time.Now().UTC()
	storageKey := fmt.Sprintf("documents/%d/%02d/%s-%s", now.Year(), int(now.Month()), documentID, input.FileName)

	uploadURL, err := s.gateway.IssueUploadURL(ctx, storageKey, input.ContentType, s.signTTL)
	if err != nil {
		return PresignOutput{}, fmt.Errorf("issue upload token: %w", err)
	}

	document := &domain.Document{
		ID:          documentID,
		UploaderID:  actor.ID,
		FileName:    input.FileName,
		StorageKey:  storageKey,
		ContentType: input.ContentType,
		DocType:     input.DocType,
		Status:      domain.DocumentStatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.documents.Create(ctx, document); err != nil {
		return PresignOutput{}, fmt.Errorf("create document: %w", err)
	}

	return PresignOutput{
		DocumentID: documentID,
		UploadURL:  uploadURL,
		StorageKey: storageKey,
	}, nil
}

// Finalize moves an uploaded document to processing and enqueues a job
// snapshot. The status write and the enqueue span two subsystems and are not
// atomic: if the enqueue fails the document stays in processing with no job
// outstanding, which is logged loudly and surfaced as a retryable error.
func (s *DocumentsService) Finalize(ctx context.Context, actor domain.User, documentID string) (string, error) {
	document, err := s.documents.GetForUploader(ctx, documentID, actor.ID)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}
	if document.Status != domain.DocumentStatusUploaded {
		return "", fmt.Errorf("finalize from status %s: %w", document.Status, domain.ErrInvalidState)
	}

	if err := s.documents.SetStatus(ctx, documentID, domain.DocumentStatusProcessing); err != nil {
		return "", fmt.Errorf("mark processing: %w", err)
	}
	return s.enqueueJob(ctx, document)
}

// Reprocess re-runs processing from any status. Admin only. A prior in-flight
// job is not cancelled; whichever result arrives last wins.
func (s *DocumentsService) Reprocess(ctx context.Context, actor domain.User, documentID string) (string, error) {
	if !actor.Elevated() {
		return "", fmt.Errorf("reprocess requires admin role: %w", domain.ErrForbidden)
	}

	document, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return "", fmt.Errorf("load document: %w", err)
	}

	if err := s.documents.SetStatus(ctx, documentID, domain.DocumentStatusProcessing); err != nil {
		return "", fmt.Errorf("mark processing: %w", err)
	}

	jobID, err := s.enqueueJob(ctx, document)
	if err != nil {
		return "", err
	}

	s.recorder.Record(ctx, audit.Actor(actor.ID), domain.AuditDocumentReprocessed, map[string]any{
		"document_id": documentID,
		"job_id":      jobID,
	})
	return jobID, nil
}

func (s *DocumentsService) Get(ctx context.Context, _ domain.User, documentID string) (*DocumentView, error) {
	document, err := s.documents.Get(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	downloadURL, err := s.gateway.IssueDownloadURL(ctx, document.StorageKey, s.signTTL)
	if err != nil {
		return nil, fmt.Errorf("issue download token: %w", err)
	}

	return &DocumentView{Document: *document, DownloadURL: downloadURL}, nil
}

func (s *DocumentsService) List(
	ctx context.Context,
	_ domain.User,
	filter domain.DocumentFilter,
) ([]domain.Document, int, error) {
	return s.documents.List(ctx, filter)
}

func (s *DocumentsService) enqueueJob(ctx context.Context, document *domain.Document) (string, error) {
	message := domain.QueueMessage{
		JobID: uuid.NewString(),
		Type:  domain.JobTypeDocumentProcessing,
		Payload: domain.JobPayload{
			DocumentID: document.ID,
			StorageKey: document.StorageKey,
			FileName:   document.FileName,
			DocType:    document.DocType,
			Language:   document.Language,
		},
		CreatedAt: time.Now().UTC(),
	}

	if err := s.jobs.Enqueue(ctx, message); err != nil {
		// The status transition already happened; this document now sits in
		// processing with no job outstanding until an operator reprocesses.
		if s.logger != nil {
			s.logger.Printf(
				"document stuck in processing: enqueue failed document_id=%s err=%v",
				document.ID, err,
			)
		}
		return "", fmt.Errorf("enqueue processing job: %w", err)
	}
	return message.JobID, nil
}
