package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/itskum47/KMRL-DocAI/internal/audit"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
)

// ResultsService ingests completion callbacks from the processing worker.
// Delivery is at-least-once, so every write here must tolerate replays.
type ResultsService struct {
	documents repository.DocumentsRepository
	tasks     repository.TasksRepository
	recorder  *audit.Recorder
	logger    *log.Logger
}

func NewResultsService(
	documents repository.DocumentsRepository,
	tasks repository.TasksRepository,
	recorder *audit.Recorder,
	logger *log.Logger,
) *ResultsService {
	return &ResultsService{
		documents: documents,
		tasks:     tasks,
		recorder:  recorder,
		logger:    logger,
	}
}

// Apply persists one callback. Completed results overwrite the document's
// extraction fields wholesale and spawn tasks; failures record the error
// detail and leave previously extracted fields untouched.
func (s *ResultsService) Apply(ctx context.Context, callback domain.CompletionCallback) error {
	if err := callback.Validate(); err != nil {
		return err
	}

	switch callback.Status {
	case domain.JobStatusCompleted:
		return s.applyCompleted(ctx, callback)
	case domain.JobStatusFailed:
		return s.applyFailed(ctx, callback)
	default:
		// Validate already rejects anything else.
		return fmt.Errorf("callback status %q: %w", callback.Status, domain.ErrMalformedCallback)
	}
}

func (s *ResultsService) applyCompleted(ctx context.Context, callback domain.CompletionCallback) error {
	if err := s.documents.ApplyResult(ctx, callback.DocumentID, *callback.Result); err != nil {
		return fmt.Errorf("apply result: %w", err)
	}

	items := callback.Result.TasksOrNil()
	created := 0
	if len(items) > 0 {
		tasks := buildTasks(callback.DocumentID, callback.JobID, items)
		n, err := s.tasks.CreateBatch(ctx, tasks)
		if err != nil {
			return fmt.Errorf("create tasks: %w", err)
		}
		created = n
		if created < len(items) && s.logger != nil {
			s.logger.Printf(
				"skipped %d duplicate tasks document_id=%s job_id=%s",
				len(items)-created, callback.DocumentID, callback.JobID,
			)
		}
	}

	s.recorder.Record(ctx, nil, domain.AuditDocumentProcessed, map[string]any{
		"document_id":   callback.DocumentID,
		"job_id":        callback.JobID,
		"tasks_created": created,
	})
	return nil
}

func (s *ResultsService) applyFailed(ctx context.Context, callback domain.CompletionCallback) error {
	if err := s.documents.MarkFailed(ctx, callback.DocumentID, callback.Error); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}

	s.recorder.Record(ctx, nil, domain.AuditDocumentProcessingFailed, map[string]any{
		"document_id": callback.DocumentID,
		"job_id":      callback.JobID,
		"error":       callback.Error,
	})
	return nil
}

// buildTasks materializes task rows from result items. The dedup key is
// stable across redeliveries of the same callback, so replays collapse to
// no-ops at the repository layer.
func buildTasks(documentID, jobID string, items []domain.ResultTaskItem) []*domain.Task {
	now := time.Now().UTC()
	tasks := make([]*domain.Task, 0, len(items))
	for i, item := range items {
		tasks = append(tasks, &domain.Task{
			ID:                 uuid.NewString(),
			DocumentID:         documentID,
			Title:              item.Title,
			Description:        item.Description,
			AssignedTo:         item.AssignedTo,
			AssignedDepartment: item.AssignedDepartment,
			DueDate:            item.DueDate,
			Status:             domain.TaskStatusPending,
			DedupKey:           fmt.Sprintf("%s:%s:%d", documentID, jobID, i),
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}
	return tasks
}
