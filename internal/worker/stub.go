// Package worker hosts the development stand-in for the external processing
// service. Production deployments run the real worker out of process; the
// stub exists so the full pipeline can be exercised locally without it.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/queue"
	"github.com/itskum47/KMRL-DocAI/internal/service"
)

// Stub drains the job queue and applies a deterministic canned result for
// each job, exercising the same ingestion path the webhook uses.
type Stub struct {
	jobs    queue.Queue
	source  queue.Dequeuer
	results *service.ResultsService
	logger  *log.Logger
}

func NewStub(jobs queue.Queue, source queue.Dequeuer, results *service.ResultsService, logger *log.Logger) *Stub {
	return &Stub{
		jobs:    jobs,
		source:  source,
		results: results,
		logger:  logger,
	}
}

// Start blocks until ctx is cancelled, retrying after transient dequeue
// errors with a short backoff.
func (s *Stub) Start(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		message, ok, err := s.source.Dequeue(ctx, 5*time.Second)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if s.logger != nil {
				s.logger.Printf("stub worker dequeue error: %v", err)
			}
			timer := time.NewTimer(2 * time.Second)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			continue
		}
		if !ok {
			continue
		}

		if err := s.process(ctx, message); err != nil && s.logger != nil {
			s.logger.Printf("stub worker process error job_id=%s err=%v", message.JobID, err)
		}
	}
}

func (s *Stub) process(ctx context.Context, message domain.QueueMessage) error {
	if err := s.jobs.SetStatus(ctx, message.JobID, domain.JobStatusProcessing); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	result := cannedResult(message.Payload)
	callback := domain.CompletionCallback{
		JobID:      message.JobID,
		DocumentID: message.Payload.DocumentID,
		Status:     domain.JobStatusCompleted,
		Result:     result,
	}
	if err := s.results.Apply(ctx, callback); err != nil {
		return fmt.Errorf("apply result: %w", err)
	}

	if encoded, err := json.Marshal(callback); err == nil {
		if err := s.jobs.SetResult(ctx, message.JobID, encoded); err != nil {
			return fmt.Errorf("store result: %w", err)
		}
	}
	if err := s.jobs.SetStatus(ctx, message.JobID, domain.JobStatusCompleted); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}

	if s.logger != nil {
		s.logger.Printf("stub worker processed job_id=%s document_id=%s", message.JobID, message.Payload.DocumentID)
	}
	return nil
}

func cannedResult(payload domain.JobPayload) *domain.ProcessingResult {
	return &domain.ProcessingResult{
		OCRText:     fmt.Sprintf("Extracted text for %s.", payload.FileName),
		SummaryText: "Document processed by the development stub worker.",
		SummaryBilingual: map[string]string{
			"en": "Document processed by the development stub worker.",
			"ml": "വികസന സ്റ്റബ് വർക്കർ പ്രമാണം പ്രോസസ്സ് ചെയ്തു.",
		},
		Metadata: map[string]any{
			"pages":  1,
			"source": "stub",
		},
		DepartmentSuggested: "operations",
		Tasks: []domain.ResultTaskItem{
			{
				Title:              fmt.Sprintf("Review %s", payload.FileName),
				Description:        "Auto-generated review task from the development stub.",
				AssignedDepartment: "operations",
			},
		},
		ProcessingMetadata: map[string]any{
			"worker": "stub",
		},
	}
}
