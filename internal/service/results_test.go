package service

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/audit"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
)

type resultsFixture struct {
	service   *ResultsService
	documents *repository.MemoryDocumentsRepository
	tasks     *repository.MemoryTasksRepository
	audits    *repository.MemoryAuditRepository
}

func newResultsFixture(t *testing.T) *resultsFixture {
	t.Helper()
	documents := repository.NewMemoryDocumentsRepository()
	tasks := repository.NewMemoryTasksRepository()
	audits := repository.NewMemoryAuditRepository()
	logger := log.New(io.Discard, "", 0)

	return &resultsFixture{
		service:   NewResultsService(documents, tasks, audit.NewRecorder(audits, logger), logger),
		documents: documents,
		tasks:     tasks,
		audits:    audits,
	}
}

func (f *resultsFixture) seedProcessingDocument(t *testing.T, id string) {
	t.Helper()
	now := time.Now().UTC()
	err := f.documents.Create(context.Background(), &domain.Document{
		ID:         id,
		UploaderID: "user-1",
		FileName:   "tender.pdf",
		StorageKey: "documents/2026/08/" + id + "-tender.pdf",
		Status:     domain.DocumentStatusProcessing,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		t.Fatalf("seed document: %v", err)
	}
}

func completedCallback(documentID, jobID string) domain.CompletionCallback {
	return domain.CompletionCallback{
		JobID:      jobID,
		DocumentID: documentID,
		Status:     domain.JobStatusCompleted,
		Result: &domain.ProcessingResult{
			OCRText:     "full extracted text",
			SummaryText: "short summary",
			SummaryBilingual: map[string]string{
				"en": "short summary",
				"ml": "ചെറിയ സംഗ്രഹം",
			},
			Metadata:            map[string]any{"pages": 4},
			DepartmentSuggested: "engineering",
			Tasks: []domain.ResultTaskItem{
				{Title: "Inspect corridor lighting", AssignedDepartment: "engineering"},
				{Title: "File compliance report", AssignedTo: "user-7"},
			},
			ProcessingMetadata: map[string]any{"model": "docai-v2"},
		},
	}
}

func TestApplyCompletedPersistsResultAndTasks(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	if err := fixture.service.Apply(ctx, completedCallback("doc-1", "job-1")); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	document, err := fixture.documents.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if document.Status != domain.DocumentStatusProcessed {
		t.Fatalf("status = %s, want processed", document.Status)
	}
	if document.OCRText != "full extracted text" {
		t.Fatalf("ocr text = %q", document.OCRText)
	}
	if document.DepartmentSuggested != "engineering" {
		t.Fatalf("department suggested = %q", document.DepartmentSuggested)
	}

	tasks, total, err := fixture.tasks.List(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("tasks = %d, want 2", total)
	}
	for _, task := range tasks {
		if task.Status != domain.TaskStatusPending {
			t.Fatalf("task status = %s, want pending", task.Status)
		}
		if task.DocumentID != "doc-1" {
			t.Fatalf("task document = %s, want doc-1", task.DocumentID)
		}
		if task.DedupKey == "" {
			t.Fatal("expected a dedup key")
		}
	}

	entries := fixture.audits.Entries()
	if len(entries) != 1 || entries[0].ActionType != domain.AuditDocumentProcessed {
		t.Fatalf("audit entries = %+v, want one document_processed", entries)
	}
	if entries[0].ActorID != nil {
		t.Fatalf("audit actor = %v, want nil for system action", entries[0].ActorID)
	}
}

func TestApplyCompletedReplayCreatesNoDuplicateTasks(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	callback := completedCallback("doc-1", "job-1")
	if err := fixture.service.Apply(ctx, callback); err != nil {
		t.Fatalf("first Apply: %v", err)
	}
	if err := fixture.service.Apply(ctx, callback); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	_, total, err := fixture.tasks.List(ctx, domain.TaskFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if total != 2 {
		t.Fatalf("tasks after replay = %d, want 2", total)
	}

	document, err := fixture.documents.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if document.Status != domain.DocumentStatusProcessed {
		t.Fatalf("status = %s, want processed", document.Status)
	}
}

func TestApplyLaterCompletedResultWins(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	if err := fixture.service.Apply(ctx, completedCallback("doc-1", "job-1")); err != nil {
		t.Fatalf("first Apply: %v", err)
	}

	// A reprocess run reports different extraction for the same document.
	second := completedCallback("doc-1", "job-2")
	second.Result.OCRText = "re-extracted text"
	second.Result.SummaryText = "revised summary"
	second.Result.DepartmentSuggested = "finance"
	second.Result.Tasks = nil
	if err := fixture.service.Apply(ctx, second); err != nil {
		t.Fatalf("second Apply: %v", err)
	}

	document, err := fixture.documents.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if document.Status != domain.DocumentStatusProcessed {
		t.Fatalf("status = %s, want processed", document.Status)
	}
	if document.OCRText != "re-extracted text" {
		t.Fatalf("ocr text = %q, want the later delivery to win", document.OCRText)
	}
	if document.SummaryText != "revised summary" {
		t.Fatalf("summary = %q, want the later delivery to win", document.SummaryText)
	}
	if document.DepartmentSuggested != "finance" {
		t.Fatalf("department suggested = %q, want finance", document.DepartmentSuggested)
	}

	// Tasks from the first delivery stay; the second delivery carried none.
	if _, total, _ := fixture.tasks.List(ctx, domain.TaskFilter{}); total != 2 {
		t.Fatalf("tasks = %d, want the first delivery's 2", total)
	}
}

func TestApplyFailedRecordsErrorDetail(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	err := fixture.service.Apply(ctx, domain.CompletionCallback{
		JobID:      "job-1",
		DocumentID: "doc-1",
		Status:     domain.JobStatusFailed,
		Error:      "ocr engine timeout",
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}

	document, getErr := fixture.documents.Get(ctx, "doc-1")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if document.Status != domain.DocumentStatusFailed {
		t.Fatalf("status = %s, want failed", document.Status)
	}
	if document.ProcessingMetadata["error"] != "ocr engine timeout" {
		t.Fatalf("processing metadata = %v", document.ProcessingMetadata)
	}

	entries := fixture.audits.Entries()
	if len(entries) != 1 || entries[0].ActionType != domain.AuditDocumentProcessingFailed {
		t.Fatalf("audit entries = %+v, want one processing_failed", entries)
	}
}

func TestApplyFailedPreservesPreviousExtraction(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	if err := fixture.service.Apply(ctx, completedCallback("doc-1", "job-1")); err != nil {
		t.Fatalf("completed Apply: %v", err)
	}
	err := fixture.service.Apply(ctx, domain.CompletionCallback{
		JobID:      "job-2",
		DocumentID: "doc-1",
		Status:     domain.JobStatusFailed,
		Error:      "reprocess crashed",
	})
	if err != nil {
		t.Fatalf("failed Apply: %v", err)
	}

	document, getErr := fixture.documents.Get(ctx, "doc-1")
	if getErr != nil {
		t.Fatalf("Get: %v", getErr)
	}
	if document.Status != domain.DocumentStatusFailed {
		t.Fatalf("status = %s, want failed", document.Status)
	}
	if document.OCRText != "full extracted text" {
		t.Fatalf("ocr text = %q, want previous extraction preserved", document.OCRText)
	}
}

func TestApplyRejectsMalformedCallbacks(t *testing.T) {
	fixture := newResultsFixture(t)
	ctx := context.Background()
	fixture.seedProcessingDocument(t, "doc-1")

	cases := []struct {
		name     string
		callback domain.CompletionCallback
	}{
		{
			name:     "missing document id",
			callback: domain.CompletionCallback{Status: domain.JobStatusCompleted, Result: &domain.ProcessingResult{}},
		},
		{
			name:     "completed without result",
			callback: domain.CompletionCallback{DocumentID: "doc-1", Status: domain.JobStatusCompleted},
		},
		{
			name:     "unknown status",
			callback: domain.CompletionCallback{DocumentID: "doc-1", Status: "exploded"},
		},
		{
			name: "task item without title",
			callback: domain.CompletionCallback{
				DocumentID: "doc-1",
				Status:     domain.JobStatusCompleted,
				Result: &domain.ProcessingResult{
					Tasks: []domain.ResultTaskItem{{Description: "no title"}},
				},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := fixture.service.Apply(ctx, tc.callback)
			if !errors.Is(err, domain.ErrMalformedCallback) {
				t.Fatalf("err = %v, want ErrMalformedCallback", err)
			}
		})
	}

	if _, total, _ := fixture.tasks.List(ctx, domain.TaskFilter{}); total != 0 {
		t.Fatalf("tasks = %d, want 0 after rejected callbacks", total)
	}
}

func TestApplyUnknownDocumentFails(t *testing.T) {
	fixture := newResultsFixture(t)

	err := fixture.service.Apply(context.Background(), completedCallback("missing", "job-1"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
