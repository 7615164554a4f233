package domain

import (
	"fmt"
	"strings"
	"time"
)

// ResultTaskItem is one follow-up item reported by the worker.
type ResultTaskItem struct {
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	AssignedTo         string     `json:"assigned_to,omitempty"`
	AssignedDepartment string     `json:"assigned_department,omitempty"`
}

// ProcessingResult is the structured payload of a completed job.
type ProcessingResult struct {
	OCRText             string            `json:"ocr_text"`
	SummaryText         string            `json:"summary_text"`
	SummaryBilingual    map[string]string `json:"summary_bilingual,omitempty"`
	Metadata            map[string]any    `json:"metadata,omitempty"`
	DepartmentSuggested string            `json:"department_suggested,omitempty"`
	Tasks               []ResultTaskItem  `json:"tasks,omitempty"`
	ProcessingMetadata  map[string]any    `json:"processing_metadata,omitempty"`
}

// CompletionCallback is the worker-facing completion report. JobID is
// optional: the queue backend has no request/response correlation guarantee,
// so the document id is the authoritative key.
type CompletionCallback struct {
	JobID      string            `json:"job_id,omitempty"`
	DocumentID string            `json:"document_id"`
	Status     JobStatus         `json:"status"`
	Result     *ProcessingResult `json:"result,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Validate rejects callbacks the pipeline cannot act on. Unknown status
// values are malformed rather than silently passed through.
func (c CompletionCallback) Validate() error {
	if strings.TrimSpace(c.DocumentID) == "" {
		return fmt.Errorf("%w: document_id is required", ErrMalformedCallback)
	}
	switch c.Status {
	case JobStatusCompleted:
		if c.Result == nil {
			return fmt.Errorf("%w: completed callback requires a result", ErrMalformedCallback)
		}
	case JobStatusFailed:
	default:
		return fmt.Errorf("%w: unsupported status %q", ErrMalformedCallback, c.Status)
	}
	for index, item := range c.Result.TasksOrNil() {
		if strings.TrimSpace(item.Title) == "" {
			return fmt.Errorf("%w: task item %d is missing a title", ErrMalformedCallback, index)
		}
	}
	return nil
}

// TasksOrNil tolerates a nil receiver so failed callbacks validate cleanly.
func (r *ProcessingResult) TasksOrNil() []ResultTaskItem {
	if r == nil {
		return nil
	}
	return r.Tasks
}
