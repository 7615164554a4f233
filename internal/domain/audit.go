package domain

import "time"

// Audit action types written by the pipeline.
const (
	AuditDocumentReprocessed      = "document_reprocessed"
	AuditDocumentProcessed        = "document_processed"
	AuditDocumentProcessingFailed = "document_processing_failed"
	AuditTaskCreated              = "task_created"
	AuditTaskAcknowledged         = "task_acknowledged"
	AuditTaskClosed               = "task_closed"
)

// AuditEntry is append-only. ActorID is nil for worker-originated actions.
type AuditEntry struct {
	ID         string
	ActorID    *string
	ActionType string
	Payload    map[string]any
	CreatedAt  time.Time
}
