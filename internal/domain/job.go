package domain

import "time"

type JobType string

const JobTypeDocumentProcessing JobType = "document_processing"

type JobStatus string

const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// JobPayload is a snapshot of the document fields a worker needs, copied at
// enqueue time. Later edits to the document do not leak into a queued job.
type JobPayload struct {
	DocumentID string  `json:"document_id"`
	StorageKey string  `json:"storage_key"`
	FileName   string  `json:"file_name"`
	DocType    DocType `json:"doc_type,omitempty"`
	Language   string  `json:"language,omitempty"`
}

// QueueMessage is the transport format pushed to queue backends.
type QueueMessage struct {
	JobID     string     `json:"job_id"`
	Type      JobType    `json:"type"`
	Payload   JobPayload `json:"payload"`
	CreatedAt time.Time  `json:"created_at"`
}
