package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// Queue is the producer-facing contract: a durable FIFO hand-off plus a
// bounded-retention status/result store keyed by job id. Absence of a status
// or result means "unknown", never failure; records expire after the backend
// retention window.
type Queue interface {
	Enqueue(ctx context.Context, message domain.QueueMessage) error
	Status(ctx context.Context, jobID string) (domain.JobStatus, bool, error)
	SetStatus(ctx context.Context, jobID string, status domain.JobStatus) error
	Result(ctx context.Context, jobID string) (json.RawMessage, bool, error)
	SetResult(ctx context.Context, jobID string, result json.RawMessage) error
}

// Dequeuer is the worker-facing side. Production workers live out of
// process and pop directly from the backend; this contract exists for the
// local stub worker and tests.
type Dequeuer interface {
	Dequeue(ctx context.Context, block time.Duration) (domain.QueueMessage, bool, error)
}
