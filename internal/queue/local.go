package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

type expiringValue struct {
	value     string
	expiresAt time.Time
}

// MemoryQueue is a fallback queue used when Redis is not configured. It
// mirrors the backend contract including status/result expiry.
type MemoryQueue struct {
	ch        chan domain.QueueMessage
	statusTTL time.Duration

	mu       sync.Mutex
	statuses map[string]expiringValue
	results  map[string]expiringValue
}

func NewMemoryQueue(bufferSize int, statusTTL time.Duration) *MemoryQueue {
	if bufferSize <= 0 {
		bufferSize = 512
	}
	if statusTTL <= 0 {
		statusTTL = time.Hour
	}
	return &MemoryQueue{
		ch:        make(chan domain.QueueMessage, bufferSize),
		statusTTL: statusTTL,
		statuses:  make(map[string]expiringValue),
		results:   make(map[string]expiringValue),
	}
}

// Enqueue writes the queued status record before the hand-off, matching the
// Redis pipeline's ordering: a consumer that picks the message up immediately
// can never have its own status transition overwritten back to queued.
func (q *MemoryQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := q.SetStatus(ctx, message.JobID, domain.JobStatusQueued); err != nil {
		return err
	}
	select {
	case q.ch <- message:
		return nil
	default:
		q.drop(q.statuses, message.JobID)
		return fmt.Errorf("enqueue: %w: buffer full", domain.ErrQueueUnavailable)
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, block time.Duration) (domain.QueueMessage, bool, error) {
	timer := time.NewTimer(block)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return domain.QueueMessage{}, false, ctx.Err()
	case <-timer.C:
		return domain.QueueMessage{}, false, nil
	case message := <-q.ch:
		return message, true, nil
	}
}

func (q *MemoryQueue) Status(_ context.Context, jobID string) (domain.JobStatus, bool, error) {
	value, ok := q.get(q.statuses, jobID)
	if !ok {
		return "", false, nil
	}
	return domain.JobStatus(value), true, nil
}

func (q *MemoryQueue) SetStatus(_ context.Context, jobID string, status domain.JobStatus) error {
	q.put(q.statuses, jobID, string(status))
	return nil
}

func (q *MemoryQueue) Result(_ context.Context, jobID string) (json.RawMessage, bool, error) {
	value, ok := q.get(q.results, jobID)
	if !ok {
		return nil, false, nil
	}
	return json.RawMessage(value), true, nil
}

func (q *MemoryQueue) SetResult(_ context.Context, jobID string, result json.RawMessage) error {
	q.put(q.results, jobID, string(result))
	return nil
}

// Depth reports how many messages are waiting; used by tests and health
// logging.
func (q *MemoryQueue) Depth() int {
	return len(q.ch)
}

func (q *MemoryQueue) put(store map[string]expiringValue, key, value string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	store[key] = expiringValue{value: value, expiresAt: time.Now().Add(q.statusTTL)}
}

func (q *MemoryQueue) drop(store map[string]expiringValue, key string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(store, key)
}

func (q *MemoryQueue) get(store map[string]expiringValue, key string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	entry, ok := store[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(store, key)
		return "", false
	}
	return entry.value, true
}
