package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	statusKeyPrefix = "job_status:"
	resultKeyPrefix = "job_result:"
)

type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	QueueKey  string
	StatusTTL time.Duration
}

// RedisQueue backs the job queue with a Redis list (FIFO via LPUSH/BRPOP)
// and SETEX status/result keys with a bounded TTL.
type RedisQueue struct {
	client    *redis.Client
	queueKey  string
	statusTTL time.Duration
}

func NewRedisQueue(ctx context.Context, cfg RedisConfig) (*RedisQueue, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	if cfg.QueueKey == "" {
		cfg.QueueKey = "document_processing_jobs"
	}
	if cfg.StatusTTL <= 0 {
		cfg.StatusTTL = time.Hour
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisQueue{
		client:    client,
		queueKey:  cfg.QueueKey,
		statusTTL: cfg.StatusTTL,
	}, nil
}

func (q *RedisQueue) Close() error {
	return q.client.Close()
}

// Enqueue pushes the message and writes the initial queued status record in
// one pipeline round trip.
func (q *RedisQueue) Enqueue(ctx context.Context, message domain.QueueMessage) error {
	encoded, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode queue message: %w", err)
	}

	pipeline := q.client.Pipeline()
	pipeline.LPush(ctx, q.queueKey, encoded)
	pipeline.SetEx(ctx, statusKeyPrefix+message.JobID, string(domain.JobStatusQueued), q.statusTTL)
	if _, err := pipeline.Exec(ctx); err != nil {
		return unavailable("enqueue", err)
	}
	return nil
}

func (q *RedisQueue) Dequeue(ctx context.Context, block time.Duration) (domain.QueueMessage, bool, error) {
	values, err := q.client.BRPop(ctx, block, q.queueKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.QueueMessage{}, false, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.QueueMessage{}, false, err
		}
		return domain.QueueMessage{}, false, unavailable("dequeue", err)
	}
	if len(values) != 2 {
		return domain.QueueMessage{}, false, nil
	}

	var message domain.QueueMessage
	if err := json.Unmarshal([]byte(values[1]), &message); err != nil {
		return domain.QueueMessage{}, false, fmt.Errorf("decode queue message: %w", err)
	}
	return message, true, nil
}

func (q *RedisQueue) Status(ctx context.Context, jobID string) (domain.JobStatus, bool, error) {
	value, err := q.client.Get(ctx, statusKeyPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, unavailable("get status", err)
	}
	return domain.JobStatus(value), true, nil
}

func (q *RedisQueue) SetStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	if err := q.client.SetEx(ctx, statusKeyPrefix+jobID, string(status), q.statusTTL).Err(); err != nil {
		return unavailable("set status", err)
	}
	return nil
}

func (q *RedisQueue) Result(ctx context.Context, jobID string) (json.RawMessage, bool, error) {
	value, err := q.client.Get(ctx, resultKeyPrefix+jobID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, unavailable("get result", err)
	}
	return json.RawMessage(value), true, nil
}

func (q *RedisQueue) SetResult(ctx context.Context, jobID string, result json.RawMessage) error {
	if err := q.client.SetEx(ctx, resultKeyPrefix+jobID, string(result), q.statusTTL).Err(); err != nil {
		return unavailable("set result", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, domain.ErrQueueUnavailable, err)
}
