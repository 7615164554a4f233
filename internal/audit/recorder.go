// Package audit writes the append-only trail of state-changing actions.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
)

// Recorder appends audit entries fire-and-forget: a failed audit write is
// logged and swallowed, never surfaced as the triggering operation's error.
type Recorder struct {
	repo   repository.AuditRepository
	logger *log.Logger
}

func NewRecorder(repo repository.AuditRepository, logger *log.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one entry. actorID is nil for worker/system actions.
func (r *Recorder) Record(ctx context.Context, actorID *string, actionType string, payload map[string]any) {
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		ActorID:    actorID,
		ActionType: actionType,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		if r.logger != nil {
			r.logger.Printf("audit write failed action=%s err=%v", actionType, err)
		}
	}
}

// Actor adapts a user id for Record's nullable actor parameter.
func Actor(userID string) *string {
	return &userID
}
