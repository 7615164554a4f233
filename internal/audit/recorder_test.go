package audit

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
)

type failingAuditRepo struct{}

func (failingAuditRepo) Append(context.Context, *domain.AuditEntry) error {
	return errors.New("connection reset")
}

func TestRecordAppendsEntry(t *testing.T) {
	repo := repository.NewMemoryAuditRepository()
	recorder := NewRecorder(repo, log.New(&bytes.Buffer{}, "", 0))

	recorder.Record(context.Background(), Actor("user-1"), domain.AuditTaskClosed, map[string]any{
		"task_id": "task-1",
	})

	entries := repo.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	entry := entries[0]
	if entry.ActionType != domain.AuditTaskClosed {
		t.Fatalf("action = %s, want %s", entry.ActionType, domain.AuditTaskClosed)
	}
	if entry.ActorID == nil || *entry.ActorID != "user-1" {
		t.Fatalf("actor = %v, want user-1", entry.ActorID)
	}
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		t.Fatal("expected id and timestamp to be set")
	}
}

func TestRecordFailureIsSwallowedAndLogged(t *testing.T) {
	var output bytes.Buffer
	recorder := NewRecorder(failingAuditRepo{}, log.New(&output, "", 0))

	recorder.Record(context.Background(), nil, domain.AuditDocumentProcessed, nil)

	if !bytes.Contains(output.Bytes(), []byte("audit write failed")) {
		t.Fatalf("log output = %q, want audit failure line", output.String())
	}
}
