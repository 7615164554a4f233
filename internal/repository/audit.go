package repository

import (
	"context"
	"sync"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// AuditRepository is append-only; entries are never updated or deleted.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
}

// MemoryAuditRepository collects audit entries in memory for local
// development and tests.
type MemoryAuditRepository struct {
	mu      sync.RWMutex
	entries []domain.AuditEntry
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{entries: make([]domain.AuditEntry, 0)}
}

func (r *MemoryAuditRepository) Append(_ context.Context, entry *domain.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *entry)
	return nil
}

// Entries returns a snapshot, newest last.
func (r *MemoryAuditRepository) Entries() []domain.AuditEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]domain.AuditEntry, len(r.entries))
	copy(snapshot, r.entries)
	return snapshot
}
