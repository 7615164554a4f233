package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// DocumentsRepository abstracts document persistence. Result application and
// failure marking are full-overwrite operations keyed by document id so that
// re-applying the same callback is safe.
type DocumentsRepository interface {
	Create(ctx context.Context, document *domain.Document) error
	Get(ctx context.Context, id string) (*domain.Document, error)
	GetForUploader(ctx context.Context, id, uploaderID string) (*domain.Document, error)
	SetStatus(ctx context.Context, id string, status domain.DocumentStatus) error
	ApplyResult(ctx context.Context, id string, result domain.ProcessingResult) error
	MarkFailed(ctx context.Context, id, errorDetail string) error
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, int, error)
}

// MemoryDocumentsRepository stores documents in memory for local development.
type MemoryDocumentsRepository struct {
	mu        sync.RWMutex
	documents map[string]*domain.Document
}

func NewMemoryDocumentsRepository() *MemoryDocumentsRepository {
	return &MemoryDocumentsRepository{
		documents: make(map[string]*domain.Document),
	}
}

func (r *MemoryDocumentsRepository) Create(_ context.Context, document *domain.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.documents[document.ID] = cloneDocument(document)
	return nil
}

func (r *MemoryDocumentsRepository) Get(_ context.Context, id string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	document, ok := r.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(document), nil
}

func (r *MemoryDocumentsRepository) GetForUploader(_ context.Context, id, uploaderID string) (*domain.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	document, ok := r.documents[id]
	if !ok || document.UploaderID != uploaderID {
		return nil, domain.ErrNotFound
	}
	return cloneDocument(document), nil
}

func (r *MemoryDocumentsRepository) SetStatus(_ context.Context, id string, status domain.DocumentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	document, ok := r.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	document.Status = status
	document.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentsRepository) ApplyResult(_ context.Context, id string, result domain.ProcessingResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	document, ok := r.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	document.Status = domain.DocumentStatusProcessed
	document.OCRText = result.OCRText
	document.SummaryText = result.SummaryText
	document.SummaryBilingual = cloneStringMap(result.SummaryBilingual)
	document.Metadata = cloneAnyMap(result.Metadata)
	document.DepartmentSuggested = result.DepartmentSuggested
	document.ProcessingMetadata = cloneAnyMap(result.ProcessingMetadata)
	document.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentsRepository) MarkFailed(_ context.Context, id, errorDetail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	document, ok := r.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	document.Status = domain.DocumentStatusFailed
	document.ProcessingMetadata = map[string]any{"error": errorDetail}
	document.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *MemoryDocumentsRepository) List(
	_ context.Context,
	filter domain.DocumentFilter,
) ([]domain.Document, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]domain.Document, 0)
	for _, document := range r.documents {
		if filter.Status != "" && document.Status != filter.Status {
			continue
		}
		if filter.DocType != "" && document.DocType != filter.DocType {
			continue
		}
		if filter.Department != "" && document.DepartmentAssigned != filter.Department {
			continue
		}
		if filter.Search != "" && !documentMatches(document, filter.Search) {
			continue
		}
		items = append(items, *cloneDocument(document))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []domain.Document{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func documentMatches(document *domain.Document, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(document.FileName), needle) ||
		strings.Contains(strings.ToLower(document.OCRText), needle) ||
		strings.Contains(strings.ToLower(document.SummaryText), needle)
}

func cloneDocument(document *domain.Document) *domain.Document {
	if document == nil {
		return nil
	}
	clone := *document
	clone.SummaryBilingual = cloneStringMap(document.SummaryBilingual)
	clone.Metadata = cloneAnyMap(document.Metadata)
	clone.ProcessingMetadata = cloneAnyMap(document.ProcessingMetadata)
	return &clone
}

func cloneStringMap(source map[string]string) map[string]string {
	if source == nil {
		return nil
	}
	clone := make(map[string]string, len(source))
	for key, value := range source {
		clone[key] = value
	}
	return clone
}

func cloneAnyMap(source map[string]any) map[string]any {
	if source == nil {
		return nil
	}
	clone := make(map[string]any, len(source))
	for key, value := range source {
		clone[key] = value
	}
	return clone
}
