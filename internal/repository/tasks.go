package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
)

// TasksRepository abstracts task persistence. CreateBatch skips items whose
// dedup key already exists so a redelivered worker result cannot duplicate
// follow-up tasks; it returns the number of tasks actually created.
type TasksRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	CreateBatch(ctx context.Context, tasks []*domain.Task) (int, error)
	Get(ctx context.Context, id string) (*domain.Task, error)
	Update(ctx context.Context, task *domain.Task) error
	List(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, int, error)
	Stats(ctx context.Context, visibleTo *domain.User) (domain.TaskStats, error)
}

// MemoryTasksRepository stores tasks in memory for local development.
type MemoryTasksRepository struct {
	mu        sync.RWMutex
	tasks     map[string]*domain.Task
	dedupKeys map[string]struct{}
}

func NewMemoryTasksRepository() *MemoryTasksRepository {
	return &MemoryTasksRepository{
		tasks:     make(map[string]*domain.Task),
		dedupKeys: make(map[string]struct{}),
	}
}

func (r *MemoryTasksRepository) Create(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.insertLocked(task)
	return nil
}

func (r *MemoryTasksRepository) CreateBatch(_ context.Context, tasks []*domain.Task) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	created := 0
	for _, task := range tasks {
		if task.DedupKey != "" {
			if _, exists := r.dedupKeys[task.DedupKey]; exists {
				continue
			}
		}
		r.insertLocked(task)
		created++
	}
	return created, nil
}

func (r *MemoryTasksRepository) insertLocked(task *domain.Task) {
	r.tasks[task.ID] = cloneTask(task)
	if task.DedupKey != "" {
		r.dedupKeys[task.DedupKey] = struct{}{}
	}
}

func (r *MemoryTasksRepository) Get(_ context.Context, id string) (*domain.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneTask(task), nil
}

func (r *MemoryTasksRepository) Update(_ context.Context, task *domain.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[task.ID]; !ok {
		return domain.ErrNotFound
	}
	r.tasks[task.ID] = cloneTask(task)
	return nil
}

func (r *MemoryTasksRepository) List(
	_ context.Context,
	filter domain.TaskFilter,
) ([]domain.Task, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	items := make([]domain.Task, 0)
	for _, task := range r.tasks {
		if !taskVisible(task, filter.VisibleTo) {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		if filter.Department != "" && task.AssignedDepartment != filter.Department {
			continue
		}
		if filter.AssignedTo != "" && task.AssignedTo != filter.AssignedTo {
			continue
		}
		if filter.DocumentID != "" && task.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Search != "" && !taskMatches(task, filter.Search) {
			continue
		}
		items = append(items, *cloneTask(task))
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})

	total := len(items)
	start := (filter.Page - 1) * filter.PageSize
	if start >= total {
		return []domain.Task{}, total, nil
	}
	end := start + filter.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total, nil
}

func (r *MemoryTasksRepository) Stats(_ context.Context, visibleTo *domain.User) (domain.TaskStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := domain.TaskStats{}
	for _, task := range r.tasks {
		if !taskVisible(task, visibleTo) {
			continue
		}
		stats.Total++
		switch task.Status {
		case domain.TaskStatusPending:
			stats.Pending++
		case domain.TaskStatusAcknowledged:
			stats.Acknowledged++
		case domain.TaskStatusClosed:
			stats.Closed++
		}
	}
	return stats, nil
}

func taskVisible(task *domain.Task, user *domain.User) bool {
	if user == nil {
		return true
	}
	return task.AssignedTo == user.ID ||
		(task.AssignedDepartment != "" && task.AssignedDepartment == user.Department)
}

func taskMatches(task *domain.Task, search string) bool {
	needle := strings.ToLower(search)
	return strings.Contains(strings.ToLower(task.Title), needle) ||
		strings.Contains(strings.ToLower(task.Description), needle)
}

func cloneTask(task *domain.Task) *domain.Task {
	if task == nil {
		return nil
	}
	clone := *task
	clone.DueDate = cloneTime(task.DueDate)
	clone.AcknowledgedAt = cloneTime(task.AcknowledgedAt)
	return &clone
}

func cloneTime(value *time.Time) *time.Time {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
