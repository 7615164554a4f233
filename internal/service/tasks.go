package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/itskum47/KMRL-DocAI/internal/audit"
	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/itskum47/KMRL-DocAI/internal/repository"
)

// TasksService manages the action-item lifecycle: pending, acknowledged,
// closed. Visibility is role-scoped; admins and directors see everything,
// everyone else sees their own and their department's tasks.
type TasksService struct {
	tasks    repository.TasksRepository
	recorder *audit.Recorder
}

func NewTasksService(tasks repository.TasksRepository, recorder *audit.Recorder) *TasksService {
	return &TasksService{tasks: tasks, recorder: recorder}
}

type CreateTaskInput struct {
	Title              string
	Description        string
	DocumentID         string
	AssignedTo         string
	AssignedDepartment string
	DueDate            *time.Time
}

func (s *TasksService) Create(ctx context.Context, actor domain.User, input CreateTaskInput) (*domain.Task, error) {
	now := time.Now().UTC()
	task := &domain.Task{
		ID:                 uuid.NewString(),
		DocumentID:         input.DocumentID,
		Title:              input.Title,
		Description:        input.Description,
		AssignedTo:         input.AssignedTo,
		AssignedDepartment: input.AssignedDepartment,
		DueDate:            input.DueDate,
		Status:             domain.TaskStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.recorder.Record(ctx, audit.Actor(actor.ID), domain.AuditTaskCreated, map[string]any{
		"task_id":     task.ID,
		"document_id": task.DocumentID,
	})
	return task, nil
}

func (s *TasksService) Get(ctx context.Context, actor domain.User, taskID string) (*domain.Task, error) {
	return s.loadVisible(ctx, actor, taskID)
}

func (s *TasksService) List(
	ctx context.Context,
	actor domain.User,
	filter domain.TaskFilter,
) ([]domain.Task, int, error) {
	if !actor.SeesAllTasks() {
		scope := actor
		filter.VisibleTo = &scope
	}
	return s.tasks.List(ctx, filter)
}

func (s *TasksService) Stats(ctx context.Context, actor domain.User) (domain.TaskStats, error) {
	if actor.SeesAllTasks() {
		return s.tasks.Stats(ctx, nil)
	}
	scope := actor
	return s.tasks.Stats(ctx, &scope)
}

// Acknowledge moves a pending task to acknowledged and records who claimed
// it. Any other starting status is rejected so a second acknowledger learns
// the task is already taken.
func (s *TasksService) Acknowledge(ctx context.Context, actor domain.User, taskID string) (*domain.Task, error) {
	task, err := s.loadVisible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if task.Status != domain.TaskStatusPending {
		return nil, fmt.Errorf("acknowledge from status %s: %w", task.Status, domain.ErrInvalidState)
	}

	now := time.Now().UTC()
	task.Status = domain.TaskStatusAcknowledged
	task.AcknowledgedBy = actor.ID
	task.AcknowledgedAt = &now
	task.UpdatedAt = now
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recorder.Record(ctx, audit.Actor(actor.ID), domain.AuditTaskAcknowledged, map[string]any{
		"task_id":     task.ID,
		"document_id": task.DocumentID,
	})
	return task, nil
}

// Close is terminal: closed tasks never reopen. Allowed for admins,
// directors and the task's assignee.
func (s *TasksService) Close(ctx context.Context, actor domain.User, taskID string) (*domain.Task, error) {
	task, err := s.loadVisible(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	if !actor.SeesAllTasks() && task.AssignedTo != actor.ID {
		return nil, fmt.Errorf("close requires assignee or elevated role: %w", domain.ErrForbidden)
	}
	if task.Status == domain.TaskStatusClosed {
		return nil, fmt.Errorf("task already closed: %w", domain.ErrInvalidState)
	}

	task.Status = domain.TaskStatusClosed
	task.UpdatedAt = time.Now().UTC()
	if err := s.tasks.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	s.recorder.Record(ctx, audit.Actor(actor.ID), domain.AuditTaskClosed, map[string]any{
		"task_id":     task.ID,
		"document_id": task.DocumentID,
	})
	return task, nil
}

func (s *TasksService) loadVisible(ctx context.Context, actor domain.User, taskID string) (*domain.Task, error) {
	task, err := s.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if !visibleTo(actor, task) {
		return nil, fmt.Errorf("task not visible to actor: %w", domain.ErrForbidden)
	}
	return task, nil
}

func visibleTo(actor domain.User, task *domain.Task) bool {
	if actor.SeesAllTasks() {
		return true
	}
	if task.AssignedTo == actor.ID {
		return true
	}
	return task.AssignedDepartment != "" && task.AssignedDepartment == actor.Department
}
