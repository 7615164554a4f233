package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/itskum47/KMRL-DocAI/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresTasksRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTasksRepository(pool *pgxpool.Pool) *PostgresTasksRepository {
	return &PostgresTasksRepository{pool: pool}
}

const taskColumns = `id, document_id, title, description, assigned_to, assigned_department,
	due_date, status, acknowledged_by, acknowledged_at, dedup_key, created_at, updated_at`

const insertTaskSQL = `
	INSERT INTO tasks (` + taskColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	ON CONFLICT (dedup_key) DO NOTHING
`

func (r *PostgresTasksRepository) Create(ctx context.Context, task *domain.Task) error {
	_, err := r.pool.Exec(ctx, insertTaskSQL, taskArgs(task)...)
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

func (r *PostgresTasksRepository) CreateBatch(ctx context.Context, tasks []*domain.Task) (int, error) {
	if len(tasks) == 0 {
		return 0, nil
	}

	transaction, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin task batch: %w", err)
	}
	defer transaction.Rollback(ctx)

	created := 0
	for _, task := range tasks {
		command, err := transaction.Exec(ctx, insertTaskSQL, taskArgs(task)...)
		if err != nil {
			return 0, fmt.Errorf("insert task batch item: %w", err)
		}
		created += int(command.RowsAffected())
	}

	if err := transaction.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit task batch: %w", err)
	}
	return created, nil
}

func (r *PostgresTasksRepository) Get(ctx context.Context, id string) (*domain.Task, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = $1", id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return task, nil
}

func (r *PostgresTasksRepository) Update(ctx context.Context, task *domain.Task) error {
	command, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET status = $2,
			acknowledged_by = $3,
			acknowledged_at = $4,
			updated_at = $5
		WHERE id = $1
	`,
		task.ID,
		string(task.Status),
		nullIfEmpty(task.AcknowledgedBy),
		task.AcknowledgedAt,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	if command.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PostgresTasksRepository) List(
	ctx context.Context,
	filter domain.TaskFilter,
) ([]domain.Task, int, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	baseQuery, args := buildTaskFilters(filter)

	var total int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) "+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	listQuery := fmt.Sprintf(
		`SELECT `+taskColumns+`
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d`,
		baseQuery,
		len(args)+1,
		len(args)+2,
	)
	listArgs := append(args, filter.PageSize, (filter.Page-1)*filter.PageSize)
	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan task: %w", err)
		}
		items = append(items, *task)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate tasks: %w", rows.Err())
	}
	return items, total, nil
}

func (r *PostgresTasksRepository) Stats(ctx context.Context, visibleTo *domain.User) (domain.TaskStats, error) {
	query := "SELECT status, COUNT(*) FROM tasks"
	args := []any{}
	if visibleTo != nil {
		query += " WHERE (assigned_to = $1 OR (assigned_department <> '' AND assigned_department = $2))"
		args = append(args, visibleTo.ID, visibleTo.Department)
	}
	query += " GROUP BY status"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return domain.TaskStats{}, fmt.Errorf("task stats: %w", err)
	}
	defer rows.Close()

	stats := domain.TaskStats{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return domain.TaskStats{}, fmt.Errorf("scan task stats: %w", err)
		}
		stats.Total += count
		switch domain.TaskStatus(status) {
		case domain.TaskStatusPending:
			stats.Pending = count
		case domain.TaskStatusAcknowledged:
			stats.Acknowledged = count
		case domain.TaskStatusClosed:
			stats.Closed = count
		}
	}
	if rows.Err() != nil {
		return domain.TaskStats{}, fmt.Errorf("iterate task stats: %w", rows.Err())
	}
	return stats, nil
}

func buildTaskFilters(filter domain.TaskFilter) (string, []any) {
	query := strings.Builder{}
	query.WriteString("FROM tasks WHERE 1=1")

	args := make([]any, 0, 6)
	argIndex := 1

	if filter.VisibleTo != nil {
		query.WriteString(fmt.Sprintf(
			" AND (assigned_to = $%d OR (assigned_department <> '' AND assigned_department = $%d))",
			argIndex, argIndex+1,
		))
		args = append(args, filter.VisibleTo.ID, filter.VisibleTo.Department)
		argIndex += 2
	}
	if filter.Status != "" {
		query.WriteString(fmt.Sprintf(" AND status = $%d", argIndex))
		args = append(args, string(filter.Status))
		argIndex++
	}
	if filter.Department != "" {
		query.WriteString(fmt.Sprintf(" AND assigned_department = $%d", argIndex))
		args = append(args, filter.Department)
		argIndex++
	}
	if filter.AssignedTo != "" {
		query.WriteString(fmt.Sprintf(" AND assigned_to = $%d", argIndex))
		args = append(args, filter.AssignedTo)
		argIndex++
	}
	if filter.DocumentID != "" {
		query.WriteString(fmt.Sprintf(" AND document_id = $%d", argIndex))
		args = append(args, filter.DocumentID)
		argIndex++
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		query.WriteString(fmt.Sprintf(
			" AND (title ILIKE '%%' || $%d || '%%' OR description ILIKE '%%' || $%d || '%%')",
			argIndex, argIndex,
		))
		args = append(args, search)
		argIndex++
	}

	return query.String(), args
}

func taskArgs(task *domain.Task) []any {
	return []any{
		task.ID,
		nullIfEmpty(task.DocumentID),
		task.Title,
		task.Description,
		nullIfEmpty(task.AssignedTo),
		task.AssignedDepartment,
		task.DueDate,
		string(task.Status),
		nullIfEmpty(task.AcknowledgedBy),
		task.AcknowledgedAt,
		nullIfEmpty(task.DedupKey),
		task.CreatedAt,
		task.UpdatedAt,
	}
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		documentID     *string
		assignedTo     *string
		acknowledgedBy *string
		dedupKey       *string
		status         string
	)
	err := row.Scan(
		&task.ID,
		&documentID,
		&task.Title,
		&task.Description,
		&assignedTo,
		&task.AssignedDepartment,
		&task.DueDate,
		&status,
		&acknowledgedBy,
		&task.AcknowledgedAt,
		&dedupKey,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.TaskStatus(status)
	task.DocumentID = stringOrEmpty(documentID)
	task.AssignedTo = stringOrEmpty(assignedTo)
	task.AcknowledgedBy = stringOrEmpty(acknowledgedBy)
	task.DedupKey = stringOrEmpty(dedupKey)
	return &task, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
