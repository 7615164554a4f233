package domain

import "time"

type TaskStatus string

const (
	TaskStatusPending      TaskStatus = "pending"
	TaskStatusAcknowledged TaskStatus = "acknowledged"
	TaskStatusClosed       TaskStatus = "closed"
)

// Task is a follow-up item, either created by a user or derived from a
// worker result. DedupKey is stable across webhook redeliveries so the same
// result item never materializes twice.
type Task struct {
	ID                 string     `json:"id"`
	DocumentID         string     `json:"document_id,omitempty"`
	Title              string     `json:"title"`
	Description        string     `json:"description,omitempty"`
	AssignedTo         string     `json:"assigned_to,omitempty"`
	AssignedDepartment string     `json:"assigned_department,omitempty"`
	DueDate            *time.Time `json:"due_date,omitempty"`
	Status             TaskStatus `json:"status"`
	AcknowledgedBy     string     `json:"acknowledged_by,omitempty"`
	AcknowledgedAt     *time.Time `json:"acknowledged_at,omitempty"`
	DedupKey           string     `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

type TaskFilter struct {
	Status     TaskStatus
	Department string
	AssignedTo string
	DocumentID string
	Search     string

	// VisibleTo scopes results for non-elevated actors: tasks assigned to the
	// user or to the user's department. Nil means no visibility restriction.
	VisibleTo *User

	Page     int
	PageSize int
}

// TaskStats counts tasks by status for dashboard views.
type TaskStats struct {
	Total        int `json:"total"`
	Pending      int `json:"pending"`
	Acknowledged int `json:"acknowledged"`
	Closed       int `json:"closed"`
}
