package task

import "time"

// Task status values. Transitions are unrestricted in both directions.
const (
	StatusPending   = "PENDING"
	StatusCompleted = "COMPLETED"
)

// Task belongs to exactly one team and is optionally assigned to one user.
// TeamName and AssignedToUsername are joined projections populated on reads.
type Task struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Status      string    `json:"status"`
	AssignedTo  *int64    `json:"assigned_to"`
	TeamID      int64     `json:"team_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	TeamName           *string `json:"team_name,omitempty"`
	AssignedToUsername *string `json:"assigned_to_username,omitempty"`
}

// CreateTaskInput holds the fields for creating a task.
type CreateTaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	TeamID      int64  `json:"team_id"`
	AssignedTo  *int64 `json:"assigned_to"`
}

// UpdateTaskInput holds optional fields for a partial task update. Use the
// dedicated unassign operation to clear an assignment.
type UpdateTaskInput struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Status      *string `json:"status,omitempty"`
	AssignedTo  *int64  `json:"assigned_to,omitempty"`
}

// ListFilters narrows task listings. Zero values mean "no filter".
type ListFilters struct {
	Status     string
	TeamID     int64
	AssignedTo int64
}

// SearchParams parameterizes a task search.
type SearchParams struct {
	Query  string
	TeamID int64  // optional scope
	Status string // optional filter
}
