package activity

import "time"

// Actions recorded in the activity log.
const (
	ActionTeamCreated   = "team.created"
	ActionTeamUpdated   = "team.updated"
	ActionTeamDeleted   = "team.deleted"
	ActionMemberAdded   = "member.added"
	ActionMemberRemoved = "member.removed"
	ActionTaskCreated   = "task.created"
	ActionTaskUpdated   = "task.updated"
	ActionTaskDeleted   = "task.deleted"
	ActionTaskAssigned  = "task.assigned"
	ActionTaskCompleted = "task.completed"
	ActionTaskReopened  = "task.reopened"
)

// Event is a single audit record of something a user did to a team or task.
type Event struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TeamID    *int64    `json:"team_id"`
	TaskID    *int64    `json:"task_id"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Query defines filters and pagination for listing events.
type Query struct {
	TeamID int64     `json:"team_id"`
	UserID int64     `json:"user_id,omitempty"`
	Action string    `json:"action,omitempty"`
	From   time.Time `json:"from"`
	To     time.Time `json:"to"`
	Cursor string    `json:"cursor,omitempty"`
	Limit  int       `json:"limit"`
}
