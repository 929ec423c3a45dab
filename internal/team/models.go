package team

import "time"

// Team is a named collaborative group. The creator is stored explicitly on
// the row rather than inferred from membership order.
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	CreatorID   int64     `json:"creator_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TeamWithStats is a team together with aggregate member and task counts.
type TeamWithStats struct {
	Team
	MemberCount    int `json:"member_count"`
	TotalTasks     int `json:"total_tasks"`
	PendingTasks   int `json:"pending_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	CompletionRate int `json:"completion_rate"` // percentage, 0-100
}

// TeamDetail is the get-by-id projection: the team, its aggregate counts, and
// the full member list.
type TeamDetail struct {
	TeamWithStats
	Members []*Member `json:"members"`
}

// Member is the public projection of a team member, ordered by join time so
// the creator always appears first.
type Member struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// Membership is the join fact that a user belongs to a team.
type Membership struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	TeamID    int64     `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateTeamInput holds the fields for creating a team.
type CreateTeamInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateTeamInput holds optional fields for a partial team update.
type UpdateTeamInput struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Statistics aggregates task and member counts for a team.
type Statistics struct {
	MemberCount     int `json:"member_count"`
	TotalTasks      int `json:"total_tasks"`
	PendingTasks    int `json:"pending_tasks"`
	CompletedTasks  int `json:"completed_tasks"`
	AssignedTasks   int `json:"assigned_tasks"`
	UnassignedTasks int `json:"unassigned_tasks"`
	CompletionRate  int `json:"completion_rate"` // percentage, 0-100
	AssignmentRate  int `json:"assignment_rate"` // percentage, 0-100
}
