package task

import (
	"context"
	"errors"
	"strings"
)

// Validation and authorization errors returned by the Service layer.
var (
	ErrTitleLength        = errors.New("task title must be between 3 and 200 characters")
	ErrDescriptionTooLong = errors.New("description cannot exceed 1000 characters")
	ErrStatusInvalid      = errors.New("status must be PENDING or COMPLETED")
	ErrQueryLength        = errors.New("search query must be between 1 and 100 characters")
	ErrNotTeamMember      = errors.New("user is not a member of this team")
	ErrNoSharedTeam       = errors.New("no shared team with this user")
)

// TeamDirectory answers membership questions the task service needs.
type TeamDirectory interface {
	IsMember(ctx context.Context, userID, teamID int64) (bool, error)
	SharedTeamExists(ctx context.Context, userA, userB int64) (bool, error)
}

// Service provides validated business logic over the task Store.
type Service struct {
	store *Store
	teams TeamDirectory
}

// NewService creates a new Service wrapping the given Store.
func NewService(store *Store, teams TeamDirectory) *Service {
	return &Service{store: store, teams: teams}
}

// Create validates the input, verifies the caller belongs to the target team,
// and creates the task. The assignee membership invariant is enforced
// transactionally by the store.
func (s *Service) Create(ctx context.Context, in CreateTaskInput, creatorID int64) (*Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := validateTitle(in.Title); err != nil {
		return nil, err
	}
	description, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}

	member, err := s.teams.IsMember(ctx, creatorID, in.TeamID)
	if err != nil {
		return nil, err
	}
	if !member {
		return nil, ErrNotTeamMember
	}

	return s.store.Create(ctx, in, description)
}

// Get retrieves a task by id.
func (s *Service) Get(ctx context.Context, id int64) (*Task, error) {
	return s.store.GetByID(ctx, id)
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, in UpdateTaskInput) (*Task, error) {
	var description *string
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		if err := validateTitle(trimmed); err != nil {
			return nil, err
		}
		in.Title = &trimmed
	}
	if in.Description != nil {
		d, err := normalizeDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		description = d
	}
	if in.Status != nil {
		if err := validateStatus(*in.Status); err != nil {
			return nil, err
		}
	}
	return s.store.Update(ctx, id, in, description)
}

// Delete removes a task. Team membership is enforced by the route guard.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Assign sets the task's assignee. The store re-checks, under the task row
// lock, that the assignee belongs to the task's team.
func (s *Service) Assign(ctx context.Context, id, userID int64) (*Task, error) {
	return s.store.Update(ctx, id, UpdateTaskInput{AssignedTo: &userID}, nil)
}

// Unassign clears the task's assignee.
func (s *Service) Unassign(ctx context.Context, id int64) (*Task, error) {
	return s.store.Unassign(ctx, id)
}

// Complete marks the task COMPLETED.
func (s *Service) Complete(ctx context.Context, id int64) (*Task, error) {
	return s.store.SetStatus(ctx, id, StatusCompleted)
}

// Reopen marks the task PENDING again.
func (s *Service) Reopen(ctx context.Context, id int64) (*Task, error) {
	return s.store.SetStatus(ctx, id, StatusPending)
}

// ListForCaller returns tasks across every team the caller belongs to.
func (s *Service) ListForCaller(ctx context.Context, callerID int64, f ListFilters) ([]*Task, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	return s.store.ListForUserTeams(ctx, callerID, f)
}

// ListByTeam returns the team's tasks. Team membership is enforced by the
// route guard.
func (s *Service) ListByTeam(ctx context.Context, teamID int64, f ListFilters) ([]*Task, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	return s.store.ListByTeam(ctx, teamID, f)
}

// ListAssignedTo returns tasks assigned to targetID. Callers may always view
// their own assignments; viewing another user's requires at least one shared
// team.
func (s *Service) ListAssignedTo(ctx context.Context, targetID, callerID int64, f ListFilters) ([]*Task, error) {
	if err := validateFilters(f); err != nil {
		return nil, err
	}
	if targetID != callerID {
		shared, err := s.teams.SharedTeamExists(ctx, targetID, callerID)
		if err != nil {
			return nil, err
		}
		if !shared {
			return nil, ErrNoSharedTeam
		}
	}
	return s.store.ListAssignedTo(ctx, targetID, f)
}

// Search validates the query and searches within the caller's visibility.
// The store restricts unscoped searches to the caller's teams in the query
// itself; a team scope additionally requires the caller's membership.
func (s *Service) Search(ctx context.Context, p SearchParams, callerID int64) ([]*Task, error) {
	p.Query = strings.TrimSpace(p.Query)
	if len(p.Query) < 1 || len(p.Query) > 100 {
		return nil, ErrQueryLength
	}
	if p.Status != "" {
		if err := validateStatus(p.Status); err != nil {
			return nil, err
		}
	}
	if p.TeamID > 0 {
		member, err := s.teams.IsMember(ctx, callerID, p.TeamID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, ErrNotTeamMember
		}
	}
	return s.store.Search(ctx, p, callerID)
}

func validateTitle(title string) error {
	if len(title) < 3 || len(title) > 200 {
		return ErrTitleLength
	}
	return nil
}

func validateStatus(status string) error {
	if status != StatusPending && status != StatusCompleted {
		return ErrStatusInvalid
	}
	return nil
}

func validateFilters(f ListFilters) error {
	if f.Status != "" {
		return validateStatus(f.Status)
	}
	return nil
}

// normalizeDescription trims the description and converts empty to NULL.
func normalizeDescription(description string) (*string, error) {
	trimmed := strings.TrimSpace(description)
	if trimmed == "" {
		return nil, nil
	}
	if len(trimmed) > 1000 {
		return nil, ErrDescriptionTooLong
	}
	return &trimmed, nil
}
