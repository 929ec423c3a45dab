package team

import (
	"context"
	"errors"
	"regexp"
	"strings"
)

// Validation and authorization errors returned by the Service layer.
var (
	ErrNameLength         = errors.New("team name must be between 3 and 100 characters")
	ErrNameInvalid        = errors.New("team name can only contain letters, numbers, spaces, hyphens, and underscores")
	ErrDescriptionTooLong = errors.New("description cannot exceed 1000 characters")
	ErrRemoveForbidden    = errors.New("only the team creator or the user themselves can remove a membership")
)

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9\s_-]+$`)

// Service provides validated business logic over the team Store.
type Service struct {
	store *Store
}

// NewService creates a new Service wrapping the given Store.
func NewService(store *Store) *Service {
	return &Service{store: store}
}

// Create validates the input and creates the team together with the creator's
// membership. The two inserts are atomic: a duplicate name leaves no
// membership behind.
func (s *Service) Create(ctx context.Context, in CreateTeamInput, creatorID int64) (*Team, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validateName(in.Name); err != nil {
		return nil, err
	}
	description, err := normalizeDescription(in.Description)
	if err != nil {
		return nil, err
	}
	return s.store.Create(ctx, in.Name, description, creatorID)
}

// Get retrieves a team with aggregate stats and its member list embedded.
func (s *Service) Get(ctx context.Context, id int64) (*TeamDetail, error) {
	stats, err := s.store.GetWithStats(ctx, id)
	if err != nil {
		return nil, err
	}
	members, err := s.store.Members(ctx, id)
	if err != nil {
		return nil, err
	}
	return &TeamDetail{TeamWithStats: *stats, Members: members}, nil
}

// ListForUser returns the teams the user belongs to.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]*Team, error) {
	return s.store.ListForUser(ctx, userID)
}

// Update validates and applies a partial update.
func (s *Service) Update(ctx context.Context, id int64, in UpdateTeamInput) (*Team, error) {
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		if err := validateName(trimmed); err != nil {
			return nil, err
		}
		in.Name = &trimmed
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		if len(trimmed) > 1000 {
			return nil, ErrDescriptionTooLong
		}
		in.Description = &trimmed
	}
	return s.store.Update(ctx, id, in)
}

// Delete removes the team; tasks and memberships cascade at the storage level.
// The creator-only check is enforced by the route guard before this runs.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.store.Delete(ctx, id)
}

// Members returns the team's members, creator first.
func (s *Service) Members(ctx context.Context, teamID int64) ([]*Member, error) {
	return s.store.Members(ctx, teamID)
}

// AddMember adds a user to the team.
func (s *Service) AddMember(ctx context.Context, teamID, userID int64) (*Membership, error) {
	return s.store.AddMember(ctx, teamID, userID)
}

// RemoveMember removes a membership on behalf of callerID. The creator can
// remove anyone but themselves; other members can only remove themselves. The
// creator and last-member invariants are re-checked transactionally by the
// store.
func (s *Service) RemoveMember(ctx context.Context, teamID, targetUserID, callerID int64) error {
	creatorID, found, err := s.store.CreatorID(ctx, teamID)
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	if targetUserID == creatorID {
		return ErrCreatorImmutable
	}
	if callerID != creatorID && callerID != targetUserID {
		return ErrRemoveForbidden
	}
	return s.store.RemoveMember(ctx, teamID, targetUserID)
}

// Statistics returns aggregate task/member statistics for the team.
func (s *Service) Statistics(ctx context.Context, teamID int64) (*Statistics, error) {
	return s.store.Statistics(ctx, teamID)
}

func validateName(name string) error {
	if len(name) < 3 || len(name) > 100 {
		return ErrNameLength
	}
	if !namePattern.MatchString(name) {
		return ErrNameInvalid
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
