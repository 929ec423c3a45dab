package team

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Storage errors surfaced to the service layer.
var (
	ErrNotFound           = errors.New("team not found")
	ErrNameTaken          = errors.New("team name already exists")
	ErrAlreadyMember      = errors.New("user is already a member of this team")
	ErrInvalidReference   = errors.New("invalid user or team id")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrCreatorImmutable   = errors.New("cannot remove team creator")
	ErrLastMember         = errors.New("cannot remove the last member from a team")
)

// Store provides database operations for teams and memberships.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const teamColumns = `id, name, description, creator_id, created_at, updated_at`

func scanTeam(row pgx.Row) (*Team, error) {
	t := &Team{}
	err := row.Scan(&t.ID, &t.Name, &t.Description, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Create inserts the team row and the creator's membership in a single
// transaction. On any failure neither row persists.
func (s *Store) Create(ctx context.Context, name string, description *string, creatorID int64) (*Team, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	query := fmt.Sprintf(`INSERT INTO teams (name, description, creator_id)
		 VALUES ($1, $2, $3)
		 RETURNING %s`, teamColumns)

	t, err := scanTeam(tx.QueryRow(ctx, query, name, description, creatorID))
	if err != nil {
		return nil, translatePgError(err, "creating team")
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO memberships (user_id, team_id) VALUES ($1, $2)`,
		creatorID, t.ID,
	)
	if err != nil {
		return nil, translatePgError(err, "creating creator membership")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing team creation: %w", err)
	}
	return t, nil
}

// GetByID retrieves a team by primary key.
func (s *Store) GetByID(ctx context.Context, id int64) (*Team, error) {
	query := fmt.Sprintf(`SELECT %s FROM teams WHERE id = $1`, teamColumns)
	t, err := scanTeam(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting team by id: %w", err)
	}
	return t, nil
}

// GetWithStats retrieves a team together with member and task counts.
func (s *Store) GetWithStats(ctx context.Context, id int64) (*TeamWithStats, error) {
	t := &TeamWithStats{}
	err := s.pool.QueryRow(ctx,
		`SELECT t.id, t.name, t.description, t.creator_id, t.created_at, t.updated_at,
			COUNT(DISTINCT m.user_id) AS member_count,
			COUNT(DISTINCT k.id) AS total_tasks,
			COUNT(DISTINCT CASE WHEN k.status = 'PENDING' THEN k.id END) AS pending_tasks,
			COUNT(DISTINCT CASE WHEN k.status = 'COMPLETED' THEN k.id END) AS completed_tasks
		 FROM teams t
		 LEFT JOIN memberships m ON t.id = m.team_id
		 LEFT JOIN tasks k ON t.id = k.team_id
		 WHERE t.id = $1
		 GROUP BY t.id`, id,
	).Scan(&t.ID, &t.Name, &t.Description, &t.CreatorID, &t.CreatedAt, &t.UpdatedAt,
		&t.MemberCount, &t.TotalTasks, &t.PendingTasks, &t.CompletedTasks)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting team with stats: %w", err)
	}
	if t.TotalTasks > 0 {
		t.CompletionRate = int(float64(t.CompletedTasks)/float64(t.TotalTasks)*100 + 0.5)
	}
	return t, nil
}

// Update applies a partial update to a team and returns the updated row.
func (s *Store) Update(ctx context.Context, id int64, in UpdateTeamInput) (*Team, error) {
	var setClauses []string
	var args []any
	argIdx := 1

	if in.Name != nil {
		setClauses = append(setClauses, fmt.Sprintf("name = $%d", argIdx))
		args = append(args, *in.Name)
		argIdx++
	}
	if in.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		// An explicit empty description clears the field.
		if *in.Description == "" {
			args = append(args, nil)
		} else {
			args = append(args, *in.Description)
		}
		argIdx++
	}

	if len(setClauses) == 0 {
		return s.GetByID(ctx, id)
	}

	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
	args = append(args, time.Now().UTC())
	argIdx++

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE teams SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(setClauses, ", "), argIdx, teamColumns)

	t, err := scanTeam(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, translatePgError(err, "updating team")
	}
	return t, nil
}

// Delete removes a team. Memberships and tasks go with it via ON DELETE
// CASCADE; no application-level cleanup is needed.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListForUser returns the teams the user belongs to, newest first.
func (s *Store) ListForUser(ctx context.Context, userID int64) ([]*Team, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.name, t.description, t.creator_id, t.created_at, t.updated_at
		 FROM teams t
		 JOIN memberships m ON t.id = m.team_id
		 WHERE m.user_id = $1
		 ORDER BY t.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing teams for user: %w", err)
	}
	defer rows.Close()

	teams := []*Team{}
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning team row: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// Members returns the team's members ordered by join time ascending, so the
// creator is listed first.
func (s *Store) Members(ctx context.Context, teamID int64) ([]*Member, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT u.id, u.username, u.email, m.created_at AS joined_at
		 FROM users u
		 JOIN memberships m ON u.id = m.user_id
		 WHERE m.team_id = $1
		 ORDER BY m.created_at ASC`, teamID)
	if err != nil {
		return nil, fmt.Errorf("listing team members: %w", err)
	}
	defer rows.Close()

	members := []*Member{}
	for rows.Next() {
		m := &Member{}
		if err := rows.Scan(&m.ID, &m.Username, &m.Email, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("scanning member row: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// AddMember inserts a membership row. Duplicate pairs surface as
// ErrAlreadyMember, unknown user or team ids as ErrInvalidReference.
func (s *Store) AddMember(ctx context.Context, teamID, userID int64) (*Membership, error) {
	m := &Membership{}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO memberships (user_id, team_id)
		 VALUES ($1, $2)
		 RETURNING id, user_id, team_id, created_at`,
		userID, teamID,
	).Scan(&m.ID, &m.UserID, &m.TeamID, &m.CreatedAt)
	if err != nil {
		return nil, translatePgError(err, "adding member")
	}
	return m, nil
}

// RemoveMember deletes a membership inside a transaction that locks the team
// row first, so the creator and last-member checks cannot race a concurrent
// removal.
func (s *Store) RemoveMember(ctx context.Context, teamID, userID int64) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var creatorID int64
	err = tx.QueryRow(ctx,
		`SELECT creator_id FROM teams WHERE id = $1 FOR UPDATE`, teamID,
	).Scan(&creatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("locking team row: %w", err)
	}

	if userID == creatorID {
		return ErrCreatorImmutable
	}

	var memberCount int
	if err := tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM memberships WHERE team_id = $1`, teamID,
	).Scan(&memberCount); err != nil {
		return fmt.Errorf("counting members: %w", err)
	}
	if memberCount <= 1 {
		return ErrLastMember
	}

	tag, err := tx.Exec(ctx,
		`DELETE FROM memberships WHERE team_id = $1 AND user_id = $2`,
		teamID, userID)
	if err != nil {
		return fmt.Errorf("removing member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrMembershipNotFound
	}

	return tx.Commit(ctx)
}

// IsMember reports whether the user holds a membership row for the team.
func (s *Store) IsMember(ctx context.Context, userID, teamID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE user_id = $1 AND team_id = $2)`,
		userID, teamID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return exists, nil
}

// SharedTeamExists reports whether two users share at least one team.
func (s *Store) SharedTeamExists(ctx context.Context, userA, userB int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM memberships a
			JOIN memberships b ON a.team_id = b.team_id
			WHERE a.user_id = $1 AND b.user_id = $2
		 )`, userA, userB,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking shared teams: %w", err)
	}
	return exists, nil
}

// CreatorID returns the creator of the team. found is false when the team
// does not exist.
func (s *Store) CreatorID(ctx context.Context, teamID int64) (int64, bool, error) {
	var creatorID int64
	err := s.pool.QueryRow(ctx,
		`SELECT creator_id FROM teams WHERE id = $1`, teamID,
	).Scan(&creatorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("getting team creator: %w", err)
	}
	return creatorID, true, nil
}

// Statistics aggregates task and member counts for the team.
func (s *Store) Statistics(ctx context.Context, teamID int64) (*Statistics, error) {
	st := &Statistics{}
	err := s.pool.QueryRow(ctx,
		`SELECT
			COUNT(*) AS total_tasks,
			COUNT(CASE WHEN status = 'PENDING' THEN 1 END) AS pending_tasks,
			COUNT(CASE WHEN status = 'COMPLETED' THEN 1 END) AS completed_tasks,
			COUNT(CASE WHEN assigned_to IS NOT NULL THEN 1 END) AS assigned_tasks,
			COUNT(CASE WHEN assigned_to IS NULL THEN 1 END) AS unassigned_tasks
		 FROM tasks WHERE team_id = $1`, teamID,
	).Scan(&st.TotalTasks, &st.PendingTasks, &st.CompletedTasks, &st.AssignedTasks, &st.UnassignedTasks)
	if err != nil {
		return nil, fmt.Errorf("aggregating task statistics: %w", err)
	}

	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(user_id) FROM memberships WHERE team_id = $1`, teamID,
	).Scan(&st.MemberCount); err != nil {
		return nil, fmt.Errorf("counting members: %w", err)
	}

	if st.TotalTasks > 0 {
		st.CompletionRate = int(float64(st.CompletedTasks)/float64(st.TotalTasks)*100 + 0.5)
		st.AssignmentRate = int(float64(st.AssignedTasks)/float64(st.TotalTasks)*100 + 0.5)
	}
	return st, nil
}

// translatePgError maps Postgres constraint violations onto the store's
// sentinel errors.
func translatePgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			if strings.Contains(pgErr.ConstraintName, "memberships") {
				return ErrAlreadyMember
			}
			return ErrNameTaken
		case "23503":
			return ErrInvalidReference
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
