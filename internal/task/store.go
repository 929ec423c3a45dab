package task

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
	ErrNotFound          = errors.New("task not found")
	ErrInvalidReference  = errors.New("invalid team or user id")
	ErrAssigneeNotMember = errors.New("assigned user is not a member of this team")
)

// Store provides database operations for tasks.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// taskColumns selects task fields with joined team and assignee projections.
const taskColumns = `t.id, t.title, t.description, t.status, t.assigned_to, t.team_id,
	t.created_at, t.updated_at, tm.name AS team_name, u.username AS assigned_to_username`

const taskJoins = `FROM tasks t
	LEFT JOIN teams tm ON t.team_id = tm.id
	LEFT JOIN users u ON t.assigned_to = u.id`

func scanTask(row pgx.Row) (*Task, error) {
	t := &Task{}
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.AssignedTo, &t.TeamID,
		&t.CreatedAt, &t.UpdatedAt, &t.TeamName, &t.AssignedToUsername)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) collectTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning task row: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// assigneeIsMember checks, inside the caller's transaction, that the user is
// a member of the team. Running the check and the subsequent write in one
// transaction closes the check-then-act race.
func assigneeIsMember(ctx context.Context, tx pgx.Tx, userID, teamID int64) (bool, error) {
	var exists bool
	err := tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM memberships WHERE user_id = $1 AND team_id = $2)`,
		userID, teamID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking assignee membership: %w", err)
	}
	return exists, nil
}

// Create inserts a task. When an assignee is given, the membership check and
// the insert share a transaction so a concurrent removal cannot slip between
// them.
func (s *Store) Create(ctx context.Context, in CreateTaskInput, description *string) (*Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if in.AssignedTo != nil {
		ok, err := assigneeIsMember(ctx, tx, *in.AssignedTo, in.TeamID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAssigneeNotMember
		}
	}

	var id int64
	err = tx.QueryRow(ctx,
		`INSERT INTO tasks (title, description, team_id, assigned_to, status)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		in.Title, description, in.TeamID, in.AssignedTo, StatusPending,
	).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, ErrInvalidReference
		}
		return nil, fmt.Errorf("creating task: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing task creation: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID retrieves a task with its team name and assignee username.
func (s *Store) GetByID(ctx context.Context, id int64) (*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.id = $1`, taskColumns, taskJoins)
	t, err := scanTask(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting task by id: %w", err)
	}
	return t, nil
}

// Update applies a partial update. If the assignment changes, the membership
// invariant is re-validated against the task's team in the same transaction.
func (s *Store) Update(ctx context.Context, id int64, in UpdateTaskInput, description *string) (*Task, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var teamID int64
	err = tx.QueryRow(ctx,
		`SELECT team_id FROM tasks WHERE id = $1 FOR UPDATE`, id,
	).Scan(&teamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("locking task row: %w", err)
	}

	if in.AssignedTo != nil {
		ok, err := assigneeIsMember(ctx, tx, *in.AssignedTo, teamID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrAssigneeNotMember
		}
	}

	var setClauses []string
	var args []any
	argIdx := 1

	if in.Title != nil {
		setClauses = append(setClauses, fmt.Sprintf("title = $%d", argIdx))
		args = append(args, *in.Title)
		argIdx++
	}
	if in.Description != nil {
		setClauses = append(setClauses, fmt.Sprintf("description = $%d", argIdx))
		args = append(args, description)
		argIdx++
	}
	if in.Status != nil {
		setClauses = append(setClauses, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *in.Status)
		argIdx++
	}
	if in.AssignedTo != nil {
		setClauses = append(setClauses, fmt.Sprintf("assigned_to = $%d", argIdx))
		args = append(args, *in.AssignedTo)
		argIdx++
	}

	if len(setClauses) > 0 {
		setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", argIdx))
		args = append(args, time.Now().UTC())
		argIdx++

		args = append(args, id)
		query := fmt.Sprintf(`UPDATE tasks SET %s WHERE id = $%d`,
			strings.Join(setClauses, ", "), argIdx)
		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return nil, fmt.Errorf("updating task: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("committing task update: %w", err)
	}
	return s.GetByID(ctx, id)
}

// Delete removes a task by id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Unassign clears the task's assignment. No membership check applies.
func (s *Store) Unassign(ctx context.Context, id int64) (*Task, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET assigned_to = NULL, updated_at = $2 WHERE id = $1`,
		id, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("unassigning task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// SetStatus updates the task status. Both directions are legal; there is no
// terminal state.
func (s *Store) SetStatus(ctx context.Context, id int64, status string) (*Task, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET status = $2, updated_at = $3 WHERE id = $1`,
		id, status, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("setting task status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetByID(ctx, id)
}

// ListForUserTeams returns tasks across all teams the user belongs to.
func (s *Store) ListForUserTeams(ctx context.Context, userID int64, f ListFilters) ([]*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s
		 JOIN memberships m ON t.team_id = m.team_id
		 WHERE m.user_id = $1`, taskColumns, taskJoins)
	args := []any{userID}
	query, args = applyFilters(query, args, f)
	query += ` ORDER BY t.created_at DESC`
	return s.collectTasks(ctx, query, args...)
}

// ListByTeam returns the team's tasks, newest first.
func (s *Store) ListByTeam(ctx context.Context, teamID int64, f ListFilters) ([]*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.team_id = $1`, taskColumns, taskJoins)
	args := []any{teamID}
	query, args = applyFilters(query, args, f)
	query += ` ORDER BY t.created_at DESC`
	return s.collectTasks(ctx, query, args...)
}

// ListAssignedTo returns tasks assigned to the user, newest first.
func (s *Store) ListAssignedTo(ctx context.Context, userID int64, f ListFilters) ([]*Task, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE t.assigned_to = $1`, taskColumns, taskJoins)
	args := []any{userID}
	query, args = applyFilters(query, args, f)
	query += ` ORDER BY t.created_at DESC`
	return s.collectTasks(ctx, query, args...)
}

// Search performs a case-insensitive substring match over title and
// description, filtered by status. A team scope restricts to that one team;
// without one, a join on memberships restricts results to the caller's teams
// so other teams' tasks are never scanned out of the database.
func (s *Store) Search(ctx context.Context, p SearchParams, callerID int64) ([]*Task, error) {
	query, args := buildSearchQuery(p, callerID)
	return s.collectTasks(ctx, query, args...)
}

func buildSearchQuery(p SearchParams, callerID int64) (string, []any) {
	query := fmt.Sprintf(`SELECT %s %s`, taskColumns, taskJoins)
	args := []any{"%" + strings.TrimSpace(p.Query) + "%"}
	argIdx := 2

	if p.TeamID == 0 {
		query += fmt.Sprintf(`
		 JOIN memberships m ON t.team_id = m.team_id AND m.user_id = $%d`, argIdx)
		args = append(args, callerID)
		argIdx++
	}

	query += ` WHERE (t.title ILIKE $1 OR t.description ILIKE $1)`

	if p.TeamID > 0 {
		query += fmt.Sprintf(` AND t.team_id = $%d`, argIdx)
		args = append(args, p.TeamID)
		argIdx++
	}
	if p.Status != "" {
		query += fmt.Sprintf(` AND t.status = $%d`, argIdx)
		args = append(args, p.Status)
	}

	query += ` ORDER BY t.created_at DESC`
	return query, args
}

// CanAccess reports whether the user is a member of the task's team. Unknown
// tasks yield false.
func (s *Store) CanAccess(ctx context.Context, taskID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM tasks t
			JOIN memberships m ON t.team_id = m.team_id
			WHERE t.id = $1 AND m.user_id = $2
		 )`, taskID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking task access: %w", err)
	}
	return exists, nil
}

// applyFilters appends status/team/assignee predicates to a query that
// already has a WHERE clause.
func applyFilters(query string, args []any, f ListFilters) (string, []any) {
	argIdx := len(args) + 1
	if f.Status != "" {
		query += fmt.Sprintf(` AND t.status = $%d`, argIdx)
		args = append(args, f.Status)
		argIdx++
	}
	if f.TeamID > 0 {
		query += fmt.Sprintf(` AND t.team_id = $%d`, argIdx)
		args = append(args, f.TeamID)
		argIdx++
	}
	if f.AssignedTo > 0 {
		query += fmt.Sprintf(` AND t.assigned_to = $%d`, argIdx)
		args = append(args, f.AssignedTo)
	}
	return query, args
}
