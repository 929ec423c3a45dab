package activity

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the activity log.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// BatchInsert writes a slice of events to the database in a single multi-row
// INSERT statement. It is a no-op when events is empty.
func (s *Store) BatchInsert(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}

	const cols = 6 // number of columns per row (excluding server-generated id)
	args := make([]any, 0, len(events)*cols)
	rows := make([]string, 0, len(events))

	for i, ev := range events {
		base := i * cols
		rows = append(rows, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
		))
		args = append(args,
			ev.UserID,
			ev.TeamID,
			ev.TaskID,
			ev.Action,
			ev.Detail,
			ev.Timestamp,
		)
	}

	query := `INSERT INTO activity_events
		(user_id, team_id, task_id, action, detail, timestamp)
		VALUES ` + strings.Join(rows, ", ")

	_, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("batch inserting activity events: %w", err)
	}

	return nil
}

// ListForTeam returns a page of the team's events matching the query filters,
// ordered by timestamp DESC, id DESC. It uses cursor-based pagination and
// returns the next cursor (empty string if no more results).
func (s *Store) ListForTeam(ctx context.Context, q Query) ([]*Event, string, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}

	where, args := buildWhereClause(q)

	// Apply cursor: the cursor encodes "timestamp|id".
	if q.Cursor != "" {
		ts, id, err := decodeCursor(q.Cursor)
		if err != nil {
			return nil, "", fmt.Errorf("invalid cursor: %w", err)
		}
		n := len(args)
		where += fmt.Sprintf(" AND (timestamp, id) < ($%d, $%d)", n+1, n+2)
		args = append(args, ts, id)
	}

	query := `SELECT id, user_id, team_id, task_id, action, detail, timestamp
	FROM activity_events` + where +
		` ORDER BY timestamp DESC, id DESC LIMIT $` + strconv.Itoa(len(args)+1)
	args = append(args, limit+1) // fetch one extra to determine if there's a next page

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("listing activity events: %w", err)
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(
			&ev.ID, &ev.UserID, &ev.TeamID, &ev.TaskID,
			&ev.Action, &ev.Detail, &ev.Timestamp,
		); err != nil {
			return nil, "", fmt.Errorf("scanning activity event row: %w", err)
		}
		events = append(events, &ev)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterating activity event rows: %w", err)
	}

	var nextCursor string
	if len(events) > limit {
		last := events[limit-1]
		nextCursor = encodeCursor(last.Timestamp, last.ID)
		events = events[:limit]
	}

	return events, nextCursor, nil
}

// buildWhereClause constructs a WHERE clause and positional arguments from a
// Query. The team scope is always present.
func buildWhereClause(q Query) (string, []any) {
	args := []any{q.TeamID}
	conditions := []string{"team_id = $1"}

	if q.UserID > 0 {
		args = append(args, q.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if q.Action != "" {
		args = append(args, q.Action)
		conditions = append(conditions, fmt.Sprintf("action = $%d", len(args)))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", len(args)))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", len(args)))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// encodeCursor encodes a timestamp and id into an opaque cursor string.
func encodeCursor(ts time.Time, id int64) string {
	raw := ts.Format(time.RFC3339Nano) + "|" + strconv.FormatInt(id, 10)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// decodeCursor decodes an opaque cursor string into a timestamp and id.
func decodeCursor(cursor string) (time.Time, int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("decoding cursor: %w", err)
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, fmt.Errorf("malformed cursor")
	}
	ts, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parsing cursor timestamp: %w", err)
	}
	id, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("parsing cursor id: %w", err)
	}
	return ts, id, nil
}
