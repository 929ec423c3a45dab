package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mkessler/taskhub/internal/activity"
	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/metrics"
	"github.com/mkessler/taskhub/internal/team"
)

// teamsHandler groups team and membership HTTP handlers.
type teamsHandler struct {
	teams    *team.Service
	recorder *activity.Collector
	events   *activity.Store
	metrics  *metrics.Metrics
}

func newTeamsHandler(svc *team.Service, recorder *activity.Collector, events *activity.Store, m *metrics.Metrics) *teamsHandler {
	return &teamsHandler{teams: svc, recorder: recorder, events: events, metrics: m}
}

// urlID parses a positive integer URL parameter.
func urlID(r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// Create handles POST /teamCreate. The caller becomes the team's creator and
// first member atomically.
func (h *teamsHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var req team.CreateTeamInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.teams.Create(r.Context(), req, u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.IncTeamCreated()
	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.ID,
		Action: activity.ActionTeamCreated,
		Detail: t.Name,
	})
	writeJSON(w, http.StatusCreated, t)
}

// List handles GET /teams, returning the caller's teams.
func (h *teamsHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	teams, err := h.teams.ListForUser(r.Context(), u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

// Get handles GET /teams/{teamId}.
func (h *teamsHandler) Get(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	t, err := h.teams.Get(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /teams/{teamId}. Creator-only, enforced by the guard.
func (h *teamsHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	var req team.UpdateTeamInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.teams.Update(r.Context(), teamID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &teamID,
		Action: activity.ActionTeamUpdated,
		Detail: t.Name,
	})
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /teams/{teamId}. Creator-only, enforced by the guard.
func (h *teamsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	if err := h.teams.Delete(r.Context(), teamID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &teamID,
		Action: activity.ActionTeamDeleted,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "team deleted"})
}

// Members handles GET /teams/{teamId}/members.
func (h *teamsHandler) Members(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	members, err := h.teams.Members(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

// AddMember handles POST /teams/{teamId}/members.
func (h *teamsHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	var req struct {
		UserID int64 `json:"user_id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.UserID < 1 {
		writeError(w, http.StatusBadRequest, "validation_error", "user_id is required")
		return
	}

	m, err := h.teams.AddMember(r.Context(), teamID, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &teamID,
		Action: activity.ActionMemberAdded,
		Detail: strconv.FormatInt(req.UserID, 10),
	})
	writeJSON(w, http.StatusCreated, m)
}

// RemoveMember handles DELETE /teams/{teamId}/members/{userId}. The creator
// can remove any member but themselves; members can remove themselves.
func (h *teamsHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}
	userID, ok := urlID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid user id is required")
		return
	}

	if err := h.teams.RemoveMember(r.Context(), teamID, userID, u.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &teamID,
		Action: activity.ActionMemberRemoved,
		Detail: strconv.FormatInt(userID, 10),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "member removed"})
}

// Statistics handles GET /teams/{teamId}/statistics.
func (h *teamsHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	stats, err := h.teams.Statistics(r.Context(), teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// Activity handles GET /teams/{teamId}/activity with cursor pagination.
func (h *teamsHandler) Activity(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	q := activity.Query{
		TeamID: teamID,
		Action: r.URL.Query().Get("action"),
		Cursor: r.URL.Query().Get("cursor"),
	}
	if v := r.URL.Query().Get("user_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "validation_error", "user_id must be a positive integer")
			return
		}
		q.UserID = id
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 200 {
			writeError(w, http.StatusBadRequest, "validation_error", "limit must be between 1 and 200")
			return
		}
		q.Limit = n
	}
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "from must be an RFC 3339 timestamp")
			return
		}
		q.From = ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_error", "to must be an RFC 3339 timestamp")
			return
		}
		q.To = ts
	}

	events, nextCursor, err := h.events.ListForTeam(r.Context(), q)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_cursor", "failed to list activity")
		return
	}
	if events == nil {
		events = []*activity.Event{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"events":      events,
		"next_cursor": nextCursor,
	})
}
