package api

import (
	"net/http"
	"strconv"

	"github.com/mkessler/taskhub/internal/activity"
	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/metrics"
	"github.com/mkessler/taskhub/internal/task"
)

// tasksHandler groups task HTTP handlers.
type tasksHandler struct {
	tasks    *task.Service
	recorder *activity.Collector
	metrics  *metrics.Metrics
}

func newTasksHandler(svc *task.Service, recorder *activity.Collector, m *metrics.Metrics) *tasksHandler {
	return &tasksHandler{tasks: svc, recorder: recorder, metrics: m}
}

// listFilters extracts the shared status/team/assignee query filters.
func listFilters(r *http.Request) (task.ListFilters, bool) {
	f := task.ListFilters{Status: r.URL.Query().Get("status")}
	if v := r.URL.Query().Get("team_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return f, false
		}
		f.TeamID = id
	}
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			return f, false
		}
		f.AssignedTo = id
	}
	return f, true
}

// Create handles POST /tasks. The caller must belong to the target team.
func (h *tasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	var req task.CreateTaskInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}
	if req.TeamID < 1 {
		writeError(w, http.StatusBadRequest, "validation_error", "team_id is required")
		return
	}

	t, err := h.tasks.Create(r.Context(), req, u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.metrics.IncTaskCreated()
	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.TeamID,
		TaskID: &t.ID,
		Action: activity.ActionTaskCreated,
		Detail: t.Title,
	})
	writeJSON(w, http.StatusCreated, t)
}

// List handles GET /tasks, returning tasks across all the caller's teams.
func (h *tasksHandler) List(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	f, ok := listFilters(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "filter ids must be positive integers")
		return
	}

	tasks, err := h.tasks.ListForCaller(r.Context(), u.ID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// MyTasks handles GET /tasks/my-tasks, returning tasks assigned to the caller.
func (h *tasksHandler) MyTasks(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	f, ok := listFilters(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "filter ids must be positive integers")
		return
	}

	tasks, err := h.tasks.ListAssignedTo(r.Context(), u.ID, u.ID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Search handles GET /tasks/search.
func (h *tasksHandler) Search(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())

	p := task.SearchParams{
		Query:  r.URL.Query().Get("q"),
		Status: r.URL.Query().Get("status"),
	}
	if v := r.URL.Query().Get("team_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id < 1 {
			writeError(w, http.StatusBadRequest, "validation_error", "team_id must be a positive integer")
			return
		}
		p.TeamID = id
	}

	tasks, err := h.tasks.Search(r.Context(), p, u.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ByTeam handles GET /tasks/team/{teamId}. Membership is enforced by the guard.
func (h *tasksHandler) ByTeam(w http.ResponseWriter, r *http.Request) {
	teamID, ok := urlID(r, "teamId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid team id is required")
		return
	}

	f, ok := listFilters(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "filter ids must be positive integers")
		return
	}

	tasks, err := h.tasks.ListByTeam(r.Context(), teamID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// ByUser handles GET /tasks/user/{userId}. Viewing another user's assignments
// requires at least one shared team.
func (h *tasksHandler) ByUser(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	userID, ok := urlID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid user id is required")
		return
	}

	f, ok := listFilters(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "validation_error", "filter ids must be positive integers")
		return
	}

	tasks, err := h.tasks.ListAssignedTo(r.Context(), userID, u.ID, f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get handles GET /tasks/{taskId}.
func (h *tasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	t, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Update handles PUT /tasks/{taskId}.
func (h *tasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	var req task.UpdateTaskInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	t, err := h.tasks.Update(r.Context(), taskID, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.TeamID,
		TaskID: &t.ID,
		Action: activity.ActionTaskUpdated,
		Detail: t.Title,
	})
	writeJSON(w, http.StatusOK, t)
}

// Delete handles DELETE /tasks/{taskId}.
func (h *tasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	if err := h.tasks.Delete(r.Context(), taskID); err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TaskID: &taskID,
		Action: activity.ActionTaskDeleted,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "task deleted"})
}

// Assign handles PUT /tasks/{taskId}/assign.
func (h *tasksHandler) Assign(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
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

	t, err := h.tasks.Assign(r.Context(), taskID, req.UserID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.TeamID,
		TaskID: &t.ID,
		Action: activity.ActionTaskAssigned,
		Detail: strconv.FormatInt(req.UserID, 10),
	})
	writeJSON(w, http.StatusOK, t)
}

// Unassign handles PUT /tasks/{taskId}/unassign.
func (h *tasksHandler) Unassign(w http.ResponseWriter, r *http.Request) {
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	t, err := h.tasks.Unassign(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Complete handles PUT /tasks/{taskId}/complete.
func (h *tasksHandler) Complete(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	t, err := h.tasks.Complete(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.TeamID,
		TaskID: &t.ID,
		Action: activity.ActionTaskCompleted,
	})
	writeJSON(w, http.StatusOK, t)
}

// Reopen handles PUT /tasks/{taskId}/pending.
func (h *tasksHandler) Reopen(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	taskID, ok := urlID(r, "taskId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid task id is required")
		return
	}

	t, err := h.tasks.Reopen(r.Context(), taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.recorder.Record(activity.Event{
		UserID: u.ID,
		TeamID: &t.TeamID,
		TaskID: &t.ID,
		Action: activity.ActionTaskReopened,
	})
	writeJSON(w, http.StatusOK, t)
}
