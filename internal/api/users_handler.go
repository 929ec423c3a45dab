package api

import (
	"net/http"

	"github.com/mkessler/taskhub/internal/user"
)

// usersHandler groups user HTTP handlers.
type usersHandler struct {
	users *user.Store
}

func newUsersHandler(store *user.Store) *usersHandler {
	return &usersHandler{users: store}
}

// Get handles GET /users/{userId}. Users can only read their own record,
// enforced by the guard.
func (h *usersHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := urlID(r, "userId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_id", "a valid user id is required")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
