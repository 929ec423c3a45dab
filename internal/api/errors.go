package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/task"
	"github.com/mkessler/taskhub/internal/team"
	"github.com/mkessler/taskhub/internal/user"
)

// maxBodySize is the maximum allowed request body size (1 MB).
const maxBodySize = 1 << 20

// errorEnvelope is the standard error response shape.
type errorEnvelope struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a JSON error response with the given status code.
func writeError(w http.ResponseWriter, statusCode int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error: errorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// writeJSON writes a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// readJSON decodes the request body into v, enforcing a size limit.
func readJSON(r *http.Request, v interface{}) error {
	lr := io.LimitReader(r.Body, maxBodySize)
	return json.NewDecoder(lr).Decode(v)
}

// writeServiceError translates service and store sentinel errors into the
// standard error envelope. Unknown errors become a generic 500 so internal
// detail never leaks to clients.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	// Validation failures.
	case errors.Is(err, auth.ErrUsernameLength),
		errors.Is(err, auth.ErrEmailInvalid),
		errors.Is(err, auth.ErrPasswordTooShort),
		errors.Is(err, team.ErrNameLength),
		errors.Is(err, team.ErrNameInvalid),
		errors.Is(err, team.ErrDescriptionTooLong),
		errors.Is(err, task.ErrTitleLength),
		errors.Is(err, task.ErrDescriptionTooLong),
		errors.Is(err, task.ErrStatusInvalid),
		errors.Is(err, task.ErrQueryLength):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())

	// Referential failures surface as bad requests, matching the foreign-key
	// semantics they guard.
	case errors.Is(err, team.ErrInvalidReference),
		errors.Is(err, task.ErrInvalidReference),
		errors.Is(err, task.ErrAssigneeNotMember),
		errors.Is(err, team.ErrLastMember):
		writeError(w, http.StatusBadRequest, "invalid_reference", err.Error())

	// The creator's membership is structural; attempts to remove it are
	// plain bad requests, not permission failures.
	case errors.Is(err, team.ErrCreatorImmutable):
		writeError(w, http.StatusBadRequest, "validation_error", err.Error())

	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "unauthorized", err.Error())

	case errors.Is(err, team.ErrRemoveForbidden),
		errors.Is(err, task.ErrNotTeamMember),
		errors.Is(err, task.ErrNoSharedTeam):
		writeError(w, http.StatusForbidden, "forbidden", err.Error())

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, team.ErrNotFound),
		errors.Is(err, team.ErrMembershipNotFound),
		errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())

	case errors.Is(err, user.ErrUsernameTaken),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, team.ErrNameTaken),
		errors.Is(err, team.ErrAlreadyMember):
		writeError(w, http.StatusConflict, "conflict", err.Error())

	default:
		writeError(w, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}
