package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mkessler/taskhub/internal/user"
)

type contextKey int

const userContextKey contextKey = iota

// ContextWithUser returns a new context carrying the given user.
func ContextWithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// UserFromContext extracts the user from the context, or nil if not present.
func UserFromContext(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}

// SessionLookup is the interface for resolving session tokens to users.
type SessionLookup interface {
	LookupSession(ctx context.Context, token string) (*user.User, error)
}

// SessionMiddleware returns middleware that authenticates requests using the
// session cookie. The cookie value is an opaque token resolved via the session
// store; on success the user is injected into the request context.
func SessionMiddleware(sessions SessionLookup, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionTokenFromRequest(r, cookieName)
			if token == "" {
				writeUnauthorized(w, "you must be logged in to access this resource")
				return
			}

			u, err := sessions.LookupSession(r.Context(), token)
			if err != nil || u == nil {
				writeUnauthorized(w, "invalid or expired session")
				return
			}

			ctx := ContextWithUser(r.Context(), u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionTokenFromRequest extracts the session token from the named cookie.
func SessionTokenFromRequest(r *http.Request, cookieName string) string {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "unauthorized",
			Message: message,
		},
	})
}

func writeForbidden(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusForbidden)
	_ = json.NewEncoder(w).Encode(errorResponse{
		Error: errorBody{
			Code:    "forbidden",
			Message: message,
		},
	})
}
