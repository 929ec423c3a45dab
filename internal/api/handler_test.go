package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/metrics"
	"github.com/mkessler/taskhub/internal/ratelimit"
	"github.com/mkessler/taskhub/internal/task"
	"github.com/mkessler/taskhub/internal/team"
	"github.com/mkessler/taskhub/internal/user"
)

// testRouter builds a router with the non-database dependencies filled in.
// Routes that would touch the database are not exercised here.
func testRouter() http.Handler {
	return NewRouter(RouterDeps{
		Guard:          auth.NewGuard(nil, nil),
		LoginLimiter:   ratelimit.New(100, time.Minute),
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"http://localhost:3000"},
		Cookies:        CookieConfig{Name: "taskhub_session"},
	})
}

// ---------------------------------------------------------------------------
// Health check handler tests
// ---------------------------------------------------------------------------

func TestHealthCheck_OK(t *testing.T) {
	handler := testRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status=ok, got %q", body["status"])
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %q", ct)
	}
}

func TestAuthenticatedRoutesRequireSession(t *testing.T) {
	handler := testRouter()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/teams"},
		{http.MethodPost, "/teamCreate"},
		{http.MethodGet, "/tasks"},
		{http.MethodGet, "/me"},
		{http.MethodGet, "/users/1"},
	}

	for _, p := range paths {
		t.Run(p.method+" "+p.path, func(t *testing.T) {
			req := httptest.NewRequest(p.method, p.path, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 without a session cookie, got %d", rec.Code)
			}
		})
	}
}

// TestTaskStatusRoutesUsePut pins the verb for the task mutation routes:
// assignment and status changes are PUTs, not POSTs.
func TestTaskStatusRoutesUsePut(t *testing.T) {
	routes := map[string]bool{}
	err := chi.Walk(testRouter().(chi.Routes), func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes[method+" "+route] = true
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk routes: %v", err)
	}

	for _, op := range []string{"assign", "unassign", "complete", "pending"} {
		if !routes["PUT /tasks/{taskId}/"+op] {
			t.Errorf("expected PUT /tasks/{taskId}/%s to be registered", op)
		}
		if routes["POST /tasks/{taskId}/"+op] {
			t.Errorf("POST /tasks/{taskId}/%s should not be registered", op)
		}
	}
}

// ---------------------------------------------------------------------------
// CORS middleware tests
// ---------------------------------------------------------------------------

func TestCORSMiddleware(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name            string
		allowedOrigins  []string
		requestOrigin   string
		method          string
		wantStatus      int
		wantAllowOrigin string
		wantCredentials string
	}{
		{
			name:            "allowed origin is echoed with credentials",
			allowedOrigins:  []string{"http://localhost:3000"},
			requestOrigin:   "http://localhost:3000",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "http://localhost:3000",
			wantCredentials: "true",
		},
		{
			name:            "unknown origin gets no allow header",
			allowedOrigins:  []string{"http://localhost:3000"},
			requestOrigin:   "https://evil.example",
			method:          http.MethodGet,
			wantStatus:      http.StatusOK,
			wantAllowOrigin: "",
		},
		{
			name:           "preflight short-circuits",
			allowedOrigins: []string{"http://localhost:3000"},
			requestOrigin:  "http://localhost:3000",
			method:         http.MethodOptions,
			wantStatus:     http.StatusNoContent,

			wantAllowOrigin: "http://localhost:3000",
			wantCredentials: "true",
		},
		{
			name:           "no origin header bypasses CORS",
			allowedOrigins: []string{"http://localhost:3000"},
			requestOrigin:  "",
			method:         http.MethodGet,
			wantStatus:     http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := corsMiddleware(tt.allowedOrigins)(inner)

			req := httptest.NewRequest(tt.method, "/teams", nil)
			if tt.requestOrigin != "" {
				req.Header.Set("Origin", tt.requestOrigin)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantAllowOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantAllowOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCredentials {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCredentials)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Security and request-ID middleware tests
// ---------------------------------------------------------------------------

func TestSecureHeaders(t *testing.T) {
	handler := secureHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var ctxID string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = RequestIDFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	// Generated when absent.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	id := rec.Header().Get("X-Request-ID")
	if len(id) != 32 {
		t.Errorf("expected a generated 32-char request id, got %q", id)
	}
	if ctxID != id {
		t.Errorf("context id %q does not match header %q", ctxID, id)
	}

	// Echoed when provided.
	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "client-id-1")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-ID"); got != "client-id-1" {
		t.Errorf("expected client id to be echoed, got %q", got)
	}
}

// ---------------------------------------------------------------------------
// Login rate limit tests
// ---------------------------------------------------------------------------

func TestLoginRateLimit(t *testing.T) {
	limiter := ratelimit.New(2, time.Minute)
	handler := loginRateLimit(limiter, metrics.New())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	doRequest := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}"))
		req.RemoteAddr = "192.0.2.1:50000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := doRequest(); rec.Code != http.StatusOK {
			t.Fatalf("request %d should pass, got %d", i+1, rec.Code)
		}
	}

	rec := doRequest()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
	if rec.Header().Get("X-RateLimit-Limit") != "2" {
		t.Errorf("expected X-RateLimit-Limit=2, got %q", rec.Header().Get("X-RateLimit-Limit"))
	}

	var body errorEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Error.Code != "rate_limited" {
		t.Errorf("expected code rate_limited, got %q", body.Error.Code)
	}

	// A different client IP has its own bucket.
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader("{}"))
	req.RemoteAddr = "192.0.2.2:50000"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("a fresh client should not be limited, got %d", rec.Code)
	}
}

// ---------------------------------------------------------------------------
// Error mapping tests
// ---------------------------------------------------------------------------

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{name: "username length", err: auth.ErrUsernameLength, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "team name invalid", err: team.ErrNameInvalid, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "task title length", err: task.ErrTitleLength, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "search query length", err: task.ErrQueryLength, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "assignee not member", err: task.ErrAssigneeNotMember, wantStatus: http.StatusBadRequest, wantCode: "invalid_reference"},
		{name: "invalid reference", err: team.ErrInvalidReference, wantStatus: http.StatusBadRequest, wantCode: "invalid_reference"},
		{name: "bad credentials", err: auth.ErrInvalidCredentials, wantStatus: http.StatusUnauthorized, wantCode: "unauthorized"},
		{name: "creator immutable", err: team.ErrCreatorImmutable, wantStatus: http.StatusBadRequest, wantCode: "validation_error"},
		{name: "remove not permitted", err: team.ErrRemoveForbidden, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "not a team member", err: task.ErrNotTeamMember, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "no shared team", err: task.ErrNoSharedTeam, wantStatus: http.StatusForbidden, wantCode: "forbidden"},
		{name: "user not found", err: user.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "task not found", err: task.ErrNotFound, wantStatus: http.StatusNotFound, wantCode: "not_found"},
		{name: "username taken", err: user.ErrUsernameTaken, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "team name taken", err: team.ErrNameTaken, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "already a member", err: team.ErrAlreadyMember, wantStatus: http.StatusConflict, wantCode: "conflict"},
		{name: "unknown error", err: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantCode: "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeServiceError(rec, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			var body errorEnvelope
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Error.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Error.Code, tt.wantCode)
			}
			if tt.wantCode == "internal_error" && strings.Contains(body.Error.Message, "boom") {
				t.Error("internal error detail must not leak to clients")
			}
		})
	}
}

func TestReadJSON_RejectsGarbage(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{not json"))
	var v map[string]interface{}
	if err := readJSON(req, &v); err == nil {
		t.Fatal("expected a decode error")
	}
}
