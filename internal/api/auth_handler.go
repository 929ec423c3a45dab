package api

import (
	"net/http"

	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/metrics"
)

// CookieConfig controls the session cookie issued on login.
type CookieConfig struct {
	Name   string
	Secure bool
	MaxAge int // seconds
}

// authHandler groups authentication HTTP handlers.
type authHandler struct {
	auth    *auth.Service
	cookies CookieConfig
	metrics *metrics.Metrics
}

func newAuthHandler(svc *auth.Service, cookies CookieConfig, m *metrics.Metrics) *authHandler {
	return &authHandler{auth: svc, cookies: cookies, metrics: m}
}

// Register handles POST /authRegister.
func (h *authHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterInput
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	u, err := h.auth.Register(r.Context(), req)
	if err != nil {
		h.metrics.IncAuthFailure("register")
		writeServiceError(w, err)
		return
	}

	h.metrics.IncAuthSuccess("register")
	writeJSON(w, http.StatusCreated, u)
}

// Login handles POST /login. On success it sets the session cookie.
func (h *authHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "failed to parse request body")
		return
	}

	u, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.metrics.IncAuthFailure("login")
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie(token, h.cookies.MaxAge))
	h.metrics.IncAuthSuccess("login")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": u,
	})
}

// Logout handles POST /logout. It invalidates the session and clears the
// cookie. Logging out without a session still succeeds.
func (h *authHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := auth.SessionTokenFromRequest(r, h.cookies.Name)
	if err := h.auth.Logout(r.Context(), token); err != nil {
		writeServiceError(w, err)
		return
	}

	http.SetCookie(w, h.sessionCookie("", -1))
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// Me handles GET /me, returning the authenticated user.
func (h *authHandler) Me(w http.ResponseWriter, r *http.Request) {
	u := auth.UserFromContext(r.Context())
	if u == nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", "not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *authHandler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookies.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
