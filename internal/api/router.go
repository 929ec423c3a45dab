package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkessler/taskhub/internal/activity"
	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/metrics"
	"github.com/mkessler/taskhub/internal/ratelimit"
	"github.com/mkessler/taskhub/internal/task"
	"github.com/mkessler/taskhub/internal/team"
	"github.com/mkessler/taskhub/internal/user"
)

// RouterDeps holds all dependencies for the API router.
type RouterDeps struct {
	Auth           *auth.Service
	Guard          *auth.Guard
	Teams          *team.Service
	Tasks          *task.Service
	Sessions       *user.Store
	Activity       *activity.Collector
	ActivityStore  *activity.Store
	LoginLimiter   *ratelimit.Limiter
	Metrics        *metrics.Metrics
	DBPool         *pgxpool.Pool
	AllowedOrigins []string
	Cookies        CookieConfig
}

// NewRouter builds the chi router with all routes and middleware.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chimw.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(secureHeaders)
	r.Use(corsMiddleware(deps.AllowedOrigins))
	r.Use(slogRequestLogger)
	r.Use(metricsMiddleware(deps.Metrics))

	// Handlers.
	authH := newAuthHandler(deps.Auth, deps.Cookies, deps.Metrics)
	usersH := newUsersHandler(deps.Sessions)
	teamsH := newTeamsHandler(deps.Teams, deps.Activity, deps.ActivityStore, deps.Metrics)
	tasksH := newTasksHandler(deps.Tasks, deps.Activity, deps.Metrics)

	// Health check.
	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if deps.DBPool != nil {
			if err := deps.DBPool.Ping(req.Context()); err != nil {
				writeError(w, http.StatusServiceUnavailable, "unavailable", "database unreachable")
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Metrics.
	r.Get("/metrics", deps.Metrics.Handler())
	r.Method(http.MethodGet, "/metrics/prometheus", deps.Metrics.ExpositionHandler())

	// Public (unauthenticated) routes. Credential endpoints share the login
	// limiter to blunt brute forcing.
	throttled := loginRateLimit(deps.LoginLimiter, deps.Metrics)
	r.With(throttled).Post("/authRegister", authH.Register)
	r.With(throttled).Post("/login", authH.Login)
	r.Post("/logout", authH.Logout)

	// Session-authed routes.
	r.Group(func(sr chi.Router) {
		sr.Use(auth.SessionMiddleware(deps.Sessions, deps.Cookies.Name))

		sr.Get("/me", authH.Me)
		sr.With(deps.Guard.RequireAccess(auth.ResourceUser, "userId")).
			Get("/users/{userId}", usersH.Get)

		// Teams.
		sr.Post("/teamCreate", teamsH.Create)
		sr.Get("/teams", teamsH.List)
		sr.Route("/teams/{teamId}", func(tr chi.Router) {
			tr.With(deps.Guard.RequireTeamMember("teamId")).Get("/", teamsH.Get)
			tr.With(deps.Guard.RequireTeamCreator("teamId")).Put("/", teamsH.Update)
			tr.With(deps.Guard.RequireTeamCreator("teamId")).Delete("/", teamsH.Delete)

			tr.Group(func(mr chi.Router) {
				mr.Use(deps.Guard.RequireTeamMember("teamId"))
				mr.Get("/members", teamsH.Members)
				mr.Post("/members", teamsH.AddMember)
				mr.Delete("/members/{userId}", teamsH.RemoveMember)
				mr.Get("/tasks", tasksH.ByTeam)
				mr.Get("/statistics", teamsH.Statistics)
				mr.Get("/activity", teamsH.Activity)
			})
		})

		// Tasks.
		sr.Route("/tasks", func(tr chi.Router) {
			tr.Post("/", tasksH.Create)
			tr.Get("/", tasksH.List)
			tr.Get("/my-tasks", tasksH.MyTasks)
			tr.Get("/search", tasksH.Search)
			tr.With(deps.Guard.RequireTeamMember("teamId")).Get("/team/{teamId}", tasksH.ByTeam)
			tr.Get("/user/{userId}", tasksH.ByUser)

			tr.Route("/{taskId}", func(tk chi.Router) {
				tk.Use(deps.Guard.RequireTaskAccess("taskId"))
				tk.Get("/", tasksH.Get)
				tk.Put("/", tasksH.Update)
				tk.Delete("/", tasksH.Delete)
				tk.Put("/assign", tasksH.Assign)
				tk.Put("/unassign", tasksH.Unassign)
				tk.Put("/complete", tasksH.Complete)
				tk.Put("/pending", tasksH.Reopen)
			})
		})
	})

	return r
}

// slogRequestLogger is a simple structured logging middleware using slog.
func slogRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		slog.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", ww.BytesWritten(),
			"request_id", RequestIDFromContext(r.Context()),
		)
	})
}
