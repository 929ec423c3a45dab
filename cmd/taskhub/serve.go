package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkessler/taskhub/internal/activity"
	"github.com/mkessler/taskhub/internal/api"
	"github.com/mkessler/taskhub/internal/auth"
	"github.com/mkessler/taskhub/internal/config"
	"github.com/mkessler/taskhub/internal/metrics"
	"github.com/mkessler/taskhub/internal/ratelimit"
	"github.com/mkessler/taskhub/internal/task"
	"github.com/mkessler/taskhub/internal/team"
	"github.com/mkessler/taskhub/internal/user"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the TaskHub API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return err
	}
	slog.Info("connected to database")

	m := metrics.New()
	m.RegisterDBPoolCollector(func() metrics.DBPoolStats {
		st := pool.Stat()
		return metrics.DBPoolStats{
			TotalConns:    int(st.TotalConns()),
			IdleConns:     int(st.IdleConns()),
			AcquiredConns: int(st.AcquiredConns()),
		}
	})

	userStore := user.NewStore(pool, user.StoreOptions{
		BcryptCost: cfg.Auth.BcryptCost,
		SessionTTL: cfg.Auth.SessionTTL,
	})
	teamStore := team.NewStore(pool)
	taskStore := task.NewStore(pool)

	activityStore := activity.NewStore(pool)
	collector := activity.NewCollector(activityStore, m, cfg.Activity.BatchSize, cfg.Activity.FlushInterval)
	go collector.Start(ctx)

	authService := auth.NewService(userStore, userStore)
	teamService := team.NewService(teamStore)
	taskService := task.NewService(taskStore, teamStore)
	guard := auth.NewGuard(teamStore, taskStore)

	loginLimiter := ratelimit.New(cfg.RateLimit.Login, cfg.RateLimit.Window)

	router := api.NewRouter(api.RouterDeps{
		Auth:           authService,
		Guard:          guard,
		Teams:          teamService,
		Tasks:          taskService,
		Sessions:       userStore,
		Activity:       collector,
		ActivityStore:  activityStore,
		LoginLimiter:   loginLimiter,
		Metrics:        m,
		DBPool:         pool,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Cookies: api.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.SecureCookies,
			MaxAge: int(cfg.Auth.SessionTTL.Seconds()),
		},
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Expired sessions pile up without an occasional sweep.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if n, err := userStore.CleanExpiredSessions(ctx); err != nil {
					slog.Error("session cleanup failed", "error", err)
				} else if n > 0 {
					slog.Info("cleaned expired sessions", "count", n)
				}
			}
		}
	}()

	<-sigCh
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	collector.Stop()

	return srv.Shutdown(shutdownCtx)
}
