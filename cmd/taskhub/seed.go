package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mkessler/taskhub/internal/config"
	"github.com/mkessler/taskhub/internal/task"
	"github.com/mkessler/taskhub/internal/team"
	"github.com/mkessler/taskhub/internal/user"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed demo users, a team, and sample tasks",
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

var demoUsers = []user.CreateUserInput{
	{Username: "alice", Email: "alice@example.com", Password: "correcthorse"},
	{Username: "bob", Email: "bob@example.com", Password: "batterystaple"},
	{Username: "carol", Email: "carol@example.com", Password: "tr0ub4dor&3"},
}

var demoTasks = []struct {
	title       string
	description string
	assignee    int // index into demoUsers, -1 for unassigned
}{
	{"Set up project board", "Create the initial columns and labels.", 0},
	{"Write onboarding doc", "Cover local setup and the release process.", 1},
	{"Review API error codes", "Audit handler responses against the docs.", 2},
	{"Triage incoming bug reports", "", -1},
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	userStore := user.NewStore(pool, user.StoreOptions{
		BcryptCost: cfg.Auth.BcryptCost,
		SessionTTL: cfg.Auth.SessionTTL,
	})
	teamStore := team.NewStore(pool)
	teamService := team.NewService(teamStore)
	taskStore := task.NewStore(pool)
	taskService := task.NewService(taskStore, teamStore)

	// Check if seed has already run.
	if _, err := userStore.GetByUsername(ctx, demoUsers[0].Username); err == nil {
		slog.Info("demo data already exists, skipping seed")
		return nil
	}

	// Create users.
	users := make([]*user.User, 0, len(demoUsers))
	for _, input := range demoUsers {
		u, err := userStore.Create(ctx, input)
		if err != nil {
			return fmt.Errorf("creating user %q: %w", input.Username, err)
		}
		slog.Info("created user", "username", u.Username, "id", u.ID)
		users = append(users, u)
	}

	// Create a team owned by the first user and add the rest.
	t, err := teamService.Create(ctx, team.CreateTeamInput{
		Name:        "Demo Team",
		Description: "A sample team seeded for local development.",
	}, users[0].ID)
	if err != nil {
		return fmt.Errorf("creating demo team: %w", err)
	}
	for _, u := range users[1:] {
		if _, err := teamService.AddMember(ctx, t.ID, u.ID); err != nil {
			return fmt.Errorf("adding member %q: %w", u.Username, err)
		}
	}
	slog.Info("created team", "name", t.Name, "id", t.ID, "members", len(users))

	// Create tasks.
	for _, dt := range demoTasks {
		in := task.CreateTaskInput{
			Title:       dt.title,
			Description: dt.description,
			TeamID:      t.ID,
		}
		if dt.assignee >= 0 {
			in.AssignedTo = &users[dt.assignee].ID
		}
		created, err := taskService.Create(ctx, in, users[0].ID)
		if err != nil {
			return fmt.Errorf("creating task %q: %w", dt.title, err)
		}
		slog.Info("created task", "title", created.Title, "id", created.ID)
	}

	fmt.Printf("\n=== Demo Data Seeded ===\n")
	fmt.Printf("Users:  %d (password for %s: %s)\n", len(users), demoUsers[0].Email, demoUsers[0].Password)
	fmt.Printf("Team:   %s (id %d)\n", t.Name, t.ID)
	fmt.Printf("Tasks:  %d\n", len(demoTasks))
	fmt.Printf("\nTry it:\n")
	fmt.Printf("  curl -c /tmp/th.jar -X POST localhost:%d/login -d '{\"email\":%q,\"password\":%q}'\n",
		cfg.Server.Port, demoUsers[0].Email, demoUsers[0].Password)
	fmt.Printf("  curl -b /tmp/th.jar localhost:%d/teams\n", cfg.Server.Port)

	return nil
}
