package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
)

// DemoAccount is one seeded login. Accounts with an empty password are skipped.
type DemoAccount struct {
	Username string
	Email    string
	Password string
	Role     string
}

type demoTask struct {
	title, description string
	status             task.Status
	priority           task.Priority
}

var demoTasks = map[string][]demoTask{
	user.RoleAdmin: {
		{"Complete project documentation", "Write comprehensive documentation for the task management system", task.StatusInProgress, task.PriorityHigh},
		{"Review code quality", "Perform code review and ensure best practices are followed", task.StatusPending, task.PriorityMedium},
		{"Setup CI/CD pipeline", "Configure automated testing and deployment pipeline", task.StatusCompleted, task.PriorityHigh},
	},
	user.RoleUser: {
		{"Learn Go generics", "Study and practice type parameters in real code", task.StatusInProgress, task.PriorityMedium},
		{"Update profile information", "Complete personal profile with relevant information", task.StatusPending, task.PriorityLow},
		{"Test API endpoints", "Thoroughly test all API endpoints for proper functionality", task.StatusCompleted, task.PriorityHigh},
	},
}

// SeedDemo creates the demo accounts that do not exist yet and, when the store
// holds no tasks at all, a few sample tasks for each of them. It is idempotent.
func SeedDemo(ctx context.Context, store repo.Store, hasher *security.Hasher, accounts []DemoAccount) error {
	seeded := make([]user.User, 0, len(accounts))

	for _, acc := range accounts {
		if acc.Password == "" || acc.Email == "" {
			continue
		}

		u, err := store.GetUserByEmail(ctx, acc.Email)
		if err == nil {
			seeded = append(seeded, u)
			continue
		}
		if !errors.Is(err, user.ErrNotFound) {
			return err
		}

		hash, err := hasher.Hash(acc.Password)
		if err != nil {
			return err
		}

		u, err = store.CreateUser(ctx, user.New(acc.Username, acc.Email, hash, acc.Role))
		if err != nil {
			return err
		}

		slog.Info("demo user created", "email", u.Email, "role", u.Role)
		seeded = append(seeded, u)
	}

	stats, err := store.TaskStats(ctx, nil)
	if err != nil {
		return err
	}
	if stats.Total > 0 {
		return nil
	}

	for _, u := range seeded {
		for _, dt := range demoTasks[u.Role] {
			t := task.New(u.ID, dt.title, dt.description, dt.status, dt.priority)
			if _, err := store.CreateTask(ctx, t); err != nil {
				return err
			}
		}
	}

	slog.Info("demo tasks created", "owners", len(seeded))
	return nil
}
