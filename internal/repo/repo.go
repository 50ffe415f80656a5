// Package repo defines the persistence contract shared by every store backend.
package repo

import (
	"context"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// Users persists user records. Username and email are unique across all users;
// violations surface as user.ErrUsernameTaken or user.ErrEmailTaken.
type Users interface {
	CreateUser(ctx context.Context, u user.User) (user.User, error)
	GetUserByID(ctx context.Context, id string) (user.User, error)
	GetUserByEmail(ctx context.Context, email string) (user.User, error)
	GetUserByUsername(ctx context.Context, username string) (user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
	// UpdateUser replaces username, email, password hash and updated_at.
	UpdateUser(ctx context.Context, u user.User) (user.User, error)
	// DeleteUser removes the user and every task they own.
	DeleteUser(ctx context.Context, id string) error
	UserStats(ctx context.Context) (user.Stats, error)
}

// Tasks persists task records. Lists are ordered newest first.
type Tasks interface {
	CreateTask(ctx context.Context, t task.Task) (task.Task, error)
	GetTaskByID(ctx context.Context, id string) (task.Task, error)
	// ListTasks returns one page plus the number of tasks matching the filter.
	ListTasks(ctx context.Context, f task.Filter) ([]task.Task, int, error)
	// UpdateTask replaces title, description, status, priority and updated_at.
	UpdateTask(ctx context.Context, t task.Task) (task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	// TaskStats counts tasks of one owner, or of everyone when ownerID is nil.
	TaskStats(ctx context.Context, ownerID *string) (task.Stats, error)
}

type Store interface {
	Users
	Tasks
	Ping(ctx context.Context) error
	Close() error
}
