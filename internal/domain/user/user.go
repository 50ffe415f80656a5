package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

var (
	ErrNotFound      = errors.New("user not found")
	ErrEmailTaken    = errors.New("user with this email already exists")
	ErrUsernameTaken = errors.New("username already taken")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Stats is the admin view of the user base.
type Stats struct {
	Total  int `json:"total"`
	Admins int `json:"admins"`
	Users  int `json:"users"`
}

func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// New builds a user record ready to be persisted. An empty role falls back to RoleUser.
func New(username, email, passwordHash, role string) User {
	if role == "" {
		role = RoleUser
	}

	now := Now()

	return User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Now is the timestamp source for user records. Microsecond precision keeps
// values identical across every store backend.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
