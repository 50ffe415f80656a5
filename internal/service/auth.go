package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo"
	"github.com/geocoder89/taskhub/internal/security"
)

type RegisterInput struct {
	Username  string
	Email     string
	Password  string
	Role      string
	AdminCode string
}

// ProfilePatch carries a partial username/email update. Nil fields are left untouched.
type ProfilePatch struct {
	Username *string
	Email    *string
}

func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.Email == nil
}

// Session is what a successful register or login hands back to the client.
type Session struct {
	User  user.User `json:"user"`
	Token string    `json:"token"`
}

type UserList struct {
	Users []user.User `json:"users"`
	Stats user.Stats  `json:"stats"`
}

type AuthService struct {
	users      repo.Users
	hasher     *security.Hasher
	tokens     *auth.Manager
	adminCode  string
	identities *cache.Cache[user.User]

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the auth flows. An empty adminCode disables admin
// self-registration entirely.
func NewAuthService(users repo.Users, hasher *security.Hasher, tokens *auth.Manager, adminCode string, identityTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		hasher:     hasher,
		tokens:     tokens,
		adminCode:  adminCode,
		identities: cache.New[user.User](identityTTL),
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (Session, error) {
	if _, err := s.users.GetUserByEmail(ctx, in.Email); err == nil {
		return Session{}, user.ErrEmailTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	if _, err := s.users.GetUserByUsername(ctx, in.Username); err == nil {
		return Session{}, user.ErrUsernameTaken
	} else if !errors.Is(err, user.ErrNotFound) {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	role := in.Role
	if role == "" {
		role = user.RoleUser
	}
	if !user.ValidRole(role) {
		return Session{}, fmt.Errorf("register: unknown role %q", role)
	}
	if role == user.RoleAdmin && !s.adminCodeMatches(in.AdminCode) {
		return Session{}, ErrInvalidAdminCode
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return Session{}, fmt.Errorf("register: hash password: %w", err)
	}

	u, err := s.users.CreateUser(ctx, user.New(in.Username, in.Email, hash, role))
	if err != nil {
		return Session{}, fmt.Errorf("register: %w", err)
	}

	return s.session(u)
}

func (s *AuthService) adminCodeMatches(code string) bool {
	if s.adminCode == "" || code == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(code), []byte(s.adminCode)) == 1
}

// Login answers ErrInvalidCredentials for an unknown email and a wrong
// password alike, and spends a bcrypt comparison in both cases.
func (s *AuthService) Login(ctx context.Context, email, password string) (Session, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, user.ErrNotFound) {
		_ = s.hasher.Check(s.placeholderHash(), password)
		return Session{}, ErrInvalidCredentials
	}
	if err != nil {
		return Session{}, fmt.Errorf("login: %w", err)
	}

	if err := s.hasher.Check(u.PasswordHash, password); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("login: %w", err)
	}

	return s.session(u)
}

func (s *AuthService) placeholderHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("placeholder-password")
	})
	return s.dummyHash
}

func (s *AuthService) session(u user.User) (Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: u, Token: token}, nil
}

func (s *AuthService) Profile(ctx context.Context, userID string) (user.User, error) {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return user.User{}, fmt.Errorf("profile: %w", err)
	}
	return u, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID string, p ProfilePatch) (user.User, error) {
	if p.Empty() {
		return user.User{}, ErrEmptyPatch
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return user.User{}, fmt.Errorf("update profile: %w", err)
	}

	if p.Username != nil {
		u.Username = *p.Username
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	u.UpdatedAt = user.Now()

	updated, err := s.users.UpdateUser(ctx, u)
	if err != nil {
		return user.User{}, fmt.Errorf("update profile: %w", err)
	}

	s.identities.Delete(userID)
	return updated, nil
}

func (s *AuthService) ChangePassword(ctx context.Context, userID, current, next string) error {
	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	if err := s.hasher.Check(u.PasswordHash, current); err != nil {
		if errors.Is(err, security.ErrPasswordMismatch) {
			return ErrWrongPassword
		}
		return fmt.Errorf("change password: %w", err)
	}

	hash, err := s.hasher.Hash(next)
	if err != nil {
		return fmt.Errorf("change password: hash: %w", err)
	}

	u.PasswordHash = hash
	u.UpdatedAt = user.Now()

	if _, err := s.users.UpdateUser(ctx, u); err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.identities.Delete(userID)
	return nil
}

// admin

func (s *AuthService) ListUsers(ctx context.Context) (UserList, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return UserList{}, fmt.Errorf("list users: %w", err)
	}

	stats, err := s.users.UserStats(ctx)
	if err != nil {
		return UserList{}, fmt.Errorf("user stats: %w", err)
	}

	return UserList{Users: users, Stats: stats}, nil
}

func (s *AuthService) GetUser(ctx context.Context, id string) (user.User, error) {
	u, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return user.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// AdminUpdateUser edits another account's username or email under the same
// uniqueness rules as a self-service profile update.
func (s *AuthService) AdminUpdateUser(ctx context.Context, id string, p ProfilePatch) (user.User, error) {
	return s.UpdateProfile(ctx, id, p)
}

func (s *AuthService) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return ErrSelfDelete
	}

	if err := s.users.DeleteUser(ctx, targetID); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.identities.Delete(targetID)
	return nil
}

func (s *AuthService) UserStats(ctx context.Context) (user.Stats, error) {
	st, err := s.users.UserStats(ctx)
	if err != nil {
		return user.Stats{}, fmt.Errorf("user stats: %w", err)
	}
	return st, nil
}

// Identity resolves the user behind a verified token, served from a short
// lived cache so every authenticated request does not hit the store.
func (s *AuthService) Identity(ctx context.Context, userID string) (user.User, error) {
	if u, ok := s.identities.Get(userID); ok {
		return u, nil
	}

	u, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return user.User{}, err
	}

	s.identities.Set(userID, u)
	return u, nil
}

// Authenticate verifies a bearer token and resolves its user.
func (s *AuthService) Authenticate(ctx context.Context, token string) (user.User, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return user.User{}, err
	}

	u, err := s.Identity(ctx, claims.UserID())
	if errors.Is(err, user.ErrNotFound) {
		// token outlived its account
		return user.User{}, auth.ErrTokenInvalid
	}
	return u, err
}
