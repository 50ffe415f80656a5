// Package actorctx carries the authenticated caller on a request context.
package actorctx

import (
	"context"

	"github.com/geocoder89/taskhub/internal/domain/user"
)

type ctxKey struct{}

// Actor is the resolved identity behind a verified token.
type Actor struct {
	ID       string
	Username string
	Email    string
	Role     string
}

func (a Actor) IsAdmin() bool {
	return a.Role == user.RoleAdmin
}

func FromUser(u user.User) Actor {
	return Actor{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}
}

func With(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

func From(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.ID != ""
}
