package client

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Register(ctx context.Context, r Registration) (Session, error) {
	var s Session
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", nil, r, &s); err != nil {
		return Session{}, err
	}
	c.setSession(s)
	return s, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (Session, error) {
	var s Session
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/login", nil, body, &s); err != nil {
		return Session{}, err
	}
	c.setSession(s)
	return s, nil
}

type userData struct {
	User User `json:"user"`
}

func (c *Client) Profile(ctx context.Context) (User, error) {
	var d userData
	if _, err := c.do(ctx, http.MethodGet, "/auth/profile", nil, nil, &d); err != nil {
		return User{}, err
	}
	c.setUser(d.User)
	return d.User, nil
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) (User, error) {
	var d userData
	if _, err := c.do(ctx, http.MethodPut, "/auth/profile", nil, p, &d); err != nil {
		return User{}, err
	}
	c.setUser(d.User)
	return d.User, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	_, err := c.do(ctx, http.MethodPut, "/auth/change-password", nil, body, nil)
	return err
}

// admin

// ListUsers returns every user with role counts. GET /users serves the same
// payload as /auth/users.
func (c *Client) ListUsers(ctx context.Context) (UserList, error) {
	var l UserList
	_, err := c.do(ctx, http.MethodGet, "/auth/users", nil, nil, &l)
	return l, err
}

func (c *Client) UserStats(ctx context.Context) (UserStats, error) {
	var d struct {
		Stats UserStats `json:"stats"`
	}
	_, err := c.do(ctx, http.MethodGet, "/users/stats", nil, nil, &d)
	return d.Stats, err
}

func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var d userData
	_, err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &d)
	return d.User, err
}

func (c *Client) UpdateUser(ctx context.Context, id string, p ProfileUpdate) (User, error) {
	var d userData
	_, err := c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(id), nil, p, &d)
	return d.User, err
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/auth/users/"+url.PathEscape(id), nil, nil, nil)
	return err
}
