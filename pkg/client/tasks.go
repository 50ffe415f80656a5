package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

type taskData struct {
	Task Task `json:"task"`
}

func (c *Client) CreateTask(ctx context.Context, t NewTask) (Task, error) {
	var d taskData
	_, err := c.do(ctx, http.MethodPost, "/tasks", nil, t, &d)
	return d.Task, err
}

// ListTasks lists every task the session may see: all of them for admins.
func (c *Client) ListTasks(ctx context.Context, q TaskQuery) (TaskPage, error) {
	return c.listTasks(ctx, "/tasks", q)
}

// MyTasks lists only the session's own tasks.
func (c *Client) MyTasks(ctx context.Context, q TaskQuery) (TaskPage, error) {
	return c.listTasks(ctx, "/tasks/my", q)
}

func (c *Client) listTasks(ctx context.Context, path string, q TaskQuery) (TaskPage, error) {
	var d struct {
		Tasks []Task `json:"tasks"`
	}
	env, err := c.do(ctx, http.MethodGet, path, q.values(), nil, &d)
	if err != nil {
		return TaskPage{}, err
	}

	page := TaskPage{Tasks: d.Tasks}
	if env.Pagination != nil {
		page.Pagination = *env.Pagination
	}
	return page, nil
}

func (q TaskQuery) values() url.Values {
	v := url.Values{}
	if q.Status != "" {
		v.Set("status", q.Status)
	}
	if q.Priority != "" {
		v.Set("priority", q.Priority)
	}
	if q.Search != "" {
		v.Set("search", q.Search)
	}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *Client) GetTask(ctx context.Context, id string) (Task, error) {
	var d taskData
	_, err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &d)
	return d.Task, err
}

func (c *Client) UpdateTask(ctx context.Context, id string, u TaskUpdate) (Task, error) {
	var d taskData
	_, err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, u, &d)
	return d.Task, err
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, nil)
	return err
}

func (c *Client) TaskStats(ctx context.Context) (TaskStats, error) {
	var d struct {
		Stats TaskStats `json:"stats"`
	}
	_, err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, nil, &d)
	return d.Stats, err
}
