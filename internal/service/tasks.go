package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/repo"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Requester is who is asking; admins see and mutate every task.
type Requester struct {
	ID    string
	Admin bool
}

// Scope is the owner filter a listing runs under: nil for admins.
func (r Requester) Scope() *string {
	if r.Admin {
		return nil
	}
	id := r.ID
	return &id
}

func (r Requester) canAccess(t task.Task) bool {
	return r.Admin || t.OwnerID == r.ID
}

type CreateInput struct {
	Title       string
	Description string
	Status      task.Status
	Priority    task.Priority
}

type ListQuery struct {
	Status   *task.Status
	Priority *task.Priority
	Search   *string
	OwnerID  *string
	Page     int
	Limit    int
}

type Pagination struct {
	Page    int  `json:"page"`
	Limit   int  `json:"limit"`
	Total   int  `json:"total"`
	HasNext bool `json:"hasNext"`
	HasPrev bool `json:"hasPrev"`
}

type TaskPage struct {
	Tasks      []task.Task
	Pagination Pagination
}

type TaskService struct {
	tasks repo.Tasks
}

func NewTaskService(tasks repo.Tasks) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) Create(ctx context.Context, ownerID string, in CreateInput) (task.Task, error) {
	t := task.New(ownerID, in.Title, in.Description, in.Status, in.Priority)

	created, err := s.tasks.CreateTask(ctx, t)
	if err != nil {
		return task.Task{}, fmt.Errorf("create task: %w", err)
	}
	return created, nil
}

// List returns one page, newest first, with an exact total.
func (s *TaskService) List(ctx context.Context, q ListQuery) (TaskPage, error) {
	page, limit := normalizePage(q.Page, q.Limit)

	if q.Search != nil {
		term := strings.TrimSpace(*q.Search)
		if term == "" {
			q.Search = nil
		} else {
			q.Search = &term
		}
	}

	items, total, err := s.tasks.ListTasks(ctx, task.Filter{
		OwnerID:  q.OwnerID,
		Status:   q.Status,
		Priority: q.Priority,
		Search:   q.Search,
		Limit:    limit,
		Offset:   (page - 1) * limit,
	})
	if err != nil {
		return TaskPage{}, fmt.Errorf("list tasks: %w", err)
	}

	return TaskPage{
		Tasks: items,
		Pagination: Pagination{
			Page:    page,
			Limit:   limit,
			Total:   total,
			HasNext: page*limit < total,
			HasPrev: page > 1,
		},
	}, nil
}

// Search is a case-insensitive substring match over title and description,
// scoped to ownerID (nil for everyone).
func (s *TaskService) Search(ctx context.Context, term string, ownerID *string, page, limit int) (TaskPage, error) {
	return s.List(ctx, ListQuery{Search: &term, OwnerID: ownerID, Page: page, Limit: limit})
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return page, limit
}

func (s *TaskService) Get(ctx context.Context, id string, req Requester) (task.Task, error) {
	t, err := s.tasks.GetTaskByID(ctx, id)
	if err != nil {
		return task.Task{}, fmt.Errorf("get task: %w", err)
	}
	if !req.canAccess(t) {
		return task.Task{}, ErrAccessDenied
	}
	return t, nil
}

func (s *TaskService) Update(ctx context.Context, id string, p task.Patch, req Requester) (task.Task, error) {
	if p.Empty() {
		return task.Task{}, ErrEmptyPatch
	}

	cur, err := s.accessible(ctx, id, req)
	if err != nil {
		return task.Task{}, err
	}

	updated, err := s.tasks.UpdateTask(ctx, p.Apply(cur))
	if errors.Is(err, task.ErrNotFound) {
		return task.Task{}, ErrTaskNotFoundOrDenied
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("update task: %w", err)
	}
	return updated, nil
}

func (s *TaskService) Delete(ctx context.Context, id string, req Requester) error {
	if _, err := s.accessible(ctx, id, req); err != nil {
		return err
	}

	err := s.tasks.DeleteTask(ctx, id)
	if errors.Is(err, task.ErrNotFound) {
		return ErrTaskNotFoundOrDenied
	}
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// accessible folds "missing" and "not yours" into one error so callers
// cannot probe for other users' task ids.
func (s *TaskService) accessible(ctx context.Context, id string, req Requester) (task.Task, error) {
	t, err := s.tasks.GetTaskByID(ctx, id)
	if errors.Is(err, task.ErrNotFound) {
		return task.Task{}, ErrTaskNotFoundOrDenied
	}
	if err != nil {
		return task.Task{}, fmt.Errorf("load task: %w", err)
	}
	if !req.canAccess(t) {
		return task.Task{}, ErrTaskNotFoundOrDenied
	}
	return t, nil
}

// Stats counts tasks for ownerID, or system wide when ownerID is nil.
func (s *TaskService) Stats(ctx context.Context, ownerID *string) (task.Stats, error) {
	st, err := s.tasks.TaskStats(ctx, ownerID)
	if err != nil {
		return task.Stats{}, fmt.Errorf("task stats: %w", err)
	}
	return st, nil
}
