package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/geocoder89/taskhub/internal/actorctx"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/service"
)

// Keep this small interface so tests can fake it easily.
type TaskService interface {
	Create(ctx context.Context, ownerID string, in service.CreateInput) (task.Task, error)
	List(ctx context.Context, q service.ListQuery) (service.TaskPage, error)
	Get(ctx context.Context, id string, req service.Requester) (task.Task, error)
	Update(ctx context.Context, id string, p task.Patch, req service.Requester) (task.Task, error)
	Delete(ctx context.Context, id string, req service.Requester) error
	Stats(ctx context.Context, ownerID *string) (task.Stats, error)
}

type TasksHandler struct {
	tasks   TaskService
	timeout time.Duration
}

func NewTasksHandler(tasks TaskService, timeout time.Duration) *TasksHandler {
	return &TasksHandler{tasks: tasks, timeout: timeout}
}

func requester(a actorctx.Actor) service.Requester {
	return service.Requester{ID: a.ID, Admin: a.IsAdmin()}
}

func (h *TasksHandler) actor(ctx *gin.Context) (actorctx.Actor, bool) {
	a, ok := middlewares.ActorFrom(ctx)
	if !ok {
		RespondUnauthorized(ctx, "Access denied. No token provided.")
	}
	return a, ok
}

func (h *TasksHandler) Create(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}

	var req task.CreateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	t, err := h.tasks.Create(cctx, a.ID, service.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      task.Status(req.Status),
		Priority:    task.Priority(req.Priority),
	})
	if err != nil {
		RespondServiceError(ctx, err, "Could not create task")
		return
	}

	RespondCreated(ctx, "Task created successfully", gin.H{"task": t})
}

// List serves GET /tasks: admins see every task, users only their own.
func (h *TasksHandler) List(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}
	h.list(ctx, requester(a).Scope(), "Tasks retrieved successfully")
}

// Mine serves GET /tasks/my, always scoped to the caller.
func (h *TasksHandler) Mine(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}
	id := a.ID
	h.list(ctx, &id, "Your tasks retrieved successfully")
}

func (h *TasksHandler) list(ctx *gin.Context, ownerID *string, message string) {
	var q task.ListTasksQuery
	if !BindQuery(ctx, &q) {
		return
	}

	lq := service.ListQuery{OwnerID: ownerID, Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		s := task.Status(q.Status)
		lq.Status = &s
	}
	if q.Priority != "" {
		p := task.Priority(q.Priority)
		lq.Priority = &p
	}
	if q.Search != "" {
		lq.Search = &q.Search
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	page, err := h.tasks.List(cctx, lq)
	if err != nil {
		RespondServiceError(ctx, err, "Could not list tasks")
		return
	}

	RespondPage(ctx, message, gin.H{"tasks": page.Tasks}, page.Pagination)
}

func (h *TasksHandler) Stats(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	st, err := h.tasks.Stats(cctx, requester(a).Scope())
	if err != nil {
		RespondServiceError(ctx, err, "Could not load task statistics")
		return
	}

	RespondOK(ctx, "Task statistics retrieved successfully", gin.H{"stats": st})
}

func (h *TasksHandler) Get(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	t, err := h.tasks.Get(cctx, ctx.Param("id"), requester(a))
	if err != nil {
		RespondServiceError(ctx, err, "Could not load task")
		return
	}

	RespondOKWithETag(ctx, "Task retrieved successfully", gin.H{"task": t})
}

func (h *TasksHandler) Update(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}

	var req task.UpdateTaskRequest
	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	t, err := h.tasks.Update(cctx, ctx.Param("id"), req.Patch(), requester(a))
	if err != nil {
		RespondServiceError(ctx, err, "Could not update task")
		return
	}

	RespondOK(ctx, "Task updated successfully", gin.H{"task": t})
}

func (h *TasksHandler) Delete(ctx *gin.Context) {
	a, ok := h.actor(ctx)
	if !ok {
		return
	}

	cctx, cancel := storeContext(ctx, h.timeout)
	defer cancel()

	if err := h.tasks.Delete(cctx, ctx.Param("id"), requester(a)); err != nil {
		RespondServiceError(ctx, err, "Could not delete task")
		return
	}

	RespondOK(ctx, "Task deleted successfully", nil)
}
