package repo

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/observability"
)

// Instrument wraps a store so every call is timed in Prometheus and traced as
// a child span. A nil prom disables metrics but keeps spans.
func Instrument(next Store, backend string, prom *observability.Prom) Store {
	return &instrumented{
		next:    next,
		backend: backend,
		prom:    prom,
		tracer:  otel.Tracer("github.com/geocoder89/taskhub/internal/repo"),
	}
}

type instrumented struct {
	next    Store
	backend string
	prom    *observability.Prom
	tracer  trace.Tracer
}

func (s *instrumented) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, "store."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("store.backend", s.backend),
			attribute.String("store.op", op),
		),
	)
	defer span.End()

	run := func() error { return fn(ctx) }

	var err error
	if s.prom != nil {
		err = s.prom.ObserveStore(s.backend, op, run)
	} else {
		err = run()
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, observability.ClassifyStoreErr(err))
	}
	return err
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.do(ctx, "ping", s.next.Ping)
}

func (s *instrumented) Close() error { return s.next.Close() }

func (s *instrumented) CreateUser(ctx context.Context, u user.User) (out user.User, err error) {
	err = s.do(ctx, "create_user", func(ctx context.Context) error {
		out, err = s.next.CreateUser(ctx, u)
		return err
	})
	return out, err
}

func (s *instrumented) GetUserByID(ctx context.Context, id string) (out user.User, err error) {
	err = s.do(ctx, "get_user_by_id", func(ctx context.Context) error {
		out, err = s.next.GetUserByID(ctx, id)
		return err
	})
	return out, err
}

func (s *instrumented) GetUserByEmail(ctx context.Context, email string) (out user.User, err error) {
	err = s.do(ctx, "get_user_by_email", func(ctx context.Context) error {
		out, err = s.next.GetUserByEmail(ctx, email)
		return err
	})
	return out, err
}

func (s *instrumented) GetUserByUsername(ctx context.Context, username string) (out user.User, err error) {
	err = s.do(ctx, "get_user_by_username", func(ctx context.Context) error {
		out, err = s.next.GetUserByUsername(ctx, username)
		return err
	})
	return out, err
}

func (s *instrumented) ListUsers(ctx context.Context) (out []user.User, err error) {
	err = s.do(ctx, "list_users", func(ctx context.Context) error {
		out, err = s.next.ListUsers(ctx)
		return err
	})
	return out, err
}

func (s *instrumented) UpdateUser(ctx context.Context, u user.User) (out user.User, err error) {
	err = s.do(ctx, "update_user", func(ctx context.Context) error {
		out, err = s.next.UpdateUser(ctx, u)
		return err
	})
	return out, err
}

func (s *instrumented) DeleteUser(ctx context.Context, id string) error {
	return s.do(ctx, "delete_user", func(ctx context.Context) error {
		return s.next.DeleteUser(ctx, id)
	})
}

func (s *instrumented) UserStats(ctx context.Context) (out user.Stats, err error) {
	err = s.do(ctx, "user_stats", func(ctx context.Context) error {
		out, err = s.next.UserStats(ctx)
		return err
	})
	return out, err
}

func (s *instrumented) CreateTask(ctx context.Context, t task.Task) (out task.Task, err error) {
	err = s.do(ctx, "create_task", func(ctx context.Context) error {
		out, err = s.next.CreateTask(ctx, t)
		return err
	})
	return out, err
}

func (s *instrumented) GetTaskByID(ctx context.Context, id string) (out task.Task, err error) {
	err = s.do(ctx, "get_task", func(ctx context.Context) error {
		out, err = s.next.GetTaskByID(ctx, id)
		return err
	})
	return out, err
}

func (s *instrumented) ListTasks(ctx context.Context, f task.Filter) (out []task.Task, total int, err error) {
	err = s.do(ctx, "list_tasks", func(ctx context.Context) error {
		out, total, err = s.next.ListTasks(ctx, f)
		return err
	})
	return out, total, err
}

func (s *instrumented) UpdateTask(ctx context.Context, t task.Task) (out task.Task, err error) {
	err = s.do(ctx, "update_task", func(ctx context.Context) error {
		out, err = s.next.UpdateTask(ctx, t)
		return err
	})
	return out, err
}

func (s *instrumented) DeleteTask(ctx context.Context, id string) error {
	return s.do(ctx, "delete_task", func(ctx context.Context) error {
		return s.next.DeleteTask(ctx, id)
	})
}

func (s *instrumented) TaskStats(ctx context.Context, ownerID *string) (out task.Stats, err error) {
	err = s.do(ctx, "task_stats", func(ctx context.Context) error {
		out, err = s.next.TaskStats(ctx, ownerID)
		return err
	})
	return out, err
}
