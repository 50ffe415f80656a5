package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// mapErr translates Postgres error codes into domain errors. notFound is
// returned for malformed ids, which can never match a row.
func mapErr(err error, notFound error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case "23505":
		switch pgErr.ConstraintName {
		case "users_email_key":
			return user.ErrEmailTaken
		case "users_username_key":
			return user.ErrUsernameTaken
		}
	case "23503":
		return user.ErrNotFound
	case "22P02":
		if notFound != nil {
			return notFound
		}
	}
	return err
}

// users

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanUser(row pgx.Row) (user.User, error) {
	var u user.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return user.User{}, err
	}
	u.CreatedAt = u.CreatedAt.UTC()
	u.UpdatedAt = u.UpdatedAt.UTC()
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	if err := s.checkUnique(ctx, u); err != nil {
		return user.User{}, err
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		return user.User{}, mapErr(err, nil)
	}
	return u, nil
}

// checkUnique gives email clashes precedence when both values are taken.
func (s *Store) checkUnique(ctx context.Context, u user.User) error {
	var emailTaken, nameTaken bool
	err := s.pool.QueryRow(ctx,
		`SELECT
		    EXISTS (SELECT 1 FROM users WHERE email = $1 AND id::text <> $3),
		    EXISTS (SELECT 1 FROM users WHERE username = $2 AND id::text <> $3)`,
		u.Email, u.Username, u.ID,
	).Scan(&emailTaken, &nameTaken)
	if err != nil {
		return err
	}

	switch {
	case emailTaken:
		return user.ErrEmailTaken
	case nameTaken:
		return user.ErrUsernameTaken
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, column, value string) (user.User, error) {
	u, err := scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE `+column+` = $1`, value))
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, mapErr(err, user.ErrNotFound)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return s.getUser(ctx, "id", id)
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.getUser(ctx, "email", email)
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.getUser(ctx, "username", username)
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]user.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	if _, err := s.GetUserByID(ctx, u.ID); err != nil {
		return user.User{}, err
	}
	if err := s.checkUnique(ctx, u); err != nil {
		return user.User{}, err
	}

	updated, err := scanUser(s.pool.QueryRow(ctx,
		`UPDATE users SET username = $1, email = $2, password_hash = $3, updated_at = $4
		 WHERE id = $5
		 RETURNING `+userColumns,
		u.Username, u.Email, u.PasswordHash, u.UpdatedAt, u.ID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	if err != nil {
		return user.User{}, mapErr(err, user.ErrNotFound)
	}
	return updated, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, user.ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return user.ErrNotFound
	}
	return nil
}

func (s *Store) UserStats(ctx context.Context) (user.Stats, error) {
	var st user.Stats
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE role = 'admin'),
		        COUNT(*) FILTER (WHERE role = 'user')
		 FROM users`,
	).Scan(&st.Total, &st.Admins, &st.Users)
	return st, err
}

// tasks

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.user_id,
	       COALESCE(u.username, 'Unknown'), t.created_at, t.updated_at`

const taskFrom = `
	FROM tasks t
	LEFT JOIN users u ON u.id = t.user_id`

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, user_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.OwnerID, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		// a malformed owner id can never reference a user
		return task.Task{}, mapErr(err, user.ErrNotFound)
	}
	return s.GetTaskByID(ctx, t.ID)
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	var t task.Task
	err := s.pool.QueryRow(ctx, taskSelect+taskFrom+` WHERE t.id = $1`, id).Scan(
		&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.OwnerID,
		&t.OwnerUsername, &t.CreatedAt, &t.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	if err != nil {
		return task.Task{}, mapErr(err, task.ErrNotFound)
	}
	t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
	return t, nil
}

func (s *Store) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, int, error) {
	var conds []string
	var args []interface{}

	argsPosition := 1

	if f.OwnerID != nil {
		conds = append(conds, fmt.Sprintf("t.user_id::text = $%d", argsPosition))
		args = append(args, *f.OwnerID)
		argsPosition++
	}

	if f.Status != nil {
		conds = append(conds, fmt.Sprintf("t.status = $%d", argsPosition))
		args = append(args, string(*f.Status))
		argsPosition++
	}

	if f.Priority != nil {
		conds = append(conds, fmt.Sprintf("t.priority = $%d", argsPosition))
		args = append(args, string(*f.Priority))
		argsPosition++
	}

	if f.Search != nil {
		conds = append(conds, fmt.Sprintf(
			`(strpos(lower(t.title), $%d) > 0 OR strpos(lower(t.description), $%d) > 0)`,
			argsPosition, argsPosition))
		args = append(args, strings.ToLower(*f.Search))
		argsPosition++
	}

	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	query := taskSelect + `, COUNT(*) OVER() AS total` + taskFrom + where +
		fmt.Sprintf(` ORDER BY t.created_at DESC, t.id DESC OFFSET $%d`, argsPosition)
	args = append(args, f.Offset)
	argsPosition++

	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, argsPosition)
		args = append(args, f.Limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]task.Task, 0)
	total := 0
	for rows.Next() {
		var t task.Task
		if err := rows.Scan(
			&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.OwnerID,
			&t.OwnerUsername, &t.CreatedAt, &t.UpdatedAt, &total,
		); err != nil {
			return nil, 0, err
		}
		t.CreatedAt, t.UpdatedAt = t.CreatedAt.UTC(), t.UpdatedAt.UTC()
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	// past the last page the window function has no row to report on
	if len(items) == 0 && f.Offset > 0 {
		countArgs := args[:len(args)-1]
		if f.Limit > 0 {
			countArgs = args[:len(args)-2]
		}
		if err := s.pool.QueryRow(ctx, `SELECT COUNT(*)`+taskFrom+where, countArgs...).Scan(&total); err != nil {
			return nil, 0, err
		}
	}

	return items, total, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tasks SET title = $1, description = $2, status = $3, priority = $4, updated_at = $5
		 WHERE id = $6`,
		t.Title, t.Description, string(t.Status), string(t.Priority), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return task.Task{}, mapErr(err, task.ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return task.Task{}, task.ErrNotFound
	}
	return s.GetTaskByID(ctx, t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return mapErr(err, task.ErrNotFound)
	}
	if tag.RowsAffected() == 0 {
		return task.ErrNotFound
	}
	return nil
}

func (s *Store) TaskStats(ctx context.Context, ownerID *string) (task.Stats, error) {
	q := `SELECT status, priority, COUNT(*) FROM tasks`
	var args []any
	if ownerID != nil {
		q += ` WHERE user_id::text = $1`
		args = append(args, *ownerID)
	}
	q += ` GROUP BY status, priority`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return task.Stats{}, err
	}
	defer rows.Close()

	var st task.Stats
	for rows.Next() {
		var (
			status   string
			priority string
			n        int
		)
		if err := rows.Scan(&status, &priority, &n); err != nil {
			return task.Stats{}, err
		}
		st.AddN(task.Status(status), task.Priority(priority), n)
	}
	return st, rows.Err()
}
