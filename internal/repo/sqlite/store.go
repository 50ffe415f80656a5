package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/geocoder89/taskhub/internal/db"
	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// timeLayout is fixed width so lexical order in TEXT columns is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type Store struct {
	db *sql.DB
}

// NewStore wraps a migrated handle, typically from db.OpenSQLite.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(v string) (time.Time, error) {
	t, err := time.Parse(timeLayout, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: bad timestamp %q: %w", v, err)
	}
	return t.UTC(), nil
}

// mapConstraint turns driver constraint errors into domain errors.
func mapConstraint(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed: users.email"):
		return user.ErrEmailTaken
	case strings.Contains(msg, "UNIQUE constraint failed: users.username"):
		return user.ErrUsernameTaken
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return user.ErrNotFound
	}
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

// users

const userColumns = `id, username, email, password_hash, role, created_at, updated_at`

func scanUser(row rowScanner) (user.User, error) {
	var (
		u                user.User
		created, updated string
	)
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
		return user.User{}, err
	}

	var err error
	if u.CreatedAt, err = parseTime(created); err != nil {
		return user.User{}, err
	}
	if u.UpdatedAt, err = parseTime(updated); err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	// email is checked first so a double clash reports the email, like the other stores
	if err := s.checkUnique(ctx, u); err != nil {
		return user.User{}, err
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.Role, formatTime(u.CreatedAt), formatTime(u.UpdatedAt),
	)
	if err != nil {
		return user.User{}, mapConstraint(err)
	}
	return u, nil
}

func (s *Store) checkUnique(ctx context.Context, u user.User) error {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?`, u.Email, u.ID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return user.ErrEmailTaken
	}

	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE username = ? AND id <> ?`, u.Username, u.ID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return user.ErrUsernameTaken
	}
	return nil
}

func (s *Store) getUser(ctx context.Context, where string, arg any) (user.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where+` = ?`, arg)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return user.User{}, user.ErrNotFound
	}
	return u, err
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
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
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

	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET username = ?, email = ?, password_hash = ?, updated_at = ? WHERE id = ?`,
		u.Username, u.Email, u.PasswordHash, formatTime(u.UpdatedAt), u.ID,
	)
	if err != nil {
		return user.User{}, mapConstraint(err)
	}
	return s.GetUserByID(ctx, u.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, user.ErrNotFound)
}

func (s *Store) UserStats(ctx context.Context) (user.Stats, error) {
	var st user.Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN role = 'admin' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(CASE WHEN role = 'user' THEN 1 ELSE 0 END), 0)
		FROM users`).Scan(&st.Total, &st.Admins, &st.Users)
	return st, err
}

func affected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

// tasks

const taskSelect = `
	SELECT t.id, t.title, t.description, t.status, t.priority, t.user_id,
	       COALESCE(u.username, 'Unknown'), t.created_at, t.updated_at
	FROM tasks t
	LEFT JOIN users u ON u.id = t.user_id`

func scanTask(row rowScanner) (task.Task, error) {
	var (
		t                task.Task
		created, updated string
	)
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.OwnerID,
		&t.OwnerUsername, &created, &updated)
	if err != nil {
		return task.Task{}, err
	}

	if t.CreatedAt, err = parseTime(created); err != nil {
		return task.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, title, description, status, priority, user_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Title, t.Description, string(t.Status), string(t.Priority), t.OwnerID, formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	if err != nil {
		return task.Task{}, mapConstraint(err)
	}
	return s.GetTaskByID(ctx, t.ID)
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+` WHERE t.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return task.Task{}, task.ErrNotFound
	}
	return t, err
}

// whereClause renders the filter as a WHERE clause plus its arguments.
func whereClause(f task.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)

	if f.OwnerID != nil {
		conds = append(conds, "t.user_id = ?")
		args = append(args, *f.OwnerID)
	}
	if f.Status != nil {
		conds = append(conds, "t.status = ?")
		args = append(args, string(*f.Status))
	}
	if f.Priority != nil {
		conds = append(conds, "t.priority = ?")
		args = append(args, string(*f.Priority))
	}
	if f.Search != nil {
		pattern := "%" + escapeLike(strings.ToLower(*f.Search)) + "%"
		lower := db.SQLiteLowerFunc
		conds = append(conds, `(`+lower+`(t.title) LIKE ? ESCAPE '\' OR `+lower+`(t.description) LIKE ? ESCAPE '\')`)
		args = append(args, pattern, pattern)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func (s *Store) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, int, error) {
	where, args := whereClause(f)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}

	pageArgs := append(append([]any{}, args...), limit, f.Offset)
	rows, err := s.db.QueryContext(ctx, taskSelect+where+` ORDER BY t.created_at DESC, t.id DESC LIMIT ? OFFSET ?`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]task.Task, 0)
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET title = ?, description = ?, status = ?, priority = ?, updated_at = ? WHERE id = ?`,
		t.Title, t.Description, string(t.Status), string(t.Priority), formatTime(t.UpdatedAt), t.ID,
	)
	if err != nil {
		return task.Task{}, err
	}
	if err := affected(res, task.ErrNotFound); err != nil {
		return task.Task{}, err
	}
	return s.GetTaskByID(ctx, t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return affected(res, task.ErrNotFound)
}

func (s *Store) TaskStats(ctx context.Context, ownerID *string) (task.Stats, error) {
	q := `SELECT status, priority, COUNT(*) FROM tasks`
	var args []any
	if ownerID != nil {
		q += ` WHERE user_id = ?`
		args = append(args, *ownerID)
	}
	q += ` GROUP BY status, priority`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return task.Stats{}, err
	}
	defer rows.Close()

	var st task.Stats
	for rows.Next() {
		var (
			status   task.Status
			priority task.Priority
			n        int
		)
		if err := rows.Scan(&status, &priority, &n); err != nil {
			return task.Stats{}, err
		}
		st.AddN(status, priority, n)
	}
	return st, rows.Err()
}
