// Package blob keeps each collection as a single JSON document in Redis.
// Writes are read-modify-write cycles guarded by WATCH so concurrent writers
// never lose updates.
package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

const maxTxRetries = 16

var ErrConflict = errors.New("blob: too many concurrent writers")

type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type Store struct {
	rdb       *redis.Client
	usersKey  string
	tasksKey  string
	ownClient bool
}

// New dials Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	s := NewWithClient(rdb, cfg.Prefix)
	s.ownClient = true
	return s, nil
}

// NewWithClient wraps an existing client. Close leaves the client open.
func NewWithClient(rdb *redis.Client, prefix string) *Store {
	return &Store{
		rdb:      rdb,
		usersKey: prefix + "users",
		tasksKey: prefix + "tasks",
	}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error {
	if !s.ownClient {
		return nil
	}
	return s.rdb.Close()
}

// userRecord is the stored shape; unlike user.User it keeps the hash.
type userRecord struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type taskRecord struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Status      task.Status   `json:"status"`
	Priority    task.Priority `json:"priority"`
	UserID      string        `json:"user_id"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func toUserRecord(u user.User) userRecord {
	return userRecord{
		ID: u.ID, Username: u.Username, Email: u.Email, PasswordHash: u.PasswordHash,
		Role: u.Role, CreatedAt: u.CreatedAt, UpdatedAt: u.UpdatedAt,
	}
}

func (r userRecord) user() user.User {
	return user.User{
		ID: r.ID, Username: r.Username, Email: r.Email, PasswordHash: r.PasswordHash,
		Role: r.Role, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

func toTaskRecord(t task.Task) taskRecord {
	return taskRecord{
		ID: t.ID, Title: t.Title, Description: t.Description, Status: t.Status,
		Priority: t.Priority, UserID: t.OwnerID, CreatedAt: t.CreatedAt, UpdatedAt: t.UpdatedAt,
	}
}

func (r taskRecord) task() task.Task {
	return task.Task{
		ID: r.ID, Title: r.Title, Description: r.Description, Status: r.Status,
		Priority: r.Priority, OwnerID: r.UserID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

// snapshot is one consistent view of both collections.
type snapshot struct {
	users map[string]user.User
	tasks map[string]task.Task

	usersDirty bool
	tasksDirty bool
}

func (sn *snapshot) ownerName(id string) string {
	if u, ok := sn.users[id]; ok {
		return u.Username
	}
	return task.UnknownOwner
}

type getter interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
}

// load reads both collections with one MGET so a snapshot never mixes
// states from either side of a concurrent write.
func (s *Store) load(ctx context.Context, g getter) (*snapshot, error) {
	vals, err := g.MGet(ctx, s.usersKey, s.tasksKey).Result()
	if err != nil {
		return nil, fmt.Errorf("blob mget: %w", err)
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("blob mget: got %d values, want 2", len(vals))
	}

	var users []userRecord
	if err := decodeDoc(s.usersKey, vals[0], &users); err != nil {
		return nil, err
	}
	var tasks []taskRecord
	if err := decodeDoc(s.tasksKey, vals[1], &tasks); err != nil {
		return nil, err
	}

	sn := &snapshot{
		users: make(map[string]user.User, len(users)),
		tasks: make(map[string]task.Task, len(tasks)),
	}
	for _, r := range users {
		sn.users[r.ID] = r.user()
	}
	for _, r := range tasks {
		sn.tasks[r.ID] = r.task()
	}
	return sn, nil
}

// decodeDoc treats a missing key as an empty collection.
func decodeDoc(key string, v any, dst any) error {
	if v == nil {
		return nil
	}
	raw, ok := v.(string)
	if !ok {
		return fmt.Errorf("blob decode %s: unexpected %T", key, v)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("blob decode %s: %w", key, err)
	}
	return nil
}

// view runs fn against a fresh snapshot without writing anything back.
func (s *Store) view(ctx context.Context, fn func(sn *snapshot) error) error {
	sn, err := s.load(ctx, s.rdb)
	if err != nil {
		return err
	}
	return fn(sn)
}

// update runs fn inside a WATCH on both keys and writes back whichever
// collections fn marked dirty. fn may run more than once.
func (s *Store) update(ctx context.Context, fn func(sn *snapshot) error) error {
	txf := func(tx *redis.Tx) error {
		sn, err := s.load(ctx, tx)
		if err != nil {
			return err
		}
		if err := fn(sn); err != nil {
			return err
		}
		if !sn.usersDirty && !sn.tasksDirty {
			return nil
		}

		usersJSON, tasksJSON, err := sn.encode()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			if sn.usersDirty {
				p.Set(ctx, s.usersKey, usersJSON, 0)
			}
			if sn.tasksDirty {
				p.Set(ctx, s.tasksKey, tasksJSON, 0)
			}
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.rdb.Watch(ctx, txf, s.usersKey, s.tasksKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return ErrConflict
}

func (sn *snapshot) encode() ([]byte, []byte, error) {
	users := make([]user.User, 0, len(sn.users))
	for _, u := range sn.users {
		users = append(users, u)
	}
	user.SortNewestFirst(users)
	userRecs := make([]userRecord, len(users))
	for i, u := range users {
		userRecs[i] = toUserRecord(u)
	}

	tasks := make([]task.Task, 0, len(sn.tasks))
	for _, t := range sn.tasks {
		tasks = append(tasks, t)
	}
	task.SortNewestFirst(tasks)
	taskRecs := make([]taskRecord, len(tasks))
	for i, t := range tasks {
		taskRecs[i] = toTaskRecord(t)
	}

	usersJSON, err := json.Marshal(userRecs)
	if err != nil {
		return nil, nil, err
	}
	tasksJSON, err := json.Marshal(taskRecs)
	if err != nil {
		return nil, nil, err
	}
	return usersJSON, tasksJSON, nil
}

// users

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	err := s.update(ctx, func(sn *snapshot) error {
		if err := user.CheckUnique(sn.users, u); err != nil {
			return err
		}
		sn.users[u.ID] = u
		sn.usersDirty = true
		return nil
	})
	if err != nil {
		return user.User{}, err
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return s.findUser(ctx, func(u user.User) bool { return u.ID == id })
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.findUser(ctx, func(u user.User) bool { return u.Email == email })
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.findUser(ctx, func(u user.User) bool { return u.Username == username })
}

func (s *Store) findUser(ctx context.Context, match func(user.User) bool) (user.User, error) {
	var found user.User
	err := s.view(ctx, func(sn *snapshot) error {
		for _, u := range sn.users {
			if match(u) {
				found = u
				return nil
			}
		}
		return user.ErrNotFound
	})
	return found, err
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	var out []user.User
	err := s.view(ctx, func(sn *snapshot) error {
		out = make([]user.User, 0, len(sn.users))
		for _, u := range sn.users {
			out = append(out, u)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	user.SortNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	var out user.User
	err := s.update(ctx, func(sn *snapshot) error {
		cur, ok := sn.users[u.ID]
		if !ok {
			return user.ErrNotFound
		}
		if err := user.CheckUnique(sn.users, u); err != nil {
			return err
		}
		cur.Username = u.Username
		cur.Email = u.Email
		cur.PasswordHash = u.PasswordHash
		cur.UpdatedAt = u.UpdatedAt
		sn.users[u.ID] = cur
		sn.usersDirty = true
		out = cur
		return nil
	})
	return out, err
}

// DeleteUser removes the user and, in the same transaction, every task they own.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return s.update(ctx, func(sn *snapshot) error {
		if _, ok := sn.users[id]; !ok {
			return user.ErrNotFound
		}
		delete(sn.users, id)
		sn.usersDirty = true

		for tid, t := range sn.tasks {
			if t.OwnerID == id {
				delete(sn.tasks, tid)
				sn.tasksDirty = true
			}
		}
		return nil
	})
}

func (s *Store) UserStats(ctx context.Context) (user.Stats, error) {
	var st user.Stats
	err := s.view(ctx, func(sn *snapshot) error {
		st = user.Count(sn.users)
		return nil
	})
	return st, err
}

// tasks

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	err := s.update(ctx, func(sn *snapshot) error {
		owner, ok := sn.users[t.OwnerID]
		if !ok {
			return user.ErrNotFound
		}
		t.OwnerUsername = owner.Username
		sn.tasks[t.ID] = t
		sn.tasksDirty = true
		return nil
	})
	if err != nil {
		return task.Task{}, err
	}
	return t, nil
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	var out task.Task
	err := s.view(ctx, func(sn *snapshot) error {
		t, ok := sn.tasks[id]
		if !ok {
			return task.ErrNotFound
		}
		t.OwnerUsername = sn.ownerName(t.OwnerID)
		out = t
		return nil
	})
	return out, err
}

func (s *Store) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, int, error) {
	var matched []task.Task
	err := s.view(ctx, func(sn *snapshot) error {
		matched = make([]task.Task, 0)
		for _, t := range sn.tasks {
			if f.Matches(t) {
				t.OwnerUsername = sn.ownerName(t.OwnerID)
				matched = append(matched, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}

	task.SortNewestFirst(matched)
	return task.Window(matched, f.Limit, f.Offset), len(matched), nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	var out task.Task
	err := s.update(ctx, func(sn *snapshot) error {
		cur, ok := sn.tasks[t.ID]
		if !ok {
			return task.ErrNotFound
		}
		cur.Title = t.Title
		cur.Description = t.Description
		cur.Status = t.Status
		cur.Priority = t.Priority
		cur.UpdatedAt = t.UpdatedAt
		sn.tasks[t.ID] = cur
		sn.tasksDirty = true

		cur.OwnerUsername = sn.ownerName(cur.OwnerID)
		out = cur
		return nil
	})
	return out, err
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	return s.update(ctx, func(sn *snapshot) error {
		if _, ok := sn.tasks[id]; !ok {
			return task.ErrNotFound
		}
		delete(sn.tasks, id)
		sn.tasksDirty = true
		return nil
	})
}

func (s *Store) TaskStats(ctx context.Context, ownerID *string) (task.Stats, error) {
	var st task.Stats
	err := s.view(ctx, func(sn *snapshot) error {
		for _, t := range sn.tasks {
			if ownerID != nil && t.OwnerID != *ownerID {
				continue
			}
			st.Add(t.Status, t.Priority)
		}
		return nil
	})
	return st, err
}
