package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
)

// Store keeps users and tasks in process memory. Construct one per process
// and inject it; Reset exists for tests.
type Store struct {
	mu    sync.RWMutex
	users map[string]user.User
	tasks map[string]task.Task
}

func NewStore() *Store {
	return &Store{
		users: make(map[string]user.User),
		tasks: make(map[string]task.Task),
	}
}

func (s *Store) Reset() {
	s.mu.Lock()
	s.users = make(map[string]user.User)
	s.tasks = make(map[string]task.Task)
	s.mu.Unlock()
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// users

func (s *Store) CreateUser(ctx context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkUniqueLocked(u); err != nil {
		return user.User{}, err
	}

	s.users[u.ID] = u
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Email == email })
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (user.User, error) {
	return s.findUser(func(u user.User) bool { return u.Username == username })
}

func (s *Store) findUser(match func(user.User) bool) (user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (s *Store) ListUsers(ctx context.Context) ([]user.User, error) {
	s.mu.RLock()
	out := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()

	user.SortNewestFirst(out)
	return out, nil
}

func (s *Store) UpdateUser(ctx context.Context, u user.User) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.users[u.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}

	if err := s.checkUniqueLocked(u); err != nil {
		return user.User{}, err
	}

	cur.Username = u.Username
	cur.Email = u.Email
	cur.PasswordHash = u.PasswordHash
	cur.UpdatedAt = u.UpdatedAt
	s.users[u.ID] = cur

	return cur, nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return user.ErrNotFound
	}

	delete(s.users, id)

	// cascade
	for tid, t := range s.tasks {
		if t.OwnerID == id {
			delete(s.tasks, tid)
		}
	}
	return nil
}

func (s *Store) UserStats(ctx context.Context) (user.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return user.Count(s.users), nil
}

// checkUniqueLocked rejects u when another user already holds its email or username.
func (s *Store) checkUniqueLocked(u user.User) error {
	return user.CheckUnique(s.users, u)
}

// tasks

func (s *Store) CreateTask(ctx context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner, ok := s.users[t.OwnerID]
	if !ok {
		return task.Task{}, user.ErrNotFound
	}

	t.OwnerUsername = ""
	s.tasks[t.ID] = t

	t.OwnerUsername = owner.Username
	return t, nil
}

func (s *Store) GetTaskByID(ctx context.Context, id string) (task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}
	return s.withOwnerLocked(t), nil
}

func (s *Store) ListTasks(ctx context.Context, f task.Filter) ([]task.Task, int, error) {
	s.mu.RLock()
	matched := make([]task.Task, 0)
	for _, t := range s.tasks {
		if f.Matches(t) {
			matched = append(matched, s.withOwnerLocked(t))
		}
	}
	s.mu.RUnlock()

	task.SortNewestFirst(matched)
	return task.Window(matched, f.Limit, f.Offset), len(matched), nil
}

func (s *Store) UpdateTask(ctx context.Context, t task.Task) (task.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.tasks[t.ID]
	if !ok {
		return task.Task{}, task.ErrNotFound
	}

	cur.Title = t.Title
	cur.Description = t.Description
	cur.Status = t.Status
	cur.Priority = t.Priority
	cur.UpdatedAt = t.UpdatedAt
	s.tasks[t.ID] = cur

	return s.withOwnerLocked(cur), nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return task.ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) TaskStats(ctx context.Context, ownerID *string) (task.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var st task.Stats
	for _, t := range s.tasks {
		if ownerID != nil && t.OwnerID != *ownerID {
			continue
		}
		st.Add(t.Status, t.Priority)
	}
	return st, nil
}

func (s *Store) withOwnerLocked(t task.Task) task.Task {
	if owner, ok := s.users[t.OwnerID]; ok {
		t.OwnerUsername = owner.Username
	} else {
		t.OwnerUsername = task.UnknownOwner
	}
	return t
}
