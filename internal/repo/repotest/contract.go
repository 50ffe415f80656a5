// Package repotest holds the behavioural contract every repo.Store backend must satisfy.
package repotest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geocoder89/taskhub/internal/domain/task"
	"github.com/geocoder89/taskhub/internal/domain/user"
	"github.com/geocoder89/taskhub/internal/repo"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) repo.Store

// Run exercises the full store contract against the backend built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s repo.Store)
	}{
		{"CreateAndLookupUser", testCreateAndLookupUser},
		{"UniqueEmailAndUsername", testUniqueEmailAndUsername},
		{"UpdateUser", testUpdateUser},
		{"ListUsersAndStats", testListUsersAndStats},
		{"TaskRoundTrip", testTaskRoundTrip},
		{"TaskRequiresOwner", testTaskRequiresOwner},
		{"UpdateAndDeleteTask", testUpdateAndDeleteTask},
		{"ListTasksFiltersAndPages", testListTasksFiltersAndPages},
		{"SearchIsCaseInsensitive", testSearchIsCaseInsensitive},
		{"TaskStats", testTaskStats},
		{"DeleteUserCascades", testDeleteUserCascades},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

var clock = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

// at returns a deterministic timestamp n minutes after the suite clock.
func at(n int) time.Time {
	return clock.Add(time.Duration(n) * time.Minute)
}

func mustUser(t *testing.T, s repo.Store, name, role string, minute int) user.User {
	t.Helper()

	u := user.New(name, name+"@example.com", "hash-"+name, role)
	u.CreatedAt, u.UpdatedAt = at(minute), at(minute)

	created, err := s.CreateUser(context.Background(), u)
	require.NoError(t, err)
	return created
}

func mustTask(t *testing.T, s repo.Store, owner user.User, title string, st task.Status, pr task.Priority, minute int) task.Task {
	t.Helper()

	tk := task.New(owner.ID, title, "", st, pr)
	tk.CreatedAt, tk.UpdatedAt = at(minute), at(minute)

	created, err := s.CreateTask(context.Background(), tk)
	require.NoError(t, err)
	return created
}

func testCreateAndLookupUser(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)

	byID, err := s.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.Username, byID.Username)
	assert.Equal(t, alice.Email, byID.Email)
	assert.Equal(t, "hash-alice", byID.PasswordHash)
	assert.Equal(t, user.RoleUser, byID.Role)
	assert.True(t, alice.CreatedAt.Equal(byID.CreatedAt), "created_at round trip")

	byEmail, err := s.GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byEmail.ID)

	byName, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, byName.ID)

	_, err = s.GetUserByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, user.ErrNotFound)
	_, err = s.GetUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func testUniqueEmailAndUsername(t *testing.T, s repo.Store) {
	ctx := context.Background()
	mustUser(t, s, "alice", user.RoleUser, 1)

	sameEmail := user.New("alice2", "alice@example.com", "h", user.RoleUser)
	_, err := s.CreateUser(ctx, sameEmail)
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	sameName := user.New("alice", "other@example.com", "h", user.RoleUser)
	_, err = s.CreateUser(ctx, sameName)
	assert.ErrorIs(t, err, user.ErrUsernameTaken)

	stats, err := s.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total, "rejected users must not be stored")
}

func testUpdateUser(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	bob := mustUser(t, s, "bob", user.RoleUser, 2)

	alice.Username = "alicia"
	alice.PasswordHash = "new-hash"
	alice.UpdatedAt = at(10)

	updated, err := s.UpdateUser(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alicia", updated.Username)
	assert.Equal(t, "new-hash", updated.PasswordHash)
	assert.True(t, at(10).Equal(updated.UpdatedAt))
	assert.True(t, at(1).Equal(updated.CreatedAt), "created_at is immutable")

	// keeping its own email is not a clash
	_, err = s.UpdateUser(ctx, alice)
	require.NoError(t, err)

	bob.Email = "alice@example.com"
	_, err = s.UpdateUser(ctx, bob)
	assert.ErrorIs(t, err, user.ErrEmailTaken)

	bob.Email = "bob@example.com"
	bob.Username = "alicia"
	_, err = s.UpdateUser(ctx, bob)
	assert.ErrorIs(t, err, user.ErrUsernameTaken)

	ghost := user.New("ghost", "ghost@example.com", "h", user.RoleUser)
	_, err = s.UpdateUser(ctx, ghost)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func testListUsersAndStats(t *testing.T, s repo.Store) {
	ctx := context.Background()
	mustUser(t, s, "admin", user.RoleAdmin, 1)
	mustUser(t, s, "alice", user.RoleUser, 2)
	mustUser(t, s, "bob", user.RoleUser, 3)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []string{"bob", "alice", "admin"}, []string{users[0].Username, users[1].Username, users[2].Username})

	stats, err := s.UserStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, user.Stats{Total: 3, Admins: 1, Users: 2}, stats)
}

func testTaskRoundTrip(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)

	in := task.New(alice.ID, "Write report", "quarterly numbers", task.StatusInProgress, task.PriorityHigh)
	created, err := s.CreateTask(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, "alice", created.OwnerUsername)

	got, err := s.GetTaskByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.Status, got.Status)
	assert.Equal(t, in.Priority, got.Priority)
	assert.Equal(t, alice.ID, got.OwnerID)
	assert.Equal(t, "alice", got.OwnerUsername)
	assert.True(t, in.CreatedAt.Equal(got.CreatedAt), "created_at round trip")

	_, err = s.GetTaskByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func testTaskRequiresOwner(t *testing.T, s repo.Store) {
	orphan := task.New("00000000-0000-0000-0000-000000000000", "orphan", "", "", "")

	_, err := s.CreateTask(context.Background(), orphan)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func testUpdateAndDeleteTask(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	tk := mustTask(t, s, alice, "Draft", task.StatusPending, task.PriorityLow, 2)

	done := task.StatusCompleted
	title := "Final"
	patched := task.Patch{Title: &title, Status: &done}.Apply(tk)

	updated, err := s.UpdateTask(ctx, patched)
	require.NoError(t, err)
	assert.Equal(t, "Final", updated.Title)
	assert.Equal(t, task.StatusCompleted, updated.Status)
	assert.Equal(t, task.PriorityLow, updated.Priority)
	assert.Equal(t, alice.ID, updated.OwnerID)

	got, err := s.GetTaskByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, "Final", got.Title)

	require.NoError(t, s.DeleteTask(ctx, tk.ID))
	_, err = s.GetTaskByID(ctx, tk.ID)
	assert.ErrorIs(t, err, task.ErrNotFound)

	assert.ErrorIs(t, s.DeleteTask(ctx, tk.ID), task.ErrNotFound)
	_, err = s.UpdateTask(ctx, patched)
	assert.ErrorIs(t, err, task.ErrNotFound)
}

func testListTasksFiltersAndPages(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	bob := mustUser(t, s, "bob", user.RoleUser, 2)

	for i := 0; i < 5; i++ {
		mustTask(t, s, alice, fmt.Sprintf("alice-%d", i), task.StatusPending, task.PriorityMedium, 10+i)
	}
	mustTask(t, s, alice, "alice-done", task.StatusCompleted, task.PriorityHigh, 20)
	mustTask(t, s, bob, "bob-0", task.StatusPending, task.PriorityLow, 21)

	all, total, err := s.ListTasks(ctx, task.Filter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 7, total)
	require.Len(t, all, 7)
	assert.Equal(t, "bob-0", all[0].Title, "newest first")

	owner := alice.ID
	page, total, err := s.ListTasks(ctx, task.Filter{OwnerID: &owner, Limit: 4, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, page, 4)
	assert.Equal(t, "alice-done", page[0].Title)

	page2, total, err := s.ListTasks(ctx, task.Filter{OwnerID: &owner, Limit: 4, Offset: 4})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	require.Len(t, page2, 2)
	assert.Equal(t, "alice-0", page2[1].Title)

	st := task.StatusPending
	pending, total, err := s.ListTasks(ctx, task.Filter{OwnerID: &owner, Status: &st, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, pending, 5)

	pr := task.PriorityLow
	low, total, err := s.ListTasks(ctx, task.Filter{Priority: &pr, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, low, 1)
	assert.Equal(t, bob.ID, low[0].OwnerID)
	assert.Equal(t, "bob", low[0].OwnerUsername)

	empty, total, err := s.ListTasks(ctx, task.Filter{OwnerID: &owner, Limit: 4, Offset: 40})
	require.NoError(t, err)
	assert.Equal(t, 6, total)
	assert.Empty(t, empty)
}

func testSearchIsCaseInsensitive(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	bob := mustUser(t, s, "bob", user.RoleUser, 2)

	tk := task.New(alice.ID, "Quarterly REPORT", "numbers", "", "")
	_, err := s.CreateTask(ctx, tk)
	require.NoError(t, err)

	tk2 := task.New(alice.ID, "Groceries", "milk and the report card", "", "")
	_, err = s.CreateTask(ctx, tk2)
	require.NoError(t, err)

	tk3 := task.New(bob.ID, "Bob's report", "", "", "")
	_, err = s.CreateTask(ctx, tk3)
	require.NoError(t, err)

	term := "report"
	hits, total, err := s.ListTasks(ctx, task.Filter{Search: &term, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, hits, 3)

	owner := alice.ID
	hits, total, err = s.ListTasks(ctx, task.Filter{OwnerID: &owner, Search: &term, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, hits, 2)

	literal := "100%"
	hits, _, err = s.ListTasks(ctx, task.Filter{Search: &literal, Limit: 100})
	require.NoError(t, err)
	assert.Empty(t, hits, "wildcards in the term are matched literally")

	tk4 := task.New(bob.ID, "ÉTÉ planning", "Straße im Sommer", "", "")
	_, err = s.CreateTask(ctx, tk4)
	require.NoError(t, err)

	unicodeTerms := []struct {
		term string
		want int
	}{
		{"été", 1},
		{"ÉtÉ", 1},
		{"STRAßE IM", 1},
		{"strasse", 0},
	}
	for _, tc := range unicodeTerms {
		term := tc.term
		hits, total, err = s.ListTasks(ctx, task.Filter{Search: &term, Limit: 100})
		require.NoError(t, err)
		assert.Equal(t, tc.want, total, "term %q", term)
		assert.Len(t, hits, tc.want, "term %q", term)
	}
}

func testTaskStats(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	bob := mustUser(t, s, "bob", user.RoleUser, 2)

	mustTask(t, s, alice, "a1", task.StatusPending, task.PriorityMedium, 3)
	mustTask(t, s, alice, "a2", task.StatusInProgress, task.PriorityHigh, 4)
	mustTask(t, s, alice, "a3", task.StatusCompleted, task.PriorityHigh, 5)
	mustTask(t, s, bob, "b1", task.StatusPending, task.PriorityLow, 6)

	owner := alice.ID
	mine, err := s.TaskStats(ctx, &owner)
	require.NoError(t, err)
	assert.Equal(t, task.Stats{
		Total:      3,
		ByStatus:   task.StatusCounts{Pending: 1, InProgress: 1, Completed: 1},
		ByPriority: task.PriorityCounts{Low: 0, Medium: 1, High: 2},
	}, mine)

	all, err := s.TaskStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, all.Total)
	assert.Equal(t, all.Total, all.ByStatus.Pending+all.ByStatus.InProgress+all.ByStatus.Completed)
	assert.Equal(t, all.Total, all.ByPriority.Low+all.ByPriority.Medium+all.ByPriority.High)

	nobody := "00000000-0000-0000-0000-000000000000"
	none, err := s.TaskStats(ctx, &nobody)
	require.NoError(t, err)
	assert.Equal(t, task.Stats{}, none)
}

func testDeleteUserCascades(t *testing.T, s repo.Store) {
	ctx := context.Background()
	alice := mustUser(t, s, "alice", user.RoleUser, 1)
	bob := mustUser(t, s, "bob", user.RoleUser, 2)

	a1 := mustTask(t, s, alice, "a1", task.StatusPending, task.PriorityMedium, 3)
	a2 := mustTask(t, s, alice, "a2", task.StatusPending, task.PriorityMedium, 4)
	b1 := mustTask(t, s, bob, "b1", task.StatusPending, task.PriorityMedium, 5)

	require.NoError(t, s.DeleteUser(ctx, alice.ID))

	_, err := s.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, user.ErrNotFound)

	for _, id := range []string{a1.ID, a2.ID} {
		_, err := s.GetTaskByID(ctx, id)
		assert.ErrorIs(t, err, task.ErrNotFound, "owned task %s must be gone", id)
	}

	got, err := s.GetTaskByID(ctx, b1.ID)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, got.OwnerID)

	all, err := s.TaskStats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, all.Total)

	assert.ErrorIs(t, s.DeleteUser(ctx, alice.ID), user.ErrNotFound)
}
