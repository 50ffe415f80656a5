package task

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var Statuses = []Status{StatusPending, StatusInProgress, StatusCompleted}

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh}

var ErrNotFound = errors.New("task not found")

// UnknownOwner is reported as the owner username when the owner record is gone.
const UnknownOwner = "Unknown"

type Task struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        Status    `json:"status"`
	Priority      Priority  `json:"priority"`
	OwnerID       string    `json:"user_id"`
	OwnerUsername string    `json:"username,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s Status) Valid() bool {
	for _, v := range Statuses {
		if v == s {
			return true
		}
	}
	return false
}

func (p Priority) Valid() bool {
	for _, v := range Priorities {
		if v == p {
			return true
		}
	}
	return false
}

// with pointers if optional, it will be nil
type Filter struct {
	OwnerID  *string
	Status   *Status
	Priority *Priority
	Search   *string
	Limit    int
	Offset   int
}

// Patch carries a partial update. Nil fields are left untouched.
type Patch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
}

func (p Patch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil
}

// Apply returns a copy of t with the patch applied and UpdatedAt bumped.
func (p Patch) Apply(t Task) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	t.UpdatedAt = Now()
	return t
}

type Stats struct {
	Total      int            `json:"total"`
	ByStatus   StatusCounts   `json:"byStatus"`
	ByPriority PriorityCounts `json:"byPriority"`
}

type StatusCounts struct {
	Pending    int `json:"pending"`
	InProgress int `json:"in_progress"`
	Completed  int `json:"completed"`
}

type PriorityCounts struct {
	Low    int `json:"low"`
	Medium int `json:"medium"`
	High   int `json:"high"`
}

// Add counts one task into the breakdowns.
func (s *Stats) Add(st Status, pr Priority) {
	s.AddN(st, pr, 1)
}

func (s *Stats) AddN(st Status, pr Priority, n int) {
	s.Total += n

	switch st {
	case StatusPending:
		s.ByStatus.Pending += n
	case StatusInProgress:
		s.ByStatus.InProgress += n
	case StatusCompleted:
		s.ByStatus.Completed += n
	}

	switch pr {
	case PriorityLow:
		s.ByPriority.Low += n
	case PriorityMedium:
		s.ByPriority.Medium += n
	case PriorityHigh:
		s.ByPriority.High += n
	}
}

// New builds a task owned by ownerID, applying the default status and priority.
func New(ownerID, title, description string, status Status, priority Priority) Task {
	if status == "" {
		status = StatusPending
	}
	if priority == "" {
		priority = PriorityMedium
	}

	now := Now()

	return Task{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Status:      status,
		Priority:    priority,
		OwnerID:     ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
