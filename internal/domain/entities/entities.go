package entities

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrValidation         = errors.New("validation failed")
	ErrUserHasActiveTasks = errors.New("user has active assigned tasks")
)

// Enums and types
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleManager Role = "MANAGER"
	RoleMember  Role = "MEMBER"
	RoleViewer  Role = "VIEWER"
)

type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// ActivityType tags the kind of change an ActivityEvent records.
type ActivityType string

const (
	ActivityTaskCreated     ActivityType = "TASK_CREATED"
	ActivityStatusChanged   ActivityType = "STATUS_CHANGED"
	ActivityAssigneeChanged ActivityType = "ASSIGNEE_CHANGED"
	ActivityPriorityChanged ActivityType = "PRIORITY_CHANGED"
	ActivityDueDateChanged  ActivityType = "DUE_DATE_CHANGED"
	ActivityCommentAdded    ActivityType = "COMMENT_ADDED"
)

// allowedTransitions is the status state machine. Terminal states map to
// an empty set; self-transitions are absent from every set.
var allowedTransitions = map[Status][]Status{
	StatusOpen:       {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether s has no outgoing transitions.
func (s Status) IsTerminal() bool {
	return len(allowedTransitions[s]) == 0
}

// statusOrder fixes the sort order of statuses.
var statusOrder = map[Status]int{
	StatusOpen:       0,
	StatusInProgress: 1,
	StatusCompleted:  2,
	StatusCancelled:  3,
}

// Order returns the position of s in the status sort order.
func (s Status) Order() int {
	return statusOrder[s]
}

// priorityOrder fixes the total order LOW < MEDIUM < HIGH < CRITICAL.
var priorityOrder = map[Priority]int{
	PriorityLow:      0,
	PriorityMedium:   1,
	PriorityHigh:     2,
	PriorityCritical: 3,
}

// Order returns the position of p in the priority total order.
func (p Priority) Order() int {
	return priorityOrder[p]
}

// User represents a user referenced by tasks and comments. The user
// directory owns User records; tasks hold value snapshots of them.
type User struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// NewUser builds a user with a generated id, defaulting to active.
func NewUser(name, email string, role Role, now time.Time) User {
	return User{
		ID:        uuid.New(),
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		CreatedAt: now,
	}
}

// WithNameAndRole returns a new User value with the updatable fields
// replaced. ID, email, createdAt and the active flag never change here.
func (u User) WithNameAndRole(name string, role Role) User {
	updated := u
	updated.Name = name
	updated.Role = role
	return updated
}

// Deactivated returns a new User value with the active flag cleared.
func (u User) Deactivated() User {
	updated := u
	updated.IsActive = false
	return updated
}

// Comment is an immutable message attached to a task version.
type Comment struct {
	ID        uuid.UUID `json:"id"`
	Author    User      `json:"author"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// NewComment builds a comment with a generated id.
func NewComment(author User, message string, now time.Time) Comment {
	return Comment{
		ID:        uuid.New(),
		Author:    author,
		Message:   message,
		CreatedAt: now,
	}
}

// Task is one immutable snapshot of a task's fields at a point in its
// edit history. The ID is shared by every version of a logical task; the
// version with the highest Version number is authoritative.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Version     int        `json:"version"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	CreatedBy   User       `json:"created_by"`
	AssignedTo  *User      `json:"assigned_to,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Tags        []string   `json:"tags"`
	Comments    []Comment  `json:"comments"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewTask builds version 1 of a task: generated id, OPEN status, MEDIUM
// priority, createdAt and updatedAt stamped with now.
func NewTask(title, description string, createdBy User, tags []string, now time.Time) Task {
	return Task{
		ID:          uuid.New(),
		Version:     1,
		Title:       title,
		Description: description,
		Status:      StatusOpen,
		Priority:    PriorityMedium,
		CreatedBy:   createdBy,
		Tags:        NormalizeTags(tags),
		Comments:    []Comment{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// NormalizeTags lowercases and trims tags and drops duplicates while
// keeping the first-seen order for display.
func NormalizeTags(tags []string) []string {
	normalized := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		normalized = append(normalized, tag)
	}
	return normalized
}

// Clone returns a deep copy of the task so a stored version can never be
// mutated through shared slices or pointers.
func (t Task) Clone() Task {
	clone := t
	clone.Tags = append([]string(nil), t.Tags...)
	clone.Comments = append([]Comment(nil), t.Comments...)
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		clone.AssignedTo = &assignee
	}
	if t.DueDate != nil {
		due := *t.DueDate
		clone.DueDate = &due
	}
	return clone
}

// NextVersion clones the task, bumps the version number and stamps the
// update time. CreatedAt propagates unchanged.
func (t Task) NextVersion(now time.Time) Task {
	next := t.Clone()
	next.Version = t.Version + 1
	next.UpdatedAt = now
	return next
}

// IsOverdue reports whether the task has a due date in the past and is
// not in a terminal status.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.DueDate == nil {
		return false
	}
	if t.Status == StatusCompleted || t.Status == StatusCancelled {
		return false
	}
	return t.DueDate.Before(now)
}

// DaysOverdue returns the number of whole days past the due date,
// truncated toward zero.
func (t *Task) DaysOverdue(now time.Time) int64 {
	if t.DueDate == nil {
		return 0
	}
	return int64(now.Sub(*t.DueDate) / (24 * time.Hour))
}

// HasAllTags reports whether the task's tag set is a superset of tags.
// Matching is done on normalized tags.
func (t *Task) HasAllTags(tags []string) bool {
	for _, want := range NormalizeTags(tags) {
		found := false
		for _, have := range t.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// ActivityEvent is an immutable audit record describing one
// state-changing operation on a task. Events are append-only and never
// updated or deleted.
type ActivityEvent struct {
	ID        uuid.UUID    `json:"id"`
	TaskID    uuid.UUID    `json:"task_id"`
	Type      ActivityType `json:"type"`
	Actor     User         `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
	Details   string       `json:"details,omitempty"`
}

// NewActivityEvent builds an event with a generated id. Details may be
// empty.
func NewActivityEvent(taskID uuid.UUID, activityType ActivityType, actor User, details string, now time.Time) ActivityEvent {
	return ActivityEvent{
		ID:        uuid.New(),
		TaskID:    taskID,
		Type:      activityType,
		Actor:     actor,
		Timestamp: now,
		Details:   details,
	}
}

// Utility methods
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleMember, RoleViewer:
		return true
	default:
		return false
	}
}

func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	default:
		return false
	}
}

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	default:
		return false
	}
}

func (a ActivityType) IsValid() bool {
	switch a {
	case ActivityTaskCreated, ActivityStatusChanged, ActivityAssigneeChanged,
		ActivityPriorityChanged, ActivityDueDateChanged, ActivityCommentAdded:
		return true
	default:
		return false
	}
}
