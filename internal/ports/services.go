package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskledger/core/internal/domain/entities"
)

// TaskMutator is the task mutation engine. Every operation resolves the
// latest version, validates, appends exactly one new version and records
// exactly one activity event, or fails and writes nothing.
type TaskMutator interface {
	CreateTask(ctx context.Context, req CreateTaskRequest) (entities.Task, error)
	GetTask(ctx context.Context, taskID uuid.UUID) (entities.Task, error)
	GetTaskHistory(ctx context.Context, taskID uuid.UUID) ([]entities.Task, error)
	ChangeStatus(ctx context.Context, taskID uuid.UUID, status entities.Status, actor entities.User) (entities.Task, error)
	AssignTask(ctx context.Context, taskID, userID uuid.UUID, actor entities.User) (entities.Task, error)
	UnassignTask(ctx context.Context, taskID uuid.UUID, actor entities.User) (entities.Task, error)
	ChangePriority(ctx context.Context, taskID uuid.UUID, priority entities.Priority, actor entities.User) (entities.Task, error)
	SetDueDate(ctx context.Context, taskID uuid.UUID, dueDate *time.Time, actor entities.User) (entities.Task, error)
	AddComment(ctx context.Context, taskID uuid.UUID, message string, author entities.User) (entities.Task, error)
}

// TaskSearcher is the query engine. Every operation works on the
// latest-per-id projection, recomputed per call.
type TaskSearcher interface {
	FilterByStatus(ctx context.Context, statuses []entities.Status) ([]entities.Task, error)
	FilterByPriority(ctx context.Context, priorities []entities.Priority) ([]entities.Task, error)
	GroupByAssignee(ctx context.Context) (map[uuid.UUID][]entities.Task, error)
	FilterByCreator(ctx context.Context, creator entities.User) ([]entities.Task, error)
	FindOverdueTasks(ctx context.Context) ([]OverdueTask, error)
	CreatedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error)
	CompletedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error)
	ModifiedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error)
	FilterByTags(ctx context.Context, tags []string) ([]entities.Task, error)
	CombinedFilter(ctx context.Context, filter SearchFilter) ([]entities.Task, error)
	SortTasks(tasks []entities.Task, sortBy string, ascending bool) []entities.Task
}

// UserManager handles user directory CRUD.
type UserManager interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (entities.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (entities.User, error)
	GetUserByEmail(ctx context.Context, email string) (entities.User, error)
	ListUsers(ctx context.Context, sortBy string) ([]entities.User, error)
	UpdateUser(ctx context.Context, id uuid.UUID, req UpdateUserRequest) (entities.User, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) (entities.User, error)
}

// CreateTaskRequest carries the fields for a new task. Title and creator
// are required.
type CreateTaskRequest struct {
	Title       string        `json:"title" validate:"required"`
	Description string        `json:"description"`
	CreatedBy   entities.User `json:"created_by" validate:"required"`
	Tags        []string      `json:"tags"`
}

// CreateUserRequest carries the fields for a new directory user.
type CreateUserRequest struct {
	Name  string        `json:"name" validate:"required"`
	Email string        `json:"email" validate:"required,email"`
	Role  entities.Role `json:"role" validate:"required"`
}

// UpdateUserRequest carries the updatable user fields. Nil means keep.
type UpdateUserRequest struct {
	Name *string        `json:"name"`
	Role *entities.Role `json:"role"`
}

// SearchFilter combines optional criteria for CombinedFilter. A nil or
// empty criterion imposes no constraint.
type SearchFilter struct {
	Statuses    []entities.Status
	Priorities  []entities.Priority
	AssigneeID  *uuid.UUID
	OverdueOnly bool
	Tags        []string
}

// OverdueTask pairs a task with the number of whole days it is past due.
type OverdueTask struct {
	Task        entities.Task
	DaysOverdue int64
}

// Sort keys accepted by TaskSearcher.SortTasks. Anything else falls back
// to the created date.
const (
	SortByPriority    = "priority"
	SortByDueDate     = "duedate"
	SortByCreatedDate = "createddate"
	SortByStatus      = "status"
)
