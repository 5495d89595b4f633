package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/infrastructure/logger"
	"github.com/taskledger/core/internal/infrastructure/metrics"
	"github.com/taskledger/core/internal/ports"
)

// Mutation operation names used in logs and metrics labels.
const (
	opCreate         = "create"
	opChangeStatus   = "change_status"
	opAssign         = "assign"
	opUnassign       = "unassign"
	opChangePriority = "change_priority"
	opSetDueDate     = "set_due_date"
	opAddComment     = "add_comment"
)

// TaskService is the task mutation engine. Every successful operation
// appends exactly one new immutable task version and exactly one
// activity event; a failed operation writes nothing.
type TaskService struct {
	tasks    ports.TaskVersionRepository
	activity ports.ActivityLogRepository
	users    ports.UserRepository
	clock    ports.Clock
	logger   *logger.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate

	// mu serializes every latest-then-append sequence so two concurrent
	// mutations cannot both read the same latest version (lost update).
	mu sync.Mutex
}

// NewTaskService creates a new task mutation engine
func NewTaskService(
	tasks ports.TaskVersionRepository,
	activity ports.ActivityLogRepository,
	users ports.UserRepository,
	clk ports.Clock,
	log *logger.Logger,
	m *metrics.Metrics,
) *TaskService {
	return &TaskService{
		tasks:    tasks,
		activity: activity,
		users:    users,
		clock:    clk,
		logger:   log,
		metrics:  m,
		validate: validator.New(),
	}
}

// CreateTask establishes version 1 of a new task and records a
// TASK_CREATED event with no details.
func (s *TaskService) CreateTask(ctx context.Context, req ports.CreateTaskRequest) (entities.Task, error) {
	if err := s.validate.Struct(req); err != nil {
		s.reject(uuid.Nil, opCreate, "validation", err)
		return entities.Task{}, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	if req.CreatedBy.ID == uuid.Nil {
		err := fmt.Errorf("%w: created_by is required", entities.ErrValidation)
		s.reject(uuid.Nil, opCreate, "validation", err)
		return entities.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	task := entities.NewTask(req.Title, req.Description, req.CreatedBy, req.Tags, now)

	if err := s.commit(ctx, task, entities.ActivityTaskCreated, req.CreatedBy, "", now); err != nil {
		return entities.Task{}, err
	}

	s.observe(task, opCreate, entities.ActivityTaskCreated, req.CreatedBy)
	return task, nil
}

// GetTask returns the latest version of a task.
func (s *TaskService) GetTask(ctx context.Context, taskID uuid.UUID) (entities.Task, error) {
	task, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		return entities.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// GetTaskHistory returns every version of a task ordered by ascending
// version number.
func (s *TaskService) GetTaskHistory(ctx context.Context, taskID uuid.UUID) ([]entities.Task, error) {
	history, err := s.tasks.History(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("get task history: %w", err)
	}
	return history, nil
}

// ChangeStatus moves a task through the status state machine. A
// transition absent from the table, including any self-transition,
// fails with ErrInvalidTransition and leaves both stores untouched.
func (s *TaskService) ChangeStatus(ctx context.Context, taskID uuid.UUID, status entities.Status, actor entities.User) (entities.Task, error) {
	if !status.IsValid() {
		err := fmt.Errorf("%w: unknown status %q", entities.ErrValidation, status)
		s.reject(taskID, opChangeStatus, "validation", err)
		return entities.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opChangeStatus, "not_found", err)
		return entities.Task{}, fmt.Errorf("change status: %w", err)
	}

	if !current.Status.CanTransitionTo(status) {
		err := fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, current.Status, status)
		s.reject(taskID, opChangeStatus, "invalid_transition", err)
		return entities.Task{}, err
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	updated.Status = status

	details := fmt.Sprintf("%s -> %s", current.Status, status)
	if err := s.commit(ctx, updated, entities.ActivityStatusChanged, actor, details, now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opChangeStatus, entities.ActivityStatusChanged, actor)
	return updated, nil
}

// AssignTask assigns a task to a user from the directory. The assignee
// must exist; the task status is not consulted.
func (s *TaskService) AssignTask(ctx context.Context, taskID, userID uuid.UUID, actor entities.User) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opAssign, "not_found", err)
		return entities.Task{}, fmt.Errorf("assign task: %w", err)
	}

	assignee, err := s.users.GetByID(ctx, userID)
	if err != nil {
		s.reject(taskID, opAssign, "not_found", err)
		return entities.Task{}, fmt.Errorf("assign task: %w", err)
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	updated.AssignedTo = &assignee

	details := fmt.Sprintf("Assigned to %s", assignee.Email)
	if err := s.commit(ctx, updated, entities.ActivityAssigneeChanged, actor, details, now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opAssign, entities.ActivityAssigneeChanged, actor)
	return updated, nil
}

// UnassignTask clears the assignee.
func (s *TaskService) UnassignTask(ctx context.Context, taskID uuid.UUID, actor entities.User) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opUnassign, "not_found", err)
		return entities.Task{}, fmt.Errorf("unassign task: %w", err)
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	updated.AssignedTo = nil

	if err := s.commit(ctx, updated, entities.ActivityAssigneeChanged, actor, "Unassigned", now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opUnassign, entities.ActivityAssigneeChanged, actor)
	return updated, nil
}

// ChangePriority replaces the priority unconditionally.
func (s *TaskService) ChangePriority(ctx context.Context, taskID uuid.UUID, priority entities.Priority, actor entities.User) (entities.Task, error) {
	if !priority.IsValid() {
		err := fmt.Errorf("%w: unknown priority %q", entities.ErrValidation, priority)
		s.reject(taskID, opChangePriority, "validation", err)
		return entities.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opChangePriority, "not_found", err)
		return entities.Task{}, fmt.Errorf("change priority: %w", err)
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	updated.Priority = priority

	details := fmt.Sprintf("%s -> %s", current.Priority, priority)
	if err := s.commit(ctx, updated, entities.ActivityPriorityChanged, actor, details, now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opChangePriority, entities.ActivityPriorityChanged, actor)
	return updated, nil
}

// SetDueDate replaces the due date; nil removes it.
func (s *TaskService) SetDueDate(ctx context.Context, taskID uuid.UUID, dueDate *time.Time, actor entities.User) (entities.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opSetDueDate, "not_found", err)
		return entities.Task{}, fmt.Errorf("set due date: %w", err)
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	if dueDate != nil {
		due := *dueDate
		updated.DueDate = &due
	} else {
		updated.DueDate = nil
	}

	details := "Deadline removed"
	if dueDate != nil {
		details = dueDate.UTC().Format(time.RFC3339)
	}
	if err := s.commit(ctx, updated, entities.ActivityDueDateChanged, actor, details, now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opSetDueDate, entities.ActivityDueDateChanged, actor)
	return updated, nil
}

// AddComment appends a comment to the end of the task's comment
// sequence. Comments accumulate across versions, never reordered or
// removed.
func (s *TaskService) AddComment(ctx context.Context, taskID uuid.UUID, message string, author entities.User) (entities.Task, error) {
	if message == "" {
		err := fmt.Errorf("%w: comment message is required", entities.ErrValidation)
		s.reject(taskID, opAddComment, "validation", err)
		return entities.Task{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.LatestByID(ctx, taskID)
	if err != nil {
		s.reject(taskID, opAddComment, "not_found", err)
		return entities.Task{}, fmt.Errorf("add comment: %w", err)
	}

	now := s.clock.Now()
	updated := current.NextVersion(now)
	updated.Comments = append(updated.Comments, entities.NewComment(author, message, now))

	if err := s.commit(ctx, updated, entities.ActivityCommentAdded, author, message, now); err != nil {
		return entities.Task{}, err
	}

	s.observe(updated, opAddComment, entities.ActivityCommentAdded, author)
	return updated, nil
}

// commit appends the new version and its paired activity event. All
// validation has happened by the time commit runs, so the pair is
// atomic: nothing earlier in the operation has written anything.
func (s *TaskService) commit(ctx context.Context, task entities.Task, activityType entities.ActivityType, actor entities.User, details string, now time.Time) error {
	if err := s.tasks.Append(ctx, task); err != nil {
		return fmt.Errorf("append task version: %w", err)
	}

	event := entities.NewActivityEvent(task.ID, activityType, actor, details, now)
	if err := s.activity.Append(ctx, event); err != nil {
		return fmt.Errorf("append activity event: %w", err)
	}

	return nil
}

func (s *TaskService) observe(task entities.Task, operation string, activityType entities.ActivityType, actor entities.User) {
	s.metrics.ObserveMutation(operation, string(activityType))
	s.logger.LogTaskMutation(task.ID, operation, task.Version, actor.Email)
}

func (s *TaskService) reject(taskID uuid.UUID, operation, reason string, err error) {
	s.metrics.ObserveRejection(reason)
	s.logger.LogRejectedMutation(taskID, operation, err)
}
