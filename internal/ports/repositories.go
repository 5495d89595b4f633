package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/taskledger/core/internal/domain/entities"
)

// TaskVersionRepository defines the interface for the append-only task
// version store. It holds every version of every task; nothing is ever
// deleted or compacted. Callers guarantee monotonic versioning; the
// store performs no uniqueness checks on (id, version).
type TaskVersionRepository interface {
	// Append adds one task version to the store.
	Append(ctx context.Context, task entities.Task) error
	// LatestByID returns the version with the highest version number for
	// the id, or entities.ErrTaskNotFound when no version exists.
	LatestByID(ctx context.Context, id uuid.UUID) (entities.Task, error)
	// History returns all versions for the id ordered by ascending
	// version number.
	History(ctx context.Context, id uuid.UUID) ([]entities.Task, error)
	// All returns every stored version of every task in append order.
	All(ctx context.Context) ([]entities.Task, error)
}

// ActivityLogRepository defines the interface for the append-only audit
// log. Events are immutable; there is no update or delete.
type ActivityLogRepository interface {
	// Append records one event.
	Append(ctx context.Context, event entities.ActivityEvent) error
	// ByTask returns the events for a task ordered by ascending timestamp.
	ByTask(ctx context.Context, taskID uuid.UUID) ([]entities.ActivityEvent, error)
	// All returns every event in insertion order.
	All(ctx context.Context) ([]entities.ActivityEvent, error)
}

// UserRepository defines the interface for the user directory. The task
// core consumes it only for lookups; user CRUD lives in the user service.
type UserRepository interface {
	Save(ctx context.Context, user entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (entities.User, error)
	GetByEmail(ctx context.Context, email string) (entities.User, error)
	List(ctx context.Context) ([]entities.User, error)
}

// Clock supplies the current time. Every timestamp in the system is
// drawn from one injected Clock so tests can control it.
type Clock interface {
	Now() time.Time
}
