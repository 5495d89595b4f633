package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/ports"
)

// ActivityLogRepositoryImpl is the in-memory append-only audit log.
type ActivityLogRepositoryImpl struct {
	mu     sync.RWMutex
	events []entities.ActivityEvent
}

// NewActivityLogRepository creates an empty in-memory activity log.
func NewActivityLogRepository() ports.ActivityLogRepository {
	return &ActivityLogRepositoryImpl{}
}

func (r *ActivityLogRepositoryImpl) Append(ctx context.Context, event entities.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
	return nil
}

func (r *ActivityLogRepositoryImpl) ByTask(ctx context.Context, taskID uuid.UUID) ([]entities.ActivityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []entities.ActivityEvent
	for _, event := range r.events {
		if event.TaskID == taskID {
			events = append(events, event)
		}
	}
	// Stable so events sharing a timestamp keep insertion order.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	return events, nil
}

func (r *ActivityLogRepositoryImpl) All(ctx context.Context) ([]entities.ActivityEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]entities.ActivityEvent, len(r.events))
	copy(all, r.events)
	return all, nil
}
