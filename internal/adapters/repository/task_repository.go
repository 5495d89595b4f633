package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/ports"
)

// TaskVersionRepositoryImpl is the in-memory append-only version store.
// Versions are indexed by task id so latest/history lookups do not scan
// the whole history; the flat order slice preserves append order for All.
type TaskVersionRepositoryImpl struct {
	mu       sync.RWMutex
	versions []entities.Task
	byID     map[uuid.UUID][]int
}

// NewTaskVersionRepository creates an empty in-memory version store.
func NewTaskVersionRepository() ports.TaskVersionRepository {
	return &TaskVersionRepositoryImpl{
		byID: make(map[uuid.UUID][]int),
	}
}

func (r *TaskVersionRepositoryImpl) Append(ctx context.Context, task entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := task.Clone()
	r.versions = append(r.versions, stored)
	r.byID[stored.ID] = append(r.byID[stored.ID], len(r.versions)-1)
	return nil
}

func (r *TaskVersionRepositoryImpl) LatestByID(ctx context.Context, id uuid.UUID) (entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byID[id]
	if len(indexes) == 0 {
		return entities.Task{}, entities.ErrTaskNotFound
	}

	latest := r.versions[indexes[0]]
	for _, i := range indexes[1:] {
		if r.versions[i].Version > latest.Version {
			latest = r.versions[i]
		}
	}
	return latest.Clone(), nil
}

func (r *TaskVersionRepositoryImpl) History(ctx context.Context, id uuid.UUID) ([]entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes := r.byID[id]
	if len(indexes) == 0 {
		return nil, entities.ErrTaskNotFound
	}

	history := make([]entities.Task, 0, len(indexes))
	for _, i := range indexes {
		history = append(history, r.versions[i].Clone())
	}
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].Version < history[j].Version
	})
	return history, nil
}

func (r *TaskVersionRepositoryImpl) All(ctx context.Context) ([]entities.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]entities.Task, 0, len(r.versions))
	for _, task := range r.versions {
		all = append(all, task.Clone())
	}
	return all, nil
}
