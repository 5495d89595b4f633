package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskledger/core/internal/adapters/repository"
	"github.com/taskledger/core/internal/domain/entities"
)

func newTask(t *testing.T, title string) entities.Task {
	t.Helper()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	creator := entities.NewUser("Alice", "alice@test.com", entities.RoleManager, now)
	return entities.NewTask(title, "desc", creator, nil, now)
}

func TestTaskVersionRepositoryLatestAndHistory(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskVersionRepository()

	v1 := newTask(t, "Task A")
	v2 := v1.NextVersion(v1.CreatedAt.Add(time.Hour))
	v2.Status = entities.StatusInProgress
	v3 := v2.NextVersion(v1.CreatedAt.Add(2 * time.Hour))
	v3.Status = entities.StatusCompleted

	require.NoError(t, repo.Append(ctx, v1))
	require.NoError(t, repo.Append(ctx, v2))
	require.NoError(t, repo.Append(ctx, v3))

	latest, err := repo.LatestByID(ctx, v1.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest.Version)
	assert.Equal(t, entities.StatusCompleted, latest.Status)

	history, err := repo.History(ctx, v1.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	for i, version := range history {
		assert.Equal(t, i+1, version.Version, "contiguous ascending versions")
		assert.Equal(t, v1.CreatedAt, version.CreatedAt, "createdAt identical across history")
	}
	assert.Equal(t, latest, history[len(history)-1], "latest equals last history entry")
}

func TestTaskVersionRepositoryNotFound(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskVersionRepository()

	_, err := repo.LatestByID(ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	_, err = repo.History(ctx, uuid.New())
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)
}

func TestTaskVersionRepositoryAllPreservesAppendOrder(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskVersionRepository()

	a := newTask(t, "A")
	b := newTask(t, "B")
	a2 := a.NextVersion(a.CreatedAt.Add(time.Hour))

	require.NoError(t, repo.Append(ctx, a))
	require.NoError(t, repo.Append(ctx, b))
	require.NoError(t, repo.Append(ctx, a2))

	all, err := repo.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uuid.UUID{a.ID, b.ID, a.ID}, []uuid.UUID{all[0].ID, all[1].ID, all[2].ID})
}

func TestTaskVersionRepositoryStoresCopies(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewTaskVersionRepository()

	task := newTask(t, "Task A")
	task.Tags = []string{"api"}
	require.NoError(t, repo.Append(ctx, task))

	// Mutating the appended value must not reach the store.
	task.Tags[0] = "mutated"

	stored, err := repo.LatestByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, stored.Tags)

	// Mutating a read result must not reach the store either.
	stored.Tags[0] = "mutated"
	again, err := repo.LatestByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"api"}, again.Tags)
}
