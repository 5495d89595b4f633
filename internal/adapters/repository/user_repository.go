package repository

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/ports"
)

// UserRepositoryImpl is the in-memory user directory. Save replaces any
// existing record with the same id, so user updates are whole-value
// swaps of immutable User snapshots.
type UserRepositoryImpl struct {
	mu    sync.RWMutex
	users map[uuid.UUID]entities.User
	order []uuid.UUID
}

// NewUserRepository creates an empty in-memory user directory.
func NewUserRepository() ports.UserRepository {
	return &UserRepositoryImpl{
		users: make(map[uuid.UUID]entities.User),
	}
}

func (r *UserRepositoryImpl) Save(ctx context.Context, user entities.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[user.ID]; !exists {
		r.order = append(r.order, user.ID)
	}
	r.users[user.ID] = user
	return nil
}

func (r *UserRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[id]
	if !ok {
		return entities.User{}, entities.ErrUserNotFound
	}
	return user, nil
}

func (r *UserRepositoryImpl) GetByEmail(ctx context.Context, email string) (entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return entities.User{}, entities.ErrUserNotFound
}

func (r *UserRepositoryImpl) List(ctx context.Context) ([]entities.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]entities.User, 0, len(r.order))
	for _, id := range r.order {
		users = append(users, r.users[id])
	}
	return users, nil
}
