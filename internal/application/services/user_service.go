package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/infrastructure/logger"
	"github.com/taskledger/core/internal/ports"
)

// UserService handles the user directory. The task core only consumes
// lookups from it; everything here is peripheral to the version store.
type UserService struct {
	users    ports.UserRepository
	tasks    ports.TaskVersionRepository
	clock    ports.Clock
	logger   *logger.Logger
	validate *validator.Validate
}

// NewUserService creates a new user service
func NewUserService(users ports.UserRepository, tasks ports.TaskVersionRepository, clk ports.Clock, log *logger.Logger) *UserService {
	return &UserService{
		users:    users,
		tasks:    tasks,
		clock:    clk,
		logger:   log,
		validate: validator.New(),
	}
}

// CreateUser adds a new user to the directory.
func (s *UserService) CreateUser(ctx context.Context, req ports.CreateUserRequest) (entities.User, error) {
	if err := s.validate.Struct(req); err != nil {
		return entities.User{}, fmt.Errorf("%w: %v", entities.ErrValidation, err)
	}
	if !req.Role.IsValid() {
		return entities.User{}, fmt.Errorf("%w: unknown role %q", entities.ErrValidation, req.Role)
	}

	user := entities.NewUser(req.Name, req.Email, req.Role, s.clock.Now())
	if err := s.users.Save(ctx, user); err != nil {
		return entities.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.LogUserAction(user.ID, "created", map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

// GetUser retrieves a user by id.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return entities.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively.
func (s *UserService) GetUserByEmail(ctx context.Context, email string) (entities.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return entities.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return user, nil
}

// ListUsers returns all users sorted by name, email, role or (default)
// creation time.
func (s *UserService) ListUsers(ctx context.Context, sortBy string) ([]entities.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	var less func(a, b *entities.User) bool
	switch strings.ToLower(sortBy) {
	case "name":
		less = func(a, b *entities.User) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	case "email":
		less = func(a, b *entities.User) bool {
			return strings.ToLower(a.Email) < strings.ToLower(b.Email)
		}
	case "role":
		less = func(a, b *entities.User) bool {
			return a.Role < b.Role
		}
	default:
		less = func(a, b *entities.User) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(users, func(i, j int) bool {
		return less(&users[i], &users[j])
	})
	return users, nil
}

// UpdateUser replaces the user's name and role. ID, email and creation
// time never change; the stored record is swapped for a new value.
func (s *UserService) UpdateUser(ctx context.Context, id uuid.UUID, req ports.UpdateUserRequest) (entities.User, error) {
	existing, err := s.users.GetByID(ctx, id)
	if err != nil {
		return entities.User{}, fmt.Errorf("update user: %w", err)
	}

	name := existing.Name
	if req.Name != nil {
		name = *req.Name
	}
	role := existing.Role
	if req.Role != nil {
		if !req.Role.IsValid() {
			return entities.User{}, fmt.Errorf("%w: unknown role %q", entities.ErrValidation, *req.Role)
		}
		role = *req.Role
	}

	updated := existing.WithNameAndRole(name, role)
	if err := s.users.Save(ctx, updated); err != nil {
		return entities.User{}, fmt.Errorf("update user: %w", err)
	}

	s.logger.LogUserAction(id, "updated", map[string]interface{}{"name": name, "role": role})
	return updated, nil
}

// DeactivateUser soft-deletes a user. It is rejected while the user
// still has OPEN or IN_PROGRESS tasks assigned in the latest projection.
func (s *UserService) DeactivateUser(ctx context.Context, id uuid.UUID) (entities.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return entities.User{}, fmt.Errorf("deactivate user: %w", err)
	}

	active, err := s.hasActiveAssignedTasks(ctx, id)
	if err != nil {
		return entities.User{}, fmt.Errorf("deactivate user: %w", err)
	}
	if active {
		return entities.User{}, entities.ErrUserHasActiveTasks
	}

	deactivated := user.Deactivated()
	if err := s.users.Save(ctx, deactivated); err != nil {
		return entities.User{}, fmt.Errorf("deactivate user: %w", err)
	}

	s.logger.LogUserAction(id, "deactivated", nil)
	return deactivated, nil
}

// hasActiveAssignedTasks checks the latest version of every task for an
// OPEN or IN_PROGRESS assignment to the user.
func (s *UserService) hasActiveAssignedTasks(ctx context.Context, userID uuid.UUID) (bool, error) {
	all, err := s.tasks.All(ctx)
	if err != nil {
		return false, fmt.Errorf("load task versions: %w", err)
	}

	latest := make(map[uuid.UUID]entities.Task, len(all))
	for _, task := range all {
		if existing, ok := latest[task.ID]; !ok || task.Version > existing.Version {
			latest[task.ID] = task
		}
	}

	for _, task := range latest {
		if task.AssignedTo == nil || task.AssignedTo.ID != userID {
			continue
		}
		if task.Status == entities.StatusOpen || task.Status == entities.StatusInProgress {
			return true, nil
		}
	}
	return false, nil
}
