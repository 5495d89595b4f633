package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/ports"
)

// TaskSearchService is the query engine. Every operation works on the
// latest-per-id projection of the version store, recomputed on each call
// so results are never stale.
type TaskSearchService struct {
	tasks ports.TaskVersionRepository
	clock ports.Clock
}

// NewTaskSearchService creates a new query engine
func NewTaskSearchService(tasks ports.TaskVersionRepository, clk ports.Clock) *TaskSearchService {
	return &TaskSearchService{
		tasks: tasks,
		clock: clk,
	}
}

// latestTasks computes the latest-per-id projection: the highest-version
// entry for every task id, ordered by first appearance of each id in the
// store.
func (s *TaskSearchService) latestTasks(ctx context.Context) ([]entities.Task, error) {
	all, err := s.tasks.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("load task versions: %w", err)
	}

	latest := make(map[uuid.UUID]entities.Task, len(all))
	order := make([]uuid.UUID, 0, len(all))
	for _, task := range all {
		existing, seen := latest[task.ID]
		if !seen {
			order = append(order, task.ID)
		}
		if !seen || task.Version > existing.Version {
			latest[task.ID] = task
		}
	}

	projection := make([]entities.Task, 0, len(order))
	for _, id := range order {
		projection = append(projection, latest[id])
	}
	return projection, nil
}

// FilterByStatus keeps tasks whose status is in statuses.
func (s *TaskSearchService) FilterByStatus(ctx context.Context, statuses []entities.Status) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[entities.Status]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	var matched []entities.Task
	for _, task := range projection {
		if _, ok := wanted[task.Status]; ok {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// FilterByPriority keeps tasks whose priority is in priorities.
func (s *TaskSearchService) FilterByPriority(ctx context.Context, priorities []entities.Priority) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[entities.Priority]struct{}, len(priorities))
	for _, priority := range priorities {
		wanted[priority] = struct{}{}
	}

	var matched []entities.Task
	for _, task := range projection {
		if _, ok := wanted[task.Priority]; ok {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// GroupByAssignee groups the projection by assignee user id. Unassigned
// tasks are omitted.
func (s *TaskSearchService) GroupByAssignee(ctx context.Context) (map[uuid.UUID][]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	groups := make(map[uuid.UUID][]entities.Task)
	for _, task := range projection {
		if task.AssignedTo == nil {
			continue
		}
		groups[task.AssignedTo.ID] = append(groups[task.AssignedTo.ID], task)
	}
	return groups, nil
}

// FilterByCreator keeps tasks created by the given user, matched by id.
func (s *TaskSearchService) FilterByCreator(ctx context.Context, creator entities.User) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []entities.Task
	for _, task := range projection {
		if task.CreatedBy.ID == creator.ID {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// FindOverdueTasks returns tasks with a due date in the past that are
// neither COMPLETED nor CANCELLED, each paired with the number of whole
// days past due.
func (s *TaskSearchService) FindOverdueTasks(ctx context.Context) ([]ports.OverdueTask, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	var overdue []ports.OverdueTask
	for _, task := range projection {
		if !task.IsOverdue(now) {
			continue
		}
		overdue = append(overdue, ports.OverdueTask{
			Task:        task,
			DaysOverdue: task.DaysOverdue(now),
		})
	}
	return overdue, nil
}

// CreatedBetween keeps tasks whose createdAt lies in [from, to].
func (s *TaskSearchService) CreatedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []entities.Task
	for _, task := range projection {
		if inRange(task.CreatedAt, from, to) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// CompletedBetween keeps COMPLETED tasks whose updatedAt lies in
// [from, to].
func (s *TaskSearchService) CompletedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []entities.Task
	for _, task := range projection {
		if task.Status == entities.StatusCompleted && inRange(task.UpdatedAt, from, to) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// ModifiedBetween keeps tasks whose updatedAt lies in [from, to].
func (s *TaskSearchService) ModifiedBetween(ctx context.Context, from, to time.Time) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []entities.Task
	for _, task := range projection {
		if inRange(task.UpdatedAt, from, to) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// FilterByTags keeps tasks whose tag set is a superset of tags.
func (s *TaskSearchService) FilterByTags(ctx context.Context, tags []string) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	var matched []entities.Task
	for _, task := range projection {
		if task.HasAllTags(tags) {
			matched = append(matched, task)
		}
	}
	return matched, nil
}

// CombinedFilter applies the conjunction of whichever criteria the
// filter supplies. With every criterion absent it returns the full
// latest-per-id projection.
func (s *TaskSearchService) CombinedFilter(ctx context.Context, filter ports.SearchFilter) ([]entities.Task, error) {
	projection, err := s.latestTasks(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make(map[entities.Status]struct{}, len(filter.Statuses))
	for _, status := range filter.Statuses {
		statuses[status] = struct{}{}
	}
	priorities := make(map[entities.Priority]struct{}, len(filter.Priorities))
	for _, priority := range filter.Priorities {
		priorities[priority] = struct{}{}
	}

	now := s.clock.Now()
	var matched []entities.Task
	for _, task := range projection {
		if len(statuses) > 0 {
			if _, ok := statuses[task.Status]; !ok {
				continue
			}
		}
		if len(priorities) > 0 {
			if _, ok := priorities[task.Priority]; !ok {
				continue
			}
		}
		if filter.AssigneeID != nil {
			if task.AssignedTo == nil || task.AssignedTo.ID != *filter.AssigneeID {
				continue
			}
		}
		if filter.OverdueOnly && !task.IsOverdue(now) {
			continue
		}
		if len(filter.Tags) > 0 && !task.HasAllTags(filter.Tags) {
			continue
		}
		matched = append(matched, task)
	}
	return matched, nil
}

// SortTasks stably sorts a copy of tasks by the given key. Unrecognized
// keys fall back to the created date. Descending order reverses the
// ascending comparator, so ties keep their original relative order.
func (s *TaskSearchService) SortTasks(tasks []entities.Task, sortBy string, ascending bool) []entities.Task {
	sorted := make([]entities.Task, len(tasks))
	copy(sorted, tasks)

	var less func(a, b *entities.Task) bool
	switch strings.ToLower(sortBy) {
	case ports.SortByPriority:
		less = func(a, b *entities.Task) bool {
			return a.Priority.Order() < b.Priority.Order()
		}
	case ports.SortByDueDate:
		// A missing due date sorts as the maximum value, i.e. last when
		// ascending.
		less = func(a, b *entities.Task) bool {
			switch {
			case a.DueDate == nil:
				return false
			case b.DueDate == nil:
				return true
			default:
				return a.DueDate.Before(*b.DueDate)
			}
		}
	case ports.SortByStatus:
		less = func(a, b *entities.Task) bool {
			return a.Status.Order() < b.Status.Order()
		}
	default:
		less = func(a, b *entities.Task) bool {
			return a.CreatedAt.Before(b.CreatedAt)
		}
	}

	sort.SliceStable(sorted, func(i, j int) bool {
		if ascending {
			return less(&sorted[i], &sorted[j])
		}
		return less(&sorted[j], &sorted[i])
	})
	return sorted
}

// inRange reports whether t lies in the inclusive range [from, to].
func inRange(t, from, to time.Time) bool {
	return !t.Before(from) && !t.After(to)
}
