package services_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/ports"
)

func taskIDs(tasks []entities.Task) []string {
	ids := make([]string, len(tasks))
	for i, task := range tasks {
		ids[i] = task.Title
	}
	return ids
}

func TestProjectionUsesLatestVersions(t *testing.T) {
	f := newFixture(t)

	task := f.createTask(t, "evolving")
	f.clk.Advance(time.Minute)
	_, err := f.service.ChangeStatus(f.ctx, task.ID, entities.StatusInProgress, f.alice)
	require.NoError(t, err)

	open, err := f.search.FilterByStatus(f.ctx, []entities.Status{entities.StatusOpen})
	require.NoError(t, err)
	assert.Empty(t, open, "superseded versions never appear")

	inProgress, err := f.search.FilterByStatus(f.ctx, []entities.Status{entities.StatusInProgress})
	require.NoError(t, err)
	require.Len(t, inProgress, 1)
	assert.Equal(t, 2, inProgress[0].Version)
}

func TestFilterByPriority(t *testing.T) {
	f := newFixture(t)

	low := f.createTask(t, "low")
	_, err := f.service.ChangePriority(f.ctx, low.ID, entities.PriorityLow, f.alice)
	require.NoError(t, err)
	f.createTask(t, "medium")
	high := f.createTask(t, "high")
	_, err = f.service.ChangePriority(f.ctx, high.ID, entities.PriorityHigh, f.alice)
	require.NoError(t, err)

	matched, err := f.search.FilterByPriority(f.ctx, []entities.Priority{entities.PriorityLow, entities.PriorityHigh})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"low", "high"}, taskIDs(matched))
}

func TestGroupByAssigneeOmitsUnassigned(t *testing.T) {
	f := newFixture(t)

	assigned := f.createTask(t, "assigned")
	_, err := f.service.AssignTask(f.ctx, assigned.ID, f.bob.ID, f.alice)
	require.NoError(t, err)
	f.createTask(t, "unassigned")

	groups, err := f.search.GroupByAssignee(f.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Len(t, groups[f.bob.ID], 1)
	assert.Equal(t, "assigned", groups[f.bob.ID][0].Title)
}

func TestFilterByCreator(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "by alice")

	mine, err := f.search.FilterByCreator(f.ctx, f.alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	none, err := f.search.FilterByCreator(f.ctx, f.bob)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindOverdueTasks(t *testing.T) {
	f := newFixture(t)

	pastDue := f.clk.Now().Add(-50 * time.Hour)
	futureDue := f.clk.Now().Add(24 * time.Hour)

	overdueTask := f.createTask(t, "overdue")
	_, err := f.service.SetDueDate(f.ctx, overdueTask.ID, &pastDue, f.alice)
	require.NoError(t, err)

	onTime := f.createTask(t, "on time")
	_, err = f.service.SetDueDate(f.ctx, onTime.ID, &futureDue, f.alice)
	require.NoError(t, err)

	f.createTask(t, "no due date")

	completedLate := f.createTask(t, "completed late")
	_, err = f.service.SetDueDate(f.ctx, completedLate.ID, &pastDue, f.alice)
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(f.ctx, completedLate.ID, entities.StatusInProgress, f.alice)
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(f.ctx, completedLate.ID, entities.StatusCompleted, f.alice)
	require.NoError(t, err)

	cancelledLate := f.createTask(t, "cancelled late")
	_, err = f.service.SetDueDate(f.ctx, cancelledLate.ID, &pastDue, f.alice)
	require.NoError(t, err)
	_, err = f.service.ChangeStatus(f.ctx, cancelledLate.ID, entities.StatusCancelled, f.alice)
	require.NoError(t, err)

	overdue, err := f.search.FindOverdueTasks(f.ctx)
	require.NoError(t, err)
	require.Len(t, overdue, 1, "terminal and future-due tasks are excluded")
	assert.Equal(t, "overdue", overdue[0].Task.Title)
	assert.Equal(t, int64(2), overdue[0].DaysOverdue, "50h past due is two whole days")
}

func TestDateRangeFilters(t *testing.T) {
	f := newFixture(t)
	start := f.clk.Now()

	early := f.createTask(t, "early")
	f.clk.Advance(time.Hour)
	f.createTask(t, "late")

	// Inclusive on both ends.
	created, err := f.search.CreatedBetween(f.ctx, start, start)
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, taskIDs(created))

	created, err = f.search.CreatedBetween(f.ctx, start, f.clk.Now())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"early", "late"}, taskIDs(created))

	// Complete "early" now; CompletedBetween matches only COMPLETED
	// tasks by their final update time.
	f.clk.Advance(time.Hour)
	_, err = f.service.ChangeStatus(f.ctx, early.ID, entities.StatusInProgress, f.alice)
	require.NoError(t, err)
	f.clk.Advance(time.Hour)
	completedAt := f.clk.Now()
	_, err = f.service.ChangeStatus(f.ctx, early.ID, entities.StatusCompleted, f.alice)
	require.NoError(t, err)

	completed, err := f.search.CompletedBetween(f.ctx, completedAt, completedAt)
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, taskIDs(completed))

	completed, err = f.search.CompletedBetween(f.ctx, start, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Empty(t, completed, "completion window looks at the final update time")

	modified, err := f.search.ModifiedBetween(f.ctx, completedAt, completedAt)
	require.NoError(t, err)
	assert.Equal(t, []string{"early"}, taskIDs(modified))
}

func TestFilterByTags(t *testing.T) {
	f := newFixture(t)

	tagged, err := f.service.CreateTask(f.ctx, ports.CreateTaskRequest{
		Title:     "tagged",
		CreatedBy: f.alice,
		Tags:      []string{"api", "security"},
	})
	require.NoError(t, err)
	_, err = f.service.CreateTask(f.ctx, ports.CreateTaskRequest{
		Title:     "other",
		CreatedBy: f.alice,
		Tags:      []string{"api"},
	})
	require.NoError(t, err)

	matched, err := f.search.FilterByTags(f.ctx, []string{"api", "security"})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, tagged.ID, matched[0].ID)

	matched, err = f.search.FilterByTags(f.ctx, []string{"api"})
	require.NoError(t, err)
	assert.Len(t, matched, 2, "superset match")
}

func TestCombinedFilterEmptyEqualsProjection(t *testing.T) {
	f := newFixture(t)
	f.createTask(t, "one")
	f.createTask(t, "two")
	f.createTask(t, "three")

	all, err := f.search.CombinedFilter(f.ctx, ports.SearchFilter{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"one", "two", "three"}, taskIDs(all))
}

func TestCombinedFilterConjunction(t *testing.T) {
	f := newFixture(t)

	pastDue := f.clk.Now().Add(-24 * time.Hour)

	match, err := f.service.CreateTask(f.ctx, ports.CreateTaskRequest{
		Title: "match", CreatedBy: f.alice, Tags: []string{"api"},
	})
	require.NoError(t, err)
	_, err = f.service.AssignTask(f.ctx, match.ID, f.bob.ID, f.alice)
	require.NoError(t, err)
	_, err = f.service.SetDueDate(f.ctx, match.ID, &pastDue, f.alice)
	require.NoError(t, err)

	// Same assignee and tag but not overdue.
	nearMiss, err := f.service.CreateTask(f.ctx, ports.CreateTaskRequest{
		Title: "near miss", CreatedBy: f.alice, Tags: []string{"api"},
	})
	require.NoError(t, err)
	_, err = f.service.AssignTask(f.ctx, nearMiss.ID, f.bob.ID, f.alice)
	require.NoError(t, err)

	matched, err := f.search.CombinedFilter(f.ctx, ports.SearchFilter{
		Statuses:    []entities.Status{entities.StatusOpen},
		AssigneeID:  &f.bob.ID,
		OverdueOnly: true,
		Tags:        []string{"api"},
	})
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "match", matched[0].Title)
}

func TestSortTasksByPriorityDescendingIsStable(t *testing.T) {
	f := newFixture(t)
	now := f.clk.Now()

	mk := func(title string, priority entities.Priority) entities.Task {
		task := entities.NewTask(title, "", f.alice, nil, now)
		task.Priority = priority
		return task
	}

	tasks := []entities.Task{
		mk("low", entities.PriorityLow),
		mk("critical", entities.PriorityCritical),
		mk("medium-1", entities.PriorityMedium),
		mk("medium-2", entities.PriorityMedium),
	}

	sorted := f.search.SortTasks(tasks, ports.SortByPriority, false)
	assert.Equal(t, []string{"critical", "medium-1", "medium-2", "low"}, taskIDs(sorted),
		"descending by priority, equal priorities keep input order")

	// Input is untouched.
	assert.Equal(t, []string{"low", "critical", "medium-1", "medium-2"}, taskIDs(tasks))
}

func TestSortTasksByDueDateMissingSortsLast(t *testing.T) {
	f := newFixture(t)
	now := f.clk.Now()

	soon := now.Add(time.Hour)
	later := now.Add(48 * time.Hour)

	withDue := func(title string, due *time.Time) entities.Task {
		task := entities.NewTask(title, "", f.alice, nil, now)
		task.DueDate = due
		return task
	}

	tasks := []entities.Task{
		withDue("none", nil),
		withDue("later", &later),
		withDue("soon", &soon),
	}

	ascending := f.search.SortTasks(tasks, ports.SortByDueDate, true)
	assert.Equal(t, []string{"soon", "later", "none"}, taskIDs(ascending))
}

func TestSortTasksUnknownKeyFallsBackToCreatedDate(t *testing.T) {
	f := newFixture(t)

	first := entities.NewTask("first", "", f.alice, nil, f.clk.Now())
	second := entities.NewTask("second", "", f.alice, nil, f.clk.Now().Add(time.Hour))

	sorted := f.search.SortTasks([]entities.Task{second, first}, "bogus", true)
	assert.Equal(t, []string{"first", "second"}, taskIDs(sorted))
}

func TestSortTasksByStatus(t *testing.T) {
	f := newFixture(t)
	now := f.clk.Now()

	mk := func(title string, status entities.Status) entities.Task {
		task := entities.NewTask(title, "", f.alice, nil, now)
		task.Status = status
		return task
	}

	tasks := []entities.Task{
		mk("cancelled", entities.StatusCancelled),
		mk("open", entities.StatusOpen),
		mk("completed", entities.StatusCompleted),
		mk("in progress", entities.StatusInProgress),
	}

	sorted := f.search.SortTasks(tasks, ports.SortByStatus, true)
	assert.Equal(t, []string{"open", "in progress", "completed", "cancelled"}, taskIDs(sorted))
}
