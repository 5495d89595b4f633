package commands

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/taskledger/core/internal/adapters/repository"
	"github.com/taskledger/core/internal/application/services"
	"github.com/taskledger/core/internal/domain/entities"
	"github.com/taskledger/core/internal/infrastructure/clock"
	"github.com/taskledger/core/internal/infrastructure/config"
	"github.com/taskledger/core/internal/infrastructure/logger"
	"github.com/taskledger/core/internal/infrastructure/metrics"
	"github.com/taskledger/core/internal/ports"
)

// NewDemoCommand creates the demo command
func NewDemoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Run the task lifecycle and search walkthrough",
		Long:  "Seed users, drive a task through its full lifecycle, run the search engine over the results and dump the collected metrics",
		Run: func(cmd *cobra.Command, args []string) {
			runDemo()
		},
	}
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print TaskLedger version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("TaskLedger Core v1.0.0")
		},
	}
}

func runDemo() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	ctx := context.Background()
	clk := clock.NewSystem()
	m := metrics.New()

	taskRepo := repository.NewTaskVersionRepository()
	activityRepo := repository.NewActivityLogRepository()
	userRepo := repository.NewUserRepository()

	taskService := services.NewTaskService(taskRepo, activityRepo, userRepo, clk, appLogger, m)
	searchService := services.NewTaskSearchService(taskRepo, clk)
	userService := services.NewUserService(userRepo, taskRepo, clk, appLogger)

	appLogger.Infow("Starting TaskLedger demo", "environment", cfg.App.Environment)

	// Seed users
	alice, err := userService.CreateUser(ctx, ports.CreateUserRequest{
		Name: "Alice", Email: "alice@test.com", Role: entities.RoleManager,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}
	bob, err := userService.CreateUser(ctx, ports.CreateUserRequest{
		Name: "Bob", Email: "bob@test.com", Role: entities.RoleMember,
	})
	if err != nil {
		log.Fatalf("Failed to create user: %v", err)
	}

	// Task lifecycle
	task, err := taskService.CreateTask(ctx, ports.CreateTaskRequest{
		Title:       "Design API",
		Description: "Design task service APIs",
		CreatedBy:   alice,
		Tags:        []string{"api", "design"},
	})
	if err != nil {
		log.Fatalf("Failed to create task: %v", err)
	}
	fmt.Println("Task created:")
	printTask(task)

	task, _ = taskService.AssignTask(ctx, task.ID, bob.ID, alice)
	fmt.Println("\nAfter assignment:")
	printTask(task)

	task, _ = taskService.ChangeStatus(ctx, task.ID, entities.StatusInProgress, bob)
	task, _ = taskService.ChangePriority(ctx, task.ID, entities.PriorityHigh, alice)

	due := time.Now().Add(24 * time.Hour)
	task, _ = taskService.SetDueDate(ctx, task.ID, &due, alice)
	task, _ = taskService.AddComment(ctx, task.ID, "Looks good, proceeding", bob)

	// Rejected: IN_PROGRESS -> OPEN is not in the transition table
	if _, err := taskService.ChangeStatus(ctx, task.ID, entities.StatusOpen, bob); err != nil {
		fmt.Printf("\nRejected transition: %v\n", err)
	}

	task, _ = taskService.ChangeStatus(ctx, task.ID, entities.StatusCompleted, bob)
	fmt.Println("\nAfter completion:")
	printTask(task)

	history, _ := taskService.GetTaskHistory(ctx, task.ID)
	fmt.Printf("\nTask history (%d versions):\n", len(history))
	for _, version := range history {
		fmt.Printf("  v%d  %-12s %-8s updated=%s\n",
			version.Version, version.Status, version.Priority,
			version.UpdatedAt.Format(time.RFC3339))
	}

	events, _ := activityRepo.ByTask(ctx, task.ID)
	fmt.Printf("\nActivity log (%d events):\n", len(events))
	for _, event := range events {
		fmt.Printf("  %-17s by %-16s %s\n", event.Type, event.Actor.Email, event.Details)
	}

	// More tasks for the search walkthrough
	overdueDue := time.Now().Add(-72 * time.Hour)
	bugTask, _ := taskService.CreateTask(ctx, ports.CreateTaskRequest{
		Title: "Fix security bug", Description: "Fix auth vulnerability",
		CreatedBy: alice, Tags: []string{"security", "bug"},
	})
	_, _ = taskService.ChangePriority(ctx, bugTask.ID, entities.PriorityCritical, alice)
	_, _ = taskService.SetDueDate(ctx, bugTask.ID, &overdueDue, alice)
	_, _ = taskService.AssignTask(ctx, bugTask.ID, bob.ID, alice)

	refactorTask, _ := taskService.CreateTask(ctx, ports.CreateTaskRequest{
		Title: "Refactor module", Description: "Cleanup legacy code",
		CreatedBy: alice, Tags: []string{"cleanup"},
	})
	_, _ = taskService.ChangePriority(ctx, refactorTask.ID, entities.PriorityLow, alice)

	open, _ := searchService.FilterByStatus(ctx, []entities.Status{entities.StatusOpen})
	fmt.Printf("\nOpen tasks: %d\n", len(open))

	overdue, _ := searchService.FindOverdueTasks(ctx)
	fmt.Println("Overdue tasks:")
	for _, entry := range overdue {
		fmt.Printf("  %-20s %d day(s) overdue\n", entry.Task.Title, entry.DaysOverdue)
	}

	combined, _ := searchService.CombinedFilter(ctx, ports.SearchFilter{
		Statuses:   []entities.Status{entities.StatusOpen},
		AssigneeID: &bob.ID,
	})
	fmt.Printf("Open tasks assigned to %s: %d\n", bob.Email, len(combined))

	all, _ := searchService.CombinedFilter(ctx, ports.SearchFilter{})
	byPriority := searchService.SortTasks(all, ports.SortByPriority, false)
	fmt.Println("All tasks by priority (descending):")
	for _, sortedTask := range byPriority {
		fmt.Printf("  %-8s %s\n", sortedTask.Priority, sortedTask.Title)
	}

	if cfg.Metrics.Enabled {
		dumpMetrics(m)
	}
}

func printTask(task entities.Task) {
	assignee := "-"
	if task.AssignedTo != nil {
		assignee = task.AssignedTo.Email
	}
	fmt.Printf("  %s v%d  status=%s priority=%s assignee=%s tags=%v comments=%d\n",
		task.Title, task.Version, task.Status, task.Priority, assignee, task.Tags, len(task.Comments))
}

func dumpMetrics(m *metrics.Metrics) {
	snapshot, err := m.Snapshot()
	if err != nil {
		log.Printf("Failed to gather metrics: %v", err)
		return
	}

	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	fmt.Println("\nMetrics:")
	for _, key := range keys {
		fmt.Printf("  %s = %.0f\n", key, snapshot[key])
	}
}
