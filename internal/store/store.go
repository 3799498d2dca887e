// Package store defines the persistence contract shared by the SQLite and
// MongoDB backends. Callers must observe identical results regardless of
// which backend a deployment selects; the backends are never mixed at
// runtime.
package store

import (
	"context"
	"errors"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
)

// ErrNotFound is returned when a task or schedule lookup finds nothing.
// Absence is not a fault: callers branch on it to show a user-facing message.
var ErrNotFound = errors.New("store: not found")

// DateLayout is the wire format for all dates crossing the store boundary.
const DateLayout = "2006-01-02"

// Store owns tasks, schedules and completion records, all scoped per user.
//
// A taskID of 0 means "no task filter" where a filter is optional, and a
// userID of 0 on GetTask means "search across all users" (slow path). Mutating
// operations are atomic with respect to the uniqueness invariants: two
// concurrent attempts to record the same (user, date, task) completion yield
// exactly one true and one false.
type Store interface {
	// AddCompletionIfMissing records a completion for the triple and reports
	// whether a new record was written. A duplicate is not an error.
	AddCompletionIfMissing(ctx context.Context, userID int64, dateISO string, taskID int64) (bool, error)

	// DatesInMonth returns the ISO dates with a completion record in the
	// given calendar month, optionally restricted to one task.
	DatesInMonth(ctx context.Context, userID int64, year, month int, taskID int64) ([]string, error)

	// TotalCompletions counts all completion records for the user, optionally
	// restricted to one task.
	TotalCompletions(ctx context.Context, userID int64, taskID int64) (int64, error)

	// CreateTask allocates the next per-user task id, persists the task as
	// active and returns the new id.
	CreateTask(ctx context.Context, userID int64, name, description, frequency, scheduleTime string) (int64, error)

	// ListTasks returns the user's tasks ordered by name ascending. With
	// activeOnly it skips soft-deleted tasks.
	ListTasks(ctx context.Context, userID int64, activeOnly bool) ([]model.Task, error)

	// DeleteTask soft-deletes the task and deactivates its schedules in the
	// same operation. It returns false when the task does not exist or is
	// already inactive for that user. Completion history is retained.
	DeleteTask(ctx context.Context, userID, taskID int64) (bool, error)

	// GetTask returns the task when it is active, ErrNotFound otherwise.
	GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error)

	// CreateSchedule allocates the next per-user schedule id and persists it
	// as active. An empty timezone defaults to UTC.
	CreateSchedule(ctx context.Context, userID, taskID int64, timeStr, timezone string) (int64, error)

	// ListSchedules returns the user's active schedules joined with their
	// task's name, ordered by time ascending. Schedules whose task has been
	// deleted are excluded.
	ListSchedules(ctx context.Context, userID int64) ([]model.ScheduleWithTask, error)

	// DeleteSchedule deactivates the schedule, returning false if not found.
	DeleteSchedule(ctx context.Context, userID, scheduleID int64) (bool, error)

	// TaskStats returns per-active-task totals and current-month counts,
	// ordered by total descending.
	TaskStats(ctx context.Context, userID int64) ([]model.TaskStats, error)

	// LastCompletionDate returns the maximum ISO date among the task's
	// completion records, or "" when there are none.
	LastCompletionDate(ctx context.Context, userID, taskID int64) (string, error)

	// MonthCompletionCount counts completions in the current calendar month,
	// evaluated against the store's own clock.
	MonthCompletionCount(ctx context.Context, userID, taskID int64) (int64, error)

	// SchedulesForTask returns the active schedules for one task, ordered by
	// time ascending.
	SchedulesForTask(ctx context.Context, userID, taskID int64) ([]model.Schedule, error)

	// TaskStreaks returns (current, best) per the shared streak algorithm,
	// using the store's own clock for "today".
	TaskStreaks(ctx context.Context, userID, taskID int64) (current, best int, err error)

	// TasksScheduledAt returns every active task, across all users, whose
	// default schedule time equals timeStr exactly (string match, so "07:30"
	// and "7:30" are distinct lookups).
	TasksScheduledAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error)

	// SchedulesAt returns every active schedule entry, across all users,
	// whose time equals timeStr exactly and whose task is still active. The
	// reminder scan honors these independently of the tasks' own default
	// times.
	SchedulesAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error)

	// IsCompletedOnDate reports whether a completion record exists for the
	// triple.
	IsCompletedOnDate(ctx context.Context, userID, taskID int64, dateISO string) (bool, error)

	// Close releases the backend connection.
	Close(ctx context.Context) error
}
