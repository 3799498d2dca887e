package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

// TaskInput represents data required to create a habit.
type TaskInput struct {
	Name         string
	Description  string
	Frequency    string
	ScheduleTime string // zero-padded HH:MM, or empty for manual tracking
}

// TaskDetail is the full per-task summary shown by the detailed listing.
type TaskDetail struct {
	Task          model.Task
	Total         int64
	ThisMonth     int64
	LastDone      string
	CurrentStreak int
	BestStreak    int
	Schedules     []model.Schedule
}

// TaskService wraps habit-related business logic. Input is validated here;
// the store assumes well-formed identifiers, dates and time strings.
type TaskService struct {
	store store.Store
}

func NewTaskService(st store.Store) *TaskService {
	return &TaskService{store: st}
}

// NormalizeTime validates an HH:MM 24-hour string and returns it zero-padded,
// so "7:30" becomes "07:30". The store matches schedule times by exact
// string comparison, so everything persisted must go through here.
func NormalizeTime(raw string) (string, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour in %q", raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute in %q", raw)
	}
	return fmt.Sprintf("%02d:%02d", hour, minute), nil
}

func (s *TaskService) CreateTask(ctx context.Context, userID int64, input TaskInput) (int64, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return 0, fmt.Errorf("name is required")
	}
	frequency := input.Frequency
	if frequency == "" {
		frequency = model.FrequencyDaily
	}
	if !model.ValidFrequency(frequency) {
		return 0, fmt.Errorf("unsupported frequency %q", frequency)
	}
	scheduleTime := input.ScheduleTime
	if scheduleTime != "" {
		normalized, err := NormalizeTime(scheduleTime)
		if err != nil {
			return 0, err
		}
		scheduleTime = normalized
	}
	return s.store.CreateTask(ctx, userID, name, strings.TrimSpace(input.Description), frequency, scheduleTime)
}

func (s *TaskService) ListTasks(ctx context.Context, userID int64) ([]model.Task, error) {
	return s.store.ListTasks(ctx, userID, true)
}

func (s *TaskService) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	return s.store.GetTask(ctx, userID, taskID)
}

// CompleteToday records today's completion for the task. It reports whether a
// new record was written (false means the task was already done today) along
// with the task's updated lifetime total.
func (s *TaskService) CompleteToday(ctx context.Context, userID, taskID int64) (inserted bool, total int64, err error) {
	today := time.Now().Format(store.DateLayout)
	inserted, err = s.store.AddCompletionIfMissing(ctx, userID, today, taskID)
	if err != nil {
		return false, 0, err
	}
	total, err = s.store.TotalCompletions(ctx, userID, taskID)
	if err != nil {
		return false, 0, err
	}
	return inserted, total, nil
}

// TotalFor returns the lifetime completion count for one task.
func (s *TaskService) TotalFor(ctx context.Context, userID, taskID int64) (int64, error) {
	return s.store.TotalCompletions(ctx, userID, taskID)
}

func (s *TaskService) DeleteTask(ctx context.Context, userID, taskID int64) (bool, error) {
	return s.store.DeleteTask(ctx, userID, taskID)
}

func (s *TaskService) CreateSchedule(ctx context.Context, userID, taskID int64, timeStr, timezone string) (int64, error) {
	normalized, err := NormalizeTime(timeStr)
	if err != nil {
		return 0, err
	}
	if _, err := s.store.GetTask(ctx, userID, taskID); err != nil {
		return 0, err
	}
	return s.store.CreateSchedule(ctx, userID, taskID, normalized, timezone)
}

func (s *TaskService) ListSchedules(ctx context.Context, userID int64) ([]model.ScheduleWithTask, error) {
	return s.store.ListSchedules(ctx, userID)
}

func (s *TaskService) DeleteSchedule(ctx context.Context, userID, scheduleID int64) (bool, error) {
	return s.store.DeleteSchedule(ctx, userID, scheduleID)
}

func (s *TaskService) Stats(ctx context.Context, userID int64) ([]model.TaskStats, error) {
	return s.store.TaskStats(ctx, userID)
}

// TaskDetails assembles the detailed per-task summary: totals, current-month
// count, last completion, streaks and reminder schedules.
func (s *TaskService) TaskDetails(ctx context.Context, userID int64) ([]TaskDetail, error) {
	tasks, err := s.store.ListTasks(ctx, userID, true)
	if err != nil {
		return nil, err
	}

	details := make([]TaskDetail, 0, len(tasks))
	for _, task := range tasks {
		total, err := s.store.TotalCompletions(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		thisMonth, err := s.store.MonthCompletionCount(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		lastDone, err := s.store.LastCompletionDate(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		current, best, err := s.store.TaskStreaks(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		schedules, err := s.store.SchedulesForTask(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		details = append(details, TaskDetail{
			Task:          task,
			Total:         total,
			ThisMonth:     thisMonth,
			LastDone:      lastDone,
			CurrentStreak: current,
			BestStreak:    best,
			Schedules:     schedules,
		})
	}
	return details, nil
}
