// Package sqlite implements the store contract on a relational engine via
// GORM. Uniqueness invariants are enforced by indexes and conditional writes,
// not application-level locking.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/streak"
)

// Store is the SQLite-backed streak store.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// Open opens (or creates) the SQLite database at dsn and runs migrations.
func Open(dsn string) (*Store, error) {
	if dsn == "" {
		dsn = "streaks.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	dbLogger := logger.New(
		log.New(os.Stdout, "", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: dbLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(&model.Task{}, &model.Completion{}, &model.Schedule{}); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// ensureDirForSQLite creates the parent dir for the SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// DB exposes the underlying handle for migration tooling.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) AddCompletionIfMissing(ctx context.Context, userID int64, dateISO string, taskID int64) (bool, error) {
	record := model.Completion{UserID: userID, Date: dateISO, TaskID: taskID}
	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&record)
	if res.Error != nil {
		return false, fmt.Errorf("add completion: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) DatesInMonth(ctx context.Context, userID int64, year, month int, taskID int64) ([]string, error) {
	q := s.db.WithContext(ctx).Model(&model.Completion{}).
		Where("user_id = ? AND date LIKE ?", userID, monthPrefix(year, month)+"%")
	if taskID != 0 {
		q = q.Where("task_id = ?", taskID)
	}
	var dates []string
	if err := q.Pluck("date", &dates).Error; err != nil {
		return nil, fmt.Errorf("dates in month: %w", err)
	}
	return dates, nil
}

func (s *Store) TotalCompletions(ctx context.Context, userID int64, taskID int64) (int64, error) {
	q := s.db.WithContext(ctx).Model(&model.Completion{}).Where("user_id = ?", userID)
	if taskID != 0 {
		q = q.Where("task_id = ?", taskID)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("total completions: %w", err)
	}
	return n, nil
}

func (s *Store) CreateTask(ctx context.Context, userID int64, name, description, frequency, scheduleTime string) (int64, error) {
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID sql.NullInt64
		if err := tx.Model(&model.Task{}).Where("user_id = ?", userID).
			Select("MAX(id)").Scan(&maxID).Error; err != nil {
			return err
		}
		id = maxID.Int64 + 1
		task := model.Task{
			ID:           id,
			UserID:       userID,
			Name:         name,
			Description:  description,
			Frequency:    frequency,
			ScheduleTime: scheduleTime,
			CreatedAt:    s.now(),
			IsActive:     true,
		}
		return tx.Create(&task).Error
	})
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

func (s *Store) ListTasks(ctx context.Context, userID int64, activeOnly bool) ([]model.Task, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", userID)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var tasks []model.Task
	if err := q.Order("name ASC").Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID int64) (bool, error) {
	deleted := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Task{}).
			Where("id = ? AND user_id = ? AND is_active = ?", taskID, userID, true).
			Update("is_active", false)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		deleted = true
		// Completion history stays for auditing; inactive tasks are filtered
		// out of every listing and lookup.
		return tx.Model(&model.Schedule{}).
			Where("task_id = ? AND user_id = ?", taskID, userID).
			Update("is_active", false).Error
	})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	return deleted, nil
}

func (s *Store) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	q := s.db.WithContext(ctx).Where("id = ? AND is_active = ?", taskID, true)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var task model.Task
	if err := q.First(&task).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func (s *Store) CreateSchedule(ctx context.Context, userID, taskID int64, timeStr, timezone string) (int64, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	var id int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID sql.NullInt64
		if err := tx.Model(&model.Schedule{}).Where("user_id = ?", userID).
			Select("MAX(id)").Scan(&maxID).Error; err != nil {
			return err
		}
		id = maxID.Int64 + 1
		sched := model.Schedule{
			ID:       id,
			UserID:   userID,
			TaskID:   taskID,
			Time:     timeStr,
			Timezone: timezone,
			IsActive: true,
		}
		return tx.Create(&sched).Error
	})
	if err != nil {
		return 0, fmt.Errorf("create schedule: %w", err)
	}
	return id, nil
}

func (s *Store) ListSchedules(ctx context.Context, userID int64) ([]model.ScheduleWithTask, error) {
	var rows []model.ScheduleWithTask
	err := s.db.WithContext(ctx).
		Table("schedules s").
		Select("s.id, s.task_id, t.name AS task_name, s.schedule_time, s.timezone").
		Joins("JOIN tasks t ON t.id = s.task_id AND t.user_id = s.user_id").
		Where("s.user_id = ? AND s.is_active = ? AND t.is_active = ?", userID, true, true).
		Order("s.schedule_time ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	return rows, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, userID, scheduleID int64) (bool, error) {
	res := s.db.WithContext(ctx).Model(&model.Schedule{}).
		Where("id = ? AND user_id = ? AND is_active = ?", scheduleID, userID, true).
		Update("is_active", false)
	if res.Error != nil {
		return false, fmt.Errorf("delete schedule: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) TaskStats(ctx context.Context, userID int64) ([]model.TaskStats, error) {
	prefix := s.now().Format("2006-01") + "-%"
	var stats []model.TaskStats
	err := s.db.WithContext(ctx).Raw(`
		SELECT t.id AS task_id, t.name AS name,
		       COUNT(c.id) AS total,
		       COUNT(CASE WHEN c.date LIKE ? THEN 1 END) AS this_month
		FROM tasks t
		LEFT JOIN completions c ON c.task_id = t.id AND c.user_id = t.user_id
		WHERE t.user_id = ? AND t.is_active = ?
		GROUP BY t.id, t.name
		ORDER BY total DESC`,
		prefix, userID, true).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("task stats: %w", err)
	}
	return stats, nil
}

func (s *Store) LastCompletionDate(ctx context.Context, userID, taskID int64) (string, error) {
	var last sql.NullString
	err := s.db.WithContext(ctx).Model(&model.Completion{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Select("MAX(date)").Scan(&last).Error
	if err != nil {
		return "", fmt.Errorf("last completion: %w", err)
	}
	return last.String, nil
}

func (s *Store) MonthCompletionCount(ctx context.Context, userID, taskID int64) (int64, error) {
	now := s.now()
	return s.countMonth(ctx, userID, taskID, now.Year(), int(now.Month()))
}

func (s *Store) countMonth(ctx context.Context, userID, taskID int64, year, month int) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Completion{}).
		Where("user_id = ? AND task_id = ? AND date LIKE ?", userID, taskID, monthPrefix(year, month)+"%").
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("month completions: %w", err)
	}
	return n, nil
}

func (s *Store) SchedulesForTask(ctx context.Context, userID, taskID int64) ([]model.Schedule, error) {
	var scheds []model.Schedule
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND task_id = ? AND is_active = ?", userID, taskID, true).
		Order("schedule_time ASC").
		Find(&scheds).Error
	if err != nil {
		return nil, fmt.Errorf("schedules for task: %w", err)
	}
	return scheds, nil
}

func (s *Store) TaskStreaks(ctx context.Context, userID, taskID int64) (int, int, error) {
	var dates []string
	err := s.db.WithContext(ctx).Model(&model.Completion{}).
		Where("user_id = ? AND task_id = ?", userID, taskID).
		Pluck("date", &dates).Error
	if err != nil {
		return 0, 0, fmt.Errorf("task streaks: %w", err)
	}
	current, best := streak.Compute(dates, s.now())
	return current, best, nil
}

func (s *Store) TasksScheduledAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error) {
	var rows []model.ScheduledTask
	err := s.db.WithContext(ctx).Model(&model.Task{}).
		Select("user_id, id AS task_id, name, schedule_time").
		Where("schedule_time = ? AND is_active = ?", timeStr, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tasks scheduled at: %w", err)
	}
	return rows, nil
}

func (s *Store) SchedulesAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error) {
	var rows []model.ScheduledTask
	err := s.db.WithContext(ctx).
		Table("schedules s").
		Select("s.user_id, s.task_id, t.name, s.schedule_time").
		Joins("JOIN tasks t ON t.id = s.task_id AND t.user_id = s.user_id").
		Where("s.schedule_time = ? AND s.is_active = ? AND t.is_active = ?", timeStr, true, true).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("schedules at: %w", err)
	}
	return rows, nil
}

func (s *Store) IsCompletedOnDate(ctx context.Context, userID, taskID int64, dateISO string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&model.Completion{}).
		Where("user_id = ? AND task_id = ? AND date = ?", userID, taskID, dateISO).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("completed on date: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func monthPrefix(year, month int) string {
	return fmt.Sprintf("%04d-%02d-", year, month)
}
