// Package mongo implements the store contract on MongoDB. Tasks, completions
// and schedules live in flat collections keyed by user_id, which lets the
// cross-user reminder lookup run as one indexed query instead of a per-user
// scan. Unique compound indexes carry the same invariants the relational
// backend enforces.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/streak"
)

const idAllocAttempts = 5

// Store is the MongoDB-backed streak store.
type Store struct {
	client      *mongo.Client
	tasks       *mongo.Collection
	completions *mongo.Collection
	schedules   *mongo.Collection
	now         func() time.Time
}

// Open connects to MongoDB and ensures the indexes the contract relies on.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client:      client,
		tasks:       db.Collection("tasks"),
		completions: db.Collection("completions"),
		schedules:   db.Collection("schedules"),
		now:         time.Now,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	_, err := s.tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "id", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "schedule_time", Value: 1}, {Key: "is_active", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("task indexes: %w", err)
	}

	_, err = s.completions.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}, {Key: "task_id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("completion index: %w", err)
	}

	_, err = s.schedules.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "id", Value: 1}},
		Options: unique,
	})
	if err != nil {
		return fmt.Errorf("schedule index: %w", err)
	}
	return nil
}

func (s *Store) AddCompletionIfMissing(ctx context.Context, userID int64, dateISO string, taskID int64) (bool, error) {
	record := model.Completion{UserID: userID, Date: dateISO, TaskID: taskID}
	_, err := s.completions.InsertOne(ctx, record)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("add completion: %w", err)
	}
	return true, nil
}

func (s *Store) DatesInMonth(ctx context.Context, userID int64, year, month int, taskID int64) ([]string, error) {
	start, end := monthBounds(year, month)
	filter := bson.M{
		"user_id": userID,
		"date":    bson.M{"$gte": start, "$lte": end},
	}
	if taskID != 0 {
		filter["task_id"] = taskID
	}
	return s.completionDates(ctx, filter)
}

func (s *Store) completionDates(ctx context.Context, filter bson.M) ([]string, error) {
	cur, err := s.completions.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find completions: %w", err)
	}
	var records []model.Completion
	if err := cur.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("decode completions: %w", err)
	}
	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date)
	}
	return dates, nil
}

func (s *Store) TotalCompletions(ctx context.Context, userID int64, taskID int64) (int64, error) {
	filter := bson.M{"user_id": userID}
	if taskID != 0 {
		filter["task_id"] = taskID
	}
	n, err := s.completions.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("total completions: %w", err)
	}
	return n, nil
}

// nextID allocates max(id)+1 within the user's documents in col. The unique
// (user_id, id) index turns a racing allocation into a duplicate-key error,
// so insert attempts retry with a fresh id instead of silently colliding.
func (s *Store) nextID(ctx context.Context, col *mongo.Collection, userID int64) (int64, error) {
	var doc struct {
		ID int64 `bson:"id"`
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})
	err := col.FindOne(ctx, bson.M{"user_id": userID}, opts).Decode(&doc)
	switch {
	case err == nil:
		return doc.ID + 1, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return 1, nil
	default:
		return 0, fmt.Errorf("next id: %w", err)
	}
}

func (s *Store) CreateTask(ctx context.Context, userID int64, name, description, frequency, scheduleTime string) (int64, error) {
	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		id, err := s.nextID(ctx, s.tasks, userID)
		if err != nil {
			return 0, fmt.Errorf("create task: %w", err)
		}
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
		if _, err := s.tasks.InsertOne(ctx, task); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return 0, fmt.Errorf("create task: %w", err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("create task: id allocation contention for user %d", userID)
}

func (s *Store) ListTasks(ctx context.Context, userID int64, activeOnly bool) ([]model.Task, error) {
	filter := bson.M{"user_id": userID}
	if activeOnly {
		filter["is_active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cur, err := s.tasks.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	var tasks []model.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	return tasks, nil
}

func (s *Store) DeleteTask(ctx context.Context, userID, taskID int64) (bool, error) {
	res, err := s.tasks.UpdateOne(ctx,
		bson.M{"user_id": userID, "id": taskID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return false, fmt.Errorf("delete task: %w", err)
	}
	if res.ModifiedCount == 0 {
		return false, nil
	}
	// Completion history is retained, matching the relational backend.
	_, err = s.schedules.UpdateMany(ctx,
		bson.M{"user_id": userID, "task_id": taskID},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return false, fmt.Errorf("deactivate schedules: %w", err)
	}
	return true, nil
}

func (s *Store) GetTask(ctx context.Context, userID, taskID int64) (*model.Task, error) {
	filter := bson.M{"id": taskID, "is_active": true}
	if userID != 0 {
		filter["user_id"] = userID
	}
	var task model.Task
	err := s.tasks.FindOne(ctx, filter).Decode(&task)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
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
	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		id, err := s.nextID(ctx, s.schedules, userID)
		if err != nil {
			return 0, fmt.Errorf("create schedule: %w", err)
		}
		sched := model.Schedule{
			ID:       id,
			UserID:   userID,
			TaskID:   taskID,
			Time:     timeStr,
			Timezone: timezone,
			IsActive: true,
		}
		if _, err := s.schedules.InsertOne(ctx, sched); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return 0, fmt.Errorf("create schedule: %w", err)
		}
		return id, nil
	}
	return 0, fmt.Errorf("create schedule: id allocation contention for user %d", userID)
}

func (s *Store) ListSchedules(ctx context.Context, userID int64) ([]model.ScheduleWithTask, error) {
	cur, err := s.schedules.Find(ctx, bson.M{"user_id": userID, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	var scheds []model.Schedule
	if err := cur.All(ctx, &scheds); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}

	rows := make([]model.ScheduleWithTask, 0, len(scheds))
	for _, sched := range scheds {
		task, err := s.GetTask(ctx, userID, sched.TaskID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.ScheduleWithTask{
			ID:       sched.ID,
			TaskID:   sched.TaskID,
			TaskName: task.Name,
			Time:     sched.Time,
			Timezone: sched.Timezone,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })
	return rows, nil
}

func (s *Store) DeleteSchedule(ctx context.Context, userID, scheduleID int64) (bool, error) {
	res, err := s.schedules.UpdateOne(ctx,
		bson.M{"user_id": userID, "id": scheduleID, "is_active": true},
		bson.M{"$set": bson.M{"is_active": false}})
	if err != nil {
		return false, fmt.Errorf("delete schedule: %w", err)
	}
	return res.ModifiedCount > 0, nil
}

func (s *Store) TaskStats(ctx context.Context, userID int64) ([]model.TaskStats, error) {
	tasks, err := s.ListTasks(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	now := s.now()
	start, end := monthBounds(now.Year(), int(now.Month()))

	stats := make([]model.TaskStats, 0, len(tasks))
	for _, task := range tasks {
		total, err := s.completions.CountDocuments(ctx, bson.M{"user_id": userID, "task_id": task.ID})
		if err != nil {
			return nil, fmt.Errorf("task stats: %w", err)
		}
		thisMonth, err := s.completions.CountDocuments(ctx, bson.M{
			"user_id": userID,
			"task_id": task.ID,
			"date":    bson.M{"$gte": start, "$lte": end},
		})
		if err != nil {
			return nil, fmt.Errorf("task stats: %w", err)
		}
		stats = append(stats, model.TaskStats{
			TaskID:    task.ID,
			Name:      task.Name,
			Total:     total,
			ThisMonth: thisMonth,
		})
	}
	sort.SliceStable(stats, func(i, j int) bool { return stats[i].Total > stats[j].Total })
	return stats, nil
}

func (s *Store) LastCompletionDate(ctx context.Context, userID, taskID int64) (string, error) {
	var record model.Completion
	opts := options.FindOne().SetSort(bson.D{{Key: "date", Value: -1}})
	err := s.completions.FindOne(ctx, bson.M{"user_id": userID, "task_id": taskID}, opts).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", nil
		}
		return "", fmt.Errorf("last completion: %w", err)
	}
	return record.Date, nil
}

func (s *Store) MonthCompletionCount(ctx context.Context, userID, taskID int64) (int64, error) {
	now := s.now()
	start, end := monthBounds(now.Year(), int(now.Month()))
	n, err := s.completions.CountDocuments(ctx, bson.M{
		"user_id": userID,
		"task_id": taskID,
		"date":    bson.M{"$gte": start, "$lte": end},
	})
	if err != nil {
		return 0, fmt.Errorf("month completions: %w", err)
	}
	return n, nil
}

func (s *Store) SchedulesForTask(ctx context.Context, userID, taskID int64) ([]model.Schedule, error) {
	opts := options.Find().SetSort(bson.D{{Key: "schedule_time", Value: 1}})
	cur, err := s.schedules.Find(ctx, bson.M{"user_id": userID, "task_id": taskID, "is_active": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("schedules for task: %w", err)
	}
	var scheds []model.Schedule
	if err := cur.All(ctx, &scheds); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}
	return scheds, nil
}

func (s *Store) TaskStreaks(ctx context.Context, userID, taskID int64) (int, int, error) {
	dates, err := s.completionDates(ctx, bson.M{"user_id": userID, "task_id": taskID})
	if err != nil {
		return 0, 0, fmt.Errorf("task streaks: %w", err)
	}
	current, best := streak.Compute(dates, s.now())
	return current, best, nil
}

func (s *Store) TasksScheduledAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error) {
	cur, err := s.tasks.Find(ctx, bson.M{"schedule_time": timeStr, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("tasks scheduled at: %w", err)
	}
	var tasks []model.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	rows := make([]model.ScheduledTask, 0, len(tasks))
	for _, task := range tasks {
		rows = append(rows, model.ScheduledTask{
			UserID:       task.UserID,
			TaskID:       task.ID,
			Name:         task.Name,
			ScheduleTime: task.ScheduleTime,
		})
	}
	return rows, nil
}

func (s *Store) SchedulesAt(ctx context.Context, timeStr string) ([]model.ScheduledTask, error) {
	cur, err := s.schedules.Find(ctx, bson.M{"schedule_time": timeStr, "is_active": true})
	if err != nil {
		return nil, fmt.Errorf("schedules at: %w", err)
	}
	var scheds []model.Schedule
	if err := cur.All(ctx, &scheds); err != nil {
		return nil, fmt.Errorf("decode schedules: %w", err)
	}
	rows := make([]model.ScheduledTask, 0, len(scheds))
	for _, sched := range scheds {
		task, err := s.GetTask(ctx, sched.UserID, sched.TaskID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, model.ScheduledTask{
			UserID:       sched.UserID,
			TaskID:       sched.TaskID,
			Name:         task.Name,
			ScheduleTime: sched.Time,
		})
	}
	return rows, nil
}

func (s *Store) IsCompletedOnDate(ctx context.Context, userID, taskID int64, dateISO string) (bool, error) {
	n, err := s.completions.CountDocuments(ctx, bson.M{"user_id": userID, "task_id": taskID, "date": dateISO})
	if err != nil {
		return false, fmt.Errorf("completed on date: %w", err)
	}
	return n > 0, nil
}

// Tasks returns the raw task collection for migration tooling.
func (s *Store) Tasks() *mongo.Collection { return s.tasks }

// Completions returns the raw completion collection for migration tooling.
func (s *Store) Completions() *mongo.Collection { return s.completions }

// Schedules returns the raw schedule collection for migration tooling.
func (s *Store) Schedules() *mongo.Collection { return s.schedules }

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// monthBounds returns inclusive ISO-date bounds covering the month; 31 is
// safe as an upper bound since string comparison never overshoots into the
// next month.
func monthBounds(year, month int) (string, string) {
	return fmt.Sprintf("%04d-%02d-01", year, month), fmt.Sprintf("%04d-%02d-31", year, month)
}
