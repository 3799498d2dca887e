package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

// fakeStore serves the reminder-scan queries from fixtures; the embedded nil
// interface panics on anything the scan should never call.
type fakeStore struct {
	store.Store

	tasksAt     map[string][]model.ScheduledTask
	schedulesAt map[string][]model.ScheduledTask
	completed   map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasksAt:     make(map[string][]model.ScheduledTask),
		schedulesAt: make(map[string][]model.ScheduledTask),
		completed:   make(map[string]bool),
	}
}

func completionKey(userID, taskID int64, date string) string {
	return fmt.Sprintf("%d/%d/%s", userID, taskID, date)
}

func (f *fakeStore) TasksScheduledAt(_ context.Context, timeStr string) ([]model.ScheduledTask, error) {
	return f.tasksAt[timeStr], nil
}

func (f *fakeStore) SchedulesAt(_ context.Context, timeStr string) ([]model.ScheduledTask, error) {
	return f.schedulesAt[timeStr], nil
}

func (f *fakeStore) IsCompletedOnDate(_ context.Context, userID, taskID int64, dateISO string) (bool, error) {
	return f.completed[completionKey(userID, taskID, dateISO)], nil
}

func newTestReminder(st store.Store, at time.Time) *ReminderService {
	svc := NewReminderService(st)
	svc.now = func() time.Time { return at }
	return svc
}

func collectNotifier(got *[]model.ScheduledTask) Notifier {
	return func(_ context.Context, task model.ScheduledTask) {
		*got = append(*got, task)
	}
}

func TestScanNotifiesDueTasksOnce(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["07:30"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 2, Name: "Exercise", ScheduleTime: "07:30"},
	}
	at := time.Date(2024, 6, 15, 7, 30, 5, 0, time.UTC)
	svc := newTestReminder(fs, at)

	var got []model.ScheduledTask
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 1 || got[0].TaskID != 2 {
		t.Fatalf("first scan notified %v, want one reminder for task 2", got)
	}

	// A re-scan within the same minute must not notify again.
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 1 {
		t.Fatalf("second scan notified again: %v", got)
	}
}

func TestScanChecksUnpaddedVariant(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["7:05"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 1, Name: "Legacy", ScheduleTime: "7:05"},
	}
	at := time.Date(2024, 6, 15, 7, 5, 0, 0, time.UTC)
	svc := newTestReminder(fs, at)

	var got []model.ScheduledTask
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 1 || got[0].Name != "Legacy" {
		t.Fatalf("unpadded schedule time not picked up: %v", got)
	}
}

func TestScanChecksPreviousMinute(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["09:59"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 3, Name: "Boundary", ScheduleTime: "09:59"},
	}
	at := time.Date(2024, 6, 15, 10, 0, 2, 0, time.UTC)
	svc := newTestReminder(fs, at)

	var got []model.ScheduledTask
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 1 || got[0].TaskID != 3 {
		t.Fatalf("previous-minute schedule missed: %v", got)
	}
}

func TestScanSkipsCompletedTasks(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["12:00"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 1, Name: "Done", ScheduleTime: "12:00"},
		{UserID: 1, TaskID: 2, Name: "Pending", ScheduleTime: "12:00"},
	}
	fs.completed[completionKey(1, 1, "2024-06-15")] = true
	at := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	svc := newTestReminder(fs, at)

	var got []model.ScheduledTask
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 1 || got[0].Name != "Pending" {
		t.Fatalf("notified %v, want only the pending task", got)
	}
}

func TestScanMergesScheduleEntries(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["08:00"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 1, Name: "FromTask", ScheduleTime: "08:00"},
	}
	fs.schedulesAt["08:00"] = []model.ScheduledTask{
		// Same task again via a schedule entry plus a distinct one.
		{UserID: 1, TaskID: 1, Name: "FromTask", ScheduleTime: "08:00"},
		{UserID: 2, TaskID: 5, Name: "FromSchedule", ScheduleTime: "08:00"},
	}
	at := time.Date(2024, 6, 15, 8, 0, 0, 0, time.UTC)
	svc := newTestReminder(fs, at)

	var got []model.ScheduledTask
	svc.Scan(context.Background(), collectNotifier(&got))
	if len(got) != 2 {
		t.Fatalf("notified %v, want two distinct reminders", got)
	}
}

func TestScanSentSetResetsNextDay(t *testing.T) {
	fs := newFakeStore()
	fs.tasksAt["07:00"] = []model.ScheduledTask{
		{UserID: 1, TaskID: 1, Name: "Daily", ScheduleTime: "07:00"},
	}
	svc := NewReminderService(fs)

	var got []model.ScheduledTask
	svc.now = func() time.Time { return time.Date(2024, 6, 15, 7, 0, 0, 0, time.UTC) }
	svc.Scan(context.Background(), collectNotifier(&got))
	svc.now = func() time.Time { return time.Date(2024, 6, 16, 7, 0, 0, 0, time.UTC) }
	svc.Scan(context.Background(), collectNotifier(&got))

	if len(got) != 2 {
		t.Fatalf("notified %d times across two days, want 2", len(got))
	}
}
