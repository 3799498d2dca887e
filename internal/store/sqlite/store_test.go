package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	st, err := Open(dsn)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close(context.Background()) })
	// Fixed clock so month counts and streaks are deterministic.
	st.now = func() time.Time {
		return time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return st
}

func mustCreateTask(t *testing.T, st *Store, userID int64, name, scheduleTime string) int64 {
	t.Helper()
	id, err := st.CreateTask(context.Background(), userID, name, "", "daily", scheduleTime)
	if err != nil {
		t.Fatalf("create task %q: %v", name, err)
	}
	return id
}

func TestAddCompletionIfMissingDuplicate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	taskID := mustCreateTask(t, st, 1, "Exercise", "")

	inserted, err := st.AddCompletionIfMissing(ctx, 1, "2024-06-15", taskID)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !inserted {
		t.Fatal("first insert reported false")
	}

	inserted, err = st.AddCompletionIfMissing(ctx, 1, "2024-06-15", taskID)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if inserted {
		t.Fatal("duplicate insert reported true")
	}

	total, err := st.TotalCompletions(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 1 {
		t.Fatalf("total = %d, want 1", total)
	}
}

func TestTaskIDsPerUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got := mustCreateTask(t, st, 1, fmt.Sprintf("task-%d", want), "")
		if got != want {
			t.Fatalf("user 1 task id = %d, want %d", got, want)
		}
	}
	if got := mustCreateTask(t, st, 2, "other-user-task", ""); got != 1 {
		t.Fatalf("user 2 first task id = %d, want 1", got)
	}

	// Soft delete keeps the row, so ids are never reused.
	if _, err := st.DeleteTask(ctx, 1, 3); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := mustCreateTask(t, st, 1, "after-delete", ""); got != 4 {
		t.Fatalf("task id after delete = %d, want 4", got)
	}
}

func TestDeleteTask(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	deleted, err := st.DeleteTask(ctx, 1, 42)
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if deleted {
		t.Fatal("deleting a missing task reported true")
	}

	taskID := mustCreateTask(t, st, 1, "Read", "07:30")
	if _, err := st.CreateSchedule(ctx, 1, taskID, "19:00", ""); err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if _, err := st.AddCompletionIfMissing(ctx, 1, "2024-06-14", taskID); err != nil {
		t.Fatalf("add completion: %v", err)
	}

	deleted, err = st.DeleteTask(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Fatal("delete reported false")
	}

	if _, err := st.GetTask(ctx, 1, taskID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("get deleted task err = %v, want ErrNotFound", err)
	}
	tasks, err := st.ListTasks(ctx, 1, true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("deleted task still listed: %v", tasks)
	}
	rows, err := st.TasksScheduledAt(ctx, "07:30")
	if err != nil {
		t.Fatalf("scheduled at: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("deleted task still scheduled: %v", rows)
	}
	entries, err := st.SchedulesAt(ctx, "19:00")
	if err != nil {
		t.Fatalf("schedules at: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("cascaded schedule still active: %v", entries)
	}

	// Completion history is retained after the soft delete.
	total, err := st.TotalCompletions(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("total: %v", err)
	}
	if total != 1 {
		t.Fatalf("history total = %d, want 1", total)
	}

	deleted, err = st.DeleteTask(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Fatal("second delete reported true")
	}
}

func TestDatesInMonthScoping(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	first := mustCreateTask(t, st, 1, "A", "")
	second := mustCreateTask(t, st, 1, "B", "")
	other := mustCreateTask(t, st, 2, "C", "")

	for _, rec := range []struct {
		user int64
		date string
		task int64
	}{
		{1, "2024-06-01", first},
		{1, "2024-06-02", first},
		{1, "2024-06-02", second},
		{1, "2024-05-31", first},
		{2, "2024-06-01", other},
	} {
		if _, err := st.AddCompletionIfMissing(ctx, rec.user, rec.date, rec.task); err != nil {
			t.Fatalf("add %v: %v", rec, err)
		}
	}

	dates, err := st.DatesInMonth(ctx, 1, 2024, 6, 0)
	if err != nil {
		t.Fatalf("dates in month: %v", err)
	}
	sort.Strings(dates)
	want := []string{"2024-06-01", "2024-06-02", "2024-06-02"}
	if len(dates) != len(want) {
		t.Fatalf("dates = %v, want %v", dates, want)
	}
	for i := range want {
		if dates[i] != want[i] {
			t.Fatalf("dates = %v, want %v", dates, want)
		}
	}

	dates, err = st.DatesInMonth(ctx, 1, 2024, 6, second)
	if err != nil {
		t.Fatalf("dates for task: %v", err)
	}
	if len(dates) != 1 || dates[0] != "2024-06-02" {
		t.Fatalf("task-filtered dates = %v", dates)
	}

	n, err := st.MonthCompletionCount(ctx, 1, first)
	if err != nil {
		t.Fatalf("month count: %v", err)
	}
	if n != 2 {
		t.Fatalf("month count = %d, want 2", n)
	}
}

func TestTasksScheduledAtExactMatch(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	mustCreateTask(t, st, 1, "Padded", "07:30")
	mustCreateTask(t, st, 2, "Unpadded", "7:30")

	rows, err := st.TasksScheduledAt(ctx, "07:30")
	if err != nil {
		t.Fatalf("scheduled at: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Padded" {
		t.Fatalf("rows for 07:30 = %v", rows)
	}

	rows, err = st.TasksScheduledAt(ctx, "7:30")
	if err != nil {
		t.Fatalf("scheduled at: %v", err)
	}
	if len(rows) != 1 || rows[0].Name != "Unpadded" {
		t.Fatalf("rows for 7:30 = %v", rows)
	}
}

func TestScheduleLifecycle(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	taskID := mustCreateTask(t, st, 1, "Meditate", "")

	schedID, err := st.CreateSchedule(ctx, 1, taskID, "06:00", "")
	if err != nil {
		t.Fatalf("create schedule: %v", err)
	}
	if schedID != 1 {
		t.Fatalf("schedule id = %d, want 1", schedID)
	}

	list, err := st.ListSchedules(ctx, 1)
	if err != nil {
		t.Fatalf("list schedules: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("schedules = %v, want one entry", list)
	}
	if list[0].TaskName != "Meditate" || list[0].Time != "06:00" || list[0].Timezone != "UTC" {
		t.Fatalf("schedule row = %+v", list[0])
	}

	rows, err := st.SchedulesAt(ctx, "06:00")
	if err != nil {
		t.Fatalf("schedules at: %v", err)
	}
	if len(rows) != 1 || rows[0].TaskID != taskID {
		t.Fatalf("schedules at 06:00 = %v", rows)
	}

	ok, err := st.DeleteSchedule(ctx, 1, schedID)
	if err != nil {
		t.Fatalf("delete schedule: %v", err)
	}
	if !ok {
		t.Fatal("delete schedule reported false")
	}
	ok, err = st.DeleteSchedule(ctx, 1, schedID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if ok {
		t.Fatal("second schedule delete reported true")
	}
}

func TestTaskStreaksUsesStoreClock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	taskID := mustCreateTask(t, st, 1, "Journal", "")

	for _, date := range []string{"2024-06-13", "2024-06-14", "2024-06-15", "2024-06-01", "2024-06-02"} {
		if _, err := st.AddCompletionIfMissing(ctx, 1, date, taskID); err != nil {
			t.Fatalf("add %s: %v", date, err)
		}
	}

	current, best, err := st.TaskStreaks(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("streaks: %v", err)
	}
	if current != 3 {
		t.Errorf("current = %d, want 3", current)
	}
	if best != 3 {
		t.Errorf("best = %d, want 3", best)
	}
}

func TestTaskStatsOrdering(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	small := mustCreateTask(t, st, 1, "Small", "")
	big := mustCreateTask(t, st, 1, "Big", "")

	if _, err := st.AddCompletionIfMissing(ctx, 1, "2024-06-10", small); err != nil {
		t.Fatal(err)
	}
	for _, date := range []string{"2024-06-10", "2024-06-11", "2024-05-20"} {
		if _, err := st.AddCompletionIfMissing(ctx, 1, date, big); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := st.TaskStats(ctx, 1)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if len(stats) != 2 {
		t.Fatalf("stats = %v, want 2 rows", stats)
	}
	if stats[0].Name != "Big" || stats[0].Total != 3 || stats[0].ThisMonth != 2 {
		t.Fatalf("first row = %+v", stats[0])
	}
	if stats[1].Name != "Small" || stats[1].Total != 1 {
		t.Fatalf("second row = %+v", stats[1])
	}
}

func TestLastCompletionDate(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	taskID := mustCreateTask(t, st, 1, "Walk", "")

	last, err := st.LastCompletionDate(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("empty last: %v", err)
	}
	if last != "" {
		t.Fatalf("last = %q, want empty", last)
	}

	for _, date := range []string{"2024-06-01", "2024-06-10", "2024-06-05"} {
		if _, err := st.AddCompletionIfMissing(ctx, 1, date, taskID); err != nil {
			t.Fatal(err)
		}
	}
	last, err = st.LastCompletionDate(ctx, 1, taskID)
	if err != nil {
		t.Fatalf("last: %v", err)
	}
	if last != "2024-06-10" {
		t.Fatalf("last = %q, want 2024-06-10", last)
	}
}

func TestGetTaskCrossUser(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	taskID := mustCreateTask(t, st, 7, "Stretch", "")

	task, err := st.GetTask(ctx, 0, taskID)
	if err != nil {
		t.Fatalf("cross-user get: %v", err)
	}
	if task.UserID != 7 || task.Name != "Stretch" {
		t.Fatalf("task = %+v", task)
	}

	if _, err := st.GetTask(ctx, 8, taskID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("wrong-user get err = %v, want ErrNotFound", err)
	}
}
