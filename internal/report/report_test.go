package report

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

type fakeStore struct {
	store.Store

	tasks  []model.Task
	dates  map[int64][]string // taskID -> dates, 0 for all
	totals map[int64]int64
}

func (f *fakeStore) ListTasks(context.Context, int64, bool) ([]model.Task, error) {
	return f.tasks, nil
}

func (f *fakeStore) DatesInMonth(_ context.Context, _ int64, _, _ int, taskID int64) ([]string, error) {
	return f.dates[taskID], nil
}

func (f *fakeStore) TotalCompletions(_ context.Context, _ int64, taskID int64) (int64, error) {
	return f.totals[taskID], nil
}

func (f *fakeStore) GetTask(_ context.Context, _, taskID int64) (*model.Task, error) {
	for _, task := range f.tasks {
		if task.ID == taskID {
			return &task, nil
		}
	}
	return nil, store.ErrNotFound
}

func TestMonthCalendarShape(t *testing.T) {
	// June 2024 starts on a Saturday and has 30 days.
	weeks := monthCalendar(2024, 6)
	if len(weeks) != 5 {
		t.Fatalf("weeks = %d, want 5", len(weeks))
	}
	first := weeks[0]
	for col := 0; col < 5; col++ {
		if first[col] != 0 {
			t.Fatalf("leading pad broken: %v", first)
		}
	}
	if first[5] != 1 || first[6] != 2 {
		t.Fatalf("first week = %v, want ..., 1, 2", first)
	}
	last := weeks[4]
	if last[0] != 24 || last[6] != 30 {
		t.Fatalf("last week = %v", last)
	}
}

func TestDaysInMonth(t *testing.T) {
	cases := []struct {
		year, month, want int
	}{
		{2024, 2, 29},
		{2023, 2, 28},
		{2024, 6, 30},
		{2024, 12, 31},
	}
	for _, c := range cases {
		if got := daysInMonth(c.year, c.month); got != c.want {
			t.Errorf("daysInMonth(%d, %d) = %d, want %d", c.year, c.month, got, c.want)
		}
	}
}

func TestDaysDone(t *testing.T) {
	days := daysDone([]string{"2024-06-01", "2024-06-15", "2024-06-15", "bogus"})
	if len(days) != 2 || !days[1] || !days[15] {
		t.Fatalf("days = %v", days)
	}
}

func TestExpectedCompletions(t *testing.T) {
	if got := expectedCompletions(model.FrequencyDaily, 30); got != 30 {
		t.Errorf("daily = %d, want 30", got)
	}
	if got := expectedCompletions(model.FrequencyWeekly, 30); got != 4 {
		t.Errorf("weekly = %d, want 4", got)
	}
	if got := expectedCompletions(model.FrequencyMonthly, 30); got != 1 {
		t.Errorf("monthly = %d, want 1", got)
	}
}

func TestProgressMessage(t *testing.T) {
	fs := &fakeStore{
		dates:  map[int64][]string{0: {"2024-06-01", "2024-06-02"}},
		totals: map[int64]int64{0: 40},
	}
	svc := NewService(fs)

	msg, err := svc.ProgressMessage(context.Background(), 1, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("progress message: %v", err)
	}
	for _, want := range []string{"June 2024", "Mo Tu We Th Fr Sa Su", "✅", "<b>40</b>"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}

func TestProgressPageSingleTask(t *testing.T) {
	fs := &fakeStore{
		tasks:  []model.Task{{ID: 3, UserID: 1, Name: "Read & Write"}},
		dates:  map[int64][]string{3: {"2024-06-10"}},
		totals: map[int64]int64{3: 12},
	}
	svc := NewService(fs)

	page, err := svc.ProgressPage(context.Background(), 1, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatalf("progress page: %v", err)
	}
	body := string(page)
	if !strings.Contains(body, "Read &amp; Write") {
		t.Error("task name missing or unescaped")
	}
	if !strings.Contains(body, "June 2024") {
		t.Error("month heading missing")
	}
	if !strings.Contains(body, `class="done"`) {
		t.Error("completed day not highlighted")
	}
}

func TestDashboardPage(t *testing.T) {
	fs := &fakeStore{
		tasks: []model.Task{
			{ID: 1, UserID: 1, Name: "Exercise", Frequency: model.FrequencyDaily, ScheduleTime: "07:30"},
			{ID: 2, UserID: 1, Name: "Review", Frequency: model.FrequencyMonthly},
		},
		dates: map[int64][]string{
			0: {"2024-06-01", "2024-06-02", "2024-06-03"},
			1: {"2024-06-01", "2024-06-02"},
			2: {"2024-06-03"},
		},
		totals: map[int64]int64{0: 50, 1: 30, 2: 20},
	}
	svc := NewService(fs)

	page, err := svc.DashboardPage(context.Background(), 1, time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	body := string(page)
	for _, want := range []string{"Exercise", "Review", "⏰ 07:30", "📅 Manual", "30 days", "20 days"} {
		if !strings.Contains(body, want) {
			t.Errorf("dashboard missing %q", want)
		}
	}
	// Monthly task with one completion is fully on track.
	if !strings.Contains(body, "crushed") {
		t.Error("expected at least one crushed card")
	}
}

func TestMotivationThresholds(t *testing.T) {
	if !strings.Contains(motivation(85), "crushing") {
		t.Error("85 should be the top tier")
	}
	if !strings.Contains(motivation(60), "Great progress") {
		t.Error("60 should be the second tier")
	}
	if !strings.Contains(motivation(40), "Good start") {
		t.Error("40 should be the third tier")
	}
	if !strings.Contains(motivation(10), "single step") {
		t.Error("10 should be the bottom tier")
	}
}
