// Package report renders progress summaries: an HTML-formatted chat message,
// a per-task monthly progress page and an all-tasks dashboard page.
package report

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strconv"
	"strings"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Service builds reports from store queries. Nothing is cached between
// calls; every report re-reads the backing store.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// ProgressMessage returns the quick text summary for the current month,
// formatted with Telegram HTML tags.
func (s *Service) ProgressMessage(ctx context.Context, userID int64, today time.Time) (string, error) {
	year, month := today.Year(), int(today.Month())
	dates, err := s.store.DatesInMonth(ctx, userID, year, month, 0)
	if err != nil {
		return "", err
	}
	days := daysDone(dates)

	var b strings.Builder
	b.WriteString(fmt.Sprintf("<b>Habit Progress — %s</b>\n", today.Format("January 2006")))
	b.WriteString(fmt.Sprintf("Total days recorded this month: <b>%d</b>\n\n", len(days)))
	b.WriteString("Mo Tu We Th Fr Sa Su\n")

	for _, week := range monthCalendar(year, month) {
		cells := make([]string, 0, 7)
		for _, d := range week {
			switch {
			case d == 0:
				cells = append(cells, "  ")
			case days[d]:
				cells = append(cells, "✅")
			default:
				cells = append(cells, "·")
			}
		}
		b.WriteString(strings.Join(cells, " "))
		b.WriteByte('\n')
	}

	total, err := s.store.TotalCompletions(ctx, userID, 0)
	if err != nil {
		return "", err
	}
	b.WriteString(fmt.Sprintf("\nLifetime streak days recorded: <b>%d</b>\n", total))

	pct := percent(len(days), daysInMonth(year, month))
	b.WriteString(fmt.Sprintf("\nYou're at <b>%d%%</b> of this month — keep going!", pct))

	return b.String(), nil
}

type calendarDay struct {
	Day  int
	Done bool
}

type progressData struct {
	Title         string
	Heading       string
	CalendarTitle string
	DoneCount     int
	TotalDays     int
	LifetimeDays  int64
	Percentage    int
	Weeks         [][]calendarDay
}

// ProgressPage renders the full HTML progress page for one task, or for all
// tasks when taskID is 0.
func (s *Service) ProgressPage(ctx context.Context, userID int64, today time.Time, taskID int64) ([]byte, error) {
	year, month := today.Year(), int(today.Month())
	dates, err := s.store.DatesInMonth(ctx, userID, year, month, taskID)
	if err != nil {
		return nil, err
	}
	days := daysDone(dates)

	lifetime, err := s.store.TotalCompletions(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	taskName := "All Tasks"
	if taskID != 0 {
		task, err := s.store.GetTask(ctx, userID, taskID)
		if err == nil {
			taskName = task.Name
		} else if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	monthName := today.Format("January 2006")
	data := progressData{
		Title:         "Progress",
		Heading:       monthName,
		CalendarTitle: "Calendar",
		DoneCount:     len(days),
		TotalDays:     daysInMonth(year, month),
		LifetimeDays:  lifetime,
		Percentage:    percent(len(days), daysInMonth(year, month)),
		Weeks:         calendarWeeks(year, month, days),
	}
	if taskID != 0 {
		data.Title = taskName + " Progress"
		data.Heading = taskName + " - " + monthName
		data.CalendarTitle = taskName + " Calendar"
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "progress.html", data); err != nil {
		return nil, fmt.Errorf("render progress: %w", err)
	}
	return buf.Bytes(), nil
}

type taskCard struct {
	Name            string
	Description     string
	Frequency       string
	ScheduleDisplay string
	Total           int64
	MonthCount      int
	Expected        int
	ProgressPct     int
	Crushed         bool
	Weeks           [][]calendarDay
}

type comparisonRow struct {
	Name       string
	Percentage int
	Total      int64
}

type dashboardData struct {
	TotalTasks           int
	TotalCompletions     int64
	ThisMonthCompletions int
	CompletionRate       int
	Motivation           string
	Cards                []taskCard
	Comparison           []comparisonRow
}

// DashboardPage renders the all-tasks dashboard: per-task cards with mini
// calendars and expected-completion progress, plus lifetime comparison bars.
func (s *Service) DashboardPage(ctx context.Context, userID int64, today time.Time) ([]byte, error) {
	year, month := today.Year(), int(today.Month())
	monthLen := daysInMonth(year, month)

	tasks, err := s.store.ListTasks(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	totalCompletions, err := s.store.TotalCompletions(ctx, userID, 0)
	if err != nil {
		return nil, err
	}
	monthDates, err := s.store.DatesInMonth(ctx, userID, year, month, 0)
	if err != nil {
		return nil, err
	}

	rate := 0
	if len(tasks) > 0 {
		rate = percent(len(monthDates), monthLen*len(tasks))
	}

	data := dashboardData{
		TotalTasks:           len(tasks),
		TotalCompletions:     totalCompletions,
		ThisMonthCompletions: len(monthDates),
		CompletionRate:       rate,
		Motivation:           motivation(rate),
	}

	var maxTotal int64 = 1
	totals := make(map[int64]int64, len(tasks))
	for _, task := range tasks {
		total, err := s.store.TotalCompletions(ctx, userID, task.ID)
		if err != nil {
			return nil, err
		}
		totals[task.ID] = total
		if total > maxTotal {
			maxTotal = total
		}
	}

	for _, task := range tasks {
		taskDates, err := s.store.DatesInMonth(ctx, userID, year, month, task.ID)
		if err != nil {
			return nil, err
		}
		days := daysDone(taskDates)

		expected := expectedCompletions(task.Frequency, monthLen)
		progressPct := 0
		if expected > 0 {
			progressPct = percent(len(days), expected)
			if progressPct > 100 {
				progressPct = 100
			}
		}

		scheduleDisplay := "📅 Manual"
		if task.ScheduleTime != "" {
			scheduleDisplay = "⏰ " + task.ScheduleTime
		}

		data.Cards = append(data.Cards, taskCard{
			Name:            task.Name,
			Description:     task.Description,
			Frequency:       titleCase(task.Frequency),
			ScheduleDisplay: scheduleDisplay,
			Total:           totals[task.ID],
			MonthCount:      len(days),
			Expected:        expected,
			ProgressPct:     progressPct,
			Crushed:         progressPct >= 80,
			Weeks:           calendarWeeks(year, month, days),
		})

		data.Comparison = append(data.Comparison, comparisonRow{
			Name:       task.Name,
			Percentage: percent64(totals[task.ID], maxTotal),
			Total:      totals[task.ID],
		})
	}

	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, "dashboard.html", data); err != nil {
		return nil, fmt.Errorf("render dashboard: %w", err)
	}
	return buf.Bytes(), nil
}

func motivation(rate int) string {
	switch {
	case rate >= 80:
		return "You're absolutely crushing it! Keep up the amazing work!"
	case rate >= 60:
		return "Great progress! You're building strong habits!"
	case rate >= 40:
		return "Good start! Every step counts towards your goals!"
	default:
		return "Every journey begins with a single step. You've got this!"
	}
}

// expectedCompletions is how many completions a frequency implies per month.
func expectedCompletions(frequency string, monthLen int) int {
	switch frequency {
	case model.FrequencyWeekly:
		return monthLen / 7
	case model.FrequencyMonthly:
		return 1
	default:
		return monthLen
	}
}

// daysDone extracts the day-of-month set from ISO date strings.
func daysDone(dates []string) map[int]bool {
	days := make(map[int]bool, len(dates))
	for _, d := range dates {
		parts := strings.Split(d, "-")
		if len(parts) != 3 {
			continue
		}
		day, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}
		days[day] = true
	}
	return days
}

// monthCalendar returns the month as Monday-first weeks, zero-padded at the
// edges.
func monthCalendar(year, month int) [][]int {
	first := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	offset := (int(first.Weekday()) + 6) % 7
	total := daysInMonth(year, month)

	var weeks [][]int
	week := make([]int, 7)
	col := offset
	for day := 1; day <= total; day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = make([]int, 7)
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}

func calendarWeeks(year, month int, days map[int]bool) [][]calendarDay {
	var weeks [][]calendarDay
	for _, week := range monthCalendar(year, month) {
		row := make([]calendarDay, 0, 7)
		for _, d := range week {
			row = append(row, calendarDay{Day: d, Done: days[d]})
		}
		weeks = append(weeks, row)
	}
	return weeks
}

func daysInMonth(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func percent(part, whole int) int {
	if whole <= 0 {
		return 0
	}
	return part * 100 / whole
}

func percent64(part, whole int64) int {
	if whole <= 0 {
		return 0
	}
	return int(part * 100 / whole)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
