package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
)

// Notifier delivers one reminder. Delivery failures are the notifier's to
// report; the scan itself never aborts on them.
type Notifier func(ctx context.Context, task model.ScheduledTask)

type sentKey struct {
	userID int64
	taskID int64
	date   string
	time   string
}

// ReminderService finds tasks due for a reminder at the current minute and
// hands them to a notifier. It checks both the tasks' own default schedule
// times and the independent schedule entries. A (user, task, day, time)
// combination is never notified twice within the same day, and tasks already
// completed today are skipped entirely.
type ReminderService struct {
	store store.Store
	now   func() time.Time

	mu      sync.Mutex
	sent    map[sentKey]struct{}
	sentDay string
}

func NewReminderService(st store.Store) *ReminderService {
	return &ReminderService{
		store: st,
		now:   time.Now,
		sent:  make(map[sentKey]struct{}),
	}
}

// Scan runs one reminder iteration. Lookup errors for individual time
// variants are logged and skipped so a transient backend fault never kills
// the loop.
func (s *ReminderService) Scan(ctx context.Context, notify Notifier) {
	now := s.now()
	today := now.Format(store.DateLayout)
	s.pruneSent(today)

	// The scan may fire a few seconds into the minute, so the previous
	// minute is checked too; the sent set keeps the overlap harmless.
	variants := make(map[string]struct{})
	addTimeVariants(variants, now)
	addTimeVariants(variants, now.Add(-time.Minute))

	due := make([]model.ScheduledTask, 0)
	seen := make(map[[2]int64]struct{})
	collect := func(rows []model.ScheduledTask) {
		for _, row := range rows {
			key := [2]int64{row.UserID, row.TaskID}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			due = append(due, row)
		}
	}

	for variant := range variants {
		rows, err := s.store.TasksScheduledAt(ctx, variant)
		if err != nil {
			log.Printf("reminder scan: tasks at %s: %v", variant, err)
			continue
		}
		collect(rows)

		rows, err = s.store.SchedulesAt(ctx, variant)
		if err != nil {
			log.Printf("reminder scan: schedules at %s: %v", variant, err)
			continue
		}
		collect(rows)
	}

	for _, task := range due {
		select {
		case <-ctx.Done():
			return
		default:
		}

		key := sentKey{userID: task.UserID, taskID: task.TaskID, date: today, time: task.ScheduleTime}
		if s.alreadySent(key) {
			continue
		}

		done, err := s.store.IsCompletedOnDate(ctx, task.UserID, task.TaskID, today)
		if err != nil {
			log.Printf("reminder scan: completion check user=%d task=%d: %v", task.UserID, task.TaskID, err)
			continue
		}
		if done {
			continue
		}

		notify(ctx, task)
		s.markSent(key)
	}
}

// addTimeVariants records the padded HH:MM form and, for single-digit hours,
// the unpadded legacy form. Each is looked up by exact string match.
func addTimeVariants(dst map[string]struct{}, t time.Time) {
	dst[t.Format("15:04")] = struct{}{}
	if t.Hour() < 10 {
		dst[fmt.Sprintf("%d:%02d", t.Hour(), t.Minute())] = struct{}{}
	}
}

func (s *ReminderService) pruneSent(today string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sentDay == today {
		return
	}
	s.sent = make(map[sentKey]struct{})
	s.sentDay = today
}

func (s *ReminderService) alreadySent(key sentKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sent[key]
	return ok
}

func (s *ReminderService) markSent(key sentKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[key] = struct{}{}
}
