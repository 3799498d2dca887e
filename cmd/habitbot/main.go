package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/bot"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/config"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/report"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/service"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store"
	mongostore "github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store/mongo"
	sqlitestore "github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store/sqlite"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("[info] no .env file found, using environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			log.Printf("close store: %v", err)
		}
	}()
	log.Printf("[info] storage backend: %s", cfg.Backend)

	taskSvc := service.NewTaskService(st)
	reminderSvc := service.NewReminderService(st)
	reports := report.NewService(st)

	habitBot, err := bot.New(cfg.TelegramToken, taskSvc, reports, &cfg)
	if err != nil {
		log.Fatalf("create bot: %v", err)
	}

	scheduler := service.NewSchedulerService(time.Local)
	scan := func() {
		reminderSvc.Scan(ctx, habitBot.SendReminder)
	}
	if cfg.ReminderInterval == time.Minute {
		_, err = scheduler.ScheduleEveryMinute(scan)
	} else {
		_, err = scheduler.ScheduleInterval(cfg.ReminderInterval, scan)
	}
	if err != nil {
		log.Fatalf("schedule reminders: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()
	log.Printf("[info] reminder scan every %s", cfg.ReminderInterval)

	if err := habitBot.Start(ctx); err != nil {
		log.Fatalf("bot stopped: %v", err)
	}
	log.Println("[info] shutdown complete")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Backend == config.BackendMongo {
		openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return mongostore.Open(openCtx, cfg.MongoURI, cfg.MongoDatabase)
	}
	return sqlitestore.Open(cfg.SQLitePath)
}
