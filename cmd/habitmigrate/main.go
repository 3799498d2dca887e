// Command habitmigrate copies habit data from a SQLite database into MongoDB.
// It is a one-shot tool: when the target database already holds tasks the run
// is skipped, and duplicate records from a partial earlier run are ignored, so
// re-running is safe.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/config"
	"github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/model"
	mongostore "github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store/mongo"
	sqlitestore "github.com/atrajit-sarkar/Habit-Tracker-Bot/internal/store/sqlite"
)

func main() {
	force := flag.Bool("force", false, "copy even when the target already holds tasks")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("[info] no .env file found, using environment")
	}

	cfg, err := config.LoadStorage()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	src, err := sqlitestore.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("open sqlite source: %v", err)
	}
	defer src.Close(ctx)

	dst, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
	if err != nil {
		log.Fatalf("open mongo target: %v", err)
	}
	defer dst.Close(ctx)

	if !*force {
		count, err := dst.Tasks().CountDocuments(ctx, map[string]any{})
		if err != nil {
			log.Fatalf("check target: %v", err)
		}
		if count > 0 {
			log.Printf("[info] target already holds %d tasks, skipping (use -force to override)", count)
			return
		}
	}

	if err := migrate(ctx, src, dst); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("[info] migration complete")
}

func migrate(ctx context.Context, src *sqlitestore.Store, dst *mongostore.Store) error {
	var tasks []model.Task
	if err := src.DB().WithContext(ctx).Find(&tasks).Error; err != nil {
		return err
	}
	copied := 0
	for _, task := range tasks {
		if _, err := dst.Tasks().InsertOne(ctx, task); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		copied++
	}
	log.Printf("[info] tasks copied: %d of %d", copied, len(tasks))

	var completions []model.Completion
	if err := src.DB().WithContext(ctx).Find(&completions).Error; err != nil {
		return err
	}
	copied = 0
	for _, c := range completions {
		if _, err := dst.Completions().InsertOne(ctx, c); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		copied++
	}
	log.Printf("[info] completions copied: %d of %d", copied, len(completions))

	var schedules []model.Schedule
	if err := src.DB().WithContext(ctx).Find(&schedules).Error; err != nil {
		return err
	}
	copied = 0
	for _, sched := range schedules {
		if _, err := dst.Schedules().InsertOne(ctx, sched); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return err
		}
		copied++
	}
	log.Printf("[info] schedules copied: %d of %d", copied, len(schedules))

	return nil
}
