package model

import "time"

// Task frequencies accepted by the store.
const (
	FrequencyDaily   = "daily"
	FrequencyWeekly  = "weekly"
	FrequencyMonthly = "monthly"
)

// Task is a named habit. IDs are unique per user, not globally: the store
// allocates max(id)+1 within the owning user, so gaps appear after deletion
// but an id is never reused for the same user.
type Task struct {
	ID           int64     `gorm:"primaryKey;autoIncrement:false" bson:"id"`
	UserID       int64     `gorm:"primaryKey;autoIncrement:false" bson:"user_id"`
	Name         string    `bson:"name"`
	Description  string    `bson:"description"`
	Frequency    string    `gorm:"default:daily" bson:"frequency"`
	ScheduleTime string    `gorm:"index" bson:"schedule_time"`
	CreatedAt    time.Time `bson:"created_at"`
	IsActive     bool      `gorm:"default:true" bson:"is_active"`
}

// ValidFrequency reports whether value is one of the supported frequencies.
func ValidFrequency(value string) bool {
	switch value {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}
