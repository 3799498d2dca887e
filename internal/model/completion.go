package model

// Completion records that a task was done on a calendar date. Date carries no
// time component and is always an ISO YYYY-MM-DD string, so string comparison
// orders records chronologically. At most one record may exist per
// (user, date, task) triple; both backends enforce this with a unique index.
type Completion struct {
	ID     int64  `gorm:"primaryKey" bson:"-"`
	UserID int64  `gorm:"uniqueIndex:idx_completion_once" bson:"user_id"`
	Date   string `gorm:"uniqueIndex:idx_completion_once" bson:"date"`
	TaskID int64  `gorm:"uniqueIndex:idx_completion_once" bson:"task_id"`
}
