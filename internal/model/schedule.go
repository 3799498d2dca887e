package model

// Schedule is a reminder time bound to a task, independent of the task's own
// default ScheduleTime field. Both are honored by the reminder lookup.
// Deleting a schedule only clears IsActive.
type Schedule struct {
	ID       int64  `gorm:"primaryKey;autoIncrement:false" bson:"id"`
	UserID   int64  `gorm:"primaryKey;autoIncrement:false" bson:"user_id"`
	TaskID   int64  `gorm:"index" bson:"task_id"`
	Time     string `gorm:"column:schedule_time" bson:"schedule_time"`
	Timezone string `gorm:"default:UTC" bson:"timezone"`
	IsActive bool   `gorm:"default:true" bson:"is_active"`
}

// ScheduleWithTask is a schedule joined with its task's name for listings.
type ScheduleWithTask struct {
	ID       int64  `gorm:"column:id"`
	TaskID   int64  `gorm:"column:task_id"`
	TaskName string `gorm:"column:task_name"`
	Time     string `gorm:"column:schedule_time"`
	Timezone string `gorm:"column:timezone"`
}

// TaskStats aggregates completion counts for one active task.
type TaskStats struct {
	TaskID    int64  `gorm:"column:task_id"`
	Name      string
	Total     int64 `gorm:"column:total"`
	ThisMonth int64 `gorm:"column:this_month"`
}

// ScheduledTask is one hit from the cross-user reminder lookup.
type ScheduledTask struct {
	UserID       int64
	TaskID       int64
	Name         string
	ScheduleTime string
}
