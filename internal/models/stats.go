package models

import "time"

type DailyTaskStats struct {
	ID               string    `db:"id"`
	UserID           string    `db:"user_id"`
	Date             time.Time `db:"date"`
	TasksCreated     int       `db:"tasks_created"`
	TasksCompleted   int       `db:"tasks_completed"`
	TasksOverdue     int       `db:"tasks_overdue"`
	TotalHoursLogged float64   `db:"total_hours_logged"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

func (DailyTaskStats) TableName() string { return "daily_task_stats" }

type TeamStats struct {
	ID             string    `db:"id"`
	ManagerID      string    `db:"manager_id"`
	Date           time.Time `db:"date"`
	TeamSize       int       `db:"team_size"`
	TotalTasks     int       `db:"total_tasks"`
	CompletedTasks int       `db:"completed_tasks"`
	OverdueTasks   int       `db:"overdue_tasks"`
	CompletionRate float64   `db:"completion_rate"`
	OnTimeRate     float64   `db:"on_time_rate"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

func (TeamStats) TableName() string { return "team_stats" }

// Percent returns part/whole*100 rounded to two decimals, or 0 for an empty whole.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	v := float64(part) / float64(whole) * 100
	return float64(int64(v*100+0.5)) / 100
}
