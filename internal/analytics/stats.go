// Package analytics computes the per-user and per-team statistics rows and
// the read-side dashboard summaries.
package analytics

import (
	"time"

	"github.com/eleven-am/taskflow/internal/models"
)

// StartOfDay truncates t to local midnight in loc. A nil loc means UTC.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// calendarDate is the value stored in date columns: the local calendar day
// at midnight UTC.
func calendarDate(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func within(t *time.Time, from, to time.Time) bool {
	return t != nil && !t.Before(from) && t.Before(to)
}

// openAt reports whether a task existed and was still open at instant at.
func openAt(t *models.Task, at time.Time) bool {
	if !t.CreatedAt.Before(at) || t.Status == models.StatusCancelled {
		return false
	}
	return t.CompletedAt == nil || !t.CompletedAt.Before(at)
}

// DailyFor aggregates one user's tasks for the calendar day in loc that
// contains day.
func DailyFor(userID string, tasks []models.Task, day time.Time, loc *time.Location) models.DailyTaskStats {
	from := StartOfDay(day, loc)
	to := from.AddDate(0, 0, 1)

	row := models.DailyTaskStats{UserID: userID, Date: calendarDate(from)}
	for i := range tasks {
		t := &tasks[i]
		if within(&t.CreatedAt, from, to) {
			row.TasksCreated++
		}
		if t.Status == models.StatusCompleted && within(t.CompletedAt, from, to) {
			row.TasksCompleted++
			if t.ActualHours != nil {
				row.TotalHoursLogged += *t.ActualHours
			}
		}
		if t.DueDate != nil && t.DueDate.Before(to) && openAt(t, to) {
			row.TasksOverdue++
		}
	}
	return row
}

// onTime reports whether a completed task finished by its due date. Tasks
// without a due date are always on time.
func onTime(t *models.Task) bool {
	if t.Status != models.StatusCompleted || t.CompletedAt == nil {
		return false
	}
	return t.DueDate == nil || !t.CompletedAt.After(*t.DueDate)
}

// TeamFor aggregates the tasks owned by a manager's team as of now.
func TeamFor(managerID string, teamSize int, tasks []models.Task, now time.Time, loc *time.Location) models.TeamStats {
	row := models.TeamStats{ManagerID: managerID, Date: calendarDate(StartOfDay(now, loc)), TeamSize: teamSize, TotalTasks: len(tasks)}
	onTimeCount := 0
	for i := range tasks {
		t := &tasks[i]
		if t.Status == models.StatusCompleted {
			row.CompletedTasks++
			if onTime(t) {
				onTimeCount++
			}
		}
		if t.IsOverdue(now) {
			row.OverdueTasks++
		}
	}
	row.CompletionRate = models.Percent(row.CompletedTasks, row.TotalTasks)
	row.OnTimeRate = models.Percent(onTimeCount, row.CompletedTasks)
	return row
}
