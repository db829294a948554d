package tasks

import (
	"regexp"
	"strings"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// TaskInput describes a new task. Zero status and priority default to
// pending and medium.
type TaskInput struct {
	Title             string
	Description       string
	Status            models.TaskStatus
	Priority          models.TaskPriority
	DueDate           *time.Time
	StartDate         *time.Time
	Progress          int
	EstimatedHours    *float64
	OwnerID           string
	CategoryID        *string
	ParentID          *string
	AssigneeIDs       []string
	TagIDs            []string
	IsRecurring       bool
	RecurrencePattern models.RecurrencePattern
	RecurrenceEndDate *time.Time
}

func (in *TaskInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Status == "" {
		in.Status = models.StatusPending
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if in.RecurrencePattern == "" {
		in.RecurrencePattern = models.RecurrenceNone
	}
	in.AssigneeIDs = unique(in.AssigneeIDs)
	in.TagIDs = unique(in.TagIDs)
}

func (in TaskInput) validate() error {
	var errs taskflow.ValidationErrors
	validateTitle(&errs, in.Title)
	if !in.Status.Valid() {
		errs.Add("status", "unknown status "+string(in.Status))
	}
	if !in.Priority.Valid() {
		errs.Add("priority", "unknown priority "+string(in.Priority))
	}
	if !models.ValidProgress(in.Progress) {
		errs.Add("progress", "must be between 0 and 100")
	}
	validateHours(&errs, "estimated_hours", in.EstimatedHours)
	validateDates(&errs, in.StartDate, in.DueDate)
	validateRecurrence(&errs, in.IsRecurring, in.RecurrencePattern)
	return errs.Err()
}

// TaskUpdate is a partial change. Nil fields are left alone; the Clear
// flags null out optional references.
type TaskUpdate struct {
	Title             *string
	Description       *string
	Status            *models.TaskStatus
	Priority          *models.TaskPriority
	DueDate           *time.Time
	ClearDueDate      bool
	StartDate         *time.Time
	ClearStartDate    bool
	Progress          *int
	EstimatedHours    *float64
	ActualHours       *float64
	CategoryID        *string
	ClearCategory     bool
	ParentID          *string
	ClearParent       bool
	AssigneeIDs       *[]string
	TagIDs            *[]string
	IsRecurring       *bool
	RecurrencePattern *models.RecurrencePattern
	RecurrenceEndDate *time.Time
}

// StatusOnly reports whether the update changes nothing but the status.
func (u TaskUpdate) StatusOnly() bool {
	rest := u
	rest.Status = nil
	return u.Status != nil && rest == (TaskUpdate{})
}

func (u TaskUpdate) validate() error {
	var errs taskflow.ValidationErrors
	if u.Title != nil {
		validateTitle(&errs, strings.TrimSpace(*u.Title))
	}
	if u.Status != nil && !u.Status.Valid() {
		errs.Add("status", "unknown status "+string(*u.Status))
	}
	if u.Priority != nil && !u.Priority.Valid() {
		errs.Add("priority", "unknown priority "+string(*u.Priority))
	}
	if u.Progress != nil && !models.ValidProgress(*u.Progress) {
		errs.Add("progress", "must be between 0 and 100")
	}
	validateHours(&errs, "estimated_hours", u.EstimatedHours)
	validateHours(&errs, "actual_hours", u.ActualHours)
	if u.RecurrencePattern != nil && !u.RecurrencePattern.Valid() {
		errs.Add("recurrence_pattern", "unknown pattern "+string(*u.RecurrencePattern))
	}
	return errs.Err()
}

// CommentInput is a new comment, optionally replying to another.
type CommentInput struct {
	Content  string
	ParentID *string
}

type CategoryInput struct {
	Name        string
	Description string
	Color       string
	Icon        string
	IsDefault   bool
}

type TagInput struct {
	Name  string
	Color string
}

const maxNameLength = 100

var colorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validateTitle(errs *taskflow.ValidationErrors, title string) {
	switch {
	case title == "":
		errs.Add("title", "is required")
	case len([]rune(title)) > models.MaxTitleLength:
		errs.Add("title", "must be at most 200 characters")
	}
}

func validateHours(errs *taskflow.ValidationErrors, field string, hours *float64) {
	if hours != nil && *hours < 0 {
		errs.Add(field, "must not be negative")
	}
}

func validateDates(errs *taskflow.ValidationErrors, start, due *time.Time) {
	if start != nil && due != nil && due.Before(*start) {
		errs.Add("due_date", "must not be before start_date")
	}
}

func validateRecurrence(errs *taskflow.ValidationErrors, recurring bool, pattern models.RecurrencePattern) {
	if !pattern.Valid() {
		errs.Add("recurrence_pattern", "unknown pattern "+string(pattern))
		return
	}
	if recurring && pattern == models.RecurrenceNone {
		errs.Add("recurrence_pattern", "is required for recurring tasks")
	}
}

func validateName(errs *taskflow.ValidationErrors, name, color string) {
	switch {
	case name == "":
		errs.Add("name", "is required")
	case len([]rune(name)) > maxNameLength:
		errs.Add("name", "must be at most 100 characters")
	}
	if color != "" && !colorPattern.MatchString(color) {
		errs.Add("color", "must be a hex color like #3498db")
	}
}

func unique(ids []string) []string {
	if ids == nil {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
