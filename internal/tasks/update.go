package tasks

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// change is one audited field change.
type change struct {
	field string
	old   *string
	new   *string
}

// apply returns a copy of t with u applied and the list of changed fields
// other than status. Status goes through the lifecycle transition.
func apply(t *models.Task, u TaskUpdate, now time.Time) (*models.Task, []change, error) {
	next := t.Clone()
	var changes []change

	track := func(field string, old, new *string) {
		if !sameValue(old, new) {
			changes = append(changes, change{field: field, old: old, new: new})
		}
	}

	if u.Title != nil {
		title := trimmed(u.Title)
		track("title", str(next.Title), str(title))
		next.Title = title
	}
	if u.Description != nil {
		track("description", str(next.Description), str(*u.Description))
		next.Description = *u.Description
	}
	if u.Priority != nil {
		track("priority", str(string(next.Priority)), str(string(*u.Priority)))
		next.Priority = *u.Priority
	}
	if u.DueDate != nil || u.ClearDueDate {
		due := u.DueDate
		if u.ClearDueDate {
			due = nil
		}
		track("due_date", timeValue(next.DueDate), timeValue(due))
		next.DueDate = due
	}
	if u.StartDate != nil || u.ClearStartDate {
		start := u.StartDate
		if u.ClearStartDate {
			start = nil
		}
		track("start_date", timeValue(next.StartDate), timeValue(start))
		next.StartDate = start
	}
	if u.EstimatedHours != nil {
		track("estimated_hours", floatValue(next.EstimatedHours), floatValue(u.EstimatedHours))
		next.EstimatedHours = u.EstimatedHours
	}
	if u.ActualHours != nil {
		track("actual_hours", floatValue(next.ActualHours), floatValue(u.ActualHours))
		next.ActualHours = u.ActualHours
	}
	if u.CategoryID != nil || u.ClearCategory {
		category := u.CategoryID
		if u.ClearCategory {
			category = nil
		}
		track("category", next.CategoryID, category)
		next.CategoryID = category
	}
	if u.ParentID != nil || u.ClearParent {
		parent := u.ParentID
		if u.ClearParent {
			parent = nil
		}
		track("parent", next.ParentID, parent)
		next.ParentID = parent
	}
	if u.AssigneeIDs != nil {
		ids := unique(*u.AssigneeIDs)
		track("assigned_to", listValue(next.AssigneeIDs), listValue(ids))
		next.AssigneeIDs = ids
	}
	if u.TagIDs != nil {
		ids := unique(*u.TagIDs)
		track("tags", listValue(next.TagIDs), listValue(ids))
		next.TagIDs = ids
	}
	if u.IsRecurring != nil {
		track("is_recurring", str(strconv.FormatBool(next.IsRecurring)), str(strconv.FormatBool(*u.IsRecurring)))
		next.IsRecurring = *u.IsRecurring
	}
	if u.RecurrencePattern != nil {
		track("recurrence_pattern", str(string(next.RecurrencePattern)), str(string(*u.RecurrencePattern)))
		next.RecurrencePattern = *u.RecurrencePattern
	}
	if u.RecurrenceEndDate != nil {
		track("recurrence_end_date", timeValue(next.RecurrenceEndDate), timeValue(u.RecurrenceEndDate))
		next.RecurrenceEndDate = u.RecurrenceEndDate
	}

	if u.Status != nil {
		if err := models.Transition(next, *u.Status, now); err != nil {
			return nil, nil, taskflow.Invalid("update", "status", err.Error())
		}
	}
	// Progress is applied after the transition so completed keeps 100.
	if u.Progress != nil {
		progress := *u.Progress
		if next.Status == models.StatusCompleted {
			progress = 100
		}
		track("progress", str(strconv.Itoa(t.Progress)), str(strconv.Itoa(progress)))
		next.Progress = progress
	}

	var errs taskflow.ValidationErrors
	validateDates(&errs, next.StartDate, next.DueDate)
	validateRecurrence(&errs, next.IsRecurring, next.RecurrencePattern)
	if err := errs.Err(); err != nil {
		return nil, nil, err
	}
	return next, changes, nil
}

func str(s string) *string { return &s }

func sameValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func timeValue(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return str(t.UTC().Format(time.RFC3339))
}

func floatValue(f *float64) *string {
	if f == nil {
		return nil
	}
	return str(strconv.FormatFloat(*f, 'f', -1, 64))
}

func listValue(ids []string) *string {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	return str(strings.Join(sorted, ","))
}
