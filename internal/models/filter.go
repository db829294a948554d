package models

import (
	"fmt"
	"strings"
	"time"
)

// TaskFilter narrows a task listing. Zero values mean "no constraint".
type TaskFilter struct {
	Search        string
	Title         string
	Statuses      []TaskStatus
	Priorities    []TaskPriority
	CategoryID    string
	TagIDs        []string
	OwnerID       string
	AssigneeID    string
	DueAfter      *time.Time
	DueBefore     *time.Time
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	ProgressMin   *int
	ProgressMax   *int
	IsRecurring   *bool
	Overdue       *bool
	HasSubtasks   *bool
	ParentID      string
	SubtasksOnly  bool
	TopLevelOnly  bool
	OnlyDeleted   bool
	OrderBy       []string
	Limit         uint64
	Offset        uint64
	Now           time.Time
}

var orderableFields = map[string]bool{
	"created_at": true,
	"due_date":   true,
	"priority":   true,
	"status":     true,
	"updated_at": true,
	"title":      true,
}

const DefaultOrdering = "-created_at"

// Ordering returns the validated ordering terms, defaulting to newest first.
// A leading '-' means descending.
func (f TaskFilter) Ordering() ([]string, error) {
	terms := f.OrderBy
	if len(terms) == 0 {
		terms = []string{DefaultOrdering}
	}
	out := make([]string, 0, len(terms))
	for _, term := range terms {
		field := strings.TrimPrefix(strings.TrimSpace(term), "-")
		if !orderableFields[field] {
			return nil, fmt.Errorf("cannot order by %q", term)
		}
		out = append(out, strings.TrimSpace(term))
	}
	return out, nil
}

// Validate checks enum values and ranges.
func (f TaskFilter) Validate() error {
	for _, s := range f.Statuses {
		if !s.Valid() {
			return fmt.Errorf("unknown status %q", s)
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			return fmt.Errorf("unknown priority %q", p)
		}
	}
	if f.SubtasksOnly && f.TopLevelOnly {
		return fmt.Errorf("subtasks_only and top_level_only are exclusive")
	}
	_, err := f.Ordering()
	return err
}
