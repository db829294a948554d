package models

import (
	"fmt"
	"time"
)

// Transition applies a status change to t in place. Moving into completed
// stamps completed_at and forces progress to 100; leaving completed clears
// completed_at. Completed and cancelled can be reopened into an active
// status but cannot be swapped for each other directly.
func Transition(t *Task, to TaskStatus, now time.Time) error {
	if !to.Valid() {
		return fmt.Errorf("unknown status %q", to)
	}
	from := t.Status
	if from == to {
		return nil
	}
	if from.IsTerminal() && to.IsTerminal() {
		return fmt.Errorf("cannot move a %s task to %s", from, to)
	}

	t.Status = to
	switch {
	case to == StatusCompleted:
		completed := now
		t.CompletedAt = &completed
		t.Progress = 100
	case from == StatusCompleted:
		t.CompletedAt = nil
	}
	return nil
}

// ValidProgress reports whether p is a percentage.
func ValidProgress(p int) bool {
	return p >= 0 && p <= 100
}
