package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
)

type EffectKind string

const (
	// EffectSpawn creates the next occurrence and stops the source recurring.
	EffectSpawn EffectKind = "spawn"
	// EffectRetire stops the source recurring without a new occurrence.
	EffectRetire EffectKind = "retire"
)

// Effect is the planned outcome for one completed recurring task.
type Effect struct {
	Kind     EffectKind
	SourceID string
	Next     *models.Task
}

// PlanRecurrence decides what a completed recurring task turns into. It
// does not touch the store.
func PlanRecurrence(t *models.Task, now time.Time) Effect {
	effect := Effect{Kind: EffectRetire, SourceID: t.ID}
	due, ok := models.NextDueDate(t, now)
	if !ok {
		return effect
	}
	if t.RecurrenceEndDate != nil && due.After(*t.RecurrenceEndDate) {
		return effect
	}

	effect.Kind = EffectSpawn
	effect.Next = &models.Task{
		ID:                models.NewID(),
		Title:             t.Title,
		Description:       t.Description,
		Status:            models.StatusPending,
		Priority:          t.Priority,
		DueDate:           &due,
		EstimatedHours:    t.EstimatedHours,
		OwnerID:           t.OwnerID,
		CategoryID:        t.CategoryID,
		IsRecurring:       true,
		RecurrencePattern: t.RecurrencePattern,
		RecurrenceEndDate: t.RecurrenceEndDate,
		CreatedAt:         now,
		UpdatedAt:         now,
		AssigneeIDs:       append([]string(nil), t.AssigneeIDs...),
		TagIDs:            append([]string(nil), t.TagIDs...),
	}
	return effect
}

// Recurrence spawns the next occurrence of completed recurring tasks.
type Recurrence struct {
	store store.Store
	log   logger.Logger
}

func NewRecurrence(s store.Store, log logger.Logger) *Recurrence {
	if log == nil {
		log = logger.Jobs()
	}
	return &Recurrence{store: s, log: log}
}

// Run processes every candidate and returns how many tasks were spawned.
// A failing task is logged and skipped.
func (r *Recurrence) Run(ctx context.Context, now time.Time) (int, error) {
	candidates, err := r.store.Tasks().RecurringCandidates(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("recurrence: %w", err)
	}

	spawned := 0
	for i := range candidates {
		effect := PlanRecurrence(&candidates[i], now)
		applied, err := r.apply(ctx, effect, now)
		if err != nil {
			r.log.Warn("recurrence failed", "task", effect.SourceID, "error", err)
			continue
		}
		if applied && effect.Kind == EffectSpawn {
			spawned++
		}
	}
	return spawned, nil
}

func (r *Recurrence) apply(ctx context.Context, effect Effect, now time.Time) (bool, error) {
	applied := false
	err := r.store.WithinTx(ctx, func(tx store.Store) error {
		source, err := tx.Tasks().Get(ctx, effect.SourceID)
		if err != nil {
			return err
		}
		// another worker got here first
		if !source.IsRecurring || source.IsDeleted || source.Status != models.StatusCompleted {
			return nil
		}

		if effect.Kind == EffectSpawn {
			next := effect.Next
			if err := tx.Tasks().Create(ctx, next); err != nil {
				return err
			}
			title := next.Title
			if err := tx.History().Append(ctx, &models.TaskHistory{
				ID:        models.NewID(),
				TaskID:    next.ID,
				UserID:    next.OwnerID,
				FieldName: "task",
				NewValue:  &title,
				Action:    models.ActionCreated,
				CreatedAt: now,
			}); err != nil {
				return err
			}
			r.log.Debug("spawned recurring task", "source", source.ID, "task", next.ID, "due", next.DueDate)
		} else {
			r.log.Debug("retired recurring task", "task", source.ID)
		}

		source.IsRecurring = false
		source.UpdatedAt = now
		applied = true
		return tx.Tasks().Update(ctx, source)
	})
	return applied && err == nil, err
}
