package tasks

import (
	"context"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// BulkAction names an operation applied to many tasks.
type BulkAction string

const (
	BulkComplete       BulkAction = "complete"
	BulkDelete         BulkAction = "delete"
	BulkRestore        BulkAction = "restore"
	BulkChangeStatus   BulkAction = "change_status"
	BulkChangePriority BulkAction = "change_priority"
)

const maxBulkIDs = 100

func (a BulkAction) Valid() bool {
	switch a {
	case BulkComplete, BulkDelete, BulkRestore, BulkChangeStatus, BulkChangePriority:
		return true
	}
	return false
}

// BulkAction applies action to each task on its own. Tasks the actor may
// not touch, or that reject the change, are skipped; the count of changed
// tasks is returned.
func (s *Service) BulkAction(ctx context.Context, actor *models.User, ids []string, action BulkAction, value string) (int, error) {
	var errs taskflow.ValidationErrors
	ids = unique(ids)
	switch {
	case len(ids) == 0:
		errs.Add("task_ids", "at least one task is required")
	case len(ids) > maxBulkIDs:
		errs.Add("task_ids", "at most 100 tasks per request")
	}
	if !action.Valid() {
		errs.Add("action", "unknown action "+string(action))
	}
	if action == BulkChangeStatus && !models.TaskStatus(value).Valid() {
		errs.Add("value", "unknown status "+value)
	}
	if action == BulkChangePriority && !models.TaskPriority(value).Valid() {
		errs.Add("value", "unknown priority "+value)
	}
	if err := errs.Err(); err != nil {
		return 0, err
	}

	count := 0
	for _, id := range ids {
		var err error
		switch action {
		case BulkComplete:
			_, err = s.CompleteTask(ctx, actor, id)
		case BulkDelete:
			err = s.DeleteTask(ctx, actor, id)
		case BulkRestore:
			_, err = s.RestoreTask(ctx, actor, id)
		case BulkChangeStatus:
			status := models.TaskStatus(value)
			_, err = s.UpdateTask(ctx, actor, id, TaskUpdate{Status: &status})
		case BulkChangePriority:
			priority := models.TaskPriority(value)
			_, err = s.UpdateTask(ctx, actor, id, TaskUpdate{Priority: &priority})
		}
		if err != nil {
			if taskflow.KindOf(err) == "" {
				s.log.Error("bulk action failed", "action", action, "task", id, "error", err)
			} else {
				s.log.Debug("bulk action skipped task", "action", action, "task", id, "reason", err)
			}
			continue
		}
		count++
	}
	s.log.Info("bulk action finished", "action", action, "requested", len(ids), "affected", count)
	return count, nil
}
