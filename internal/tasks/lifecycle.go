package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// CreateTask writes a task with its assignees, tags and a created history
// row, then notifies the assignees. Only admins may create on behalf of
// another owner.
func (s *Service) CreateTask(ctx context.Context, actor *models.User, in TaskInput) (*models.Task, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	ownerID := actor.ID
	if in.OwnerID != "" && in.OwnerID != actor.ID {
		if !actor.IsAdmin() {
			return nil, taskflow.PermissionDenied("create", "only admins may create tasks for other users")
		}
		ownerID = in.OwnerID
	}

	now := s.clock()
	task := &models.Task{
		ID:                models.NewID(),
		Title:             in.Title,
		Description:       in.Description,
		Status:            models.StatusPending,
		Priority:          in.Priority,
		DueDate:           in.DueDate,
		StartDate:         in.StartDate,
		Progress:          in.Progress,
		EstimatedHours:    in.EstimatedHours,
		OwnerID:           ownerID,
		CategoryID:        in.CategoryID,
		ParentID:          in.ParentID,
		IsRecurring:       in.IsRecurring,
		RecurrencePattern: in.RecurrencePattern,
		RecurrenceEndDate: in.RecurrenceEndDate,
		CreatedAt:         now,
		UpdatedAt:         now,
		AssigneeIDs:       in.AssigneeIDs,
		TagIDs:            in.TagIDs,
	}
	if err := models.Transition(task, in.Status, now); err != nil {
		return nil, taskflow.Invalid("create", "status", err.Error())
	}

	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		if err := s.checkReferences(ctx, tx, actor, task); err != nil {
			return err
		}
		if err := tx.Tasks().Create(ctx, task); err != nil {
			return err
		}
		title := task.Title
		return s.record(ctx, tx, task.ID, actor.ID, "task", nil, &title, models.ActionCreated, now)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task created", "task", task.ID, "owner", task.OwnerID, "actor", actor.ID)
	s.notify.TaskAssigned(ctx, task, task.AssigneeIDs)
	if task.Status == models.StatusCompleted {
		s.notify.TaskCompleted(ctx, task)
	}
	return task, nil
}

// checkReferences validates category, tags and parent against the task owner.
func (s *Service) checkReferences(ctx context.Context, st store.Store, actor *models.User, t *models.Task) error {
	if t.CategoryID != nil {
		c, err := st.Taxonomy().GetCategory(ctx, *t.CategoryID)
		if taskflow.IsNotFound(err) || (err == nil && c.OwnerID != t.OwnerID) {
			return taskflow.Invalid("save", "category_id", "category not found")
		}
		if err != nil {
			return err
		}
	}
	if len(t.TagIDs) > 0 {
		n, err := st.Taxonomy().CountTagsOwnedBy(ctx, t.OwnerID, t.TagIDs)
		if err != nil {
			return err
		}
		if n != len(t.TagIDs) {
			return taskflow.Invalid("save", "tag_ids", "tags must belong to the task owner")
		}
	}
	if t.ParentID != nil {
		if *t.ParentID == t.ID {
			return taskflow.Invalid("save", "parent_id", "a task cannot be its own parent")
		}
		if _, err := s.load(ctx, st, actor, *t.ParentID, access.OpRead); err != nil {
			if taskflow.IsNotFound(err) || taskflow.IsPermissionDenied(err) {
				return taskflow.Invalid("save", "parent_id", "parent task not found")
			}
			return err
		}
		err := models.CheckAcyclic(ctx, t.ID, *t.ParentID, st.Tasks().ParentOf)
		if errors.Is(err, models.ErrCycle) {
			return taskflow.Invalid("save", "parent_id", err.Error())
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// UpdateTask applies a partial update. Assignees with status-only access
// may change nothing but the status.
func (s *Service) UpdateTask(ctx context.Context, actor *models.User, id string, u TaskUpdate) (*models.Task, error) {
	if err := u.validate(); err != nil {
		return nil, err
	}
	op := access.OpUpdate
	if u.StatusOnly() {
		op = access.OpUpdateStatus
	}

	var (
		before, after *models.Task
		added         []string
	)
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		current, err := s.load(ctx, tx, actor, id, op)
		if err != nil {
			return err
		}
		before = current.Clone()
		now := s.clock()

		next, changes, err := apply(current, u, now)
		if err != nil {
			return err
		}
		if len(changes) == 0 && before.Status == next.Status {
			after = next
			return nil
		}
		next.UpdatedAt = now

		if u.CategoryID != nil || u.TagIDs != nil || u.ParentID != nil {
			if err := s.checkReferences(ctx, tx, actor, next); err != nil {
				return err
			}
		}
		if err := tx.Tasks().Update(ctx, next); err != nil {
			return err
		}
		if u.AssigneeIDs != nil {
			added = difference(next.AssigneeIDs, before.AssigneeIDs)
			if err := tx.Tasks().SetAssignees(ctx, id, next.AssigneeIDs); err != nil {
				return err
			}
		}
		if u.TagIDs != nil {
			if err := tx.Tasks().SetTags(ctx, id, next.TagIDs); err != nil {
				return err
			}
		}

		if before.Status != next.Status {
			oldStatus, newStatus := string(before.Status), string(next.Status)
			if err := s.record(ctx, tx, id, actor.ID, "status", &oldStatus, &newStatus, models.ActionUpdated, now); err != nil {
				return err
			}
		}
		for _, c := range changes {
			if err := s.record(ctx, tx, id, actor.ID, c.field, c.old, c.new, models.ActionUpdated, now); err != nil {
				return err
			}
		}
		after = next
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(added) > 0 {
		s.notify.TaskAssigned(ctx, after, added)
	}
	if before.Status != models.StatusCompleted && after.Status == models.StatusCompleted {
		s.notify.TaskCompleted(ctx, after)
	}
	return after, nil
}

// CompleteTask moves a task into completed.
func (s *Service) CompleteTask(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		t, err := s.load(ctx, tx, actor, id, access.OpUpdateStatus)
		if err != nil {
			return err
		}
		if t.Status == models.StatusCompleted {
			return taskflow.ErrTaskAlreadyCompleted.WithOp("complete")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	status := models.StatusCompleted
	return s.UpdateTask(ctx, actor, id, TaskUpdate{Status: &status})
}

// DeleteTask soft-deletes a task and its live subtasks.
func (s *Service) DeleteTask(ctx context.Context, actor *models.User, id string) error {
	var affected []string
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		if _, err := s.load(ctx, tx, actor, id, access.OpDelete); err != nil {
			return err
		}
		now := s.clock()
		ids, err := tx.Tasks().SoftDelete(ctx, id, now)
		if err != nil {
			return err
		}
		for _, tid := range ids {
			if err := s.record(ctx, tx, tid, actor.ID, "task", nil, nil, models.ActionDeleted, now); err != nil {
				return err
			}
		}
		affected = ids
		return nil
	})
	if err != nil {
		return err
	}
	s.log.Info("task deleted", "task", id, "affected", len(affected), "actor", actor.ID)
	return nil
}

// RestoreTask undeletes a task and the subtasks removed with it.
func (s *Service) RestoreTask(ctx context.Context, actor *models.User, id string) (*models.Task, error) {
	var restored *models.Task
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		t, err := s.load(ctx, tx, actor, id, access.OpRestore)
		if err != nil {
			return err
		}
		if t.DeletedAt == nil {
			return taskflow.NotFoundf("restore", "task", "deleted task not found")
		}
		now := s.clock()
		ids, err := tx.Tasks().Restore(ctx, id, *t.DeletedAt, now)
		if err != nil {
			return err
		}
		for _, tid := range ids {
			if err := s.record(ctx, tx, tid, actor.ID, "task", nil, nil, models.ActionRestored, now); err != nil {
				return err
			}
		}
		restored, err = tx.Tasks().Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return restored, nil
}

// HardDeleteTask permanently removes a task that is already in the trash.
func (s *Service) HardDeleteTask(ctx context.Context, actor *models.User, id string) error {
	return s.store.WithinTx(ctx, func(tx store.Store) error {
		if _, err := s.load(ctx, tx, actor, id, access.OpHardDelete); err != nil {
			return err
		}
		if err := tx.Tasks().HardDelete(ctx, id); err != nil {
			return err
		}
		s.log.Info("task permanently deleted", "task", id, "actor", actor.ID)
		return nil
	})
}

func difference(a, b []string) []string {
	seen := make(map[string]bool, len(b))
	for _, id := range b {
		seen[id] = true
	}
	var out []string
	for _, id := range a {
		if !seen[id] {
			out = append(out, id)
		}
	}
	return out
}

func trimmed(s *string) string {
	return strings.TrimSpace(*s)
}
