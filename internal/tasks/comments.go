package tasks

import (
	"context"
	"strings"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// AddComment stores a comment with its resolved @mentions and notifies the
// owner and the mentioned users once it has committed.
func (s *Service) AddComment(ctx context.Context, actor *models.User, taskID string, in CommentInput) (*models.Comment, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return nil, taskflow.Invalid("comment", "content", "is required")
	}

	var (
		task      *models.Task
		comment   *models.Comment
		mentioned []models.User
	)
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		t, err := s.load(ctx, tx, actor, taskID, access.OpComment)
		if err != nil {
			return err
		}
		if in.ParentID != nil {
			parent, err := tx.Comments().Get(ctx, *in.ParentID)
			if taskflow.IsNotFound(err) || (err == nil && parent.TaskID != taskID) {
				return taskflow.Invalid("comment", "parent_id", "parent comment must belong to the same task")
			}
			if err != nil {
				return err
			}
		}

		users, err := tx.Users().FindByMention(ctx, models.ExtractMentions(content))
		if err != nil {
			return err
		}
		now := s.clock()
		c := &models.Comment{
			ID:        models.NewID(),
			TaskID:    taskID,
			AuthorID:  actor.ID,
			Content:   content,
			ParentID:  in.ParentID,
			CreatedAt: now,
			UpdatedAt: now,
		}
		for _, u := range users {
			c.MentionIDs = append(c.MentionIDs, u.ID)
		}
		if err := tx.Comments().Create(ctx, c); err != nil {
			return err
		}
		task, comment, mentioned = t, c, users
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notify.CommentAdded(ctx, task, comment, actor)
	s.notify.Mentions(ctx, task, comment, actor, mentioned)
	return comment, nil
}

// ListComments returns a task's comments oldest first.
func (s *Service) ListComments(ctx context.Context, actor *models.User, taskID string) ([]models.Comment, error) {
	if _, err := s.load(ctx, s.store, actor, taskID, access.OpRead); err != nil {
		return nil, err
	}
	return s.store.Comments().ListByTask(ctx, taskID)
}
