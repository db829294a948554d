package store

import (
	"context"

	"github.com/lib/pq"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgComments struct {
	db *orm.DB
}

func (r *pgComments) repo() *orm.Repository[models.Comment] {
	return orm.NewRepository[models.Comment](r.db, tableComments)
}

// Create writes the comment and its resolved mentions.
func (r *pgComments) Create(ctx context.Context, c *models.Comment) error {
	if err := r.repo().Insert(ctx, c); err != nil {
		return translate(err, "create", "comment")
	}
	mentions := orm.NewRepository[models.CommentMention](r.db, tableCommentMentions)
	for _, userID := range c.MentionIDs {
		if _, err := mentions.InsertIgnore(ctx, &models.CommentMention{CommentID: c.ID, UserID: userID}, "comment_id", "user_id"); err != nil {
			return translate(err, "create", "comment mention")
		}
	}
	return nil
}

func (r *pgComments) Get(ctx context.Context, id string) (*models.Comment, error) {
	c, err := r.repo().Query(ctx).Where(idColumn.Eq(id)).First()
	if err != nil {
		return nil, translate(err, "get", "comment")
	}
	comments := []models.Comment{*c}
	if err := r.loadMentions(ctx, comments); err != nil {
		return nil, err
	}
	return &comments[0], nil
}

func (r *pgComments) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	comments, err := r.repo().Query(ctx).Where(taskIDColumn.Eq(taskID)).OrderBy("created_at", "id").Find()
	if err != nil {
		return nil, translate(err, "list", "comment")
	}
	return comments, r.loadMentions(ctx, comments)
}

func (r *pgComments) loadMentions(ctx context.Context, comments []models.Comment) error {
	if len(comments) == 0 {
		return nil
	}
	ids := make([]string, len(comments))
	byID := make(map[string]*models.Comment, len(comments))
	for i := range comments {
		ids[i] = comments[i].ID
		byID[comments[i].ID] = &comments[i]
	}

	var rows []models.CommentMention
	err := r.db.Select(ctx, tableCommentMentions, &rows,
		orm.Statement().Select("comment_id", "user_id").From(tableCommentMentions).
			Where("comment_id = ANY(?)", pq.Array(ids)).
			OrderBy("user_id"))
	if err != nil {
		return translate(err, "load", "comment mentions")
	}
	for _, m := range rows {
		if c := byID[m.CommentID]; c != nil {
			c.MentionIDs = append(c.MentionIDs, m.UserID)
		}
	}
	return nil
}
