package tasks

import (
	"context"
	"strings"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

func (s *Service) CreateCategory(ctx context.Context, actor *models.User, in CategoryInput) (*models.Category, error) {
	name := strings.TrimSpace(in.Name)
	var errs taskflow.ValidationErrors
	validateName(&errs, name, in.Color)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	color := in.Color
	if color == "" {
		color = models.DefaultCategoryColor
	}

	now := s.clock()
	c := &models.Category{
		ID:          models.NewID(),
		OwnerID:     actor.ID,
		Name:        name,
		Description: in.Description,
		Color:       color,
		Icon:        in.Icon,
		IsDefault:   in.IsDefault,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Taxonomy().CreateCategory(ctx, c); err != nil {
		if taskflow.IsConflict(err) {
			return nil, taskflow.Conflict("create", "category", "category "+name+" already exists")
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) ListCategories(ctx context.Context, actor *models.User) ([]models.Category, error) {
	return s.store.Taxonomy().ListCategories(ctx, actor.ID)
}

// DeleteCategory removes one of actor's categories; its tasks become
// uncategorised.
func (s *Service) DeleteCategory(ctx context.Context, actor *models.User, id string) error {
	c, err := s.store.Taxonomy().GetCategory(ctx, id)
	if err != nil {
		return err
	}
	if c.OwnerID != actor.ID && !actor.IsAdmin() {
		return taskflow.NotFound("delete", "category")
	}
	return s.store.Taxonomy().DeleteCategory(ctx, id)
}

func (s *Service) CreateTag(ctx context.Context, actor *models.User, in TagInput) (*models.Tag, error) {
	name := strings.TrimSpace(in.Name)
	var errs taskflow.ValidationErrors
	validateName(&errs, name, in.Color)
	if err := errs.Err(); err != nil {
		return nil, err
	}
	color := in.Color
	if color == "" {
		color = models.DefaultTagColor
	}

	now := s.clock()
	t := &models.Tag{
		ID:        models.NewID(),
		OwnerID:   actor.ID,
		Name:      name,
		Color:     color,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Taxonomy().CreateTag(ctx, t); err != nil {
		if taskflow.IsConflict(err) {
			return nil, taskflow.Conflict("create", "tag", "tag "+name+" already exists")
		}
		return nil, err
	}
	return t, nil
}

func (s *Service) ListTags(ctx context.Context, actor *models.User) ([]models.Tag, error) {
	return s.store.Taxonomy().ListTags(ctx, actor.ID)
}

func (s *Service) DeleteTag(ctx context.Context, actor *models.User, id string) error {
	t, err := s.store.Taxonomy().GetTag(ctx, id)
	if err != nil {
		return err
	}
	if t.OwnerID != actor.ID && !actor.IsAdmin() {
		return taskflow.NotFound("delete", "tag")
	}
	return s.store.Taxonomy().DeleteTag(ctx, id)
}
