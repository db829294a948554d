package store

import (
	"context"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgTaxonomy struct {
	db *orm.DB
}

func (r *pgTaxonomy) categories() *orm.Repository[models.Category] {
	return orm.NewRepository[models.Category](r.db, tableCategories)
}

func (r *pgTaxonomy) tags() *orm.Repository[models.Tag] {
	return orm.NewRepository[models.Tag](r.db, tableTags)
}

func (r *pgTaxonomy) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	c, err := r.categories().Query(ctx).Where(idColumn.Eq(id)).First()
	return c, translate(err, "get", "category")
}

func (r *pgTaxonomy) CreateCategory(ctx context.Context, c *models.Category) error {
	return translate(r.categories().Insert(ctx, c), "create", "category")
}

func (r *pgTaxonomy) ListCategories(ctx context.Context, ownerID string) ([]models.Category, error) {
	cs, err := r.categories().Query(ctx).Where(ownerColumn.Eq(ownerID)).OrderBy("name").Find()
	return cs, translate(err, "list", "category")
}

func (r *pgTaxonomy) DeleteCategory(ctx context.Context, id string) error {
	n, err := r.categories().DeleteWhere(ctx, idColumn.Eq(id))
	if err == nil && n == 0 {
		err = &orm.Error{Op: "delete", Table: tableCategories, Err: orm.ErrNotFound}
	}
	return translate(err, "delete", "category")
}

func (r *pgTaxonomy) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	t, err := r.tags().Query(ctx).Where(idColumn.Eq(id)).First()
	return t, translate(err, "get", "tag")
}

func (r *pgTaxonomy) CreateTag(ctx context.Context, t *models.Tag) error {
	return translate(r.tags().Insert(ctx, t), "create", "tag")
}

func (r *pgTaxonomy) ListTags(ctx context.Context, ownerID string) ([]models.Tag, error) {
	ts, err := r.tags().Query(ctx).Where(ownerColumn.Eq(ownerID)).OrderBy("name").Find()
	return ts, translate(err, "list", "tag")
}

func (r *pgTaxonomy) DeleteTag(ctx context.Context, id string) error {
	n, err := r.tags().DeleteWhere(ctx, idColumn.Eq(id))
	if err == nil && n == 0 {
		err = &orm.Error{Op: "delete", Table: tableTags, Err: orm.ErrNotFound}
	}
	return translate(err, "delete", "tag")
}

func (r *pgTaxonomy) CountTagsOwnedBy(ctx context.Context, ownerID string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	n, err := r.tags().Query(ctx).Where(ownerColumn.Eq(ownerID)).Where(idColumn.Any(ids)).Count()
	return int(n), translate(err, "count", "tag")
}
