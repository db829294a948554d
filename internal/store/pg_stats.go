package store

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgStats struct {
	db *orm.DB
}

func (r *pgStats) UpsertDaily(ctx context.Context, s *models.DailyTaskStats) error {
	err := orm.NewRepository[models.DailyTaskStats](r.db, tableDailyStats).Upsert(ctx, s, orm.UpsertOptions{
		ConflictColumns: []string{"user_id", "date"},
		Preserve:        []string{"id", "created_at"},
	})
	return translate(err, "upsert", "daily stats")
}

func (r *pgStats) UpsertTeam(ctx context.Context, s *models.TeamStats) error {
	err := orm.NewRepository[models.TeamStats](r.db, tableTeamStats).Upsert(ctx, s, orm.UpsertOptions{
		ConflictColumns: []string{"manager_id", "date"},
		Preserve:        []string{"id", "created_at"},
	})
	return translate(err, "upsert", "team stats")
}

func (r *pgStats) ListDaily(ctx context.Context, userID string, since time.Time) ([]models.DailyTaskStats, error) {
	rows, err := orm.NewRepository[models.DailyTaskStats](r.db, tableDailyStats).Query(ctx).
		Where(userIDColumn.Eq(userID)).
		Where(orm.Time("", "date").AtOrAfter(since)).
		OrderBy("date").
		Find()
	return rows, translate(err, "list", "daily stats")
}
