package store

import (
	"context"

	"github.com/eleven-am/taskflow/internal/orm"
)

// PgStore is the postgres-backed Store.
type PgStore struct {
	db *orm.DB
}

var _ Store = (*PgStore)(nil)

func NewPgStore(db *orm.DB) *PgStore {
	return &PgStore{db: db}
}

func (s *PgStore) Users() UserRepository                 { return &pgUsers{db: s.db} }
func (s *PgStore) Tasks() TaskRepository                 { return &pgTasks{db: s.db} }
func (s *PgStore) Taxonomy() TaxonomyRepository          { return &pgTaxonomy{db: s.db} }
func (s *PgStore) Comments() CommentRepository           { return &pgComments{db: s.db} }
func (s *PgStore) Notifications() NotificationRepository { return &pgNotifications{db: s.db} }
func (s *PgStore) History() HistoryRepository            { return &pgHistory{db: s.db} }
func (s *PgStore) Stats() StatsRepository                { return &pgStats{db: s.db} }

func (s *PgStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	return s.db.WithTransaction(ctx, func(tx *orm.DB) error {
		return fn(&PgStore{db: tx})
	})
}
