// Package memstore is an in-memory Store used by service tests. It mirrors
// the postgres store's filtering, cascading and uniqueness rules.
package memstore

import (
	"context"
	"sync"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

type state struct {
	users         map[string]models.User
	tasks         map[string]models.Task
	categories    map[string]models.Category
	tags          map[string]models.Tag
	comments      map[string]models.Comment
	notifications map[string]models.Notification
	history       []models.TaskHistory
	daily         map[string]models.DailyTaskStats
	team          map[string]models.TeamStats
}

func newState() *state {
	return &state{
		users:         make(map[string]models.User),
		tasks:         make(map[string]models.Task),
		categories:    make(map[string]models.Category),
		tags:          make(map[string]models.Tag),
		comments:      make(map[string]models.Comment),
		notifications: make(map[string]models.Notification),
		daily:         make(map[string]models.DailyTaskStats),
		team:          make(map[string]models.TeamStats),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.users {
		c.users[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = *v.Clone()
	}
	for k, v := range s.categories {
		c.categories[k] = v
	}
	for k, v := range s.tags {
		c.tags[k] = v
	}
	for k, v := range s.comments {
		v.MentionIDs = append([]string(nil), v.MentionIDs...)
		c.comments[k] = v
	}
	for k, v := range s.notifications {
		c.notifications[k] = v
	}
	c.history = append([]models.TaskHistory(nil), s.history...)
	for k, v := range s.daily {
		c.daily[k] = v
	}
	for k, v := range s.team {
		c.team[k] = v
	}
	return c
}

// Store implements store.Store in memory. The zero value is not usable;
// call New.
type Store struct {
	mu   *sync.Mutex
	txMu *sync.Mutex
	st   *state
	inTx bool

	// FailNotifications makes every notification write fail, for testing
	// that dispatch errors never surface.
	FailNotifications bool
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{mu: &sync.Mutex{}, txMu: &sync.Mutex{}, st: newState()}
}

func (s *Store) Users() store.UserRepository                 { return &users{s} }
func (s *Store) Tasks() store.TaskRepository                 { return &tasks{s} }
func (s *Store) Taxonomy() store.TaxonomyRepository          { return &taxonomy{s} }
func (s *Store) Comments() store.CommentRepository           { return &comments{s} }
func (s *Store) Notifications() store.NotificationRepository { return &notifications{s} }
func (s *Store) History() store.HistoryRepository            { return &history{s} }
func (s *Store) Stats() store.StatsRepository                { return &stats{s} }

// WithinTx snapshots the state and restores it when fn fails.
func (s *Store) WithinTx(ctx context.Context, fn func(store.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.st.clone()
	s.mu.Unlock()

	tx := &Store{mu: s.mu, txMu: s.txMu, st: s.st, inTx: true, FailNotifications: s.FailNotifications}
	if err := fn(tx); err != nil {
		s.mu.Lock()
		*s.st = *snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) lock() func() {
	s.mu.Lock()
	return s.mu.Unlock
}

// The All* accessors bypass scoping and soft-delete filters. They exist for
// tests in other packages that need to inspect raw store state.

// AllNotifications returns every notification, newest first.
func (s *Store) AllNotifications() []models.Notification {
	defer s.lock()()
	out := make([]models.Notification, 0, len(s.st.notifications))
	for _, n := range s.st.notifications {
		out = append(out, n)
	}
	sortNotifications(out)
	return out
}

// AllHistory returns every history row in insertion order.
func (s *Store) AllHistory() []models.TaskHistory {
	defer s.lock()()
	return append([]models.TaskHistory(nil), s.st.history...)
}

// AllTasks returns copies of every task, trashed ones included, by
// creation time.
func (s *Store) AllTasks() []models.Task {
	defer s.lock()()
	out := make([]models.Task, 0, len(s.st.tasks))
	for _, t := range s.st.tasks {
		out = append(out, *t.Clone())
	}
	sortTasks(out, []string{"created_at"})
	return out
}

func notFound(op, entity string) error {
	return taskflow.NotFound(op, entity)
}

func missingRef(op, entity, field string) error {
	return &taskflow.Error{Op: op, Kind: taskflow.KindValidation, Entity: entity, Field: field, Message: "references a missing record"}
}

func duplicate(op, entity string) error {
	return taskflow.Conflict(op, entity, entity+" already exists")
}
