package notify

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

const DefaultListLimit = 50

// Service is a user's notification inbox.
type Service struct {
	store store.Store
	now   func() time.Time
}

func NewService(s store.Store) *Service {
	return &Service{store: s, now: time.Now}
}

func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) List(ctx context.Context, actor *models.User, unreadOnly bool, limit uint64) ([]models.Notification, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	return s.store.Notifications().List(ctx, actor.ID, unreadOnly, limit)
}

func (s *Service) UnreadCount(ctx context.Context, actor *models.User) (int, error) {
	return s.store.Notifications().CountUnread(ctx, actor.ID)
}

// own loads a notification of actor. Another recipient's notification is
// reported as missing.
func (s *Service) own(ctx context.Context, op string, actor *models.User, id string) (*models.Notification, error) {
	n, err := s.store.Notifications().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != actor.ID {
		return nil, taskflow.NotFound(op, "notification")
	}
	return n, nil
}

// MarkRead is idempotent; read_at keeps the time of the first read.
func (s *Service) MarkRead(ctx context.Context, actor *models.User, id string) (*models.Notification, error) {
	n, err := s.own(ctx, "mark read", actor, id)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	now := s.now().UTC()
	if _, err := s.store.Notifications().MarkRead(ctx, id, now); err != nil {
		return nil, err
	}
	return s.store.Notifications().Get(ctx, id)
}

func (s *Service) MarkAllRead(ctx context.Context, actor *models.User) (int, error) {
	return s.store.Notifications().MarkAllRead(ctx, actor.ID, s.now().UTC())
}

func (s *Service) Dismiss(ctx context.Context, actor *models.User, id string) error {
	if _, err := s.own(ctx, "dismiss", actor, id); err != nil {
		return err
	}
	return s.store.Notifications().Delete(ctx, id)
}

func (s *Service) ClearAll(ctx context.Context, actor *models.User) (int, error) {
	return s.store.Notifications().DeleteForRecipient(ctx, actor.ID)
}
