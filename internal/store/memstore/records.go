package memstore

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
)

type taxonomy struct{ s *Store }

func (r *taxonomy) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	defer r.s.lock()()
	c, ok := r.s.st.categories[id]
	if !ok {
		return nil, notFound("get", "category")
	}
	return &c, nil
}

func (r *taxonomy) CreateCategory(ctx context.Context, c *models.Category) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[c.OwnerID]; !ok {
		return missingRef("create", "category", "owner_id")
	}
	for id, other := range r.s.st.categories {
		if id == c.ID || (other.OwnerID == c.OwnerID && other.Name == c.Name) {
			return duplicate("create", "category")
		}
	}
	r.s.st.categories[c.ID] = *c
	return nil
}

func (r *taxonomy) ListCategories(ctx context.Context, ownerID string) ([]models.Category, error) {
	defer r.s.lock()()
	out := make([]models.Category, 0)
	for _, c := range r.s.st.categories {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteCategory detaches the category from its tasks.
func (r *taxonomy) DeleteCategory(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.st.categories[id]; !ok {
		return notFound("delete", "category")
	}
	delete(r.s.st.categories, id)
	for tid, t := range r.s.st.tasks {
		if t.CategoryID != nil && *t.CategoryID == id {
			t.CategoryID = nil
			r.s.st.tasks[tid] = t
		}
	}
	return nil
}

func (r *taxonomy) GetTag(ctx context.Context, id string) (*models.Tag, error) {
	defer r.s.lock()()
	t, ok := r.s.st.tags[id]
	if !ok {
		return nil, notFound("get", "tag")
	}
	return &t, nil
}

func (r *taxonomy) CreateTag(ctx context.Context, t *models.Tag) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[t.OwnerID]; !ok {
		return missingRef("create", "tag", "owner_id")
	}
	for id, other := range r.s.st.tags {
		if id == t.ID || (other.OwnerID == t.OwnerID && other.Name == t.Name) {
			return duplicate("create", "tag")
		}
	}
	r.s.st.tags[t.ID] = *t
	return nil
}

func (r *taxonomy) ListTags(ctx context.Context, ownerID string) ([]models.Tag, error) {
	defer r.s.lock()()
	out := make([]models.Tag, 0)
	for _, t := range r.s.st.tags {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *taxonomy) DeleteTag(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.st.tags[id]; !ok {
		return notFound("delete", "tag")
	}
	delete(r.s.st.tags, id)
	for tid, t := range r.s.st.tasks {
		kept := t.TagIDs[:0:0]
		for _, tag := range t.TagIDs {
			if tag != id {
				kept = append(kept, tag)
			}
		}
		t.TagIDs = kept
		r.s.st.tasks[tid] = t
	}
	return nil
}

func (r *taxonomy) CountTagsOwnedBy(ctx context.Context, ownerID string, ids []string) (int, error) {
	defer r.s.lock()()
	n := 0
	for id := range toSet(ids) {
		if t, ok := r.s.st.tags[id]; ok && t.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

type comments struct{ s *Store }

func (r *comments) Create(ctx context.Context, c *models.Comment) error {
	defer r.s.lock()()
	if _, ok := r.s.st.comments[c.ID]; ok {
		return duplicate("create", "comment")
	}
	if _, ok := r.s.st.tasks[c.TaskID]; !ok {
		return missingRef("create", "comment", "task_id")
	}
	if _, ok := r.s.st.users[c.AuthorID]; !ok {
		return missingRef("create", "comment", "author_id")
	}
	if c.ParentID != nil {
		if _, ok := r.s.st.comments[*c.ParentID]; !ok {
			return missingRef("create", "comment", "parent_id")
		}
	}
	stored := *c
	stored.MentionIDs = uniqueSorted(c.MentionIDs)
	r.s.st.comments[c.ID] = stored
	return nil
}

func (r *comments) Get(ctx context.Context, id string) (*models.Comment, error) {
	defer r.s.lock()()
	c, ok := r.s.st.comments[id]
	if !ok {
		return nil, notFound("get", "comment")
	}
	c.MentionIDs = append([]string(nil), c.MentionIDs...)
	return &c, nil
}

func (r *comments) ListByTask(ctx context.Context, taskID string) ([]models.Comment, error) {
	defer r.s.lock()()
	out := make([]models.Comment, 0)
	for _, c := range r.s.st.comments {
		if c.TaskID == taskID {
			c.MentionIDs = append([]string(nil), c.MentionIDs...)
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type notifications struct{ s *Store }

var errNotificationsDown = errors.New("notification store unavailable")

func (r *notifications) insert(n *models.Notification) (bool, error) {
	if r.s.FailNotifications {
		return false, errNotificationsDown
	}
	if _, ok := r.s.st.users[n.RecipientID]; !ok {
		return false, missingRef("create", "notification", "recipient_id")
	}
	if n.DedupKey != nil {
		for _, other := range r.s.st.notifications {
			if other.DedupKey != nil && *other.DedupKey == *n.DedupKey {
				return false, nil
			}
		}
	}
	if _, ok := r.s.st.notifications[n.ID]; ok {
		return false, duplicate("create", "notification")
	}
	r.s.st.notifications[n.ID] = *n
	return true, nil
}

func (r *notifications) Create(ctx context.Context, n *models.Notification) error {
	defer r.s.lock()()
	ok, err := r.insert(n)
	if err != nil {
		return err
	}
	if !ok {
		return duplicate("create", "notification")
	}
	return nil
}

func (r *notifications) CreateOnce(ctx context.Context, n *models.Notification) (bool, error) {
	defer r.s.lock()()
	return r.insert(n)
}

func (r *notifications) Get(ctx context.Context, id string) (*models.Notification, error) {
	defer r.s.lock()()
	n, ok := r.s.st.notifications[id]
	if !ok {
		return nil, notFound("get", "notification")
	}
	return &n, nil
}

func (r *notifications) List(ctx context.Context, recipientID string, unreadOnly bool, limit uint64) ([]models.Notification, error) {
	defer r.s.lock()()
	out := make([]models.Notification, 0)
	for _, n := range r.s.st.notifications {
		if n.RecipientID != recipientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	sortNotifications(out)
	if limit > 0 && limit < uint64(len(out)) {
		out = out[:limit]
	}
	return out, nil
}

func (r *notifications) CountUnread(ctx context.Context, recipientID string) (int, error) {
	defer r.s.lock()()
	n := 0
	for _, note := range r.s.st.notifications {
		if note.RecipientID == recipientID && !note.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *notifications) MarkRead(ctx context.Context, id string, at time.Time) (bool, error) {
	defer r.s.lock()()
	n, ok := r.s.st.notifications[id]
	if !ok || !n.MarkRead(at) {
		return false, nil
	}
	n.UpdatedAt = at
	r.s.st.notifications[id] = n
	return true, nil
}

func (r *notifications) MarkAllRead(ctx context.Context, recipientID string, at time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for id, n := range r.s.st.notifications {
		if n.RecipientID == recipientID && n.MarkRead(at) {
			n.UpdatedAt = at
			r.s.st.notifications[id] = n
			count++
		}
	}
	return count, nil
}

func (r *notifications) Delete(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.st.notifications[id]; !ok {
		return notFound("delete", "notification")
	}
	delete(r.s.st.notifications, id)
	return nil
}

func (r *notifications) DeleteForRecipient(ctx context.Context, recipientID string) (int, error) {
	defer r.s.lock()()
	count := 0
	for id, n := range r.s.st.notifications {
		if n.RecipientID == recipientID {
			delete(r.s.st.notifications, id)
			count++
		}
	}
	return count, nil
}

func (r *notifications) PurgeRead(ctx context.Context, before time.Time) (int, error) {
	defer r.s.lock()()
	count := 0
	for id, n := range r.s.st.notifications {
		if n.IsRead && n.CreatedAt.Before(before) {
			delete(r.s.st.notifications, id)
			count++
		}
	}
	return count, nil
}

// sortNotifications orders newest first.
func sortNotifications(ns []models.Notification) {
	sort.Slice(ns, func(i, j int) bool {
		if !ns[i].CreatedAt.Equal(ns[j].CreatedAt) {
			return ns[i].CreatedAt.After(ns[j].CreatedAt)
		}
		return ns[i].ID < ns[j].ID
	})
}

type history struct{ s *Store }

func (r *history) Append(ctx context.Context, h *models.TaskHistory) error {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[h.TaskID]; !ok {
		return missingRef("append", "task history", "task_id")
	}
	r.s.st.history = append(r.s.st.history, *h)
	return nil
}

func (r *history) ListByTask(ctx context.Context, taskID string) ([]models.TaskHistory, error) {
	defer r.s.lock()()
	out := make([]models.TaskHistory, 0)
	for _, h := range r.s.st.history {
		if h.TaskID == taskID {
			out = append(out, h)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type stats struct{ s *Store }

func dayKey(id string, date time.Time) string {
	return id + "|" + date.UTC().Format("2006-01-02")
}

// UpsertDaily keeps the id and creation time of an existing row.
func (r *stats) UpsertDaily(ctx context.Context, s *models.DailyTaskStats) error {
	defer r.s.lock()()
	key := dayKey(s.UserID, s.Date)
	row := *s
	if existing, ok := r.s.st.daily[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}
	r.s.st.daily[key] = row
	*s = row
	return nil
}

func (r *stats) UpsertTeam(ctx context.Context, s *models.TeamStats) error {
	defer r.s.lock()()
	key := dayKey(s.ManagerID, s.Date)
	row := *s
	if existing, ok := r.s.st.team[key]; ok {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}
	r.s.st.team[key] = row
	*s = row
	return nil
}

func (r *stats) ListDaily(ctx context.Context, userID string, since time.Time) ([]models.DailyTaskStats, error) {
	defer r.s.lock()()
	out := make([]models.DailyTaskStats, 0)
	for _, row := range r.s.st.daily {
		if row.UserID == userID && !row.Date.Before(since) {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// TeamStatsFor returns the stored team row for a manager and day.
func (s *Store) TeamStatsFor(managerID string, date time.Time) (models.TeamStats, bool) {
	defer s.lock()()
	row, ok := s.st.team[dayKey(managerID, date)]
	return row, ok
}
