package memstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/eleven-am/taskflow/internal/models"
)

type tasks struct{ s *Store }

func (r *tasks) Get(ctx context.Context, id string) (*models.Task, error) {
	defer r.s.lock()()
	t, ok := r.s.st.tasks[id]
	if !ok {
		return nil, notFound("get", "task")
	}
	return t.Clone(), nil
}

func (r *tasks) List(ctx context.Context, scope models.TaskScope, f models.TaskFilter) ([]models.Task, error) {
	ordering, err := f.Ordering()
	if err != nil {
		return nil, err
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	defer r.s.lock()()
	out := make([]models.Task, 0)
	for _, t := range r.s.st.tasks {
		if r.matches(&t, scope, f, now) {
			out = append(out, *t.Clone())
		}
	}
	sortTasks(out, ordering)

	if f.Offset > 0 {
		if f.Offset >= uint64(len(out)) {
			return []models.Task{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < uint64(len(out)) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *tasks) matches(t *models.Task, scope models.TaskScope, f models.TaskFilter, now time.Time) bool {
	if t.IsDeleted != f.OnlyDeleted {
		return false
	}
	if !scope.All {
		var managerID *string
		if owner, ok := r.s.st.users[t.OwnerID]; ok {
			managerID = owner.ManagerID
		}
		if !scope.Allows(t, managerID) {
			return false
		}
	}
	if f.Search != "" && !containsFold(t.Title, f.Search) && !containsFold(t.Description, f.Search) {
		return false
	}
	if f.Title != "" && !containsFold(t.Title, f.Title) {
		return false
	}
	if len(f.Statuses) > 0 && !hasStatus(f.Statuses, t.Status) {
		return false
	}
	if len(f.Priorities) > 0 && !hasPriority(f.Priorities, t.Priority) {
		return false
	}
	if f.CategoryID != "" && (t.CategoryID == nil || *t.CategoryID != f.CategoryID) {
		return false
	}
	if len(f.TagIDs) > 0 && !overlaps(t.TagIDs, f.TagIDs) {
		return false
	}
	if f.OwnerID != "" && t.OwnerID != f.OwnerID {
		return false
	}
	if f.AssigneeID != "" && !t.IsAssigned(f.AssigneeID) {
		return false
	}
	if f.DueAfter != nil && (t.DueDate == nil || t.DueDate.Before(*f.DueAfter)) {
		return false
	}
	if f.DueBefore != nil && (t.DueDate == nil || t.DueDate.After(*f.DueBefore)) {
		return false
	}
	if f.CreatedAfter != nil && t.CreatedAt.Before(*f.CreatedAfter) {
		return false
	}
	if f.CreatedBefore != nil && t.CreatedAt.After(*f.CreatedBefore) {
		return false
	}
	if f.ProgressMin != nil && t.Progress < *f.ProgressMin {
		return false
	}
	if f.ProgressMax != nil && t.Progress > *f.ProgressMax {
		return false
	}
	if f.IsRecurring != nil && t.IsRecurring != *f.IsRecurring {
		return false
	}
	if f.Overdue != nil && t.IsOverdue(now) != *f.Overdue {
		return false
	}
	if f.HasSubtasks != nil && r.hasLiveChildren(t.ID) != *f.HasSubtasks {
		return false
	}
	if f.ParentID != "" && (t.ParentID == nil || *t.ParentID != f.ParentID) {
		return false
	}
	if f.SubtasksOnly && t.ParentID == nil {
		return false
	}
	if f.TopLevelOnly && t.ParentID != nil {
		return false
	}
	return true
}

func (r *tasks) hasLiveChildren(id string) bool {
	for _, t := range r.s.st.tasks {
		if t.ParentID != nil && *t.ParentID == id && !t.IsDeleted {
			return true
		}
	}
	return false
}

func (r *tasks) Create(ctx context.Context, t *models.Task) error {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[t.ID]; ok {
		return duplicate("create", "task")
	}
	if err := r.checkRefs("create", t); err != nil {
		return err
	}
	r.s.st.tasks[t.ID] = *t.Clone()
	return nil
}

func (r *tasks) Update(ctx context.Context, t *models.Task) error {
	defer r.s.lock()()
	current, ok := r.s.st.tasks[t.ID]
	if !ok {
		return notFound("update", "task")
	}
	if err := r.checkRefs("update", t); err != nil {
		return err
	}
	next := *t.Clone()
	next.AssigneeIDs = current.AssigneeIDs
	next.TagIDs = current.TagIDs
	r.s.st.tasks[t.ID] = next
	return nil
}

func (r *tasks) checkRefs(op string, t *models.Task) error {
	if _, ok := r.s.st.users[t.OwnerID]; !ok {
		return missingRef(op, "task", "owner_id")
	}
	if t.CategoryID != nil {
		if _, ok := r.s.st.categories[*t.CategoryID]; !ok {
			return missingRef(op, "task", "category_id")
		}
	}
	if t.ParentID != nil {
		if _, ok := r.s.st.tasks[*t.ParentID]; !ok {
			return missingRef(op, "task", "parent_id")
		}
	}
	for _, id := range t.AssigneeIDs {
		if _, ok := r.s.st.users[id]; !ok {
			return missingRef(op, "task", "assignee")
		}
	}
	for _, id := range t.TagIDs {
		if _, ok := r.s.st.tags[id]; !ok {
			return missingRef(op, "task", "tag")
		}
	}
	return nil
}

func (r *tasks) SetAssignees(ctx context.Context, taskID string, userIDs []string) error {
	defer r.s.lock()()
	t, ok := r.s.st.tasks[taskID]
	if !ok {
		return missingRef("assign", "task", "task_id")
	}
	for _, id := range userIDs {
		if _, ok := r.s.st.users[id]; !ok {
			return missingRef("assign", "task", "user_id")
		}
	}

	wanted := toSet(userIDs)
	kept := make([]string, 0, len(userIDs))
	have := make(map[string]bool)
	for _, id := range t.AssigneeIDs {
		if wanted[id] {
			kept = append(kept, id)
			have[id] = true
		}
	}
	for _, id := range userIDs {
		if !have[id] {
			kept = append(kept, id)
			have[id] = true
		}
	}
	t.AssigneeIDs = kept
	r.s.st.tasks[taskID] = t
	return nil
}

func (r *tasks) SetTags(ctx context.Context, taskID string, tagIDs []string) error {
	defer r.s.lock()()
	t, ok := r.s.st.tasks[taskID]
	if !ok {
		return missingRef("tag", "task", "task_id")
	}
	for _, id := range tagIDs {
		if _, ok := r.s.st.tags[id]; !ok {
			return missingRef("tag", "task", "tag_id")
		}
	}
	t.TagIDs = uniqueSorted(tagIDs)
	r.s.st.tasks[taskID] = t
	return nil
}

func (r *tasks) ParentOf(ctx context.Context, id string) (*string, error) {
	defer r.s.lock()()
	t, ok := r.s.st.tasks[id]
	if !ok {
		return nil, notFound("get", "task")
	}
	return t.ParentID, nil
}

// subtree returns id followed by all of its descendants.
func (r *tasks) subtree(id string) []string {
	out := []string{id}
	for i := 0; i < len(out); i++ {
		for childID, t := range r.s.st.tasks {
			if t.ParentID != nil && *t.ParentID == out[i] {
				out = append(out, childID)
			}
		}
	}
	return out
}

func (r *tasks) SoftDelete(ctx context.Context, id string, at time.Time) ([]string, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[id]; !ok {
		return nil, nil
	}
	var affected []string
	for _, tid := range r.subtree(id) {
		t := r.s.st.tasks[tid]
		if t.IsDeleted {
			continue
		}
		deletedAt := at
		t.IsDeleted = true
		t.DeletedAt = &deletedAt
		t.UpdatedAt = at
		r.s.st.tasks[tid] = t
		affected = append(affected, tid)
	}
	return affected, nil
}

func (r *tasks) Restore(ctx context.Context, id string, deletedAt, at time.Time) ([]string, error) {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[id]; !ok {
		return nil, nil
	}
	var affected []string
	for _, tid := range r.subtree(id) {
		t := r.s.st.tasks[tid]
		if !t.IsDeleted {
			continue
		}
		if tid != id && (t.DeletedAt == nil || !t.DeletedAt.Equal(deletedAt)) {
			continue
		}
		t.IsDeleted = false
		t.DeletedAt = nil
		t.UpdatedAt = at
		r.s.st.tasks[tid] = t
		affected = append(affected, tid)
	}
	return affected, nil
}

// HardDelete removes the task with everything that references it.
func (r *tasks) HardDelete(ctx context.Context, id string) error {
	defer r.s.lock()()
	if _, ok := r.s.st.tasks[id]; !ok {
		return notFound("hard delete", "task")
	}
	gone := toSet(r.subtree(id))
	for tid := range gone {
		delete(r.s.st.tasks, tid)
	}

	removedComments := make(map[string]bool)
	for cid, c := range r.s.st.comments {
		if gone[c.TaskID] {
			removedComments[cid] = true
			delete(r.s.st.comments, cid)
		}
	}
	for nid, n := range r.s.st.notifications {
		if (n.TaskID != nil && gone[*n.TaskID]) || (n.CommentID != nil && removedComments[*n.CommentID]) {
			delete(r.s.st.notifications, nid)
		}
	}
	kept := r.s.st.history[:0]
	for _, h := range r.s.st.history {
		if !gone[h.TaskID] {
			kept = append(kept, h)
		}
	}
	r.s.st.history = kept
	return nil
}

func (r *tasks) DueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	defer r.s.lock()()
	out := make([]models.Task, 0)
	for _, t := range r.s.st.tasks {
		if t.IsDeleted || !t.Status.IsActive() || t.DueDate == nil {
			continue
		}
		if t.DueDate.Before(from) || !t.DueDate.Before(to) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sortByDue(out)
	return out, nil
}

func (r *tasks) RecurringCandidates(ctx context.Context, now time.Time) ([]models.Task, error) {
	defer r.s.lock()()
	out := make([]models.Task, 0)
	for _, t := range r.s.st.tasks {
		if t.IsDeleted || !t.IsRecurring || t.Status != models.StatusCompleted {
			continue
		}
		if t.RecurrencePattern == models.RecurrenceNone {
			continue
		}
		if t.RecurrenceEndDate != nil && !t.RecurrenceEndDate.After(now) {
			continue
		}
		out = append(out, *t.Clone())
	}
	sortByDue(out)
	return out, nil
}

// sortTasks applies ordering terms the way postgres would, with NULL due
// dates sorting last ascending and first descending, ties broken by id.
func sortTasks(ts []models.Task, ordering []string) {
	sort.SliceStable(ts, func(i, j int) bool {
		for _, term := range ordering {
			desc := strings.HasPrefix(term, "-")
			c := compareField(&ts[i], &ts[j], strings.TrimPrefix(term, "-"))
			if c == 0 {
				continue
			}
			if desc {
				return c > 0
			}
			return c < 0
		}
		return ts[i].ID < ts[j].ID
	})
}

func compareField(a, b *models.Task, field string) int {
	switch field {
	case "created_at":
		return compareTime(a.CreatedAt, b.CreatedAt)
	case "updated_at":
		return compareTime(a.UpdatedAt, b.UpdatedAt)
	case "due_date":
		switch {
		case a.DueDate == nil && b.DueDate == nil:
			return 0
		case a.DueDate == nil:
			return 1
		case b.DueDate == nil:
			return -1
		}
		return compareTime(*a.DueDate, *b.DueDate)
	case "priority":
		return a.Priority.Rank() - b.Priority.Rank()
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "title":
		return strings.Compare(a.Title, b.Title)
	}
	return 0
}

func compareTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func sortByDue(ts []models.Task) {
	sortTasks(ts, []string{"due_date"})
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func hasStatus(list []models.TaskStatus, s models.TaskStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func hasPriority(list []models.TaskPriority, p models.TaskPriority) bool {
	for _, v := range list {
		if v == p {
			return true
		}
	}
	return false
}

func overlaps(a, b []string) bool {
	set := toSet(b)
	for _, v := range a {
		if set[v] {
			return true
		}
	}
	return false
}

func uniqueSorted(ids []string) []string {
	set := toSet(ids)
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
