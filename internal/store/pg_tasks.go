package store

import (
	"context"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/orm"
)

type pgTasks struct {
	db *orm.DB
}

func (r *pgTasks) repo() *orm.Repository[models.Task] {
	return orm.NewRepository[models.Task](r.db, tableTasks)
}

var terminalStatuses = []models.TaskStatus{models.StatusCompleted, models.StatusCancelled}

// Mutable columns written by Update.
var taskUpdateColumns = []string{
	"title", "description", "status", "priority", "due_date", "start_date", "completed_at",
	"progress", "estimated_hours", "actual_hours", "owner_id", "category_id", "parent_id",
	"is_recurring", "recurrence_pattern", "recurrence_end_date", "is_deleted", "deleted_at",
	"updated_at",
}

func (r *pgTasks) Get(ctx context.Context, id string) (*models.Task, error) {
	t, err := r.repo().Query(ctx).Where(taskColumns.ID.Eq(id)).First()
	if err != nil {
		return nil, translate(err, "get", "task")
	}
	tasks := []models.Task{*t}
	if err := r.loadRelations(ctx, tasks); err != nil {
		return nil, err
	}
	return &tasks[0], nil
}

func (r *pgTasks) List(ctx context.Context, scope models.TaskScope, f models.TaskFilter) ([]models.Task, error) {
	ordering, err := f.Ordering()
	if err != nil {
		return nil, translate(err, "list", "task")
	}

	q := r.repo().Query(ctx)
	for _, cond := range taskConditions(scope, f) {
		q = q.Where(cond)
	}
	for _, term := range ordering {
		q = q.OrderBy(orderExpression(term))
	}
	q = q.OrderBy("tasks.id")
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	tasks, err := q.Find()
	if err != nil {
		return nil, translate(err, "list", "task")
	}
	if err := r.loadRelations(ctx, tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// orderExpression sorts priority by rank rather than alphabetically.
func orderExpression(term string) string {
	desc := len(term) > 0 && term[0] == '-'
	field := term
	if desc {
		field = term[1:]
	}
	expr := "tasks." + field
	if field == "priority" {
		expr = "CASE tasks.priority WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END"
	}
	if desc {
		return expr + " DESC"
	}
	return expr + " ASC"
}

func assignedTo(userID string) orm.Condition {
	return orm.Exists(squirrel.Select("1").From(tableTaskAssignees+" ta").
		Where("ta.task_id = tasks.id").
		Where(squirrel.Eq{"ta.user_id": userID}))
}

func ownedByTeamOf(managerID string) orm.Condition {
	return orm.Raw("tasks.owner_id IN (SELECT id FROM users WHERE manager_id = ?)", managerID)
}

func overdueAt(now time.Time) orm.Condition {
	return orm.And(
		taskColumns.DueDate.Before(now),
		taskColumns.Status.NotIn(terminalStatuses...),
	)
}

func taskConditions(scope models.TaskScope, f models.TaskFilter) []orm.Condition {
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}

	conds := []orm.Condition{taskColumns.IsDeleted.Eq(f.OnlyDeleted)}

	if !scope.All {
		visible := []orm.Condition{taskColumns.OwnerID.Eq(scope.UserID), assignedTo(scope.UserID)}
		if scope.TeamOf != "" {
			visible = append(visible, ownedByTeamOf(scope.TeamOf))
		}
		conds = append(conds, orm.Or(visible...))
	}

	if f.Search != "" {
		conds = append(conds, orm.Or(taskColumns.Title.Contains(f.Search), taskColumns.Description.Contains(f.Search)))
	}
	if f.Title != "" {
		conds = append(conds, taskColumns.Title.Contains(f.Title))
	}
	if len(f.Statuses) > 0 {
		conds = append(conds, taskColumns.Status.In(f.Statuses...))
	}
	if len(f.Priorities) > 0 {
		conds = append(conds, taskColumns.Priority.In(f.Priorities...))
	}
	if f.CategoryID != "" {
		conds = append(conds, taskColumns.CategoryID.Eq(f.CategoryID))
	}
	if len(f.TagIDs) > 0 {
		conds = append(conds, orm.Exists(squirrel.Select("1").From(tableTaskTags+" tt").
			Where("tt.task_id = tasks.id").
			Where("tt.tag_id = ANY(?)", pq.Array(f.TagIDs))))
	}
	if f.OwnerID != "" {
		conds = append(conds, taskColumns.OwnerID.Eq(f.OwnerID))
	}
	if f.AssigneeID != "" {
		conds = append(conds, assignedTo(f.AssigneeID))
	}
	if f.DueAfter != nil {
		conds = append(conds, taskColumns.DueDate.AtOrAfter(*f.DueAfter))
	}
	if f.DueBefore != nil {
		conds = append(conds, taskColumns.DueDate.AtOrBefore(*f.DueBefore))
	}
	if f.CreatedAfter != nil {
		conds = append(conds, taskColumns.CreatedAt.AtOrAfter(*f.CreatedAfter))
	}
	if f.CreatedBefore != nil {
		conds = append(conds, taskColumns.CreatedAt.AtOrBefore(*f.CreatedBefore))
	}
	if f.ProgressMin != nil {
		conds = append(conds, taskColumns.Progress.Gte(*f.ProgressMin))
	}
	if f.ProgressMax != nil {
		conds = append(conds, taskColumns.Progress.Lte(*f.ProgressMax))
	}
	if f.IsRecurring != nil {
		conds = append(conds, taskColumns.IsRecurring.Eq(*f.IsRecurring))
	}
	if f.Overdue != nil {
		if *f.Overdue {
			conds = append(conds, overdueAt(now))
		} else {
			conds = append(conds, orm.Or(taskColumns.DueDate.IsNull(), orm.Not(overdueAt(now))))
		}
	}
	if f.HasSubtasks != nil {
		sub := squirrel.Select("1").From(tableTasks + " sub").
			Where("sub.parent_id = tasks.id").
			Where("sub.is_deleted = false")
		if *f.HasSubtasks {
			conds = append(conds, orm.Exists(sub))
		} else {
			conds = append(conds, orm.NotExists(sub))
		}
	}
	if f.ParentID != "" {
		conds = append(conds, taskColumns.ParentID.Eq(f.ParentID))
	}
	if f.SubtasksOnly {
		conds = append(conds, taskColumns.ParentID.IsNotNull())
	}
	if f.TopLevelOnly {
		conds = append(conds, taskColumns.ParentID.IsNull())
	}
	return conds
}

// loadRelations fills assignee and tag ids for every task in place.
func (r *pgTasks) loadRelations(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	ids := make([]string, len(tasks))
	byID := make(map[string]*models.Task, len(tasks))
	for i := range tasks {
		ids[i] = tasks[i].ID
		byID[tasks[i].ID] = &tasks[i]
	}

	var assignees []models.TaskAssignee
	err := r.db.Select(ctx, tableTaskAssignees, &assignees,
		orm.Statement().Select("task_id", "user_id", "created_at").From(tableTaskAssignees).
			Where("task_id = ANY(?)", pq.Array(ids)).
			OrderBy("created_at", "user_id"))
	if err != nil {
		return translate(err, "load", "task assignees")
	}
	for _, a := range assignees {
		if t := byID[a.TaskID]; t != nil {
			t.AssigneeIDs = append(t.AssigneeIDs, a.UserID)
		}
	}

	var tags []models.TaskTag
	err = r.db.Select(ctx, tableTaskTags, &tags,
		orm.Statement().Select("task_id", "tag_id").From(tableTaskTags).
			Where("task_id = ANY(?)", pq.Array(ids)).
			OrderBy("tag_id"))
	if err != nil {
		return translate(err, "load", "task tags")
	}
	for _, tt := range tags {
		if t := byID[tt.TaskID]; t != nil {
			t.TagIDs = append(t.TagIDs, tt.TagID)
		}
	}
	return nil
}

func (r *pgTasks) Create(ctx context.Context, t *models.Task) error {
	if err := r.repo().Insert(ctx, t); err != nil {
		return translate(err, "create", "task")
	}
	if err := r.SetAssignees(ctx, t.ID, t.AssigneeIDs); err != nil {
		return err
	}
	return r.SetTags(ctx, t.ID, t.TagIDs)
}

func (r *pgTasks) Update(ctx context.Context, t *models.Task) error {
	return translate(r.repo().Save(ctx, t, "id", taskUpdateColumns...), "update", "task")
}

// SetAssignees replaces the assignee set, keeping rows that already exist
// so their assignment time is preserved.
func (r *pgTasks) SetAssignees(ctx context.Context, taskID string, userIDs []string) error {
	repo := orm.NewRepository[models.TaskAssignee](r.db, tableTaskAssignees)

	keep := orm.And(taskIDColumn.Eq(taskID), orm.Not(userIDColumn.Any(userIDs)))
	if len(userIDs) == 0 {
		keep = taskIDColumn.Eq(taskID)
	}
	if _, err := repo.DeleteWhere(ctx, keep); err != nil {
		return translate(err, "assign", "task")
	}

	now := time.Now().UTC()
	for _, id := range userIDs {
		if _, err := repo.InsertIgnore(ctx, &models.TaskAssignee{TaskID: taskID, UserID: id, CreatedAt: now}, "task_id", "user_id"); err != nil {
			return translate(err, "assign", "task")
		}
	}
	return nil
}

func (r *pgTasks) SetTags(ctx context.Context, taskID string, tagIDs []string) error {
	repo := orm.NewRepository[models.TaskTag](r.db, tableTaskTags)

	if _, err := repo.DeleteWhere(ctx, taskIDColumn.Eq(taskID)); err != nil {
		return translate(err, "tag", "task")
	}
	for _, id := range tagIDs {
		if _, err := repo.InsertIgnore(ctx, &models.TaskTag{TaskID: taskID, TagID: id}, "task_id", "tag_id"); err != nil {
			return translate(err, "tag", "task")
		}
	}
	return nil
}

func (r *pgTasks) ParentOf(ctx context.Context, id string) (*string, error) {
	var parentID *string
	err := r.db.Get(ctx, tableTasks, &parentID,
		orm.Statement().Select("parent_id").From(tableTasks).Where(squirrel.Eq{"id": id}))
	return parentID, translate(err, "get", "task")
}

const subtreeCTE = `WITH RECURSIVE subtree AS (
	SELECT id FROM tasks WHERE id = ?
	UNION ALL
	SELECT t.id FROM tasks t JOIN subtree s ON t.parent_id = s.id
)
`

func (r *pgTasks) SoftDelete(ctx context.Context, id string, at time.Time) ([]string, error) {
	var ids []string
	err := r.db.Select(ctx, tableTasks, &ids, squirrel.Expr(subtreeCTE+
		`UPDATE tasks SET is_deleted = true, deleted_at = ?, updated_at = ?
WHERE id IN (SELECT id FROM subtree) AND is_deleted = false
RETURNING id`, id, at, at))
	return ids, translate(err, "delete", "task")
}

func (r *pgTasks) Restore(ctx context.Context, id string, deletedAt, at time.Time) ([]string, error) {
	var ids []string
	err := r.db.Select(ctx, tableTasks, &ids, squirrel.Expr(subtreeCTE+
		`UPDATE tasks SET is_deleted = false, deleted_at = NULL, updated_at = ?
WHERE id IN (SELECT id FROM subtree) AND is_deleted = true AND (id = ? OR deleted_at = ?)
RETURNING id`, id, at, id, deletedAt))
	return ids, translate(err, "restore", "task")
}

func (r *pgTasks) HardDelete(ctx context.Context, id string) error {
	n, err := r.repo().DeleteWhere(ctx, idColumn.Eq(id))
	if err != nil {
		return translate(err, "hard delete", "task")
	}
	if n == 0 {
		return translate(&orm.Error{Op: "hard delete", Table: tableTasks, Err: orm.ErrNotFound}, "hard delete", "task")
	}
	return nil
}

func (r *pgTasks) DueBetween(ctx context.Context, from, to time.Time) ([]models.Task, error) {
	tasks, err := r.repo().Query(ctx).
		Where(taskColumns.IsDeleted.IsFalse()).
		Where(taskColumns.Status.In(models.ActiveStatuses...)).
		Where(taskColumns.DueDate.Window(from, to)).
		OrderBy("due_date", "id").
		Find()
	if err != nil {
		return nil, translate(err, "list", "task")
	}
	return tasks, r.loadRelations(ctx, tasks)
}

func (r *pgTasks) RecurringCandidates(ctx context.Context, now time.Time) ([]models.Task, error) {
	tasks, err := r.repo().Query(ctx).
		Where(taskColumns.IsDeleted.IsFalse()).
		Where(taskColumns.IsRecurring.IsTrue()).
		Where(taskColumns.Status.Eq(models.StatusCompleted)).
		Where(taskColumns.RecurrencePattern.NotEq(models.RecurrenceNone)).
		Where(orm.Or(taskColumns.RecurrenceEndDate.IsNull(), taskColumns.RecurrenceEndDate.After(now))).
		OrderBy("due_date", "id").
		Find()
	if err != nil {
		return nil, translate(err, "list", "task")
	}
	return tasks, r.loadRelations(ctx, tasks)
}
