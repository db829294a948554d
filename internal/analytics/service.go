package analytics

import (
	"context"
	"time"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// dashboardHistory is how many days of daily rows the dashboard carries.
const dashboardHistory = 7

type Service struct {
	store  store.Store
	access *access.Resolver
	log    logger.Logger
	loc    *time.Location
}

func NewService(s store.Store, resolver *access.Resolver, log logger.Logger) *Service {
	if log == nil {
		log = logger.Jobs()
	}
	return &Service{store: s, access: resolver, log: log, loc: time.UTC}
}

// WithLocation sets the zone whose calendar days the statistics follow.
func (s *Service) WithLocation(loc *time.Location) *Service {
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) ownedTasks(ctx context.Context, userID string, now time.Time) ([]models.Task, error) {
	return s.store.Tasks().List(ctx, models.TaskScope{All: true}, models.TaskFilter{OwnerID: userID, Now: now})
}

// RunDailyStats upserts yesterday's row for every active user, counting
// the tasks they own or are assigned to.
func (s *Service) RunDailyStats(ctx context.Context, now time.Time) (int, error) {
	users, err := s.store.Users().List(ctx, store.UserFilter{ActiveOnly: true})
	if err != nil {
		return 0, err
	}

	day := StartOfDay(now, s.loc).AddDate(0, 0, -1)
	written := 0
	for _, u := range users {
		tasks, err := s.store.Tasks().List(ctx, models.TaskScope{UserID: u.ID}, models.TaskFilter{Now: now})
		if err != nil {
			s.log.Warn("daily stats failed", "user", u.ID, "error", err)
			continue
		}
		row := DailyFor(u.ID, tasks, day, s.loc)
		row.ID = models.NewID()
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := s.store.Stats().UpsertDaily(ctx, &row); err != nil {
			s.log.Warn("daily stats failed", "user", u.ID, "error", err)
			continue
		}
		written++
	}
	return written, nil
}

// RunTeamStats upserts today's row for every manager or admin with at
// least one direct report.
func (s *Service) RunTeamStats(ctx context.Context, now time.Time) (int, error) {
	leaders, err := s.store.Users().List(ctx, store.UserFilter{
		Roles:      []models.Role{models.RoleAdmin, models.RoleManager},
		ActiveOnly: true,
	})
	if err != nil {
		return 0, err
	}

	written := 0
	for _, leader := range leaders {
		team, err := s.store.Users().List(ctx, store.UserFilter{ManagerID: leader.ID})
		if err != nil {
			s.log.Warn("team stats failed", "manager", leader.ID, "error", err)
			continue
		}
		if len(team) == 0 {
			continue
		}
		tasks, err := s.teamTasks(ctx, team, now)
		if err != nil {
			s.log.Warn("team stats failed", "manager", leader.ID, "error", err)
			continue
		}

		row := TeamFor(leader.ID, len(team), tasks, now, s.loc)
		row.ID = models.NewID()
		row.CreatedAt = now
		row.UpdatedAt = now
		if err := s.store.Stats().UpsertTeam(ctx, &row); err != nil {
			s.log.Warn("team stats failed", "manager", leader.ID, "error", err)
			continue
		}
		written++
	}
	return written, nil
}

func (s *Service) teamTasks(ctx context.Context, team []models.User, now time.Time) ([]models.Task, error) {
	var all []models.Task
	for _, member := range team {
		tasks, err := s.ownedTasks(ctx, member.ID, now)
		if err != nil {
			return nil, err
		}
		all = append(all, tasks...)
	}
	return all, nil
}

type Dashboard struct {
	Total    int
	ByStatus map[models.TaskStatus]int
	Overdue  int
	DueToday int
	// Recent holds the actor's daily rows for the last week, oldest first.
	Recent []models.DailyTaskStats
}

// Dashboard summarises the tasks visible to actor.
func (s *Service) Dashboard(ctx context.Context, actor *models.User, now time.Time) (*Dashboard, error) {
	if err := s.access.Can(actor, access.OpViewUser, access.ForUser(actor)); err != nil {
		return nil, err
	}
	tasks, err := s.store.Tasks().List(ctx, s.access.TaskScope(actor), models.TaskFilter{Now: now})
	if err != nil {
		return nil, err
	}

	today := StartOfDay(now, s.loc)
	d := &Dashboard{Total: len(tasks), ByStatus: make(map[models.TaskStatus]int)}
	for i := range tasks {
		t := &tasks[i]
		d.ByStatus[t.Status]++
		if t.IsOverdue(now) {
			d.Overdue++
		}
		if !t.Status.IsTerminal() && within(t.DueDate, today, today.AddDate(0, 0, 1)) {
			d.DueToday++
		}
	}

	d.Recent, err = s.store.Stats().ListDaily(ctx, actor.ID, calendarDate(today).AddDate(0, 0, -dashboardHistory))
	if err != nil {
		return nil, err
	}
	return d, nil
}

type MemberSummary struct {
	User           models.User
	Total          int
	Completed      int
	InProgress     int
	Overdue        int
	CompletionRate float64
}

// TeamSummary reports per-member counts for actor's direct reports.
func (s *Service) TeamSummary(ctx context.Context, actor *models.User, now time.Time) ([]MemberSummary, error) {
	if err := s.access.Can(actor, access.OpListUsers, access.UserResource{}); err != nil {
		return nil, err
	}
	team, err := s.store.Users().List(ctx, store.UserFilter{ManagerID: actor.ID})
	if err != nil {
		return nil, err
	}
	if len(team) == 0 {
		return nil, taskflow.ErrNoTeamMembers.WithOp("team summary")
	}

	out := make([]MemberSummary, 0, len(team))
	for _, member := range team {
		tasks, err := s.ownedTasks(ctx, member.ID, now)
		if err != nil {
			return nil, err
		}
		sum := MemberSummary{User: member, Total: len(tasks)}
		for i := range tasks {
			switch tasks[i].Status {
			case models.StatusCompleted:
				sum.Completed++
			case models.StatusInProgress:
				sum.InProgress++
			}
			if tasks[i].IsOverdue(now) {
				sum.Overdue++
			}
		}
		sum.CompletionRate = models.Percent(sum.Completed, sum.Total)
		out = append(out, sum)
	}
	return out, nil
}
