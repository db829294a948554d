// Package users manages accounts, credentials, roles and the manager
// tree that team visibility is derived from.
package users

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/eleven-am/taskflow/internal/access"
	"github.com/eleven-am/taskflow/internal/logger"
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

const MinPasswordLength = 8

type Service struct {
	store  store.Store
	access *access.Resolver
	log    logger.Logger
	now    func() time.Time
	cost   int
}

func NewService(s store.Store, resolver *access.Resolver, log logger.Logger) *Service {
	if log == nil {
		log = logger.Users()
	}
	return &Service{store: s, access: resolver, log: log, now: time.Now, cost: bcrypt.DefaultCost}
}

// WithClock replaces the time source.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// WithCost sets the bcrypt work factor. Tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	// Role defaults to user.
	Role models.Role
}

func (in *RegisterInput) normalize() {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.Role == "" {
		in.Role = models.RoleUser
	}
}

func (in RegisterInput) validate() error {
	var errs taskflow.ValidationErrors
	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		errs.Add("email", "must be a valid email address")
	}
	validatePassword(&errs, "password", in.Password, in.ConfirmPassword)
	if !in.Role.Valid() {
		errs.Add("role", "must be one of admin, manager, user")
	}
	return errs.Err()
}

func validatePassword(errs *taskflow.ValidationErrors, field, password, confirm string) {
	if len(password) < MinPasswordLength {
		errs.Add(field, "must be at least 8 characters")
	}
	if password != confirm {
		errs.Add("confirm_password", "passwords do not match")
	}
}

// Register creates an active account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u := &models.User{
		ID:                 models.NewID(),
		Email:              in.Email,
		FirstName:          in.FirstName,
		LastName:           in.LastName,
		PasswordHash:       string(hash),
		Role:               in.Role,
		IsActive:           true,
		EmailNotifications: true,
		PushNotifications:  true,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.store.Users().Create(ctx, u); err != nil {
		if taskflow.IsConflict(err) {
			return nil, taskflow.Conflict("register", "user", "email "+in.Email+" is already registered")
		}
		return nil, err
	}
	s.log.Info("user registered", "user", u.ID, "role", u.Role)
	return u, nil
}

// Authenticate checks credentials and stamps last_login_at. Unknown
// emails, wrong passwords and inactive accounts all fail the same way.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	denied := taskflow.PermissionDenied("authenticate", "invalid credentials")

	u, err := s.store.Users().GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if taskflow.IsNotFound(err) {
			return nil, denied
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, denied
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, denied
	}

	now := s.now().UTC()
	u.LastLoginAt = &now
	u.UpdatedAt = now
	if err := s.store.Users().Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) ChangePassword(ctx context.Context, actor *models.User, current, next, confirm string) error {
	u, err := s.store.Users().Get(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(current)); err != nil {
		return taskflow.PermissionDenied("change password", "current password is incorrect")
	}
	var errs taskflow.ValidationErrors
	validatePassword(&errs, "new_password", next, confirm)
	if err := errs.Err(); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	u.UpdatedAt = s.now().UTC()
	return s.store.Users().Update(ctx, u)
}

func (s *Service) Get(ctx context.Context, actor *models.User, id string) (*models.User, error) {
	u, err := s.store.Users().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.access.Can(actor, access.OpViewUser, access.ForUser(u)); err != nil {
		return nil, err
	}
	return u, nil
}

// List returns every user for admins and the manager plus their direct
// reports for managers.
func (s *Service) List(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := s.access.Can(actor, access.OpListUsers, access.UserResource{}); err != nil {
		return nil, err
	}
	if actor.IsAdmin() {
		return s.store.Users().List(ctx, store.UserFilter{})
	}

	team, err := s.store.Users().List(ctx, store.UserFilter{ManagerID: actor.ID})
	if err != nil {
		return nil, err
	}
	self, err := s.store.Users().Get(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	return append([]models.User{*self}, team...), nil
}

// SetRole changes a user's role. A user who still leads a team cannot be
// demoted to a role without one.
func (s *Service) SetRole(ctx context.Context, actor *models.User, userID string, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, taskflow.Invalid("set role", "role", "must be one of admin, manager, user")
	}

	var updated *models.User
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.access.Can(actor, access.OpChangeRole, access.ForUser(u)); err != nil {
			return err
		}
		if u.Role == role {
			updated = u
			return nil
		}
		if !role.CanLead() {
			team, err := tx.Users().List(ctx, store.UserFilter{ManagerID: u.ID})
			if err != nil {
				return err
			}
			if len(team) > 0 {
				return taskflow.Conflict("set role", "user", "user still manages a team")
			}
		}

		u.Role = role
		u.UpdatedAt = s.now().UTC()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("role changed", "user", userID, "role", role, "by", actor.ID)
	return updated, nil
}

// TeamMembers lists actor's direct reports.
func (s *Service) TeamMembers(ctx context.Context, actor *models.User) ([]models.User, error) {
	if err := s.access.Can(actor, access.OpListUsers, access.UserResource{}); err != nil {
		return nil, err
	}
	return s.store.Users().List(ctx, store.UserFilter{ManagerID: actor.ID})
}

// AssignToTeam makes actor the manager of userID.
func (s *Service) AssignToTeam(ctx context.Context, actor *models.User, userID string) (*models.User, error) {
	var updated *models.User
	err := s.store.WithinTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.access.Can(actor, access.OpManageTeam, access.ForUser(u)); err != nil {
			return err
		}
		if !actor.Role.CanLead() {
			return taskflow.PermissionDenied("assign to team", "role cannot lead a team")
		}
		if u.ReportsTo(actor.ID) {
			updated = u
			return nil
		}
		if err := models.CheckAcyclic(ctx, u.ID, actor.ID, tx.Users().ManagerOf); err != nil {
			if errors.Is(err, models.ErrCycle) {
				return taskflow.Invalid("assign to team", "manager_id", err.Error())
			}
			return err
		}

		managerID := actor.ID
		u.ManagerID = &managerID
		u.UpdatedAt = s.now().UTC()
		if err := tx.Users().Update(ctx, u); err != nil {
			return err
		}
		updated = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("team member added", "manager", actor.ID, "user", userID)
	return updated, nil
}

func (s *Service) RemoveFromTeam(ctx context.Context, actor *models.User, userID string) error {
	return s.store.WithinTx(ctx, func(tx store.Store) error {
		u, err := tx.Users().Get(ctx, userID)
		if err != nil {
			return err
		}
		if !u.ReportsTo(actor.ID) {
			return taskflow.NotFoundf("remove from team", "user", "user is not in your team")
		}
		if err := s.access.Can(actor, access.OpManageTeam, access.ForUser(u)); err != nil {
			return err
		}
		u.ManagerID = nil
		u.UpdatedAt = s.now().UTC()
		return tx.Users().Update(ctx, u)
	})
}
