package memstore

import (
	"context"
	"sort"
	"strings"

	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/internal/store"
)

type users struct{ s *Store }

func (r *users) Get(ctx context.Context, id string) (*models.User, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, notFound("get", "user")
	}
	return &u, nil
}

func (r *users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	defer r.s.lock()()
	for _, u := range r.s.st.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, notFound("get", "user")
}

func (r *users) Create(ctx context.Context, u *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[u.ID]; ok {
		return duplicate("create", "user")
	}
	if err := r.check("create", u); err != nil {
		return err
	}
	r.s.st.users[u.ID] = *u
	return nil
}

func (r *users) Update(ctx context.Context, u *models.User) error {
	defer r.s.lock()()
	if _, ok := r.s.st.users[u.ID]; !ok {
		return notFound("update", "user")
	}
	if err := r.check("update", u); err != nil {
		return err
	}
	r.s.st.users[u.ID] = *u
	return nil
}

func (r *users) check(op string, u *models.User) error {
	for id, other := range r.s.st.users {
		if id != u.ID && strings.EqualFold(other.Email, u.Email) {
			return duplicate(op, "user")
		}
	}
	if u.ManagerID != nil {
		if _, ok := r.s.st.users[*u.ManagerID]; !ok {
			return missingRef(op, "user", "manager_id")
		}
	}
	return nil
}

func (r *users) List(ctx context.Context, f store.UserFilter) ([]models.User, error) {
	defer r.s.lock()()
	ids := toSet(f.IDs)
	out := make([]models.User, 0)
	for _, u := range r.s.st.users {
		if f.IDs != nil && !ids[u.ID] {
			continue
		}
		if f.ManagerID != "" && !u.ReportsTo(f.ManagerID) {
			continue
		}
		if len(f.Roles) > 0 && !hasRole(f.Roles, u.Role) {
			continue
		}
		if f.ActiveOnly && !u.IsActive {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.LastName != b.LastName {
			return a.LastName < b.LastName
		}
		if a.FirstName != b.FirstName {
			return a.FirstName < b.FirstName
		}
		return a.Email < b.Email
	})
	return out, nil
}

func (r *users) ManagerOf(ctx context.Context, id string) (*string, error) {
	defer r.s.lock()()
	u, ok := r.s.st.users[id]
	if !ok {
		return nil, notFound("get", "user")
	}
	return u.ManagerID, nil
}

func (r *users) FindByMention(ctx context.Context, names []string) ([]models.User, error) {
	if len(names) == 0 {
		return nil, nil
	}
	defer r.s.lock()()
	out := make([]models.User, 0)
	for _, u := range r.s.st.users {
		if !u.IsActive {
			continue
		}
		for _, name := range names {
			if u.MatchesMention(name) {
				out = append(out, u)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func hasRole(roles []models.Role, r models.Role) bool {
	for _, role := range roles {
		if role == r {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
