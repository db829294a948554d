// Package access decides who may do what to tasks and users.
package access

import (
	"github.com/eleven-am/taskflow/internal/models"
	"github.com/eleven-am/taskflow/pkg/taskflow"
)

// Operation is an action checked by the Resolver.
type Operation string

const (
	OpRead         Operation = "read"
	OpUpdate       Operation = "update"
	OpUpdateStatus Operation = "update status"
	OpDelete       Operation = "delete"
	OpRestore      Operation = "restore"
	OpHardDelete   Operation = "hard delete"
	OpComment      Operation = "comment"
	OpListUsers    Operation = "list users"
	OpViewUser     Operation = "view user"
	OpManageTeam   Operation = "manage team"
	OpChangeRole   Operation = "change role"
)

// Resource is what an operation acts on: a TaskResource or a UserResource.
type Resource interface {
	resource()
}

// TaskResource carries the task facts the policies need.
type TaskResource struct {
	OwnerID        string
	OwnerManagerID *string
	AssigneeIDs    []string
	IsDeleted      bool
}

func (TaskResource) resource() {}

// ForTask builds a TaskResource from a loaded task and the manager of its owner.
func ForTask(t *models.Task, ownerManagerID *string) TaskResource {
	return TaskResource{
		OwnerID:        t.OwnerID,
		OwnerManagerID: ownerManagerID,
		AssigneeIDs:    t.AssigneeIDs,
		IsDeleted:      t.IsDeleted,
	}
}

func (r TaskResource) assigned(userID string) bool {
	for _, id := range r.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// UserResource is a user profile. A zero value stands for "the user list".
type UserResource struct {
	ID        string
	ManagerID *string
}

func (UserResource) resource() {}

// ForUser builds a UserResource from a loaded user.
func ForUser(u *models.User) UserResource {
	return UserResource{ID: u.ID, ManagerID: u.ManagerID}
}

// policy is what one role may do beyond its own tasks and profile.
type policy struct {
	everything bool
	teamTasks  bool
	listUsers  bool
	viewTeam   bool
	manageTeam bool
}

var policies = map[models.Role]policy{
	models.RoleAdmin:   {everything: true, teamTasks: true, listUsers: true, viewTeam: true, manageTeam: true},
	models.RoleManager: {teamTasks: true, listUsers: true, viewTeam: true, manageTeam: true},
	models.RoleUser:    {},
}

// assigneeOps are allowed to an assignee who has no other claim on the task.
var assigneeOps = map[Operation]bool{
	OpRead:         true,
	OpUpdateStatus: true,
	OpComment:      true,
}

// Resolver evaluates every permission check.
type Resolver struct {
	policies map[models.Role]policy
}

func NewResolver() *Resolver {
	return &Resolver{policies: policies}
}

// Can returns nil when actor may perform op on res, or a PermissionDenied
// error naming the operation.
func (r *Resolver) Can(actor *models.User, op Operation, res Resource) error {
	if actor == nil || !actor.IsActive {
		return taskflow.PermissionDenied(string(op), "inactive or unknown user")
	}
	p, ok := r.policies[actor.Role]
	if !ok {
		return taskflow.PermissionDenied(string(op), "unknown role "+string(actor.Role))
	}
	if p.everything {
		return nil
	}

	switch res := res.(type) {
	case TaskResource:
		return r.canTask(actor, p, op, res)
	case UserResource:
		return r.canUser(actor, p, op, res)
	}
	return taskflow.PermissionDenied(string(op), "unsupported resource")
}

func (r *Resolver) canTask(actor *models.User, p policy, op Operation, res TaskResource) error {
	owner := res.OwnerID == actor.ID

	switch op {
	case OpRestore, OpHardDelete:
		if owner {
			return nil
		}
		return taskflow.PermissionDenied(string(op), "only the owner may "+string(op)+" a task")
	case OpRead, OpUpdate, OpUpdateStatus, OpDelete, OpComment:
	default:
		return taskflow.PermissionDenied(string(op), "not a task operation")
	}

	team := p.teamTasks && res.OwnerManagerID != nil && *res.OwnerManagerID == actor.ID
	if owner || team {
		return nil
	}
	if res.assigned(actor.ID) && assigneeOps[op] {
		return nil
	}
	return taskflow.PermissionDenied(string(op), "no access to this task")
}

func (r *Resolver) canUser(actor *models.User, p policy, op Operation, res UserResource) error {
	self := res.ID != "" && res.ID == actor.ID
	inTeam := res.ManagerID != nil && *res.ManagerID == actor.ID

	switch op {
	case OpListUsers:
		if p.listUsers {
			return nil
		}
	case OpViewUser:
		if self || (p.viewTeam && inTeam) {
			return nil
		}
	case OpManageTeam:
		if p.manageTeam && !self {
			return nil
		}
	case OpChangeRole:
		// admins only, handled by the everything policy
	default:
		return taskflow.PermissionDenied(string(op), "not a user operation")
	}
	return taskflow.PermissionDenied(string(op), "not permitted for role "+string(actor.Role))
}

// TaskScope returns the listing restriction for actor.
func (r *Resolver) TaskScope(actor *models.User) models.TaskScope {
	p := r.policies[actor.Role]
	if p.everything {
		return models.TaskScope{All: true}
	}
	scope := models.TaskScope{UserID: actor.ID}
	if p.teamTasks {
		scope.TeamOf = actor.ID
	}
	return scope
}

// StatusOnly reports whether actor's only write on the task is a status change.
func (r *Resolver) StatusOnly(actor *models.User, res TaskResource) bool {
	return r.Can(actor, OpUpdate, res) != nil && r.Can(actor, OpUpdateStatus, res) == nil
}
