// Package access implements the role and permission model of the back office
// and the farm scoping rules applied to every farm-bound query.
package access

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"
)

// ErrForbidden is returned when a principal lacks a permission or farm.
var ErrForbidden = errors.New("forbidden")

// Role is the single role held by a user.
type Role string

const (
	RoleSuperAdmin Role = "SuperAdmin"
	RoleManager    Role = "Manager"
	RoleSupervisor Role = "Supervisor"
	RoleOperator   Role = "Operator"
)

// Roles lists the known roles.
var Roles = []Role{RoleSuperAdmin, RoleManager, RoleSupervisor, RoleOperator}

// ParseRole validates a role name.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Action and Resource compose a Permission.
type (
	Action   string
	Resource string
)

const (
	Read   Action = "read"
	Create Action = "create"
	Update Action = "update"
	Delete Action = "delete"
)

const (
	Farm      Resource = "farm"
	Coop      Resource = "coop"
	Feed      Resource = "feed"
	Supply    Resource = "supply"
	Livestock Resource = "livestock"
	Purchase  Resource = "purchase"
	Mutation  Resource = "mutation"
	Depletion Resource = "depletion"
	Sale      Resource = "sale"
	Recording Resource = "recording"
	Stock     Resource = "stock"
	User      Resource = "user"
	Report    Resource = "report"
)

var (
	allActions   = []Action{Read, Create, Update, Delete}
	allResources = []Resource{Farm, Coop, Feed, Supply, Livestock, Purchase, Mutation, Depletion, Sale, Recording, Stock, User, Report}
)

// Permission is an "<action> <resource>" pair such as "read farm".
type Permission string

// Perm builds a permission.
func Perm(a Action, r Resource) Permission {
	return Permission(string(a) + " " + string(r))
}

var rolePermissions = buildRolePermissions()

func buildRolePermissions() map[Role]map[Permission]struct{} {
	grant := func(set map[Permission]struct{}, actions []Action, resources ...Resource) {
		for _, r := range resources {
			for _, a := range actions {
				set[Perm(a, r)] = struct{}{}
			}
		}
	}

	super := map[Permission]struct{}{}
	grant(super, allActions, allResources...)

	manager := map[Permission]struct{}{}
	grant(manager, allActions, allResources...)
	delete(manager, Perm(Delete, User))

	supervisor := map[Permission]struct{}{}
	grant(supervisor, []Action{Read}, allResources...)
	delete(supervisor, Perm(Read, User))
	grant(supervisor, []Action{Create, Update}, Mutation, Depletion, Recording, Sale)

	operator := map[Permission]struct{}{}
	grant(operator, []Action{Read}, Farm, Coop, Feed, Supply, Livestock, Stock, Depletion, Recording, Report)
	grant(operator, []Action{Create}, Depletion, Recording)

	return map[Role]map[Permission]struct{}{
		RoleSuperAdmin: super,
		RoleManager:    manager,
		RoleSupervisor: supervisor,
		RoleOperator:   operator,
	}
}

// Permissions returns the sorted permissions of a role.
func Permissions(r Role) []Permission {
	out := make([]Permission, 0, len(rolePermissions[r]))
	for p := range rolePermissions[r] {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

// Principal is the authenticated actor of a request.
type Principal struct {
	UserID  uint
	Name    string
	Role    Role
	FarmIDs []uint
}

// System is the principal used by jobs and seeders.
func System(userID uint) Principal {
	return Principal{UserID: userID, Name: "system", Role: RoleSuperAdmin}
}

// Can reports whether the principal's role grants p.
func (p Principal) Can(perm Permission) bool {
	_, ok := rolePermissions[p.Role][perm]
	return ok
}

// Require returns ErrForbidden when the permission is missing.
func (p Principal) Require(perm Permission) error {
	if !p.Can(perm) {
		return fmt.Errorf("%w: %s requires %q", ErrForbidden, p.Role, perm)
	}
	return nil
}

// AllFarms reports whether the principal sees every farm.
func (p Principal) AllFarms() bool {
	return p.Role == RoleSuperAdmin || p.Role == RoleManager
}

// CanAccessFarm reports whether rows of the farm are visible to the principal.
func (p Principal) CanAccessFarm(farmID uint) bool {
	return p.AllFarms() || slices.Contains(p.FarmIDs, farmID)
}

// RequireFarm returns ErrForbidden when the farm is out of the principal's scope.
func (p Principal) RequireFarm(farmID uint) error {
	if !p.CanAccessFarm(farmID) {
		return fmt.Errorf("%w: farm %d is not assigned to user %d", ErrForbidden, farmID, p.UserID)
	}
	return nil
}

// ScopeKey identifies the row scope of the principal, for caching counts.
func (p Principal) ScopeKey() string {
	if p.AllFarms() {
		return "all"
	}
	ids := slices.Clone(p.FarmIDs)
	slices.Sort(ids)
	return fmt.Sprint(ids)
}

// ScopeFarms restricts db to rows where one of the columns holds a farm of the
// principal. Several columns are OR-ed, for rows that move between farms.
func ScopeFarms(db *gorm.DB, p Principal, columns ...string) *gorm.DB {
	if p.AllFarms() || len(columns) == 0 {
		return db
	}
	if len(p.FarmIDs) == 0 {
		return db.Where("1 = 0")
	}
	if len(columns) == 1 {
		return db.Where(columns[0]+" IN ?", p.FarmIDs)
	}
	clauses := make([]string, 0, len(columns))
	args := make([]any, 0, len(columns))
	for _, c := range columns {
		clauses = append(clauses, c+" IN ?")
		args = append(args, p.FarmIDs)
	}
	return db.Where("("+strings.Join(clauses, " OR ")+")", args...)
}
