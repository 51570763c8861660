package policy

import (
	"errors"
	"fmt"
)

// Role is one of the fixed ordered set of organization roles.
type Role string

const (
	// RoleOwner is the highest-ranked role.
	RoleOwner Role = "owner"
	// RoleAdmin administers everything except ownership transfer surfaces.
	RoleAdmin Role = "admin"
	// RoleBranchAdmin administers a single branch.
	RoleBranchAdmin Role = "branch_admin"
	// RoleFinanceAdmin is scoped to finance sections regardless of rank.
	RoleFinanceAdmin Role = "finance_admin"
	// RoleAttendanceManager manages attendance across branches.
	RoleAttendanceManager Role = "attendance_manager"
	// RoleAttendanceRep records attendance.
	RoleAttendanceRep Role = "attendance_rep"
	// RoleWrite is a generic write-capable member.
	RoleWrite Role = "write"
	// RoleRead is the lowest-ranked, read-only role.
	RoleRead Role = "read"
)

// ErrUnknownRole is returned for any role outside the fixed set. Callers must
// treat it as a hard failure, not as lowest privilege.
var ErrUnknownRole = errors.New("unknown role")

// roleRank is the total order underlying every "at least as privileged as"
// comparison. Higher is more privileged.
var roleRank = map[Role]int{
	RoleOwner:             8,
	RoleAdmin:             7,
	RoleBranchAdmin:       6,
	RoleFinanceAdmin:      5,
	RoleAttendanceManager: 4,
	RoleAttendanceRep:     3,
	RoleWrite:             2,
	RoleRead:              1,
}

// Roles returns the fixed role set ordered from highest to lowest rank.
func Roles() []Role {
	return []Role{
		RoleOwner,
		RoleAdmin,
		RoleBranchAdmin,
		RoleFinanceAdmin,
		RoleAttendanceManager,
		RoleAttendanceRep,
		RoleWrite,
		RoleRead,
	}
}

// Rank returns the role's position in the total order.
func Rank(r Role) (int, error) {
	rank, ok := roleRank[r]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownRole, r)
	}
	return rank, nil
}

// HasAtLeast reports whether role is at least as privileged as threshold.
func HasAtLeast(role, threshold Role) (bool, error) {
	r, err := Rank(role)
	if err != nil {
		return false, err
	}
	t, err := Rank(threshold)
	if err != nil {
		return false, err
	}
	return r >= t, nil
}

// Valid reports whether r is in the fixed role set.
func Valid(r Role) bool {
	_, ok := roleRank[r]
	return ok
}
