package policy

import "fmt"

// Capability names accepted by [Capabilities.Has].
const (
	CapCreateUsers      = "create_users"
	CapManageUsers      = "manage_users"
	CapManageBranches   = "manage_branches"
	CapManageFinance    = "manage_finance"
	CapApproveExpenses  = "approve_expenses"
	CapManageAttendance = "manage_attendance"
	CapRecordAttendance = "record_attendance"
	CapExportReports    = "export_reports"
	CapEditOrganization = "edit_organization"
)

// ErrUnknownCapability is returned for a capability name outside the fixed set.
var ErrUnknownCapability = fmt.Errorf("unknown capability")

// Capabilities are the per-role action flags consumed by guards and forms.
type Capabilities struct {
	CanCreateUsers      bool `json:"can_create_users"`
	CanManageUsers      bool `json:"can_manage_users"`
	CanManageBranches   bool `json:"can_manage_branches"`
	CanManageFinance    bool `json:"can_manage_finance"`
	CanApproveExpenses  bool `json:"can_approve_expenses"`
	CanManageAttendance bool `json:"can_manage_attendance"`
	CanRecordAttendance bool `json:"can_record_attendance"`
	CanExportReports    bool `json:"can_export_reports"`
	CanEditOrganization bool `json:"can_edit_organization"`
}

// Has looks a capability up by name.
func (c Capabilities) Has(name string) (bool, error) {
	switch name {
	case CapCreateUsers:
		return c.CanCreateUsers, nil
	case CapManageUsers:
		return c.CanManageUsers, nil
	case CapManageBranches:
		return c.CanManageBranches, nil
	case CapManageFinance:
		return c.CanManageFinance, nil
	case CapApproveExpenses:
		return c.CanApproveExpenses, nil
	case CapManageAttendance:
		return c.CanManageAttendance, nil
	case CapRecordAttendance:
		return c.CanRecordAttendance, nil
	case CapExportReports:
		return c.CanExportReports, nil
	case CapEditOrganization:
		return c.CanEditOrganization, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
	}
}

// defaultCapabilities follows the same total-lookup contract as the visibility
// table: every valid role has an entry, and the finance/attendance rows are the
// same deliberate carve-outs.
var defaultCapabilities = map[Role]Capabilities{
	RoleOwner: {
		CanCreateUsers:      true,
		CanManageUsers:      true,
		CanManageBranches:   true,
		CanManageFinance:    true,
		CanApproveExpenses:  true,
		CanManageAttendance: true,
		CanRecordAttendance: true,
		CanExportReports:    true,
		CanEditOrganization: true,
	},
	RoleAdmin: {
		CanCreateUsers:      true,
		CanManageUsers:      true,
		CanManageBranches:   true,
		CanManageFinance:    true,
		CanApproveExpenses:  true,
		CanManageAttendance: true,
		CanRecordAttendance: true,
		CanExportReports:    true,
	},
	RoleBranchAdmin: {
		CanManageBranches:   true,
		CanManageAttendance: true,
		CanRecordAttendance: true,
		CanExportReports:    true,
	},
	RoleFinanceAdmin: {
		CanManageFinance:   true,
		CanApproveExpenses: true,
		CanExportReports:   true,
	},
	RoleAttendanceManager: {
		CanManageAttendance: true,
		CanRecordAttendance: true,
		CanExportReports:    true,
	},
	RoleAttendanceRep: {
		CanRecordAttendance: true,
	},
	RoleWrite: {},
	RoleRead:  {},
}

// DefaultCapabilities returns the role's capability flags.
func DefaultCapabilities(role Role) (Capabilities, error) {
	caps, ok := defaultCapabilities[role]
	if !ok {
		return Capabilities{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return caps, nil
}
