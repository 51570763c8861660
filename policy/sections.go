package policy

import "fmt"

// Section keys. Nested sections are addressed through Node children, e.g.
// people -> attendance.
const (
	SectionDashboard            = "dashboard"
	SectionFinance              = "finance"
	SectionFinanceTransactions  = "transactions"
	SectionFinanceBudgets       = "budgets"
	SectionFinanceReports       = "reports"
	SectionPeople               = "people"
	SectionPeopleMembers        = "members"
	SectionPeopleAttendance     = "attendance"
	SectionAssets               = "assets"
	SectionAnnouncements        = "announcements"
	SectionBranches             = "branches"
	SectionUserManagement       = "user_management"
	SectionOrganizationSettings = "organization_settings"
)

// Node is one section in a visibility tree. Children is nil for leaves.
type Node struct {
	Visible  bool
	Children Visibility
}

// Visibility maps section keys to their visibility nodes. Every role's default
// map is total over the same section tree, so "widening" an override always
// targets an existing key.
type Visibility map[string]Node

// Clone returns a deep copy.
func (v Visibility) Clone() Visibility {
	if v == nil {
		return nil
	}
	out := make(Visibility, len(v))
	for key, node := range v {
		out[key] = Node{
			Visible:  node.Visible,
			Children: node.Children.Clone(),
		}
	}
	return out
}

// Superset reports whether every section visible in other is also visible in v.
func (v Visibility) Superset(other Visibility) bool {
	for key, theirs := range other {
		ours, ok := v[key]
		if theirs.Visible && !(ok && ours.Visible) {
			return false
		}
		if len(theirs.Children) > 0 && !ours.Children.Superset(theirs.Children) {
			return false
		}
	}
	return true
}

func financeChildren(transactions, budgets, reports bool) Visibility {
	return Visibility{
		SectionFinanceTransactions: {Visible: transactions},
		SectionFinanceBudgets:      {Visible: budgets},
		SectionFinanceReports:      {Visible: reports},
	}
}

func peopleChildren(members, attendance bool) Visibility {
	return Visibility{
		SectionPeopleMembers:    {Visible: members},
		SectionPeopleAttendance: {Visible: attendance},
	}
}

// defaultSections is the hand-maintained per-role visibility table. It is total:
// every role has an entry and every entry spans the full section tree. The
// finance_admin row is a deliberate non-monotonic carve-out (full finance access
// despite ranking below branch_admin, nothing else); the attendance rows are
// scoped the same way. Do not derive these from rank.
var defaultSections = map[Role]Visibility{
	RoleOwner: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: true, Children: financeChildren(true, true, true)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, true)},
		SectionAssets:               {Visible: true},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: true},
		SectionUserManagement:       {Visible: true},
		SectionOrganizationSettings: {Visible: true},
	},
	RoleAdmin: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: true, Children: financeChildren(true, true, true)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, true)},
		SectionAssets:               {Visible: true},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: true},
		SectionUserManagement:       {Visible: true},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleBranchAdmin: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: false, Children: financeChildren(false, false, false)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, true)},
		SectionAssets:               {Visible: true},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: true},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleFinanceAdmin: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: true, Children: financeChildren(true, true, true)},
		SectionPeople:               {Visible: false, Children: peopleChildren(false, false)},
		SectionAssets:               {Visible: true},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: false},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleAttendanceManager: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: false, Children: financeChildren(false, false, false)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, true)},
		SectionAssets:               {Visible: true},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: false},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleAttendanceRep: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: false, Children: financeChildren(false, false, false)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, true)},
		SectionAssets:               {Visible: false},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: false},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleWrite: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: false, Children: financeChildren(false, false, false)},
		SectionPeople:               {Visible: true, Children: peopleChildren(true, false)},
		SectionAssets:               {Visible: false},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: false},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
	RoleRead: {
		SectionDashboard:            {Visible: true},
		SectionFinance:              {Visible: false, Children: financeChildren(false, false, false)},
		SectionPeople:               {Visible: false, Children: peopleChildren(false, false)},
		SectionAssets:               {Visible: false},
		SectionAnnouncements:        {Visible: true},
		SectionBranches:             {Visible: false},
		SectionUserManagement:       {Visible: false},
		SectionOrganizationSettings: {Visible: false},
	},
}

// DefaultSections returns the role's default visibility tree as a fresh copy.
func DefaultSections(role Role) (Visibility, error) {
	table, ok := defaultSections[role]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return table.Clone(), nil
}

// ToggleIsLocked reports whether the top-level section is pinned for the role.
// Locked sections keep their role default no matter what an override says; the
// UI disables the control and this check enforces the same rule server-side.
func ToggleIsLocked(role Role, section string) bool {
	switch section {
	case SectionUserManagement:
		return role != RoleOwner
	case SectionOrganizationSettings:
		return true
	}
	return false
}
