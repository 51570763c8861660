package policy

import (
	"errors"
	"testing"
)

func TestDefaultCapabilitiesPerRole(t *testing.T) {
	cases := []struct {
		role Role
		name string
		want bool
	}{
		{RoleOwner, CapEditOrganization, true},
		{RoleAdmin, CapEditOrganization, false},
		{RoleAdmin, CapManageUsers, true},
		{RoleBranchAdmin, CapManageBranches, true},
		{RoleBranchAdmin, CapManageFinance, false},
		{RoleFinanceAdmin, CapManageFinance, true},
		{RoleFinanceAdmin, CapApproveExpenses, true},
		{RoleFinanceAdmin, CapManageAttendance, false},
		{RoleAttendanceManager, CapManageAttendance, true},
		{RoleAttendanceManager, CapManageFinance, false},
		{RoleAttendanceRep, CapRecordAttendance, true},
		{RoleAttendanceRep, CapManageAttendance, false},
		{RoleWrite, CapRecordAttendance, false},
		{RoleRead, CapExportReports, false},
	}

	for _, tc := range cases {
		caps, err := DefaultCapabilities(tc.role)
		if err != nil {
			t.Fatalf("DefaultCapabilities(%s) failed: %v", tc.role, err)
		}
		got, err := caps.Has(tc.name)
		if err != nil {
			t.Fatalf("Has(%q) failed: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s has %s = %v, want %v", tc.role, tc.name, got, tc.want)
		}
	}
}

func TestDefaultCapabilitiesUnknownRole(t *testing.T) {
	if _, err := DefaultCapabilities(Role("nope")); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("err = %v, want ErrUnknownRole", err)
	}
}

func TestHasUnknownCapability(t *testing.T) {
	caps, err := DefaultCapabilities(RoleOwner)
	if err != nil {
		t.Fatalf("DefaultCapabilities failed: %v", err)
	}
	if _, err := caps.Has("fly"); !errors.Is(err, ErrUnknownCapability) {
		t.Fatalf("err = %v, want ErrUnknownCapability", err)
	}
}

func TestEveryRoleHasACapabilityRow(t *testing.T) {
	for _, role := range Roles() {
		if _, err := DefaultCapabilities(role); err != nil {
			t.Errorf("DefaultCapabilities(%s) failed: %v", role, err)
		}
		if _, err := DefaultSections(role); err != nil {
			t.Errorf("DefaultSections(%s) failed: %v", role, err)
		}
	}
}
