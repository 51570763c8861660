package orgauth

import (
	"context"
	"fmt"

	"github.com/avetra/orgauth/policy"
)

// Memberships lists the signed-in identity's organization memberships from the
// record store. Which one becomes current is decided outside this core.
func (m *Machine) Memberships(ctx context.Context) ([]OrganizationMembership, error) {
	if m == nil || m.records == nil {
		return nil, ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	identityID := m.session.Identity.ID

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	memberships, err := m.records.MembershipsByIdentity(callCtx, identityID)
	if err != nil {
		m.metricInc(MetricTransportFailure)
		return nil, fmt.Errorf("%w: memberships: %v", ErrTransport, err)
	}
	return memberships, nil
}

// SelectMembership makes the given membership current. The machine validates
// only what it owns: the caller must be authenticated, the membership must
// belong to the signed-in identity, be active, and carry a known role.
func (m *Machine) SelectMembership(ctx context.Context, membership OrganizationMembership) error {
	if m == nil {
		return ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return ErrNotAuthenticated
	}
	if membership.IdentityID != m.session.Identity.ID {
		return ErrMembershipForeign
	}
	if !membership.IsActive {
		return ErrMembershipInactive
	}
	if !policy.Valid(membership.Role) {
		return fmt.Errorf("%w: %q", policy.ErrUnknownRole, membership.Role)
	}

	selected := membership
	selected.Override = membership.Override.Clone()
	m.membership = &selected

	m.emitAudit(ctx, auditEventMembershipUse, true, m.session.Identity.ID, nil, func() map[string]string {
		return map[string]string{
			"organization_id": membership.OrganizationID,
			"role":            string(membership.Role),
		}
	})
	return nil
}

// CurrentMembership returns the selected membership, or false.
func (m *Machine) CurrentMembership() (OrganizationMembership, bool) {
	if m == nil {
		return OrganizationMembership{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.membership == nil {
		return OrganizationMembership{}, false
	}
	return *m.membership, true
}

// Visibility computes the effective section visibility for the current
// membership: role defaults with the membership's override merged at the leaf.
func (m *Machine) Visibility() (policy.Visibility, error) {
	if m == nil {
		return nil, ErrMachineNotReady
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	if m.membership == nil {
		return nil, ErrNoMembership
	}
	return policy.EffectiveVisibility(m.membership.Role, m.membership.Override)
}

// HasCapability answers a named capability for the current membership. An
// explicit per-membership capability set takes precedence over role defaults.
func (m *Machine) HasCapability(name string) (bool, error) {
	if m == nil {
		return false, ErrMachineNotReady
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return false, ErrNotAuthenticated
	}
	if m.membership == nil {
		return false, ErrNoMembership
	}

	caps := m.membership.Capabilities
	if caps == nil {
		defaults, err := policy.DefaultCapabilities(m.membership.Role)
		if err != nil {
			return false, err
		}
		caps = &defaults
	}
	return caps.Has(name)
}
