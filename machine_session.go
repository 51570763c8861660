package orgauth

import (
	"context"
	"fmt"
)

// SignOut ends the held session and returns the machine to StateAnonymous.
// Cleanup is fail-open: the local session clears unconditionally, even when the
// remote revocation fails, and calling SignOut twice in a row is safe.
func (m *Machine) SignOut(ctx context.Context) {
	if m == nil || m.gateway == nil {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	identityID := ""
	if m.session != nil {
		identityID = m.session.Identity.ID
	}

	callCtx, cancel := m.callCtx(ctx)
	remoteErr := m.gateway.SignOut(callCtx)
	cancel()

	m.dropSession(StateAnonymous, RejectNone)

	m.metricInc(MetricSignOut)
	m.emitAudit(ctx, auditEventSignOut, remoteErr == nil, identityID, remoteErr, nil)
}

// Resume recovers an existing session on process start. It is idempotent and
// has no side effects on failure, so callers may retry freely. A recovered
// session still has to pass the status check; a deactivated account ends in
// StateRejected with the session revoked.
func (m *Machine) Resume(ctx context.Context) (AuthState, error) {
	if m == nil || m.gateway == nil {
		return StateAnonymous, ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	sess, err := m.gateway.RefreshSession(callCtx)
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventSessionResume, false, "", err, nil)
		return m.state, fmt.Errorf("%w: refresh: %v", ErrTransport, err)
	}
	if sess == nil {
		return m.state, nil
	}

	status, err := m.oracle.CheckStatus(callCtx, StatusQuery{IdentityID: sess.Identity.ID})
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventSessionResume, false, sess.Identity.ID, err, nil)
		return m.state, err
	}
	if !status.Exists || !status.IsActive {
		m.revokeGrant(ctx)
		m.dropSession(StateRejected, RejectAccountInactive)
		m.metricInc(MetricSessionRevoked)
		m.emitAudit(ctx, auditEventSessionRevoked, false, sess.Identity.ID, ErrAccountInactive, func() map[string]string {
			return map[string]string{"trigger": "resume"}
		})
		return m.state, ErrAccountInactive
	}

	next := StateAuthenticatedActive
	if status.Record.IsFirstLogin {
		next = StateAuthenticatedFirstLogin
	}
	m.holdSession(sess, next)

	m.metricInc(MetricSessionResumed)
	m.emitAudit(ctx, auditEventSessionResume, true, sess.Identity.ID, nil, nil)
	return m.state, nil
}

// RecheckStatus re-validates the held session against a fresh account status.
// An account deactivated mid-session is caught here: the session is revoked
// and the machine lands in StateRejected. A no-op outside authenticated
// states.
func (m *Machine) RecheckStatus(ctx context.Context) error {
	if m == nil {
		return ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.state.Authenticated() {
		return nil
	}
	identityID := m.session.Identity.ID

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	status, err := m.oracle.CheckStatus(callCtx, StatusQuery{IdentityID: identityID})
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventStatusRecheck, false, identityID, err, nil)
		return err
	}
	if !status.Exists || !status.IsActive {
		m.revokeGrant(ctx)
		m.dropSession(StateRejected, RejectAccountInactive)
		m.metricInc(MetricSessionRevoked)
		m.emitAudit(ctx, auditEventSessionRevoked, false, identityID, ErrAccountInactive, func() map[string]string {
			return map[string]string{"trigger": "recheck"}
		})
		return ErrAccountInactive
	}

	m.emitAudit(ctx, auditEventStatusRecheck, true, identityID, nil, nil)
	return nil
}
