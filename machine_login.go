package orgauth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// SignInResult is returned by [Machine.SignInWithPassword].
type SignInResult struct {
	State   AuthState
	Session *Session
	Reason  RejectReason
}

// SignInWithPassword runs the password sign-in transition. A wrong password is
// terminal for the attempt and leaves the state unchanged; a deactivated
// account force-revokes the just-granted session before anything observes it.
// On full success the one-time-code quota resets and last_login is stamped.
func (m *Machine) SignInWithPassword(ctx context.Context, email, password string) (SignInResult, error) {
	if m == nil || m.gateway == nil {
		return SignInResult{}, ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	sess, err := m.gateway.SignInWithPassword(callCtx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			m.metricInc(MetricSignInInvalidCredentials)
			m.emitAudit(ctx, auditEventSignIn, false, "", ErrInvalidCredentials, func() map[string]string {
				return map[string]string{"email": email, "reason": "invalid_credentials"}
			})
			return SignInResult{State: m.state, Reason: RejectInvalidCredentials}, ErrInvalidCredentials
		}
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventSignIn, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "reason": "gateway_failure"}
		})
		return SignInResult{State: m.state}, fmt.Errorf("%w: sign-in: %v", ErrTransport, err)
	}

	status, err := m.oracle.CheckStatus(callCtx, StatusQuery{IdentityID: sess.Identity.ID})
	if err != nil {
		// Fail closed on grant: without a status verdict the session is not kept.
		m.revokeGrant(ctx)
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventSignIn, false, sess.Identity.ID, err, func() map[string]string {
			return map[string]string{"reason": "status_check_failed"}
		})
		return SignInResult{State: m.state}, err
	}
	if !status.Exists {
		m.revokeGrant(ctx)
		m.emitAudit(ctx, auditEventSignIn, false, sess.Identity.ID, ErrNoSuchAccount, nil)
		return SignInResult{State: m.state, Reason: RejectNoSuchAccount}, ErrNoSuchAccount
	}
	if !status.IsActive {
		m.revokeGrant(ctx)
		m.metricInc(MetricSignInInactive)
		m.dropSession(StateRejected, RejectAccountInactive)
		m.emitAudit(ctx, auditEventSignIn, false, sess.Identity.ID, ErrAccountInactive, nil)
		return SignInResult{State: m.state, Reason: RejectAccountInactive}, ErrAccountInactive
	}

	if status.Record.IsFirstLogin {
		// Session is held but full access is withheld until the password change;
		// quota reset and last_login wait for that completion.
		m.holdSession(sess, StateAuthenticatedFirstLogin)
		m.metricInc(MetricSignInFirstLogin)
		m.emitAudit(ctx, auditEventSignIn, true, sess.Identity.ID, nil, func() map[string]string {
			return map[string]string{"first_login": "true"}
		})
		return SignInResult{State: m.state, Session: m.sessionCopyLocked()}, nil
	}

	if err := m.completeFullLogin(callCtx, sess.Identity.ID, email); err != nil {
		m.revokeGrant(ctx)
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventSignIn, false, sess.Identity.ID, err, func() map[string]string {
			return map[string]string{"reason": "login_bookkeeping_failed"}
		})
		return SignInResult{State: m.state}, err
	}

	m.holdSession(sess, StateAuthenticatedActive)
	m.metricInc(MetricSignInSuccess)
	m.emitAudit(ctx, auditEventSignIn, true, sess.Identity.ID, nil, nil)
	return SignInResult{State: m.state, Session: m.sessionCopyLocked()}, nil
}

// completeFullLogin performs the bookkeeping of a successful full login: the
// code quota clears and last_login is stamped. Not run on OTC verification
// alone; that asymmetry is deliberate.
func (m *Machine) completeFullLogin(ctx context.Context, identityID, email string) error {
	if m.limiter != nil {
		if err := m.limiter.Reset(ctx, email); err != nil {
			return fmt.Errorf("%w: quota reset: %v", ErrTransport, err)
		}
	}
	now := time.Now()
	zero := 0
	patch := AccountPatch{
		OtpRequestsCount: &zero,
		LastLogin:        &now,
	}
	if err := m.records.UpdateAccount(ctx, identityID, patch); err != nil {
		return fmt.Errorf("%w: login stamp: %v", ErrTransport, err)
	}
	return nil
}

// revokeGrant discards a session that must not be kept. Cleanup is fail-open:
// a failing remote sign-out still clears everything local.
func (m *Machine) revokeGrant(ctx context.Context) {
	callCtx, cancel := m.callCtx(ctx)
	defer cancel()
	_ = m.gateway.SignOut(callCtx)
}

// sessionCopyLocked returns a copy of the held session. Callers hold m.mu.
func (m *Machine) sessionCopyLocked() *Session {
	if m.session == nil {
		return nil
	}
	copied := *m.session
	return &copied
}
