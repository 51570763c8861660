package orgauth

import (
	"context"
	"fmt"
)

// UpdatePassword runs the password-update transition for the held session.
//
// PasswordFirstTimeLogin is only legal from StateAuthenticatedFirstLogin; on
// success it clears the first-login flag, marks the password updated, resets
// the code quota, and promotes the machine to StateAuthenticatedActive.
// PasswordReset is the plain change from StateAuthenticatedActive with no
// bookkeeping. Either way the account status is re-checked after the gateway
// call: the gateway update may succeed for an account that was deactivated
// mid-session, and that session must not survive the discovery.
//
// Gateway failures are surfaced verbatim; the signed-in user already knows
// their own account exists, so there is nothing to hide.
func (m *Machine) UpdatePassword(ctx context.Context, newPassword string, kind UpdatePasswordKind) error {
	if m == nil || m.gateway == nil {
		return ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch kind {
	case PasswordFirstTimeLogin:
		if m.state != StateAuthenticatedFirstLogin {
			return ErrFirstLoginOnly
		}
	case PasswordReset:
		if m.state != StateAuthenticatedActive {
			if m.state == StateAuthenticatedFirstLogin {
				return ErrPasswordChangeRequired
			}
			return ErrNotAuthenticated
		}
	default:
		return fmt.Errorf("unknown password update kind %d", kind)
	}

	identityID := m.session.Identity.ID
	email := m.session.Identity.Email

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	if err := m.gateway.UpdatePassword(callCtx, newPassword); err != nil {
		m.metricInc(MetricPasswordUpdateFailure)
		m.emitAudit(ctx, auditEventPasswordUpdate, false, identityID, err, func() map[string]string {
			return map[string]string{"kind": passwordKindName(kind)}
		})
		// State unchanged: a failed first-login change stays in first-login.
		return err
	}

	status, err := m.oracle.CheckStatus(callCtx, StatusQuery{IdentityID: identityID})
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventPasswordUpdate, false, identityID, err, func() map[string]string {
			return map[string]string{"kind": passwordKindName(kind), "reason": "status_check_failed"}
		})
		return err
	}
	if !status.Exists || !status.IsActive {
		m.revokeGrant(ctx)
		m.dropSession(StateRejected, RejectAccountInactive)
		m.metricInc(MetricSessionRevoked)
		m.emitAudit(ctx, auditEventSessionRevoked, false, identityID, ErrAccountInactive, func() map[string]string {
			return map[string]string{"trigger": "password_update"}
		})
		return ErrAccountInactive
	}

	if kind == PasswordFirstTimeLogin {
		if err := m.completeFirstLogin(callCtx, identityID, email); err != nil {
			m.metricInc(MetricTransportFailure)
			m.emitAudit(ctx, auditEventPasswordUpdate, false, identityID, err, func() map[string]string {
				return map[string]string{"kind": passwordKindName(kind), "reason": "bookkeeping_failed"}
			})
			return err
		}
		m.state = StateAuthenticatedActive
	}

	m.metricInc(MetricPasswordUpdateSuccess)
	m.emitAudit(ctx, auditEventPasswordUpdate, true, identityID, nil, func() map[string]string {
		return map[string]string{"kind": passwordKindName(kind)}
	})
	return nil
}

// completeFirstLogin persists the first-login completion: the flag clears, the
// password is marked updated, and the code quota resets.
func (m *Machine) completeFirstLogin(ctx context.Context, identityID, email string) error {
	if m.limiter != nil {
		if err := m.limiter.Reset(ctx, email); err != nil {
			return fmt.Errorf("%w: quota reset: %v", ErrTransport, err)
		}
	}
	cleared := false
	updated := true
	zero := 0
	patch := AccountPatch{
		IsFirstLogin:     &cleared,
		PasswordUpdated:  &updated,
		OtpRequestsCount: &zero,
	}
	if err := m.records.UpdateAccount(ctx, identityID, patch); err != nil {
		return fmt.Errorf("%w: first-login stamp: %v", ErrTransport, err)
	}
	return nil
}

func passwordKindName(kind UpdatePasswordKind) string {
	switch kind {
	case PasswordFirstTimeLogin:
		return "first_time_login"
	case PasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}
