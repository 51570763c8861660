package orgauth

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// otcGenericMessage is shown for every code-request outcome that could
// disclose whether an address has an account.
const otcGenericMessage = "If the address belongs to an account, a code has been sent."

// otcFailedMessage is the single message for every verification failure; wrong
// code, expired code, and unknown email are indistinguishable to the caller.
const otcFailedMessage = "The code could not be verified."

// RequestCode runs the one-time-code request transition. The account must
// exist and be active before the delivery endpoint is ever invoked; the quota
// is consumed atomically so concurrent resends cannot exceed it. On acceptance
// the machine moves to StateAwaitingOtc; a quota rejection is not a state
// change, since the user may retry after the cooldown. A machine holding a
// session rejects the request with ErrAlreadyAuthenticated.
//
// The typed error carries the real reason; Message in the result is always the
// generic wording and safe to display.
func (m *Machine) RequestCode(ctx context.Context, email string) (OtcRequestResult, error) {
	if m == nil || m.sender == nil {
		return OtcRequestResult{}, ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Code requests start a recovery, never run alongside a held session.
	// Resend from the awaiting state is the one legitimate re-entry.
	switch m.state {
	case StateAnonymous, StateAwaitingOtc, StateRejected:
	default:
		return OtcRequestResult{}, ErrAlreadyAuthenticated
	}

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	status, err := m.oracle.CheckStatus(callCtx, StatusQuery{Email: email})
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventCodeRequest, false, "", err, func() map[string]string {
			return map[string]string{"email": email, "reason": "status_check_failed"}
		})
		return OtcRequestResult{Message: otcGenericMessage}, err
	}
	if !status.Exists {
		m.metricInc(MetricCodeRejected)
		m.emitAudit(ctx, auditEventCodeRequest, false, "", ErrNoSuchAccount, func() map[string]string {
			return map[string]string{"email": email}
		})
		return OtcRequestResult{Message: otcGenericMessage}, ErrNoSuchAccount
	}
	if !status.IsActive {
		m.metricInc(MetricCodeRejected)
		m.emitAudit(ctx, auditEventCodeRequest, false, status.Record.IdentityID, ErrAccountInactive, nil)
		return OtcRequestResult{Message: otcGenericMessage}, ErrAccountInactive
	}

	quota, err := m.limiter.Take(callCtx, email)
	if err != nil {
		if errors.Is(err, errOtcRateLimited) {
			m.metricInc(MetricCodeRateLimited)
			m.recordQuota(callCtx, status.Record.IdentityID, quota.Count)
			m.emitAudit(ctx, auditEventRateLimited, false, status.Record.IdentityID, ErrRateLimited, func() map[string]string {
				return map[string]string{"scope": "code_request", "cooldown_seconds": fmt.Sprint(quota.CooldownSeconds)}
			})
			return OtcRequestResult{
				Message:           otcGenericMessage,
				CooldownSeconds:   quota.CooldownSeconds,
				RemainingRequests: 0,
			}, ErrRateLimited
		}
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventCodeRequest, false, status.Record.IdentityID, err, nil)
		return OtcRequestResult{Message: otcGenericMessage}, fmt.Errorf("%w: quota: %v", ErrTransport, err)
	}

	resp, err := m.sender.RequestCode(callCtx, email)
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventCodeRequest, false, status.Record.IdentityID, err, func() map[string]string {
			return map[string]string{"reason": "sender_failure"}
		})
		return OtcRequestResult{Message: otcGenericMessage}, fmt.Errorf("%w: code request: %v", ErrTransport, err)
	}
	if !resp.Success {
		m.metricInc(MetricCodeRejected)
		m.emitAudit(ctx, auditEventCodeRequest, false, status.Record.IdentityID, ErrCodeInvalid, func() map[string]string {
			return map[string]string{"reason": "endpoint_refused"}
		})
		return OtcRequestResult{Message: otcGenericMessage}, fmt.Errorf("%w: code request refused", ErrTransport)
	}

	m.recordQuota(callCtx, status.Record.IdentityID, quota.Count)

	m.pendingEmail = email
	m.state = StateAwaitingOtc
	m.rejectReason = RejectNone

	m.metricInc(MetricCodeRequested)
	m.emitAudit(ctx, auditEventCodeRequest, true, status.Record.IdentityID, nil, func() map[string]string {
		return map[string]string{"remaining": fmt.Sprint(quota.Remaining)}
	})

	return OtcRequestResult{
		Success:           true,
		Message:           otcGenericMessage,
		RemainingRequests: quota.Remaining,
	}, nil
}

// recordQuota mirrors the authoritative Redis counter into the account row for
// UI feedback. Best effort; the limiter remains the enforcement point. The
// mirror counts requests consumed, so over-quota attempts clamp at the ceiling.
func (m *Machine) recordQuota(ctx context.Context, identityID string, count int) {
	if identityID == "" {
		return
	}
	if count > m.config.Otc.Quota {
		count = m.config.Otc.Quota
	}
	now := time.Now()
	_ = m.records.UpdateAccount(ctx, identityID, AccountPatch{
		OtpRequestsCount: &count,
		LastOtpRequest:   &now,
	})
}

// VerifyCode runs the code-verification transition. Verification and session
// issuance are atomic from the machine's point of view: a successful response
// already carries the session. On failure the state remains StateAwaitingOtc;
// the caller decides between retry and falling back to anonymous. The quota
// counter is left untouched either way — only a full password login clears it.
func (m *Machine) VerifyCode(ctx context.Context, code string) (OtcVerifyResult, error) {
	if m == nil || m.sender == nil {
		return OtcVerifyResult{}, ErrMachineNotReady
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateAwaitingOtc {
		return OtcVerifyResult{}, ErrNotAwaitingCode
	}
	email := m.pendingEmail

	callCtx, cancel := m.callCtx(ctx)
	defer cancel()

	resp, err := m.sender.VerifyCode(callCtx, email, code)
	if err != nil {
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventCodeVerify, false, "", err, func() map[string]string {
			return map[string]string{"reason": "sender_failure"}
		})
		return OtcVerifyResult{Message: otcFailedMessage}, fmt.Errorf("%w: code verify: %v", ErrTransport, err)
	}
	if !resp.Success || resp.Session == nil {
		m.metricInc(MetricCodeVerifyFailure)
		m.emitAudit(ctx, auditEventCodeVerify, false, "", ErrCodeInvalid, nil)
		return OtcVerifyResult{Message: otcFailedMessage}, ErrCodeInvalid
	}

	sess := resp.Session
	query := StatusQuery{IdentityID: sess.Identity.ID}
	if query.IdentityID == "" {
		// Some providers omit the identity id on the verify response.
		query.Email = email
	}
	status, err := m.oracle.CheckStatus(callCtx, query)
	if err != nil {
		m.revokeGrant(ctx)
		m.metricInc(MetricTransportFailure)
		m.emitAudit(ctx, auditEventCodeVerify, false, sess.Identity.ID, err, func() map[string]string {
			return map[string]string{"reason": "status_check_failed"}
		})
		return OtcVerifyResult{Message: otcFailedMessage}, err
	}
	if !status.Exists || !status.IsActive {
		m.revokeGrant(ctx)
		m.dropSession(StateRejected, RejectAccountInactive)
		m.emitAudit(ctx, auditEventCodeVerify, false, sess.Identity.ID, ErrAccountInactive, nil)
		return OtcVerifyResult{Message: otcFailedMessage}, ErrAccountInactive
	}

	if sess.Identity.ID == "" {
		sess.Identity.ID = status.Record.IdentityID
	}

	next := StateAuthenticatedActive
	if status.Record.IsFirstLogin {
		next = StateAuthenticatedFirstLogin
	}
	m.holdSession(sess, next)

	m.metricInc(MetricCodeVerifySuccess)
	m.emitAudit(ctx, auditEventCodeVerify, true, sess.Identity.ID, nil, func() map[string]string {
		return map[string]string{"first_login": fmt.Sprint(status.Record.IsFirstLogin)}
	})

	return OtcVerifyResult{
		Success: true,
		Message: "Code verified.",
		Session: m.sessionCopyLocked(),
	}, nil
}

// AbandonCode returns the machine from StateAwaitingOtc to StateAnonymous
// without touching the quota. Safe to call in any state.
func (m *Machine) AbandonCode() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingOtc {
		return
	}
	m.state = StateAnonymous
	m.pendingEmail = ""
}
