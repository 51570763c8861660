package orgauth

import (
	"context"
	"sync"
	"time"
)

// Machine is the single-owner session/auth state machine. One Machine serves
// one client process; transitions are serialized so intermediate states (for
// example "gateway succeeded, inactive check pending") are never observable.
//
// Construct through [Builder.Build]; inject into consumers by parameter
// passing, not ambient lookup. The lifecycle is cyclic: every rejection and
// sign-out returns the machine to a state from which sign-in is possible again.
type Machine struct {
	config  Config
	gateway CredentialGateway
	sender  OtcSender
	records RecordStore
	limiter *otcLimiter
	oracle  *statusOracle
	audit   *auditDispatcher
	metrics *Metrics

	mu           sync.Mutex
	state        AuthState
	rejectReason RejectReason
	session      *Session
	pendingEmail string
	membership   *OrganizationMembership
}

// State returns the current lifecycle state.
func (m *Machine) State() AuthState {
	if m == nil {
		return StateAnonymous
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// RejectReason returns the reason attached to StateRejected, or RejectNone.
func (m *Machine) RejectReason() RejectReason {
	if m == nil {
		return RejectNone
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rejectReason
}

// Session returns a copy of the held session, or nil when not authenticated.
func (m *Machine) Session() *Session {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	copied := *m.session
	return &copied
}

// Identity returns the signed-in identity, or false when not authenticated.
func (m *Machine) Identity() (Identity, bool) {
	if m == nil {
		return Identity{}, false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return Identity{}, false
	}
	return m.session.Identity, true
}

// PendingEmail returns the email a one-time code was issued for, or false
// outside StateAwaitingOtc.
func (m *Machine) PendingEmail() (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAwaitingOtc {
		return "", false
	}
	return m.pendingEmail, true
}

// MetricsSnapshot copies the machine's counters.
func (m *Machine) MetricsSnapshot() MetricsSnapshot {
	if m == nil || m.metrics == nil {
		return MetricsSnapshot{Counters: map[MetricID]uint64{}}
	}
	return m.metrics.Snapshot()
}

// AuditDropped reports how many audit events were discarded under backpressure.
func (m *Machine) AuditDropped() uint64 {
	if m == nil || m.audit == nil {
		return 0
	}
	return m.audit.Dropped()
}

// Close tears the machine down: the audit dispatcher drains and stops. The
// held session, if any, is not revoked remotely; call SignOut first when that
// is wanted.
func (m *Machine) Close() {
	if m == nil {
		return
	}
	if m.audit != nil {
		m.audit.Close()
	}
}

func (m *Machine) metricInc(id MetricID) {
	if m == nil || m.metrics == nil {
		return
	}
	m.metrics.Inc(id)
}

// callCtx bounds one remote call. Every gateway, sender, and store call goes
// through this; exceeding the timeout is a transport failure, never a
// security-relevant negative result.
func (m *Machine) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, m.config.Call.Timeout)
}

// locked session bookkeeping; callers hold m.mu.

func (m *Machine) holdSession(sess *Session, state AuthState) {
	m.session = sess
	m.state = state
	m.rejectReason = RejectNone
	m.pendingEmail = ""
}

func (m *Machine) dropSession(state AuthState, reason RejectReason) {
	m.session = nil
	m.membership = nil
	m.state = state
	m.rejectReason = reason
	m.pendingEmail = ""
}

const (
	auditEventSignIn         = "sign_in"
	auditEventSignOut        = "sign_out"
	auditEventCodeRequest    = "code_request"
	auditEventCodeVerify     = "code_verify"
	auditEventPasswordUpdate = "password_update"
	auditEventSessionResume  = "session_resume"
	auditEventSessionRevoked = "session_revoked"
	auditEventRateLimited    = "rate_limit_triggered"
	auditEventMembershipUse  = "membership_selected"
	auditEventStatusRecheck  = "status_recheck"
)

func (m *Machine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	identityID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if m == nil || m.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:      time.Now().UTC(),
		EventType:      eventType,
		IdentityID:     identityID,
		OrganizationID: orgIDFromContext(ctx),
		IP:             clientIPFromContext(ctx),
		State:          m.state.String(),
		Success:        success,
		Metadata:       metadata,
	}
	if err != nil {
		event.Error = err.Error()
	}

	m.audit.Emit(ctx, event)
}
