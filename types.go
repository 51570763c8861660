package orgauth

import (
	"context"
	"time"

	"github.com/avetra/orgauth/policy"
)

// AuthState is one of the five lifecycle states of a [Machine].
type AuthState uint8

const (
	// StateAnonymous is the initial state and the state reached after every
	// sign-out. The lifecycle is cyclic; there is no terminal state.
	StateAnonymous AuthState = iota
	// StateAwaitingOtc holds the email a one-time code was issued for.
	StateAwaitingOtc
	// StateAuthenticatedFirstLogin holds a session whose full access is withheld
	// pending a password change.
	StateAuthenticatedFirstLogin
	// StateAuthenticatedActive is the fully signed-in state.
	StateAuthenticatedActive
	// StateRejected is entered when a held session is force-invalidated, e.g. on
	// detecting account deactivation. It behaves like StateAnonymous for re-entry.
	StateRejected
)

// String returns the lower-snake name of the state.
func (s AuthState) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAwaitingOtc:
		return "awaiting_otc"
	case StateAuthenticatedFirstLogin:
		return "authenticated_first_login"
	case StateAuthenticatedActive:
		return "authenticated_active"
	case StateRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Authenticated reports whether the state holds a session.
func (s AuthState) Authenticated() bool {
	return s == StateAuthenticatedActive || s == StateAuthenticatedFirstLogin
}

// RejectReason qualifies StateRejected and pre-auth rejection results.
type RejectReason uint8

const (
	// RejectNone is the zero reason.
	RejectNone RejectReason = iota
	// RejectInvalidCredentials covers wrong email/password pairs.
	RejectInvalidCredentials
	// RejectAccountInactive covers deactivated accounts.
	RejectAccountInactive
	// RejectNoSuchAccount covers identities with no account record.
	RejectNoSuchAccount
)

// String returns the lower-snake name of the reason.
func (r RejectReason) String() string {
	switch r {
	case RejectInvalidCredentials:
		return "invalid_credentials"
	case RejectAccountInactive:
		return "account_inactive"
	case RejectNoSuchAccount:
		return "no_such_account"
	default:
		return "none"
	}
}

// Identity is an external-provider principal. Created out-of-band; read-only here.
type Identity struct {
	ID    string
	Email string
}

// Session is the time-bounded proof of authentication held by the client. It lives
// in memory only; at most one Session is active per running Machine.
type Session struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Identity     Identity
}

// Valid reports whether the session carries a token that has not expired at t.
func (s *Session) Valid(t time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || t.Before(s.ExpiresAt)
}

// AccountRecord is the per-identity row read from and written to the record store.
type AccountRecord struct {
	IdentityID       string
	Email            string
	IsActive         bool
	IsFirstLogin     bool
	PasswordUpdated  bool
	OtpRequestsCount int
	LastOtpRequest   *time.Time
	LastLogin        *time.Time
}

// AccountPatch is a partial update applied to an AccountRecord. Nil fields are
// left untouched.
type AccountPatch struct {
	IsFirstLogin     *bool
	PasswordUpdated  *bool
	OtpRequestsCount *int
	LastOtpRequest   *time.Time
	LastLogin        *time.Time
}

// OrganizationMembership is the (identity, organization, role) tuple governing
// authorization within one tenant. Which membership is current is selected
// externally; the machine only validates the selection.
type OrganizationMembership struct {
	ID             string
	IdentityID     string
	OrganizationID string
	Role           policy.Role
	IsActive       bool
	Override       policy.Override
	Capabilities   *policy.Capabilities
}

// StatusQuery addresses an account by exactly one of identity id or email.
// Supplying zero or both is a programming error and fails fast.
type StatusQuery struct {
	IdentityID string
	Email      string
}

// AccountStatus is the oracle's answer for a StatusQuery.
type AccountStatus struct {
	Exists   bool
	IsActive bool
	Record   AccountRecord
}

// UpdatePasswordKind distinguishes the forced first-login change from an
// ordinary reset issued by an already-active session.
type UpdatePasswordKind uint8

const (
	// PasswordFirstTimeLogin completes the first-login flow: it clears the
	// first-login flag, marks the password updated, and resets the code quota.
	PasswordFirstTimeLogin UpdatePasswordKind = iota
	// PasswordReset is a plain password change with no lifecycle bookkeeping.
	PasswordReset
)

// OtcRequestResult is returned by [Machine.RequestCode]. Message is always safe to
// show verbatim: it never discloses whether the address has an account.
type OtcRequestResult struct {
	Success           bool
	Message           string
	CooldownSeconds   int
	RemainingRequests int
}

// OtcVerifyResult is returned by [Machine.VerifyCode].
type OtcVerifyResult struct {
	Success bool
	Message string
	Session *Session
}

// OtcEndpointResponse is the JSON shape of the remote code-request endpoint.
type OtcEndpointResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	CooldownMinutes   int    `json:"cooldownMinutes,omitempty"`
	RemainingRequests int    `json:"remainingRequests,omitempty"`
}

// OtcVerifyResponse is the JSON shape of the remote code-verification endpoint.
type OtcVerifyResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Session *Session `json:"session,omitempty"`
}

// CredentialGateway wraps the external identity provider. Implementations own no
// state beyond the current session token. Remote failures must surface as errors
// wrapping [ErrTransport]; a wrong password must wrap [ErrInvalidCredentials] and
// is terminal for that attempt, never retried.
type CredentialGateway interface {
	// SignInWithPassword exchanges credentials for a session.
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	// SignOut revokes the remote session. Callers clear local state regardless of
	// the returned error.
	SignOut(ctx context.Context) error
	// UpdatePassword changes the password of the currently held session.
	UpdatePassword(ctx context.Context, newPassword string) error
	// RefreshSession recovers an existing session, returning nil when there is
	// none. Idempotent and side-effect free on failure.
	RefreshSession(ctx context.Context) (*Session, error)
}

// OtcSender is the remote code-delivery and verification endpoint. The machine
// guards it: it is never invoked for an identity that does not exist or is
// inactive, and never past the request quota.
type OtcSender interface {
	RequestCode(ctx context.Context, email string) (OtcEndpointResponse, error)
	VerifyCode(ctx context.Context, email, code string) (OtcVerifyResponse, error)
}

// RecordStore is the external persistence boundary. Implementations must return
// errors wrapping [ErrRecordNotFound] for legitimate negative lookups and
// [ErrTransport] for infrastructure failures; the two are treated differently.
type RecordStore interface {
	AccountByID(ctx context.Context, identityID string) (AccountRecord, error)
	AccountByEmail(ctx context.Context, email string) (AccountRecord, error)
	UpdateAccount(ctx context.Context, identityID string, patch AccountPatch) error
	MembershipsByIdentity(ctx context.Context, identityID string) ([]OrganizationMembership, error)
	UpdateMembershipOverride(ctx context.Context, membershipID string, override policy.Override) error
}
