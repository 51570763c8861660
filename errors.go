package orgauth

import "errors"

var (
	// ErrInvalidCredentials reports a wrong email/password pair. User-correctable;
	// the machine state does not change.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive reports a deactivated account. Any held session is
	// invalidated before this error is returned.
	ErrAccountInactive = errors.New("account inactive")
	// ErrNoSuchAccount reports that no account record exists for the identity.
	ErrNoSuchAccount = errors.New("no such account")
	// ErrRateLimited reports an exhausted one-time-code quota. The attached result
	// carries the cooldown; the condition clears on its own.
	ErrRateLimited = errors.New("code requests rate limited")
	// ErrCodeInvalid reports a failed one-time-code verification. The cause (wrong
	// code, expired code, unknown email) is deliberately not disclosed.
	ErrCodeInvalid = errors.New("code verification failed")
	// ErrTransport reports a network, provider, or record-store failure. Always
	// retryable; never interpreted as a negative security result.
	ErrTransport = errors.New("transport failure")
	// ErrStatusQueryInvalid reports a malformed status query (zero or both of
	// identity id and email supplied). This is a caller programming error.
	ErrStatusQueryInvalid = errors.New("status query must carry exactly one of identity id or email")
	// ErrNotAuthenticated reports an operation that requires a held session.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotAwaitingCode reports a code verification attempt outside the
	// awaiting-code state.
	ErrNotAwaitingCode = errors.New("no code verification pending")
	// ErrAlreadyAuthenticated reports a code request issued while a session is
	// held. The held session must be signed out first.
	ErrAlreadyAuthenticated = errors.New("already authenticated")
	// ErrPasswordChangeRequired reports an operation withheld until the first-login
	// password change completes.
	ErrPasswordChangeRequired = errors.New("password change required")
	// ErrFirstLoginOnly reports a first-login password update issued from a fully
	// active session.
	ErrFirstLoginOnly = errors.New("not a first login session")
	// ErrMembershipInactive reports an attempt to select a deactivated membership.
	ErrMembershipInactive = errors.New("membership inactive")
	// ErrMembershipForeign reports an attempt to select a membership that belongs to
	// a different identity than the signed-in one.
	ErrMembershipForeign = errors.New("membership belongs to another identity")
	// ErrNoMembership reports a policy query before any membership was selected.
	ErrNoMembership = errors.New("no membership selected")
	// ErrRecordNotFound is returned by RecordStore implementations for a legitimate
	// negative lookup, distinguishable from ErrTransport.
	ErrRecordNotFound = errors.New("record not found")
	// ErrMachineNotReady reports use of a Machine that was not built via Builder.
	ErrMachineNotReady = errors.New("machine not initialized")
)
