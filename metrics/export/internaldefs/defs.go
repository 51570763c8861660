package internaldefs

import (
	"github.com/avetra/orgauth"
)

// CounterDef binds a MetricID to its exported name and help text.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   orgauth.MetricID
	Name string
	Help string
}

// CounterDefs lists every exported counter in a stable order.
var CounterDefs = []CounterDef{
	{ID: orgauth.MetricSignInSuccess, Name: "orgauth_signin_success_total", Help: "Completed password sign-ins."},
	{ID: orgauth.MetricSignInInvalidCredentials, Name: "orgauth_signin_invalid_credentials_total", Help: "Sign-ins rejected for a wrong email or password."},
	{ID: orgauth.MetricSignInInactive, Name: "orgauth_signin_account_inactive_total", Help: "Sign-ins rejected for a deactivated account."},
	{ID: orgauth.MetricSignInFirstLogin, Name: "orgauth_signin_first_login_total", Help: "Sign-ins landing in the first-login state."},
	{ID: orgauth.MetricCodeRequested, Name: "orgauth_code_requested_total", Help: "Accepted one-time-code requests."},
	{ID: orgauth.MetricCodeRateLimited, Name: "orgauth_code_rate_limited_total", Help: "Quota-exceeded one-time-code requests."},
	{ID: orgauth.MetricCodeRejected, Name: "orgauth_code_rejected_total", Help: "Code requests refused before the quota check."},
	{ID: orgauth.MetricCodeVerifySuccess, Name: "orgauth_code_verify_success_total", Help: "Successful code verifications."},
	{ID: orgauth.MetricCodeVerifyFailure, Name: "orgauth_code_verify_failure_total", Help: "Failed code verifications."},
	{ID: orgauth.MetricPasswordUpdateSuccess, Name: "orgauth_password_update_success_total", Help: "Completed password updates."},
	{ID: orgauth.MetricPasswordUpdateFailure, Name: "orgauth_password_update_failure_total", Help: "Failed password updates."},
	{ID: orgauth.MetricSignOut, Name: "orgauth_signout_total", Help: "Sign-outs, voluntary or forced."},
	{ID: orgauth.MetricSessionResumed, Name: "orgauth_session_resumed_total", Help: "Sessions recovered on process start."},
	{ID: orgauth.MetricSessionRevoked, Name: "orgauth_session_revoked_total", Help: "Sessions invalidated after a status recheck."},
	{ID: orgauth.MetricTransportFailure, Name: "orgauth_transport_failure_total", Help: "Remote calls that failed or timed out."},
}
