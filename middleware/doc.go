// Package middleware exposes HTTP middleware adapters that gate routes on a
// Machine's authentication state and on the selected membership's effective
// visibility and capabilities.
//
// # Guards
//
//   - [RequireActive] — fully authenticated sessions only; first-login
//     sessions are turned away with 403.
//   - [AllowFirstLogin] — any authenticated session, including first-login.
//     This is the guard for password-update routes.
//   - [RequireSection] — RequireActive plus a visibility check on a section
//     path of the selected membership.
//   - [RequireCapability] — RequireActive plus a named capability check.
//
// [Admit] is the pure admission predicate the guards are built on; callers
// outside HTTP (CLIs, tests) can use it directly.
//
// # Architecture boundaries
//
// This package translates HTTP semantics into Machine queries. It does NOT
// make policy decisions itself — visibility and capability answers come from
// the policy package via the Machine's selected membership.
//
// # What this package must NOT do
//
//   - Mutate machine state (guards only read).
//   - Call external services (the Machine already holds the answers).
//   - Encode role knowledge; only section paths and capability names appear
//     at call sites.
package middleware
