// Package orgauth implements the authentication session lifecycle and role-based
// authorization core of a multi-tenant organization-management application.
//
// The package is built around a single-owner [Machine]: a cyclic state machine that
// orchestrates an external credential gateway (password sign-in, sign-out, password
// update, session refresh), a rate-limited one-time-code service, and an account
// status oracle into one coherent lifecycle, and exposes the resulting user+session
// pair to guards and UI surfaces. Authorization decisions are computed by the pure
// policy package from the active membership's role and visibility overrides.
//
// # Architecture boundaries
//
// orgauth is the public surface. It exposes [Machine], [Builder], [Config], typed
// results, and sentinel errors. The persistent record store, the identity provider,
// and the code-delivery endpoint are external collaborators reached only through the
// [RecordStore], [CredentialGateway], and [OtcSender] interfaces.
//
// # What this package must NOT do
//
//   - Own persistence: the Session lives in memory only; account and membership rows
//     belong to the record store.
//   - Interpret identity-provider tokens beyond an opportunistic expiry read; tokens
//     stay opaque.
//   - Retry remote calls. Retries are caller policy; the sole idempotent exception is
//     session refresh.
//
// # Concurrency contract
//
// Machine transitions are serialized: a transition request issued while another is in
// flight waits for it, and intermediate states are never observable. The one piece of
// state touched concurrently, the OTC request counter, is maintained with an atomic
// Redis increment so racing requests cannot bypass the quota.
package orgauth
