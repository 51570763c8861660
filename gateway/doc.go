// Package gateway implements orgauth's CredentialGateway over the hosted
// identity provider's REST surface: password grant, logout, password update,
// and refresh-token grant.
//
// The client owns no state beyond the tokens of the current session. Provider
// tokens are opaque; the one exception is an unverified read of the access
// token's exp claim, used only when the provider response omits expires_in.
//
// # What this package must NOT do
//
//   - Verify token signatures or otherwise act as an identity provider.
//   - Retry. A wrong password is terminal for the attempt; transport errors are
//     surfaced for the caller to decide.
package gateway
