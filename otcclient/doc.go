// Package otcclient implements orgauth's OtcSender against the serverless
// code-delivery endpoint: one POST to request a code, one POST to verify it
// and receive a session in the same exchange.
//
// Requests authenticate with a bearer credential. When a user session exists
// its access token is used; before any session exists — the normal case, since
// codes are requested by signed-out users — the client falls back to the
// service-level credential.
package otcclient
