// Package postgres implements the orgauth.RecordStore contract on top of a
// pgx connection pool.
//
// The adapter owns no schema migrations; it expects the accounts and
// organization_memberships tables described in schema.sql to exist. Lookup
// misses are reported as orgauth.ErrRecordNotFound, everything else as
// orgauth.ErrTransport, so callers can tell "no such row" from "database
// unreachable" without inspecting pgx internals.
package postgres
