// Package policy computes per-role, per-organization authorization decisions:
// section visibility and capability flags consumed by every guard and UI surface.
//
// The package is pure. It performs no I/O, holds no mutable state, and every
// function is safe for concurrent use. Role comparisons go through a single rank
// table; visibility defaults are explicit per-role literals, including the
// deliberate non-monotonic carve-outs (a finance_admin sees finance sections a
// higher-ranked branch_admin does not). Unknown roles are an error everywhere,
// never silently treated as lowest privilege.
//
// # What this package must NOT do
//
//   - Derive the carve-out roles' visibility from rank. The tables encode a
//     product decision and are maintained by hand.
//   - Accept an override on a locked section. The UI disables the control, and
//     this package rejects the value again.
//   - Own branch scoping. Branch-level restrictions are external policy layered
//     on top of the decisions computed here.
package policy
