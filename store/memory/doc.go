// Package memory is an in-memory orgauth.RecordStore, used by the example
// wiring, the smoke CLI, and anywhere a hosted record store is not available.
// It honors the store contract: not-found and transport errors are
// distinguishable, and partial updates touch only the supplied fields.
package memory
