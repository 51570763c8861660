// Package otel bridges orgauth counters into an OpenTelemetry meter using
// observable instruments. Counter values are read on each collection cycle,
// so the bridge adds no overhead to the hot path.
package otel
