// Package internaldefs holds the shared counter definitions used by the
// prometheus and otel exporters so both render the same names and help
// strings. It is not part of the public API surface.
package internaldefs
