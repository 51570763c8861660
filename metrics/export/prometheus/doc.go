// Package prometheus renders orgauth counters in Prometheus text exposition
// format without depending on the Prometheus client library.
//
// The exporter is pull-based and stateless: every Render call takes a fresh
// snapshot from the source. Wire [PrometheusExporter.Handler] onto a /metrics
// route.
package prometheus
