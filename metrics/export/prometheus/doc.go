// Package prometheus exposes sikad engine metrics to Prometheus.
//
// [PrometheusExporter.Handler] renders the text format directly. The exporter is
// also a client_golang Collector, and [PrometheusExporter.RegistryHandler] serves it
// from a private registry through promhttp. Counters are named sikad_*_total and the
// single histogram is sikad_verify_latency_seconds.
package prometheus
