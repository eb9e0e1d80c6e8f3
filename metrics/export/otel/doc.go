// Package otel binds sikad engine metrics to an OpenTelemetry Meter.
//
// Each counter becomes an Int64ObservableCounter. The verification latency histogram
// is reported as a cumulative bucket gauge keyed by an "le" attribute plus a count
// gauge. One callback reads the engine snapshot per collection. Callers own the
// MeterProvider.
package otel
