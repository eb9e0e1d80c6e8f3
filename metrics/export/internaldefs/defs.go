package internaldefs

import (
	"github.com/MrEthical07/sikad"
)

type CounterDef struct {
	ID   sikad.MetricID
	Name string
	Help string
}

type HistogramDef struct {
	ID   sikad.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sikad.MetricLoginSuccess, Name: "sikad_login_success_total", Help: "Successful logins."},
	{ID: sikad.MetricLoginFailure, Name: "sikad_login_failure_total", Help: "Failed logins, including invalid credentials."},
	{ID: sikad.MetricLogout, Name: "sikad_logout_total", Help: "Logouts."},
	{ID: sikad.MetricSessionRestored, Name: "sikad_session_restored_total", Help: "Sessions restored from storage at start-up."},
	{ID: sikad.MetricVerifySuccess, Name: "sikad_verify_success_total", Help: "Session verifications accepted by the backend."},
	{ID: sikad.MetricVerifyCached, Name: "sikad_verify_cached_total", Help: "Session verifications answered from the freshness window."},
	{ID: sikad.MetricVerifyRejected, Name: "sikad_verify_rejected_total", Help: "Session verifications that cleared the session."},
	{ID: sikad.MetricTokenExpired, Name: "sikad_token_expired_total", Help: "Sessions cleared because the token had expired locally."},
	{ID: sikad.MetricProfileReplaced, Name: "sikad_profile_replaced_total", Help: "Cached profiles replaced after an update."},
	{ID: sikad.MetricStorageFailure, Name: "sikad_storage_failure_total", Help: "Session storage read or write failures."},
	{ID: sikad.MetricRequestSuccess, Name: "sikad_request_success_total", Help: "Successful backend calls made through the engine."},
	{ID: sikad.MetricRequestFailure, Name: "sikad_request_failure_total", Help: "Failed backend calls made through the engine."},
	{ID: sikad.MetricRequestTimeout, Name: "sikad_request_timeout_total", Help: "Backend calls that hit their deadline."},
	{ID: sikad.MetricRequestUnauthorized, Name: "sikad_request_unauthorized_total", Help: "Backend calls answered with 401."},
	{ID: sikad.MetricValidationFailure, Name: "sikad_validation_failure_total", Help: "Forms rejected before submission."},
}

var HistogramDefs = []HistogramDef{
	{ID: sikad.MetricVerifyLatency, Name: "sikad_verify_latency_seconds", Help: "Round-trip time of session verification."},
}

// HistogramBounds are the upper bounds of the engine's eight latency buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundValues matches HistogramBounds without the +Inf bucket.
var HistogramBoundValues = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// AuditDroppedName is the counter for events the audit dispatcher discarded.
const AuditDroppedName = "sikad_audit_dropped_total"
