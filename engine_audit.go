package sikad

import (
	"context"

	"github.com/MrEthical07/sikad/api"
	"github.com/MrEthical07/sikad/session"
)

var sessionEventMetrics = map[session.EventType]MetricID{
	session.EventLoginSuccess:    MetricLoginSuccess,
	session.EventLoginFailure:    MetricLoginFailure,
	session.EventLogout:          MetricLogout,
	session.EventRestored:        MetricSessionRestored,
	session.EventVerified:        MetricVerifySuccess,
	session.EventVerifyCached:    MetricVerifyCached,
	session.EventVerifyRejected:  MetricVerifyRejected,
	session.EventTokenExpired:    MetricTokenExpired,
	session.EventProfileReplaced: MetricProfileReplaced,
	session.EventStorageFailure:  MetricStorageFailure,
}

// onSessionEvent feeds metrics and the audit dispatcher. It runs on the store's
// goroutine and must not call back into the store.
func (e *Engine) onSessionEvent(ev session.Event) {
	if id, ok := sessionEventMetrics[ev.Type]; ok {
		e.metricInc(id)
	}
	if ev.Type == session.EventVerified && ev.Latency > 0 {
		e.metrics.Observe(MetricVerifyLatency, ev.Latency)
	}
	// Cache hits are too frequent to be worth an audit record.
	if e.audit == nil || ev.Type == session.EventVerifyCached {
		return
	}
	e.emitAudit(context.Background(), ev)
}

func (e *Engine) emitAudit(ctx context.Context, ev session.Event) {
	event := AuditEvent{
		Timestamp: ev.At.UTC(),
		Type:      string(ev.Type),
		UserID:    string(ev.UserID),
		Role:      string(ev.Role),
		Success:   auditSuccess(ev),
		LatencyMS: ev.Latency.Milliseconds(),
	}
	if ev.Kind != api.KindNone {
		event.Kind = ev.Kind.String()
	}
	if ev.Err != nil {
		event.Error = ev.Err.Error()
	}
	if ev.Message != "" {
		event.Metadata = map[string]string{"message": ev.Message}
	}
	e.audit.Emit(ctx, event)
}

func auditSuccess(ev session.Event) bool {
	switch ev.Type {
	case session.EventLoginSuccess, session.EventRestored, session.EventVerified, session.EventProfileReplaced:
		return true
	case session.EventLogout:
		return ev.Err == nil
	}
	return false
}
