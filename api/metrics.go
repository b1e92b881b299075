package api

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName      = "classboard-api"
	viewEventName   = "classboard.view.request"
	viewEventDomain = "classboard"
)

// viewRequestMetrics collects per-request timings for a view endpoint and
// emits them as one structured log event plus an otel span on completion.
type viewRequestMetrics struct {
	logger *log.Logger
	span   trace.Span
	route  string
	start  time.Time

	authDuration      time.Duration
	fetchDuration     time.Duration
	reconcileDuration time.Duration
	encodeDuration    time.Duration
	tasksReturned     int
	errorStage        string
}

func newViewRequestMetrics(ctx context.Context, logger *log.Logger, route string) (*viewRequestMetrics, context.Context) {
	m := &viewRequestMetrics{
		logger: logger,
		route:  route,
		start:  time.Now(),
	}
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, route)
	m.span = span
	return m, spanCtx
}

func (m *viewRequestMetrics) ObserveAuth(d time.Duration) {
	if d > 0 {
		m.authDuration = d
	}
}

func (m *viewRequestMetrics) ObserveFetch(d time.Duration) {
	if d > 0 {
		m.fetchDuration = d
	}
}

func (m *viewRequestMetrics) ObserveReconcile(d time.Duration) {
	if d > 0 {
		m.reconcileDuration = d
	}
}

func (m *viewRequestMetrics) ObserveEncode(d time.Duration) {
	if d > 0 {
		m.encodeDuration = d
	}
}

func (m *viewRequestMetrics) SetTasksReturned(count int) {
	if count < 0 {
		count = 0
	}
	m.tasksReturned = count
}

func (m *viewRequestMetrics) SetErrorStage(stage string) {
	if stage != "" {
		m.errorStage = stage
	}
}

// Log finishes the span and writes the consolidated event. Safe on a nil
// receiver so handlers may defer it unconditionally.
func (m *viewRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	total := time.Since(m.start)

	attrs := map[string]any{
		"http.route":               m.route,
		"http.status_code":         status,
		"classboard.view.total_ms": durationToMillis(total),
		"classboard.view.items":    m.tasksReturned,
	}
	if m.authDuration > 0 {
		attrs["classboard.view.auth_ms"] = durationToMillis(m.authDuration)
	}
	if m.fetchDuration > 0 {
		attrs["classboard.view.fetch_ms"] = durationToMillis(m.fetchDuration)
	}
	if m.reconcileDuration > 0 {
		attrs["classboard.view.reconcile_ms"] = durationToMillis(m.reconcileDuration)
	}
	if m.encodeDuration > 0 {
		attrs["classboard.view.encode_ms"] = durationToMillis(m.encodeDuration)
	}
	if m.errorStage != "" {
		attrs["classboard.view.error_stage"] = m.errorStage
	}

	if m.span != nil {
		m.span.SetAttributes(
			attribute.String("http.route", m.route),
			attribute.Int("http.status_code", status),
			attribute.Float64("classboard.view.total_ms", durationToMillis(total)),
			attribute.Int("classboard.view.items", m.tasksReturned),
		)
		if m.errorStage != "" {
			m.span.SetAttributes(attribute.String("classboard.view.error_stage", m.errorStage))
		}
		if err != nil {
			m.span.SetStatus(codes.Error, err.Error())
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	severity := "INFO"
	if err != nil {
		severity = "ERROR"
	}
	fields := log.Fields{
		"event.name":    viewEventName,
		"event.domain":  viewEventDomain,
		"severity_text": severity,
		"attributes":    attrs,
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	m.logger.WithFields(fields).Info("observability.event")
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
