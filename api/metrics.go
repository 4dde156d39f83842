package api

import (
	"context"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName          = "footprint/api"
	completeSpanName    = "page.complete"
	completeEventName   = "actions.complete"
	completeEventDomain = "footprint.actions"
	observabilityEvent  = "observability.event"
)

type completeRequestMetrics struct {
	logger         *log.Logger
	span           trace.Span
	start          time.Time
	route          string
	category       string
	profileFetch   time.Duration
	submit         time.Duration
	profileFound   bool
	actionsChecked int
	outcome        string
	errorStage     string
}

// newCompleteRequestMetrics starts the span for one completion request. The
// returned context carries the span.
func newCompleteRequestMetrics(ctx context.Context, logger *log.Logger, route, category string) (*completeRequestMetrics, context.Context) {
	spanCtx, span := otel.Tracer(tracerName).Start(ctx, completeSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &completeRequestMetrics{
		logger:   logger,
		span:     span,
		start:    time.Now(),
		route:    route,
		category: category,
	}, spanCtx
}

func (m *completeRequestMetrics) ObserveProfileFetch(duration time.Duration, found bool) {
	m.profileFound = found
	if duration > 0 {
		m.profileFetch = duration
	}
}

func (m *completeRequestMetrics) ObserveSubmit(duration time.Duration) {
	if duration > 0 {
		m.submit = duration
	}
}

func (m *completeRequestMetrics) SetActionsChecked(count int) {
	if count < 0 {
		count = 0
	}
	m.actionsChecked = count
}

func (m *completeRequestMetrics) SetOutcome(outcome string) {
	m.outcome = outcome
}

func (m *completeRequestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log ends the span and writes one structured event line.
func (m *completeRequestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}

	attrs := map[string]any{
		"http.route":                       m.route,
		"http.status_code":                 status,
		"footprint.category":               m.category,
		"footprint.complete.total_ms":      durationToMillis(time.Since(m.start)),
		"footprint.complete.profile_found": m.profileFound,
		"footprint.complete.checked":       m.actionsChecked,
	}
	if m.outcome != "" {
		attrs["footprint.complete.outcome"] = m.outcome
	}
	if m.profileFetch > 0 {
		attrs["footprint.complete.profile_fetch_ms"] = durationToMillis(m.profileFetch)
	}
	if m.submit > 0 {
		attrs["footprint.complete.submit_ms"] = durationToMillis(m.submit)
	}
	if m.errorStage != "" {
		attrs["footprint.complete.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	severityText, severityNumber := severityForStatus(status, err)

	if m.span != nil {
		spanAttrs := toAttributes(attrs)
		m.span.SetAttributes(spanAttrs...)
		eventAttrs := append([]attribute.KeyValue{
			attribute.String("event.name", completeEventName),
			attribute.String("event.domain", completeEventDomain),
			attribute.String("severity_text", severityText),
			attribute.Int("severity_number", severityNumber),
		}, spanAttrs...)
		m.span.AddEvent(observabilityEvent, trace.WithAttributes(eventAttrs...))
		if err != nil || status >= http.StatusInternalServerError {
			desc := "request failed"
			if err != nil {
				desc = err.Error()
			}
			m.span.SetStatus(codes.Error, desc)
		} else {
			m.span.SetStatus(codes.Ok, "")
		}
		m.span.End()
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      completeEventName,
		"event.domain":    completeEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if m.span != nil {
		if sc := m.span.SpanContext(); sc.HasTraceID() {
			fields["trace_id"] = sc.TraceID().String()
			fields["span_id"] = sc.SpanID().String()
		}
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// severityForStatus maps to OpenTelemetry log severity numbers.
func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toAttributes(values map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(values))
	for k, v := range values {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
