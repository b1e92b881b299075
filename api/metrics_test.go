package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) (*sdktrace.TracerProvider, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return tp, exporter
}

func TestViewRequestMetricsLog(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter := setupTestTracer(t)

	metrics, _ := newViewRequestMetrics(context.Background(), logger, "/api/tasks")
	metrics.start = metrics.start.Add(-50 * time.Millisecond)
	metrics.ObserveAuth(10 * time.Millisecond)
	metrics.ObserveFetch(15 * time.Millisecond)
	metrics.ObserveReconcile(2 * time.Millisecond)
	metrics.ObserveEncode(5 * time.Millisecond)
	metrics.SetTasksReturned(3)

	metrics.Log(http.StatusOK, nil)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	entries := hook.AllEntries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Message != "observability.event" {
		t.Fatalf("unexpected message: %s", entry.Message)
	}
	if entry.Data["event.name"] != viewEventName {
		t.Fatalf("unexpected event name: %v", entry.Data["event.name"])
	}
	if entry.Data["event.domain"] != viewEventDomain {
		t.Fatalf("unexpected event domain: %v", entry.Data["event.domain"])
	}
	if entry.Data["severity_text"] != "INFO" {
		t.Fatalf("unexpected severity: %v", entry.Data["severity_text"])
	}
	attrs, ok := entry.Data["attributes"].(map[string]any)
	if !ok {
		t.Fatalf("attributes not logged as map: %#v", entry.Data["attributes"])
	}
	if attrs["http.route"] != "/api/tasks" {
		t.Fatalf("unexpected route attribute: %#v", attrs["http.route"])
	}
	if attrs["classboard.view.items"] != 3 {
		t.Fatalf("unexpected items attribute: %#v", attrs["classboard.view.items"])
	}
	if total, ok := attrs["classboard.view.total_ms"].(float64); !ok || total == 0 {
		t.Fatalf("expected total duration to be set, got %#v", attrs["classboard.view.total_ms"])
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "/api/tasks" {
		t.Fatalf("unexpected span name: %s", span.Name)
	}
	if span.Status.Code != codes.Ok {
		t.Fatalf("expected span status Ok, got %v", span.Status.Code)
	}
}

func TestViewRequestMetricsLogWithError(t *testing.T) {
	logger, hook := test.NewNullLogger()
	tp, exporter := setupTestTracer(t)

	metrics, _ := newViewRequestMetrics(context.Background(), logger, "/api/tasks")
	metrics.SetErrorStage("store")
	boom := errors.New("store failure")

	metrics.Log(http.StatusBadGateway, boom)

	if err := tp.ForceFlush(context.Background()); err != nil {
		t.Fatalf("force flush spans: %v", err)
	}

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("expected a log entry")
	}
	if entry.Data["severity_text"] != "ERROR" {
		t.Fatalf("unexpected severity: %v", entry.Data["severity_text"])
	}
	attrs, _ := entry.Data["attributes"].(map[string]any)
	if attrs["classboard.view.error_stage"] != "store" {
		t.Fatalf("error stage not propagated: %#v", attrs)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error || spans[0].Status.Description == "" {
		t.Fatalf("expected error span status, got %+v", spans[0].Status)
	}
}

func TestViewRequestMetricsNilReceiver(t *testing.T) {
	var m *viewRequestMetrics
	m.Log(http.StatusOK, nil) // must not panic
}
