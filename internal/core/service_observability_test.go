package core

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

type metricsCall struct {
	op       string
	success  bool
	duration time.Duration
}

type captureMetricsRecorder struct {
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, duration time.Duration) {
	c.calls = append(c.calls, metricsCall{op: op, success: success, duration: duration})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type captureTracer struct {
	started []string
	ended   []spanRecord
}

type spanRecord struct {
	op  string
	err error
}

func (c *captureTracer) Start(ctx context.Context, op string) (context.Context, TraceSpan) {
	c.started = append(c.started, op)
	return ctx, &captureSpan{tracer: c, op: op}
}

type captureSpan struct {
	tracer *captureTracer
	op     string
}

func (s *captureSpan) End(err error) {
	s.tracer.ended = append(s.tracer.ended, spanRecord{op: s.op, err: err})
}

type captureAuditRecorder struct {
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.entries = append(c.entries, entry)
}

func (c *captureAuditRecorder) has(op string, status AuditStatus) bool {
	for _, entry := range c.entries {
		if entry.Operation == op && entry.Status == status {
			return true
		}
	}
	return false
}

func TestServiceObservabilityHooks(t *testing.T) {
	ctx := context.Background()
	audit := &captureAuditRecorder{}
	metrics := &captureMetricsRecorder{}
	tracer := &captureTracer{}

	svc := NewInMemoryService(NewRulesEngine(),
		WithAuditRecorder(audit),
		WithMetricsRecorder(metrics),
		WithTracer(tracer),
	)

	created, _, err := svc.CreateEmployee(ctx, Employee{Name: "Ada"})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if !audit.has("create_employee", AuditStatusSuccess) {
		t.Fatalf("expected audit entry for create_employee success")
	}
	if !metrics.has("create_employee", true) {
		t.Fatalf("expected metrics entry for create_employee")
	}

	if _, err := svc.DeleteEmployee(ctx, "missing"); err == nil {
		t.Fatalf("expected delete of missing id to fail")
	}
	if !audit.has("delete_employee", AuditStatusError) {
		t.Fatalf("expected audit error entry for delete_employee")
	}
	if !metrics.has("delete_employee", false) {
		t.Fatalf("expected metrics entry for failed delete_employee")
	}
	var sawFailedSpan bool
	for _, record := range tracer.ended {
		if record.op == "delete_employee" && record.err != nil {
			sawFailedSpan = true
		}
	}
	if !sawFailedSpan {
		t.Fatalf("expected failed trace span for delete_employee, got %+v", tracer.ended)
	}

	if _, ok := svc.GetEmployee(ctx, created.ID); !ok {
		t.Fatalf("expected created employee to remain")
	}
}

func TestExpvarMetricsRecorderAggregates(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), "create_employee", true, 5*time.Millisecond)
	rec.Observe(context.Background(), "create_employee", false, 3*time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond) // ignored

	snap := rec.Snapshot()
	if snap.Results["create_employee"]["success"] != 1 || snap.Results["create_employee"]["error"] != 1 {
		t.Fatalf("unexpected result counters %+v", snap.Results)
	}
	if snap.DurationsMS["create_employee"] < 7 {
		t.Fatalf("expected aggregated durations, got %v", snap.DurationsMS)
	}
	if rec.Name() == "" {
		t.Fatalf("expected generated expvar name")
	}
}

func TestJSONTracerEmitsSpans(t *testing.T) {
	buf := &bytes.Buffer{}
	tracer := NewJSONTracer(buf)

	_, span := tracer.Start(context.Background(), "export_csv")
	span.End(nil)
	_, span = tracer.Start(context.Background(), "export_csv")
	span.End(context.DeadlineExceeded)

	entries := tracer.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 spans got %d", len(entries))
	}
	if entries[0].Status != "success" || entries[1].Status != "error" {
		t.Fatalf("unexpected statuses %+v", entries)
	}
	if !strings.Contains(buf.String(), "export_csv") {
		t.Fatalf("expected spans encoded to writer, got %q", buf.String())
	}
}

func TestPrometheusMetricsRecorderCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewPrometheusMetricsRecorder(reg)

	rec.Observe(context.Background(), "create_employee", true, 2*time.Millisecond)
	rec.Observe(context.Background(), "create_employee", true, 3*time.Millisecond)
	rec.Observe(context.Background(), "create_employee", false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond) // ignored

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var successCount float64
	for _, mf := range families {
		if mf.GetName() != "rostercore_service_operations_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			if hasLabel(m, "operation", "create_employee") && hasLabel(m, "status", "success") {
				successCount = m.GetCounter().GetValue()
			}
		}
	}
	if successCount != 2 {
		t.Fatalf("expected 2 successful observations, got %v", successCount)
	}
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, label := range m.GetLabel() {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
