package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"rostercore/internal/export"
	"rostercore/internal/query"
	"rostercore/pkg/domain"
)

func TestServiceEmployeeLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())

	created, _, err := svc.CreateEmployee(ctx, Employee{
		EmployeeID: "EMP-001",
		Name:       "Ada Lovelace",
		Department: "Engineering",
		Position:   "Engineer",
		IsActive:   true,
		Income:     120000,
	})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}

	updated, _, err := svc.UpdateEmployee(ctx, created.ID, func(e *Employee) error {
		e.Position = "Staff Engineer"
		return nil
	})
	if err != nil {
		t.Fatalf("update employee: %v", err)
	}
	if updated.Position != "Staff Engineer" {
		t.Fatalf("expected updated position got %q", updated.Position)
	}

	got, ok := svc.GetEmployee(ctx, created.ID)
	if !ok || got.Position != "Staff Engineer" {
		t.Fatalf("expected to read back updated employee, got %+v ok=%v", got, ok)
	}

	if _, err := svc.DeleteEmployee(ctx, created.ID); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if _, ok := svc.GetEmployee(ctx, created.ID); ok {
		t.Fatalf("expected employee to be gone")
	}

	_, err = svc.DeleteEmployee(ctx, created.ID)
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError got %v", err)
	}
}

func TestServiceClockControlsTimestamps(t *testing.T) {
	freeze := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	svc := NewInMemoryService(NewRulesEngine(), WithClock(ClockFunc(func() time.Time { return freeze })))

	created, _, err := svc.CreateEmployee(context.Background(), Employee{Name: "Frozen"})
	if err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if !created.CreatedAt.Equal(freeze) || !created.UpdatedAt.Equal(freeze) {
		t.Fatalf("expected frozen timestamps, got %v / %v", created.CreatedAt, created.UpdatedAt)
	}
}

func TestServiceBlocksNegativeIncome(t *testing.T) {
	svc := NewInMemoryService(nil) // default rules

	_, res, err := svc.CreateEmployee(context.Background(), Employee{Name: "Broke", Income: -1})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError got %v", err)
	}
	if !res.HasBlocking() {
		t.Fatalf("expected blocking violation in result")
	}
	if got := len(svc.ListEmployees(context.Background())); got != 0 {
		t.Fatalf("blocked create must not persist, found %d", got)
	}
}

func TestServiceWarnsOnDuplicateBadge(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(nil)

	if _, _, err := svc.CreateEmployee(ctx, Employee{EmployeeID: "EMP-1", Name: "First"}); err != nil {
		t.Fatalf("create first: %v", err)
	}
	_, res, err := svc.CreateEmployee(ctx, Employee{EmployeeID: "EMP-1", Name: "Second"})
	if err != nil {
		t.Fatalf("duplicate badge must not block: %v", err)
	}
	if len(res.Violations) != 1 || res.Violations[0].Severity != domain.SeverityWarn {
		t.Fatalf("expected one warn violation, got %+v", res.Violations)
	}
	if got := len(svc.ListEmployees(ctx)); got != 2 {
		t.Fatalf("expected both records persisted, got %d", got)
	}
}

func TestServiceDeriveViewFiltersAndSorts(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())

	seed := []Employee{
		{Name: "Carol", Department: "Engineering", Position: "Engineer", Income: 80000, IsActive: true},
		{Name: "Alice", Department: "Engineering", Position: "Engineer", Income: 50000, IsActive: true},
		{Name: "Bob", Department: "Sales", Position: "Account Executive", Income: 60000, IsActive: false},
	}
	for _, e := range seed {
		if _, _, err := svc.CreateEmployee(ctx, e); err != nil {
			t.Fatalf("seed %s: %v", e.Name, err)
		}
	}

	q := query.Default()
	q.Department = "Engineering"
	q.SortKey = query.SortByIncome
	view := svc.DeriveView(ctx, q)
	if len(view) != 2 {
		t.Fatalf("expected 2 engineering records, got %d", len(view))
	}
	if view[0].Name != "Alice" || view[1].Name != "Carol" {
		t.Fatalf("expected income ascending Alice,Carol got %s,%s", view[0].Name, view[1].Name)
	}
}

func TestServiceStats(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())

	seed := []Employee{
		{Name: "A", Department: "Engineering", Income: 120000, IsActive: true},
		{Name: "B", Department: "Sales", Income: 60000, IsActive: true},
		{Name: "C", Department: "Sales", Income: 90000, IsActive: false},
	}
	for _, e := range seed {
		if _, _, err := svc.CreateEmployee(ctx, e); err != nil {
			t.Fatalf("seed %s: %v", e.Name, err)
		}
	}

	stats := svc.Stats(ctx)
	if stats.Total != 3 || stats.ActiveCount != 2 || stats.DistinctDepartments != 2 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if stats.MonthlyPayroll != 15000 {
		t.Fatalf("expected monthly payroll 15000 got %v", stats.MonthlyPayroll)
	}
}

func TestServiceExportCSV(t *testing.T) {
	ctx := context.Background()
	svc := NewInMemoryService(NewRulesEngine())

	if _, err := svc.ExportCSV(ctx, query.Default()); !errors.Is(err, export.ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput on empty roster, got %v", err)
	}

	if _, _, err := svc.CreateEmployee(ctx, Employee{EmployeeID: "EMP-1", Name: "Ada", Income: 100000, IsActive: true}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	data, err := svc.ExportCSV(ctx, query.Default())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected csv bytes")
	}
}

func TestServiceRunWrapperReportsErrors(t *testing.T) {
	logger := &captureLogger{}
	svc := NewInMemoryService(NewRulesEngine(), WithLogger(logger))

	if _, err := svc.DeleteEmployee(context.Background(), "missing"); err == nil {
		t.Fatalf("expected delete of missing employee to fail")
	}
	if !logger.has("error", "operation failed") {
		t.Fatalf("expected error log entry, got %+v", logger.entries)
	}
}

type logEntry struct {
	level string
	msg   string
}

type captureLogger struct {
	entries []logEntry
}

func (l *captureLogger) log(level, msg string) {
	l.entries = append(l.entries, logEntry{level: level, msg: msg})
}

func (l *captureLogger) Debug(msg string, _ ...any) { l.log("debug", msg) }
func (l *captureLogger) Info(msg string, _ ...any)  { l.log("info", msg) }
func (l *captureLogger) Warn(msg string, _ ...any)  { l.log("warn", msg) }
func (l *captureLogger) Error(msg string, _ ...any) { l.log("error", msg) }

func (l *captureLogger) has(level, msg string) bool {
	for _, e := range l.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}
