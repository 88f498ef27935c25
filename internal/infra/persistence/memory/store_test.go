package memory

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"rostercore/pkg/domain"
)

func TestStoreCreateUpdateDeleteEmployee(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	var created Employee
	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		var err error
		created, err = tx.CreateEmployee(Employee{Name: "Ada", Department: "Engineering", IsActive: true})
		return err
	}); err != nil {
		t.Fatalf("create employee: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected generated id")
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateEmployee(created.ID, func(e *Employee) error {
			e.Department = "Research"
			return nil
		})
		return err
	}); err != nil {
		t.Fatalf("update employee: %v", err)
	}

	updated, ok := store.GetEmployee(created.ID)
	if !ok {
		t.Fatalf("expected employee %q to exist", created.ID)
	}
	if updated.Department != "Research" {
		t.Fatalf("expected department Research got %q", updated.Department)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("update must preserve creation timestamp")
	}

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteEmployee(created.ID)
	}); err != nil {
		t.Fatalf("delete employee: %v", err)
	}
	if _, ok := store.GetEmployee(created.ID); ok {
		t.Fatalf("expected employee to be deleted")
	}
}

func TestStoreMissingEmployeeReturnsNotFound(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.UpdateEmployee("missing", func(e *Employee) error { return nil })
		return err
	})
	var notFound domain.NotFoundError
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError got %v", err)
	}
	if notFound.Entity != domain.EntityEmployee || notFound.ID != "missing" {
		t.Fatalf("unexpected error detail: %+v", notFound)
	}

	_, err = store.RunInTransaction(ctx, func(tx Transaction) error {
		return tx.DeleteEmployee("missing")
	})
	if !errors.As(err, &notFound) {
		t.Fatalf("expected NotFoundError on delete got %v", err)
	}
}

func TestStoreCreateCollisionIsNotANotFound(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateEmployee(Employee{Base: domain.Base{ID: "fixed"}, Name: "First"})
		return err
	}); err != nil {
		t.Fatalf("seed employee: %v", err)
	}

	_, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		_, err := tx.CreateEmployee(Employee{Base: domain.Base{ID: "fixed"}, Name: "Second"})
		return err
	})
	if err == nil {
		t.Fatalf("expected create collision to fail")
	}
	var notFound domain.NotFoundError
	if errors.As(err, &notFound) {
		t.Fatalf("collision must not report NotFoundError, got %v", err)
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already-exists error, got %q", err)
	}

	kept, ok := store.GetEmployee("fixed")
	if !ok || kept.Name != "First" {
		t.Fatalf("original record must survive the failed create: %+v", kept)
	}
}

func TestStoreTransactionRollbackOnError(t *testing.T) {
	store := NewStore(nil)
	ctx := context.Background()
	boom := errors.New("boom")

	if _, err := store.RunInTransaction(ctx, func(tx Transaction) error {
		if _, err := tx.CreateEmployee(Employee{Name: "Ghost"}); err != nil {
			return err
		}
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected transaction error got %v", err)
	}
	if got := len(store.ListEmployees()); got != 0 {
		t.Fatalf("expected rollback to discard writes, found %d records", got)
	}
}

type blockingRule struct{}

func (blockingRule) Name() string { return "always_block" }

func (blockingRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for range changes {
		res.Violations = append(res.Violations, domain.Violation{
			Rule:     "always_block",
			Severity: domain.SeverityBlock,
			Message:  "blocked",
		})
	}
	return res, nil
}

func TestStoreBlockingRuleAbortsCommit(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockingRule{})
	store := NewStore(engine)

	_, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateEmployee(Employee{Name: "Nope"})
		return err
	})
	var violation domain.RuleViolationError
	if !errors.As(err, &violation) {
		t.Fatalf("expected RuleViolationError got %v", err)
	}
	if got := len(store.ListEmployees()); got != 0 {
		t.Fatalf("blocked transaction must not commit, found %d records", got)
	}
}

func TestStoreListEmployeesDeterministicOrder(t *testing.T) {
	store := NewStore(nil)
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	step := 0
	store.nowFn = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	names := []string{"Cara", "Abe", "Bo"}
	for _, name := range names {
		if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
			_, err := tx.CreateEmployee(Employee{Name: name})
			return err
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}

	listed := store.ListEmployees()
	if len(listed) != len(names) {
		t.Fatalf("expected %d employees got %d", len(names), len(listed))
	}
	for i, name := range names {
		if listed[i].Name != name {
			t.Fatalf("expected insertion order at %d: want %q got %q", i, name, listed[i].Name)
		}
	}
}

func TestStoreExportImportRoundTrip(t *testing.T) {
	source := NewStore(nil)
	if _, err := source.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateEmployee(Employee{Name: "Ada", Department: "Engineering"})
		return err
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	target := NewStore(nil)
	target.ImportState(source.ExportState())

	if got, want := len(target.ListEmployees()), len(source.ListEmployees()); got != want {
		t.Fatalf("expected %d employees after import got %d", want, got)
	}
}

func TestMigrateSnapshotNormalizesState(t *testing.T) {
	snapshot := migrateSnapshot(Snapshot{})
	if snapshot.Employees == nil {
		t.Fatalf("expected employees map to be initialized")
	}

	snapshot = migrateSnapshot(Snapshot{Employees: map[string]Employee{
		"emp-1": {Base: domain.Base{ID: "stale"}},
	}})
	if got := snapshot.Employees["emp-1"].ID; got != "emp-1" {
		t.Fatalf("expected id re-anchored to map key got %q", got)
	}
}

func TestStoreViewSeesConsistentSnapshot(t *testing.T) {
	store := NewStore(nil)
	if _, err := store.RunInTransaction(context.Background(), func(tx Transaction) error {
		_, err := tx.CreateEmployee(Employee{Name: "Ada"})
		return err
	}); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	if err := store.View(context.Background(), func(view TransactionView) error {
		if got := len(view.ListEmployees()); got != 1 {
			t.Fatalf("expected 1 employee in view got %d", got)
		}
		return nil
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
}
