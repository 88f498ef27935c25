// Package memory provides an in-memory implementation of the core persistence
// store used for tests and ephemeral environments.
package memory

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"rostercore/pkg/domain"
)

// Compile-time contract assertion ensuring memory.Store adheres to the domain persistence interface.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Employee aliases domain.Employee for in-memory persistence operations.
	Employee = domain.Employee
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
	// PersistentStore aliases domain.PersistentStore abstraction.
	PersistentStore = domain.PersistentStore
)

type memoryState struct {
	employees map[string]Employee
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Employees map[string]Employee `json:"employees"`
}

func newMemoryState() memoryState {
	return memoryState{employees: make(map[string]Employee)}
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{Employees: make(map[string]Employee, len(state.employees))}
	for k, v := range state.employees {
		s.Employees[k] = v
	}
	return s
}

func memoryStateFromSnapshot(s Snapshot) memoryState {
	state := newMemoryState()
	for k, v := range s.Employees {
		state.employees[k] = v
	}
	return state
}

// migrateSnapshot normalizes snapshots loaded from persistence: nil buckets
// become empty maps and record IDs are re-anchored to their map keys.
func migrateSnapshot(snapshot Snapshot) Snapshot {
	if snapshot.Employees == nil {
		snapshot.Employees = map[string]Employee{}
	}
	for id, e := range snapshot.Employees {
		if e.ID != id {
			e.ID = id
			snapshot.Employees[id] = e
		}
	}
	return snapshot
}

func (s memoryState) clone() memoryState {
	cloned := newMemoryState()
	for k, v := range s.employees {
		cloned.employees[k] = v
	}
	return cloned
}

// Store provides an in-memory transactional store for the core domain.
// Every transaction works on a full clone of the state and commits it
// wholesale, so readers always observe one consistent snapshot and a failed
// transaction leaves nothing behind.
type Store struct {
	mu     sync.RWMutex
	state  memoryState
	engine *RulesEngine
	nowFn  func() time.Time
}

// NewStore constructs an in-memory store backed by the provided rules engine.
func NewStore(engine *RulesEngine) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	return &Store{
		state:  newMemoryState(),
		engine: engine,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) newID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b[:])
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot.
func (s *Store) ImportState(snapshot Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = memoryStateFromSnapshot(migrateSnapshot(snapshot))
}

// RulesEngine exposes the currently configured engine for integration points.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// NowFunc returns the time provider used by the in-memory store.
func (s *Store) NowFunc() func() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nowFn
}

// SetNowFunc replaces the time provider. Record timestamps in subsequent
// transactions come from fn.
func (s *Store) SetNowFunc(fn func() time.Time) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nowFn = fn
}

// transaction represents a mutation set applied to the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	now     time.Time
}

// transactionView exposes a read-only snapshot of the transactional state to rules.
type transactionView struct {
	state *memoryState
}

func newTransactionView(state *memoryState) TransactionView {
	return transactionView{state: state}
}

// ListEmployees returns all employees in the snapshot ordered by creation
// time, then ID. The deterministic base order keeps downstream derivations
// idempotent.
func (v transactionView) ListEmployees() []Employee {
	return sortedEmployees(v.state.employees)
}

// FindEmployee retrieves an employee by ID from the snapshot.
func (v transactionView) FindEmployee(id string) (Employee, bool) {
	e, ok := v.state.employees[id]
	if !ok {
		return Employee{}, false
	}
	return e, true
}

func sortedEmployees(employees map[string]Employee) []Employee {
	out := make([]Employee, 0, len(employees))
	for _, e := range employees {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// RunInTransaction executes fn within a transactional copy of the store state.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
		now:   s.nowFn(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		res, err := s.engine.Evaluate(ctx, newTransactionView(&tx.state), tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := s.state.clone()
	return fn(newTransactionView(&snapshot))
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state)
}

// FindEmployee exposes employee lookup within the transaction scope.
func (tx *transaction) FindEmployee(id string) (Employee, bool) {
	e, ok := tx.state.employees[id]
	if !ok {
		return Employee{}, false
	}
	return e, true
}

// CreateEmployee stores a new employee within the transaction.
func (tx *transaction) CreateEmployee(e Employee) (Employee, error) {
	if e.ID == "" {
		e.ID = tx.store.newID()
	}
	if _, exists := tx.state.employees[e.ID]; exists {
		return Employee{}, fmt.Errorf("employee %q already exists", e.ID)
	}
	e.CreatedAt = tx.now
	e.UpdatedAt = tx.now
	tx.state.employees[e.ID] = e
	tx.recordChange(Change{Entity: domain.EntityEmployee, Action: domain.ActionCreate, After: e})
	return e, nil
}

// UpdateEmployee mutates an employee using the provided mutator function.
// The stored value is replaced wholesale; callers never observe a partially
// mutated record.
func (tx *transaction) UpdateEmployee(id string, mutator func(*Employee) error) (Employee, error) {
	current, ok := tx.state.employees[id]
	if !ok {
		return Employee{}, domain.NotFoundError{Entity: domain.EntityEmployee, ID: id}
	}
	before := current
	if err := mutator(&current); err != nil {
		return Employee{}, err
	}
	current.ID = id
	current.CreatedAt = before.CreatedAt
	current.UpdatedAt = tx.now
	tx.state.employees[id] = current
	tx.recordChange(Change{Entity: domain.EntityEmployee, Action: domain.ActionUpdate, Before: before, After: current})
	return current, nil
}

// DeleteEmployee removes an employee from the transaction state.
func (tx *transaction) DeleteEmployee(id string) error {
	current, ok := tx.state.employees[id]
	if !ok {
		return domain.NotFoundError{Entity: domain.EntityEmployee, ID: id}
	}
	delete(tx.state.employees, id)
	tx.recordChange(Change{Entity: domain.EntityEmployee, Action: domain.ActionDelete, Before: current})
	return nil
}

// GetEmployee retrieves an employee by ID from committed state.
func (s *Store) GetEmployee(id string) (Employee, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.state.employees[id]
	if !ok {
		return Employee{}, false
	}
	return e, true
}

// ListEmployees returns all employees from committed state ordered by
// creation time, then ID.
func (s *Store) ListEmployees() []Employee {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedEmployees(s.state.employees)
}
