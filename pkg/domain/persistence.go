package domain

import "context"

// Transaction exposes the domain operations that a persistence implementation
// must support within an atomic scope.
type Transaction interface {
	Snapshot() TransactionView
	CreateEmployee(Employee) (Employee, error)
	UpdateEmployee(id string, mutator func(*Employee) error) (Employee, error)
	DeleteEmployee(id string) error
	FindEmployee(id string) (Employee, bool)
}

// TransactionView provides read-only access to snapshot data for rules and
// derivations. Implementations return defensive copies; callers may retain
// the returned slices without observing later mutations.
type TransactionView interface {
	ListEmployees() []Employee
	FindEmployee(id string) (Employee, bool)
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetEmployee(id string) (Employee, bool)
	ListEmployees() []Employee
}
