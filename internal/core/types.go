// Package core exposes the transactional roster service: CRUD over employee
// records, derived views, aggregate statistics, and CSV export, with
// pluggable persistence and observability.
package core

import (
	"rostercore/pkg/domain"
)

// Domain aliases keep call sites in this package and its consumers concise.
type (
	// Employee aliases the domain employee record.
	Employee = domain.Employee
	// Result aliases the rule evaluation result.
	Result = domain.Result
	// Violation aliases a single rule violation.
	Violation = domain.Violation
	// RulesEngine aliases the domain rules engine.
	RulesEngine = domain.RulesEngine
	// Rule aliases the domain rule contract.
	Rule = domain.Rule
	// Transaction aliases the persistence transaction contract.
	Transaction = domain.Transaction
	// TransactionView aliases the read-only snapshot contract.
	TransactionView = domain.TransactionView
	// PersistentStore aliases the storage abstraction.
	PersistentStore = domain.PersistentStore
)

// NewRulesEngine constructs an empty rules engine.
func NewRulesEngine() *RulesEngine { return domain.NewRulesEngine() }

// NewDefaultRulesEngine constructs an engine with the built-in roster rules
// registered: duplicate badge identifiers warn, negative income blocks.
func NewDefaultRulesEngine() *RulesEngine {
	engine := domain.NewRulesEngine()
	engine.Register(DuplicateBadgeRule{})
	engine.Register(NegativeIncomeRule{})
	return engine
}
