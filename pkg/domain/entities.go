// Package domain defines the core persistent entities, value types, and
// rule evaluation primitives used by rostercore.
package domain

import (
	"fmt"
	"time"
)

// EntityType identifies the type of record stored in the core domain.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityEmployee identifies an individual employee record.
	EntityEmployee EntityType = "employee"
)

// PayFrequency enumerates the supported payroll cadences.
type PayFrequency string

// Canonical pay frequencies accepted on employee records.
const (
	PayMonthly  PayFrequency = "Monthly"
	PayBiweekly PayFrequency = "Bi-weekly"
	PayWeekly   PayFrequency = "Weekly"
	PayAnnually PayFrequency = "Annually"
)

// Gender enumerates the gender values captured on employee records.
type Gender string

// Canonical gender values.
const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// Base contains common fields for all domain records.
type Base struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Employee represents one employee tracked by the roster. Values are
// immutable from the perspective of derivations: edits replace the stored
// value wholesale rather than mutating fields in place.
type Employee struct {
	Base
	// EmployeeID is the human-facing badge identifier. It is displayed and
	// searchable but not guaranteed unique by the store.
	EmployeeID  string `json:"employee_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Contact     string `json:"contact"`
	Address     string `json:"address"`
	DateOfBirth string `json:"date_of_birth"` // ISO YYYY-MM-DD, not validated
	JoiningDate string `json:"joining_date"`  // ISO YYYY-MM-DD, not validated
	Position    string `json:"position"`
	Department  string `json:"department"`
	IsActive    bool   `json:"is_active"`
	// Performance is a score in [0,100]; out-of-range values pass through
	// unchanged rather than being clamped.
	Performance float64 `json:"performance"`
	// Income is the annual gross amount, currency unspecified.
	Income       float64      `json:"income"`
	PayFrequency PayFrequency `json:"pay_frequency"`
	Gender       Gender       `json:"gender"`
	AvatarURL    string       `json:"avatar_url"`
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate supported CRUD operations captured in audit trail.
const (
	// ActionCreate indicates an entity was created.
	ActionCreate Action = "create"
	// ActionUpdate indicates an entity was updated.
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// NotFoundError is returned when an update or delete references a record
// that is no longer present. The store is left unchanged.
type NotFoundError struct {
	Entity EntityType
	ID     string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}
