// Package query implements the pure derivation pipeline that turns the
// store's employee set plus user-controlled parameters into the ordered,
// filtered view shown to the user. Every function in this package is a pure
// function of its inputs: no hidden state, no I/O, deterministic output.
package query

import "rostercore/pkg/domain"

// SortOrder selects the direction of an ordering.
type SortOrder string

const (
	// SortAscending orders smallest first.
	SortAscending SortOrder = "ascending"
	// SortDescending orders largest first.
	SortDescending SortOrder = "descending"
)

// SortKey names an orderable employee field.
type SortKey string

// Orderable employee fields. Every key listed here has an entry in the
// comparator dispatch table; the pairing is validated at package init.
const (
	SortByName         SortKey = "name"
	SortByEmail        SortKey = "email"
	SortByEmployeeID   SortKey = "employee_id"
	SortByContact      SortKey = "contact"
	SortByAddress      SortKey = "address"
	SortByPosition     SortKey = "position"
	SortByDepartment   SortKey = "department"
	SortByStatus       SortKey = "status"
	SortByIncome       SortKey = "income"
	SortByPerformance  SortKey = "performance"
	SortByDateOfBirth  SortKey = "date_of_birth"
	SortByJoiningDate  SortKey = "joining_date"
	SortByPayFrequency SortKey = "pay_frequency"
	SortByGender       SortKey = "gender"
)

// Sentinel category values meaning "do not filter on this dimension".
const (
	AllDepartments = "All"
	AllPositions   = "All"
)

// Query holds the user-controlled parameters that determine the derived
// view. It is ephemeral session state and is never persisted.
type Query struct {
	// Search is matched case-insensitively as a substring against name,
	// email, position, department and employee id. Empty disables the stage.
	Search string `json:"search"`
	// Department filters on exact (case-sensitive) equality unless set to
	// AllDepartments.
	Department string `json:"department"`
	// Position filters on exact (case-sensitive) equality unless set to
	// AllPositions.
	Position  string    `json:"position"`
	SortKey   SortKey   `json:"sort_key"`
	SortOrder SortOrder `json:"sort_order"`
}

// Default returns the query used at session start: everything visible,
// ordered by name ascending.
func Default() Query {
	return Query{
		Department: AllDepartments,
		Position:   AllPositions,
		SortKey:    SortByName,
		SortOrder:  SortAscending,
	}
}

// DeriveView computes the displayed record sequence: filter stages first,
// then a stable sort. Identical inputs always yield element-for-element
// identical output; the input slice is never reordered or mutated.
func DeriveView(records []domain.Employee, q Query) []domain.Employee {
	return SortRecords(Filter(records, q), q.SortKey, q.SortOrder)
}
