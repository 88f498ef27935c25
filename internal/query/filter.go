package query

import (
	"strings"

	"rostercore/pkg/domain"
)

// Filter applies the three filter stages in fixed order: free-text search,
// department equality, position equality. Stages compose by intersection
// and each inactive stage is an identity, so relative input order is always
// preserved.
func Filter(records []domain.Employee, q Query) []domain.Employee {
	out := records
	out = searchStage(out, q.Search)
	out = departmentStage(out, q.Department)
	out = positionStage(out, q.Position)
	// Callers must never observe aliasing with the store's backing slice.
	return append([]domain.Employee(nil), out...)
}

// searchStage keeps records where term occurs case-insensitively in at
// least one searchable field. No tokenization, no fuzzy matching.
func searchStage(records []domain.Employee, term string) []domain.Employee {
	if term == "" {
		return records
	}
	needle := strings.ToLower(term)
	out := make([]domain.Employee, 0, len(records))
	for _, e := range records {
		if matchesSearch(e, needle) {
			out = append(out, e)
		}
	}
	return out
}

func matchesSearch(e domain.Employee, needle string) bool {
	for _, field := range []string{e.Name, e.Email, e.Position, e.Department, e.EmployeeID} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// departmentStage keeps records whose department equals the filter exactly,
// case-sensitively.
func departmentStage(records []domain.Employee, department string) []domain.Employee {
	if department == "" || department == AllDepartments {
		return records
	}
	out := make([]domain.Employee, 0, len(records))
	for _, e := range records {
		if e.Department == department {
			out = append(out, e)
		}
	}
	return out
}

// positionStage mirrors departmentStage over the position field.
func positionStage(records []domain.Employee, position string) []domain.Employee {
	if position == "" || position == AllPositions {
		return records
	}
	out := make([]domain.Employee, 0, len(records))
	for _, e := range records {
		if e.Position == position {
			out = append(out, e)
		}
	}
	return out
}
