package query

import "rostercore/pkg/domain"

// Summary aggregates roster-wide figures. It is always derived from the
// full unfiltered record set, never from a filtered view.
type Summary struct {
	Total               int     `json:"total"`
	ActiveCount         int     `json:"active_count"`
	DistinctDepartments int     `json:"distinct_departments"`
	// MonthlyPayroll approximates the monthly outlay as the sum of annual
	// income over active records divided by twelve. Inactive records
	// contribute zero.
	MonthlyPayroll float64 `json:"monthly_payroll"`
}

// Stats computes the roster summary. Department uniqueness counts every
// record regardless of activity status.
func Stats(records []domain.Employee) Summary {
	departments := make(map[string]struct{}, len(records))
	s := Summary{Total: len(records)}
	var annual float64
	for _, e := range records {
		departments[e.Department] = struct{}{}
		if e.IsActive {
			s.ActiveCount++
			annual += e.Income
		}
	}
	s.DistinctDepartments = len(departments)
	s.MonthlyPayroll = annual / 12
	return s
}
