package core

import (
	"context"
	"fmt"

	"rostercore/pkg/domain"
)

// DuplicateBadgeRule warns when two employee records share the same badge
// identifier. Badges are operator-supplied and not guaranteed unique, so
// the rule surfaces the collision without blocking the commit.
type DuplicateBadgeRule struct{}

// Name identifies the rule in violation reports.
func (DuplicateBadgeRule) Name() string { return "duplicate_badge" }

// Evaluate scans the full record set for repeated badge identifiers.
func (DuplicateBadgeRule) Evaluate(_ context.Context, view domain.RuleView, _ []domain.Change) (domain.Result, error) {
	seen := make(map[string]string)
	res := domain.Result{}
	for _, employee := range view.ListEmployees() {
		if employee.EmployeeID == "" {
			continue
		}
		if firstID, ok := seen[employee.EmployeeID]; ok {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "duplicate_badge",
				Severity: domain.SeverityWarn,
				Message:  fmt.Sprintf("badge %s already assigned to employee %s", employee.EmployeeID, firstID),
				Entity:   domain.EntityEmployee,
				EntityID: employee.ID,
			})
			continue
		}
		seen[employee.EmployeeID] = employee.ID
	}
	return res, nil
}
