package core

import (
	"context"
	"fmt"

	"rostercore/pkg/domain"
)

// NegativeIncomeRule blocks transactions that would persist an employee
// with a negative annual income.
type NegativeIncomeRule struct{}

// Name identifies the rule in violation reports.
func (NegativeIncomeRule) Name() string { return "negative_income" }

// Evaluate inspects only the records touched by the transaction.
func (NegativeIncomeRule) Evaluate(_ context.Context, _ domain.RuleView, changes []domain.Change) (domain.Result, error) {
	res := domain.Result{}
	for _, change := range changes {
		if change.Entity != domain.EntityEmployee || change.Action == domain.ActionDelete {
			continue
		}
		employee, ok := change.After.(domain.Employee)
		if !ok {
			continue
		}
		if employee.Income < 0 {
			res.Violations = append(res.Violations, domain.Violation{
				Rule:     "negative_income",
				Severity: domain.SeverityBlock,
				Message:  fmt.Sprintf("employee %s has negative income %.2f", employee.ID, employee.Income),
				Entity:   domain.EntityEmployee,
				EntityID: employee.ID,
			})
		}
	}
	return res, nil
}
