// Package export serializes ordered employee sequences into lossless
// delimited-text documents suitable for download.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"

	"rostercore/pkg/domain"
)

// Artifact naming for the delivered document. Delivery itself (HTTP
// response, object store) is a caller concern; this package only produces
// bytes.
const (
	Filename    = "employees.csv"
	ContentType = "text/csv"
)

// ErrEmptyInput is returned when an export is attempted on zero records.
// The operation is refused outright: no header-only or zero-byte document
// is ever produced.
var ErrEmptyInput = errors.New("export: no employee records to export")

// FailureError wraps an unexpected serialization failure, preserving the
// underlying cause for diagnostics. It marks a local recovery boundary:
// the caller reports it and moves on, store state untouched.
type FailureError struct {
	cause error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("export: building csv document: %v", e.cause)
}

func (e *FailureError) Unwrap() error {
	return e.cause
}

// columns is the fixed header order. Status is derived from the activity
// flag rather than emitting the raw boolean.
var columns = []string{
	"ID", "Name", "Email", "Contact", "Address", "Position", "Department",
	"Status", "Annual Income", "Performance", "Date of Birth",
	"Joining Date", "Pay Frequency",
}

// CSV renders records as an RFC-4180 document: fields containing a comma,
// double quote or newline are wrapped in double quotes with embedded
// quotes doubled, so every value round-trips exactly through a standard
// parser. The header row always precedes data rows.
func CSV(records []domain.Employee) ([]byte, error) {
	if len(records) == 0 {
		return nil, ErrEmptyInput
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(columns); err != nil {
		return nil, &FailureError{cause: err}
	}
	for _, e := range records {
		if err := writer.Write(row(e)); err != nil {
			return nil, &FailureError{cause: err}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, &FailureError{cause: err}
	}
	return buf.Bytes(), nil
}

func row(e domain.Employee) []string {
	return []string{
		e.EmployeeID,
		e.Name,
		e.Email,
		e.Contact,
		e.Address,
		e.Position,
		e.Department,
		status(e.IsActive),
		formatNumber(e.Income),
		formatNumber(e.Performance),
		e.DateOfBirth,
		e.JoiningDate,
		string(e.PayFrequency),
	}
}

func status(active bool) string {
	if active {
		return "Active"
	}
	return "Inactive"
}

// formatNumber emits the shortest decimal form that parses back to the
// same value; no exponent notation for roster-scale figures.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
