package query

import (
	"fmt"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"rostercore/pkg/domain"
)

// fieldKind tags the comparison strategy for a sortable field. Dispatch is
// table-driven rather than inspecting runtime types so that an unmapped key
// is caught at init instead of silently misbehaving at sort time.
type fieldKind int

const (
	kindString fieldKind = iota
	kindNumber
	kindBool
)

type sortField struct {
	kind fieldKind
	str  func(domain.Employee) string
	num  func(domain.Employee) float64
	flag func(domain.Employee) bool
}

var sortFields = map[SortKey]sortField{
	SortByName:         {kind: kindString, str: func(e domain.Employee) string { return e.Name }},
	SortByEmail:        {kind: kindString, str: func(e domain.Employee) string { return e.Email }},
	SortByEmployeeID:   {kind: kindString, str: func(e domain.Employee) string { return e.EmployeeID }},
	SortByContact:      {kind: kindString, str: func(e domain.Employee) string { return e.Contact }},
	SortByAddress:      {kind: kindString, str: func(e domain.Employee) string { return e.Address }},
	SortByPosition:     {kind: kindString, str: func(e domain.Employee) string { return e.Position }},
	SortByDepartment:   {kind: kindString, str: func(e domain.Employee) string { return e.Department }},
	SortByDateOfBirth:  {kind: kindString, str: func(e domain.Employee) string { return e.DateOfBirth }},
	SortByJoiningDate:  {kind: kindString, str: func(e domain.Employee) string { return e.JoiningDate }},
	SortByPayFrequency: {kind: kindString, str: func(e domain.Employee) string { return string(e.PayFrequency) }},
	SortByGender:       {kind: kindString, str: func(e domain.Employee) string { return string(e.Gender) }},
	SortByIncome:       {kind: kindNumber, num: func(e domain.Employee) float64 { return e.Income }},
	SortByPerformance:  {kind: kindNumber, num: func(e domain.Employee) float64 { return e.Performance }},
	SortByStatus:       {kind: kindBool, flag: func(e domain.Employee) bool { return e.IsActive }},
}

// orderableKeys mirrors the SortKey constants; init verifies the dispatch
// table covers each of them.
var orderableKeys = []SortKey{
	SortByName, SortByEmail, SortByEmployeeID, SortByContact, SortByAddress,
	SortByPosition, SortByDepartment, SortByStatus, SortByIncome,
	SortByPerformance, SortByDateOfBirth, SortByJoiningDate,
	SortByPayFrequency, SortByGender,
}

func init() {
	for _, key := range orderableKeys {
		field, ok := sortFields[key]
		if !ok {
			panic(fmt.Sprintf("query: sort key %q has no comparator entry", key))
		}
		switch field.kind {
		case kindString:
			if field.str == nil {
				panic(fmt.Sprintf("query: sort key %q missing string accessor", key))
			}
		case kindNumber:
			if field.num == nil {
				panic(fmt.Sprintf("query: sort key %q missing numeric accessor", key))
			}
		case kindBool:
			if field.flag == nil {
				panic(fmt.Sprintf("query: sort key %q missing bool accessor", key))
			}
		}
	}
}

// Collators buffer internal state between calls and are not safe for
// concurrent use, so they are pooled rather than shared.
var collators = sync.Pool{
	New: func() any { return collate.New(language.Und) },
}

// Compare orders two employees by the given key and direction, returning a
// negative, zero or positive value. String fields use locale-aware
// collation; numeric fields compare by subtraction sign; the status field
// ranks active above inactive with the ranking inverted relative to the
// sort order so that ascending surfaces active records first. Unknown keys
// compare as equal, which together with stable sorting preserves input
// order.
func Compare(a, b domain.Employee, key SortKey, order SortOrder) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return compareWith(c, a, b, key, order)
}

func compareWith(c *collate.Collator, a, b domain.Employee, key SortKey, order SortOrder) int {
	field, ok := sortFields[key]
	if !ok {
		return 0
	}
	var cmp int
	switch field.kind {
	case kindBool:
		// Deliberate inversion: active-first in ascending mode. Surfacing
		// active records is the expected default view.
		cmp = boolRank(field.flag(b)) - boolRank(field.flag(a))
	case kindNumber:
		cmp = sign(field.num(a) - field.num(b))
	default:
		cmp = c.CompareString(field.str(a), field.str(b))
	}
	if order == SortDescending {
		cmp = -cmp
	}
	return cmp
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// sign maps a difference to {-1, 0, 1}. NaN differences (unorderable
// values) fall through to zero, leaving prior relative order intact.
func sign(d float64) int {
	switch {
	case d > 0:
		return 1
	case d < 0:
		return -1
	default:
		return 0
	}
}
