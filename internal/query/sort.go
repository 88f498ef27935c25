package query

import (
	"sort"

	"golang.org/x/text/collate"

	"rostercore/pkg/domain"
)

// SortRecords returns a stably sorted copy of records. The input slice is
// never reordered in place; the store's backing sequence stays untouched.
func SortRecords(records []domain.Employee, key SortKey, order SortOrder) []domain.Employee {
	out := append([]domain.Employee(nil), records...)
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	sort.SliceStable(out, func(i, j int) bool {
		return compareWith(c, out[i], out[j], key, order) < 0
	})
	return out
}
