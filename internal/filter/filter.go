// Package filter keeps the product records the pipeline cares about.
package filter

import (
	"strings"

	"GroceryScanner/internal/domain"
)

// Policy selects products by category and description keyword.
type Policy struct {
	// Categories match the category field case-sensitively as substrings.
	Categories []string
	// Keywords match the lower-cased description as substrings.
	Keywords []string
}

// DefaultPolicy keeps dairy and bakery eggs and bread.
func DefaultPolicy() Policy {
	return Policy{
		Categories: []string{"Dairy", "Bakery"},
		Keywords:   []string{"egg", "bread"},
	}
}

// Apply returns the records matching both a category and a keyword.
func (p Policy) Apply(records []domain.ProductRecord) []domain.ProductRecord {
	kept := make([]domain.ProductRecord, 0, len(records))
	for _, rec := range records {
		if p.Match(rec) {
			kept = append(kept, rec)
		}
	}
	return kept
}

// Match reports whether a single record passes the policy.
func (p Policy) Match(rec domain.ProductRecord) bool {
	return containsAny(rec.Category(), p.Categories) &&
		containsAny(strings.ToLower(rec.Description), p.Keywords)
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
