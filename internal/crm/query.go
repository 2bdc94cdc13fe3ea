package crm

import (
	"fmt"
	"strings"
)

// Criterion is one field/value pair for a search query.
type Criterion struct {
	Field string
	Value string
}

// EqualsQuery builds a search criteria string in the remote API's query
// language: `(Field:equals:Value)` terms joined by ` or `.
func EqualsQuery(criteria ...Criterion) string {
	terms := make([]string, 0, len(criteria))
	for _, c := range criteria {
		if c.Field == "" {
			continue
		}
		terms = append(terms, fmt.Sprintf("(%s:equals:%s)", c.Field, c.Value))
	}
	return strings.Join(terms, " or ")
}
