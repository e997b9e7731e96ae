// Package query turns raw listing parameters into a read plan: the resolved
// combination of keyword search, field filters, and pagination that the
// product repository executes as a single fetch.
package query

import (
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/hazelmart/catalog/pkg/errors"
)

// DefaultPerPage is the fixed page size for product listings.
const DefaultPerPage = 12

// Filterable fields. Anything else in the query string is ignored rather
// than rejected, so unknown filters degrade to "no constraint".
var (
	equalityFields = map[string]bool{
		"category": true,
		"type":     true,
	}
	numericFields = map[string]bool{
		"price":  true,
		"rating": true,
	}
)

// Range is a half-open or closed numeric bound on a product field.
type Range struct {
	GTE *float64
	LTE *float64
}

// Plan is an executable read plan over the catalog.
type Plan struct {
	// Keyword, when non-empty, constrains the product name with a
	// case-insensitive substring match.
	Keyword string
	// Equals maps a filterable field to an exact-match value.
	Equals map[string]string
	// Ranges maps a numeric field to its bounds.
	Ranges map[string]Range
	// Page is 1-based and never less than 1.
	Page    int
	PerPage int
}

// Offset returns the row offset implied by the plan's pagination.
func (p Plan) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// HasFilters reports whether the plan constrains the catalog at all beyond
// pagination.
func (p Plan) HasFilters() bool {
	return p.Keyword != "" || len(p.Equals) > 0 || len(p.Ranges) > 0
}

// Build resolves raw query-string values into a Plan. Unrecognized keys are
// dropped silently; a recognized numeric field with a non-numeric value is
// an InvalidInput error.
func Build(values url.Values) (Plan, error) {
	plan := Plan{
		Equals:  map[string]string{},
		Ranges:  map[string]Range{},
		Page:    1,
		PerPage: DefaultPerPage,
	}

	for key := range values {
		raw := values.Get(key)
		if raw == "" {
			continue
		}

		field, bound := splitBound(key)
		switch {
		case key == "keyword":
			plan.Keyword = raw

		case key == "page":
			page, err := strconv.Atoi(raw)
			if err != nil {
				return Plan{}, apperrors.InvalidInput("page must be an integer")
			}
			if page < 1 {
				page = 1
			}
			plan.Page = page

		case equalityFields[key]:
			plan.Equals[key] = raw

		case numericFields[field]:
			val, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Plan{}, apperrors.InvalidInput(field + " must be numeric")
			}
			r := plan.Ranges[field]
			switch bound {
			case "gte":
				r.GTE = &val
			case "lte":
				r.LTE = &val
			default:
				// Bare numeric value means exact match, expressed as a
				// closed range of one point.
				r.GTE = &val
				r.LTE = &val
			}
			plan.Ranges[field] = r
		}
	}

	return plan, nil
}

// splitBound splits "price[gte]" into ("price", "gte"). A key without a
// bound suffix comes back with an empty bound.
func splitBound(key string) (field, bound string) {
	open := strings.IndexByte(key, '[')
	if open < 0 || !strings.HasSuffix(key, "]") {
		return key, ""
	}
	return key[:open], key[open+1 : len(key)-1]
}
