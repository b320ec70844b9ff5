// Package storage holds the pieces shared by the e-class store adapters.
package storage

import (
	"fmt"
	"strings"

	"github.com/eclassroom/eclass/internal/platform/filter"
	"github.com/eclassroom/eclass/internal/services/eclass/domain"
)

// Columns follow the same names in every adapter so filters translate once.
var filterSchema = filter.Schema{
	"id":           {Column: "id", Kind: filter.KindString},
	"status":       {Column: "status", Kind: filter.KindString, Normalize: normalizeStatus},
	"school_year":  {Column: "school_year", Kind: filter.KindString, Normalize: normalizeSchoolYear},
	"professor_id": {Column: "professor_id", Kind: filter.KindString},
	"subject":      {Column: "subject_name", Kind: filter.KindString},
	"topic":        {Column: "topic", Kind: filter.KindString},
	"place":        {Column: "place", Kind: filter.KindString},
	"start":        {Column: "start_ms", Kind: filter.KindTimestamp},
	"end":          {Column: "end_ms", Kind: filter.KindTimestamp},
	"is_recorded":  {Column: "is_recorded", Kind: filter.KindBool},
	"reminded":     {Column: "reminded", Kind: filter.KindBool},
}

// ParseFilter translates an AIP-160 e-class filter to SQL with `?`
// placeholders. Failures wrap domain.ErrInvalidFilter.
func ParseFilter(raw string) (filter.Condition, error) {
	cond, err := filterSchema.Parse(raw)
	if err != nil {
		return filter.Condition{}, fmt.Errorf("%w: %v", domain.ErrInvalidFilter, err)
	}
	return cond, nil
}

func normalizeStatus(value string) (string, error) {
	status, ok := domain.ParseStatus(value)
	if !ok {
		return "", fmt.Errorf("unknown status %q", value)
	}
	return string(status), nil
}

func normalizeSchoolYear(value string) (string, error) {
	year := domain.SchoolYear(strings.ToUpper(strings.TrimSpace(value)))
	if !year.Valid() {
		return "", fmt.Errorf("unknown school year %q", value)
	}
	return string(year), nil
}

// StatusStrings converts statuses to their stored form.
func StatusStrings(statuses []domain.Status) []any {
	out := make([]any, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

// Placeholders returns n comma separated `?` placeholders.
func Placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
