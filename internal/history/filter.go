package history

import (
	"github.com/spec-kit/history-diff-service/internal/domain"
	"github.com/spec-kit/history-diff-service/internal/htmldiff"
)

// Filter hides rows whose label matches a configured pattern.
type Filter struct {
	cfg domain.UserConfig
}

func NewFilter(cfg domain.UserConfig) *Filter {
	return &Filter{cfg: cfg}
}

// IsShown reports whether a row with the given label passes the filter.
// Patterns match case-insensitively with '*' as wildcard; a matching
// pattern hides the row.
func (f *Filter) IsShown(label string) bool {
	if f.cfg.FieldFiltersDisabled || len(f.cfg.FieldFilters) == 0 {
		return true
	}
	for _, pattern := range f.cfg.FieldFilters {
		if htmldiff.WildcardMatch(label, pattern) {
			return false
		}
	}
	return true
}

// Apply removes hidden rows from every update and drops updates left with
// no rows, so filtered-out changes don't appear as empty headers. Applying
// the same filter twice is a no-op.
func (f *Filter) Apply(updates []*domain.Update) []*domain.Update {
	out := updates[:0]
	for _, u := range updates {
		rows := u.Rows[:0]
		for _, row := range u.Rows {
			if f.IsShown(row.Label) {
				rows = append(rows, row)
			}
		}
		u.Rows = rows
		if len(u.Rows) > 0 {
			out = append(out, u)
		}
	}
	return out
}
