package feed

import "strings"

// FilterAll matches every category or kind
const FilterAll = "all"

// Filter selects the displayed subset of an aggregated feed. Empty fields
// and FilterAll do not constrain the result.
type Filter struct {
	Term       string `json:"q,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
	Kind       string `json:"kind,omitempty"`
}

// IsZero reports whether f lets every listing through
func (f Filter) IsZero() bool {
	return strings.TrimSpace(f.Term) == "" && passThrough(f.CategoryID) && passThrough(f.Kind)
}

// Project returns the view models matching every predicate of f, in their
// original order. The input is never modified.
func Project(list []FeedViewModel, f Filter) []FeedViewModel {
	term := strings.ToLower(strings.TrimSpace(f.Term))

	out := make([]FeedViewModel, 0, len(list))
	for _, vm := range list {
		if !passThrough(f.Kind) && string(vm.Kind) != f.Kind {
			continue
		}
		if !passThrough(f.CategoryID) && vm.CategoryID != f.CategoryID {
			continue
		}
		if term != "" && !matchesTerm(&vm.Listing, term) {
			continue
		}
		out = append(out, vm)
	}
	return out
}

func passThrough(v string) bool {
	return v == "" || v == FilterAll
}

// matchesTerm reports whether any searchable field contains term, which
// must already be lower case
func matchesTerm(l *Listing, term string) bool {
	if containsFold(l.Title, term) ||
		containsFold(l.Description, term) ||
		containsFold(l.Location, term) ||
		containsFold(l.CategoryName, term) {
		return true
	}
	for _, tag := range l.Tags {
		if containsFold(tag, term) {
			return true
		}
	}
	return false
}

func containsFold(s, lowerTerm string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerTerm)
}
