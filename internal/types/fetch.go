package types

import "slices"

// DefaultFetchLimit caps result sets when no ranking limit applies.
const DefaultFetchLimit = 1000

// FetchOptions tunes one section fetch.
type FetchOptions struct {
	// CurrentTerm resolves relative phrases the parser could not resolve.
	CurrentTerm TermContext
	// MaxRows caps the result size; zero means DefaultFetchLimit.
	MaxRows int
}

// RowCap returns the effective row cap.
func (o FetchOptions) RowCap() int {
	if o.MaxRows <= 0 {
		return DefaultFetchLimit
	}
	return o.MaxRows
}

// FetchResult is what a section source returns. Filters are the constraints
// actually applied after the source dropped values that match nothing.
type FetchResult struct {
	Sections     []Section           `json:"sections"`
	Filters      Filters             `json:"filters"`
	FilteredOut  map[string][]string `json:"filtered_out,omitempty"`
	RelativeTerm *RelativeTerm       `json:"relative_term,omitempty"`
}

// Drop records values removed from a filter field.
func (r *FetchResult) Drop(field string, values ...string) {
	if len(values) == 0 {
		return
	}
	if r.FilteredOut == nil {
		r.FilteredOut = make(map[string][]string)
	}
	r.FilteredOut[field] = append(r.FilteredOut[field], values...)
}

// PruneExcludedTerms removes from Filters.Terms every label also listed in
// Filters.ExcludeTerms, recording the removal.
func (r *FetchResult) PruneExcludedTerms() {
	f := &r.Filters
	if len(f.ExcludeTerms) == 0 || len(f.Terms) == 0 {
		return
	}
	var kept, dropped []string
	for _, t := range f.Terms {
		if slices.Contains(f.ExcludeTerms, t) {
			dropped = append(dropped, t)
		} else {
			kept = append(kept, t)
		}
	}
	f.Terms = kept
	r.Drop("terms", dropped...)
}
