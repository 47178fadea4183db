// Package engine narrows, orders and pages an already-fetched result set and
// recomputes the per-row grade metrics shown with it.
package engine

import (
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Refinements are exact-match secondary filters. An empty field leaves that
// dimension unconstrained.
type Refinements struct {
	Subject    string `json:"subject"`
	Instructor string `json:"instructor"`
	Term       string `json:"term"`
}

// IsZero reports whether no refinement is set.
func (r Refinements) IsZero() bool {
	return r.Subject == "" && r.Instructor == "" && r.Term == ""
}

// ApplyRefinements returns the sections matching every set refinement. The
// input is not modified.
func ApplyRefinements(sections []types.Section, r Refinements) []types.Section {
	out := make([]types.Section, 0, len(sections))
	for i := range sections {
		s := &sections[i]
		if r.Subject != "" && s.Course.SubjectCode != r.Subject {
			continue
		}
		if r.Instructor != "" && s.Instructor.NameDisplay != r.Instructor {
			continue
		}
		if r.Term != "" && s.Term.Label != r.Term {
			continue
		}
		out = append(out, *s)
	}
	return out
}

// Options lists the distinct values each refinement can take over a result
// set, in display order.
type Options struct {
	Subjects    []string `json:"subjects"`
	Instructors []string `json:"instructors"`
	Terms       []string `json:"terms"`
}

// RefinementOptions collects the refinement choices for sections. Subjects
// and instructors are sorted alphabetically, terms newest first.
func RefinementOptions(sections []types.Section) Options {
	var opts Options
	seen := map[string]map[string]bool{"s": {}, "i": {}, "t": {}}
	for i := range sections {
		s := &sections[i]
		if v := s.Course.SubjectCode; v != "" && !seen["s"][v] {
			seen["s"][v] = true
			opts.Subjects = append(opts.Subjects, v)
		}
		if v := s.Instructor.NameDisplay; strings.TrimSpace(v) != "" && !seen["i"][v] {
			seen["i"][v] = true
			opts.Instructors = append(opts.Instructors, v)
		}
		if v := s.Term.Label; v != "" && !seen["t"][v] {
			seen["t"][v] = true
			opts.Terms = append(opts.Terms, v)
		}
	}
	slices.Sort(opts.Subjects)
	slices.SortFunc(opts.Instructors, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	slices.SortStableFunc(opts.Terms, func(a, b string) int {
		return types.TermSortKey(b) - types.TermSortKey(a)
	})
	return opts
}
