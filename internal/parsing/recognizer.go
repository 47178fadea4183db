package parsing

import (
	"sort"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Recognizer extracts one kind of entity from a normalized query.
// Recognizers are pure: the same input always yields the same contribution.
type Recognizer interface {
	Name() string
	Recognize(in *Input) Contribution
}

// Contribution is what a single recognizer found.
type Contribution struct {
	Filters   types.Filters
	Spans     []types.Span
	Matches   []types.Match
	Conflicts []string
}

// claim records a consumed span and the matching debug entry.
func (c *Contribution) claim(recognizer string, in *Input, start, end int) {
	span := types.Span{Start: start, End: end}
	c.Spans = append(c.Spans, span)
	c.Matches = append(c.Matches, types.Match{
		Recognizer: recognizer,
		Text:       in.Text[start:end],
		Span:       span,
	})
}

// overlapsAny reports whether span intersects any of the given spans.
func overlapsAny(span types.Span, spans []types.Span) bool {
	for _, s := range spans {
		if span.Overlaps(s) {
			return true
		}
	}
	return false
}

// appendUnique appends v when it is not already present.
func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func sortMatches(matches []types.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Span.Start < matches[j].Span.Start
	})
}
