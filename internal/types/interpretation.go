package types

// Parser sources recorded in Debug.Source
const (
	SourceRuleBased = "rule_based"
	SourceLLM       = "llm"
)

// Interpretation is what any parser mode produces for one query.
type Interpretation struct {
	Filters    Filters `json:"filters"`
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Debug      Debug   `json:"debug"`
}

// Span is a half-open byte range [Start, End) in the normalized query.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether two spans share at least one byte.
func (s Span) Overlaps(o Span) bool {
	return s.Start < o.End && o.Start < s.End
}

// Match records one recognizer hit for the debug trace.
type Match struct {
	Recognizer string `json:"recognizer"`
	Text       string `json:"text"`
	Span       Span   `json:"span"`
}

// Debug is the trace attached to an interpretation.
type Debug struct {
	Source       string              `json:"source"`
	Tokens       []string            `json:"tokens,omitempty"`
	Unrecognized []string            `json:"unrecognized"`
	Matches      []Match             `json:"matches,omitempty"`
	RelativeTerm *RelativeTerm       `json:"relative_term,omitempty"`
	Ranking      *RankingHint        `json:"ranking,omitempty"`
	Conflicts    []string            `json:"conflicts,omitempty"`
	FilteredOut  map[string][]string `json:"filtered_out,omitempty"`
	Explanation  string              `json:"explanation,omitempty"`
}

// AddFilteredOut records values a data source dropped from a filter field.
func (d *Debug) AddFilteredOut(field string, values ...string) {
	if len(values) == 0 {
		return
	}
	if d.FilteredOut == nil {
		d.FilteredOut = make(map[string][]string)
	}
	d.FilteredOut[field] = append(d.FilteredOut[field], values...)
}
