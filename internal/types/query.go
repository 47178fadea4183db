package types

// QueryRequest is the input to one query round trip.
type QueryRequest struct {
	Query      string `json:"query" validate:"required,max=500"`
	ParserMode string `json:"parser_mode,omitempty" validate:"omitempty,oneof=rule-based llm auto"`
	Term       string `json:"term,omitempty" validate:"omitempty,term_label"`
}

// QueryMeta echoes how a query was understood. It is populated even when
// the fetch fails.
type QueryMeta struct {
	Query      string  `json:"query"`
	Intent     Intent  `json:"intent"`
	Filters    Filters `json:"filters"`
	Confidence float64 `json:"confidence"`
	Debug      Debug   `json:"debug"`
}

// QueryResponse is the full result of a query round trip.
type QueryResponse struct {
	OK         bool       `json:"ok"`
	Meta       QueryMeta  `json:"meta"`
	Sections   []Section  `json:"sections"`
	Aggregates Aggregates `json:"aggregates"`
	Subjects   []Subject  `json:"subjects,omitempty"`
	Error      string     `json:"error,omitempty"`
}
