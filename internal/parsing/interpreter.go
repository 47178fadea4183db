// Package parsing turns free-text grade questions into structured filters.
package parsing

import (
	"context"
	"math"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Parser interprets one query. Implementations must be safe for concurrent
// use.
type Parser interface {
	Interpret(ctx context.Context, text string, tc types.TermContext) (*types.Interpretation, error)
}

// Interpreter is the deterministic rule-based parser.
type Interpreter struct {
	recognizers []Recognizer
	title       *TitleRecognizer
}

// Option configures an Interpreter.
type Option func(*interpreterConfig)

type interpreterConfig struct {
	subjects     *SubjectTable
	courseDigits int
}

// WithSubjects replaces the built-in subject table.
func WithSubjects(table *SubjectTable) Option {
	return func(c *interpreterConfig) {
		if table != nil && table.Len() > 0 {
			c.subjects = table
		}
	}
}

// WithCourseDigits sets the width of stored course numbers.
func WithCourseDigits(n int) Option {
	return func(c *interpreterConfig) {
		if n >= 2 {
			c.courseDigits = n
		}
	}
}

// NewInterpreter builds the rule-based parser.
func NewInterpreter(opts ...Option) *Interpreter {
	cfg := interpreterConfig{courseDigits: DefaultCourseDigits}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.subjects == nil {
		cfg.subjects = DefaultSubjects()
	}
	return &Interpreter{
		recognizers: []Recognizer{
			NewSubjectRecognizer(cfg.subjects),
			NewCourseRecognizer(cfg.subjects, cfg.courseDigits),
			NewInstructorRecognizer(cfg.subjects),
			NewTermRecognizer(),
			NewBoundsRecognizer(),
			NewGradeRecognizer(),
			NewCompareRecognizer(),
			NewRankingRecognizer(),
		},
		title: NewTitleRecognizer(cfg.subjects),
	}
}

// Interpret implements Parser. It never returns an error.
func (p *Interpreter) Interpret(_ context.Context, text string, tc types.TermContext) (*types.Interpretation, error) {
	return p.InterpretText(text, tc), nil
}

// InterpretText parses text against an optional current term.
func (p *Interpreter) InterpretText(text string, tc types.TermContext) *types.Interpretation {
	in := NewInput(text, tc)

	var filters types.Filters
	var spans []types.Span
	var matches []types.Match
	var conflicts []string
	for _, r := range p.recognizers {
		contrib := r.Recognize(in)
		merge(&filters, &contrib.Filters)
		spans = append(spans, contrib.Spans...)
		matches = append(matches, contrib.Matches...)
		conflicts = append(conflicts, contrib.Conflicts...)
	}

	titles := p.title.RecognizeRemaining(in, spans)
	merge(&filters, &titles.Filters)
	spans = append(spans, titles.Spans...)
	matches = append(matches, titles.Matches...)
	sortMatches(matches)

	debug := types.Debug{
		Source:       types.SourceRuleBased,
		Unrecognized: []string{},
		Matches:      matches,
		RelativeTerm: filters.RelativeTerm,
		Ranking:      filters.Ranking,
		Conflicts:    conflicts,
	}
	content, consumed := 0, 0
	for _, tok := range in.Tokens {
		debug.Tokens = append(debug.Tokens, tok.Text)
		hit := overlapsAny(tok.Span, spans)
		if isStopword(tok.Lower) {
			continue
		}
		content++
		if hit {
			consumed++
		} else {
			debug.Unrecognized = append(debug.Unrecognized, tok.Text)
		}
	}

	return &types.Interpretation{
		Filters:    filters,
		Intent:     filters.Intent(),
		Confidence: Confidence(filters.CategoryCount(), content, consumed, len(conflicts)),
		Debug:      debug,
	}
}

// Confidence scores an interpretation from how many signal categories were
// found, how much of the content was consumed and how many conflicts were
// recorded.
func Confidence(categories, contentTokens, consumedTokens, conflicts int) float64 {
	if categories == 0 {
		return 0
	}
	signal := 1 - math.Pow(0.5, float64(categories))
	coverage := 1.0
	if contentTokens > 0 {
		coverage = float64(consumedTokens) / float64(contentTokens)
	}
	score := 0.6*signal + 0.4*coverage - 0.1*float64(conflicts)
	score = math.Max(0, math.Min(1, score))
	return math.Round(score*1000) / 1000
}

// merge copies every field src sets that dst has not set yet. Each field is
// owned by one recognizer, so this only ever fills gaps.
func merge(dst, src *types.Filters) {
	for _, v := range src.Subjects {
		dst.Subjects = appendUnique(dst.Subjects, v)
	}
	for _, v := range src.CourseNumbers {
		dst.CourseNumbers = appendUnique(dst.CourseNumbers, v)
	}
	for _, v := range src.CourseLevels {
		dst.CourseLevels = appendUnique(dst.CourseLevels, v)
	}
	for _, v := range src.Instructors {
		dst.Instructors = appendUnique(dst.Instructors, v)
	}
	for _, v := range src.ExcludeInstructors {
		dst.ExcludeInstructors = appendUnique(dst.ExcludeInstructors, v)
	}
	for _, v := range src.Terms {
		dst.Terms = appendUnique(dst.Terms, v)
	}
	for _, v := range src.ExcludeTerms {
		dst.ExcludeTerms = appendUnique(dst.ExcludeTerms, v)
	}
	for _, v := range src.CourseTitleContains {
		dst.CourseTitleContains = appendUnique(dst.CourseTitleContains, v)
	}
	fillInt(&dst.CourseNumberMin, src.CourseNumberMin)
	fillInt(&dst.CourseNumberMax, src.CourseNumberMax)
	fillInt(&dst.CreditsMin, src.CreditsMin)
	fillInt(&dst.CreditsMax, src.CreditsMax)
	fillInt(&dst.EnrollmentMin, src.EnrollmentMin)
	fillInt(&dst.EnrollmentMax, src.EnrollmentMax)
	fillFloat(&dst.GPAMin, src.GPAMin)
	fillFloat(&dst.GPAMax, src.GPAMax)
	fillFloat(&dst.BOrAbovePercentMin, src.BOrAbovePercentMin)
	fillMap(&dst.GradeMin, src.GradeMin)
	fillMap(&dst.GradeMax, src.GradeMax)
	fillMap(&dst.GradeMinPercent, src.GradeMinPercent)
	fillMap(&dst.GradeShareMinPercent, src.GradeShareMinPercent)
	fillMap(&dst.GradeShareMaxPercent, src.GradeShareMaxPercent)
	dst.GradeCompare = append(dst.GradeCompare, src.GradeCompare...)
	if dst.RelativeTerm == nil {
		dst.RelativeTerm = src.RelativeTerm
	}
	if dst.Ranking == nil {
		dst.Ranking = src.Ranking
	}
}

func fillInt(dst **int, src *int) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

func fillFloat(dst **float64, src *float64) {
	if *dst == nil && src != nil {
		*dst = src
	}
}

func fillMap[V any](dst *map[string]V, src map[string]V) {
	for k, v := range src {
		if *dst == nil {
			*dst = make(map[string]V)
		}
		if _, ok := (*dst)[k]; !ok {
			(*dst)[k] = v
		}
	}
}
