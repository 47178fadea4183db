package parsing

import (
	"regexp"
	"strings"
)

// InstructorRecognizer finds instructor names after cue words and bare
// person-like capitalized words.
type InstructorRecognizer struct {
	table *SubjectTable
}

// NewInstructorRecognizer creates an instructor recognizer. The subject
// table keeps subject codes from being read as surnames.
func NewInstructorRecognizer(table *SubjectTable) *InstructorRecognizer {
	return &InstructorRecognizer{table: table}
}

// Name identifies the recognizer in debug output.
func (r *InstructorRecognizer) Name() string { return "instructor" }

var (
	negativeCue = regexp.MustCompile(`\b(?:not\s+taught\s+by|not\s+by|not\s+with|excluding|except(?:\s+for)?|other\s+than|but\s+not|without)\s+(?:professor\s+|prof\.?\s+|dr\.?\s+|instructor\s+)?`)
	strongCue   = regexp.MustCompile(`\b(?:taught\s+by|teaching|instructed\s+by|professor|prof\.?|dr\.?|instructor)\s+`)
	weakCue     = regexp.MustCompile(`\b(?:with|by)\s+`)
	titleBefore = regexp.MustCompile(`\b(?:titled|called|named)\s+$`)
)

// nameWord is one token of a name: capitalized, possibly an initial or
// hyphenated.
var nameWordPattern = regexp.MustCompile(`^[A-Z][A-Za-z'’\-]*\.?$`)

// Recognize implements Recognizer.
func (r *InstructorRecognizer) Recognize(in *Input) Contribution {
	var c Contribution

	taken := func(start int) bool {
		for _, s := range c.Spans {
			if start >= s.Start && start < s.End {
				return true
			}
		}
		return false
	}

	for _, m := range negativeCue.FindAllStringIndex(in.Lower, -1) {
		if name, end, ok := r.nameAt(in, m[1], false); ok {
			c.Filters.ExcludeInstructors = appendUnique(c.Filters.ExcludeInstructors, name)
			c.claim(r.Name(), in, m[0], end)
		}
	}
	for _, m := range strongCue.FindAllStringIndex(in.Lower, -1) {
		if taken(m[0]) {
			continue
		}
		if name, end, ok := r.nameAt(in, m[1], true); ok {
			c.Filters.Instructors = appendUnique(c.Filters.Instructors, name)
			c.claim(r.Name(), in, m[0], end)
		}
	}
	for _, m := range weakCue.FindAllStringIndex(in.Lower, -1) {
		if taken(m[0]) || taken(m[1]) {
			continue
		}
		if name, end, ok := r.nameAt(in, m[1], false); ok {
			c.Filters.Instructors = appendUnique(c.Filters.Instructors, name)
			c.claim(r.Name(), in, m[0], end)
		}
	}
	r.recognizeBare(in, &c, taken)
	return c
}

// nameAt reads a name of up to three words starting at offset. With
// allowLower a single lower-case non-vocabulary word is accepted.
func (r *InstructorRecognizer) nameAt(in *Input, offset int, allowLower bool) (string, int, bool) {
	toks := in.tokensAfter(offset, 3)
	if len(toks) == 0 || toks[0].Span.Start != offset {
		return "", 0, false
	}

	var words []string
	end := offset
	for i, tok := range toks {
		if i > 0 && strings.TrimSpace(in.Text[end:tok.Span.Start]) != "" {
			break
		}
		if !r.isNameWord(tok) {
			break
		}
		words = append(words, tok.Text)
		end = tok.Span.End
	}
	if len(words) > 0 {
		return strings.Join(words, " "), end, true
	}

	first := toks[0]
	if allowLower && !isVocabulary(first.Lower) && !hasDigit(first.Lower) && !r.table.Has(first.Text) {
		return first.Text, first.Span.End, true
	}
	return "", 0, false
}

func (r *InstructorRecognizer) isNameWord(tok Token) bool {
	if !nameWordPattern.MatchString(tok.Text) || isVocabulary(tok.Lower) || r.table.IsAlias(tok.Lower) {
		return false
	}
	if _, ok := r.table.Lookup(tok.Text); ok && strings.ToUpper(tok.Text) == tok.Text {
		return false
	}
	return isCapitalized(tok.Text) || len(strings.TrimSuffix(tok.Text, ".")) == 1
}

// recognizeBare accepts a lone capitalized word that is not the first token
// and not part of a longer capitalized run; longer runs are titles.
func (r *InstructorRecognizer) recognizeBare(in *Input, c *Contribution, taken func(int) bool) {
	quoted := quotedSpans(in)
	for _, run := range capitalRuns(in, r.isNameWord) {
		if run[1]-run[0] != 1 || run[0] == 0 {
			continue
		}
		tok := in.Tokens[run[0]]
		if taken(tok.Span.Start) || overlapsAny(tok.Span, quoted) || titleBefore.MatchString(in.Lower[:tok.Span.Start]) {
			continue
		}
		if _, ok := r.table.Lookup(tok.Text); ok {
			continue
		}
		if len(strings.TrimSuffix(tok.Text, ".")) < 2 || !isCapitalized(tok.Text) {
			continue
		}
		c.Filters.Instructors = appendUnique(c.Filters.Instructors, tok.Text)
		c.claim(r.Name(), in, tok.Span.Start, tok.Span.End)
	}
}

func hasDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}
