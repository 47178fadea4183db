package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// TitleRecognizer finds course title fragments. It runs after every other
// recognizer and only looks at text nobody else consumed.
type TitleRecognizer struct {
	table *SubjectTable
}

// NewTitleRecognizer creates a title recognizer.
func NewTitleRecognizer(table *SubjectTable) *TitleRecognizer {
	return &TitleRecognizer{table: table}
}

// Name identifies the recognizer in debug output.
func (r *TitleRecognizer) Name() string { return "title" }

var (
	quotedPattern = regexp.MustCompile(`"([^"]+)"|“([^”]+)”`)
	titleCue      = regexp.MustCompile(`\b(?:titled|called|named)\s+`)
)

// runConnectors may sit inside a capitalized run: "History of Science".
var runConnectors = toSet("of", "and", "to", "for", "in", "the", "&")

// quotedSpans returns the spans of quoted substrings, quotes included.
func quotedSpans(in *Input) []types.Span {
	var spans []types.Span
	for _, m := range quotedPattern.FindAllStringIndex(in.Text, -1) {
		spans = append(spans, types.Span{Start: m[0], End: m[1]})
	}
	return spans
}

// capitalRuns groups consecutive capitalized words into runs, bridging
// connector words that sit between two capitalized words. Each run is a
// half-open range of token indexes.
func capitalRuns(in *Input, isWord func(Token) bool) [][2]int {
	var runs [][2]int
	adjacent := func(a, b int) bool {
		return strings.TrimSpace(in.Text[in.Tokens[a].Span.End:in.Tokens[b].Span.Start]) == ""
	}
	i := 0
	for i < len(in.Tokens) {
		if !isWord(in.Tokens[i]) {
			i++
			continue
		}
		start, end := i, i+1
		for end < len(in.Tokens) {
			if isWord(in.Tokens[end]) && adjacent(end-1, end) {
				end++
				continue
			}
			// bridge a single connector
			if runConnectors[in.Tokens[end].Lower] && end+1 < len(in.Tokens) &&
				isWord(in.Tokens[end+1]) && adjacent(end-1, end) && adjacent(end, end+1) {
				end += 2
				continue
			}
			break
		}
		runs = append(runs, [2]int{start, end})
		i = end
	}
	return runs
}

// runWords counts the capitalized words in a run, connectors excluded.
func runWords(in *Input, run [2]int) int {
	n := 0
	for i := run[0]; i < run[1]; i++ {
		if !runConnectors[in.Tokens[i].Lower] {
			n++
		}
	}
	return n
}

// titleWord accepts capitalized words that are not vocabulary or subject
// codes.
func (r *TitleRecognizer) titleWord(tok Token) bool {
	if !isCapitalized(tok.Text) || isVocabulary(tok.Lower) {
		return false
	}
	return !r.table.Has(tok.Text) || strings.ToUpper(tok.Text) != tok.Text
}

// RecognizeRemaining finds titles in text not covered by consumed.
func (r *TitleRecognizer) RecognizeRemaining(in *Input, consumed []types.Span) Contribution {
	var c Contribution
	add := func(title string, start, end int) {
		title = strings.TrimSpace(title)
		if title == "" {
			return
		}
		c.Filters.CourseTitleContains = appendUnique(c.Filters.CourseTitleContains, title)
		c.claim(r.Name(), in, start, end)
	}
	free := func(start, end int) bool {
		span := types.Span{Start: start, End: end}
		return !overlapsAny(span, consumed) && !overlapsAny(span, c.Spans)
	}

	for _, m := range quotedPattern.FindAllStringSubmatchIndex(in.Text, -1) {
		if !free(m[0], m[1]) {
			continue
		}
		if m[2] >= 0 {
			add(in.Text[m[2]:m[3]], m[0], m[1])
		} else {
			add(in.Text[m[4]:m[5]], m[0], m[1])
		}
	}

	for _, m := range titleCue.FindAllStringIndex(in.Lower, -1) {
		toks := in.tokensAfter(m[1], 4)
		var words []string
		end := m[1]
		for _, tok := range toks {
			if strings.TrimSpace(in.Text[end:tok.Span.Start]) != "" || isStopword(tok.Lower) || !free(tok.Span.Start, tok.Span.End) {
				break
			}
			words = append(words, tok.Text)
			end = tok.Span.End
		}
		if len(words) > 0 && free(m[0], end) {
			add(strings.Join(words, " "), m[0], end)
		}
	}

	for _, run := range capitalRuns(in, r.titleWord) {
		if runWords(in, run) < 2 {
			continue
		}
		start, end := in.Tokens[run[0]].Span.Start, in.Tokens[run[1]-1].Span.End
		if !free(start, end) {
			continue
		}
		add(in.Text[start:end], start, end)
	}
	return c
}
