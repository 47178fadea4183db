package parsing

import (
	"regexp"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// CompareRecognizer finds relational constraints between two letter counts,
// such as "more As than Bs".
type CompareRecognizer struct{}

// NewCompareRecognizer creates a grade comparison recognizer.
func NewCompareRecognizer() *CompareRecognizer { return &CompareRecognizer{} }

// Name identifies the recognizer in debug output.
func (r *CompareRecognizer) Name() string { return "compare" }

const compareLetter = `([abcdf][+\-−]?)(?:'s|’s|s)?`

var gradeComparison = regexp.MustCompile(`\b(at\s+least\s+as\s+many|at\s+most\s+as\s+many|as\s+many|(?:the\s+)?same\s+number\s+of|no\s+more|more|fewer|less)\s+` +
	compareLetter + `\s+(?:grades?\s+)?(than|as)\s+(?:there\s+are\s+)?` + compareLetter)

// compareOps maps the quantifier and its connector to an operator.
var compareOps = map[string]map[string]string{
	"more":               {"than": ">"},
	"fewer":              {"than": "<"},
	"less":               {"than": "<"},
	"no more":            {"than": "<="},
	"at least as many":   {"as": ">="},
	"at most as many":    {"as": "<="},
	"as many":            {"as": "="},
	"same number of":     {"as": "="},
	"the same number of": {"as": "="},
}

// Recognize implements Recognizer.
func (r *CompareRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	for _, m := range gradeComparison.FindAllStringSubmatchIndex(in.Lower, -1) {
		if !boundaryAfter(in.Lower, m[1]) {
			continue
		}
		quantifier := whitespace.ReplaceAllString(in.Lower[m[2]:m[3]], " ")
		op, ok := compareOps[quantifier][in.Lower[m[6]:m[7]]]
		if !ok {
			continue
		}
		left := letterKey(splitLetter(in.Lower[m[4]:m[5]]))
		right := letterKey(splitLetter(in.Lower[m[8]:m[9]]))
		if left == "" || right == "" || !types.ValidCompareOps[op] {
			continue
		}
		c.Filters.GradeCompare = append(c.Filters.GradeCompare, types.GradeComparison{Left: left, Right: right, Op: op})
		c.claim(r.Name(), in, m[0], m[1])
	}
	return c
}

// splitLetter separates "b+" into letter and modifier.
func splitLetter(s string) (string, string) {
	s = strings.ReplaceAll(s, "−", "-")
	if len(s) > 1 {
		return s[:1], s[1:]
	}
	return s, ""
}
