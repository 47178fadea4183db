package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// BoundsRecognizer finds numeric GPA, credit and enrollment bounds.
type BoundsRecognizer struct{}

// NewBoundsRecognizer creates a bounds recognizer.
func NewBoundsRecognizer() *BoundsRecognizer { return &BoundsRecognizer{} }

// Name identifies the recognizer in debug output.
func (r *BoundsRecognizer) Name() string { return "bounds" }

type metric string

const (
	metricGPA        metric = "gpa"
	metricCredits    metric = "credits"
	metricEnrollment metric = "enrollment"
)

const numberPattern = `(\d+(?:\.\d+)?)`

var (
	minComparator = `above|over|more\s+than|greater\s+than|higher\s+than|at\s+least|no\s+less\s+than|not\s+less\s+than|minimum(?:\s+of)?|min|>=|>|≥`
	maxComparator = `below|under|less\s+than|fewer\s+than|lower\s+than|at\s+most|no\s+more\s+than|not\s+more\s+than|maximum(?:\s+of)?|max|<=|<|≤`

	comparatorBound = regexp.MustCompile(`(?:^|[^\w])((` + minComparator + `)|(` + maxComparator + `))\s*` + numberPattern + `(\s*%)?`)
	betweenBound    = regexp.MustCompile(`\bbetween\s+` + numberPattern + `\s*(?:and|to|-)\s*` + numberPattern + `(\s*%)?`)
	suffixBound     = regexp.MustCompile(`\b` + numberPattern + `\s*(\+|or\s+more|or\s+higher|or\s+above|and\s+up|or\s+greater|or\s+less|or\s+fewer|or\s+lower|or\s+below)\s*`)
	exactCredits    = regexp.MustCompile(`\b(\d+)\s*-?\s*(?:credit[\s-]hours?|credits?|cr)\b`)
	gradeVerb       = regexp.MustCompile(`^\s*(?:(?:students?|people|kids|of\s+them)\s+)?(?:got|get|gets|getting|received|earned|made|scored)\b`)
	withGrade       = regexp.MustCompile(`^\s*(?:(?i:students?|people|kids|of\s+them)\s+)?(?i:with)\s+(?:(?i:an?)\s+)?([ABCDFabcdf])[+\-−]?(?:'s|’s|s)?`)
)

// metricNouns maps words that name a metric.
var metricNouns = map[string]metric{
	"gpa":        metricGPA,
	"gpas":       metricGPA,
	"average":    metricGPA,
	"credit":     metricCredits,
	"credits":    metricCredits,
	"hours":      metricCredits,
	"hour":       metricCredits,
	"cr":         metricCredits,
	"students":   metricEnrollment,
	"student":    metricEnrollment,
	"people":     metricEnrollment,
	"kids":       metricEnrollment,
	"enrolled":   metricEnrollment,
	"enrollment": metricEnrollment,
	"size":       metricEnrollment,
	"seats":      metricEnrollment,
}

type bound struct {
	metric metric
	min    *float64
	max    *float64
	start  int
	end    int
}

// Recognize implements Recognizer.
func (r *BoundsRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	var found []bound
	used := func(start, end int) bool {
		span := types.Span{Start: start, End: end}
		for _, b := range found {
			if span.Overlaps(types.Span{Start: b.start, End: b.end}) {
				return true
			}
		}
		return false
	}

	for _, m := range betweenBound.FindAllStringSubmatchIndex(in.Lower, -1) {
		if m[6] >= 0 || r.gradeFollows(in, m[1]) {
			continue
		}
		lo, _ := strconv.ParseFloat(in.Lower[m[2]:m[3]], 64)
		hi, _ := strconv.ParseFloat(in.Lower[m[4]:m[5]], 64)
		if lo > hi {
			lo, hi = hi, lo
		}
		met, end := r.metricFor(in, m[0], m[1], hi)
		found = append(found, bound{metric: met, min: &lo, max: &hi, start: m[0], end: end})
	}

	for _, m := range comparatorBound.FindAllStringSubmatchIndex(in.Lower, -1) {
		start := m[2]
		if m[10] >= 0 || used(start, m[9]) || r.gradeFollows(in, m[9]) {
			continue
		}
		v, _ := strconv.ParseFloat(in.Lower[m[8]:m[9]], 64)
		met, end := r.metricFor(in, start, m[9], v)
		b := bound{metric: met, start: start, end: end}
		if m[4] >= 0 {
			b.min = &v
		} else {
			b.max = &v
		}
		found = append(found, b)
	}

	for _, m := range suffixBound.FindAllStringSubmatchIndex(in.Lower, -1) {
		if used(m[0], m[1]) {
			continue
		}
		met, ok := r.nounAfter(in, m[1])
		if !ok || r.gradeFollows(in, met.end) {
			continue
		}
		v, _ := strconv.ParseFloat(in.Lower[m[2]:m[3]], 64)
		b := bound{metric: met.metric, start: m[0], end: met.end}
		suffix := in.Lower[m[4]:m[5]]
		if suffix == "+" || strings.Contains(suffix, "more") || strings.Contains(suffix, "higher") ||
			strings.Contains(suffix, "above") || strings.Contains(suffix, "up") || strings.Contains(suffix, "greater") {
			b.min = &v
		} else {
			b.max = &v
		}
		found = append(found, b)
	}

	for _, m := range exactCredits.FindAllStringSubmatchIndex(in.Lower, -1) {
		if used(m[0], m[1]) {
			continue
		}
		v, _ := strconv.ParseFloat(in.Lower[m[2]:m[3]], 64)
		found = append(found, bound{metric: metricCredits, min: &v, max: &v, start: m[0], end: m[1]})
	}

	for _, b := range found {
		r.apply(in, &c, b)
	}
	return c
}

// gradeFollows reports whether a student count is followed by a grade verb
// or letter, which makes it a grade constraint instead. "with" only counts
// when a grade letter comes next: "50 students with an A" but not "50
// students with a gpa above 3".
func (r *BoundsRecognizer) gradeFollows(in *Input, offset int) bool {
	if gradeVerb.MatchString(in.Lower[offset:]) {
		return true
	}
	if m := withGrade.FindStringSubmatchIndex(in.Text[offset:]); m != nil {
		start, end := offset+m[2], offset+m[1]
		if boundaryAfter(in.Text, end) && !articleA(in, start, end) {
			return true
		}
	}
	next := in.tokensAfter(offset, 1)
	return len(next) == 1 && strings.TrimSpace(in.Text[offset:next[0].Span.Start]) == "" && isGradeToken(next[0].Lower) && next[0].Lower != "a"
}

type nounHit struct {
	metric metric
	end    int
}

// nounAfter looks for a metric noun within two words after offset.
func (r *BoundsRecognizer) nounAfter(in *Input, offset int) (nounHit, bool) {
	for _, tok := range in.tokensAfter(offset, 2) {
		if met, ok := metricNouns[tok.Lower]; ok {
			if tok.Lower == "average" {
				continue
			}
			return nounHit{metric: met, end: tok.Span.End}, true
		}
		if tok.Lower == "class" || tok.Lower == "classes" || tok.Lower == "sections" {
			break
		}
	}
	return nounHit{}, false
}

// nounBefore looks for a metric noun within three words before offset.
func (r *BoundsRecognizer) nounBefore(in *Input, offset int) (metric, bool) {
	for _, tok := range in.tokensBefore(offset, 3) {
		if met, ok := metricNouns[tok.Lower]; ok {
			return met, true
		}
		if hasDigit(tok.Lower) || tok.Lower == "and" || tok.Lower == "or" {
			break
		}
	}
	return "", false
}

// metricFor decides which metric a bound applies to: a following noun, then
// a preceding noun, then the magnitude of the number.
func (r *BoundsRecognizer) metricFor(in *Input, start, end int, v float64) (metric, int) {
	if hit, ok := r.nounAfter(in, end); ok {
		return hit.metric, hit.end
	}
	if met, ok := r.nounBefore(in, start); ok {
		return met, end
	}
	if v <= 4.0 {
		return metricGPA, end
	}
	return metricEnrollment, end
}

func (r *BoundsRecognizer) apply(in *Input, c *Contribution, b bound) {
	f := &c.Filters
	conflict := func() {
		c.Conflicts = append(c.Conflicts, fmt.Sprintf("%s bound %q ignored: already set", b.metric, in.Text[b.start:b.end]))
	}
	switch b.metric {
	case metricGPA:
		if (b.min != nil && f.GPAMin != nil) || (b.max != nil && f.GPAMax != nil) {
			conflict()
			break
		}
		if b.min != nil {
			f.GPAMin = types.Ptr(*b.min)
		}
		if b.max != nil {
			f.GPAMax = types.Ptr(*b.max)
		}
	case metricCredits:
		if (b.min != nil && f.CreditsMin != nil) || (b.max != nil && f.CreditsMax != nil) {
			conflict()
			break
		}
		if b.min != nil {
			f.CreditsMin = types.Ptr(int(*b.min))
		}
		if b.max != nil {
			f.CreditsMax = types.Ptr(int(*b.max))
		}
	case metricEnrollment:
		if (b.min != nil && f.EnrollmentMin != nil) || (b.max != nil && f.EnrollmentMax != nil) {
			conflict()
			break
		}
		if b.min != nil {
			f.EnrollmentMin = types.Ptr(int(*b.min))
		}
		if b.max != nil {
			f.EnrollmentMax = types.Ptr(int(*b.max))
		}
	}
	c.claim(r.Name(), in, b.start, b.end)
}
