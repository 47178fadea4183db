package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// DefaultCourseDigits is the width of stored course numbers.
const DefaultCourseDigits = 4

// CourseRecognizer finds exact course numbers, numeric ranges and course
// levels.
type CourseRecognizer struct {
	table  *SubjectTable
	digits int

	exact    *regexp.Regexp
	followOn *regexp.Regexp
	rangeRe  *regexp.Regexp
	wildcard *regexp.Regexp
	hundreds *regexp.Regexp
	levelPre *regexp.Regexp
	levelSuf *regexp.Regexp
	levels   *regexp.Regexp
}

// NewCourseRecognizer creates a course recognizer for course numbers that
// are digits wide.
func NewCourseRecognizer(table *SubjectTable, digits int) *CourseRecognizer {
	if digits < 2 {
		digits = DefaultCourseDigits
	}
	n := fmt.Sprintf(`\d{%d}`, digits)
	return &CourseRecognizer{
		table:    table,
		digits:   digits,
		exact:    regexp.MustCompile(`\b([A-Za-z]{2,5})\s*-?\s*(` + n + `)\b`),
		followOn: regexp.MustCompile(`^\s*(?:,\s*)?(?:and\s+|or\s+|&\s*|/\s*)?(` + n + `)\b`),
		rangeRe:  regexp.MustCompile(`\b(` + n + `)\s*(?:-|–|to|through|thru)\s*(` + n + `)\b`),
		wildcard: regexp.MustCompile(`\b([0-9])([xX]{1,` + strconv.Itoa(digits-1) + `})\b`),
		hundreds: regexp.MustCompile(`\b([1-9])0{` + strconv.Itoa(digits-1) + `}'?s\b`),
		levelSuf: regexp.MustCompile(`\b(\d{1,` + strconv.Itoa(digits) + `})\s*-?\s*level\b`),
		levelPre: regexp.MustCompile(`\blevel\s+(\d{1,` + strconv.Itoa(digits) + `})\b`),
		levels:   regexp.MustCompile(`\b(undergraduate|undergrad|graduate|grad)(?:\s+level|\s+-\s*level|-level)?\b`),
	}
}

// Name identifies the recognizer in debug output.
func (r *CourseRecognizer) Name() string { return "course" }

// Recognize implements Recognizer.
func (r *CourseRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	r.recognizeExact(in, &c)
	r.recognizeRange(in, &c)
	r.recognizeLevels(in, &c)
	return c
}

func (r *CourseRecognizer) recognizeExact(in *Input, c *Contribution) {
	for _, m := range r.exact.FindAllStringSubmatchIndex(in.Text, -1) {
		if _, ok := r.table.Lookup(in.Text[m[2]:m[3]]); !ok {
			continue
		}
		// "MATH 1000-2000" is a range, not course 1000.
		if loc := r.rangeRe.FindStringIndex(in.Lower[m[4]:]); loc != nil && loc[0] == 0 {
			continue
		}
		c.Filters.CourseNumbers = appendUnique(c.Filters.CourseNumbers, in.Text[m[4]:m[5]])
		c.claim(r.Name(), in, m[0], m[1])

		// "CS 2104 and 2114" shares the subject.
		pos := m[1]
		for {
			f := r.followOn.FindStringSubmatchIndex(in.Lower[pos:])
			if f == nil {
				break
			}
			c.Filters.CourseNumbers = appendUnique(c.Filters.CourseNumbers, in.Lower[pos+f[2]:pos+f[3]])
			c.claim(r.Name(), in, pos+f[2], pos+f[3])
			pos += f[1]
		}
	}
}

// bucket returns the course number range sharing a leading digit.
func (r *CourseRecognizer) bucket(digit int) (int, int) {
	width := 1
	for i := 1; i < r.digits; i++ {
		width *= 10
	}
	return digit * width, (digit+1)*width - 1
}

func (r *CourseRecognizer) setRange(in *Input, c *Contribution, lo, hi, start, end int) {
	if lo > hi {
		lo, hi = hi, lo
	}
	if c.Filters.HasCourseRange() {
		c.Conflicts = append(c.Conflicts, fmt.Sprintf("course range %q ignored: a range was already set", in.Text[start:end]))
		c.claim(r.Name(), in, start, end)
		return
	}
	c.Filters.CourseNumberMin = types.Ptr(lo)
	c.Filters.CourseNumberMax = types.Ptr(hi)
	c.claim(r.Name(), in, start, end)
}

func (r *CourseRecognizer) recognizeRange(in *Input, c *Contribution) {
	for _, m := range r.rangeRe.FindAllStringSubmatchIndex(in.Lower, -1) {
		lo, _ := strconv.Atoi(in.Lower[m[2]:m[3]])
		hi, _ := strconv.Atoi(in.Lower[m[4]:m[5]])
		if looksLikeYear(lo) && looksLikeYear(hi) {
			continue
		}
		if overlapsAny(types.Span{Start: m[0], End: m[1]}, c.Spans) {
			continue
		}
		r.setRange(in, c, lo, hi, m[0], m[1])
	}
	for _, m := range r.wildcard.FindAllStringSubmatchIndex(in.Lower, -1) {
		d, _ := strconv.Atoi(in.Lower[m[2]:m[3]])
		lo, hi := r.bucket(d)
		r.setRange(in, c, lo, hi, m[0], m[1])
	}
	for _, m := range r.hundreds.FindAllStringSubmatchIndex(in.Lower, -1) {
		d, _ := strconv.Atoi(in.Lower[m[2]:m[3]])
		lo, hi := r.bucket(d)
		r.setRange(in, c, lo, hi, m[0], m[1])
	}
	for _, re := range []*regexp.Regexp{r.levelSuf, r.levelPre} {
		for _, m := range re.FindAllStringSubmatchIndex(in.Lower, -1) {
			if overlapsAny(types.Span{Start: m[0], End: m[1]}, c.Spans) {
				continue
			}
			lo, hi := r.bucket(int(in.Lower[m[2]] - '0'))
			r.setRange(in, c, lo, hi, m[0], m[1])
		}
	}
}

func (r *CourseRecognizer) recognizeLevels(in *Input, c *Contribution) {
	for _, m := range r.levels.FindAllStringSubmatchIndex(in.Lower, -1) {
		word := in.Lower[m[2]:m[3]]
		level := types.LevelGraduate
		if strings.HasPrefix(word, "under") {
			level = types.LevelUndergraduate
		}
		// An upper-case GRAD is the subject code.
		if word == "grad" && in.Text[m[2]:m[3]] == "GRAD" {
			continue
		}
		c.Filters.CourseLevels = appendUnique(c.Filters.CourseLevels, level)
		c.claim(r.Name(), in, m[0], m[1])
	}
}

func looksLikeYear(n int) bool {
	return n >= 1990 && n <= 2099
}
