package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// GradeRecognizer finds per-letter count and percentage constraints.
type GradeRecognizer struct{}

// NewGradeRecognizer creates a grade constraint recognizer.
func NewGradeRecognizer() *GradeRecognizer { return &GradeRecognizer{} }

// Name identifies the recognizer in debug output.
func (r *GradeRecognizer) Name() string { return "grade" }

const (
	letterPattern  = `([ABCDFabcdf])([+\-−]?)(?:'s|’s|s)?`
	countMinCue    = `at\s+least|more\s+than|over|above|exactly`
	countMaxCue    = `fewer\s+than|less\s+than|under|below|at\s+most|no\s+more\s+than`
	gradeVerbWords = `(?:got|get|gets|getting|received|receive|earned|earn|made|scored|with|are|were|being)`
)

var (
	cumulativePercent = regexp.MustCompile(`(?i)(?:\b(` + countMinCue + `)\s+)?(\d+(?:\.\d+)?)\s*%\s*(?:of\s+(?:the\s+)?(?:students|class|grades)\s+)?(?:` + gradeVerbWords + `\s+)?(?:an?\s+)?` + letterPattern + `\s+(?:or\s+(?:above|better|higher)|and\s+(?:above|up|higher)|or\s+more)\b`)
	letterFirstCumul  = regexp.MustCompile(`(?i)\b` + letterPattern + `\s+(?:or\s+(?:above|better|higher)|and\s+(?:above|up|higher))\s+(?:(?:is|are|at|of)\s+)?(?:(` + countMinCue + `)\s+)?(\d+(?:\.\d+)?)\s*%`)
	sharePercent      = regexp.MustCompile(`(?i)(?:\b(` + countMinCue + `|` + countMaxCue + `)\s+)?(\d+(?:\.\d+)?)\s*%\s*(?:of\s+(?:the\s+)?(?:students|class|grades)\s+)?(?:` + gradeVerbWords + `\s+)?(?:an?\s+)?` + letterPattern)
	verbCount         = regexp.MustCompile(`(?i)(?:\b(` + countMinCue + `|` + countMaxCue + `)\s+)?\b(\d+)\s+(?:or\s+more\s+)?(?:(?:students?|people|kids|of\s+them)\s+)?(?:got|get|gets|received|earned|made|scored|with)\s+(?:an?\s+)?` + letterPattern)
	pluralCount       = regexp.MustCompile(`(?:\b((?i:` + countMinCue + `|` + countMaxCue + `))\s+)?\b(\d+)\s+([ABCDFabcdf])([+\-−]?)('s|’s|s|\s+grades)`)
	exclusionCue      = regexp.MustCompile(`(?i)\b(?:no|zero|without\s+any|without)\s+`)
	letterListItem    = regexp.MustCompile(`^(?:\s*(?:,|/)?\s*(?:or|and|nor)?\s*)([ABCDFabcdf])([+\-−]?)(?:'s|’s|s)?`)
	nobodyFailed      = regexp.MustCompile(`\b(?:(?:nobody|no\s+one|no\s+students?)\s+(?:failed|fails|got\s+an?\s+f)|no\s+failures?|zero\s+failures?|everyone\s+passed|everybody\s+passed)\b`)
)

// letterKey canonicalizes a matched letter and modifier into a filter key:
// "B" for the family, "B+" for a single bucket. It returns "" when the
// combination does not exist (A+ maps to A).
func letterKey(letter, modifier string) string {
	l := strings.ToUpper(letter)
	switch modifier {
	case "":
		if grades.IsFamily(l) {
			return l
		}
		return ""
	case "−":
		modifier = "-"
	}
	return grades.Canonical(l + modifier)
}

// articleA reports whether a matched letter is a bare lower-case "a" that is
// not introduced by "an", which makes it the article rather than the grade.
func articleA(in *Input, start, end int) bool {
	return in.Text[start:end] == "a" && !strings.HasSuffix(in.Lower[:start], "an ")
}

// Recognize implements Recognizer.
func (r *GradeRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	var spans []types.Span
	free := func(start, end int) bool {
		return !overlapsAny(types.Span{Start: start, End: end}, spans)
	}
	take := func(start, end int) {
		spans = append(spans, types.Span{Start: start, End: end})
		c.claim(r.Name(), in, start, end)
	}

	for _, m := range cumulativePercent.FindAllStringSubmatchIndex(in.Text, -1) {
		if r.cumulative(in, &c, in.Text[m[6]:m[7]], in.Text[m[8]:m[9]], in.Text[m[4]:m[5]], m[0], m[1]) {
			take(m[0], m[1])
		}
	}

	// "A- or above 30%"
	for _, m := range letterFirstCumul.FindAllStringSubmatchIndex(in.Text, -1) {
		if !free(m[0], m[1]) || articleA(in, m[2], m[3]) {
			continue
		}
		if r.cumulative(in, &c, in.Text[m[2]:m[3]], in.Text[m[4]:m[5]], in.Text[m[8]:m[9]], m[0], m[1]) {
			take(m[0], m[1])
		}
	}

	for _, m := range sharePercent.FindAllStringSubmatchIndex(in.Text, -1) {
		if !free(m[0], m[1]) || !boundaryAfter(in.Text, m[1]) {
			continue
		}
		if articleA(in, m[6], m[1]) {
			continue
		}
		key := letterKey(in.Text[m[6]:m[7]], in.Text[m[8]:m[9]])
		if key == "" {
			continue
		}
		pct, _ := strconv.ParseFloat(in.Text[m[4]:m[5]], 64)
		if isMaxCue(in.Lower, m[2], m[3]) {
			setFloat(&c, &c.Filters.GradeShareMaxPercent, key, pct, in.Text[m[0]:m[1]])
		} else {
			setFloat(&c, &c.Filters.GradeShareMinPercent, key, pct, in.Text[m[0]:m[1]])
		}
		take(m[0], m[1])
	}

	for _, re := range []*regexp.Regexp{verbCount, pluralCount} {
		for _, m := range re.FindAllStringSubmatchIndex(in.Text, -1) {
			if !free(m[0], m[1]) || !boundaryAfter(in.Text, m[1]) || articleA(in, m[6], m[1]) {
				continue
			}
			// "10 as" is prose; plural letters must be upper case unless spelled "a's".
			if re == pluralCount && in.Text[m[10]:m[11]] == "s" && in.Text[m[6]] >= 'a' {
				continue
			}
			key := letterKey(in.Text[m[6]:m[7]], in.Text[m[8]:m[9]])
			if key == "" {
				continue
			}
			n, _ := strconv.Atoi(in.Text[m[4]:m[5]])
			if isMaxCue(in.Lower, m[2], m[3]) {
				setInt(&c, &c.Filters.GradeMax, key, n, in.Text[m[0]:m[1]])
			} else {
				setInt(&c, &c.Filters.GradeMin, key, n, in.Text[m[0]:m[1]])
			}
			take(m[0], m[1])
		}
	}

	for _, m := range exclusionCue.FindAllStringIndex(in.Text, -1) {
		if !free(m[0], m[1]) {
			continue
		}
		pos := m[1]
		var keys []string
		for {
			item := letterListItem.FindStringSubmatchIndex(in.Text[pos:])
			if item == nil || !boundaryAfter(in.Text, pos+item[1]) {
				break
			}
			if len(keys) == 0 && item[2] != 0 {
				break
			}
			if articleA(in, pos+item[2], pos+item[1]) {
				break
			}
			key := letterKey(in.Text[pos+item[2]:pos+item[3]], in.Text[pos+item[4]:pos+item[5]])
			if key == "" {
				break
			}
			keys = append(keys, key)
			pos += item[1]
		}
		if len(keys) == 0 {
			continue
		}
		for _, key := range keys {
			setInt(&c, &c.Filters.GradeMax, key, 0, in.Text[m[0]:pos])
		}
		take(m[0], pos)
	}

	for _, m := range nobodyFailed.FindAllStringIndex(in.Lower, -1) {
		if !free(m[0], m[1]) {
			continue
		}
		setInt(&c, &c.Filters.GradeMax, "F", 0, in.Text[m[0]:m[1]])
		take(m[0], m[1])
	}
	return c
}

// cumulative records an at-or-above percentage for letter. B or above has
// its own field.
func (r *GradeRecognizer) cumulative(in *Input, c *Contribution, letter, modifier, number string, start, end int) bool {
	key := letterKey(letter, modifier)
	if key == "" {
		return false
	}
	pct, _ := strconv.ParseFloat(number, 64)
	phrase := in.Text[start:end]
	if key == "B" {
		if c.Filters.BOrAbovePercentMin != nil {
			c.Conflicts = append(c.Conflicts, fmt.Sprintf("B-or-above bound %q ignored: already set", phrase))
		} else {
			c.Filters.BOrAbovePercentMin = types.Ptr(pct)
		}
	} else {
		setFloat(c, &c.Filters.GradeMinPercent, key, pct, phrase)
	}
	return true
}

var maxCue = regexp.MustCompile(`^(?:` + countMaxCue + `)$`)

func isMaxCue(lower string, start, end int) bool {
	if start < 0 {
		return false
	}
	return maxCue.MatchString(lower[start:end])
}

func setInt(c *Contribution, m *map[string]int, key string, v int, phrase string) {
	if *m == nil {
		*m = make(map[string]int)
	}
	if old, ok := (*m)[key]; ok && old != v {
		c.Conflicts = append(c.Conflicts, fmt.Sprintf("grade bound %q ignored: %s already set", phrase, key))
		return
	}
	(*m)[key] = v
}

func setFloat(c *Contribution, m *map[string]float64, key string, v float64, phrase string) {
	if *m == nil {
		*m = make(map[string]float64)
	}
	if old, ok := (*m)[key]; ok && old != v {
		c.Conflicts = append(c.Conflicts, fmt.Sprintf("grade bound %q ignored: %s already set", phrase, key))
		return
	}
	(*m)[key] = v
}
