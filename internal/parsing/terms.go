package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// TermRecognizer finds explicit terms, bare seasons and relative phrases
// such as "last spring".
type TermRecognizer struct{}

// NewTermRecognizer creates a term recognizer.
func NewTermRecognizer() *TermRecognizer { return &TermRecognizer{} }

// Name identifies the recognizer in debug output.
func (r *TermRecognizer) Name() string { return "term" }

const seasonWords = `spring|summer|fall|autumn|winter`

var (
	explicitTerm = regexp.MustCompile(`\b(` + seasonWords + `)\s+(?:of\s+|semester\s+|term\s+)?(\d{4}|['’]\d{2})\b`)
	relativeTerm = regexp.MustCompile(`\b(last|this|next|previous|past|upcoming|coming|current)\s+(` + seasonWords + `|semester|term)\b`)
	bareYear     = regexp.MustCompile(`\b(?:in|during)\s+(?:the\s+)?(?:year\s+)?(\d{4})\b`)
	bareSeason   = regexp.MustCompile(`\b(?:(?:in|during)\s+(?:the\s+)?)?(` + seasonWords + `)\b(?:\s+(?:semesters?|terms?))?`)
	excludeCue   = regexp.MustCompile(`(?:not\s+(?:in\s+|during\s+)?|excluding\s+|except\s+(?:for\s+)?(?:in\s+)?|other\s+than\s+|but\s+not\s+(?:in\s+)?|outside\s+(?:of\s+)?)$`)
	listJoiner   = regexp.MustCompile(`^\s*(?:,|and|or|, and|, or|/)\s*$`)
)

type termHit struct {
	label    string
	start    int
	end      int
	excluded bool
}

// Recognize implements Recognizer.
func (r *TermRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	var hits []termHit

	for _, m := range explicitTerm.FindAllStringSubmatchIndex(in.Lower, -1) {
		year := strings.TrimLeft(in.Lower[m[4]:m[5]], "'’")
		y, _ := strconv.Atoi(year)
		if len(year) == 2 {
			y += 2000
		}
		label := fmt.Sprintf("%s %d", types.CanonicalSeason(in.Lower[m[2]:m[3]]), y)
		hits = append(hits, termHit{label: label, start: m[0], end: m[1]})
	}

	var consumed []types.Span
	for _, h := range hits {
		consumed = append(consumed, types.Span{Start: h.start, End: h.end})
	}

	// A bare calendar year stands for every term that starts in it.
	for _, m := range bareYear.FindAllStringSubmatchIndex(in.Lower, -1) {
		span := types.Span{Start: m[0], End: m[1]}
		y, _ := strconv.Atoi(in.Lower[m[2]:m[3]])
		if !looksLikeYear(y) || overlapsAny(span, consumed) || strings.HasPrefix(strings.TrimLeft(in.Lower[m[1]:], " -"), "level") {
			continue
		}
		for _, season := range calendarSeasons {
			hits = append(hits, termHit{label: fmt.Sprintf("%s %d", season, y), start: m[0], end: m[1]})
		}
		consumed = append(consumed, span)
	}

	var relatives [][]int
	for _, m := range relativeTerm.FindAllStringSubmatchIndex(in.Lower, -1) {
		if overlapsAny(types.Span{Start: m[0], End: m[1]}, consumed) {
			continue
		}
		relatives = append(relatives, m)
		consumed = append(consumed, types.Span{Start: m[0], End: m[1]})
	}

	for _, m := range bareSeason.FindAllStringSubmatchIndex(in.Lower, -1) {
		span := types.Span{Start: m[2], End: m[3]}
		if overlapsAny(span, consumed) {
			continue
		}
		word := in.Text[m[2]:m[3]]
		// "fall" is also a verb; accept it when the phrasing makes it a term.
		framed := m[0] != m[2] || m[1] != m[3] || isCapitalized(word)
		if !framed {
			continue
		}
		hits = append(hits, termHit{label: types.CanonicalSeason(word), start: m[0], end: m[1]})
		consumed = append(consumed, types.Span{Start: m[0], End: m[1]})
	}

	sortTermHits(hits)
	r.markExclusions(in, hits)
	for _, h := range hits {
		if h.excluded {
			c.Filters.ExcludeTerms = appendUnique(c.Filters.ExcludeTerms, h.label)
		} else {
			c.Filters.Terms = appendUnique(c.Filters.Terms, h.label)
		}
		c.claim(r.Name(), in, h.start, h.end)
	}

	r.resolveRelative(in, &c, relatives)
	return c
}

// markExclusions flags hits preceded by an exclusion cue, and hits joined to
// an excluded hit by a list connector ("excluding Fall 2020 and Spring 2021").
func (r *TermRecognizer) markExclusions(in *Input, hits []termHit) {
	for i := range hits {
		before := in.Lower[:hits[i].start]
		if loc := excludeCue.FindStringIndex(before); loc != nil {
			hits[i].excluded = true
			hits[i].start = loc[0]
			continue
		}
		if i > 0 && hits[i-1].excluded && listJoiner.MatchString(in.Lower[hits[i-1].end:hits[i].start]) {
			hits[i].excluded = true
		}
	}
}

func (r *TermRecognizer) resolveRelative(in *Input, c *Contribution, relatives [][]int) {
	for i, m := range relatives {
		phrase := in.Text[m[0]:m[1]]
		if i > 0 {
			c.Conflicts = append(c.Conflicts, fmt.Sprintf("relative term %q ignored: %q already given", phrase, c.Filters.RelativeTerm.Phrase))
			c.claim(r.Name(), in, m[0], m[1])
			continue
		}

		offset := 0
		switch in.Lower[m[2]:m[3]] {
		case "last", "previous", "past":
			offset = -1
		case "next", "upcoming", "coming":
			offset = 1
		}
		unit := in.Lower[m[4]:m[5]]
		rt := &types.RelativeTerm{Phrase: phrase, Offset: offset}

		var resolved types.TermContext
		var ok bool
		if unit == "semester" || unit == "term" {
			resolved, ok = in.Context.ResolveSemester(offset)
		} else {
			rt.Season = types.CanonicalSeason(unit)
			resolved, ok = in.Context.ResolveSeason(unit, offset)
		}
		if ok {
			rt.Resolved = resolved.Label()
		}
		c.Filters.RelativeTerm = rt
		c.claim(r.Name(), in, m[0], m[1])

		switch {
		case len(c.Filters.Terms) > 0:
			c.Conflicts = append(c.Conflicts, fmt.Sprintf("relative term %q ignored: explicit term %s given", phrase, strings.Join(c.Filters.Terms, ", ")))
		case ok:
			c.Filters.Terms = append(c.Filters.Terms, rt.Resolved)
		}
	}
}

// calendarSeasons lists the seasons of one calendar year in order.
var calendarSeasons = []string{"Winter", "Spring", "Summer", "Fall"}

func sortTermHits(hits []termHit) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
}
