package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/jonathan/grade-explorer/internal/types"
)

// RankingRecognizer finds superlatives such as "largest 5 classes" or
// "top 10".
type RankingRecognizer struct{}

// NewRankingRecognizer creates a ranking recognizer.
func NewRankingRecognizer() *RankingRecognizer { return &RankingRecognizer{} }

// Name identifies the recognizer in debug output.
func (r *RankingRecognizer) Name() string { return "ranking" }

type rankHit struct {
	hint types.RankingHint
	span types.Span
}

type superlative struct {
	order string
	by    string
}

var superlatives = map[string]superlative{
	"largest":            {types.OrderDescending, types.RankByEnrollment},
	"biggest":            {types.OrderDescending, types.RankByEnrollment},
	"most popular":       {types.OrderDescending, types.RankByEnrollment},
	"most enrolled":      {types.OrderDescending, types.RankByEnrollment},
	"most crowded":       {types.OrderDescending, types.RankByEnrollment},
	"highest enrollment": {types.OrderDescending, types.RankByEnrollment},
	"most students":      {types.OrderDescending, types.RankByEnrollment},
	"smallest":           {types.OrderAscending, types.RankByEnrollment},
	"least popular":      {types.OrderAscending, types.RankByEnrollment},
	"least enrolled":     {types.OrderAscending, types.RankByEnrollment},
	"lowest enrollment":  {types.OrderAscending, types.RankByEnrollment},
	"fewest students":    {types.OrderAscending, types.RankByEnrollment},
	"easiest":            {types.OrderDescending, types.RankByGPA},
	"highest gpa":        {types.OrderDescending, types.RankByGPA},
	"best gpa":           {types.OrderDescending, types.RankByGPA},
	"hardest":            {types.OrderAscending, types.RankByGPA},
	"lowest gpa":         {types.OrderAscending, types.RankByGPA},
	"worst gpa":          {types.OrderAscending, types.RankByGPA},
}

const superlativeWords = `largest|biggest|most\s+popular|most\s+enrolled|most\s+crowded|highest\s+enrollment|most\s+students|` +
	`smallest|least\s+popular|least\s+enrolled|lowest\s+enrollment|fewest\s+students|` +
	`easiest|highest\s+gpa|best\s+gpa|hardest|lowest\s+gpa|worst\s+gpa`

var (
	topN            = regexp.MustCompile(`\b(top|bottom)\s+(\d+)\b(?:\s+(?:classes|courses|sections))?(?:\s+by\s+(enrollment|size|students|gpa))?`)
	countFirst      = regexp.MustCompile(`\b(\d+)\s+(` + superlativeWords + `)\b`)
	superlativeOnly = regexp.MustCompile(`(?:^|[^\w])(` + superlativeWords + `)\b(?:\s+(\d+)\b)?`)
	notRanking      = regexp.MustCompile(`\bat\s+$`)
	followedByVerb  = regexp.MustCompile(`^\s+(?:got|get|received|earned|made)\b`)
)

var whitespace = regexp.MustCompile(`\s+`)

// Recognize implements Recognizer.
func (r *RankingRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	var hints []rankHit
	add := func(h types.RankingHint, start, end int) {
		span := types.Span{Start: start, End: end}
		for _, prev := range hints {
			if span.Overlaps(prev.span) {
				return
			}
		}
		hints = append(hints, rankHit{hint: h, span: span})
	}

	for _, m := range topN.FindAllStringSubmatchIndex(in.Lower, -1) {
		n, _ := strconv.Atoi(in.Lower[m[4]:m[5]])
		h := types.RankingHint{Order: types.OrderDescending, Limit: types.Ptr(n), By: types.RankByEnrollment}
		if in.Lower[m[2]:m[3]] == "bottom" {
			h.Order = types.OrderAscending
		}
		if m[6] >= 0 && in.Lower[m[6]:m[7]] == "gpa" {
			h.By = types.RankByGPA
		}
		add(h, m[0], m[1])
	}

	for _, m := range countFirst.FindAllStringSubmatchIndex(in.Lower, -1) {
		s, ok := superlatives[whitespace.ReplaceAllString(in.Lower[m[4]:m[5]], " ")]
		if !ok {
			continue
		}
		n, _ := strconv.Atoi(in.Lower[m[2]:m[3]])
		add(types.RankingHint{Order: s.order, Limit: types.Ptr(n), By: s.by}, m[0], m[1])
	}

	for _, m := range superlativeOnly.FindAllStringSubmatchIndex(in.Lower, -1) {
		word := whitespace.ReplaceAllString(in.Lower[m[2]:m[3]], " ")
		s, ok := superlatives[word]
		if !ok {
			continue
		}
		// "at most students" is not a ranking.
		if notRanking.MatchString(in.Lower[:m[2]]) {
			continue
		}
		if followedByVerb.MatchString(in.Lower[m[3]:]) {
			continue
		}
		h := types.RankingHint{Order: s.order, By: s.by}
		end := m[3]
		if m[4] >= 0 {
			n, _ := strconv.Atoi(in.Lower[m[4]:m[5]])
			h.Limit = types.Ptr(n)
			end = m[5]
		}
		add(h, m[2], end)
	}

	sort.SliceStable(hints, func(i, j int) bool { return hints[i].span.Start < hints[j].span.Start })
	for i, h := range hints {
		if i == 0 {
			hint := h.hint
			c.Filters.Ranking = &hint
		} else {
			c.Conflicts = append(c.Conflicts, fmt.Sprintf("ranking %q ignored: a ranking was already given", in.Text[h.span.Start:h.span.End]))
		}
		c.claim(r.Name(), in, h.span.Start, h.span.End)
	}
	return c
}
