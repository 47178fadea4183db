package types

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Seasons in calendar order within a year.
var Seasons = []string{"Winter", "Spring", "Summer", "Fall"}

// TermContext is the "current term" used to resolve relative phrases. A zero
// TermContext means no current term is known.
type TermContext struct {
	Season string `json:"season"`
	Year   int    `json:"year"`
}

// IsZero reports whether no current term was supplied.
func (tc TermContext) IsZero() bool {
	return tc.Season == "" || tc.Year == 0
}

// Label renders the context as a term label.
func (tc TermContext) Label() string {
	if tc.IsZero() {
		return ""
	}
	return fmt.Sprintf("%s %d", tc.Season, tc.Year)
}

// SeasonIndex returns the in-year order of a season name, accepting
// "autumn" for Fall. It returns -1 for anything else.
func SeasonIndex(season string) int {
	s := strings.ToLower(strings.TrimSpace(season))
	if s == "autumn" {
		s = "fall"
	}
	for i, name := range Seasons {
		if strings.ToLower(name) == s {
			return i
		}
	}
	return -1
}

// CanonicalSeason returns the capitalized season name or "".
func CanonicalSeason(season string) string {
	if i := SeasonIndex(season); i >= 0 {
		return Seasons[i]
	}
	return ""
}

// ParseTermLabel parses "Fall 2023" into a TermContext.
func ParseTermLabel(label string) (TermContext, error) {
	fields := strings.Fields(label)
	if len(fields) != 2 {
		return TermContext{}, fmt.Errorf("invalid term label %q: expected \"<Season> <Year>\"", label)
	}
	season := CanonicalSeason(fields[0])
	if season == "" {
		return TermContext{}, fmt.Errorf("invalid term label %q: unknown season %q", label, fields[0])
	}
	year, err := strconv.Atoi(fields[1])
	if err != nil || year < 1900 || year > 2200 {
		return TermContext{}, fmt.Errorf("invalid term label %q: bad year %q", label, fields[1])
	}
	return TermContext{Season: season, Year: year}, nil
}

// TermForDate returns the term a calendar date falls in.
func TermForDate(t time.Time) TermContext {
	switch m := t.Month(); {
	case m == time.January:
		return TermContext{Season: "Winter", Year: t.Year()}
	case m <= time.May:
		return TermContext{Season: "Spring", Year: t.Year()}
	case m <= time.August:
		return TermContext{Season: "Summer", Year: t.Year()}
	default:
		return TermContext{Season: "Fall", Year: t.Year()}
	}
}

// ordinal places a term on a single chronological axis.
func (tc TermContext) ordinal() int {
	return tc.Year*len(Seasons) + SeasonIndex(tc.Season)
}

// Before reports whether tc is chronologically earlier than other.
func (tc TermContext) Before(other TermContext) bool {
	return tc.ordinal() < other.ordinal()
}

// TermID encodes a term the way the loader stores it: YYYY00 winter,
// YYYY01 spring, YYYY02 fall, YYYY03 summer.
func (tc TermContext) TermID() int {
	code := map[string]int{"Winter": 0, "Spring": 1, "Fall": 2, "Summer": 3}[tc.Season]
	return tc.Year*100 + code
}

// TermSortKey returns a chronological key for a term label; labels that do
// not parse sort first.
func TermSortKey(label string) int {
	tc, err := ParseTermLabel(label)
	if err != nil {
		return -1
	}
	return tc.ordinal()
}

// ResolveSeason finds the occurrence of season relative to the current term:
// offset -1 is the most recent one strictly before it, 0 the one in the
// current year and +1 the first one strictly after it.
func (tc TermContext) ResolveSeason(season string, offset int) (TermContext, bool) {
	idx := SeasonIndex(season)
	cur := SeasonIndex(tc.Season)
	if tc.IsZero() || idx < 0 || cur < 0 {
		return TermContext{}, false
	}
	year := tc.Year
	switch {
	case offset < 0:
		if idx >= cur {
			year--
		}
	case offset > 0:
		if idx <= cur {
			year++
		}
	}
	return TermContext{Season: Seasons[idx], Year: year}, true
}

// ResolveSemester steps over regular semesters (Spring and Fall) from the
// current term: offset 0 is the current term itself.
func (tc TermContext) ResolveSemester(offset int) (TermContext, bool) {
	cur := SeasonIndex(tc.Season)
	if tc.IsZero() || cur < 0 {
		return TermContext{}, false
	}
	if offset == 0 {
		return tc, true
	}
	spring := SeasonIndex("Spring")
	fall := SeasonIndex("Fall")
	if offset < 0 {
		if cur > spring {
			return TermContext{Season: "Spring", Year: tc.Year}, true
		}
		return TermContext{Season: "Fall", Year: tc.Year - 1}, true
	}
	if cur < spring {
		return TermContext{Season: "Spring", Year: tc.Year}, true
	}
	if cur < fall {
		return TermContext{Season: "Fall", Year: tc.Year}, true
	}
	return TermContext{Season: "Spring", Year: tc.Year + 1}, true
}
