package parsing

import (
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// defaultSubjectCodes is the built-in subject table used until a database
// subject list replaces it.
var defaultSubjectCodes = []string{
	"AAEC", "ACIS", "AHRM", "AINS", "ALS", "AOE", "APSC", "ARBC", "ARCH", "ART", "AS", "ASPT",
	"BC", "BCHM", "BIOL", "BMES", "BMSP", "BMVS", "BSE", "BTDM", "CEE", "CEM", "CHE", "CHEM",
	"CHN", "CINE", "CLA", "CMDA", "CMST", "CNST", "COMM", "COS", "CRIM", "CS", "CSES", "DANC",
	"DASC", "ECE", "ECON", "EDCI", "EDCO", "EDEL", "EDEP", "EDHE", "EDIT", "EDP", "EDRE",
	"EDTE", "ENGE", "ENGL", "ENGR", "ENSC", "ENT", "ESM", "FA", "FCS", "FIN", "FIW", "FL",
	"FMD", "FR", "FREC", "FST", "GEOG", "GEOS", "GER", "GIA", "GR", "GRAD", "GRK", "HD", "HEB",
	"HIST", "HNFE", "HORT", "HTM", "HUM", "IDS", "IS", "ISC", "ISE", "ITAL", "ITDS", "JPN",
	"JUD", "KOR", "LAHS", "LAR", "LAT", "LDRS", "MACR", "MATH", "ME", "MGT", "MINE", "MKTG",
	"MN", "MS", "MSE", "MTRG", "MUS", "NANO", "NEUR", "NR", "NSEG", "PAPA", "PHIL", "PHS",
	"PHYS", "PORT", "PPWS", "PSCI", "PSVP", "PSYC", "REAL", "RED", "RLCL", "RTM", "RUS",
	"SBIO", "SOC", "SPAN", "SPIA", "STAT", "STL", "STS", "SYSB", "TA", "TBMH", "UAP", "UH",
	"VM", "WATR", "WGS",
}

// defaultSubjectAliases maps spelled-out subject names to codes.
var defaultSubjectAliases = map[string]string{
	"computer science":          "CS",
	"mathematics":               "MATH",
	"statistics":                "STAT",
	"physics":                   "PHYS",
	"chemistry":                 "CHEM",
	"biology":                   "BIOL",
	"biochemistry":              "BCHM",
	"economics":                 "ECON",
	"english":                   "ENGL",
	"history":                   "HIST",
	"psychology":                "PSYC",
	"philosophy":                "PHIL",
	"sociology":                 "SOC",
	"accounting":                "ACIS",
	"finance":                   "FIN",
	"marketing":                 "MKTG",
	"management":                "MGT",
	"electrical engineering":    "ECE",
	"computer engineering":      "ECE",
	"mechanical engineering":    "ME",
	"civil engineering":         "CEE",
	"chemical engineering":      "CHE",
	"aerospace engineering":     "AOE",
	"industrial engineering":    "ISE",
	"materials science":         "MSE",
	"engineering education":     "ENGE",
	"political science":         "PSCI",
	"communication":             "COMM",
	"geography":                 "GEOG",
	"geosciences":               "GEOS",
	"architecture":              "ARCH",
	"music":                     "MUS",
	"spanish":                   "SPAN",
	"french":                    "FR",
	"german":                    "GER",
	"japanese":                  "JPN",
	"chinese":                   "CHN",
	"russian":                   "RUS",
	"criminology":               "CRIM",
	"neuroscience":              "NEUR",
	"human development":         "HD",
	"hospitality":               "HTM",
	"computational modeling":    "CMDA",
}

// wordCodes are subject codes that are also common English words. They only
// count as subjects when written in upper case.
var wordCodes = toSet(
	"art", "as", "is", "me", "fin", "hum", "lat", "real", "red", "gr", "fr", "cos", "uh", "ta",
	"fa", "ms", "mn", "nr", "ent", "fl", "hd", "edit", "mine", "port", "span", "grad", "phil",
)

// SubjectTable knows the subject codes and aliases the recognizers accept.
type SubjectTable struct {
	names   map[string]string // code -> display name
	aliases map[string]string // lowercased name -> code
	aliasRe *regexp.Regexp
}

// DefaultSubjects returns the built-in table.
func DefaultSubjects() *SubjectTable {
	subjects := make([]types.Subject, 0, len(defaultSubjectCodes))
	for _, code := range defaultSubjectCodes {
		subjects = append(subjects, types.Subject{SubjectCode: code})
	}
	return NewSubjectTable(subjects)
}

// NewSubjectTable builds a table from a subject listing. Subject names become
// aliases alongside the built-in ones.
func NewSubjectTable(subjects []types.Subject) *SubjectTable {
	t := &SubjectTable{
		names:   make(map[string]string, len(subjects)),
		aliases: make(map[string]string),
	}
	for _, s := range subjects {
		code := strings.ToUpper(strings.TrimSpace(s.SubjectCode))
		if code == "" {
			continue
		}
		t.names[code] = s.Name
		if name := strings.ToLower(strings.TrimSpace(s.Name)); name != "" && name != strings.ToLower(code) {
			t.aliases[name] = code
		}
	}
	for alias, code := range defaultSubjectAliases {
		if _, ok := t.names[code]; !ok {
			continue
		}
		if _, taken := t.aliases[alias]; !taken {
			t.aliases[alias] = code
		}
	}

	keys := make([]string, 0, len(t.aliases))
	for alias := range t.aliases {
		keys = append(keys, regexp.QuoteMeta(alias))
	}
	// Longest first so "computer science" wins over "science".
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	if len(keys) > 0 {
		t.aliasRe = regexp.MustCompile(`\b(?:` + strings.Join(keys, "|") + `)\b`)
	}
	return t
}

// Len returns the number of known codes.
func (t *SubjectTable) Len() int {
	return len(t.names)
}

// Has reports whether code is a known subject code.
func (t *SubjectTable) Has(code string) bool {
	_, ok := t.names[strings.ToUpper(code)]
	return ok
}

// IsAlias reports whether a lowercased phrase is a subject name.
func (t *SubjectTable) IsAlias(lower string) bool {
	_, ok := t.aliases[lower]
	return ok
}

// Lookup resolves a word as written to a subject code. Codes that double as
// English words only resolve when the word is upper case.
func (t *SubjectTable) Lookup(word string) (string, bool) {
	code := strings.ToUpper(word)
	if _, ok := t.names[code]; !ok {
		return "", false
	}
	if wordCodes[strings.ToLower(word)] && word != code {
		return "", false
	}
	return code, true
}

// SubjectRecognizer finds subject codes and subject names.
type SubjectRecognizer struct {
	table *SubjectTable
}

// NewSubjectRecognizer creates a recognizer over table.
func NewSubjectRecognizer(table *SubjectTable) *SubjectRecognizer {
	return &SubjectRecognizer{table: table}
}

// Name identifies the recognizer in debug output.
func (r *SubjectRecognizer) Name() string { return "subject" }

var codeWordPattern = regexp.MustCompile(`\b[A-Za-z]{2,5}\b`)

// Recognize implements Recognizer.
func (r *SubjectRecognizer) Recognize(in *Input) Contribution {
	var c Contribution
	type hit struct {
		start, end int
		code       string
	}
	var hits []hit

	if r.table.aliasRe != nil {
		for _, loc := range r.table.aliasRe.FindAllStringIndex(in.Lower, -1) {
			hits = append(hits, hit{loc[0], loc[1], r.table.aliases[in.Lower[loc[0]:loc[1]]]})
		}
	}
	for _, loc := range codeWordPattern.FindAllStringIndex(in.Text, -1) {
		span := types.Span{Start: loc[0], End: loc[1]}
		covered := false
		for _, h := range hits {
			if span.Overlaps(types.Span{Start: h.start, End: h.end}) {
				covered = true
				break
			}
		}
		if covered || isSeasonOrGradeWord(in.Text[loc[0]:loc[1]]) {
			continue
		}
		if code, ok := r.table.Lookup(in.Text[loc[0]:loc[1]]); ok {
			hits = append(hits, hit{loc[0], loc[1], code})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	for _, h := range hits {
		c.Filters.Subjects = appendUnique(c.Filters.Subjects, h.code)
		c.claim(r.Name(), in, h.start, h.end)
	}
	return c
}

// isSeasonOrGradeWord catches "Fall" and plural letter grades like "Cs",
// which would otherwise shadow subject codes.
func isSeasonOrGradeWord(word string) bool {
	if types.SeasonIndex(word) >= 0 {
		return true
	}
	return len(word) == 2 && word[0] >= 'A' && word[0] <= 'F' && word[1] == 's'
}
