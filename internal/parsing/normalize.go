package parsing

import (
	"fmt"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// orderAliases maps the spellings models and users produce to ranking orders
var orderAliases = map[string]string{
	"desc":       types.OrderDescending,
	"descending": types.OrderDescending,
	"largest":    types.OrderDescending,
	"highest":    types.OrderDescending,
	"asc":        types.OrderAscending,
	"ascending":  types.OrderAscending,
	"smallest":   types.OrderAscending,
	"lowest":     types.OrderAscending,
}

// NormalizeOrder maps a ranking order spelling to its canonical form,
// returning "" when it is not recognized.
func NormalizeOrder(order string) string {
	return orderAliases[strings.ToLower(strings.TrimSpace(order))]
}

// NormalizeGradeKey canonicalizes a grade key from free text: bare letters
// stay family keys, modified letters become bucket keys. Unknown keys yield
// "".
func NormalizeGradeKey(key string) string {
	k := strings.ToUpper(strings.TrimSpace(key))
	k = strings.TrimSuffix(strings.TrimSuffix(k, "'S"), "S")
	if k == "" {
		return ""
	}
	return letterKey(splitLetter(k))
}

// NormalizeFilters cleans filters produced outside the rule-based parser:
// codes are upper-cased, lists deduplicated, grade keys canonicalized and
// unusable entries dropped. It returns a ValidationError for values outside
// their domain.
func NormalizeFilters(f *types.Filters) error {
	f.Subjects = cleanList(f.Subjects, strings.ToUpper)
	f.CourseNumbers = cleanList(f.CourseNumbers, nil)
	f.CourseLevels = cleanList(f.CourseLevels, strings.ToUpper)
	f.Instructors = cleanList(f.Instructors, nil)
	f.ExcludeInstructors = cleanList(f.ExcludeInstructors, nil)
	f.Terms = cleanList(f.Terms, canonicalTerm)
	f.ExcludeTerms = cleanList(f.ExcludeTerms, canonicalTerm)
	f.CourseTitleContains = cleanList(f.CourseTitleContains, nil)

	f.GradeMin = normalizeKeys(f.GradeMin)
	f.GradeMax = normalizeKeys(f.GradeMax)
	f.GradeMinPercent = normalizeKeys(f.GradeMinPercent)
	f.GradeShareMinPercent = normalizeKeys(f.GradeShareMinPercent)
	f.GradeShareMaxPercent = normalizeKeys(f.GradeShareMaxPercent)

	compares := f.GradeCompare[:0:0]
	for _, gc := range f.GradeCompare {
		left, right := NormalizeGradeKey(gc.Left), NormalizeGradeKey(gc.Right)
		if left == "" || right == "" || !types.ValidCompareOps[gc.Op] {
			continue
		}
		compares = append(compares, types.GradeComparison{Left: left, Right: right, Op: gc.Op})
	}
	f.GradeCompare = compares
	if len(f.GradeCompare) == 0 {
		f.GradeCompare = nil
	}

	if f.Ranking != nil {
		f.Ranking.Order = NormalizeOrder(f.Ranking.Order)
		if f.Ranking.Order == "" {
			f.Ranking.Order = types.OrderDescending
		}
		if f.Ranking.By != types.RankByGPA {
			f.Ranking.By = types.RankByEnrollment
		}
		if f.Ranking.Limit != nil && *f.Ranking.Limit <= 0 {
			f.Ranking.Limit = nil
		}
	}

	swapInt(f.CourseNumberMin, f.CourseNumberMax)
	swapInt(f.CreditsMin, f.CreditsMax)
	swapInt(f.EnrollmentMin, f.EnrollmentMax)
	if f.GPAMin != nil && f.GPAMax != nil && *f.GPAMin > *f.GPAMax {
		*f.GPAMin, *f.GPAMax = *f.GPAMax, *f.GPAMin
	}
	return validateFilters(f)
}

func validateFilters(f *types.Filters) error {
	for name, v := range map[string]*float64{"gpa_min": f.GPAMin, "gpa_max": f.GPAMax} {
		if v != nil && (*v < 0 || *v > 4) {
			return &ValidationError{Field: name, Message: fmt.Sprintf("GPA %.2f outside [0, 4]", *v)}
		}
	}
	if f.BOrAbovePercentMin != nil && (*f.BOrAbovePercentMin < 0 || *f.BOrAbovePercentMin > 100) {
		return &ValidationError{Field: "b_or_above_percent_min", Message: "percentage outside [0, 100]"}
	}
	for name, m := range map[string]map[string]float64{
		"grade_min_percent":       f.GradeMinPercent,
		"grade_share_min_percent": f.GradeShareMinPercent,
		"grade_share_max_percent": f.GradeShareMaxPercent,
	} {
		for key, v := range m {
			if v < 0 || v > 100 {
				return &ValidationError{Field: fmt.Sprintf("%s[%s]", name, key), Message: "percentage outside [0, 100]"}
			}
		}
	}
	for name, m := range map[string]map[string]int{"grade_min": f.GradeMin, "grade_max": f.GradeMax} {
		for key, v := range m {
			if v < 0 {
				return &ValidationError{Field: fmt.Sprintf("%s[%s]", name, key), Message: "count must not be negative"}
			}
		}
	}
	for name, v := range map[string]*int{
		"credits_min": f.CreditsMin, "credits_max": f.CreditsMax,
		"enrollment_min": f.EnrollmentMin, "enrollment_max": f.EnrollmentMax,
	} {
		if v != nil && *v < 0 {
			return &ValidationError{Field: name, Message: "bound must not be negative"}
		}
	}
	return nil
}

func cleanList(in []string, transform func(string) string) []string {
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if transform != nil {
			v = transform(v)
		}
		if v != "" {
			out = appendUnique(out, v)
		}
	}
	return out
}

// canonicalTerm accepts "fall 2023" and bare seasons; anything else is
// dropped.
func canonicalTerm(label string) string {
	if tc, err := types.ParseTermLabel(label); err == nil {
		return tc.Label()
	}
	return types.CanonicalSeason(label)
}

func normalizeKeys[V any](in map[string]V) map[string]V {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		if key := NormalizeGradeKey(k); key != "" {
			out[key] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func swapInt(lo, hi *int) {
	if lo != nil && hi != nil && *lo > *hi {
		*lo, *hi = *hi, *lo
	}
}
