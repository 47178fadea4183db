// Package types provides type definitions for structured data used throughout the grade-explorer system.
//
//nolint:revive // types is a standard Go package name pattern
package types

// Intent is the coarse classification of a query's shape.
type Intent string

const (
	// IntentCourseLookup means the query names a subject, course, instructor or term
	IntentCourseLookup Intent = "course_lookup"
	// IntentBrowseSubjects means nothing anchored the query to specific courses
	IntentBrowseSubjects Intent = "browse_subjects"
)

// Parser mode names accepted by the pipeline and the HTTP API.
const (
	ModeRuleBased = "rule-based"
	ModeLLM       = "llm"
	ModeAuto      = "auto"
)

// Ranking orders
const (
	OrderAscending  = "ascending"
	OrderDescending = "descending"
)

// Ranking metrics
const (
	RankByEnrollment = "enrollment"
	RankByGPA        = "gpa"
)

// Course levels as stored on the course table.
const (
	LevelUndergraduate = "UG"
	LevelGraduate      = "GR"
)

// Filters is the structured form of a parsed query. Every field is optional
// and an empty Filters matches every section. List fields are OR'd within
// themselves (except course_title_contains, which is AND'd) and all groups
// are AND'd together.
type Filters struct {
	Subjects        []string `json:"subjects"`
	CourseNumbers   []string `json:"course_numbers"`
	CourseNumberMin *int     `json:"course_number_min"`
	CourseNumberMax *int     `json:"course_number_max"`
	CourseLevels    []string `json:"course_levels"`

	Instructors        []string `json:"instructors"`
	ExcludeInstructors []string `json:"exclude_instructors"`

	Terms        []string      `json:"terms"`
	ExcludeTerms []string      `json:"exclude_terms"`
	RelativeTerm *RelativeTerm `json:"relative_term"`

	CourseTitleContains []string `json:"course_title_contains"`

	GPAMin        *float64 `json:"gpa_min"`
	GPAMax        *float64 `json:"gpa_max"`
	CreditsMin    *int     `json:"credits_min"`
	CreditsMax    *int     `json:"credits_max"`
	EnrollmentMin *int     `json:"enrollment_min"`
	EnrollmentMax *int     `json:"enrollment_max"`

	// Bare letters (A, B, C, D, F) address a letter family; letters with a
	// modifier address a single bucket.
	GradeMin             map[string]int     `json:"grade_min"`
	GradeMax             map[string]int     `json:"grade_max"`
	GradeMinPercent      map[string]float64 `json:"grade_min_percent"`
	GradeShareMinPercent map[string]float64 `json:"grade_share_min_percent"`
	GradeShareMaxPercent map[string]float64 `json:"grade_share_max_percent"`
	BOrAbovePercentMin   *float64           `json:"b_or_above_percent_min"`
	GradeCompare         []GradeComparison  `json:"grade_compare"`

	Ranking *RankingHint `json:"ranking"`
}

// RelativeTerm records a phrase like "last spring" and, when a current term
// was known, the concrete label it resolved to.
type RelativeTerm struct {
	Phrase   string `json:"phrase"`
	Season   string `json:"season,omitempty"`
	Offset   int    `json:"offset"`
	Resolved string `json:"resolved,omitempty"`
}

// GradeComparison is a relational constraint between two grade counts.
type GradeComparison struct {
	Left  string `json:"left"`
	Right string `json:"right"`
	Op    string `json:"op"`
}

// RankingHint orders results by a metric and optionally truncates them.
type RankingHint struct {
	Order string `json:"order"`
	Limit *int   `json:"limit,omitempty"`
	By    string `json:"by"`
}

// ValidCompareOps lists the accepted grade comparison operators.
var ValidCompareOps = map[string]bool{">": true, "<": true, ">=": true, "<=": true, "=": true}

// IsEmpty reports whether no constraint of any kind is set.
func (f *Filters) IsEmpty() bool {
	return f.CategoryCount() == 0
}

// Anchored reports whether the filters name specific subjects, courses,
// instructors or terms.
func (f *Filters) Anchored() bool {
	return len(f.Subjects) > 0 || len(f.CourseNumbers) > 0 || len(f.Instructors) > 0 || len(f.Terms) > 0
}

// Intent derives the query intent from the populated fields.
func (f *Filters) Intent() Intent {
	if f.Anchored() {
		return IntentCourseLookup
	}
	return IntentBrowseSubjects
}

// HasCourseRange reports whether a numeric course range is set.
func (f *Filters) HasCourseRange() bool {
	return f.CourseNumberMin != nil || f.CourseNumberMax != nil
}

// HasGradeConstraints reports whether any per-letter constraint is set.
func (f *Filters) HasGradeConstraints() bool {
	return len(f.GradeMin) > 0 || len(f.GradeMax) > 0 || len(f.GradeMinPercent) > 0 ||
		len(f.GradeShareMinPercent) > 0 || len(f.GradeShareMaxPercent) > 0 || f.BOrAbovePercentMin != nil
}

// CategoryCount returns how many distinct signal categories are populated.
func (f *Filters) CategoryCount() int {
	checks := []bool{
		len(f.Subjects) > 0,
		len(f.CourseNumbers) > 0 || f.HasCourseRange() || len(f.CourseLevels) > 0,
		len(f.Instructors) > 0 || len(f.ExcludeInstructors) > 0,
		len(f.Terms) > 0 || len(f.ExcludeTerms) > 0 || f.RelativeTerm != nil,
		len(f.CourseTitleContains) > 0,
		f.GPAMin != nil || f.GPAMax != nil,
		f.CreditsMin != nil || f.CreditsMax != nil,
		f.EnrollmentMin != nil || f.EnrollmentMax != nil,
		f.HasGradeConstraints(),
		len(f.GradeCompare) > 0,
		f.Ranking != nil,
	}
	n := 0
	for _, ok := range checks {
		if ok {
			n++
		}
	}
	return n
}

// Clone returns a deep copy so callers can adjust filters without touching
// the interpretation they came from.
func (f *Filters) Clone() Filters {
	out := *f
	out.Subjects = cloneStrings(f.Subjects)
	out.CourseNumbers = cloneStrings(f.CourseNumbers)
	out.CourseLevels = cloneStrings(f.CourseLevels)
	out.Instructors = cloneStrings(f.Instructors)
	out.ExcludeInstructors = cloneStrings(f.ExcludeInstructors)
	out.Terms = cloneStrings(f.Terms)
	out.ExcludeTerms = cloneStrings(f.ExcludeTerms)
	out.CourseTitleContains = cloneStrings(f.CourseTitleContains)
	out.CourseNumberMin = clonePtr(f.CourseNumberMin)
	out.CourseNumberMax = clonePtr(f.CourseNumberMax)
	out.GPAMin = clonePtr(f.GPAMin)
	out.GPAMax = clonePtr(f.GPAMax)
	out.CreditsMin = clonePtr(f.CreditsMin)
	out.CreditsMax = clonePtr(f.CreditsMax)
	out.EnrollmentMin = clonePtr(f.EnrollmentMin)
	out.EnrollmentMax = clonePtr(f.EnrollmentMax)
	out.BOrAbovePercentMin = clonePtr(f.BOrAbovePercentMin)
	out.GradeMin = cloneMap(f.GradeMin)
	out.GradeMax = cloneMap(f.GradeMax)
	out.GradeMinPercent = cloneMap(f.GradeMinPercent)
	out.GradeShareMinPercent = cloneMap(f.GradeShareMinPercent)
	out.GradeShareMaxPercent = cloneMap(f.GradeShareMaxPercent)
	if f.GradeCompare != nil {
		out.GradeCompare = append([]GradeComparison(nil), f.GradeCompare...)
	}
	if f.RelativeTerm != nil {
		rt := *f.RelativeTerm
		out.RelativeTerm = &rt
	}
	if f.Ranking != nil {
		r := *f.Ranking
		r.Limit = clonePtr(f.Ranking.Limit)
		out.Ranking = &r
	}
	return out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMap[V any](in map[string]V) map[string]V {
	if in == nil {
		return nil
	}
	out := make(map[string]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
