// Package catalog serves sections from memory with the same filter semantics
// the database source renders to SQL.
package catalog

import (
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// Match reports whether s satisfies every constraint in f. Percentages are
// taken against the section total; a section with no students fails every
// percentage constraint.
func Match(s *types.Section, f *types.Filters) bool {
	return matchCourse(s, f) &&
		matchPeople(s, f) &&
		matchTerms(s, f) &&
		matchBounds(s, f) &&
		matchGrades(s, f)
}

func matchCourse(s *types.Section, f *types.Filters) bool {
	if len(f.Subjects) > 0 && !slices.ContainsFunc(f.Subjects, func(code string) bool {
		return strings.EqualFold(code, s.Course.SubjectCode)
	}) {
		return false
	}
	if len(f.CourseNumbers) > 0 && len(f.Subjects) > 0 && !f.HasCourseRange() &&
		!slices.Contains(f.CourseNumbers, s.Course.CourseNumber) {
		return false
	}
	if f.HasCourseRange() {
		n, err := strconv.Atoi(s.Course.CourseNumber)
		if err != nil {
			return false
		}
		if f.CourseNumberMin != nil && n < *f.CourseNumberMin {
			return false
		}
		if f.CourseNumberMax != nil && n > *f.CourseNumberMax {
			return false
		}
	}
	if len(f.CourseLevels) > 0 && !slices.Contains(f.CourseLevels, s.Course.Level) {
		return false
	}
	title := strings.ToLower(s.Course.Title)
	for _, part := range f.CourseTitleContains {
		if !strings.Contains(title, strings.ToLower(part)) {
			return false
		}
	}
	return true
}

func matchPeople(s *types.Section, f *types.Filters) bool {
	name := strings.ToLower(s.Instructor.NameDisplay)
	contains := func(fragment string) bool {
		return strings.Contains(name, strings.ToLower(fragment))
	}
	if len(f.Instructors) > 0 && !slices.ContainsFunc(f.Instructors, contains) {
		return false
	}
	return !slices.ContainsFunc(f.ExcludeInstructors, contains)
}

// termMatches treats a label with a year as exact and a bare season as any
// year of that season.
func termMatches(label, term string) bool {
	if strings.Contains(term, " ") {
		return label == term
	}
	return strings.HasPrefix(strings.ToLower(label), strings.ToLower(term)+" ")
}

func matchTerms(s *types.Section, f *types.Filters) bool {
	label := s.Term.Label
	if len(f.Terms) > 0 && !slices.ContainsFunc(f.Terms, func(t string) bool { return termMatches(label, t) }) {
		return false
	}
	return !slices.Contains(f.ExcludeTerms, label)
}

func matchBounds(s *types.Section, f *types.Filters) bool {
	if f.GPAMin != nil || f.GPAMax != nil {
		gpa := s.GPA()
		if gpa == nil {
			return false
		}
		if f.GPAMin != nil && *gpa < *f.GPAMin {
			return false
		}
		if f.GPAMax != nil && *gpa > *f.GPAMax {
			return false
		}
	}
	if f.CreditsMin != nil || f.CreditsMax != nil {
		credits := s.CreditHours()
		if credits == nil {
			return false
		}
		if f.CreditsMin != nil && *credits < *f.CreditsMin {
			return false
		}
		if f.CreditsMax != nil && *credits > *f.CreditsMax {
			return false
		}
	}
	enrollment := s.Enrollment()
	if f.EnrollmentMin != nil && enrollment < *f.EnrollmentMin {
		return false
	}
	if f.EnrollmentMax != nil && enrollment > *f.EnrollmentMax {
		return false
	}
	return true
}

func matchGrades(s *types.Section, f *types.Filters) bool {
	v := s.Grades.Breakdown
	for key, n := range f.GradeMin {
		if v.FamilyCount(key) < n {
			return false
		}
	}
	for key, n := range f.GradeMax {
		if v.FamilyCount(key) > n {
			return false
		}
	}

	total := s.Total()
	percentOK := func(count int, pct float64, atLeast bool) bool {
		if total <= 0 {
			return false
		}
		share := grades.Percent(count, total)
		if atLeast {
			return share >= pct
		}
		return share <= pct
	}
	for key, pct := range f.GradeMinPercent {
		if !percentOK(v.AtOrAbove(key), pct, true) {
			return false
		}
	}
	for key, pct := range f.GradeShareMinPercent {
		if !percentOK(v.FamilyCount(key), pct, true) {
			return false
		}
	}
	for key, pct := range f.GradeShareMaxPercent {
		if !percentOK(v.FamilyCount(key), pct, false) {
			return false
		}
	}
	if f.BOrAbovePercentMin != nil && !percentOK(v.BOrAbove(), *f.BOrAbovePercentMin, true) {
		return false
	}

	for _, gc := range f.GradeCompare {
		if !compare(v.FamilyCount(gc.Left), v.FamilyCount(gc.Right), gc.Op) {
			return false
		}
	}
	return true
}

func compare(left, right int, op string) bool {
	switch op {
	case ">":
		return left > right
	case "<":
		return left < right
	case ">=":
		return left >= right
	case "<=":
		return left <= right
	case "=":
		return left == right
	}
	return true
}
