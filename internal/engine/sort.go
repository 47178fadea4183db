package engine

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Sort keys
const (
	SortCourse     = "course"
	SortInstructor = "instructor"
	SortSemester   = "semester"
	SortGPA        = "gpa"
	SortEnrollment = "enrollment"
	SortThreshold  = "threshold"
)

// SortKeys lists every accepted sort key.
var SortKeys = []string{SortCourse, SortInstructor, SortSemester, SortGPA, SortEnrollment, SortThreshold}

// ValidSortKey reports whether key is one of SortKeys.
func ValidSortKey(key string) bool {
	return slices.Contains(SortKeys, key)
}

type comparator func(a, b *types.Section) int

// Sort returns a stably sorted copy of sections. Descending order inverts the
// comparator, so for a key without ties it is the exact reverse of
// ascending. Unknown keys sort by course.
func Sort(sections []types.Section, key string, desc bool, threshold string) []types.Section {
	out := slices.Clone(sections)
	compare := comparatorFor(key, threshold)
	if desc {
		asc := compare
		compare = func(a, b *types.Section) int { return asc(b, a) }
	}
	slices.SortStableFunc(out, func(a, b types.Section) int {
		return compare(&a, &b)
	})
	return out
}

func comparatorFor(key, threshold string) comparator {
	switch key {
	case SortInstructor:
		return func(a, b *types.Section) int {
			return strings.Compare(strings.ToLower(a.Instructor.NameDisplay), strings.ToLower(b.Instructor.NameDisplay))
		}
	case SortSemester:
		return func(a, b *types.Section) int {
			return cmp.Or(
				cmp.Compare(types.TermSortKey(a.Term.Label), types.TermSortKey(b.Term.Label)),
				cmp.Compare(a.TermID, b.TermID),
			)
		}
	case SortGPA:
		return func(a, b *types.Section) int {
			return compareNullable(a.GPA(), b.GPA())
		}
	case SortEnrollment:
		return func(a, b *types.Section) int {
			return cmp.Compare(a.Total(), b.Total())
		}
	case SortThreshold:
		return func(a, b *types.Section) int {
			return cmp.Compare(a.Threshold(threshold).Percent, b.Threshold(threshold).Percent)
		}
	default:
		return func(a, b *types.Section) int {
			return cmp.Or(
				cmp.Compare(a.Course.SubjectCode, b.Course.SubjectCode),
				compareCourseNumbers(a.Course.CourseNumber, b.Course.CourseNumber),
			)
		}
	}
}

// compareNullable orders nil before every value.
func compareNullable(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	return cmp.Compare(*a, *b)
}

// compareCourseNumbers compares numerically when both parse, falling back to
// text so "2104H" still has a stable place.
func compareCourseNumbers(a, b string) int {
	na, errA := strconv.Atoi(a)
	nb, errB := strconv.Atoi(b)
	if errA == nil && errB == nil {
		return cmp.Compare(na, nb)
	}
	return strings.Compare(a, b)
}
