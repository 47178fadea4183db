package db

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// gradeColumns maps grades.Letters to grade_distribution columns.
var gradeColumns = [grades.NumBuckets]string{
	"a", "a_minus", "b_plus", "b", "b_minus", "c_plus", "c", "c_minus", "d_plus", "d", "d_minus", "f",
}

// selectColumns lists the view columns in the order scanSection reads them.
var selectColumns = strings.Join(append([]string{
	"section_id", "course_id", "term_id", "instructor_id", "section_credits", "section_graded_enrollment",
	"subject_code", "subject_name", "course_number", "course_title", "course_credits", "course_level",
	"term_label", "academic_year", "instructor", "gpa",
}, append(gradeColumns[:], "withdraws", "graded_enrollment")...), ", ")

// Derived expressions. They mirror the Section methods so SQL and the
// in-memory catalog agree on every filter.
var (
	bucketSumExpr    = sumBuckets(allBuckets())
	enrollmentExpr   = "COALESCE(section_graded_enrollment, graded_enrollment)"
	totalExpr        = fmt.Sprintf("GREATEST(COALESCE(%s, 0), %s)", enrollmentExpr, bucketSumExpr)
	gpaExpr          = fmt.Sprintf("COALESCE(gpa, (%s)::float8 / NULLIF(%s, 0))", pointsExpr(), bucketSumExpr)
	creditsExpr      = "COALESCE(section_credits, course_credits)"
	courseNumberExpr = "CASE WHEN course_number ~ '^[0-9]+$' THEN CAST(course_number AS INT) END"
)

// Query is a rendered statement with its positional arguments.
type Query struct {
	SQL  string
	Args []any
}

type builder struct {
	where []string
	args  []any
}

// arg binds v and returns its placeholder.
func (b *builder) arg(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) and(clause string) {
	b.where = append(b.where, clause)
}

// BuildSectionQuery renders f as a SELECT over v_grade_distribution_full.
// Course numbers only apply together with subjects and without a range.
func BuildSectionQuery(f *types.Filters, limit int) Query {
	b := &builder{}

	if len(f.Subjects) > 0 {
		upper := make([]string, len(f.Subjects))
		for i, s := range f.Subjects {
			upper[i] = strings.ToUpper(s)
		}
		b.and("UPPER(subject_code) = ANY(" + b.arg(upper) + ")")
	}
	if f.HasCourseRange() {
		if f.CourseNumberMin != nil {
			b.and(courseNumberExpr + " >= " + b.arg(*f.CourseNumberMin))
		}
		if f.CourseNumberMax != nil {
			b.and(courseNumberExpr + " <= " + b.arg(*f.CourseNumberMax))
		}
	} else if len(f.CourseNumbers) > 0 && len(f.Subjects) > 0 {
		b.and("course_number = ANY(" + b.arg(f.CourseNumbers) + ")")
	}
	if len(f.CourseLevels) > 0 {
		b.and("course_level = ANY(" + b.arg(f.CourseLevels) + ")")
	}
	if len(f.CourseTitleContains) > 0 {
		b.and("course_title ILIKE ALL(" + b.arg(containsPatterns(f.CourseTitleContains)) + ")")
	}
	if len(f.Instructors) > 0 {
		b.and("instructor ILIKE ANY(" + b.arg(containsPatterns(f.Instructors)) + ")")
	}
	if len(f.ExcludeInstructors) > 0 {
		b.and("NOT (instructor ILIKE ANY(" + b.arg(containsPatterns(f.ExcludeInstructors)) + "))")
	}

	if len(f.Terms) > 0 {
		var labels, seasons []string
		for _, t := range f.Terms {
			if strings.Contains(t, " ") {
				labels = append(labels, t)
			} else {
				seasons = append(seasons, escapeLike(t)+" %")
			}
		}
		var alts []string
		if len(labels) > 0 {
			alts = append(alts, "term_label = ANY("+b.arg(labels)+")")
		}
		if len(seasons) > 0 {
			alts = append(alts, "term_label ILIKE ANY("+b.arg(seasons)+")")
		}
		b.and("(" + strings.Join(alts, " OR ") + ")")
	}
	if len(f.ExcludeTerms) > 0 {
		b.and("NOT (term_label = ANY(" + b.arg(f.ExcludeTerms) + "))")
	}

	if f.GPAMin != nil {
		b.and(gpaExpr + " >= " + b.arg(*f.GPAMin))
	}
	if f.GPAMax != nil {
		b.and(gpaExpr + " <= " + b.arg(*f.GPAMax))
	}
	if f.CreditsMin != nil {
		b.and(creditsExpr + " >= " + b.arg(*f.CreditsMin))
	}
	if f.CreditsMax != nil {
		b.and(creditsExpr + " <= " + b.arg(*f.CreditsMax))
	}
	if f.EnrollmentMin != nil {
		b.and(enrollmentExpr + " >= " + b.arg(*f.EnrollmentMin))
	}
	if f.EnrollmentMax != nil {
		b.and(enrollmentExpr + " <= " + b.arg(*f.EnrollmentMax))
	}

	for _, key := range sortedKeys(f.GradeMin) {
		b.and(familyExpr(key) + " >= " + b.arg(f.GradeMin[key]))
	}
	for _, key := range sortedKeys(f.GradeMax) {
		b.and(familyExpr(key) + " <= " + b.arg(f.GradeMax[key]))
	}
	for _, key := range sortedKeys(f.GradeMinPercent) {
		b.and(percentExpr(atOrAboveExpr(key)) + " >= " + b.arg(f.GradeMinPercent[key]))
	}
	for _, key := range sortedKeys(f.GradeShareMinPercent) {
		b.and(percentExpr(familyExpr(key)) + " >= " + b.arg(f.GradeShareMinPercent[key]))
	}
	for _, key := range sortedKeys(f.GradeShareMaxPercent) {
		b.and(percentExpr(familyExpr(key)) + " <= " + b.arg(f.GradeShareMaxPercent[key]))
	}
	if f.BOrAbovePercentMin != nil {
		b.and(percentExpr(atOrAboveExpr(grades.BOrAboveFloor)) + " >= " + b.arg(*f.BOrAbovePercentMin))
	}
	for _, gc := range f.GradeCompare {
		if !types.ValidCompareOps[gc.Op] {
			continue
		}
		b.and(familyExpr(gc.Left) + " " + gc.Op + " " + familyExpr(gc.Right))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM v_grade_distribution_full")
	if len(b.where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(b.where, " AND "))
	}
	sb.WriteString(" ORDER BY " + orderBy(f.Ranking))

	if f.Ranking != nil && f.Ranking.Limit != nil && *f.Ranking.Limit >= 0 && *f.Ranking.Limit < limit {
		limit = *f.Ranking.Limit
	}
	sb.WriteString(" LIMIT " + b.arg(limit))
	return Query{SQL: sb.String(), Args: b.args}
}

func orderBy(hint *types.RankingHint) string {
	const defaultOrder = "term_id DESC, section_id"
	if hint == nil {
		return defaultOrder
	}
	asc := hint.Order == types.OrderAscending
	if hint.By == types.RankByGPA {
		if asc {
			return gpaExpr + " ASC NULLS FIRST, " + defaultOrder
		}
		return gpaExpr + " DESC NULLS LAST, " + defaultOrder
	}
	if asc {
		return totalExpr + " ASC, " + defaultOrder
	}
	return totalExpr + " DESC, " + defaultOrder
}

func allBuckets() []int {
	idx := make([]int, grades.NumBuckets)
	for i := range idx {
		idx[i] = i
	}
	return idx
}

func sumBuckets(idx []int) string {
	if len(idx) == 0 {
		return "0"
	}
	cols := make([]string, len(idx))
	for i, b := range idx {
		cols[i] = gradeColumns[b]
	}
	return "(" + strings.Join(cols, " + ") + ")"
}

func pointsExpr() string {
	terms := make([]string, grades.NumBuckets)
	for i, col := range gradeColumns {
		terms[i] = fmt.Sprintf("%.1f * %s", grades.Points[i], col)
	}
	return strings.Join(terms, " + ")
}

// familyExpr sums the buckets a grade key addresses.
func familyExpr(key string) string {
	return sumBuckets(grades.Buckets(key))
}

// atOrAboveExpr sums every bucket from A down to the floor of key.
func atOrAboveExpr(key string) string {
	floor, ok := grades.Index(grades.Floor(key))
	if !ok {
		return "0"
	}
	return sumBuckets(allBuckets()[:floor+1])
}

// percentExpr is NULL for sections without students, so every percentage
// comparison fails for them.
func percentExpr(count string) string {
	return fmt.Sprintf("100.0 * %s / NULLIF(%s, 0)", count, totalExpr)
}

func containsPatterns(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = "%" + escapeLike(v) + "%"
	}
	return out
}

// escapeLike quotes LIKE metacharacters so user text matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}
