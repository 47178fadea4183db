// Package ingestion reads published grade-distribution exports into
// sections ready for the catalog or the database.
package ingestion

import (
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// Record is one parsed CSV row.
type Record struct {
	Line             int
	AcademicYear     string
	Term             types.TermContext
	SubjectCode      string
	CourseNumber     string
	Title            string
	Instructor       string
	GPA              *float64
	Percentages      [grades.NumBuckets]float64
	Counts           grades.Vector
	Withdraws        int
	GradedEnrollment int
	CRN              int
	Credits          *int
}

// Level classifies the course as undergraduate (numbers starting 0-4) or
// graduate.
func (r *Record) Level() string {
	if r.CourseNumber != "" && r.CourseNumber[0] >= '0' && r.CourseNumber[0] <= '4' {
		return types.LevelUndergraduate
	}
	return types.LevelGraduate
}

// TermID is the stored term identifier.
func (r *Record) TermID() int {
	return r.Term.TermID()
}

// SectionID makes the CRN unique across terms, since CRNs are reused.
func (r *Record) SectionID() int64 {
	return int64(r.TermID())*100000 + int64(r.CRN)
}
