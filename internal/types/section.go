package types

import "github.com/jonathan/grade-explorer/internal/grades"

// Section is one grade-distribution record for a course section taught by
// one instructor in one term. Sections are read-only once fetched.
type Section struct {
	SectionID        int64 `json:"section_id"`
	CourseID         int64 `json:"course_id"`
	TermID           int   `json:"term_id"`
	InstructorID     int64 `json:"instructor_id"`
	Credits          *int  `json:"credits"`
	GradedEnrollment *int  `json:"graded_enrollment"`

	Course     Course        `json:"course"`
	Term       Term          `json:"term"`
	Instructor Instructor    `json:"instructor"`
	Grades     SectionGrades `json:"grades"`
}

// Course describes the catalog entry a section belongs to.
type Course struct {
	CourseID     int64  `json:"course_id,omitempty"`
	SubjectCode  string `json:"subject_code"`
	SubjectName  string `json:"subject_name,omitempty"`
	CourseNumber string `json:"course_number"`
	Title        string `json:"title,omitempty"`
	Credits      *int   `json:"credits,omitempty"`
	Level        string `json:"level,omitempty"`
}

// Term identifies an academic term.
type Term struct {
	TermID       int    `json:"term_id"`
	Label        string `json:"label"`
	AcademicYear string `json:"academic_year,omitempty"`
}

// Instructor identifies who taught a section.
type Instructor struct {
	InstructorID int64  `json:"instructor_id"`
	NameDisplay  string `json:"name_display"`
}

// SectionGrades carries the raw distribution and any authoritative figures
// the data source supplied.
type SectionGrades struct {
	GPA              *float64      `json:"gpa"`
	GradedEnrollment int           `json:"graded_enrollment"`
	Withdraws        int           `json:"withdraws"`
	Breakdown        grades.Vector `json:"breakdown"`
}

// Subject is an entry in the subject listing.
type Subject struct {
	SubjectCode string `json:"subject_code"`
	Name        string `json:"name,omitempty"`
}

// Aggregates summarizes a result set.
type Aggregates struct {
	SectionCount          int      `json:"section_count"`
	AvgGPA                *float64 `json:"avg_gpa"`
	TotalGradedEnrollment int      `json:"total_graded_enrollment"`
}

// Enrollment returns the section-level graded enrollment when present,
// otherwise the distribution's graded enrollment.
func (s *Section) Enrollment() int {
	if s.GradedEnrollment != nil {
		return *s.GradedEnrollment
	}
	return s.Grades.GradedEnrollment
}

// CreditHours returns section credits, falling back to course credits.
func (s *Section) CreditHours() *int {
	if s.Credits != nil {
		return s.Credits
	}
	return s.Course.Credits
}

// Total is the student count used for percentages.
func (s *Section) Total() int {
	enrollment := s.Enrollment()
	if enrollment <= 0 {
		return grades.Total(s.Grades.Breakdown, nil)
	}
	return grades.Total(s.Grades.Breakdown, &enrollment)
}

// GPA returns the section GPA, preferring the authoritative value.
func (s *Section) GPA() *float64 {
	return grades.GPA(s.Grades.Breakdown, s.Grades.GPA)
}

// Threshold returns cumulative at-or-above stats for a letter.
func (s *Section) Threshold(letter string) grades.Stats {
	return grades.ThresholdStats(s.Grades.Breakdown, letter, s.Total())
}

// BOrAbove returns the count and percentage of students at B- or better.
func (s *Section) BOrAbove() grades.Stats {
	return s.Threshold(grades.BOrAboveFloor)
}

// CourseCode returns "SUBJ 1234".
func (s *Section) CourseCode() string {
	return s.Course.SubjectCode + " " + s.Course.CourseNumber
}
