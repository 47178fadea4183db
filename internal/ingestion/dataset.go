package ingestion

import (
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/types"
)

// Dataset is a normalized set of records: every entity has an id and every
// section refers to them.
type Dataset struct {
	Subjects    []types.Subject
	Terms       []types.Term
	Courses     []types.Course
	Instructors []types.Instructor
	Sections    []types.Section
	// Duplicates counts rows whose section id was already seen.
	Duplicates int
}

// Build assigns course and instructor ids in first-seen order and turns
// records into sections. A section id seen twice keeps its first row.
func Build(records []Record) *Dataset {
	ds := &Dataset{}
	subjects := make(map[string]bool)
	terms := make(map[int]bool)
	courseIDs := make(map[[2]string]int64)
	instructorIDs := make(map[string]int64)
	sections := make(map[int64]bool)

	for i := range records {
		r := &records[i]
		if !subjects[r.SubjectCode] {
			subjects[r.SubjectCode] = true
			ds.Subjects = append(ds.Subjects, types.Subject{SubjectCode: r.SubjectCode, Name: SubjectName(r.SubjectCode)})
		}

		term := types.Term{TermID: r.TermID(), Label: r.Term.Label(), AcademicYear: r.AcademicYear}
		if !terms[term.TermID] {
			terms[term.TermID] = true
			ds.Terms = append(ds.Terms, term)
		}

		key := [2]string{r.SubjectCode, r.CourseNumber}
		courseID, ok := courseIDs[key]
		if !ok {
			courseID = int64(len(courseIDs) + 1)
			courseIDs[key] = courseID
			ds.Courses = append(ds.Courses, types.Course{
				CourseID:     courseID,
				SubjectCode:  r.SubjectCode,
				SubjectName:  SubjectName(r.SubjectCode),
				CourseNumber: r.CourseNumber,
				Title:        r.Title,
				Credits:      r.Credits,
				Level:        r.Level(),
			})
		}
		course := ds.Courses[courseID-1]

		name := strings.TrimSpace(r.Instructor)
		instructorID, ok := instructorIDs[name]
		if !ok {
			instructorID = int64(len(instructorIDs) + 1)
			instructorIDs[name] = instructorID
			ds.Instructors = append(ds.Instructors, types.Instructor{InstructorID: instructorID, NameDisplay: name})
		}

		sectionID := r.SectionID()
		if sections[sectionID] {
			ds.Duplicates++
			continue
		}
		sections[sectionID] = true
		enrollment := r.GradedEnrollment
		ds.Sections = append(ds.Sections, types.Section{
			SectionID:        sectionID,
			CourseID:         courseID,
			TermID:           term.TermID,
			InstructorID:     instructorID,
			Credits:          r.Credits,
			GradedEnrollment: &enrollment,
			Course:           course,
			Term:             term,
			Instructor:       types.Instructor{InstructorID: instructorID, NameDisplay: name},
			Grades: types.SectionGrades{
				GPA:              r.GPA,
				GradedEnrollment: r.GradedEnrollment,
				Withdraws:        r.Withdraws,
				Breakdown:        r.Counts,
			},
		})
	}

	slices.SortFunc(ds.Subjects, func(a, b types.Subject) int {
		return strings.Compare(a.SubjectCode, b.SubjectCode)
	})
	return ds
}
