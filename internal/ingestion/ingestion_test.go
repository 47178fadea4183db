package ingestion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

const header = "Academic Year,Term,Subject,Course No.,Course Title,Instructor,GPA,A (%),A- (%),B+ (%),B (%),B- (%),C+ (%),C (%),C- (%),D+ (%),D (%),D- (%),F (%),Withdraws,Graded Enrollment,CRN,Credits\n"

var sampleRows = []string{
	"2022-23,Fall,CS,2104,Problem Solving in Computer Science,Smith,3.21,40,10,10,10,10,4,4,4,2,2,2,2,3,50,12345,3",
	"2022-23,Spring,MATH,1225,Calculus of a Single Variable,Adams,3.5,50,0,0,50,0,0,0,0,0,0,0,0,0,20,22222,4",
	",,,,,,,,,,,,,,,,,,,,,,",
	"2022-23,Spring,CS,5114,Theory of Algorithms,Smith,,0,0,0,100,0,0,0,0,0,0,0,0,0,10,12345,",
	"2022-23,Fall,CS,2104,Problem Solving in Computer Science,Jones,3.0,0,0,0,100,0,0,0,0,0,0,0,0,0,10,12345,3",
	"22-23,Summer,XYZ,1000,Odd Subject, ,2.0,0,0,0,0,0,0,100,0,0,0,0,0,0,4,30000,1",
}

func sampleCSV() string {
	return header + strings.Join(sampleRows, "\n") + "\n"
}

func TestParse(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleCSV()))
	require.NoError(t, err)
	require.Len(t, records, 5)

	first := records[0]
	assert.Equal(t, 2, first.Line)
	assert.Equal(t, "2022-2023", first.AcademicYear)
	assert.Equal(t, types.TermContext{Season: "Fall", Year: 2022}, first.Term)
	assert.Equal(t, "CS", first.SubjectCode)
	assert.Equal(t, "2104", first.CourseNumber)
	assert.Equal(t, "Smith", first.Instructor)
	require.NotNil(t, first.GPA)
	assert.InDelta(t, 3.21, *first.GPA, 1e-9)
	assert.Equal(t, 3, first.Withdraws)
	assert.Equal(t, 50, first.GradedEnrollment)
	assert.Equal(t, 12345, first.CRN)
	require.NotNil(t, first.Credits)
	assert.Equal(t, 3, *first.Credits)
	assert.Equal(t, grades.Vector{20, 5, 5, 5, 5, 2, 2, 2, 1, 1, 1, 1}, first.Counts)
	assert.Equal(t, 50, first.Counts.Sum())

	grad := records[2]
	assert.Equal(t, 5, grad.Line, "line numbers count the blank row")
	assert.Nil(t, grad.GPA)
	assert.Nil(t, grad.Credits)
	assert.Equal(t, types.TermContext{Season: "Spring", Year: 2023}, grad.Term)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name     string
		row      string
		wantLine int
		wantMsg  string
	}{
		{name: "short row", row: "2022-23,Fall,CS,2104", wantLine: 2, wantMsg: "expected 23 columns, got 4"},
		{name: "bad term", row: strings.Replace(sampleRows[0], "Fall", "Autumnal", 1), wantLine: 2, wantMsg: "bad term"},
		{name: "bad year", row: strings.Replace(sampleRows[0], "2022-23", "2022", 1), wantLine: 2, wantMsg: "bad academic year"},
		{name: "bad percentage", row: strings.Replace(sampleRows[0], ",40,", ",forty,", 1), wantLine: 2, wantMsg: "bad A percentage"},
		{name: "bad crn", row: strings.Replace(sampleRows[0], "12345", "abc", 1), wantLine: 2, wantMsg: "bad CRN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(header + tt.row + "\n"))
			var rowErr *RowError
			require.True(t, errors.As(err, &rowErr), "got %v", err)
			assert.Equal(t, tt.wantLine, rowErr.Line)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	records, err := Parse(strings.NewReader(header))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestNormalizeAcademicYear(t *testing.T) {
	tests := []struct {
		in        string
		want      string
		start     int
		end       int
		expectErr bool
	}{
		{in: "2022-23", want: "2022-2023", start: 2022, end: 2023},
		{in: "2022-2023", want: "2022-2023", start: 2022, end: 2023},
		{in: " 19-20 ", want: "2019-2020", start: 2019, end: 2020},
		{in: "2022", expectErr: true},
		{in: "20x2-23", expectErr: true},
		{in: "202-23", expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, start, end, err := NormalizeAcademicYear(tt.in)
			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.start, start)
			assert.Equal(t, tt.end, end)
		})
	}
}

func TestTermFor(t *testing.T) {
	tests := []struct {
		season string
		want   types.TermContext
		id     int
	}{
		{season: "Fall", want: types.TermContext{Season: "Fall", Year: 2022}, id: 202202},
		{season: "spring", want: types.TermContext{Season: "Spring", Year: 2023}, id: 202301},
		{season: "Summer", want: types.TermContext{Season: "Summer", Year: 2023}, id: 202303},
		{season: "Winter", want: types.TermContext{Season: "Winter", Year: 2023}, id: 202300},
	}
	for _, tt := range tests {
		t.Run(tt.season, func(t *testing.T) {
			got, err := TermFor(tt.season, 2022, 2023)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.id, got.TermID())
		})
	}
	_, err := TermFor("Mid", 2022, 2023)
	assert.Error(t, err)
}

func TestRecord_Derived(t *testing.T) {
	r := Record{Term: types.TermContext{Season: "Fall", Year: 2022}, CRN: 12345, CourseNumber: "4984"}
	assert.Equal(t, int64(20220212345), r.SectionID())
	assert.Equal(t, types.LevelUndergraduate, r.Level())

	r.CourseNumber = "5114"
	assert.Equal(t, types.LevelGraduate, r.Level())
	r.CourseNumber = "0001"
	assert.Equal(t, types.LevelUndergraduate, r.Level())
}

func TestBuild(t *testing.T) {
	records, err := Parse(strings.NewReader(sampleCSV()))
	require.NoError(t, err)
	ds := Build(records)

	assert.Equal(t, 1, ds.Duplicates, "same CRN in the same term keeps the first row")
	require.Len(t, ds.Sections, 4)
	assert.Equal(t, []types.Subject{
		{SubjectCode: "CS", Name: "Computer Science"},
		{SubjectCode: "MATH", Name: "Mathematics"},
		{SubjectCode: "XYZ", Name: "XYZ"},
	}, ds.Subjects)
	assert.Len(t, ds.Terms, 3)
	assert.Len(t, ds.Courses, 4)
	assert.Len(t, ds.Instructors, 4, "Smith, Adams, Jones and the blank name")

	first := ds.Sections[0]
	assert.Equal(t, int64(20220212345), first.SectionID)
	assert.Equal(t, int64(1), first.CourseID)
	assert.Equal(t, "Fall 2022", first.Term.Label)
	assert.Equal(t, "2022-2023", first.Term.AcademicYear)
	assert.Equal(t, "Computer Science", first.Course.SubjectName)
	assert.Equal(t, types.LevelUndergraduate, first.Course.Level)
	assert.Equal(t, 50, first.Enrollment())
	assert.Equal(t, "Smith", first.Instructor.NameDisplay)

	grad := ds.Sections[2]
	assert.Equal(t, int64(20230112345), grad.SectionID, "a reused CRN in another term is a new section")
	assert.Equal(t, types.LevelGraduate, grad.Course.Level)
	assert.Equal(t, first.InstructorID, grad.InstructorID)

	summer := ds.Sections[3]
	assert.Equal(t, "Summer 2023", summer.Term.Label)
	assert.Equal(t, "", summer.Instructor.NameDisplay)
}

func TestFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grades.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV()), 0o644))

	ds, meta, err := FromFile(path)
	require.NoError(t, err)
	assert.Len(t, ds.Sections, 4)
	assert.Equal(t, path, meta.Source)
	assert.Len(t, meta.Hash, 64)
	assert.Equal(t, 5, meta.Rows)
	assert.Equal(t, 4, meta.Sections)
	assert.Equal(t, 1, meta.Duplicates)
	assert.Equal(t, 3, meta.Terms)
	assert.Equal(t, 3, meta.Subjects)

	data, err := meta.ToJSON()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"duplicates": 1`)

	_, _, err = FromFile(filepath.Join(t.TempDir(), "missing.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read grade file")
}

func TestFromURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write([]byte(sampleCSV()))
	}))
	defer server.Close()

	ds, meta, err := FromURL(context.Background(), server.URL+"/grades.csv", nil)
	require.NoError(t, err)
	assert.Len(t, ds.Sections, 4)
	assert.Equal(t, server.URL+"/grades.csv", meta.Source)

	_, _, err = FromURL(context.Background(), "not a url", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download grade file")
}
