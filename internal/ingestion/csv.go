package ingestion

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// NumColumns is the width of a grade export row.
const NumColumns = 23

// Column positions in a grade export row.
const (
	colAcademicYear = 0
	colTerm         = 1
	colSubject      = 2
	colCourseNumber = 3
	colTitle        = 4
	colInstructor   = 5
	colGPA          = 6
	colFirstGrade   = 7
	colWithdraws    = 19
	colEnrollment   = 20
	colCRN          = 21
	colCredits      = 22
)

// RowError reports a malformed row.
type RowError struct {
	Line    int
	Message string
	Cause   error
}

func (e *RowError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("line %d: %s: %v", e.Line, e.Message, e.Cause)
	}
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

func (e *RowError) Unwrap() error {
	return e.Cause
}

// Parse reads a grade export. The first row is a header. Blank rows are
// skipped; any other malformed row stops parsing with a RowError.
func Parse(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records []Record
	header := true
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			line := 0
			if errors.As(err, &perr) {
				line = perr.Line
			}
			return nil, &RowError{Line: line, Message: "malformed CSV", Cause: err}
		}
		if header {
			header = false
			continue
		}
		if blank(row) {
			continue
		}
		line, _ := reader.FieldPos(0)
		rec, err := parseRow(row, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func blank(row []string) bool {
	for _, col := range row {
		if strings.TrimSpace(col) != "" {
			return false
		}
	}
	return true
}

func parseRow(row []string, line int) (Record, error) {
	if len(row) < NumColumns {
		return Record{}, &RowError{Line: line, Message: fmt.Sprintf("expected %d columns, got %d", NumColumns, len(row))}
	}
	for i := range row {
		row[i] = strings.TrimSpace(row[i])
	}
	rowErr := func(msg string, cause error) error {
		return &RowError{Line: line, Message: msg, Cause: cause}
	}

	academicYear, startYear, endYear, err := NormalizeAcademicYear(row[colAcademicYear])
	if err != nil {
		return Record{}, rowErr("bad academic year", err)
	}
	term, err := TermFor(row[colTerm], startYear, endYear)
	if err != nil {
		return Record{}, rowErr("bad term", err)
	}

	rec := Record{
		Line:         line,
		AcademicYear: academicYear,
		Term:         term,
		SubjectCode:  strings.ToUpper(row[colSubject]),
		CourseNumber: row[colCourseNumber],
		Title:        row[colTitle],
		Instructor:   row[colInstructor],
	}
	if rec.SubjectCode == "" || rec.CourseNumber == "" {
		return Record{}, rowErr("missing subject or course number", nil)
	}

	if rec.GPA, err = optionalFloat(row[colGPA]); err != nil {
		return Record{}, rowErr("bad GPA", err)
	}
	for i := range grades.NumBuckets {
		pct, err := optionalFloat(row[colFirstGrade+i])
		if err != nil {
			return Record{}, rowErr(fmt.Sprintf("bad %s percentage", grades.Letters[i]), err)
		}
		if pct != nil {
			rec.Percentages[i] = *pct
		}
	}
	if rec.Withdraws, err = intOrZero(row[colWithdraws]); err != nil {
		return Record{}, rowErr("bad withdraw count", err)
	}
	if rec.GradedEnrollment, err = intOrZero(row[colEnrollment]); err != nil {
		return Record{}, rowErr("bad graded enrollment", err)
	}
	if rec.CRN, err = strconv.Atoi(row[colCRN]); err != nil {
		return Record{}, rowErr("bad CRN", err)
	}
	if row[colCredits] != "" {
		credits, err := strconv.Atoi(row[colCredits])
		if err != nil {
			return Record{}, rowErr("bad credits", err)
		}
		rec.Credits = &credits
	}

	rec.Counts = grades.PercentagesToCounts(rec.Percentages, rec.GradedEnrollment)
	return rec, nil
}

// NormalizeAcademicYear turns "2022-23" into "2022-2023" and returns both
// years.
func NormalizeAcademicYear(raw string) (string, int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return "", 0, 0, fmt.Errorf("invalid academic year format: %q", raw)
	}
	years := [2]int{}
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) == 2 {
			p = "20" + p
		}
		y, err := strconv.Atoi(p)
		if err != nil || len(p) != 4 {
			return "", 0, 0, fmt.Errorf("invalid academic year format: %q", raw)
		}
		years[i] = y
	}
	return fmt.Sprintf("%d-%d", years[0], years[1]), years[0], years[1], nil
}

// TermFor places a season within an academic year: fall belongs to the
// start year, the other seasons to the end year.
func TermFor(season string, startYear, endYear int) (types.TermContext, error) {
	canonical := types.CanonicalSeason(season)
	switch canonical {
	case "":
		return types.TermContext{}, fmt.Errorf("unknown term label %q", season)
	case "Fall":
		return types.TermContext{Season: canonical, Year: startYear}, nil
	default:
		return types.TermContext{Season: canonical, Year: endYear}, nil
	}
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

func intOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
