package session

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

func section(id int64, subject, instructor, term string, counts map[string]int) types.Section {
	tc, _ := types.ParseTermLabel(term)
	return types.Section{
		SectionID:  id,
		TermID:     tc.TermID(),
		Course:     types.Course{SubjectCode: subject, CourseNumber: "2104"},
		Term:       types.Term{TermID: tc.TermID(), Label: term},
		Instructor: types.Instructor{NameDisplay: instructor},
		Grades:     types.SectionGrades{Breakdown: grades.FromCounts(counts)},
	}
}

func results() *types.QueryResponse {
	return &types.QueryResponse{
		OK:   true,
		Meta: types.QueryMeta{Query: "CS 2104", Intent: types.IntentCourseLookup},
		Sections: []types.Section{
			section(1, "CS", "Smith", "Fall 2023", map[string]int{"A": 10, "B": 10}),
			section(2, "CS", "Jones", "Spring 2024", map[string]int{"A": 2, "C": 8}),
			section(3, "MATH", "Adams", "Fall 2022", map[string]int{"A": 5}),
		},
		Aggregates: types.Aggregates{SectionCount: 3, TotalGradedEnrollment: 35},
	}
}

func containsWarning(warnings []string, fragment string) bool {
	for _, w := range warnings {
		if strings.Contains(w, fragment) {
			return true
		}
	}
	return false
}

func TestNew(t *testing.T) {
	snap := New()
	assert.Equal(t, CurrentVersion, snap.Version)
	_, err := uuid.Parse(snap.ID)
	assert.NoError(t, err)
	assert.Equal(t, engine.DefaultView(), snap.View)
	assert.False(t, snap.Searched())
	assert.Nil(t, snap.Sections())
}

func TestMarshalRestore(t *testing.T) {
	saved := time.Date(2024, time.March, 1, 12, 30, 0, 0, time.UTC)
	snap := New()
	snap.Query = "CS 2104"
	snap.ParserMode = types.ModeAuto
	snap.Results = results()
	snap.View.Sort = engine.SortGPA
	snap.View.Desc = true
	snap.View.Threshold = "B+"
	snap.View.PageSize = 2
	snap.View.Page = 2
	snap.View.Refinements = engine.Refinements{Subject: "CS"}
	snap.Selection = []int64{2, 1}
	snap.SavedAt = saved

	blob, err := Marshal(snap)
	require.NoError(t, err)

	got, warnings := Restore(blob)
	assert.Empty(t, warnings)
	assert.Equal(t, snap.ID, got.ID)
	assert.Equal(t, snap.Query, got.Query)
	assert.Equal(t, snap.ParserMode, got.ParserMode)
	assert.Equal(t, snap.View, got.View)
	assert.Equal(t, snap.Selection, got.Selection)
	assert.True(t, saved.Equal(got.SavedAt))
	require.True(t, got.Searched())
	assert.Len(t, got.Sections(), 3)
	assert.Equal(t, snap.Results.Sections[0].Grades.Breakdown, got.Sections()[0].Grades.Breakdown)
	assert.Equal(t, snap.Results.Aggregates, got.Results.Aggregates)
}

func TestRestore_Unreadable(t *testing.T) {
	for _, blob := range []string{"", "not json", "[]", "null", `"text"`} {
		t.Run(blob, func(t *testing.T) {
			snap, warnings := Restore([]byte(blob))
			require.NotNil(t, snap)
			require.Len(t, warnings, 1)
			assert.Contains(t, warnings[0], "starting a new session")
			assert.Equal(t, engine.DefaultView(), snap.View)
			assert.False(t, snap.Searched())
		})
	}
}

func TestRestore_FieldFallback(t *testing.T) {
	blob := `{
		"version": 1,
		"id": "not-a-uuid",
		"query": "CS",
		"parser_mode": "telepathy",
		"results": "lost",
		"view": {"sort": "height", "desc": true, "threshold": "B+", "page": 0, "page_size": 500},
		"selection": [3, 3, 1],
		"saved_at": "yesterday"
	}`

	snap, warnings := Restore([]byte(blob))

	assert.NotEqual(t, "not-a-uuid", snap.ID)
	_, err := uuid.Parse(snap.ID)
	assert.NoError(t, err)
	assert.Equal(t, "CS", snap.Query)
	assert.Equal(t, "", snap.ParserMode)
	assert.Nil(t, snap.Results)
	assert.Equal(t, engine.View{
		Sort:      engine.SortCourse,
		Desc:      true,
		Threshold: "B+",
		Page:      1,
		PageSize:  engine.DefaultPageSize,
	}, snap.View)
	assert.Equal(t, []int64{3, 1}, snap.Selection)
	assert.True(t, snap.SavedAt.IsZero())

	for _, field := range []string{"id:", "parser_mode:", "results:", "view.sort:", "view.page:", "view.page_size:", "saved_at:"} {
		assert.True(t, containsWarning(warnings, field), "expected a warning for %s in %v", field, warnings)
	}
	assert.False(t, containsWarning(warnings, "view.threshold:"))
	assert.False(t, containsWarning(warnings, "query:"))
}

func TestRestore_Versions(t *testing.T) {
	t.Run("newer version keeps known fields", func(t *testing.T) {
		snap, warnings := Restore([]byte(`{"version": 7, "query": "MATH", "future_field": {"x": 1}}`))
		assert.Equal(t, "MATH", snap.Query)
		assert.Equal(t, CurrentVersion, snap.Version)
		assert.True(t, containsWarning(warnings, "newer"))
	})

	t.Run("missing version", func(t *testing.T) {
		snap, warnings := Restore([]byte(`{"query": "MATH"}`))
		assert.Equal(t, "MATH", snap.Query)
		assert.NotEmpty(t, warnings)
	})

	t.Run("invalid version", func(t *testing.T) {
		_, warnings := Restore([]byte(`{"version": "one"}`))
		assert.True(t, containsWarning(warnings, "version: invalid version"))
	})
}
