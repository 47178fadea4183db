package engine

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

func section(id int64, subject, number, instructor, term string, counts map[string]int) types.Section {
	tc, _ := types.ParseTermLabel(term)
	return types.Section{
		SectionID: id,
		TermID:    tc.TermID(),
		Course:    types.Course{SubjectCode: subject, CourseNumber: number},
		Term:      types.Term{TermID: tc.TermID(), Label: term},
		Instructor: types.Instructor{
			NameDisplay: instructor,
		},
		Grades: types.SectionGrades{Breakdown: grades.FromCounts(counts)},
	}
}

func ids(sections []types.Section) []int64 {
	out := make([]int64, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.SectionID)
	}
	return out
}

func fixture() []types.Section {
	return []types.Section{
		section(1, "CS", "2104", "Smith", "Fall 2023", map[string]int{"A": 10, "B": 10}),
		section(2, "CS", "1114", "jones", "Spring 2024", map[string]int{"A": 2, "C": 8}),
		section(3, "MATH", "1225", "Adams", "Fall 2022", map[string]int{"A": 5}),
		section(4, "CS", "10064", "Smith", "Summer 2024", map[string]int{}),
		section(5, "ECON", "2005", "Baker", "Spring 2023", map[string]int{"B": 30, "F": 10}),
	}
}

func TestApplyRefinements(t *testing.T) {
	tests := []struct {
		name string
		r    Refinements
		want []int64
	}{
		{name: "zero refinements keep everything", r: Refinements{}, want: []int64{1, 2, 3, 4, 5}},
		{name: "subject", r: Refinements{Subject: "CS"}, want: []int64{1, 2, 4}},
		{name: "subject and instructor", r: Refinements{Subject: "CS", Instructor: "Smith"}, want: []int64{1, 4}},
		{name: "term", r: Refinements{Term: "Fall 2022"}, want: []int64{3}},
		{name: "exact match only", r: Refinements{Instructor: "smith"}, want: []int64{}},
		{name: "no match is valid", r: Refinements{Subject: "PHYS"}, want: []int64{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ApplyRefinements(fixture(), tt.r)))
		})
	}
}

func TestRefinementOptions(t *testing.T) {
	opts := RefinementOptions(fixture())
	assert.Equal(t, []string{"CS", "ECON", "MATH"}, opts.Subjects)
	assert.Equal(t, []string{"Adams", "Baker", "jones", "Smith"}, opts.Instructors)
	assert.Equal(t, []string{"Summer 2024", "Spring 2024", "Fall 2023", "Spring 2023", "Fall 2022"}, opts.Terms)
}

func TestSort(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		desc      bool
		threshold string
		want      []int64
	}{
		{name: "course numeric", key: SortCourse, want: []int64{2, 1, 4, 5, 3}},
		{name: "instructor case-insensitive", key: SortInstructor, want: []int64{3, 5, 2, 1, 4}},
		{name: "semester chronological", key: SortSemester, want: []int64{3, 5, 1, 2, 4}},
		{name: "semester descending", key: SortSemester, desc: true, want: []int64{4, 2, 1, 5, 3}},
		{name: "gpa null lowest", key: SortGPA, want: []int64{4, 5, 2, 1, 3}},
		{name: "gpa descending", key: SortGPA, desc: true, want: []int64{3, 1, 2, 5, 4}},
		{name: "enrollment", key: SortEnrollment, want: []int64{4, 3, 2, 1, 5}},
		{name: "threshold percent", key: SortThreshold, threshold: "A", want: []int64{4, 5, 2, 1, 3}},
		{name: "unknown key sorts by course", key: "bogus", want: []int64{2, 1, 4, 5, 3}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := fixture()
			got := Sort(in, tt.key, tt.desc, tt.threshold)
			assert.Equal(t, tt.want, ids(got))
			assert.Equal(t, []int64{1, 2, 3, 4, 5}, ids(in), "input must not be reordered")
		})
	}
}

func TestSort_DescendingIsReverseForStrictKeys(t *testing.T) {
	asc := ids(Sort(fixture(), SortSemester, false, ""))
	desc := ids(Sort(fixture(), SortSemester, true, ""))
	for i := range asc {
		assert.Equal(t, asc[i], desc[len(desc)-1-i])
	}
}

func TestSort_StableOnTies(t *testing.T) {
	in := []types.Section{
		section(1, "CS", "2104", "Smith", "Fall 2023", nil),
		section(2, "CS", "2104", "Jones", "Fall 2023", nil),
		section(3, "CS", "2104", "Adams", "Fall 2023", nil),
	}
	assert.Equal(t, []int64{1, 2, 3}, ids(Sort(in, SortCourse, false, "")))
	assert.Equal(t, []int64{1, 2, 3}, ids(Sort(in, SortCourse, true, "")))
}

func TestPaginate(t *testing.T) {
	items := []int{1, 2, 3, 4, 5, 6, 7}
	tests := []struct {
		name    string
		page    int
		size    int
		want    []int
		wantErr bool
	}{
		{name: "first page", page: 1, size: 3, want: []int{1, 2, 3}},
		{name: "last partial page", page: 3, size: 3, want: []int{7}},
		{name: "page zero", page: 0, size: 3, wantErr: true},
		{name: "past the end", page: 4, size: 3, wantErr: true},
		{name: "exact fit", page: 1, size: 7, want: items},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Paginate(items, tt.page, tt.size)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrPageOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPaginate_PagesConcatenateToSortedList(t *testing.T) {
	var sections []types.Section
	for i := 0; i < 12; i++ {
		number := fmt.Sprintf("%d", 4000-(i*7%12)*100)
		sections = append(sections, section(int64(i+1), "CS", number, "Smith", "Fall 2023", map[string]int{"A": i}))
	}
	sorted := ids(Sort(sections, SortCourse, false, ""))

	for _, size := range []int{1, 3, 4, 5, 12, 25} {
		t.Run(fmt.Sprintf("size %d", size), func(t *testing.T) {
			total := TotalPages(len(sorted), size)
			var got []int64
			for page := 1; page <= total; page++ {
				rows, err := Paginate(sorted, page, size)
				require.NoError(t, err)
				require.NotEmpty(t, rows)
				require.LessOrEqual(t, len(rows), size)
				got = append(got, rows...)
			}
			if diff := cmp.Diff(sorted, got); diff != "" {
				t.Errorf("concatenated pages mismatch (-want +got):\n%s", diff)
			}
			_, err := Paginate(sorted, total+1, size)
			assert.ErrorIs(t, err, ErrPageOutOfRange)
		})
	}
}

func TestPaginate_EmptyHasOnePage(t *testing.T) {
	got, err := Paginate([]int{}, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 1, TotalPages(0, 10))
	assert.Equal(t, 3, TotalPages(21, 10))
}

func TestView_Render(t *testing.T) {
	t.Run("not searched", func(t *testing.T) {
		v := DefaultView()
		page := v.Render(nil, false)
		assert.Equal(t, StateNotSearched, page.State)
		assert.Empty(t, page.Rows)
	})

	t.Run("empty result", func(t *testing.T) {
		v := DefaultView()
		page := v.Render([]types.Section{}, true)
		assert.Equal(t, StateEmpty, page.State)
		assert.Equal(t, 0, page.Total)
		assert.Equal(t, 1, page.TotalPages)
	})

	t.Run("rows carry recomputed metrics", func(t *testing.T) {
		v := DefaultView()
		require.NoError(t, v.SetThreshold("A"))
		page := v.Render(fixture()[:1], true)
		require.Equal(t, StateResults, page.State)
		require.Len(t, page.Rows, 1)
		row := page.Rows[0]
		require.NotNil(t, row.GPA)
		assert.InDelta(t, 3.5, *row.GPA, 1e-9)
		assert.Equal(t, 20, row.Total)
		assert.Equal(t, 10, row.ThresholdCount)
		assert.InDelta(t, 50.0, row.ThresholdPercent, 1e-9)
	})

	t.Run("page capped after shrink", func(t *testing.T) {
		v := DefaultView()
		require.NoError(t, v.SetPageSize(2))
		require.NoError(t, v.SetPage(3, fixture()))
		v.Refine(Refinements{Subject: "CS"})
		v.Page = 3
		page := v.Render(fixture(), true)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 2, v.Page)
		assert.Equal(t, 2, page.TotalPages)
		assert.Len(t, page.Rows, 1)
	})

	t.Run("invalid settings fall back", func(t *testing.T) {
		v := View{Sort: "nope", Threshold: "Q", PageSize: -4, Page: -1}
		page := v.Render(fixture(), true)
		assert.Equal(t, DefaultView().Sort, v.Sort)
		assert.Equal(t, DefaultThreshold, page.Threshold)
		assert.Equal(t, DefaultPageSize, page.PageSize)
		assert.Equal(t, 1, page.Page)
	})
}

func TestView_SetPage(t *testing.T) {
	v := DefaultView()
	require.NoError(t, v.SetPageSize(2))

	require.NoError(t, v.SetPage(3, fixture()))
	assert.Equal(t, 3, v.Page)

	err := v.SetPage(4, fixture())
	require.ErrorIs(t, err, ErrPageOutOfRange)
	assert.Equal(t, 3, v.Page, "state unchanged on error")

	require.ErrorIs(t, v.SetPage(0, fixture()), ErrPageOutOfRange)
	require.NoError(t, v.SetPage(1, nil))
}

func TestView_Setters(t *testing.T) {
	v := DefaultView()
	v.Page = 4

	require.NoError(t, v.SetSort(SortGPA, true))
	assert.Equal(t, SortGPA, v.Sort)
	assert.True(t, v.Desc)
	assert.Equal(t, 1, v.Page)

	require.ErrorIs(t, v.SetSort("title", false), ErrInvalidView)
	assert.Equal(t, SortGPA, v.Sort)

	require.NoError(t, v.SetThreshold("a+"))
	assert.Equal(t, "A", v.Threshold)
	require.ErrorIs(t, v.SetThreshold("E"), ErrInvalidView)

	require.ErrorIs(t, v.SetPageSize(0), ErrInvalidView)
	require.ErrorIs(t, v.SetPageSize(MaxPageSize+1), ErrInvalidView)
}

func TestTracker(t *testing.T) {
	var tr Tracker
	assert.False(t, tr.IsCurrent(0))

	first := tr.Next()
	assert.True(t, tr.IsCurrent(first))

	second := tr.Next()
	assert.False(t, tr.IsCurrent(first))
	assert.True(t, tr.IsCurrent(second))
	assert.Greater(t, second, first)
}

func TestApplyRanking(t *testing.T) {
	tests := []struct {
		name string
		hint *types.RankingHint
		want []int64
	}{
		{name: "nil hint keeps order", hint: nil, want: []int64{1, 2, 3, 4, 5}},
		{name: "largest", hint: &types.RankingHint{Order: types.OrderDescending, By: types.RankByEnrollment}, want: []int64{5, 1, 2, 3, 4}},
		{name: "smallest two", hint: &types.RankingHint{Order: types.OrderAscending, By: types.RankByEnrollment, Limit: types.Ptr(2)}, want: []int64{4, 3}},
		{name: "easiest", hint: &types.RankingHint{Order: types.OrderDescending, By: types.RankByGPA, Limit: types.Ptr(1)}, want: []int64{3}},
		{name: "limit beyond length", hint: &types.RankingHint{Order: types.OrderDescending, Limit: types.Ptr(50)}, want: []int64{5, 1, 2, 3, 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(ApplyRanking(fixture(), tt.hint)))
		})
	}
}
