package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/catalog"
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/types"
)

// fixedParser returns a copy of its interpretation and records the term it
// was given.
type fixedParser struct {
	mu     sync.Mutex
	filter types.Filters
	err    error
	terms  []types.TermContext
}

func (p *fixedParser) Interpret(_ context.Context, _ string, tc types.TermContext) (*types.Interpretation, error) {
	p.mu.Lock()
	p.terms = append(p.terms, tc)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	f := p.filter.Clone()
	return &types.Interpretation{
		Filters:    f,
		Intent:     f.Intent(),
		Confidence: 0.9,
		Debug:      types.Debug{Source: types.SourceRuleBased, Unrecognized: []string{}},
	}, nil
}

// brokenSource fails the calls it is told to.
type brokenSource struct {
	Source
	fetchErr    error
	subjectsErr error
}

func (s *brokenSource) FetchSections(ctx context.Context, interp *types.Interpretation, opts types.FetchOptions) (*types.FetchResult, error) {
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	return s.Source.FetchSections(ctx, interp, opts)
}

func (s *brokenSource) ListSubjects(ctx context.Context) ([]types.Subject, error) {
	if s.subjectsErr != nil {
		return nil, s.subjectsErr
	}
	return s.Source.ListSubjects(ctx)
}

func section(id int64, subject, number, term string, enrollment int, gpa *float64) types.Section {
	tc, _ := types.ParseTermLabel(term)
	return types.Section{
		SectionID:        id,
		TermID:           tc.TermID(),
		GradedEnrollment: &enrollment,
		Course:           types.Course{SubjectCode: subject, CourseNumber: number, Title: subject + " " + number},
		Term:             types.Term{TermID: tc.TermID(), Label: term},
		Instructor:       types.Instructor{NameDisplay: "Smith"},
		Grades: types.SectionGrades{
			GPA:              gpa,
			GradedEnrollment: enrollment,
			Breakdown:        grades.FromCounts(map[string]int{"A": enrollment}),
		},
	}
}

func source() *catalog.Memory {
	return catalog.NewMemory([]types.Section{
		section(1, "CS", "2104", "Fall 2023", 30, types.Ptr(3.5)),
		section(2, "CS", "2104", "Spring 2024", 20, types.Ptr(2.4)),
		section(3, "MATH", "1225", "Fall 2022", 10, types.Ptr(3.0)),
		section(4, "CS", "3114", "Fall 2022", 15, nil),
	}, nil)
}

func ids(sections []types.Section) []int64 {
	out := make([]int64, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.SectionID)
	}
	return out
}

func optionsWith(p parsing.Parser, src Source) Options {
	return Options{
		Parsers:     map[string]parsing.Parser{types.ModeRuleBased: p},
		Source:      src,
		CurrentTerm: types.TermContext{Season: "Spring", Year: 2024},
	}
}

func TestRun_CourseLookup(t *testing.T) {
	opts := optionsWith(parsing.NewInterpreter(), source())

	resp := Run(context.Background(), Request{Query: "CS 2104"}, opts)

	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, types.IntentCourseLookup, resp.Meta.Intent)
	assert.Equal(t, []string{"CS"}, resp.Meta.Filters.Subjects)
	assert.Equal(t, []string{"2104"}, resp.Meta.Filters.CourseNumbers)
	assert.Equal(t, []int64{2, 1}, ids(resp.Sections))
	assert.Nil(t, resp.Subjects)
	assert.Equal(t, 2, resp.Aggregates.SectionCount)
	assert.Equal(t, 50, resp.Aggregates.TotalGradedEnrollment)
	require.NotNil(t, resp.Aggregates.AvgGPA)
	assert.InDelta(t, 2.95, *resp.Aggregates.AvgGPA, 1e-9)
}

func TestRun_Browse(t *testing.T) {
	t.Run("empty filters list subjects only", func(t *testing.T) {
		resp := Run(context.Background(), Request{Query: "what is there"}, optionsWith(&fixedParser{}, source()))
		require.True(t, resp.OK)
		assert.Equal(t, types.IntentBrowseSubjects, resp.Meta.Intent)
		assert.NotNil(t, resp.Sections)
		assert.Empty(t, resp.Sections)
		assert.Equal(t, []types.Subject{{SubjectCode: "CS"}, {SubjectCode: "MATH"}}, resp.Subjects)
		assert.Equal(t, types.Aggregates{}, resp.Aggregates)
	})

	t.Run("unanchored filters fetch and list", func(t *testing.T) {
		p := &fixedParser{filter: types.Filters{GPAMin: types.Ptr(3.0)}}
		resp := Run(context.Background(), Request{Query: "easy classes"}, optionsWith(p, source()))
		require.True(t, resp.OK)
		// Section 4 has no reported GPA; its all-A breakdown computes to 4.0.
		assert.Equal(t, []int64{1, 3, 4}, ids(resp.Sections))
		assert.Len(t, resp.Subjects, 2)
	})
}

func TestRun_SourceAdjustmentsReachMeta(t *testing.T) {
	p := &fixedParser{filter: types.Filters{
		Subjects:     []string{"CS", "PHYS"},
		RelativeTerm: &types.RelativeTerm{Phrase: "last fall", Season: "Fall", Offset: -1},
	}}
	resp := Run(context.Background(), Request{Query: "CS or PHYS last fall"}, optionsWith(p, source()))

	require.True(t, resp.OK)
	assert.Equal(t, []string{"CS"}, resp.Meta.Filters.Subjects)
	assert.Equal(t, map[string][]string{"subjects": {"PHYS"}}, resp.Meta.Debug.FilteredOut)
	require.NotNil(t, resp.Meta.Debug.RelativeTerm)
	assert.Equal(t, "Fall 2023", resp.Meta.Debug.RelativeTerm.Resolved)
	assert.Equal(t, []int64{1}, ids(resp.Sections))
}

func TestRun_Ranking(t *testing.T) {
	p := &fixedParser{filter: types.Filters{
		Subjects: []string{"CS"},
		Ranking:  &types.RankingHint{By: types.RankByEnrollment, Order: types.OrderAscending, Limit: types.Ptr(2)},
	}}
	resp := Run(context.Background(), Request{Query: "smallest CS classes"}, optionsWith(p, source()))
	require.True(t, resp.OK)
	assert.Equal(t, []int64{4, 2}, ids(resp.Sections))
}

func TestRun_Failures(t *testing.T) {
	fetchErr := errors.New("connection refused")
	tests := []struct {
		name    string
		req     Request
		opts    func() Options
		wantErr string
	}{
		{
			name:    "unknown parser mode",
			req:     Request{Query: "CS", ParserMode: types.ModeLLM},
			opts:    func() Options { return optionsWith(&fixedParser{}, source()) },
			wantErr: `parser mode "llm" is not available`,
		},
		{
			name:    "bad term label",
			req:     Request{Query: "CS", Term: "Fallish 2023"},
			opts:    func() Options { return optionsWith(&fixedParser{}, source()) },
			wantErr: "invalid term label",
		},
		{
			name:    "parser error",
			req:     Request{Query: "CS"},
			opts:    func() Options { return optionsWith(&fixedParser{err: errors.New("boom")}, source()) },
			wantErr: "failed to interpret query: boom",
		},
		{
			name:    "no source",
			req:     Request{Query: "CS"},
			opts:    func() Options { return optionsWith(&fixedParser{}, nil) },
			wantErr: "no section source configured",
		},
		{
			name: "fetch error",
			req:  Request{Query: "CS"},
			opts: func() Options {
				return optionsWith(&fixedParser{filter: types.Filters{Subjects: []string{"CS"}}},
					&brokenSource{Source: source(), fetchErr: fetchErr})
			},
			wantErr: "failed to fetch sections: connection refused",
		},
		{
			name: "subjects error",
			req:  Request{Query: "anything"},
			opts: func() Options {
				return optionsWith(&fixedParser{}, &brokenSource{Source: source(), subjectsErr: fetchErr})
			},
			wantErr: "failed to list subjects: connection refused",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := Run(context.Background(), tt.req, tt.opts())
			require.NotNil(t, resp)
			assert.False(t, resp.OK)
			assert.Contains(t, resp.Error, tt.wantErr)
			assert.NotNil(t, resp.Sections)
			assert.Empty(t, resp.Sections)
			assert.Nil(t, resp.Subjects)
			assert.Equal(t, types.Aggregates{}, resp.Aggregates)
			assert.Equal(t, tt.req.Query, resp.Meta.Query)
		})
	}
}

func TestRun_CurrentTerm(t *testing.T) {
	p := &fixedParser{}
	opts := optionsWith(p, source())

	Run(context.Background(), Request{Query: "x", Term: "Fall 2021"}, opts)
	Run(context.Background(), Request{Query: "x"}, opts)
	opts.CurrentTerm = types.TermContext{}
	opts.Now = func() time.Time { return time.Date(2025, time.July, 4, 0, 0, 0, 0, time.UTC) }
	Run(context.Background(), Request{Query: "x"}, opts)

	assert.Equal(t, []types.TermContext{
		{Season: "Fall", Year: 2021},
		{Season: "Spring", Year: 2024},
		{Season: "Summer", Year: 2025},
	}, p.terms)
}

func TestRun_DefaultMode(t *testing.T) {
	rule := &fixedParser{}
	llm := &fixedParser{}
	opts := optionsWith(rule, source())
	opts.Parsers[types.ModeLLM] = llm
	opts.DefaultMode = types.ModeLLM

	Run(context.Background(), Request{Query: "x"}, opts)
	Run(context.Background(), Request{Query: "x", ParserMode: types.ModeRuleBased}, opts)

	assert.Len(t, llm.terms, 1)
	assert.Len(t, rule.terms, 1)
}

func TestRun_Progress(t *testing.T) {
	var mu sync.Mutex
	var steps []string
	opts := optionsWith(&fixedParser{filter: types.Filters{Subjects: []string{"CS"}}}, source())
	opts.OnProgress = func(e ProgressEvent) {
		mu.Lock()
		defer mu.Unlock()
		steps = append(steps, e.Step)
	}

	resp := Run(context.Background(), Request{Query: "CS"}, opts)
	require.True(t, resp.OK)
	assert.Equal(t, []string{StepInterpret, StepFetch, StepAggregate}, steps)
}

func TestComputeAggregates(t *testing.T) {
	tests := []struct {
		name     string
		sections []types.Section
		want     types.Aggregates
	}{
		{name: "empty", sections: nil, want: types.Aggregates{}},
		{
			name: "sections without gpa are skipped in the average",
			sections: []types.Section{
				section(1, "CS", "1", "Fall 2023", 10, types.Ptr(3.0)),
				section(2, "CS", "2", "Fall 2023", 20, types.Ptr(3.0)),
				section(3, "CS", "3", "Fall 2023", 5, types.Ptr(3.1)),
				{SectionID: 4, GradedEnrollment: types.Ptr(7)},
			},
			want: types.Aggregates{SectionCount: 4, AvgGPA: types.Ptr(3.033), TotalGradedEnrollment: 42},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeAggregates(tt.sections))
		})
	}
}

func TestPipeline(t *testing.T) {
	p := New(optionsWith(&fixedParser{}, source()))
	require.NoError(t, p.Ping(context.Background()))
	subjects, err := p.Subjects(context.Background())
	require.NoError(t, err)
	assert.Len(t, subjects, 2)
	assert.True(t, p.Run(context.Background(), Request{Query: "x"}).OK)

	empty := New(Options{})
	assert.Error(t, empty.Ping(context.Background()))
	_, err = empty.Subjects(context.Background())
	assert.Error(t, err)
}
