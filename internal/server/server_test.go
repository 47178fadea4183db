package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/grade-explorer/internal/catalog"
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/pipeline"
	"github.com/jonathan/grade-explorer/internal/server/ratelimit"
	"github.com/jonathan/grade-explorer/internal/types"
)

type downSource struct {
	*catalog.Memory
}

func (downSource) Ping(context.Context) error {
	return errors.New("connection refused")
}

func testSection(id int64, subject, number, term, instructor string, counts map[string]int, gpa float64) types.Section {
	tc, _ := types.ParseTermLabel(term)
	total := 0
	for _, n := range counts {
		total += n
	}
	return types.Section{
		SectionID:        id,
		TermID:           tc.TermID(),
		GradedEnrollment: &total,
		Course:           types.Course{SubjectCode: subject, CourseNumber: number, Title: subject + " " + number},
		Term:             types.Term{TermID: tc.TermID(), Label: term},
		Instructor:       types.Instructor{NameDisplay: instructor},
		Grades: types.SectionGrades{
			GPA:              &gpa,
			GradedEnrollment: total,
			Breakdown:        grades.FromCounts(counts),
		},
	}
}

func testSections() []types.Section {
	return []types.Section{
		testSection(1, "CS", "2104", "Fall 2023", "Smith", map[string]int{"A": 10, "B": 10}, 3.5),
		testSection(2, "CS", "2104", "Spring 2024", "Jones", map[string]int{"A": 2, "C": 8}, 2.4),
		testSection(3, "MATH", "1225", "Fall 2022", "Adams", map[string]int{"A": 5}, 4.0),
	}
}

func newBackend(src pipeline.Source) *pipeline.Pipeline {
	return pipeline.New(pipeline.Options{
		Parsers:     parsing.Parsers(parsing.NewInterpreter(), nil, parsing.DefaultAutoThreshold),
		Source:      src,
		CurrentTerm: types.TermContext{Season: "Spring", Year: 2024},
	})
}

func newTestServer(t *testing.T, cfg Config) http.Handler {
	t.Helper()
	if cfg.Backend == nil {
		cfg.Backend = newBackend(catalog.NewMemory(testSections(), nil))
	}
	if cfg.RateLimit == nil {
		cfg.RateLimit = &ratelimit.Config{Enabled: false}
	}
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s.Handler()
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "192.0.2.1:4321"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sectionIDs(sections []types.Section) []int64 {
	out := make([]int64, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.SectionID)
	}
	return out
}

func TestNew_RequiresBackend(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	t.Run("source up", func(t *testing.T) {
		h := newTestServer(t, Config{})
		rec := do(t, h, http.MethodGet, "/health", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","db_ok":true}`, rec.Body.String())
	})
	t.Run("source down", func(t *testing.T) {
		h := newTestServer(t, Config{Backend: newBackend(downSource{catalog.NewMemory(testSections(), nil)})})
		rec := do(t, h, http.MethodGet, "/healthz", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"status":"ok","db_ok":false}`, rec.Body.String())
	})
}

func TestQuery(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/query", types.QueryRequest{Query: "CS 2104"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decodeBody[types.QueryResponse](t, rec)
	require.True(t, resp.OK, resp.Error)
	assert.Equal(t, types.IntentCourseLookup, resp.Meta.Intent)
	assert.Equal(t, []int64{2, 1}, sectionIDs(resp.Sections))
	assert.Equal(t, 2, resp.Aggregates.SectionCount)
	assert.Equal(t, 30, resp.Aggregates.TotalGradedEnrollment)
}

func TestQuery_FailureIsStill200(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/query", types.QueryRequest{Query: "CS 2104", ParserMode: types.ModeLLM})
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeBody[types.QueryResponse](t, rec)
	assert.False(t, resp.OK)
	assert.Contains(t, resp.Error, "not available")
	assert.Empty(t, resp.Sections)
}

func TestQuery_InvalidRequests(t *testing.T) {
	h := newTestServer(t, Config{})

	tests := []struct {
		name string
		body any
		want string
	}{
		{"malformed json", `{"query":`, "Invalid request body"},
		{"missing query", types.QueryRequest{}, "validation error: query - is required"},
		{"query too long", types.QueryRequest{Query: strings.Repeat("x", 501)}, "validation error: query - must be at most 500"},
		{"unknown mode", types.QueryRequest{Query: "CS", ParserMode: "magic"}, "validation error: parser_mode - must be one of"},
		{"bad term", types.QueryRequest{Query: "CS", Term: "Fall"}, "validation error: term -"},
		{"bad season", types.QueryRequest{Query: "CS", Term: "Monsoon 2023"}, "validation error: term -"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody[map[string]string](t, rec)["error"], tt.want)
		})
	}
}

func TestQueryStream(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/query/stream", types.QueryRequest{Query: "CS 2104"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, "id: 1\nevent: step\ndata: {\"step\":\"interpret\"")
	assert.Contains(t, body, "event: step\ndata: {\"step\":\"fetch\"")
	assert.Contains(t, body, "id: 4\nevent: complete\ndata: {\"ok\":true")
	assert.Less(t, strings.Index(body, "interpret"), strings.Index(body, "event: complete"))
}

func TestSubjects(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodGet, "/subjects", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[struct {
		Subjects []types.Subject `json:"subjects"`
	}](t, rec)
	assert.Equal(t, []types.Subject{{SubjectCode: "CS"}, {SubjectCode: "MATH"}}, got.Subjects)
}

type viewBody struct {
	Page struct {
		State      string  `json:"state"`
		Total      int     `json:"total"`
		Page       int     `json:"page"`
		PageSize   int     `json:"page_size"`
		TotalPages int     `json:"total_pages"`
		Query      string  `json:"query"`
		Selection  []int64 `json:"selection"`
		Rows       []struct {
			Section types.Section `json:"section"`
		} `json:"rows"`
	} `json:"page"`
	Results  *types.QueryResponse `json:"results"`
	Snapshot []byte               `json:"snapshot"`
	Warnings []string             `json:"warnings"`
}

func TestView_Flow(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/view", ViewRequest{})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	first := decodeBody[viewBody](t, rec)
	assert.Equal(t, "not_searched", first.Page.State)
	assert.Empty(t, first.Warnings)
	require.NotEmpty(t, first.Snapshot)

	rec = do(t, h, http.MethodPost, "/view", ViewRequest{Snapshot: first.Snapshot, Query: "CS 2104", PageSize: 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	searched := decodeBody[viewBody](t, rec)
	assert.Equal(t, "results", searched.Page.State)
	assert.Equal(t, "CS 2104", searched.Page.Query)
	assert.Equal(t, 2, searched.Page.Total)
	assert.Equal(t, 2, searched.Page.TotalPages)
	assert.Len(t, searched.Page.Rows, 1)
	require.NotNil(t, searched.Results)
	assert.True(t, searched.Results.OK)

	rec = do(t, h, http.MethodPost, "/view", ViewRequest{Snapshot: searched.Snapshot, Page: 2, Select: []int64{1, 2, 99}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	paged := decodeBody[viewBody](t, rec)
	assert.Equal(t, 2, paged.Page.Page)
	assert.Equal(t, 1, paged.Page.PageSize)
	assert.Equal(t, []int64{1, 2}, paged.Page.Selection)
	assert.Nil(t, paged.Results)

	rec = do(t, h, http.MethodPost, "/view", ViewRequest{Snapshot: paged.Snapshot, Page: 3})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[map[string]string](t, rec)["error"], "page out of range")

	rec = do(t, h, http.MethodPost, "/view", ViewRequest{Snapshot: paged.Snapshot, Sort: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/compare", CompareRequest{Snapshot: paged.Snapshot})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	cmp := decodeBody[struct {
		Sections []struct {
			SectionID int64 `json:"section_id"`
		} `json:"sections"`
	}](t, rec)
	require.Len(t, cmp.Sections, 2)
	assert.Equal(t, int64(1), cmp.Sections[0].SectionID)
	assert.Equal(t, int64(2), cmp.Sections[1].SectionID)
}

func TestView_GarbageSnapshot(t *testing.T) {
	h := newTestServer(t, Config{})

	rec := do(t, h, http.MethodPost, "/view", ViewRequest{Snapshot: []byte("not json")})
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[viewBody](t, rec)
	assert.Equal(t, "not_searched", got.Page.State)
	assert.NotEmpty(t, got.Warnings)
	assert.NotEmpty(t, got.Snapshot)
}

func TestCompare(t *testing.T) {
	h := newTestServer(t, Config{})
	sections := testSections()

	rec := do(t, h, http.MethodPost, "/compare", CompareRequest{Sections: sections[:2]})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got := decodeBody[map[string]any](t, rec)
	assert.Len(t, got["sections"], 2)
	assert.Contains(t, got, "leaders")

	rec = do(t, h, http.MethodPost, "/compare", CompareRequest{Sections: sections[:1]})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "insufficient", decodeBody[map[string]any](t, rec)["state"])

	rec = do(t, h, http.MethodPost, "/compare", CompareRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRateLimit(t *testing.T) {
	h := newTestServer(t, Config{RateLimit: &ratelimit.Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		EndpointConfigs: []ratelimit.EndpointConfig{
			{Path: "/query", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1},
		},
	}})

	rec := do(t, h, http.MethodPost, "/query", types.QueryRequest{Query: "CS 2104"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do(t, h, http.MethodPost, "/query", types.QueryRequest{Query: "CS 2104"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, "rate_limit_exceeded", decodeBody[map[string]any](t, rec)["error"])

	rec = do(t, h, http.MethodGet, "/subjects", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestCORS(t *testing.T) {
	t.Run("any origin", func(t *testing.T) {
		h := newTestServer(t, Config{})
		rec := do(t, h, http.MethodOptions, "/query", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allow list", func(t *testing.T) {
		h := newTestServer(t, Config{AllowedOrigins: []string{"http://localhost:5173"}})

		req := httptest.NewRequest(http.MethodOptions, "/query", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

		req = httptest.NewRequest(http.MethodOptions, "/query", nil)
		req.Header.Set("Origin", "http://evil.example")
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, Config{})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
