// Package pipeline runs one query round trip: interpret the text, fetch the
// matching sections and summarize them.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/types"
)

// Source supplies sections and subjects for an interpretation.
type Source interface {
	FetchSections(ctx context.Context, interp *types.Interpretation, opts types.FetchOptions) (*types.FetchResult, error)
	ListSubjects(ctx context.Context) ([]types.Subject, error)
	Ping(ctx context.Context) error
}

// Request is one query as submitted by a client.
type Request struct {
	Query      string `json:"query"`
	ParserMode string `json:"parser_mode,omitempty"`
	Term       string `json:"term,omitempty"`
}

// Step names reported through OnProgress
const (
	StepInterpret = "interpret"
	StepFetch     = "fetch"
	StepSubjects  = "subjects"
	StepAggregate = "aggregate"
)

// ProgressEvent represents a progress update during a query
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds the collaborators of a query round trip.
type Options struct {
	Parsers     map[string]parsing.Parser
	DefaultMode string
	Source      Source
	CurrentTerm types.TermContext
	MaxRows     int
	Now         func() time.Time
	OnProgress  ProgressCallback
}

// Pipeline binds Options so queries can be run repeatedly.
type Pipeline struct {
	opts Options
}

// New creates a pipeline over opts.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Run executes req with the bound options.
func (p *Pipeline) Run(ctx context.Context, req Request) *types.QueryResponse {
	return Run(ctx, req, p.opts)
}

// RunWithProgress executes req, reporting each step to onProgress instead
// of the bound callback.
func (p *Pipeline) RunWithProgress(ctx context.Context, req Request, onProgress ProgressCallback) *types.QueryResponse {
	opts := p.opts
	opts.OnProgress = onProgress
	return Run(ctx, req, opts)
}

// Ping checks the underlying source.
func (p *Pipeline) Ping(ctx context.Context) error {
	if p.opts.Source == nil {
		return fmt.Errorf("no section source configured")
	}
	return p.opts.Source.Ping(ctx)
}

// Subjects lists the subjects known to the source.
func (p *Pipeline) Subjects(ctx context.Context) ([]types.Subject, error) {
	if p.opts.Source == nil {
		return nil, fmt.Errorf("no section source configured")
	}
	return p.opts.Source.ListSubjects(ctx)
}

// Run interprets req.Query and fetches what it asks for. It never returns
// nil: failures produce ok=false with whatever meta was known, no sections
// and zero aggregates.
func Run(ctx context.Context, req Request, opts Options) *types.QueryResponse {
	resp := &types.QueryResponse{
		Meta:     types.QueryMeta{Query: req.Query, Intent: types.IntentBrowseSubjects},
		Sections: []types.Section{},
	}
	fail := func(err error) *types.QueryResponse {
		log.Printf("query %q failed: %v", req.Query, err)
		resp.OK = false
		resp.Sections = []types.Section{}
		resp.Subjects = nil
		resp.Aggregates = types.Aggregates{}
		resp.Error = err.Error()
		return resp
	}

	tc, err := currentTerm(req, opts)
	if err != nil {
		return fail(err)
	}
	parser, err := selectParser(req.ParserMode, opts)
	if err != nil {
		return fail(err)
	}

	interp, err := parser.Interpret(ctx, req.Query, tc)
	if err != nil {
		return fail(fmt.Errorf("failed to interpret query: %w", err))
	}
	resp.Meta = types.QueryMeta{
		Query:      req.Query,
		Intent:     interp.Intent,
		Filters:    interp.Filters,
		Confidence: interp.Confidence,
		Debug:      interp.Debug,
	}
	emit(opts, StepInterpret, fmt.Sprintf("intent %s, confidence %.3f", interp.Intent, interp.Confidence), interp)

	if opts.Source == nil {
		return fail(fmt.Errorf("no section source configured"))
	}

	wantSubjects := interp.Intent == types.IntentBrowseSubjects
	wantSections := !interp.Filters.IsEmpty()

	var (
		mu       sync.Mutex
		fetched  *types.FetchResult
		subjects []types.Subject
	)
	g, gCtx := errgroup.WithContext(ctx)
	if wantSections {
		g.Go(func() error {
			result, err := opts.Source.FetchSections(gCtx, interp, types.FetchOptions{CurrentTerm: tc, MaxRows: opts.MaxRows})
			if err != nil {
				return fmt.Errorf("failed to fetch sections: %w", err)
			}
			mu.Lock()
			fetched = result
			mu.Unlock()
			emit(opts, StepFetch, fmt.Sprintf("fetched %d sections", len(result.Sections)), nil)
			return nil
		})
	}
	if wantSubjects {
		g.Go(func() error {
			list, err := opts.Source.ListSubjects(gCtx)
			if err != nil {
				return fmt.Errorf("failed to list subjects: %w", err)
			}
			mu.Lock()
			subjects = list
			mu.Unlock()
			emit(opts, StepSubjects, fmt.Sprintf("listed %d subjects", len(list)), nil)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	if fetched != nil {
		resp.Meta.Filters = fetched.Filters
		for field, values := range fetched.FilteredOut {
			resp.Meta.Debug.AddFilteredOut(field, values...)
		}
		if fetched.RelativeTerm != nil {
			resp.Meta.Debug.RelativeTerm = fetched.RelativeTerm
			resp.Meta.Filters.RelativeTerm = fetched.RelativeTerm
		}
		resp.Sections = engine.ApplyRanking(fetched.Sections, fetched.Filters.Ranking)
		if resp.Sections == nil {
			resp.Sections = []types.Section{}
		}
	}
	resp.Subjects = subjects
	resp.Aggregates = ComputeAggregates(resp.Sections)
	resp.OK = true
	emit(opts, StepAggregate, fmt.Sprintf("%d sections, %d students", resp.Aggregates.SectionCount, resp.Aggregates.TotalGradedEnrollment), resp.Aggregates)
	return resp
}

// ComputeAggregates summarizes sections. The average GPA is the unweighted
// mean over sections that have one, rounded to three decimals.
func ComputeAggregates(sections []types.Section) types.Aggregates {
	agg := types.Aggregates{SectionCount: len(sections)}
	var gpas []float64
	for i := range sections {
		agg.TotalGradedEnrollment += sections[i].Enrollment()
		if gpa := sections[i].GPA(); gpa != nil {
			gpas = append(gpas, *gpa)
		}
	}
	if len(gpas) > 0 {
		avg := math.Round(stat.Mean(gpas, nil)*1000) / 1000
		agg.AvgGPA = &avg
	}
	return agg
}

func currentTerm(req Request, opts Options) (types.TermContext, error) {
	if req.Term != "" {
		tc, err := types.ParseTermLabel(req.Term)
		if err != nil {
			return types.TermContext{}, err
		}
		return tc, nil
	}
	if !opts.CurrentTerm.IsZero() {
		return opts.CurrentTerm, nil
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return types.TermForDate(now()), nil
}

func selectParser(mode string, opts Options) (parsing.Parser, error) {
	if mode == "" {
		mode = opts.DefaultMode
	}
	if mode == "" {
		mode = types.ModeRuleBased
	}
	parser, ok := opts.Parsers[mode]
	if !ok || parser == nil {
		return nil, fmt.Errorf("parser mode %q is not available", mode)
	}
	return parser, nil
}

func emit(opts Options, step, message string, content any) {
	if opts.OnProgress != nil {
		opts.OnProgress(ProgressEvent{Step: step, Message: message, Content: content})
	}
}
