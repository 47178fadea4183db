package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/pipeline"
	"github.com/jonathan/grade-explorer/internal/ranking"
	"github.com/jonathan/grade-explorer/internal/types"
)

// ErrSuperseded is returned by Submit when a newer query was issued before
// this one finished. Its result is discarded.
var ErrSuperseded = errors.New("query superseded by a newer request")

// StateError marks a session whose last query failed.
const StateError engine.State = "error"

// Runner executes one query round trip.
type Runner interface {
	Run(ctx context.Context, req pipeline.Request) *types.QueryResponse
}

// Display is the rendered state of a session.
type Display struct {
	engine.Page
	Query     string  `json:"query"`
	Selection []int64 `json:"selection"`
	Error     string  `json:"error,omitempty"`
}

// Controller owns one session. Queries may overlap; only the most recently
// submitted one is applied.
type Controller struct {
	runner  Runner
	term    string
	tracker engine.Tracker

	mu   sync.Mutex
	snap Snapshot
}

// NewController wraps snap, or a new snapshot when snap is nil. runner may
// be nil for controllers that only re-render a restored snapshot.
func NewController(runner Runner, snap *Snapshot) *Controller {
	if snap == nil {
		snap = New()
	}
	c := &Controller{runner: runner, snap: *snap}
	c.snap.View = c.snap.View.Normalized()
	return c
}

// SetTerm sets the current term label sent with every query.
func (c *Controller) SetTerm(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.term = label
}

// SetParserMode selects the parser used by later queries.
func (c *Controller) SetParserMode(mode string) error {
	if mode != "" && !slices.Contains(ParserModes, mode) {
		return fmt.Errorf("unknown parser mode %q", mode)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.ParserMode = mode
	return nil
}

// Submit runs query and applies its result unless a newer query was
// submitted meanwhile, in which case ErrSuperseded is returned. A failed
// query replaces the result set with an empty one carrying the error.
func (c *Controller) Submit(ctx context.Context, query string) (*types.QueryResponse, error) {
	if c.runner == nil {
		return nil, fmt.Errorf("session has no query runner")
	}
	token := c.tracker.Next()

	c.mu.Lock()
	req := pipeline.Request{Query: query, ParserMode: c.snap.ParserMode, Term: c.term}
	c.mu.Unlock()

	resp := c.runner.Run(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.tracker.IsCurrent(token) {
		return nil, ErrSuperseded
	}
	if resp == nil {
		resp = &types.QueryResponse{Error: "no response"}
	}
	if !resp.OK {
		resp.Sections = []types.Section{}
		resp.Aggregates = types.Aggregates{}
	}
	c.snap.Query = query
	c.snap.Results = resp
	c.snap.Selection = nil
	c.snap.View.Refine(engine.Refinements{})
	return resp, nil
}

// Refine replaces the refinements.
func (c *Controller) Refine(r engine.Refinements) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snap.View.Refine(r)
}

// SetSort changes the sort key and direction.
func (c *Controller) SetSort(key string, desc bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.View.SetSort(key, desc)
}

// SetThreshold changes the threshold letter.
func (c *Controller) SetThreshold(letter string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.View.SetThreshold(letter)
}

// SetPageSize changes the page size.
func (c *Controller) SetPageSize(size int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.View.SetPageSize(size)
}

// SetPage moves to page of the refined result set.
func (c *Controller) SetPage(page int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap.View.SetPage(page, c.snap.Sections())
}

// Select replaces the selection with the given section ids, keeping only
// ids present in the current result set.
func (c *Controller) Select(ids []int64) []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	present := make(map[int64]bool)
	for _, s := range c.snap.Sections() {
		present[s.SectionID] = true
	}
	var selection []int64
	for _, id := range dedupe(ids) {
		if present[id] {
			selection = append(selection, id)
		}
	}
	c.snap.Selection = selection
	return slices.Clone(selection)
}

// Compare compares the selected sections in selection order.
func (c *Controller) Compare() (*ranking.Comparison, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	byID := make(map[int64]types.Section)
	for _, s := range c.snap.Sections() {
		byID[s.SectionID] = s
	}
	selected := make([]types.Section, 0, len(c.snap.Selection))
	for _, id := range c.snap.Selection {
		if s, ok := byID[id]; ok {
			selected = append(selected, s)
		}
	}
	return ranking.Compare(selected)
}

// Page renders the current view.
func (c *Controller) Page() Display {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := Display{
		Page:      c.snap.View.Render(c.snap.Sections(), c.snap.Searched()),
		Query:     c.snap.Query,
		Selection: slices.Clone(c.snap.Selection),
	}
	if c.snap.Results != nil && !c.snap.Results.OK {
		d.State = StateError
		d.Error = c.snap.Results.Error
	}
	return d
}

// Snapshot returns a copy of the session state stamped with the current
// time.
func (c *Controller) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := c.snap
	snap.Version = CurrentVersion
	snap.Selection = slices.Clone(c.snap.Selection)
	snap.SavedAt = time.Now().UTC()
	return &snap
}
