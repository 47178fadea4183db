package engine

import (
	"fmt"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// DefaultThreshold is the letter whose cumulative share is shown by default.
const DefaultThreshold = "B"

// State distinguishes "nothing asked yet" from "asked, nothing matched".
type State string

// View states
const (
	StateNotSearched State = "not_searched"
	StateEmpty       State = "empty"
	StateResults     State = "results"
)

// View is the display state layered over a result set.
type View struct {
	Sort        string      `json:"sort"`
	Desc        bool        `json:"desc"`
	Threshold   string      `json:"threshold"`
	Page        int         `json:"page"`
	PageSize    int         `json:"page_size"`
	Refinements Refinements `json:"refinements"`
}

// DefaultView returns the initial display state.
func DefaultView() View {
	return View{
		Sort:      SortCourse,
		Threshold: DefaultThreshold,
		Page:      1,
		PageSize:  DefaultPageSize,
	}
}

// Row is one displayed section with its recomputed metrics.
type Row struct {
	Section          types.Section `json:"section"`
	GPA              *float64      `json:"gpa"`
	Total            int           `json:"total"`
	ThresholdCount   int           `json:"threshold_count"`
	ThresholdPercent float64       `json:"threshold_percent"`
}

// Page is a rendered view.
type Page struct {
	State      State   `json:"state"`
	Rows       []Row   `json:"rows"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalPages int     `json:"total_pages"`
	Threshold  string  `json:"threshold"`
	Options    Options `json:"options"`
}

// SetSort changes the sort key and direction and returns to the first page.
func (v *View) SetSort(key string, desc bool) error {
	if !ValidSortKey(key) {
		return fmt.Errorf("%w: unknown sort key %q", ErrInvalidView, key)
	}
	v.Sort, v.Desc, v.Page = key, desc, 1
	return nil
}

// SetThreshold changes the threshold letter. "A+" is stored as "A".
func (v *View) SetThreshold(letter string) error {
	canonical := grades.Canonical(letter)
	if canonical == "" {
		return fmt.Errorf("%w: unknown grade letter %q", ErrInvalidView, letter)
	}
	v.Threshold = canonical
	return nil
}

// SetPageSize changes the page size and returns to the first page.
func (v *View) SetPageSize(size int) error {
	if size < 1 || size > MaxPageSize {
		return fmt.Errorf("%w: page size %d outside [1, %d]", ErrInvalidView, size, MaxPageSize)
	}
	v.PageSize, v.Page = size, 1
	return nil
}

// Refine replaces the refinements and returns to the first page.
func (v *View) Refine(r Refinements) {
	v.Refinements = r
	v.Page = 1
}

// SetPage moves to page when it exists for the refined sections. On error
// the view is left unchanged.
func (v *View) SetPage(page int, sections []types.Section) error {
	n := len(ApplyRefinements(sections, v.Refinements))
	if total := TotalPages(n, v.PageSize); page < 1 || page > total {
		return fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, total)
	}
	v.Page = page
	return nil
}

// Render refines, sorts and pages sections. searched is false until a query
// has produced a result set. When the refined list has shrunk below the
// current page, the page is capped to the last one.
func (v *View) Render(sections []types.Section, searched bool) Page {
	v.normalize()
	page := Page{
		State:     StateNotSearched,
		Rows:      []Row{},
		Page:      1,
		PageSize:  v.PageSize,
		Threshold: v.Threshold,
	}
	if !searched {
		page.TotalPages = 1
		return page
	}

	refined := ApplyRefinements(sections, v.Refinements)
	page.Options = RefinementOptions(sections)
	page.Total = len(refined)
	page.TotalPages = TotalPages(len(refined), v.PageSize)
	if len(refined) == 0 {
		page.State = StateEmpty
		v.Page = 1
		return page
	}

	page.State = StateResults
	v.Page = min(max(v.Page, 1), page.TotalPages)
	page.Page = v.Page

	sorted := Sort(refined, v.Sort, v.Desc, v.Threshold)
	visible, _ := Paginate(sorted, v.Page, v.PageSize)
	for _, s := range visible {
		page.Rows = append(page.Rows, NewRow(s, v.Threshold))
	}
	return page
}

// NewRow computes the displayed metrics for one section.
func NewRow(s types.Section, threshold string) Row {
	stats := s.Threshold(threshold)
	return Row{
		Section:          s,
		GPA:              s.GPA(),
		Total:            s.Total(),
		ThresholdCount:   stats.Count,
		ThresholdPercent: stats.Percent,
	}
}

// normalize resets settings that are outside their vocabulary.
func (v *View) normalize() {
	def := DefaultView()
	if !ValidSortKey(v.Sort) {
		v.Sort = def.Sort
	}
	if grades.Canonical(v.Threshold) == "" {
		v.Threshold = def.Threshold
	} else {
		v.Threshold = grades.Canonical(v.Threshold)
	}
	if v.PageSize < 1 || v.PageSize > MaxPageSize {
		v.PageSize = def.PageSize
	}
	if v.Page < 1 {
		v.Page = 1
	}
}

// Normalized returns a copy of v with invalid settings replaced by defaults.
func (v View) Normalized() View {
	v.normalize()
	return v
}
