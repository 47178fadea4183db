// Package session persists one explorer session as an opaque snapshot and
// coordinates the queries issued from it.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/schemas"
	"github.com/jonathan/grade-explorer/internal/types"
)

// CurrentVersion is the snapshot format written by Marshal.
const CurrentVersion = 1

const schemaName = "session.schema.json"

// Snapshot is everything needed to put a session back on screen.
type Snapshot struct {
	Version    int                  `json:"version"`
	ID         string               `json:"id"`
	Query      string               `json:"query"`
	ParserMode string               `json:"parser_mode"`
	Results    *types.QueryResponse `json:"results"`
	View       engine.View          `json:"view"`
	Selection  []int64              `json:"selection"`
	SavedAt    time.Time            `json:"saved_at"`
}

// New returns an empty snapshot with a fresh id.
func New() *Snapshot {
	return &Snapshot{
		Version: CurrentVersion,
		ID:      uuid.NewString(),
		View:    engine.DefaultView(),
	}
}

// Searched reports whether the snapshot holds a result set.
func (s *Snapshot) Searched() bool {
	return s.Results != nil
}

// Sections returns the sections of the held result set, or nil.
func (s *Snapshot) Sections() []types.Section {
	if s.Results == nil {
		return nil
	}
	return s.Results.Sections
}

// Marshal encodes s as the opaque blob handed to clients.
func Marshal(s *Snapshot) ([]byte, error) {
	out := *s
	out.Version = CurrentVersion
	data, err := json.Marshal(&out)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal session snapshot: %w", err)
	}
	return data, nil
}

// Restore decodes a blob written by Marshal, by an older version, or by
// nobody at all. Every field is decoded on its own and falls back to its
// default when missing or malformed, so Restore always yields a usable
// snapshot. Problems are reported as warnings.
func Restore(blob []byte) (*Snapshot, []string) {
	snap := New()
	var warnings []string

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(blob, &fields); err != nil || fields == nil {
		return snap, []string{"snapshot is not a JSON object; starting a new session"}
	}
	if err := schemas.ValidateDocument(schemaName, string(blob)); err != nil {
		var ve *schemas.ValidationError
		if errors.As(err, &ve) {
			warnings = append(warnings, ve.Messages()...)
		} else {
			warnings = append(warnings, err.Error())
		}
	}

	warn := func(field string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v; using default", field, err))
	}

	if raw, ok := fields["version"]; ok {
		var v int
		if err := json.Unmarshal(raw, &v); err != nil || v < 1 {
			warn("version", fmt.Errorf("invalid version %s", raw))
		} else if v > CurrentVersion {
			warnings = append(warnings, fmt.Sprintf("version: snapshot version %d is newer than %d; reading known fields", v, CurrentVersion))
		}
	}
	if raw, ok := fields["id"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil {
			warn("id", err)
		} else if _, err := uuid.Parse(id); err != nil {
			warn("id", err)
		} else {
			snap.ID = id
		}
	}
	if raw, ok := fields["query"]; ok {
		if err := json.Unmarshal(raw, &snap.Query); err != nil {
			snap.Query = ""
			warn("query", err)
		}
	}
	if raw, ok := fields["parser_mode"]; ok {
		var mode string
		if err := json.Unmarshal(raw, &mode); err != nil {
			warn("parser_mode", err)
		} else if mode != "" && !slices.Contains(ParserModes, mode) {
			warn("parser_mode", fmt.Errorf("unknown mode %q", mode))
		} else {
			snap.ParserMode = mode
		}
	}
	if raw, ok := fields["results"]; ok {
		var results *types.QueryResponse
		if err := json.Unmarshal(raw, &results); err != nil {
			warn("results", err)
		} else {
			snap.Results = results
		}
	}
	if raw, ok := fields["view"]; ok {
		snap.View, warnings = restoreView(raw, warnings)
	}
	if raw, ok := fields["selection"]; ok {
		var selection []int64
		if err := json.Unmarshal(raw, &selection); err != nil {
			warn("selection", err)
		} else {
			snap.Selection = dedupe(selection)
		}
	}
	if raw, ok := fields["saved_at"]; ok {
		var savedAt time.Time
		if err := json.Unmarshal(raw, &savedAt); err != nil {
			warn("saved_at", err)
		} else {
			snap.SavedAt = savedAt
		}
	}
	return snap, warnings
}

// ParserModes lists the parser modes a snapshot may carry.
var ParserModes = []string{types.ModeRuleBased, types.ModeLLM, types.ModeAuto}

func restoreView(raw json.RawMessage, warnings []string) (engine.View, []string) {
	view := engine.DefaultView()
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return view, append(warnings, fmt.Sprintf("view: %v; using default", err))
	}
	warn := func(field string, detail any) {
		warnings = append(warnings, fmt.Sprintf("view.%s: %v; using default", field, detail))
	}

	if r, ok := fields["sort"]; ok {
		var key string
		if json.Unmarshal(r, &key) != nil || !engine.ValidSortKey(key) {
			warn("sort", fmt.Sprintf("invalid sort key %s", r))
		} else {
			view.Sort = key
		}
	}
	if r, ok := fields["desc"]; ok {
		if err := json.Unmarshal(r, &view.Desc); err != nil {
			view.Desc = false
			warn("desc", err)
		}
	}
	if r, ok := fields["threshold"]; ok {
		var letter string
		if json.Unmarshal(r, &letter) != nil || grades.Canonical(letter) == "" {
			warn("threshold", fmt.Sprintf("invalid letter %s", r))
		} else {
			view.Threshold = grades.Canonical(letter)
		}
	}
	if r, ok := fields["page"]; ok {
		var page int
		if json.Unmarshal(r, &page) != nil || page < 1 {
			warn("page", fmt.Sprintf("invalid page %s", r))
		} else {
			view.Page = page
		}
	}
	if r, ok := fields["page_size"]; ok {
		var size int
		if json.Unmarshal(r, &size) != nil || size < 1 || size > engine.MaxPageSize {
			warn("page_size", fmt.Sprintf("invalid page size %s", r))
		} else {
			view.PageSize = size
		}
	}
	if r, ok := fields["refinements"]; ok {
		var refinements engine.Refinements
		if err := json.Unmarshal(r, &refinements); err != nil {
			warn("refinements", err)
		} else {
			view.Refinements = refinements
		}
	}
	return view, warnings
}

func dedupe(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]bool, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
