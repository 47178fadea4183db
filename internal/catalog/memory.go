package catalog

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/types"
)

// Memory is a read-only section source held entirely in memory.
type Memory struct {
	sections []types.Section
	subjects []types.Subject
}

// NewMemory builds a catalog over sections. When subjects is empty the
// listing is derived from the sections.
func NewMemory(sections []types.Section, subjects []types.Subject) *Memory {
	if len(subjects) == 0 {
		seen := make(map[string]bool)
		for _, s := range sections {
			code := s.Course.SubjectCode
			if code == "" || seen[code] {
				continue
			}
			seen[code] = true
			subjects = append(subjects, types.Subject{SubjectCode: code, Name: s.Course.SubjectName})
		}
	}
	subjects = slices.Clone(subjects)
	slices.SortFunc(subjects, func(a, b types.Subject) int {
		return strings.Compare(a.SubjectCode, b.SubjectCode)
	})
	return &Memory{sections: sections, subjects: subjects}
}

// Len returns the number of sections held.
func (m *Memory) Len() int {
	return len(m.sections)
}

// Ping implements pipeline.Source.
func (m *Memory) Ping(context.Context) error {
	return nil
}

// ListSubjects implements pipeline.Source.
func (m *Memory) ListSubjects(context.Context) ([]types.Subject, error) {
	return slices.Clone(m.subjects), nil
}

// FetchSections implements pipeline.Source. Filter values that match no
// section are dropped and reported, an unresolved relative term resolves to
// the latest stored term of its season, and terms that are also excluded are
// removed.
func (m *Memory) FetchSections(ctx context.Context, interp *types.Interpretation, opts types.FetchOptions) (*types.FetchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	result := &types.FetchResult{Filters: interp.Filters.Clone()}
	f := &result.Filters

	f.Subjects = m.keep(result, "subjects", f.Subjects, func(s *types.Section, v string) bool {
		return strings.EqualFold(s.Course.SubjectCode, v)
	})
	nameHas := func(s *types.Section, v string) bool {
		return strings.Contains(strings.ToLower(s.Instructor.NameDisplay), strings.ToLower(v))
	}
	f.Instructors = m.keep(result, "instructors", f.Instructors, nameHas)
	f.ExcludeInstructors = m.keep(result, "exclude_instructors", f.ExcludeInstructors, nameHas)
	f.CourseTitleContains = m.keep(result, "course_title_contains", f.CourseTitleContains, func(s *types.Section, v string) bool {
		return strings.Contains(strings.ToLower(s.Course.Title), strings.ToLower(v))
	})

	if rt := f.RelativeTerm; rt != nil && rt.Resolved == "" && rt.Season != "" && len(f.Terms) == 0 {
		if label := m.latestTerm(rt.Season); label != "" {
			resolved := *rt
			resolved.Resolved = label
			f.RelativeTerm = &resolved
			f.Terms = []string{label}
			result.RelativeTerm = &resolved
		}
	}
	result.PruneExcludedTerms()
	if len(f.Subjects) == 0 && len(f.CourseNumbers) > 0 {
		result.Drop("course_numbers", f.CourseNumbers...)
		f.CourseNumbers = nil
	}

	var matched []types.Section
	for i := range m.sections {
		if Match(&m.sections[i], f) {
			matched = append(matched, m.sections[i])
		}
	}

	slices.SortStableFunc(matched, func(a, b types.Section) int {
		return cmp.Or(cmp.Compare(b.TermID, a.TermID), cmp.Compare(a.SectionID, b.SectionID))
	})
	matched = engine.ApplyRanking(matched, f.Ranking)
	if limit := opts.RowCap(); len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []types.Section{}
	}
	result.Sections = matched
	return result, nil
}

// keep returns the values of field that match at least one section and
// records the rest as filtered out.
func (m *Memory) keep(result *types.FetchResult, field string, values []string, matches func(*types.Section, string) bool) []string {
	if len(values) == 0 {
		return values
	}
	var kept, dropped []string
	for _, v := range values {
		found := slices.ContainsFunc(m.sections, func(s types.Section) bool { return matches(&s, v) })
		if !found && field == "subjects" {
			found = slices.ContainsFunc(m.subjects, func(s types.Subject) bool { return strings.EqualFold(s.SubjectCode, v) })
		}
		if found {
			kept = append(kept, v)
		} else {
			dropped = append(dropped, v)
		}
	}
	result.Drop(field, dropped...)
	return kept
}

// latestTerm returns the most recent stored term label of season.
func (m *Memory) latestTerm(season string) string {
	best, bestID := "", -1
	prefix := strings.ToLower(season) + " "
	for _, s := range m.sections {
		if strings.HasPrefix(strings.ToLower(s.Term.Label), prefix) && s.TermID > bestID {
			best, bestID = s.Term.Label, s.TermID
		}
	}
	return best
}
