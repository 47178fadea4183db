package ranking

import (
	"cmp"
	"slices"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// NoInstructor labels the group of sections without an instructor name.
const NoInstructor = "(no instructor)"

// InstructorGroup aggregates the selected sections of one instructor.
type InstructorGroup struct {
	Name            string   `json:"name"`
	Unassigned      bool     `json:"unassigned,omitempty"`
	Sections        int      `json:"sections"`
	TotalStudents   int      `json:"total_students"`
	BOrAboveCount   int      `json:"b_or_above_count"`
	BOrAbovePercent float64  `json:"b_or_above_percent"`
	WeightedGPA     *float64 `json:"weighted_gpa"`

	gpas    []float64
	weights []float64
}

// RollupInstructors groups sections by trimmed instructor name. GPA is
// weighted by section size; sections without a GPA are left out of it.
// Groups are ordered by B-or-above percent, then by student count, both
// descending.
func RollupInstructors(sections []types.Section) []InstructorGroup {
	type groupKey struct {
		name       string
		unassigned bool
	}
	index := make(map[groupKey]int)
	var groups []InstructorGroup

	for i := range sections {
		s := &sections[i]
		name := strings.TrimSpace(s.Instructor.NameDisplay)
		key := groupKey{name: name, unassigned: name == ""}
		if key.unassigned {
			name = NoInstructor
		}
		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, InstructorGroup{Name: name, Unassigned: key.unassigned})
		}
		g := &groups[gi]

		total := s.Total()
		g.Sections++
		g.TotalStudents += total
		g.BOrAboveCount += s.BOrAbove().Count
		if gpa := s.GPA(); gpa != nil && total > 0 {
			g.gpas = append(g.gpas, *gpa)
			g.weights = append(g.weights, float64(total))
		}
	}

	for i := range groups {
		g := &groups[i]
		g.BOrAbovePercent = grades.Percent(g.BOrAboveCount, g.TotalStudents)
		if len(g.gpas) > 0 {
			mean := stat.Mean(g.gpas, g.weights)
			g.WeightedGPA = &mean
		}
		g.gpas, g.weights = nil, nil
	}

	slices.SortStableFunc(groups, func(a, b InstructorGroup) int {
		return cmp.Or(
			cmp.Compare(b.BOrAbovePercent, a.BOrAbovePercent),
			cmp.Compare(b.TotalStudents, a.TotalStudents),
		)
	})
	return groups
}
