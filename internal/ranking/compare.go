// Package ranking compares a selected set of sections side by side and
// rolls them up per instructor.
package ranking

import (
	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// SectionStats is one column of a comparison.
type SectionStats struct {
	SectionID       int64              `json:"section_id"`
	Course          string             `json:"course"`
	Term            string             `json:"term"`
	Instructor      string             `json:"instructor"`
	GPA             *float64           `json:"gpa"`
	Total           int                `json:"total"`
	BOrAboveCount   int                `json:"b_or_above_count"`
	BOrAbovePercent float64            `json:"b_or_above_percent"`
	Breakdown       map[string]float64 `json:"breakdown"`
}

// Leaderboard holds indexes into Comparison.Sections for the best section
// by each metric.
type Leaderboard struct {
	HighestGPA      int `json:"highest_gpa"`
	HighestBOrAbove int `json:"highest_b_or_above"`
	LargestClass    int `json:"largest_class"`
}

// Comparison is the side-by-side view of a selection.
type Comparison struct {
	Sections    []SectionStats    `json:"sections"`
	Leaders     Leaderboard       `json:"leaders"`
	Instructors []InstructorGroup `json:"instructors"`
}

// Compare builds the comparison for sections in the order given.
func Compare(sections []types.Section) (*Comparison, error) {
	if len(sections) < MinSections {
		return nil, &InsufficientSectionsError{Count: len(sections)}
	}

	stats := make([]SectionStats, 0, len(sections))
	for i := range sections {
		stats = append(stats, NewSectionStats(&sections[i]))
	}
	return &Comparison{
		Sections:    stats,
		Leaders:     leaders(stats),
		Instructors: RollupInstructors(sections),
	}, nil
}

// NewSectionStats computes the comparison metrics for one section.
func NewSectionStats(s *types.Section) SectionStats {
	total := s.Total()
	b := s.BOrAbove()
	breakdown := make(map[string]float64, grades.NumBuckets)
	for i, letter := range grades.Letters {
		breakdown[letter] = grades.Percent(s.Grades.Breakdown[i], total)
	}
	return SectionStats{
		SectionID:       s.SectionID,
		Course:          s.CourseCode(),
		Term:            s.Term.Label,
		Instructor:      s.Instructor.NameDisplay,
		GPA:             s.GPA(),
		Total:           total,
		BOrAboveCount:   b.Count,
		BOrAbovePercent: b.Percent,
		Breakdown:       breakdown,
	}
}

// leaders picks the first section reaching the maximum of each metric.
// Sections without a GPA never lead on GPA unless none has one, in which
// case the first section does.
func leaders(stats []SectionStats) Leaderboard {
	var lb Leaderboard
	bestGPA := -1.0
	for i, s := range stats {
		if s.GPA != nil && *s.GPA > bestGPA {
			bestGPA, lb.HighestGPA = *s.GPA, i
		}
		if s.BOrAbovePercent > stats[lb.HighestBOrAbove].BOrAbovePercent {
			lb.HighestBOrAbove = i
		}
		if s.Total > stats[lb.LargestClass].Total {
			lb.LargestClass = i
		}
	}
	return lb
}
