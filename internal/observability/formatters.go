// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/ranking"
	"github.com/jonathan/grade-explorer/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintInterpretation outputs how a query was understood: intent,
// confidence, every set filter and the debug trace.
func (p *Printer) PrintInterpretation(meta *types.QueryMeta) {
	if meta == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Query:       %s\n", meta.Query))
	sb.WriteString(fmt.Sprintf("Intent:      %s\n", meta.Intent))
	sb.WriteString(fmt.Sprintf("Confidence:  %.3f\n", meta.Confidence))
	sb.WriteString(fmt.Sprintf("Parser:      %s\n", meta.Debug.Source))

	if lines := filterLines(meta.Filters); len(lines) > 0 {
		sb.WriteString("\nFilters:\n")
		for _, line := range lines {
			sb.WriteString("  • " + line + "\n")
		}
	}

	d := meta.Debug
	if len(d.Unrecognized) > 0 {
		sb.WriteString(fmt.Sprintf("\nUnrecognized: %s\n", strings.Join(d.Unrecognized, ", ")))
	}
	if d.RelativeTerm != nil {
		sb.WriteString(fmt.Sprintf("Relative term: %s\n", d.RelativeTerm.Resolved))
	}
	for _, c := range d.Conflicts {
		sb.WriteString(fmt.Sprintf("Conflict: %s\n", c))
	}
	fields := make([]string, 0, len(d.FilteredOut))
	for field := range d.FilteredOut {
		fields = append(fields, field)
	}
	slices.Sort(fields)
	for _, field := range fields {
		sb.WriteString(fmt.Sprintf("Dropped %s: %s\n", field, strings.Join(d.FilteredOut[field], ", ")))
	}
	if d.Explanation != "" {
		sb.WriteString(fmt.Sprintf("Explanation: %s\n", d.Explanation))
	}

	p.printBox("Interpretation", sb.String())
}

// filterLines renders each set filter field as "name: value".
func filterLines(f types.Filters) []string {
	data, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	var lines []string
	for name, raw := range fields {
		if v := string(raw); v != "null" && v != "[]" && v != "{}" {
			lines = append(lines, name+": "+v)
		}
	}
	slices.Sort(lines)
	return lines
}

// PrintSections outputs the aggregates and the first few sections.
func (p *Printer) PrintSections(sections []types.Section, agg types.Aggregates) {
	var sb strings.Builder
	avg := "n/a"
	if agg.AvgGPA != nil {
		avg = fmt.Sprintf("%.3f", *agg.AvgGPA)
	}
	sb.WriteString(fmt.Sprintf("Sections: %d   Students: %d   Avg GPA: %s\n",
		agg.SectionCount, agg.TotalGradedEnrollment, avg))

	if len(sections) > 0 {
		sb.WriteString("\n")
	}
	count := min(len(sections), maxItemsToShow)
	for i := 0; i < count; i++ {
		s := &sections[i]
		gpa := "  -  "
		if g := s.GPA(); g != nil {
			gpa = fmt.Sprintf("%.2f", *g)
		}
		sb.WriteString(fmt.Sprintf("%-10s %-12s %s  n=%d  %s\n",
			s.CourseCode(), s.Term.Label, gpa, s.Total(), s.Instructor.NameDisplay))
	}
	if len(sections) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more\n", len(sections)-maxItemsToShow))
	}

	p.printBox("Sections", sb.String())
}

// PrintSubjects outputs the subject listing.
func (p *Printer) PrintSubjects(subjects []types.Subject) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d subjects\n", len(subjects)))
	for _, s := range subjects {
		if s.Name != "" {
			sb.WriteString(fmt.Sprintf("  %-6s %s\n", s.SubjectCode, s.Name))
		} else {
			sb.WriteString(fmt.Sprintf("  %s\n", s.SubjectCode))
		}
	}
	p.printBox("Subjects", sb.String())
}

// PrintComparison outputs a side-by-side comparison with its leaders.
func (p *Printer) PrintComparison(c *ranking.Comparison) {
	if c == nil || len(c.Sections) == 0 {
		return
	}

	var sb strings.Builder
	for i, s := range c.Sections {
		gpa := "n/a"
		if s.GPA != nil {
			gpa = fmt.Sprintf("%.2f", *s.GPA)
		}
		var marks []string
		if i == c.Leaders.HighestGPA {
			marks = append(marks, "top GPA")
		}
		if i == c.Leaders.HighestBOrAbove {
			marks = append(marks, "top B+")
		}
		if i == c.Leaders.LargestClass {
			marks = append(marks, "largest")
		}
		sb.WriteString(fmt.Sprintf("%d. %s %s (%s)\n", i+1, s.Course, s.Term, s.Instructor))
		sb.WriteString(fmt.Sprintf("   GPA %s  n=%d  B or above %.1f%%", gpa, s.Total, s.BOrAbovePercent))
		if len(marks) > 0 {
			sb.WriteString("  [" + strings.Join(marks, ", ") + "]")
		}
		sb.WriteString("\n")
	}

	if len(c.Instructors) > 0 {
		sb.WriteString("\nBy instructor:\n")
		for _, g := range c.Instructors {
			gpa := "n/a"
			if g.WeightedGPA != nil {
				gpa = fmt.Sprintf("%.3f", *g.WeightedGPA)
			}
			sb.WriteString(fmt.Sprintf("  %s: %d sections, %d students, GPA %s\n",
				g.Name, g.Sections, g.TotalStudents, gpa))
		}
	}

	p.printBox("Comparison", sb.String())
}
