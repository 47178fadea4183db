package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathan/grade-explorer/internal/engine"
	"github.com/jonathan/grade-explorer/internal/observability"
	"github.com/jonathan/grade-explorer/internal/session"
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Answer one grade question",
	Long: `Interpret a free-text question, fetch the matching sections and print them.

Examples:
  grade_explorer query "cs 2104 fall 2023"
  grade_explorer query --sort gpa --desc "math classes with more than 40% A's"
  grade_explorer query --compare 20230212345,20230254321 "cs 2104 smith vs jones"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

// queryOptions are the display settings of one query invocation.
type queryOptions struct {
	Query     string
	JSON      bool
	Sort      string
	Desc      bool
	Threshold string
	Page      int
	PageSize  int
	Compare   []int64
	Restore   string
	Save      string
	Verbose   bool
}

var queryOpts queryOptions

func init() {
	f := queryCmd.Flags()
	f.BoolVar(&queryOpts.JSON, "json", false, "Print the raw response as JSON")
	f.StringVar(&queryOpts.Sort, "sort", "", "Sort key: course, instructor, semester, gpa, enrollment or threshold")
	f.BoolVar(&queryOpts.Desc, "desc", false, "Sort descending")
	f.StringVar(&queryOpts.Threshold, "threshold", "", "Letter grade for the at-or-above column")
	f.IntVar(&queryOpts.Page, "page", 0, "Page to show")
	f.IntVar(&queryOpts.PageSize, "page-size", 0, "Rows per page (default from config)")
	f.Int64SliceVar(&queryOpts.Compare, "compare", nil, "Section ids to compare side by side")
	f.StringVar(&queryOpts.Restore, "restore", "", "Resume the session saved in this snapshot file")
	f.StringVar(&queryOpts.Save, "save", "", "Save the session snapshot to this file")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	opts := queryOpts
	opts.Query = strings.Join(args, " ")
	opts.Verbose = cfg.Verbose
	if opts.PageSize == 0 {
		opts.PageSize = cfg.PageSize
	}
	if opts.Threshold == "" {
		opts.Threshold = cfg.Threshold
	}
	return executeQuery(cmd.Context(), os.Stdout, a, opts)
}

// executeQuery runs one query through a session and prints the page.
func executeQuery(ctx context.Context, w io.Writer, a *app, opts queryOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}

	snap := session.New()
	if opts.Restore != "" {
		blob, err := os.ReadFile(opts.Restore)
		if err != nil {
			return fmt.Errorf("failed to read snapshot: %w", err)
		}
		var warnings []string
		snap, warnings = session.Restore(blob)
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "snapshot: %s\n", warning)
		}
	}

	ctrl := session.NewController(a.pipeline, snap)
	ctrl.SetTerm(a.cfg.CurrentTerm)
	resp, err := ctrl.Submit(ctx, opts.Query)
	if err != nil {
		return err
	}

	if opts.JSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("failed to encode response: %w", err)
		}
	} else {
		printer := observability.NewPrinter(w)
		if opts.Verbose {
			printer.PrintInterpretation(&resp.Meta)
		}
		if resp.Subjects != nil {
			printer.PrintSubjects(resp.Subjects)
		}
	}
	if !resp.OK {
		return fmt.Errorf("query failed: %s", resp.Error)
	}

	if err := applyDisplay(ctrl, opts); err != nil {
		return err
	}
	if !opts.JSON {
		printPage(w, ctrl.Page())
	}

	if len(opts.Compare) > 0 {
		ctrl.Select(opts.Compare)
		comparison, err := ctrl.Compare()
		if err != nil {
			return fmt.Errorf("failed to compare sections: %w", err)
		}
		if opts.JSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(comparison); err != nil {
				return fmt.Errorf("failed to encode comparison: %w", err)
			}
		} else {
			observability.NewPrinter(w).PrintComparison(comparison)
		}
	}

	if opts.Save != "" {
		blob, err := session.Marshal(ctrl.Snapshot())
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.Save, blob, 0644); err != nil {
			return fmt.Errorf("failed to write snapshot: %w", err)
		}
	}
	return nil
}

func applyDisplay(ctrl *session.Controller, opts queryOptions) error {
	if opts.Sort != "" {
		if err := ctrl.SetSort(opts.Sort, opts.Desc); err != nil {
			return err
		}
	}
	if opts.Threshold != "" {
		if err := ctrl.SetThreshold(opts.Threshold); err != nil {
			return err
		}
	}
	if opts.PageSize > 0 {
		if err := ctrl.SetPageSize(opts.PageSize); err != nil {
			return err
		}
	}
	if opts.Page > 0 {
		if err := ctrl.SetPage(opts.Page); err != nil {
			return err
		}
	}
	return nil
}

// printPage writes the rendered rows as a fixed-width table.
func printPage(w io.Writer, d session.Display) {
	switch d.State {
	case engine.StateNotSearched:
		return
	case engine.StateEmpty:
		fmt.Fprintln(w, "No sections matched.")
		return
	}
	fmt.Fprintf(w, "%-14s %-10s %-34s %-12s %-20s %5s %5s %6s\n",
		"SECTION", "COURSE", "TITLE", "TERM", "INSTRUCTOR", "GPA", "N", d.Threshold+"+%")
	for _, row := range d.Rows {
		s := row.Section
		gpa := "-"
		if row.GPA != nil {
			gpa = fmt.Sprintf("%.2f", *row.GPA)
		}
		fmt.Fprintf(w, "%-14d %-10s %-34s %-12s %-20s %5s %5d %6.1f\n",
			s.SectionID, s.CourseCode(), clip(s.Course.Title, 34), s.Term.Label,
			clip(s.Instructor.NameDisplay, 20), gpa, row.Total, row.ThresholdPercent)
	}
	fmt.Fprintf(w, "Page %d of %d (%d sections)\n", d.Page.Page, d.TotalPages, d.Total)
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
