package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/grade-explorer/internal/ingestion"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/schemas"
	"github.com/jonathan/grade-explorer/internal/session"
	"github.com/jonathan/grade-explorer/internal/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a grade CSV, filter document or session snapshot",
	Long: `Validate input files without loading them:
  --csv-file   parse a grade CSV and report its summary or the first bad row
  --filters    check a filter JSON document against filter_spec.schema.json
  --snapshot   restore a session snapshot and list what would fall back to defaults`,
	RunE: runValidate,
}

var (
	validateCSV      string
	validateFilters  string
	validateSnapshot string
)

func init() {
	validateCmd.Flags().StringVar(&validateCSV, "csv-file", "", "Path to a grade CSV")
	validateCmd.Flags().StringVar(&validateFilters, "filters", "", "Path to a filter JSON document")
	validateCmd.Flags().StringVar(&validateSnapshot, "snapshot", "", "Path to a session snapshot")
	validateCmd.MarkFlagsOneRequired("csv-file", "filters", "snapshot")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(_ *cobra.Command, _ []string) error {
	if validateCSV != "" {
		if err := validateCSVFile(os.Stdout, validateCSV); err != nil {
			return err
		}
	}
	if validateFilters != "" {
		if err := validateFilterFile(os.Stdout, validateFilters); err != nil {
			return err
		}
	}
	if validateSnapshot != "" {
		if err := validateSnapshotFile(os.Stdout, validateSnapshot); err != nil {
			return err
		}
	}
	return nil
}

func validateCSVFile(w io.Writer, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("grade file not found: %s", path)
	}
	_, meta, err := ingestion.FromFile(path)
	if err != nil {
		var rowErr *ingestion.RowError
		if errors.As(err, &rowErr) {
			return fmt.Errorf("validation failed: %w", err)
		}
		return err
	}
	printMetadata(w, meta)
	fmt.Fprintln(w, "✓ grade file is valid")
	return nil
}

func validateFilterFile(w io.Writer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read filter file: %w", err)
	}
	if err := schemas.ValidateDocument("filter_spec.schema.json", string(content)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	var doc struct {
		Filters types.Filters `json:"filters"`
	}
	if err := json.Unmarshal(content, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal filters: %w", err)
	}
	if err := parsing.NormalizeFilters(&doc.Filters); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	fmt.Fprintf(w, "✓ filters are valid (intent %s)\n", doc.Filters.Intent())
	return nil
}

func validateSnapshotFile(w io.Writer, path string) error {
	blob, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	snap, warnings := session.Restore(blob)
	for _, warning := range warnings {
		fmt.Fprintf(w, "⚠ %s\n", warning)
	}
	if len(warnings) > 0 {
		return fmt.Errorf("snapshot has %d problem(s)", len(warnings))
	}
	fmt.Fprintf(w, "✓ snapshot %s is valid (%d sections, %d selected)\n", snap.ID, len(snap.Sections()), len(snap.Selection))
	return nil
}
