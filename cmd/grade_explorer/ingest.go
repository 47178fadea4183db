package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/grade-explorer/internal/db"
	"github.com/jonathan/grade-explorer/internal/fetch"
	"github.com/jonathan/grade-explorer/internal/ingestion"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a grade CSV into PostgreSQL",
	Long: `Parse a grade distribution CSV from a file or URL, normalize it and replace
the database contents with it. The schema is created when missing.`,
	RunE: runIngest,
}

var (
	ingestFile    string
	ingestURL     string
	ingestOutput  string
	ingestDryRun  bool
	ingestTimeout int
)

func init() {
	ingestCmd.Flags().StringVarP(&ingestFile, "file", "f", "", "Path to the grade CSV")
	ingestCmd.Flags().StringVarP(&ingestURL, "url", "u", "", "URL to download the grade CSV from")
	ingestCmd.Flags().StringVarP(&ingestOutput, "out", "o", "", "Write ingestion metadata JSON to this path")
	ingestCmd.Flags().BoolVar(&ingestDryRun, "dry-run", false, "Parse and summarize without touching the database")
	ingestCmd.Flags().IntVar(&ingestTimeout, "timeout", 60, "Download timeout in seconds")
	ingestCmd.MarkFlagsMutuallyExclusive("file", "url")
	ingestCmd.MarkFlagsOneRequired("file", "url")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ds, meta, err := readDataset(ctx)
	if err != nil {
		return err
	}
	printMetadata(os.Stdout, meta)

	if ingestOutput != "" {
		data, err := meta.ToJSON()
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if err := os.WriteFile(ingestOutput, data, 0644); err != nil {
			return fmt.Errorf("failed to write metadata: %w", err)
		}
	}
	if ingestDryRun {
		return nil
	}

	cfg, err := loadSettings()
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("ingest needs a database: pass --db or set DATABASE_URL")
	}
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := database.EnsureSchema(ctx); err != nil {
		return err
	}
	stats, err := database.LoadDataset(ctx, ds)
	if err != nil {
		return err
	}
	out, _ := json.Marshal(stats)
	fmt.Fprintf(os.Stdout, "Loaded: %s\n", out)
	return nil
}

func readDataset(ctx context.Context) (*ingestion.Dataset, *ingestion.Metadata, error) {
	if ingestURL != "" {
		opts := fetch.DefaultOptions()
		if ingestTimeout > 0 {
			opts.Timeout = time.Duration(ingestTimeout) * time.Second
		}
		return ingestion.FromURL(ctx, ingestURL, opts)
	}
	if _, err := os.Stat(ingestFile); os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("grade file not found: %s", ingestFile)
	}
	return ingestion.FromFile(ingestFile)
}

func printMetadata(w io.Writer, meta *ingestion.Metadata) {
	fmt.Fprintf(w, "Source:     %s\n", meta.Source)
	fmt.Fprintf(w, "SHA-256:    %s\n", meta.Hash)
	fmt.Fprintf(w, "Rows:       %d\n", meta.Rows)
	fmt.Fprintf(w, "Sections:   %d (%d duplicates skipped)\n", meta.Sections, meta.Duplicates)
	fmt.Fprintf(w, "Terms:      %d\n", meta.Terms)
	fmt.Fprintf(w, "Subjects:   %d\n", meta.Subjects)
}
