// Package main provides the grade_explorer CLI and HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "grade_explorer",
	Short: "Natural-language explorer for course grade distributions",
	Long: "grade_explorer answers free-text questions about course grade distributions, " +
		"such as \"CS 2104 fall 2023 with at least 40% A's\", from a PostgreSQL database or a grade CSV.",
	SilenceUsage: true,
}

var (
	configPath  string
	flagDB      string
	flagCSV     string
	flagAPIKey  string
	flagParser  string
	flagTerm    string
	flagVerbose bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Path to JSON config file")
	pf.StringVar(&flagDB, "db", "", "PostgreSQL connection URL (default $DATABASE_URL)")
	pf.StringVar(&flagCSV, "csv", "", "Serve sections from a grade CSV file or URL instead of the database")
	pf.StringVar(&flagAPIKey, "api-key", "", "Gemini API key for the llm parser mode (default $GEMINI_API_KEY)")
	pf.StringVar(&flagParser, "parser", "", "Parser mode: rule-based, llm or auto")
	pf.StringVar(&flagTerm, "term", "", `Current term for relative phrases, e.g. "Spring 2024"`)
	pf.BoolVarP(&flagVerbose, "verbose", "v", false, "Print detailed debug information")
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
