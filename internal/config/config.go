// Package config provides configuration loading and validation for the CLI
// and server.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/jonathan/grade-explorer/internal/grades"
	"github.com/jonathan/grade-explorer/internal/types"
)

// Defaults applied by MergeWithDefaults when neither a flag nor the file sets
// a value.
const (
	DefaultParserMode        = types.ModeRuleBased
	DefaultAutoThreshold     = 0.5
	DefaultPageSize          = 25
	DefaultThreshold         = "B"
	DefaultCourseDigits      = 4
	DefaultLLMTimeoutSeconds = 30
	DefaultPort              = 8080
)

// Config represents the configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Sources
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
	CSVPath     string `json:"csv_path,omitempty"`     // Grade CSV served from memory instead of the database

	// Interpretation
	APIKey            string  `json:"api_key,omitempty"`             // Gemini API key for the llm parser mode
	ParserMode        string  `json:"parser_mode,omitempty"`         // rule-based, llm or auto
	AutoThreshold     float64 `json:"auto_threshold,omitempty"`      // Confidence below which auto mode asks the LLM
	CurrentTerm       string  `json:"current_term,omitempty"`        // e.g. "Spring 2024"; derived from the date when empty
	CourseDigits      int     `json:"course_digits,omitempty"`       // Width of stored course numbers
	LLMTimeoutSeconds int     `json:"llm_timeout_seconds,omitempty"` // Per-call LLM timeout

	// Display
	PageSize  int    `json:"page_size,omitempty"` // Rows per page
	Threshold string `json:"threshold,omitempty"` // Letter whose cumulative share is shown

	// Server
	Port           int      `json:"port,omitempty"`
	AllowedOrigins []string `json:"allowed_origins,omitempty"`

	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	if c.DatabaseURL != "" && c.CSVPath != "" {
		return fmt.Errorf("config error: 'database_url' and 'csv_path' are mutually exclusive")
	}

	if c.ParserMode != "" && !slices.Contains([]string{types.ModeRuleBased, types.ModeLLM, types.ModeAuto}, c.ParserMode) {
		return fmt.Errorf("config error: unknown 'parser_mode' %q", c.ParserMode)
	}
	if c.AutoThreshold < 0 || c.AutoThreshold > 1 {
		return fmt.Errorf("config error: 'auto_threshold' must be within [0, 1]")
	}
	if c.CurrentTerm != "" {
		if _, err := types.ParseTermLabel(c.CurrentTerm); err != nil {
			return fmt.Errorf("config error: 'current_term': %w", err)
		}
	}

	if c.PageSize < 0 {
		return fmt.Errorf("config error: 'page_size' must be non-negative")
	}
	if c.CourseDigits < 0 {
		return fmt.Errorf("config error: 'course_digits' must be non-negative")
	}
	if c.LLMTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'llm_timeout_seconds' must be non-negative")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("config error: 'port' must be within [0, 65535]")
	}
	if c.Threshold != "" && grades.Canonical(c.Threshold) == "" {
		return fmt.Errorf("config error: unknown 'threshold' %q", c.Threshold)
	}

	if c.CSVPath != "" && !isURL(c.CSVPath) {
		if _, err := os.Stat(c.CSVPath); os.IsNotExist(err) {
			return fmt.Errorf("config error: csv file not found: %s", c.CSVPath)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults and then from the built-in defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.CSVPath == "" {
		result.CSVPath = defaults.CSVPath
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.CurrentTerm == "" {
		result.CurrentTerm = defaults.CurrentTerm
	}
	result.ParserMode = firstNonEmpty(result.ParserMode, defaults.ParserMode, DefaultParserMode)
	result.Threshold = firstNonEmpty(result.Threshold, defaults.Threshold, DefaultThreshold)
	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Numeric fields: use default if zero
	result.PageSize = firstPositive(result.PageSize, defaults.PageSize, DefaultPageSize)
	result.CourseDigits = firstPositive(result.CourseDigits, defaults.CourseDigits, DefaultCourseDigits)
	result.LLMTimeoutSeconds = firstPositive(result.LLMTimeoutSeconds, defaults.LLMTimeoutSeconds, DefaultLLMTimeoutSeconds)
	result.Port = firstPositive(result.Port, defaults.Port, DefaultPort)
	if result.AutoThreshold == 0 {
		result.AutoThreshold = defaults.AutoThreshold
		if result.AutoThreshold == 0 {
			result.AutoThreshold = DefaultAutoThreshold
		}
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
