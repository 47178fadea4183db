package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FromEnv reads the settings that may come from the environment. Unset
// variables leave the corresponding field empty.
//
//	DATABASE_URL, GEMINI_API_KEY, GRADES_CSV, CURRENT_TERM, PARSER_MODE,
//	AUTO_THRESHOLD, PORT, CORS_ORIGINS
func FromEnv() (Config, error) {
	cfg := Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		APIKey:      os.Getenv("GEMINI_API_KEY"),
		CSVPath:     os.Getenv("GRADES_CSV"),
		CurrentTerm: os.Getenv("CURRENT_TERM"),
		ParserMode:  os.Getenv("PARSER_MODE"),
	}

	if v := os.Getenv("AUTO_THRESHOLD"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return Config{}, fmt.Errorf("invalid AUTO_THRESHOLD: %v", err)
		}
		cfg.AutoThreshold = f
	}
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			cfg.AllowedOrigins = append(cfg.AllowedOrigins, origin)
		}
	}
	return cfg, nil
}

// Resolve layers flags over the environment over the file over the built-in
// defaults. file may be nil.
func Resolve(flags Config, file *Config) (Config, error) {
	env, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if file == nil {
		file = &Config{}
	}
	merged := flags.MergeWithDefaults(env.MergeWithDefaults(*file))
	merged.Verbose = flags.Verbose || file.Verbose

	// A source chosen on the command line replaces the other kind.
	switch {
	case flags.CSVPath != "" && flags.DatabaseURL == "":
		merged.DatabaseURL = ""
	case flags.DatabaseURL != "" && flags.CSVPath == "":
		merged.CSVPath = ""
	}
	if err := merged.Validate(); err != nil {
		return Config{}, err
	}
	return merged, nil
}
