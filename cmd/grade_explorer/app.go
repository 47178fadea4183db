package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jonathan/grade-explorer/internal/catalog"
	"github.com/jonathan/grade-explorer/internal/config"
	"github.com/jonathan/grade-explorer/internal/db"
	"github.com/jonathan/grade-explorer/internal/llm"
	"github.com/jonathan/grade-explorer/internal/parsing"
	"github.com/jonathan/grade-explorer/internal/pipeline"
	"github.com/jonathan/grade-explorer/internal/types"
)

// loadSettings resolves flags, environment, config file and defaults.
func loadSettings() (config.Config, error) {
	var file *config.Config
	if configPath != "" {
		cfg, err := config.LoadConfig(configPath)
		if err != nil {
			return config.Config{}, err
		}
		file = cfg
	}
	return config.Resolve(config.Config{
		DatabaseURL: flagDB,
		CSVPath:     flagCSV,
		APIKey:      flagAPIKey,
		ParserMode:  flagParser,
		CurrentTerm: flagTerm,
		Verbose:     flagVerbose,
	}, file)
}

// app holds the collaborators every query command needs.
type app struct {
	cfg      config.Config
	source   pipeline.Source
	pipeline *pipeline.Pipeline
	closers  []func()
}

// newApp opens the configured section source and builds the parsers.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	a := &app{cfg: cfg}

	source, err := a.openSource(ctx)
	if err != nil {
		return nil, err
	}
	a.source = source

	opts := []parsing.Option{parsing.WithCourseDigits(cfg.CourseDigits)}
	if subjects, err := source.ListSubjects(ctx); err != nil {
		log.Printf("could not list subjects, using the built-in table: %v", err)
	} else {
		opts = append(opts, parsing.WithSubjects(parsing.NewSubjectTable(subjects)))
	}

	var llmParser parsing.Parser
	if cfg.APIKey != "" {
		llmCfg := llm.DefaultConfig()
		llmCfg.Timeout = time.Duration(cfg.LLMTimeoutSeconds) * time.Second
		client, err := llm.NewClient(ctx, llmCfg, cfg.APIKey)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		llmParser = parsing.NewLLMParser(client)
	} else if cfg.ParserMode == types.ModeLLM {
		a.Close()
		return nil, fmt.Errorf("parser mode llm requires GEMINI_API_KEY or --api-key")
	}

	var current types.TermContext
	if cfg.CurrentTerm != "" {
		// Validated by config.Resolve.
		current, _ = types.ParseTermLabel(cfg.CurrentTerm)
	}

	pipeOpts := pipeline.Options{
		Parsers:     parsing.Parsers(parsing.NewInterpreter(opts...), llmParser, cfg.AutoThreshold),
		DefaultMode: cfg.ParserMode,
		Source:      source,
		CurrentTerm: current,
	}
	if cfg.Verbose {
		pipeOpts.OnProgress = func(e pipeline.ProgressEvent) {
			fmt.Fprintf(os.Stderr, "[%s] %s\n", e.Step, e.Message)
		}
	}
	a.pipeline = pipeline.New(pipeOpts)
	return a, nil
}

func (a *app) openSource(ctx context.Context) (pipeline.Source, error) {
	switch {
	case a.cfg.CSVPath != "":
		mem, meta, err := catalog.Load(ctx, a.cfg.CSVPath)
		if err != nil {
			return nil, err
		}
		if a.cfg.Verbose {
			fmt.Fprintf(os.Stderr, "Loaded %d sections from %s (%d duplicates skipped)\n", meta.Sections, meta.Source, meta.Duplicates)
		}
		return mem, nil
	case a.cfg.DatabaseURL != "":
		database, err := db.Connect(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, database.Close)
		return database, nil
	default:
		return nil, fmt.Errorf("no data source: pass --db, --csv or set DATABASE_URL")
	}
}

// Close releases the source and LLM client.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
