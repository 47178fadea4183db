package ingestion

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/jonathan/grade-explorer/internal/fetch"
)

// FromBytes parses and normalizes a grade export held in memory.
func FromBytes(content []byte, source string) (*Dataset, *Metadata, error) {
	records, err := Parse(bytes.NewReader(content))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", source, err)
	}
	ds := Build(records)
	meta := NewMetadata(content, source)
	meta.Summarize(len(records), ds)
	return ds, meta, nil
}

// FromFile reads a grade export from disk.
func FromFile(path string) (*Dataset, *Metadata, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read grade file: %w", err)
	}
	return FromBytes(content, path)
}

// FromURL downloads a grade export.
func FromURL(ctx context.Context, url string, opts *fetch.Options) (*Dataset, *Metadata, error) {
	result, err := fetch.URL(ctx, url, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to download grade file: %w", err)
	}
	return FromBytes(result.Body, url)
}
