package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jonathan/grade-explorer/internal/fetch"
	"github.com/jonathan/grade-explorer/internal/ingestion"
)

// FromDataset builds a catalog over an ingested dataset.
func FromDataset(ds *ingestion.Dataset) *Memory {
	return NewMemory(ds.Sections, ds.Subjects)
}

// Load reads a grade export from a path or an http(s) URL.
func Load(ctx context.Context, location string) (*Memory, *ingestion.Metadata, error) {
	var (
		ds   *ingestion.Dataset
		meta *ingestion.Metadata
		err  error
	)
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		ds, meta, err = ingestion.FromURL(ctx, location, fetch.DefaultOptions())
	} else {
		ds, meta, err = ingestion.FromFile(location)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return FromDataset(ds), meta, nil
}
