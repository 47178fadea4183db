package ingestion

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata describes one ingestion run.
type Metadata struct {
	Source     string `json:"source"`
	Timestamp  string `json:"timestamp"` // RFC3339 format
	Hash       string `json:"hash"`      // SHA256 hex digest of the raw file
	Rows       int    `json:"rows"`
	Sections   int    `json:"sections"`
	Duplicates int    `json:"duplicates"`
	Terms      int    `json:"terms"`
	Subjects   int    `json:"subjects"`
}

// NewMetadata creates a new Metadata instance with current timestamp
func NewMetadata(content []byte, source string) *Metadata {
	return &Metadata{
		Source:    source,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Hash:      computeHash(content),
	}
}

// computeHash computes SHA256 hash of content and returns hex string
func computeHash(content []byte) string {
	hash := sha256.Sum256(content)
	return hex.EncodeToString(hash[:])
}

// Summarize fills the counts from a built dataset.
func (m *Metadata) Summarize(rows int, ds *Dataset) {
	m.Rows = rows
	m.Sections = len(ds.Sections)
	m.Duplicates = ds.Duplicates
	m.Terms = len(ds.Terms)
	m.Subjects = len(ds.Subjects)
}

// ToJSON marshals Metadata to pretty-printed JSON
func (m *Metadata) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return data, nil
}
