package llm

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildExtractionPrompt(t *testing.T) {
	schema := ExtractionSchema{
		Name:        "Test",
		Description: "Read the grade question.",
		Fields: []SchemaField{
			{Name: "subjects", Type: `["string"]`, Description: "subject codes", Required: true},
			{Name: "gpa_min"},
		},
	}

	prompt := BuildExtractionPrompt(schema, "CS classes with gpa above 3.5")

	assert.True(t, strings.HasPrefix(prompt, "Read the grade question.\n\n"))
	assert.Contains(t, prompt, `"subjects": ["string"] (required) // subject codes,`)
	assert.Contains(t, prompt, `"gpa_min": string`)
	assert.Contains(t, prompt, "Input text:\n\"\"\"\nCS classes with gpa above 3.5\n\"\"\"")
}

func TestQueryFiltersSchema(t *testing.T) {
	schema := QueryFiltersSchema()
	assert.Equal(t, "QueryFilters", schema.Name)

	names := make(map[string]bool)
	for _, f := range schema.Fields {
		names[f.Name] = true
	}
	for _, want := range []string{"intent", "filters", "filters.subjects", "filters.grade_max", "sort_by", "limit", "explanation"} {
		assert.True(t, names[want], want)
	}
}
