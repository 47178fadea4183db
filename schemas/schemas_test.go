package schemas_test

import (
	"encoding/json"
	"io/fs"
	"testing"

	"github.com/jonathan/grade-explorer/internal/schemas"
	rootschemas "github.com/jonathan/grade-explorer/schemas"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var schemaFiles = []string{
	"filter_spec.schema.json",
	"session.schema.json",
}

func TestEmbeddedFiles(t *testing.T) {
	names, err := fs.Glob(rootschemas.Files, "*.schema.json")
	require.NoError(t, err)
	assert.ElementsMatch(t, schemaFiles, names)
}

func TestSchemaFiles_ValidJSONSchema(t *testing.T) {
	for _, schemaFile := range schemaFiles {
		t.Run(schemaFile, func(t *testing.T) {
			data, err := rootschemas.Files.ReadFile(schemaFile)
			require.NoError(t, err)

			var schemaObj map[string]interface{}
			require.NoError(t, json.Unmarshal(data, &schemaObj))
			assert.Equal(t, "http://json-schema.org/draft-07/schema#", schemaObj["$schema"])
			assert.Equal(t, "object", schemaObj["type"])
			assert.Contains(t, schemaObj, "properties")
		})
	}
}

func TestFilterSpecSchema(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "typical response",
			doc: `{"intent":"course_lookup","filters":{"subjects":["CS"],"gpa_min":3.5,
				"grade_max":{"F":0},"ranking":null},"sort_by":null,"limit":null,"explanation":"CS with high GPA"}`,
		},
		{
			name: "nulls everywhere",
			doc:  `{"filters":{"subjects":null,"terms":null,"grade_min":null,"b_or_above_percent_min":null}}`,
		},
		{
			name:    "missing filters",
			doc:     `{"intent":"browse_subjects"}`,
			wantErr: true,
		},
		{
			name:    "gpa out of range",
			doc:     `{"filters":{"gpa_min":5}}`,
			wantErr: true,
		},
		{
			name:    "negative grade count",
			doc:     `{"filters":{"grade_min":{"A":-1}}}`,
			wantErr: true,
		},
		{
			name:    "subjects not a list",
			doc:     `{"filters":{"subjects":"CS"}}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schemas.ValidateDocument("filter_spec.schema.json", tt.doc)
			if tt.wantErr {
				require.Error(t, err)
				var ve *schemas.ValidationError
				assert.ErrorAs(t, err, &ve)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestSessionSchema(t *testing.T) {
	valid := `{"version":1,"id":"0b7c","query":"CS 2104","parser_mode":"rule-based",
		"view":{"sort":"gpa","desc":true,"threshold":"B-","page":1,"page_size":25,"refinements":{}},
		"selection":[1,2],"saved_at":"2024-01-02T03:04:05Z"}`
	assert.NoError(t, schemas.ValidateDocument("session.schema.json", valid))

	invalid := `{"version":1,"view":{"sort":"random","page":0}}`
	err := schemas.ValidateDocument("session.schema.json", invalid)
	require.Error(t, err)
	var ve *schemas.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.GreaterOrEqual(t, len(ve.Errors), 2)
}
