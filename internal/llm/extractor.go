// Package llm - extractor.go builds structured extraction prompts.
package llm

import (
	"fmt"
	"strings"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// It provides a reusable way to define what information to extract from text.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "QueryFilters")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected output fields
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // Type hint rendered into the prompt, e.g. ["string"]
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY valid JSON matching this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  \"%s\": %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Only use information present in the text; leave a field null or empty when the text does not mention it.\n")
	sb.WriteString("- Return ONLY the JSON object, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input text:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// QueryFiltersSchema describes the filter document the llm parser asks for.
// Description is filled in by the caller from the prompt template.
func QueryFiltersSchema() ExtractionSchema {
	return ExtractionSchema{
		Name: "QueryFilters",
		Fields: []SchemaField{
			{Name: "intent", Type: `"course_lookup" | "browse_subjects"`, Description: "course_lookup when a subject, course, instructor or term is named", Required: true},
			{Name: "filters", Type: "{...}", Description: "object with the filter fields listed below", Required: true},
			{Name: "filters.subjects", Type: `["string"]`, Description: "upper-case subject codes such as CS or MATH"},
			{Name: "filters.course_numbers", Type: `["string"]`, Description: "exact course numbers, only when a subject is also given"},
			{Name: "filters.course_number_min", Type: "integer", Description: "inclusive lower course number; 2xxx means 2000"},
			{Name: "filters.course_number_max", Type: "integer", Description: "inclusive upper course number; 2xxx means 2999"},
			{Name: "filters.course_levels", Type: `["UG" | "GR"]`, Description: "undergraduate or graduate"},
			{Name: "filters.instructors", Type: `["string"]`, Description: "instructor names as written"},
			{Name: "filters.exclude_instructors", Type: `["string"]`, Description: "instructors the user wants excluded"},
			{Name: "filters.terms", Type: `["string"]`, Description: `"Season YYYY" labels or a bare season such as "Fall"`},
			{Name: "filters.exclude_terms", Type: `["string"]`, Description: "terms the user wants excluded"},
			{Name: "filters.course_title_contains", Type: `["string"]`, Description: "title fragments; every fragment must match"},
			{Name: "filters.gpa_min", Type: "number", Description: "minimum section GPA, 0 to 4"},
			{Name: "filters.gpa_max", Type: "number", Description: "maximum section GPA, 0 to 4"},
			{Name: "filters.credits_min", Type: "integer"},
			{Name: "filters.credits_max", Type: "integer"},
			{Name: "filters.enrollment_min", Type: "integer", Description: "minimum graded enrollment"},
			{Name: "filters.enrollment_max", Type: "integer", Description: "maximum graded enrollment"},
			{Name: "filters.grade_min", Type: `{"A": 0}`, Description: "minimum student count per letter; a bare letter covers its +/- variants"},
			{Name: "filters.grade_max", Type: `{"F": 0}`, Description: `maximum student count per letter; "no Ds or Fs" is {"D": 0, "F": 0}`},
			{Name: "filters.grade_min_percent", Type: `{"A": 40}`, Description: "minimum percent at or above the letter"},
			{Name: "filters.grade_share_min_percent", Type: `{"A": 30}`, Description: "minimum percent with exactly that letter"},
			{Name: "filters.grade_share_max_percent", Type: `{"F": 10}`, Description: "maximum percent with exactly that letter"},
			{Name: "filters.b_or_above_percent_min", Type: "number", Description: "minimum percent at B- or better"},
			{Name: "filters.grade_compare", Type: `[{"left": "A", "right": "B", "op": ">"}]`, Description: "op is one of > < >= <= ="},
			{Name: "sort_by", Type: `"enrollment" | "gpa" | null`, Description: "set for superlatives such as largest or easiest"},
			{Name: "sort_order", Type: `"asc" | "desc" | null`},
			{Name: "limit", Type: "integer | null", Description: "explicit result count such as top 5"},
			{Name: "explanation", Type: `"string"`, Description: "one sentence on how the query was read", Required: true},
		},
	}
}
