package parsing

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jonathan/grade-explorer/internal/llm"
	"github.com/jonathan/grade-explorer/internal/prompts"
	"github.com/jonathan/grade-explorer/internal/schemas"
	"github.com/jonathan/grade-explorer/internal/types"
)

// LLMConfidence is the fixed confidence reported for model interpretations.
const LLMConfidence = 0.7

// LLMParser interprets queries with a language model.
type LLMParser struct {
	client llm.Client
	tier   llm.ModelTier
}

// NewLLMParser creates a parser backed by client.
func NewLLMParser(client llm.Client) *LLMParser {
	return &LLMParser{client: client, tier: llm.TierLite}
}

// llmResponse is the JSON document the model is asked to return.
type llmResponse struct {
	Intent      string        `json:"intent"`
	Filters     types.Filters `json:"filters"`
	SortBy      string        `json:"sort_by"`
	SortOrder   string        `json:"sort_order"`
	Limit       *int          `json:"limit"`
	Explanation string        `json:"explanation"`
}

// Interpret implements Parser.
func (p *LLMParser) Interpret(ctx context.Context, text string, tc types.TermContext) (*types.Interpretation, error) {
	if p.client == nil {
		return nil, &APICallError{Message: "no LLM client configured"}
	}

	prompt := buildInterpretPrompt(text, tc)
	responseText, err := p.client.GenerateJSON(ctx, prompt, p.tier)
	if err != nil {
		return nil, &APICallError{
			Message: "failed to generate filters from LLM",
			Cause:   err,
		}
	}

	resp, err := parseLLMResponse(llm.CleanJSONBlock(responseText))
	if err != nil {
		return nil, err
	}

	filters := resp.Filters
	if filters.Ranking == nil && (resp.SortBy != "" || resp.Limit != nil) {
		filters.Ranking = &types.RankingHint{Order: resp.SortOrder, Limit: resp.Limit, By: resp.SortBy}
	}
	if err := NormalizeFilters(&filters); err != nil {
		return nil, err
	}

	return &types.Interpretation{
		Filters:    filters,
		Intent:     filters.Intent(),
		Confidence: LLMConfidence,
		Debug: types.Debug{
			Source:       types.SourceLLM,
			Unrecognized: []string{},
			RelativeTerm: filters.RelativeTerm,
			Ranking:      filters.Ranking,
			Explanation:  resp.Explanation,
		},
	}, nil
}

// buildInterpretPrompt combines the task template with the field list.
func buildInterpretPrompt(query string, tc types.TermContext) string {
	current := tc.Label()
	if current == "" {
		current = "unknown"
	}
	template := prompts.MustGet("interpreting.json", "interpret-query")
	schema := llm.QueryFiltersSchema()
	schema.Description = prompts.Format(template, map[string]string{
		"CurrentTerm": current,
	})
	return llm.BuildExtractionPrompt(schema, query)
}

// parseLLMResponse validates the model output against the filter schema and
// decodes it.
func parseLLMResponse(jsonText string) (*llmResponse, error) {
	if strings.TrimSpace(jsonText) == "" {
		return nil, &ParseError{Message: "empty response"}
	}
	if err := schemas.ValidateDocument("filter_spec.schema.json", jsonText); err != nil {
		return nil, &ParseError{
			Message: "response does not match filter schema",
			Reply:   replySnippet(jsonText),
			Cause:   err,
		}
	}

	var resp llmResponse
	if err := json.Unmarshal([]byte(jsonText), &resp); err != nil {
		return nil, &ParseError{
			Message: "failed to parse JSON response",
			Reply:   replySnippet(jsonText),
			Cause:   err,
		}
	}
	return &resp, nil
}
