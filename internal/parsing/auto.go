package parsing

import (
	"context"
	"fmt"
	"log"

	"github.com/jonathan/grade-explorer/internal/types"
)

// DefaultAutoThreshold is the confidence below which auto mode asks the
// fallback parser.
const DefaultAutoThreshold = 0.5

// AutoParser runs the rule-based parser first and falls back to another
// parser when the result is not confident enough.
type AutoParser struct {
	Primary   Parser
	Fallback  Parser
	Threshold float64
}

// Interpret implements Parser. A failing fallback never fails the query:
// the primary result is kept and the failure recorded as a conflict.
func (a *AutoParser) Interpret(ctx context.Context, text string, tc types.TermContext) (*types.Interpretation, error) {
	primary, err := a.Primary.Interpret(ctx, text, tc)
	if err != nil {
		return nil, err
	}
	if a.Fallback == nil || primary.Confidence >= a.Threshold {
		return primary, nil
	}

	fallback, err := a.Fallback.Interpret(ctx, text, tc)
	if err != nil {
		log.Printf("auto parser: fallback failed for %q: %v", text, err)
		primary.Debug.Conflicts = append(primary.Debug.Conflicts, fmt.Sprintf("llm fallback failed: %v", err))
		return primary, nil
	}
	return fallback, nil
}

// Parsers builds the mode table used by the pipeline. llmParser may be nil,
// in which case the llm mode is absent and auto never falls back.
func Parsers(rule *Interpreter, llmParser Parser, threshold float64) map[string]Parser {
	modes := map[string]Parser{
		types.ModeRuleBased: rule,
	}
	auto := &AutoParser{Primary: rule, Threshold: threshold}
	if llmParser != nil {
		modes[types.ModeLLM] = llmParser
		auto.Fallback = llmParser
	}
	modes[types.ModeAuto] = auto
	return modes
}
