package parsing

import (
	"context"
	"errors"
	"testing"

	"github.com/jonathan/grade-explorer/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubParser returns a fixed interpretation and counts calls.
type stubParser struct {
	result *types.Interpretation
	err    error
	calls  int
}

func (s *stubParser) Interpret(context.Context, string, types.TermContext) (*types.Interpretation, error) {
	s.calls++
	return s.result, s.err
}

func llmResult() *types.Interpretation {
	return &types.Interpretation{
		Filters:    types.Filters{Subjects: []string{"HIST"}},
		Intent:     types.IntentCourseLookup,
		Confidence: LLMConfidence,
		Debug:      types.Debug{Source: types.SourceLLM, Unrecognized: []string{}},
	}
}

func TestAutoParser(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		fallback     *stubParser
		wantSource   string
		wantCalls    int
		wantConflict bool
	}{
		{
			name:       "confident rule-based result is kept",
			query:      "CS 2104",
			fallback:   &stubParser{result: llmResult()},
			wantSource: types.SourceRuleBased,
			wantCalls:  0,
		},
		{
			name:       "low confidence falls back",
			query:      "stuff about old wars",
			fallback:   &stubParser{result: llmResult()},
			wantSource: types.SourceLLM,
			wantCalls:  1,
		},
		{
			name:         "fallback failure keeps rule-based result",
			query:        "stuff about old wars",
			fallback:     &stubParser{err: &APICallError{Message: "quota"}},
			wantSource:   types.SourceRuleBased,
			wantCalls:    1,
			wantConflict: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auto := &AutoParser{Primary: NewInterpreter(), Fallback: tt.fallback, Threshold: DefaultAutoThreshold}
			got, err := auto.Interpret(context.Background(), tt.query, types.TermContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.wantSource, got.Debug.Source)
			assert.Equal(t, tt.wantCalls, tt.fallback.calls)
			if tt.wantConflict {
				require.NotEmpty(t, got.Debug.Conflicts)
				assert.Contains(t, got.Debug.Conflicts[len(got.Debug.Conflicts)-1], "llm fallback failed")
			}
		})
	}
}

func TestAutoParser_NoFallback(t *testing.T) {
	auto := &AutoParser{Primary: NewInterpreter(), Threshold: DefaultAutoThreshold}
	got, err := auto.Interpret(context.Background(), "hello", types.TermContext{})
	require.NoError(t, err)
	assert.Equal(t, types.SourceRuleBased, got.Debug.Source)
	assert.Zero(t, got.Confidence)
}

func TestAutoParser_PrimaryError(t *testing.T) {
	auto := &AutoParser{Primary: &stubParser{err: errors.New("boom")}, Fallback: &stubParser{result: llmResult()}}
	_, err := auto.Interpret(context.Background(), "x", types.TermContext{})
	assert.Error(t, err)
}

func TestParsers(t *testing.T) {
	rule := NewInterpreter()

	modes := Parsers(rule, nil, DefaultAutoThreshold)
	assert.Len(t, modes, 2)
	assert.Contains(t, modes, types.ModeRuleBased)
	assert.Contains(t, modes, types.ModeAuto)
	assert.NotContains(t, modes, types.ModeLLM)

	fallback := &stubParser{result: llmResult()}
	modes = Parsers(rule, fallback, 0.6)
	require.Len(t, modes, 3)
	assert.Same(t, fallback, modes[types.ModeLLM])
	auto, ok := modes[types.ModeAuto].(*AutoParser)
	require.True(t, ok)
	assert.Equal(t, 0.6, auto.Threshold)
	assert.Same(t, fallback, auto.Fallback)
}
