package ai

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/wellspring-io/wellspring/engine"
)

func TestParseSuggestions(t *testing.T) {
	content := `{"suggestions":[
		{"type":"breathing_exercise","score":0.8,"reason":"matches your morning habit"},
		{"type":"meditation","score":1.4,"reason":"clamped"},
		{"type":"","score":0.5,"reason":"dropped"}
	],"confidence":0.75}`

	result, err := parseSuggestions(content, engine.CategoryContent)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 2)
	require.InDelta(t, 0.75, result.Confidence, 1e-9)

	first := result.Suggestions[0]
	require.Equal(t, engine.CategoryContent, first.Category)
	require.Equal(t, engine.SourceAI, first.Source)
	require.Equal(t, engine.PriorityHigh, first.Priority)
	require.InDelta(t, 0.8, first.Score, 1e-9)

	require.Equal(t, 1.0, result.Suggestions[1].Score, "scores above 1 are clamped")
}

func TestParseSuggestionsStripsCodeFence(t *testing.T) {
	content := "```json\n{\"suggestions\":[{\"type\":\"walk\",\"score\":0.5}],\"confidence\":0.6}\n```"
	result, err := parseSuggestions(content, engine.CategoryActivity)
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	require.Equal(t, "walk", result.Suggestions[0].Type)
}

func TestParseSuggestionsMalformed(t *testing.T) {
	_, err := parseSuggestions("not json at all", engine.CategoryContent)
	require.Error(t, err)
}

func TestNewProviderRequiresKey(t *testing.T) {
	_, err := NewProvider(&Config{})
	require.Error(t, err)

	provider, err := NewProvider(&Config{APIKey: "sk-test"})
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", provider.config.ChatModel)
	require.Equal(t, 3, provider.config.MaxRetries)
}
