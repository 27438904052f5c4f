package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractIntoStrictJSON(t *testing.T) {
	var out map[string]string
	ok := ExtractInto(`{"rephrased_text":"Our service delivers"}`, &out)
	require.True(t, ok)
	assert.Equal(t, "Our service delivers", out["rephrased_text"])
}

func TestExtractIntoEmbeddedArray(t *testing.T) {
	text := "Here are some ideas for your tender response:\n" +
		`["person-centred rotas", "digital care plans", "family portal"]` +
		"\nLet me know if you need more."

	var ideas []string
	ok := ExtractInto(text, &ideas)
	require.True(t, ok)
	assert.Equal(t, []string{"person-centred rotas", "digital care plans", "family portal"}, ideas)
}

func TestExtractIntoEmbeddedObjectWithBracesInStrings(t *testing.T) {
	text := `The answer is {"summary":"use {braces} and \"quotes\" safely","word_count":6} as requested.`

	var out struct {
		Summary   string `json:"summary"`
		WordCount int    `json:"word_count"`
	}
	require.True(t, ExtractInto(text, &out))
	assert.Equal(t, `use {braces} and "quotes" safely`, out.Summary)
	assert.Equal(t, 6, out.WordCount)
}

func TestExtractIntoSkipsUnbalancedPrefix(t *testing.T) {
	// A stray opening brace before the real payload must not end the scan.
	text := `note{ unbalanced ... {"tone":"professional"}`

	var out map[string]string
	require.True(t, ExtractInto(text, &out))
	assert.Equal(t, "professional", out["tone"])
}

func TestExtractIntoNoPayload(t *testing.T) {
	var out map[string]string
	assert.False(t, ExtractInto("I could not produce a structured answer.", &out))
	assert.False(t, ExtractInto("", &out))
}

func TestStripThinkTags(t *testing.T) {
	got := StripThinkTags("<think>internal\nreasoning</think>  final answer")
	assert.Equal(t, "final answer", got)
}
