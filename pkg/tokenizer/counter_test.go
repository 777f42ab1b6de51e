package tokenizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metronai/costmeter/pkg/tokenizer"
)

func TestCount_OpenAI(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		model    string
		minCount int64
		maxCount int64
	}{
		{"short text gpt-4o", "Hello world", "gpt-4o", 1, 5},
		{"medium text gpt-4o", "The quick brown fox jumps over the lazy dog", "gpt-4o", 5, 15},
		{"empty text", "", "gpt-4o", 0, 0},
		{"gpt-4", "Hello world", "gpt-4", 1, 5},
		{"dated snapshot uses base encoding", "Hello world", "gpt-4o-mini-2024-07-18", 1, 5},
		{"unknown openai model falls back", "Hello world", "gpt-99", 1, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, err := tokenizer.Count(tt.text, "openai", tt.model)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, count, tt.minCount)
			assert.LessOrEqual(t, count, tt.maxCount)
		})
	}
}

func TestCount_Anthropic_Estimation(t *testing.T) {
	text := "Hello, this is a test message for token counting."
	count, err := tokenizer.Count(text, "anthropic", "claude-sonnet-3.5")
	require.NoError(t, err)

	expected := int64((len(text) + 3) / 4)
	assert.Equal(t, expected, count)
}

func TestCount_BlankText(t *testing.T) {
	count, err := tokenizer.Count("   ", "anthropic", "claude-sonnet-3.5")
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestCountPair(t *testing.T) {
	in, out, err := tokenizer.CountPair(
		"What is the capital of France?",
		"The capital of France is Paris.",
		"openai", "gpt-4o",
	)
	require.NoError(t, err)
	assert.Greater(t, in, int64(0))
	assert.Greater(t, out, int64(0))
}

func BenchmarkCount_OpenAI(b *testing.B) {
	text := "The quick brown fox jumps over the lazy dog."
	for i := 0; i < b.N; i++ {
		_, _ = tokenizer.Count(text, "openai", "gpt-4o")
	}
}
