package window

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("   \n\t"))
	assert.Equal(t, 2, EstimateTokens("one"))          // ceil(1 * 1.3)
	assert.Equal(t, 13, EstimateTokens(words(10)))     // 10 * 1.3
	assert.Equal(t, 131, EstimateTokens(words(100)))   // ceil(100 * 1.3)
	assert.Equal(t, 1300, EstimateTokens(words(1000))) // exact
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", nil},
		{"single", "One sentence.", []string{"One sentence."}},
		{
			"multiple terminators",
			"First. Second! Third? Fourth.",
			[]string{"First.", "Second!", "Third?", "Fourth."},
		},
		{
			"decimal points are not boundaries",
			"Growth was 3.5 percent. Impressive.",
			[]string{"Growth was 3.5 percent.", "Impressive."},
		},
		{
			"newline after terminator",
			"First line.\nSecond line.",
			[]string{"First line.", "Second line."},
		},
		{
			"trailing fragment without terminator",
			"Complete. Trailing fragment",
			[]string{"Complete.", "Trailing fragment"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitSentences(tt.in))
		})
	}
}

func TestTruncateToTokens(t *testing.T) {
	t.Run("under ceiling is untouched", func(t *testing.T) {
		text := "Short text. Stays whole."
		assert.Equal(t, text, TruncateToTokens(text, 100))
	})

	t.Run("cuts on sentence boundary", func(t *testing.T) {
		first := words(20) + "."
		second := words(20) + "."
		got := TruncateToTokens(first+" "+second, 30)
		assert.Equal(t, first, got)
	})

	t.Run("word cut when first sentence exceeds ceiling", func(t *testing.T) {
		text := words(100) + "."
		got := TruncateToTokens(text, 13)
		n := len(strings.Fields(got))
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, EstimateTokens(got), 13)
	})

	t.Run("result always fits ceiling", func(t *testing.T) {
		text := words(50) + ". " + words(50) + ". " + words(50) + "."
		for _, ceiling := range []int{10, 40, 70, 200} {
			got := TruncateToTokens(text, ceiling)
			assert.LessOrEqual(t, EstimateTokens(got), ceiling, "ceiling %d", ceiling)
		}
	})
}

// words builds deterministic filler text of n words.
func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "word"
	}
	return strings.Join(parts, " ")
}
