package window

import (
	"math"
	"strings"
)

// tokensPerWord is the average token/word ratio for English text.
const tokensPerWord = 1.3

// EstimateTokens estimates the token cost of text from its word count.
func EstimateTokens(text string) int {
	n := len(strings.Fields(text))
	if n == 0 {
		return 0
	}
	return int(math.Ceil(float64(n) * tokensPerWord))
}

// SplitSentences splits text into trimmed sentences on terminal punctuation.
func SplitSentences(text string) []string {
	var out []string
	var sb strings.Builder
	runes := []rune(strings.TrimSpace(text))
	for i, r := range runes {
		sb.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			atEnd := i == len(runes)-1
			if atEnd || runes[i+1] == ' ' || runes[i+1] == '\n' {
				s := strings.TrimSpace(sb.String())
				if s != "" {
					out = append(out, s)
				}
				sb.Reset()
			}
		}
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		out = append(out, s)
	}
	return out
}

// TruncateToTokens returns a prefix of text whose estimated token count fits
// the ceiling, preferring whole-sentence boundaries.
func TruncateToTokens(text string, ceiling int) string {
	if ceiling <= 0 || EstimateTokens(text) <= ceiling {
		return strings.TrimSpace(text)
	}

	var sb strings.Builder
	for _, sentence := range SplitSentences(text) {
		candidate := strings.TrimSpace(sb.String() + " " + sentence)
		if EstimateTokens(candidate) > ceiling {
			break
		}
		sb.Reset()
		sb.WriteString(candidate)
	}
	if sb.Len() > 0 {
		return sb.String()
	}

	// First sentence alone exceeds the ceiling: fall back to a word cut.
	words := strings.Fields(text)
	keep := int(float64(ceiling) / tokensPerWord)
	if keep <= 0 {
		keep = 1
	}
	if keep > len(words) {
		keep = len(words)
	}
	return strings.Join(words[:keep], " ")
}
