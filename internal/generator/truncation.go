package generator

import (
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/window"
)

// sentenceClosers are the runes a complete markdown section can plausibly end
// on. A code fence or list can legitimately end without one, so the terminal
// check alone never flags truncation; it must coincide with a near-ceiling
// output length.
const sentenceClosers = ".!?\"'`)]:*"

// looksTruncated reports whether output was likely cut off by the token
// ceiling: the estimated length sits at or above the ceiling and the text does
// not end on a sentence boundary.
func looksTruncated(text string, ceilingTokens int) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || ceilingTokens <= 0 {
		return false
	}
	// Token estimation is approximate, so treat anything within 5% of the
	// ceiling as at-ceiling.
	if window.EstimateTokens(trimmed) < ceilingTokens*95/100 {
		return false
	}
	last := trimmed[len(trimmed)-1]
	return !strings.ContainsRune(sentenceClosers, rune(last))
}
