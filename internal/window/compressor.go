package window

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

const compressionPrompt = `Compress the following report section into a concise summary of at most %d tokens (~%d words).

**Section:** %s (%s)
**Perspective:** %s
**Word Count:** %d words

**Full Content:**
%s

**Instructions:**
1. Extract 3-5 key insights or findings
2. Preserve critical facts, numbers, and named entities
3. Remove verbose explanations and redundant content
4. Maintain technical accuracy

**Compressed Summary:**`

const mergePrompt = `Merge the following section summaries into one combined summary of at most %d tokens. Preserve the most important facts, numbers, and named entities from each.

**Summaries:**
%s

**Combined Summary:**`

// Compressor reduces finished sections to short, fact-preserving summaries.
// Results are cached by content fingerprint, so compressing the same section
// twice returns the identical string. A compression failure never propagates:
// the fallback is a leading-sentence truncation under the same ceiling.
type Compressor struct {
	client  llm.Client
	cache   Cache
	ceiling int
}

func NewCompressor(client llm.Client, cache Cache, ceilingTokens int) *Compressor {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &Compressor{client: client, cache: cache, ceiling: ceilingTokens}
}

// Compress returns a summary of the section within the token ceiling.
func (c *Compressor) Compress(ctx context.Context, section *report.GeneratedSection) string {
	key := Fingerprint(section.Spec.Title, section.Content)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	prompt := fmt.Sprintf(compressionPrompt,
		c.ceiling, int(float64(c.ceiling)/tokensPerWord),
		section.Spec.Title, section.Spec.FullID(),
		section.Spec.Perspective,
		section.WordCount,
		section.Content,
	)
	summary := c.generateOrFallback(ctx, prompt, section.Content, section.Spec.FullID())
	c.cache.Put(key, summary)
	return summary
}

// MergeSummaries compresses a group of summaries into a single block (the
// summary-of-summaries used when the context budget is exceeded).
func (c *Compressor) MergeSummaries(ctx context.Context, summaries []string) string {
	joined := strings.Join(summaries, "\n")
	key := Fingerprint("merged", joined)
	if cached, ok := c.cache.Get(key); ok {
		return cached
	}

	prompt := fmt.Sprintf(mergePrompt, c.ceiling, joined)
	merged := c.generateOrFallback(ctx, prompt, joined, "merged")
	c.cache.Put(key, merged)
	return merged
}

func (c *Compressor) generateOrFallback(ctx context.Context, prompt, original, label string) string {
	res, err := c.client.Generate(ctx, llm.Request{
		Prompt:          prompt,
		SystemPrompt:    "You are a concise summarization expert. Output summaries only.",
		Temperature:     0.2,
		MaxOutputTokens: c.ceiling + 64,
	})
	if err != nil || strings.TrimSpace(res.Text) == "" {
		log.Printf("compression failed for %s, using truncation fallback: %v", label, err)
		return TruncateToTokens(original, c.ceiling)
	}
	return TruncateToTokens(res.Text, c.ceiling)
}
