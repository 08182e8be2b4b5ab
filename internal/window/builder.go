package window

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

const maxHighlightChars = 2000

// Builder assembles the context bundle for one section: full text for the
// most recent K sections, compressed summaries for everything earlier, the
// top cross-section insights, and the research highlights, all under the
// configured token budget.
type Builder struct {
	cfg        config.Pipeline
	compressor *Compressor
}

func NewBuilder(cfg config.Pipeline, compressor *Compressor) *Builder {
	return &Builder{cfg: cfg, compressor: compressor}
}

// Build produces the context for the next section. Sections entering the
// "older" group are compressed here (and their summary attached) before the
// bundle is assembled; the compression cache makes repeat calls cheap, so the
// output is byte-identical for identical inputs.
func (b *Builder) Build(ctx context.Context, completed []*report.GeneratedSection, researchHighlights string) report.ContextSummary {
	highlights := truncateChars(researchHighlights, maxHighlightChars)

	if len(completed) == 0 {
		highlights = truncateChars(highlights, 1000)
		return report.ContextSummary{
			ResearchHighlights: highlights,
			TotalTokens:        EstimateTokens(highlights),
		}
	}

	insights := b.selectInsights(completed)

	k := b.cfg.SlidingWindowSize
	bundle := b.assemble(ctx, completed, insights, highlights, k, false)
	if bundle.WithinBudget(b.cfg.ContextBudgetTokens) {
		return bundle
	}

	// Over budget: one re-compression pass. Shrink the window toward the floor
	// and collapse the older group into a summary-of-summaries.
	k = b.cfg.SlidingWindowFloor
	bundle = b.assemble(ctx, completed, insights, highlights, k, true)
	if !bundle.WithinBudget(b.cfg.ContextBudgetTokens) {
		bundle.Degraded = true
	}
	return bundle
}

func (b *Builder) assemble(ctx context.Context, completed []*report.GeneratedSection, insights []string, highlights string, k int, mergeOlder bool) report.ContextSummary {
	if k < 1 {
		k = 1
	}
	split := len(completed) - k
	if split < 0 {
		split = 0
	}
	older, recent := completed[:split], completed[split:]

	var previous []string

	if len(older) > 0 {
		summaries := make([]string, 0, len(older))
		for _, section := range older {
			if section.Summary == "" {
				section.Summary = b.compressor.Compress(ctx, section)
			}
			summaries = append(summaries, fmt.Sprintf("[%s] %s: %s", section.Spec.FullID(), section.Spec.Title, section.Summary))
		}
		if mergeOlder {
			merged := b.compressor.MergeSummaries(ctx, summaries)
			previous = append(previous, fmt.Sprintf("[Earlier sections, condensed] %s", merged))
		} else {
			previous = append(previous, summaries...)
		}
	}

	for _, section := range recent {
		previous = append(previous, fmt.Sprintf("[%s] %s (Full):\n%s", section.Spec.FullID(), section.Spec.Title, section.Content))
	}

	bundle := report.ContextSummary{
		KeyInsights:        insights,
		PreviousSections:   previous,
		ResearchHighlights: highlights,
	}
	bundle.TotalTokens = estimateBundleTokens(bundle)
	return bundle
}

func estimateBundleTokens(c report.ContextSummary) int {
	total := 0
	for _, insight := range c.KeyInsights {
		total += EstimateTokens(insight)
	}
	for _, section := range c.PreviousSections {
		total += EstimateTokens(section)
	}
	total += EstimateTokens(c.ResearchHighlights)
	return total
}

func truncateChars(s string, limit int) string {
	s = strings.TrimSpace(s)
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}

// insightCandidate is one sentence considered for the cross-section insights.
type insightCandidate struct {
	sectionIdx  int
	sentenceIdx int
	text        string
	tokens      []string
}

// selectInsights picks up to MaxKeyInsights information-dense sentences across
// all section summaries. Selection is greedy on length-normalized novelty
// against the already-selected set; candidates are visited earliest section
// first so ties resolve to the lower section index, and the final list is
// ordered by originating section.
func (b *Builder) selectInsights(completed []*report.GeneratedSection) []string {
	var candidates []insightCandidate
	for i, section := range completed {
		source := section.Summary
		if source == "" {
			source = section.Content
		}
		sentences := SplitSentences(source)
		if len(sentences) > 5 {
			sentences = sentences[:5]
		}
		for j, s := range sentences {
			tokens := contentTokens(s)
			if len(tokens) < 4 {
				continue
			}
			candidates = append(candidates, insightCandidate{
				sectionIdx:  i,
				sentenceIdx: j,
				text:        s,
				tokens:      tokens,
			})
		}
	}

	limit := b.cfg.MaxKeyInsights
	if limit <= 0 {
		limit = 10
	}

	selectedTokens := make(map[string]bool)
	var selected []insightCandidate
	for len(selected) < limit {
		bestIdx := -1
		bestScore := 0.0
		for i, cand := range candidates {
			if cand.text == "" {
				continue
			}
			score := novelty(cand.tokens, selectedTokens)
			// Strict inequality keeps the earliest candidate on ties.
			if score > bestScore {
				bestScore = score
				bestIdx = i
			}
		}
		if bestIdx < 0 || bestScore < 0.3 {
			break
		}
		chosen := candidates[bestIdx]
		selected = append(selected, chosen)
		for _, t := range chosen.tokens {
			selectedTokens[t] = true
		}
		candidates[bestIdx].text = ""
	}

	sort.Slice(selected, func(i, j int) bool {
		if selected[i].sectionIdx == selected[j].sectionIdx {
			return selected[i].sentenceIdx < selected[j].sentenceIdx
		}
		return selected[i].sectionIdx < selected[j].sectionIdx
	})

	out := make([]string, 0, len(selected))
	for _, c := range selected {
		out = append(out, c.text)
	}
	return out
}

// novelty is the fraction of a candidate's distinct tokens not yet covered by
// the selected set.
func novelty(tokens []string, selected map[string]bool) float64 {
	distinct := make(map[string]bool, len(tokens))
	fresh := 0
	for _, t := range tokens {
		if distinct[t] {
			continue
		}
		distinct[t] = true
		if !selected[t] {
			fresh++
		}
	}
	if len(distinct) == 0 {
		return 0
	}
	return float64(fresh) / float64(len(distinct))
}

func contentTokens(s string) []string {
	fields := strings.Fields(strings.ToLower(s))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?()[]\"'`*#")
		if len(f) < 3 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// FormatForPrompt renders the bundle into the prompt block consumed by the
// section generator.
func FormatForPrompt(c report.ContextSummary) string {
	var parts []string

	if len(c.KeyInsights) > 0 {
		parts = append(parts, "**Key Insights from Previous Sections:**")
		for i, insight := range c.KeyInsights {
			parts = append(parts, fmt.Sprintf("%d. %s", i+1, insight))
		}
		parts = append(parts, "")
	}

	if len(c.PreviousSections) > 0 {
		parts = append(parts, "**Previous Sections:**")
		for _, text := range c.PreviousSections {
			parts = append(parts, text, "")
		}
	}

	if c.ResearchHighlights != "" {
		parts = append(parts, "**Research Findings:**", c.ResearchHighlights)
	}

	return strings.Join(parts, "\n")
}
