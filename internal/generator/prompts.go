package generator

import (
	"fmt"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

const sectionSystemPrompt = "You are an expert research analyst writing one section of a long-form report. Write grounded, citation-rich prose. Never invent sources."

const sectionPromptTemplate = `Write section %s "%s" of a research report on:

**Research Query:** %s

**Chapter Perspective:** %s
%s
%s
**Available Sources:**
%s

**Requirements:**
1. Target length: %d words (%d minimum)
2. Cite sources inline as [Source N] using ONLY the numbered sources listed above
3. Aim for at least one citation per 150 words
4. Analyze from the chapter's perspective; do not restate what previous sections already established
5. Write flowing markdown prose without a heading (the heading is added during assembly)
%s
**Section Content:**`

const executiveSummaryTemplate = `Write the executive summary for a research report on:

**Research Query:** %s

**Report Outline:**
%s

**Research Findings:**
%s

**Available Sources:**
%s

**Requirements:**
1. Target length: %d words
2. Preview the report's main findings and the arc of its chapters
3. Cite sources inline as [Source N] for every substantive claim
4. Write flowing markdown prose without a heading
%s
**Executive Summary:**`

const conclusionTemplate = `Write the conclusion for a research report on:

**Research Query:** %s

**What the Report Established (section by section):**
%s

**Requirements:**
1. Target length: %d words
2. Synthesize across sections; draw conclusions, do not re-summarize section by section
3. Cite sources inline as [Source N] when restating sourced findings
4. Name open questions or limitations where the research left them
5. Write flowing markdown prose without a heading
%s
**Conclusion:**`

// buildPrompt renders the generation prompt for one section. contextBlock is
// the formatted window bundle for body sections, the report outline for the
// executive summary, and the per-section summary digest for the conclusion.
// researchBlock carries the research highlights for the executive summary;
// body sections receive them inside their window bundle instead.
func buildPrompt(query string, spec report.SectionSpec, contextBlock, researchBlock, sourceListing, guidance string, targetWords int) string {
	guidanceBlock := ""
	if guidance != "" {
		guidanceBlock = fmt.Sprintf("\n**Revision Guidance (address every point):**\n%s\n", guidance)
	}

	switch spec.Kind {
	case report.KindExecutiveSummary:
		return fmt.Sprintf(executiveSummaryTemplate,
			query, orPlaceholder(contextBlock, "(outline unavailable)"),
			orPlaceholder(researchBlock, "(no research findings)"),
			sourceListing, targetWords, guidanceBlock)
	case report.KindConclusion:
		return fmt.Sprintf(conclusionTemplate,
			query, orPlaceholder(contextBlock, "(no sections recorded)"),
			targetWords, guidanceBlock)
	}

	specGuidance := ""
	if spec.Guidance != "" {
		specGuidance = fmt.Sprintf("**Section Focus:** %s\n", spec.Guidance)
	}
	ctx := ""
	if contextBlock != "" {
		ctx = contextBlock + "\n"
	}
	return fmt.Sprintf(sectionPromptTemplate,
		spec.FullID(), spec.Title, query,
		spec.Perspective, specGuidance, ctx,
		sourceListing, targetWords, int(float64(targetWords)*0.8),
		guidanceBlock)
}

func orPlaceholder(s, placeholder string) string {
	if strings.TrimSpace(s) == "" {
		return placeholder
	}
	return s
}
