package planner

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

const (
	minChapters        = 2
	maxChapters        = 8
	minChapterSections = 3
	maxChapterSections = 5
	minTargetWords     = 300
	maxTargetWords     = 500
	defaultTargetWords = 400
)

const plannerSystemPrompt = "You are a research report architect. Respond with JSON only, no prose, no code fences."

const outlinePromptTemplate = `Design the chapter outline for a research report.

**Research Query:** %s

**Analytical Perspectives (one chapter each, in this order):**
%s

**Research Findings:**
%s

Respond with ONLY a JSON object of this shape:
{
  "title": "Report title",
  "chapters": [
    {
      "title": "Chapter title",
      "perspective": "Analytical perspective",
      "sections": [
        {"title": "Section title", "guidance": "what this section must establish", "target_words": 400}
      ]
    }
  ]
}

Rules:
1. Exactly %d chapters, one per listed perspective, in the listed order
2. 3 to 5 sections per chapter
3. target_words between 300 and 500
4. Section titles must not overlap across chapters`

const repairPromptTemplate = `Your previous outline was rejected:

%s

Previous output:
%s

Produce a corrected JSON outline following the same shape and rules. Respond with ONLY the JSON object.`

// PlanningError reports that no usable outline could be produced and the
// fallback structure was also unavailable.
type PlanningError struct {
	Err error
}

func (e *PlanningError) Error() string { return fmt.Sprintf("planning failed: %v", e.Err) }
func (e *PlanningError) Unwrap() error { return e.Err }

// Planner turns a research query into the immutable report structure:
// perspectives are scored from the query and research findings, an LLM drafts
// the chapter outline, and the result is normalized until every structural
// invariant holds.
type Planner struct {
	client      llm.Client
	cfg         config.Pipeline
	temperature float64
}

func New(client llm.Client, cfg config.Pipeline, temperature float64) *Planner {
	return &Planner{client: client, cfg: cfg, temperature: temperature}
}

// Plan produces the report structure for a query. An invalid LLM outline gets
// one repair round trip; if that also fails the deterministic default
// structure is used, so planning degrades rather than aborts.
func (p *Planner) Plan(ctx context.Context, query, researchHighlights string) (*report.Structure, error) {
	perspectives := scorePerspectives(query, researchHighlights)

	o, err := p.generateOutline(ctx, query, perspectives, researchHighlights)
	if err != nil {
		if llm.IsTerminal(err) || ctx.Err() != nil {
			return nil, &PlanningError{Err: err}
		}
		log.Printf("outline generation failed, using default structure: %v", err)
		o = defaultOutline(query, perspectives)
	}

	return buildStructure(query, o, perspectives), nil
}

func (p *Planner) generateOutline(ctx context.Context, query string, perspectives []Perspective, researchHighlights string) (*outline, error) {
	var lines []string
	for i, persp := range perspectives {
		lines = append(lines, fmt.Sprintf("%d. %s (relevance %.1f)", i+1, persp.Name, persp.Score))
	}
	findings := strings.TrimSpace(researchHighlights)
	if findings == "" {
		findings = "(none yet)"
	}
	prompt := fmt.Sprintf(outlinePromptTemplate, query, strings.Join(lines, "\n"), findings, len(perspectives))

	res, err := p.client.Generate(ctx, llm.Request{
		Prompt:          prompt,
		SystemPrompt:    plannerSystemPrompt,
		Temperature:     p.temperature,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		return nil, err
	}

	o, parseErr := parseOutline(res.Text)
	if parseErr == nil {
		return o, nil
	}

	// One repair attempt: feed the validation error back.
	repair, err := p.client.Generate(ctx, llm.Request{
		Prompt:          fmt.Sprintf(repairPromptTemplate, parseErr.Error(), res.Text),
		SystemPrompt:    plannerSystemPrompt,
		Temperature:     p.temperature,
		MaxOutputTokens: 2048,
	})
	if err != nil {
		return nil, err
	}
	return parseOutline(repair.Text)
}

// buildStructure normalizes an outline into the final Structure: chapter count
// clamped to [2,8], 3-5 sections per chapter, word targets clamped to
// [300,500], and the two framing sections attached.
func buildStructure(query string, o *outline, perspectives []Perspective) *report.Structure {
	chapters := o.Chapters
	if len(chapters) > maxChapters {
		chapters = chapters[:maxChapters]
	}
	for len(chapters) < minChapters {
		chapters = append(chapters, defaultOutline(query, perspectives).Chapters[len(chapters)])
	}

	st := &report.Structure{CreatedAt: time.Now()}
	for i, ch := range chapters {
		chapter := report.Chapter{
			Title:         strings.TrimSpace(ch.Title),
			Perspective:   strings.TrimSpace(ch.Perspective),
			ChapterNumber: i + 1,
		}
		if chapter.Perspective == "" && i < len(perspectives) {
			chapter.Perspective = perspectives[i].Name
		}

		sections := ch.Sections
		if len(sections) > maxChapterSections {
			sections = sections[:maxChapterSections]
		}
		for len(sections) < minChapterSections {
			sections = append(sections, paddingSection(chapter, len(sections)))
		}

		for j, sec := range sections {
			chapter.Sections = append(chapter.Sections, report.SectionSpec{
				Title:           strings.TrimSpace(sec.Title),
				ChapterNumber:   i + 1,
				SectionNumber:   j + 1,
				Perspective:     chapter.Perspective,
				Guidance:        strings.TrimSpace(sec.Guidance),
				TargetWordCount: clampTarget(sec.TargetWords),
				Kind:            report.KindBody,
			})
		}
		st.Chapters = append(st.Chapters, chapter)
	}

	st.ExecutiveSummary = report.SectionSpec{
		Title:           "Executive Summary",
		ChapterNumber:   0,
		SectionNumber:   1,
		Perspective:     "Synthesis",
		TargetWordCount: minTargetWords,
		Kind:            report.KindExecutiveSummary,
	}
	st.Conclusion = report.SectionSpec{
		Title:           "Conclusion",
		ChapterNumber:   len(st.Chapters) + 1,
		SectionNumber:   1,
		Perspective:     "Synthesis",
		TargetWordCount: defaultTargetWords,
		Kind:            report.KindConclusion,
	}

	total := st.ExecutiveSummary.TargetWordCount + st.Conclusion.TargetWordCount
	for _, ch := range st.Chapters {
		total += ch.TotalTargetWords()
	}
	st.EstimatedWordCount = total
	return st
}

// paddingSection fills a chapter up to the three-section minimum.
func paddingSection(chapter report.Chapter, existing int) outlineSection {
	titles := []string{"Key Considerations", "Supporting Evidence", "Open Questions"}
	title := titles[existing%len(titles)]
	return outlineSection{
		Title:       title,
		Guidance:    fmt.Sprintf("Deepen the %s angle of %q beyond the preceding sections.", chapter.Perspective, chapter.Title),
		TargetWords: defaultTargetWords,
	}
}

func clampTarget(words int) int {
	if words <= 0 {
		return defaultTargetWords
	}
	if words < minTargetWords {
		return minTargetWords
	}
	if words > maxTargetWords {
		return maxTargetWords
	}
	return words
}
