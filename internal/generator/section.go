package generator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// maxTruncationRetries bounds the shrink-and-retry loop for outputs cut off by
// the token ceiling. Each retry lowers the target length by 20%.
const maxTruncationRetries = 2

// TruncationError reports output that still appeared cut off mid-sentence
// after the retry budget was spent.
type TruncationError struct {
	SectionID string
}

func (e *TruncationError) Error() string {
	return fmt.Sprintf("section %s: output truncated at token ceiling after %d retries", e.SectionID, maxTruncationRetries)
}

// Input is everything one generation attempt needs. ContextBlock is the
// formatted window bundle for body sections, the report outline for the
// executive summary, and the section digest for the conclusion.
type Input struct {
	Query         string
	Spec          report.SectionSpec
	ContextBlock  string
	ResearchBlock string
	// Guidance carries the regeneration controller's revision instructions;
	// empty on the first attempt.
	Guidance string
	// TargetWords overrides the spec's target when positive (the controller
	// raises it after a depth failure).
	TargetWords     int
	DegradedContext bool
}

// Generator produces the content for one section from its spec and context
// bundle, extracting and resolving citations against the source catalog.
type Generator struct {
	client      llm.Client
	catalog     *report.SourceCatalog
	cfg         config.Pipeline
	temperature float64
}

func New(client llm.Client, catalog *report.SourceCatalog, cfg config.Pipeline, temperature float64) *Generator {
	return &Generator{client: client, catalog: catalog, cfg: cfg, temperature: temperature}
}

// Generate runs one generation attempt. Truncated output is retried internally
// with a 20% shorter target; other failures return an error for the caller to
// classify via llm.IsTransient / llm.IsTerminal.
func (g *Generator) Generate(ctx context.Context, in Input) (*report.GeneratedSection, error) {
	target := in.TargetWords
	if target <= 0 {
		target = in.Spec.TargetWordCount
	}
	if target <= 0 {
		target = g.cfg.TargetMinWords
	}
	maxTokens := in.Spec.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = g.cfg.MaxOutputTokens
	}

	start := time.Now()
	var text string
	for retry := 0; ; retry++ {
		prompt := buildPrompt(in.Query, in.Spec, in.ContextBlock, in.ResearchBlock, g.catalog.PromptListing(), in.Guidance, target)
		res, err := g.client.Generate(ctx, llm.Request{
			Prompt:          prompt,
			SystemPrompt:    sectionSystemPrompt,
			Temperature:     g.temperature,
			MaxOutputTokens: maxTokens,
		})
		if err != nil {
			return nil, fmt.Errorf("generate section %s: %w", in.Spec.FullID(), err)
		}
		text = strings.TrimSpace(res.Text)
		if text == "" {
			return nil, &llm.TerminalError{Err: fmt.Errorf("empty output for section %s", in.Spec.FullID())}
		}
		if !looksTruncated(text, maxTokens) {
			break
		}
		if retry >= maxTruncationRetries {
			return nil, &TruncationError{SectionID: in.Spec.FullID()}
		}
		target = target * 80 / 100
	}

	content, citations, dropped := ResolveCitations(text, g.catalog)
	content = strings.TrimSpace(content)

	return &report.GeneratedSection{
		Spec:           in.Spec,
		Content:        content,
		WordCount:      report.CountWords(content),
		Citations:      citations,
		GenerationTime: time.Since(start),
		Attempts:       1,
		Meta: report.SectionMeta{
			DegradedContext:      in.DegradedContext,
			DroppedCitations:     dropped,
			RegenerationGuidance: in.Guidance,
		},
	}, nil
}
