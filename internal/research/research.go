package research

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

const questionsPromptTemplate = `Generate %d focused research questions whose answers together would support a comprehensive report on:

%s

Cover distinct angles; avoid near-duplicates. Respond with one question per line, numbered.`

const investigatePromptTemplate = `Research the following question and answer it with concrete, current facts, figures, and named sources:

%s

Write a dense factual summary; skip preamble and hedging.`

var questionLinePattern = regexp.MustCompile(`^\s*(?:\d+[.)]\s*|-\s*)(.+)$`)

// Researcher runs the grounded investigation phase: it derives research
// questions from the query, answers each with web-grounded generation, and
// registers every returned source in the catalog so later citations resolve.
type Researcher struct {
	client      llm.Client
	cfg         config.Pipeline
	temperature float64
}

func New(client llm.Client, cfg config.Pipeline, temperature float64) *Researcher {
	return &Researcher{client: client, cfg: cfg, temperature: temperature}
}

// Plan derives the research questions for a query. On failure the query
// itself becomes the single question, so research always has something to do.
func (r *Researcher) Plan(ctx context.Context, query string) []string {
	n := r.cfg.ResearchIterations
	if n < 1 {
		n = 1
	}
	res, err := r.client.Generate(ctx, llm.Request{
		Prompt:          fmt.Sprintf(questionsPromptTemplate, n, query),
		Temperature:     r.temperature,
		MaxOutputTokens: 1024,
	})
	if err != nil {
		log.Printf("research question planning failed, falling back to the query: %v", err)
		return []string{query}
	}

	questions := parseQuestions(res.Text, n)
	if len(questions) == 0 {
		return []string{query}
	}
	return questions
}

// Investigate answers each question with grounded generation and returns the
// accumulated highlights, annotated with the catalog identifiers of their
// sources. Individual question failures are logged and skipped; Investigate
// errors only when every question failed.
func (r *Researcher) Investigate(ctx context.Context, questions []string, catalog *report.SourceCatalog) (string, error) {
	var blocks []string
	var lastErr error

	for _, question := range questions {
		if err := ctx.Err(); err != nil {
			return strings.Join(blocks, "\n\n"), err
		}
		res, err := r.client.Generate(ctx, llm.Request{
			Prompt:          fmt.Sprintf(investigatePromptTemplate, question),
			Temperature:     r.temperature,
			MaxOutputTokens: 2048,
			Grounded:        true,
		})
		if err != nil {
			log.Printf("research question failed, skipping: %v", err)
			lastErr = err
			continue
		}

		var ids []string
		for _, c := range res.Citations {
			if id := catalog.Add(c.URL, c.Title); id != "" {
				ids = append(ids, fmt.Sprintf("[%s]", id))
			}
		}

		block := fmt.Sprintf("### %s\n%s", question, strings.TrimSpace(res.Text))
		if len(ids) > 0 {
			block += "\nSources: " + strings.Join(ids, " ")
		}
		blocks = append(blocks, block)
	}

	if len(blocks) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("no research questions to investigate")
		}
		return "", fmt.Errorf("research produced no findings: %w", lastErr)
	}
	return strings.Join(blocks, "\n\n"), nil
}

// parseQuestions extracts up to limit questions from a numbered or bulleted
// response, tolerating surrounding prose.
func parseQuestions(text string, limit int) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		m := questionLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		q := strings.TrimSpace(m[1])
		if q == "" {
			continue
		}
		out = append(out, q)
		if len(out) == limit {
			break
		}
	}
	return out
}
