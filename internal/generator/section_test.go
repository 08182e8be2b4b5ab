package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// scriptedClient replays responses (or errors) call by call and records every
// request it saw.
type scriptedClient struct {
	responses []llm.Result
	errs      []error
	calls     []llm.Request
}

func (s *scriptedClient) Generate(_ context.Context, req llm.Request) (llm.Result, error) {
	i := len(s.calls)
	s.calls = append(s.calls, req)
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Result{}, s.errs[i]
	}
	if i < len(s.responses) {
		return s.responses[i], nil
	}
	return llm.Result{}, fmt.Errorf("unexpected call %d", i)
}

func testCatalog() *report.SourceCatalog {
	c := report.NewSourceCatalog()
	c.Add("https://example.com/a", "A") // Source 1
	c.Add("https://example.com/b", "B") // Source 2
	c.Add("https://example.com/c", "C") // Source 3
	return c
}

// cited builds content of roughly n words carrying the given citation markers.
func cited(n int, markers ...string) string {
	parts := make([]string, 0, n+len(markers))
	for i := 0; i < n; i++ {
		parts = append(parts, fmt.Sprintf("w%d", i))
		if i < len(markers) {
			parts = append(parts, markers[i])
		}
	}
	return strings.Join(parts, " ") + "."
}

func bodySpec() report.SectionSpec {
	return report.SectionSpec{
		Title:           "Current Landscape",
		ChapterNumber:   1,
		SectionNumber:   2,
		Perspective:     "Technical",
		Guidance:        "Survey the current state.",
		TargetWordCount: 400,
		Kind:            report.KindBody,
	}
}

func TestGenerateHappyPath(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{
		{Text: cited(400, "[Source 1]", "[Source 2]", "[Source 3]")},
	}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	section, err := g.Generate(context.Background(), Input{
		Query:        "solid-state batteries",
		Spec:         bodySpec(),
		ContextBlock: "**Previous Sections:**\n[1.1] Background (Full):\ntext",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Source 1", "Source 2", "Source 3"}, section.Citations)
	assert.Zero(t, section.Meta.DroppedCitations)
	assert.Equal(t, 1, section.Attempts)
	assert.InDelta(t, 403, section.WordCount, 5)

	require.Len(t, client.calls, 1)
	prompt := client.calls[0].Prompt
	assert.Contains(t, prompt, "solid-state batteries")
	assert.Contains(t, prompt, "Current Landscape")
	assert.Contains(t, prompt, "1.2")
	assert.Contains(t, prompt, "Survey the current state.")
	assert.Contains(t, prompt, "[Source 1] A (https://example.com/a)")
	assert.Contains(t, prompt, "Target length: 400 words")
}

func TestGenerateStripsUnknownCitations(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{
		{Text: cited(400, "[Source 1]", "[Source 9]", "[Source 2]")},
	}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	section, err := g.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()})
	require.NoError(t, err)

	assert.Equal(t, []string{"Source 1", "Source 2"}, section.Citations)
	assert.Equal(t, 1, section.Meta.DroppedCitations)
	assert.NotContains(t, section.Content, "Source 9")
}

func TestGenerateRetriesTruncatedOutput(t *testing.T) {
	truncated := filler(1600) // at the 2048-token ceiling, no terminator
	client := &scriptedClient{responses: []llm.Result{
		{Text: truncated},
		{Text: cited(350, "[Source 1]", "[Source 2]", "[Source 3]")},
	}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	section, err := g.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()})
	require.NoError(t, err)
	require.Len(t, client.calls, 2)

	// The retry asks for 20% fewer words.
	assert.Contains(t, client.calls[0].Prompt, "Target length: 400 words")
	assert.Contains(t, client.calls[1].Prompt, "Target length: 320 words")
	assert.Equal(t, 1, section.Attempts)
}

func TestGenerateTruncationBudgetExhausted(t *testing.T) {
	truncated := llm.Result{Text: filler(1600)}
	client := &scriptedClient{responses: []llm.Result{truncated, truncated, truncated}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	_, err := g.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()})

	var te *TruncationError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "1.2", te.SectionID)
	assert.Len(t, client.calls, 3)
}

func TestGenerateEmptyOutputIsTerminal(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{{Text: "  \n"}}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	_, err := g.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()})
	assert.True(t, llm.IsTerminal(err))
}

func TestGeneratePropagatesClientErrors(t *testing.T) {
	cause := &llm.TransientError{Err: errors.New("rate limited")}
	client := &scriptedClient{errs: []error{cause}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	_, err := g.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()})
	assert.True(t, llm.IsTransient(err))
	assert.Contains(t, err.Error(), "1.2")
}

func TestGenerateExecutiveSummaryPrompt(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{
		{Text: cited(300, "[Source 1]", "[Source 2]")},
	}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	spec := report.SectionSpec{Title: "Executive Summary", ChapterNumber: 0, SectionNumber: 1, TargetWordCount: 300, Kind: report.KindExecutiveSummary}
	_, err := g.Generate(context.Background(), Input{
		Query:         "q",
		Spec:          spec,
		ContextBlock:  "1. Chapter One\n   1.1 Background",
		ResearchBlock: "### Q\nkey findings",
	})
	require.NoError(t, err)

	prompt := client.calls[0].Prompt
	assert.Contains(t, prompt, "executive summary")
	assert.Contains(t, prompt, "1. Chapter One")
	assert.Contains(t, prompt, "key findings")
}

func TestGenerateConclusionPrompt(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{
		{Text: cited(400, "[Source 1]", "[Source 2]", "[Source 3]")},
	}}
	g := New(client, testCatalog(), config.DefaultPipeline(), 0.7)

	spec := report.SectionSpec{Title: "Conclusion", ChapterNumber: 3, SectionNumber: 1, TargetWordCount: 400, Kind: report.KindConclusion}
	_, err := g.Generate(context.Background(), Input{
		Query:        "q",
		Spec:         spec,
		ContextBlock: "[1.1] Background: summary.",
	})
	require.NoError(t, err)

	prompt := client.calls[0].Prompt
	assert.Contains(t, prompt, "conclusion")
	assert.Contains(t, prompt, "[1.1] Background: summary.")
}
