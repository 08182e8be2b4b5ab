package generator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
	"github.com/kpyopark/MMU-RAG-competition/internal/validator"
)

// fixedScorer pins the similarity every validation pair reports.
type fixedScorer struct{ sim float64 }

func (f fixedScorer) Similarity(context.Context, string, string) (float64, error) {
	return f.sim, nil
}

func newController(client llm.Client, sim float64) *Controller {
	cfg := config.DefaultPipeline()
	gen := New(client, testCatalog(), cfg, 0.7)
	return NewController(gen, validator.New(cfg, fixedScorer{sim: sim}), cfg)
}

func goodDraft() llm.Result {
	return llm.Result{Text: cited(400, "[Source 1]", "[Source 2]", "[Source 3]")}
}

func shortDraft() llm.Result {
	return llm.Result{Text: cited(120, "[Source 1]")}
}

func TestControllerAcceptsValidFirstAttempt(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{goodDraft()}}
	ctrl := newController(client, 0.2)

	section, result, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, 1, section.Attempts)
	assert.Empty(t, section.Meta.QualityFlags)
	assert.Len(t, client.calls, 1)
}

func TestControllerRegeneratesAfterDepthFailure(t *testing.T) {
	client := &scriptedClient{responses: []llm.Result{shortDraft(), goodDraft()}}
	ctrl := newController(client, 0.2)

	section, result, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	require.NoError(t, err)

	assert.True(t, result.Valid)
	assert.Equal(t, 2, section.Attempts)
	require.Len(t, client.calls, 2)

	// The retry carries revision guidance with the raised word target.
	retry := client.calls[1].Prompt
	assert.Contains(t, retry, "Revision Guidance")
	assert.Contains(t, retry, "Write at least 480 words")
	assert.Contains(t, section.Meta.RegenerationGuidance, "too short")
}

func TestControllerRegeneratesAfterCitationFailure(t *testing.T) {
	uncited := llm.Result{Text: cited(400)}
	client := &scriptedClient{responses: []llm.Result{uncited, goodDraft()}}
	ctrl := newController(client, 0.2)

	section, _, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, section.Attempts)
	assert.Contains(t, client.calls[1].Prompt, "inline [Source N] citation")
}

func TestControllerRedundancyGuidanceNamesCoveredPoints(t *testing.T) {
	prior := &report.GeneratedSection{
		Spec:      report.SectionSpec{Title: "Background", ChapterNumber: 1, SectionNumber: 1, Kind: report.KindBody},
		Content:   "Prior content.",
		WordCount: 2,
		Summary:   "Energy density doubled. Costs fell sharply.",
	}
	client := &scriptedClient{responses: []llm.Result{goodDraft(), goodDraft()}}
	ctrl := newController(client, 0.9) // every pair looks redundant

	section, result, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, []*report.GeneratedSection{prior})
	require.NoError(t, err)

	// Both attempts fail redundancy; the best one is accepted and flagged.
	assert.False(t, result.Valid)
	assert.Contains(t, section.Meta.QualityFlags, "regeneration exhausted")
	assert.Contains(t, client.calls[1].Prompt, "Already covered: Energy density doubled. Costs fell sharply.")
	assert.Len(t, client.calls, 3)
}

func TestControllerExhaustionKeepsBestAttempt(t *testing.T) {
	// Attempt 1: short and uncited (two failures). Attempts 2-3: only short.
	veryBad := llm.Result{Text: cited(120)}
	client := &scriptedClient{responses: []llm.Result{veryBad, shortDraft(), shortDraft()}}
	ctrl := newController(client, 0.2)

	section, result, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, section.Attempts, "the attempt with fewest failures wins")
	assert.False(t, result.Valid)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, report.FailureTooShort, result.Failures[0].Kind)

	require.NotEmpty(t, section.Meta.QualityFlags)
	assert.Equal(t, "regeneration exhausted", section.Meta.QualityFlags[0])
	assert.Contains(t, section.Meta.QualityFlags[1], "too short")
	assert.Len(t, client.calls, 3, "never more than MaxAttempts generation attempts")
}

func TestControllerFirstAttemptErrorPropagates(t *testing.T) {
	client := &scriptedClient{errs: []error{&llm.TerminalError{Err: errors.New("invalid key")}}}
	ctrl := newController(client, 0.2)

	_, _, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	assert.True(t, llm.IsTerminal(err))
}

func TestControllerLateErrorKeepsEarlierDraft(t *testing.T) {
	client := &scriptedClient{
		responses: []llm.Result{shortDraft()},
		errs:      []error{nil, &llm.TransientError{Err: errors.New("rate limited")}},
	}
	ctrl := newController(client, 0.2)

	section, _, err := ctrl.Generate(context.Background(), Input{Query: "q", Spec: bodySpec()}, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, section.Attempts)
	assert.Contains(t, section.Meta.QualityFlags, "regeneration exhausted")
}
