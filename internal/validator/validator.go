package validator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
	"github.com/kpyopark/MMU-RAG-competition/internal/window"
)

// Validator scores a generated section on depth, citation density, redundancy
// against all prior sections, and coherence with the immediately preceding
// one. All four checks always run; failures are collected, not short-circuited,
// so one regeneration can address several issues.
type Validator struct {
	cfg    config.Pipeline
	scorer Scorer
}

func New(cfg config.Pipeline, scorer Scorer) *Validator {
	if scorer == nil {
		scorer = LexicalScorer{}
	}
	return &Validator{cfg: cfg, scorer: scorer}
}

// Validate runs all quality checks for one section.
func (v *Validator) Validate(ctx context.Context, section *report.GeneratedSection, prior []*report.GeneratedSection) report.ValidationResult {
	result := report.ValidationResult{SectionID: section.Spec.FullID()}

	v.checkDepth(section, &result)
	v.checkCitations(section, &result)
	v.checkRedundancy(ctx, section, prior, &result)
	v.checkCoherence(ctx, section, prior, &result)

	result.Valid = len(result.Failures) == 0
	return result
}

func (v *Validator) checkDepth(section *report.GeneratedSection, result *report.ValidationResult) {
	target := section.Spec.TargetWordCount
	if target <= 0 {
		target = v.cfg.TargetMinWords
	}
	result.DepthScore = float64(section.WordCount) / float64(target)

	switch {
	case section.WordCount < v.cfg.MinWords:
		result.Failures = append(result.Failures, report.FailureReason{
			Kind:    report.FailureTooShort,
			Message: fmt.Sprintf("too short: %d words (minimum %d)", section.WordCount, v.cfg.MinWords),
		})
	case section.WordCount < v.cfg.TargetMinWords:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("below target length: %d words (target %d)", section.WordCount, v.cfg.TargetMinWords))
	case section.WordCount > v.cfg.MaxWordsWarn:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("too long: %d words (soft limit %d)", section.WordCount, v.cfg.MaxWordsWarn))
	}
}

func (v *Validator) checkCitations(section *report.GeneratedSection, result *report.ValidationResult) {
	density := section.CitationDensity()
	result.CitationScore = density

	switch {
	case density < v.cfg.WarnCitationDensity:
		result.Failures = append(result.Failures, report.FailureReason{
			Kind: report.FailureInsufficientCitations,
			Message: fmt.Sprintf("insufficient citations: %d for %d words (density %.2f, minimum %.2f)",
				len(section.Citations), section.WordCount, density, v.cfg.WarnCitationDensity),
		})
	case density < v.cfg.MinCitationDensity:
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("low citation density: %.2f (target %.2f)", density, v.cfg.MinCitationDensity))
	}
}

func (v *Validator) checkRedundancy(ctx context.Context, section *report.GeneratedSection, prior []*report.GeneratedSection, result *report.ValidationResult) {
	maxSim := 0.0
	var mostSimilar *report.GeneratedSection
	for _, prev := range prior {
		sim := v.similarity(ctx, section.Content, prev.Content)
		if sim > maxSim {
			maxSim = sim
			mostSimilar = prev
		}
	}
	result.RedundancyScore = maxSim

	if maxSim > v.cfg.MaxRedundancy && mostSimilar != nil {
		result.Failures = append(result.Failures, report.FailureReason{
			Kind: report.FailureRedundant,
			Message: fmt.Sprintf("redundant: %.0f%% similarity with section %s (threshold %.0f%%)",
				maxSim*100, mostSimilar.Spec.FullID(), v.cfg.MaxRedundancy*100),
			CoveredPoints: coveredPoints(mostSimilar),
		})
	}
}

func (v *Validator) checkCoherence(ctx context.Context, section *report.GeneratedSection, prior []*report.GeneratedSection, result *report.ValidationResult) {
	if len(prior) == 0 {
		result.CoherenceScore = 0.75
		return
	}
	previous := prior[len(prior)-1]
	opening := edgeText(section.Content, true)
	closing := edgeText(previous.Content, false)
	score := v.similarity(ctx, opening, closing)
	result.CoherenceScore = score

	// Coherence is advisory only: it warns but never blocks acceptance.
	if score < v.cfg.MinCoherence {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("weak transition from section %s (coherence %.2f)", previous.Spec.FullID(), score))
	} else if score > v.cfg.MaxCoherence {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("repetitive transition from section %s (coherence %.2f)", previous.Spec.FullID(), score))
	}
}

func (v *Validator) similarity(ctx context.Context, a, b string) float64 {
	sim, err := v.scorer.Similarity(ctx, a, b)
	if err != nil {
		log.Printf("similarity scoring failed, falling back to lexical: %v", err)
		sim, _ = LexicalScorer{}.Similarity(ctx, a, b)
	}
	return sim
}

// coveredPoints names claims already made by the overlapping section so the
// regeneration controller can demand diversification away from them.
func coveredPoints(section *report.GeneratedSection) []string {
	source := section.Summary
	if source == "" {
		source = section.Content
	}
	sentences := window.SplitSentences(source)
	if len(sentences) > 3 {
		sentences = sentences[:3]
	}
	return sentences
}

// edgeText returns the opening (first two sentences) or closing (last two
// sentences) of a section's content.
func edgeText(content string, opening bool) string {
	sentences := window.SplitSentences(content)
	if len(sentences) == 0 {
		return strings.TrimSpace(content)
	}
	if opening {
		if len(sentences) > 2 {
			sentences = sentences[:2]
		}
	} else if len(sentences) > 2 {
		sentences = sentences[len(sentences)-2:]
	}
	return strings.Join(sentences, " ")
}
