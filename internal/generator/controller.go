package generator

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
	"github.com/kpyopark/MMU-RAG-competition/internal/validator"
)

// Controller wraps the generator with quality-gated regeneration: validate,
// derive targeted revision guidance from the failures, and retry, up to
// MaxAttempts total attempts per section. When the budget is exhausted, the
// attempt with the fewest failures is accepted and flagged rather than lost.
type Controller struct {
	gen *Generator
	val *validator.Validator
	cfg config.Pipeline
}

func NewController(gen *Generator, val *validator.Validator, cfg config.Pipeline) *Controller {
	return &Controller{gen: gen, val: val, cfg: cfg}
}

// Generate produces an accepted section. The returned ValidationResult is the
// one for the returned section, so callers can surface its warnings.
func (c *Controller) Generate(ctx context.Context, in Input, prior []*report.GeneratedSection) (*report.GeneratedSection, report.ValidationResult, error) {
	maxAttempts := c.cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var best *report.GeneratedSection
	var bestResult report.ValidationResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		section, err := c.gen.Generate(ctx, in)
		if err != nil {
			// A late-attempt failure must not discard an earlier usable draft.
			if best != nil {
				log.Printf("section %s: attempt %d failed (%v), keeping attempt %d", in.Spec.FullID(), attempt, err, best.Attempts)
				break
			}
			return nil, report.ValidationResult{}, err
		}
		section.Attempts = attempt

		result := c.val.Validate(ctx, section, prior)
		if result.Valid {
			return section, result, nil
		}

		if best == nil || len(result.Failures) < len(bestResult.Failures) {
			best, bestResult = section, result
		}
		if attempt < maxAttempts {
			in.Guidance, in.TargetWords = reviseGuidance(result.Failures, currentTarget(in, c.cfg))
			log.Printf("section %s: attempt %d rejected (%s), regenerating", in.Spec.FullID(), attempt, strings.Join(result.FailureMessages(), "; "))
		}
	}

	best.Meta.QualityFlags = append(best.Meta.QualityFlags, "regeneration exhausted")
	best.Meta.QualityFlags = append(best.Meta.QualityFlags, bestResult.FailureMessages()...)
	return best, bestResult, nil
}

func currentTarget(in Input, cfg config.Pipeline) int {
	if in.TargetWords > 0 {
		return in.TargetWords
	}
	if in.Spec.TargetWordCount > 0 {
		return in.Spec.TargetWordCount
	}
	return cfg.TargetMinWords
}

// reviseGuidance translates validation failures into revision instructions for
// the next attempt. A depth failure also raises the word target by 20%.
func reviseGuidance(failures []report.FailureReason, target int) (string, int) {
	var lines []string
	for _, f := range failures {
		switch f.Kind {
		case report.FailureTooShort:
			target = target * 120 / 100
			lines = append(lines, fmt.Sprintf("The previous draft was too short. Write at least %d words, deepening the analysis with concrete evidence and examples.", target))
		case report.FailureInsufficientCitations:
			lines = append(lines, "The previous draft cited too few sources. Support every substantive claim with an inline [Source N] citation from the listed sources, at least one per 150 words.")
		case report.FailureRedundant:
			line := "The previous draft repeated material already covered elsewhere in the report."
			if len(f.CoveredPoints) > 0 {
				line += " Already covered: " + strings.Join(f.CoveredPoints, " ")
			}
			line += " Bring new evidence and analyze strictly from this chapter's perspective."
			lines = append(lines, line)
		default:
			lines = append(lines, f.Message)
		}
	}
	return strings.Join(lines, "\n"), target
}
