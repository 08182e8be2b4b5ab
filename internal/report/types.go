package report

import (
	"fmt"
	"strings"
	"time"
)

// SectionKind distinguishes regular chapter sections from the two framing
// sections that every report carries.
type SectionKind string

const (
	KindExecutiveSummary SectionKind = "executive_summary"
	KindBody             SectionKind = "body"
	KindConclusion       SectionKind = "conclusion"
)

// SectionSpec is the immutable plan for one section: what to write, from which
// analytical perspective, and under which length constraints.
type SectionSpec struct {
	Title           string      `json:"title"`
	ChapterNumber   int         `json:"chapter_number"`
	SectionNumber   int         `json:"section_number"`
	Perspective     string      `json:"perspective"`
	Guidance        string      `json:"guidance"`
	TargetWordCount int         `json:"target_word_count"`
	MaxOutputTokens int         `json:"max_output_tokens"`
	Kind            SectionKind `json:"kind"`
}

// FullID returns the "chapter.section" identifier, e.g. "2.3".
func (s SectionSpec) FullID() string {
	return fmt.Sprintf("%d.%d", s.ChapterNumber, s.SectionNumber)
}

// Chapter groups 3-5 sections under one analytical perspective.
type Chapter struct {
	Title         string        `json:"title"`
	Perspective   string        `json:"perspective"`
	ChapterNumber int           `json:"chapter_number"`
	Sections      []SectionSpec `json:"sections"`
}

// TotalTargetWords sums the section targets for this chapter.
func (c Chapter) TotalTargetWords() int {
	total := 0
	for _, s := range c.Sections {
		total += s.TargetWordCount
	}
	return total
}

// Structure is the complete report outline. It is created once by the planner
// and never mutated afterwards.
type Structure struct {
	ExecutiveSummary   SectionSpec `json:"executive_summary"`
	Chapters           []Chapter   `json:"chapters"`
	Conclusion         SectionSpec `json:"conclusion"`
	EstimatedWordCount int         `json:"estimated_word_count"`
	CreatedAt          time.Time   `json:"created_at"`
}

// TotalSections counts every section including executive summary and conclusion.
func (st *Structure) TotalSections() int {
	n := 2
	for _, ch := range st.Chapters {
		n += len(ch.Sections)
	}
	return n
}

// AllSections returns the specs in generation order: executive summary first,
// chapter sections in document order, conclusion last.
func (st *Structure) AllSections() []SectionSpec {
	out := make([]SectionSpec, 0, st.TotalSections())
	out = append(out, st.ExecutiveSummary)
	for _, ch := range st.Chapters {
		out = append(out, ch.Sections...)
	}
	out = append(out, st.Conclusion)
	return out
}

// ChapterTitle resolves a chapter number to its display title.
func (st *Structure) ChapterTitle(chapterNumber int) string {
	if chapterNumber == 0 {
		return "Executive Summary"
	}
	for _, ch := range st.Chapters {
		if ch.ChapterNumber == chapterNumber {
			return ch.Title
		}
	}
	return "Conclusion"
}

// SectionMeta carries per-section quality and provenance flags. The pipeline
// never drops user-visible content silently; every degradation lands here.
type SectionMeta struct {
	DegradedContext      bool     `json:"degraded_context,omitempty"`
	DroppedCitations     int      `json:"dropped_citations,omitempty"`
	QualityFlags         []string `json:"quality_flags,omitempty"`
	RegenerationGuidance string   `json:"regeneration_guidance,omitempty"`
}

// GeneratedSection is the produced content for one SectionSpec. It is created
// by the content generator, possibly replaced by the regeneration controller,
// and finalized when the compressor attaches its summary.
type GeneratedSection struct {
	Spec           SectionSpec   `json:"spec"`
	Content        string        `json:"content"`
	WordCount      int           `json:"word_count"`
	Citations      []string      `json:"citations"`
	Summary        string        `json:"summary"`
	GenerationTime time.Duration `json:"generation_time"`
	Attempts       int           `json:"attempts"`
	Meta           SectionMeta   `json:"meta"`
}

// CitationDensity returns citations per 150 words. The clean-pass target is 1.0.
func (g *GeneratedSection) CitationDensity() float64 {
	if g.WordCount == 0 {
		return 0
	}
	return float64(len(g.Citations)) / float64(g.WordCount) * 150
}

// ContextSummary is the bundle fed into the generator for one section. It is
// ephemeral: rebuilt from the section history for every iteration.
type ContextSummary struct {
	KeyInsights        []string
	PreviousSections   []string
	ResearchHighlights string
	TotalTokens        int
	Degraded           bool
}

// WithinBudget reports whether the estimated token cost fits the given budget.
func (c ContextSummary) WithinBudget(budgetTokens int) bool {
	return c.TotalTokens <= budgetTokens
}

// FailureKind identifies a validation failure category so the regeneration
// controller can derive a targeted instruction from it.
type FailureKind string

const (
	FailureTooShort              FailureKind = "too_short"
	FailureInsufficientCitations FailureKind = "insufficient_citations"
	FailureRedundant             FailureKind = "redundant"
)

// FailureReason is one actionable validation failure.
type FailureReason struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message"`
	// CoveredPoints names the already-covered claims that a redundant section
	// must diversify away from. Empty for other kinds.
	CoveredPoints []string `json:"covered_points,omitempty"`
}

// ValidationResult is the outcome of all four quality checks for one section.
// Failures block acceptance; warnings are advisory.
type ValidationResult struct {
	SectionID       string          `json:"section_id"`
	Valid           bool            `json:"valid"`
	Failures        []FailureReason `json:"failures,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	DepthScore      float64         `json:"depth_score"`
	CitationScore   float64         `json:"citation_score"`
	RedundancyScore float64         `json:"redundancy_score"`
	CoherenceScore  float64         `json:"coherence_score"`
}

// FailureMessages returns the human-readable failure reasons in order.
func (v ValidationResult) FailureMessages() []string {
	out := make([]string, 0, len(v.Failures))
	for _, f := range v.Failures {
		out = append(out, f.Message)
	}
	return out
}

// CountWords counts whitespace-delimited tokens with markdown markup stripped.
// The count is deterministic for identical content.
func CountWords(content string) int {
	stripped := strings.NewReplacer(
		"#", " ",
		"*", " ",
		"`", " ",
		"_", " ",
		">", " ",
		"|", " ",
	).Replace(content)
	return len(strings.Fields(stripped))
}
