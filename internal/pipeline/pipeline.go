package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/kpyopark/MMU-RAG-competition/internal/assembler"
	"github.com/kpyopark/MMU-RAG-competition/internal/config"
	"github.com/kpyopark/MMU-RAG-competition/internal/generator"
	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/planner"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
	"github.com/kpyopark/MMU-RAG-competition/internal/research"
	"github.com/kpyopark/MMU-RAG-competition/internal/storage"
	"github.com/kpyopark/MMU-RAG-competition/internal/validator"
	"github.com/kpyopark/MMU-RAG-competition/internal/window"
)

// Result is the outcome of a pipeline run. On a fatal mid-run error the
// pipeline still returns the partial result alongside the error, so callers
// can inspect what was completed and resume later by RunID.
type Result struct {
	RunID    string
	Document assembler.Document
	State    *report.GenerationState
	Complete bool
}

// Pipeline drives a report end to end: grounded research, structure planning,
// section-by-section generation under the sliding context window, quality
// gating, and final assembly. State is persisted after every section so an
// interrupted run resumes from its last completed section.
type Pipeline struct {
	cfg    *config.Config
	client llm.Client
	store  storage.RunStore
	scorer validator.Scorer
	sink   ProgressSink
}

// New wires a pipeline. store and scorer may be nil (no persistence, lexical
// similarity); sink may be nil (no progress output).
func New(cfg *config.Config, client llm.Client, store storage.RunStore, scorer validator.Scorer, sink ProgressSink) *Pipeline {
	if sink == nil {
		sink = NopSink{}
	}
	return &Pipeline{cfg: cfg, client: client, store: store, scorer: scorer, sink: sink}
}

// Generate produces a full report for the query.
func (p *Pipeline) Generate(ctx context.Context, query string) (*Result, error) {
	state, err := p.prepare(ctx, query)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, state)
}

// Resume continues a persisted run from its next pending section.
func (p *Pipeline) Resume(ctx context.Context, runID string) (*Result, error) {
	if p.store == nil {
		return nil, fmt.Errorf("resume requires a run store")
	}
	state, err := p.store.Load(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", runID, err)
	}
	state.FailureNote = ""
	return p.run(ctx, state)
}

// prepare runs the research and planning stages and persists the initial state.
func (p *Pipeline) prepare(ctx context.Context, query string) (*report.GenerationState, error) {
	catalog := report.NewSourceCatalog()

	researcher := research.New(p.client, p.cfg.Pipeline, p.cfg.AI.Temperature)
	questions := researcher.Plan(ctx, query)
	p.sink.ResearchStarted(len(questions))

	highlights, err := researcher.Investigate(ctx, questions, catalog)
	if err != nil {
		return nil, fmt.Errorf("research stage: %w", err)
	}

	pl := planner.New(p.client, p.cfg.Pipeline, p.cfg.AI.Temperature)
	structure, err := pl.Plan(ctx, query, highlights)
	if err != nil {
		return nil, fmt.Errorf("planning stage: %w", err)
	}
	p.sink.StructureReady(len(structure.Chapters), structure.TotalSections())

	state := &report.GenerationState{
		RunID:              uuid.NewString(),
		Query:              query,
		Structure:          structure,
		ResearchHighlights: highlights,
		Catalog:            catalog,
	}
	p.persist(ctx, state)
	return state, nil
}

// run executes the generation loop from state.NextIndex onward.
func (p *Pipeline) run(ctx context.Context, state *report.GenerationState) (*Result, error) {
	compressor := window.NewCompressor(p.client, window.NewMemoryCache(), p.cfg.Pipeline.SummaryTokenCeiling)
	builder := window.NewBuilder(p.cfg.Pipeline, compressor)
	gen := generator.New(p.client, state.Catalog, p.cfg.Pipeline, p.cfg.AI.Temperature)
	ctrl := generator.NewController(gen, validator.New(p.cfg.Pipeline, p.scorer), p.cfg.Pipeline)

	specs := state.Structure.AllSections()
	total := len(specs)

	for i := state.NextIndex; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return p.abort(ctx, state, i, total, err)
		}
		spec := specs[i]
		p.sink.SectionStarted(i+1, total, state.Structure.ChapterTitle(spec.ChapterNumber), spec.Title)

		in := generator.Input{Query: state.Query, Spec: spec}
		prior := bodySections(state.Completed)
		switch spec.Kind {
		case report.KindExecutiveSummary:
			in.ContextBlock = outlineDigest(state.Structure)
			in.ResearchBlock = state.ResearchHighlights
			prior = nil
		case report.KindConclusion:
			in.ContextBlock = sectionDigest(ctx, compressor, state.Completed)
			prior = nil
		default:
			bundle := builder.Build(ctx, prior, state.ResearchHighlights)
			in.ContextBlock = window.FormatForPrompt(bundle)
			in.DegradedContext = bundle.Degraded
		}

		section, result, err := ctrl.Generate(ctx, in, prior)
		if err != nil {
			return p.abort(ctx, state, i, total, err)
		}
		for _, w := range result.Warnings {
			log.Printf("section %s: %s", spec.FullID(), w)
		}

		state.Completed = append(state.Completed, section)
		state.NextIndex = i + 1
		p.persist(ctx, state)
		p.sink.SectionCompleted(i+1, total, spec.Title, section.WordCount, section.Attempts)
	}

	doc := assembler.New(state.Catalog).Assemble(state.Query, state.Structure, state.Completed)
	p.sink.ReportComplete(doc)

	if p.store != nil {
		if err := p.store.Delete(ctx, state.RunID); err != nil {
			log.Printf("cleanup of run %s failed: %v", state.RunID, err)
		}
	}
	return &Result{RunID: state.RunID, Document: doc, State: state, Complete: true}, nil
}

// abort persists the partial state and surfaces the failure with resume
// instructions. Transient exhaustion and terminal errors both land here; the
// completed sections are never lost.
func (p *Pipeline) abort(ctx context.Context, state *report.GenerationState, index, total int, cause error) (*Result, error) {
	state.FailureNote = cause.Error()
	// Persist with a fresh context: the run's context may be the failure.
	p.persist(context.WithoutCancel(ctx), state)

	err := fmt.Errorf("report incomplete at section %d of %d: %w (resume with run ID %s)", index+1, total, cause, state.RunID)
	if llm.IsTransient(cause) {
		err = fmt.Errorf("report incomplete at section %d of %d after retries: %w (resume with run ID %s)", index+1, total, cause, state.RunID)
	}
	return &Result{RunID: state.RunID, State: state}, err
}

func (p *Pipeline) persist(ctx context.Context, state *report.GenerationState) {
	if p.store == nil {
		return
	}
	if err := p.store.Save(ctx, state); err != nil {
		log.Printf("persisting run %s failed: %v", state.RunID, err)
	}
}

// bodySections filters out the framing sections; the window and the
// redundancy check only ever look at chapter content.
func bodySections(completed []*report.GeneratedSection) []*report.GeneratedSection {
	out := make([]*report.GeneratedSection, 0, len(completed))
	for _, s := range completed {
		if s.Spec.Kind == report.KindBody {
			out = append(out, s)
		}
	}
	return out
}

// outlineDigest renders the planned structure as the executive summary's
// context: the summary previews chapters that are not written yet.
func outlineDigest(structure *report.Structure) string {
	var sb strings.Builder
	for _, ch := range structure.Chapters {
		fmt.Fprintf(&sb, "%d. %s (%s)\n", ch.ChapterNumber, ch.Title, ch.Perspective)
		for _, sec := range ch.Sections {
			fmt.Fprintf(&sb, "   %s %s\n", sec.FullID(), sec.Title)
		}
	}
	return sb.String()
}

// sectionDigest summarizes every completed section for the conclusion prompt,
// reusing compressed summaries where the window already produced them.
func sectionDigest(ctx context.Context, compressor *window.Compressor, completed []*report.GeneratedSection) string {
	var lines []string
	for _, s := range completed {
		if s.Spec.Kind == report.KindExecutiveSummary {
			continue
		}
		summary := s.Summary
		if summary == "" {
			summary = compressor.Compress(ctx, s)
		}
		lines = append(lines, fmt.Sprintf("[%s] %s: %s", s.Spec.FullID(), s.Spec.Title, summary))
	}
	return strings.Join(lines, "\n")
}
