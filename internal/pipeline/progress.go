package pipeline

import (
	"fmt"

	"github.com/kpyopark/MMU-RAG-competition/internal/assembler"
)

// ProgressSink receives pipeline milestones. Implementations must not block;
// the pipeline ignores whatever a sink does, so a broken sink cannot fail a
// report.
type ProgressSink interface {
	ResearchStarted(questions int)
	StructureReady(chapters, totalSections int)
	SectionStarted(index, total int, chapterTitle, sectionTitle string)
	SectionCompleted(index, total int, sectionTitle string, wordCount, attempts int)
	ReportComplete(doc assembler.Document)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) ResearchStarted(int)                         {}
func (NopSink) StructureReady(int, int)                     {}
func (NopSink) SectionStarted(int, int, string, string)     {}
func (NopSink) SectionCompleted(int, int, string, int, int) {}
func (NopSink) ReportComplete(assembler.Document)           {}

// ConsoleSink prints progress to stdout.
type ConsoleSink struct{}

func (ConsoleSink) ResearchStarted(questions int) {
	fmt.Printf("🔍 Researching: %d questions...\n", questions)
}

func (ConsoleSink) StructureReady(chapters, totalSections int) {
	fmt.Printf("📋 Structure ready: %d chapters, %d sections.\n", chapters, totalSections)
}

func (ConsoleSink) SectionStarted(index, total int, chapterTitle, sectionTitle string) {
	fmt.Printf("✍️  [%d/%d] %s — %s\n", index, total, chapterTitle, sectionTitle)
}

func (ConsoleSink) SectionCompleted(index, total int, sectionTitle string, wordCount, attempts int) {
	suffix := ""
	if attempts > 1 {
		suffix = fmt.Sprintf(" (%d attempts)", attempts)
	}
	fmt.Printf("✅ [%d/%d] %s: %d words%s\n", index, total, sectionTitle, wordCount, suffix)
}

func (ConsoleSink) ReportComplete(doc assembler.Document) {
	fmt.Printf("🎉 Report complete: %d sections, %d words, %d sources cited.\n",
		doc.SectionCount, doc.TotalWords, doc.TotalCitations)
}
