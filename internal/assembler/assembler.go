package assembler

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// Document is the assembled report plus its roll-up numbers.
type Document struct {
	Markdown       string
	TotalWords     int
	TotalCitations int
	SectionCount   int
	QualityFlags   []string
}

// Assembler renders completed sections into the final markdown document:
// executive summary, chapters with numbered sections, conclusion, a citations
// chapter resolved against the source catalog, and a generation footer.
type Assembler struct {
	catalog *report.SourceCatalog
}

func New(catalog *report.SourceCatalog) *Assembler {
	return &Assembler{catalog: catalog}
}

// Assemble renders the report. Sections are placed by their spec identifiers,
// so the slice order does not matter; missing sections leave an explicit
// placeholder rather than silently shrinking the document.
func (a *Assembler) Assemble(query string, structure *report.Structure, sections []*report.GeneratedSection) Document {
	byID := make(map[string]*report.GeneratedSection, len(sections))
	for _, s := range sections {
		byID[s.Spec.FullID()] = s
	}

	var sb strings.Builder
	doc := Document{}

	fmt.Fprintf(&sb, "# %s\n\n", reportTitle(query))

	sb.WriteString("# Executive Summary\n\n")
	a.renderSection(&sb, &doc, byID, structure.ExecutiveSummary, false)

	for _, chapter := range structure.Chapters {
		fmt.Fprintf(&sb, "# %d. %s\n\n", chapter.ChapterNumber, chapter.Title)
		for _, spec := range chapter.Sections {
			a.renderSection(&sb, &doc, byID, spec, true)
		}
	}

	sb.WriteString("# Conclusion\n\n")
	a.renderSection(&sb, &doc, byID, structure.Conclusion, false)

	a.renderCitations(&sb, &doc, structure, byID)
	a.renderFooter(&sb, doc)

	doc.Markdown = sb.String()
	return doc
}

func (a *Assembler) renderSection(sb *strings.Builder, doc *Document, byID map[string]*report.GeneratedSection, spec report.SectionSpec, heading bool) {
	if heading {
		fmt.Fprintf(sb, "## %s %s\n\n", spec.FullID(), spec.Title)
	}
	section, ok := byID[spec.FullID()]
	if !ok {
		sb.WriteString("*This section could not be generated.*\n\n")
		return
	}
	sb.WriteString(strings.TrimSpace(section.Content))
	sb.WriteString("\n\n")

	doc.SectionCount++
	doc.TotalWords += section.WordCount
	for _, flag := range section.Meta.QualityFlags {
		doc.QualityFlags = append(doc.QualityFlags, fmt.Sprintf("section %s: %s", spec.FullID(), flag))
	}
	if section.Meta.DegradedContext {
		doc.QualityFlags = append(doc.QualityFlags, fmt.Sprintf("section %s: generated with degraded context", spec.FullID()))
	}
	if section.Meta.DroppedCitations > 0 {
		doc.QualityFlags = append(doc.QualityFlags, fmt.Sprintf("section %s: %d unresolvable citation(s) removed", spec.FullID(), section.Meta.DroppedCitations))
	}
}

// renderCitations groups resolved sources by the chapter that first cited
// them; a source cited by several chapters is listed once, under the earliest.
func (a *Assembler) renderCitations(sb *strings.Builder, doc *Document, structure *report.Structure, byID map[string]*report.GeneratedSection) {
	type group struct {
		title   string
		sources []report.Source
	}
	var groups []group
	listed := make(map[string]bool)

	collect := func(title string, specs []report.SectionSpec) {
		var ids []string
		for _, spec := range specs {
			if section, ok := byID[spec.FullID()]; ok {
				ids = append(ids, section.Citations...)
			}
		}
		var fresh []report.Source
		for _, src := range a.catalog.ResolveAll(ids) {
			if listed[src.ID] {
				continue
			}
			listed[src.ID] = true
			fresh = append(fresh, src)
		}
		if len(fresh) > 0 {
			groups = append(groups, group{title: title, sources: fresh})
		}
	}

	collect("Executive Summary", []report.SectionSpec{structure.ExecutiveSummary})
	for _, chapter := range structure.Chapters {
		collect(fmt.Sprintf("Chapter %d: %s", chapter.ChapterNumber, chapter.Title), chapter.Sections)
	}
	collect("Conclusion", []report.SectionSpec{structure.Conclusion})

	if len(groups) == 0 {
		return
	}

	sb.WriteString("# Citations\n\n")
	for _, g := range groups {
		fmt.Fprintf(sb, "**%s**\n\n", g.title)
		for _, src := range g.sources {
			title := src.Title
			if title == "" {
				title = src.URL
			}
			fmt.Fprintf(sb, "- [%s] %s — %s\n", src.ID, title, src.URL)
			doc.TotalCitations++
		}
		sb.WriteString("\n")
	}
}

func (a *Assembler) renderFooter(sb *strings.Builder, doc Document) {
	sb.WriteString("---\n\n")
	fmt.Fprintf(sb, "*Generated on %s. %d sections, %d words, %d sources cited.*\n",
		time.Now().Format("2006-01-02"), doc.SectionCount, doc.TotalWords, doc.TotalCitations)
	if len(doc.QualityFlags) > 0 {
		sb.WriteString("\n*Quality notes:*\n")
		for _, flag := range doc.QualityFlags {
			fmt.Fprintf(sb, "- %s\n", flag)
		}
	}
}

func reportTitle(query string) string {
	q := strings.TrimSpace(query)
	if q == "" {
		return "Research Report"
	}
	runes := []rune(q)
	runes[0] = unicode.ToUpper(runes[0])
	return "Research Report: " + string(runes)
}
