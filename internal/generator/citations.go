package generator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// citationPattern matches inline markers in both the canonical [Source N] form
// and the bare [N] shorthand models frequently emit.
var citationPattern = regexp.MustCompile(`\[(?:Source\s+)?(\d+)\]`)

// ExtractCitations returns the citation identifiers referenced by content, in
// order of first appearance, normalized to the "Source N" form and deduplicated.
func ExtractCitations(content string) []string {
	matches := citationPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		id := "Source " + m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ResolveCitations normalizes every marker in content against the catalog.
// Markers for known sources are rewritten to the canonical [Source N] form;
// markers for unknown sources are stripped, and the number of distinct dropped
// identifiers is returned so the caller can record the degradation.
func ResolveCitations(content string, catalog *report.SourceCatalog) (string, []string, int) {
	dropped := make(map[string]bool)
	kept := make(map[string]bool)
	var keptOrder []string

	cleaned := citationPattern.ReplaceAllStringFunc(content, func(marker string) string {
		num := citationPattern.FindStringSubmatch(marker)[1]
		id := "Source " + num
		if _, ok := catalog.Resolve(id); !ok {
			dropped[id] = true
			return ""
		}
		if !kept[id] {
			kept[id] = true
			keptOrder = append(keptOrder, id)
		}
		return fmt.Sprintf("[%s]", id)
	})

	// Stripping a marker can leave doubled spaces or a space before punctuation.
	cleaned = strings.ReplaceAll(cleaned, "  ", " ")
	cleaned = strings.ReplaceAll(cleaned, " .", ".")
	cleaned = strings.ReplaceAll(cleaned, " ,", ",")

	return cleaned, keptOrder, len(dropped)
}
