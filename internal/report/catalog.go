package report

import (
	"fmt"
	"sort"
	"strings"
)

// Source is one resolvable citation target.
type Source struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

// SourceCatalog maps citation identifiers ("Source 1", "Source 2", ...) to
// their web sources. The research layer populates it; the generation core only
// performs lookups. A URL is registered once: re-adding it returns the
// identifier it already owns, so one identifier never points at two URLs.
type SourceCatalog struct {
	sources []Source
	byURL   map[string]int
}

func NewSourceCatalog() *SourceCatalog {
	return &SourceCatalog{byURL: make(map[string]int)}
}

// Add registers a source and returns its identifier. Duplicate URLs are
// deduplicated to the first identifier assigned.
func (c *SourceCatalog) Add(url, title string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if idx, ok := c.byURL[url]; ok {
		if title != "" && c.sources[idx].Title == "" {
			c.sources[idx].Title = title
		}
		return c.sources[idx].ID
	}
	id := fmt.Sprintf("Source %d", len(c.sources)+1)
	c.sources = append(c.sources, Source{ID: id, URL: url, Title: title})
	c.byURL[url] = len(c.sources) - 1
	return id
}

// Resolve looks up a citation identifier. The second return is false when the
// identifier is unknown to this report's research.
func (c *SourceCatalog) Resolve(id string) (Source, bool) {
	for _, s := range c.sources {
		if s.ID == id {
			return s, true
		}
	}
	return Source{}, false
}

// Len returns the number of registered sources.
func (c *SourceCatalog) Len() int {
	return len(c.sources)
}

// All returns the sources in registration order.
func (c *SourceCatalog) All() []Source {
	out := make([]Source, len(c.sources))
	copy(out, c.sources)
	return out
}

// PromptListing renders the catalog as a numbered reference list for prompts.
func (c *SourceCatalog) PromptListing() string {
	var sb strings.Builder
	for _, s := range c.sources {
		title := s.Title
		if title == "" {
			title = s.URL
		}
		fmt.Fprintf(&sb, "[%s] %s (%s)\n", s.ID, title, s.URL)
	}
	return sb.String()
}

// ResolveAll maps the given identifiers to sources, sorted by identifier
// number, silently skipping unknown ones. Callers that must not drop content
// silently should compare input and output lengths.
func (c *SourceCatalog) ResolveAll(ids []string) []Source {
	seen := make(map[string]bool, len(ids))
	out := make([]Source, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if s, ok := c.Resolve(id); ok {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return sourceNumber(out[i].ID) < sourceNumber(out[j].ID) })
	return out
}

func sourceNumber(id string) int {
	var n int
	fmt.Sscanf(id, "Source %d", &n)
	return n
}
