package report

import (
	"encoding/json"
	"time"
)

// GenerationState is the resumable snapshot of a partially completed report.
// It is persisted synchronously before a fatal failure is surfaced, so a
// caller can continue from NextIndex without regenerating finished sections.
type GenerationState struct {
	RunID              string              `json:"run_id"`
	Query              string              `json:"query"`
	Structure          *Structure          `json:"structure"`
	Completed          []*GeneratedSection `json:"completed"`
	NextIndex          int                 `json:"next_index"`
	ResearchHighlights string              `json:"research_highlights"`
	Catalog            *SourceCatalog      `json:"catalog"`
	FailureNote        string              `json:"failure_note,omitempty"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

// catalogJSON is the wire shape of SourceCatalog.
type catalogJSON struct {
	Sources []Source `json:"sources"`
}

// MarshalJSON serializes the catalog as its ordered source list.
func (c *SourceCatalog) MarshalJSON() ([]byte, error) {
	return json.Marshal(catalogJSON{Sources: c.sources})
}

// UnmarshalJSON rebuilds the catalog, including its URL dedup index.
func (c *SourceCatalog) UnmarshalJSON(data []byte) error {
	var raw catalogJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.sources = raw.Sources
	c.byURL = make(map[string]int, len(raw.Sources))
	for i, s := range raw.Sources {
		c.byURL[s.URL] = i
	}
	return nil
}
