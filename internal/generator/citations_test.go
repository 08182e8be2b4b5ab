package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

func TestExtractCitations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"none", "No citations here.", nil},
		{"canonical form", "Claim [Source 1] and claim [Source 2].", []string{"Source 1", "Source 2"}},
		{"bare numeric form", "Claim [1] and claim [12].", []string{"Source 1", "Source 12"}},
		{"mixed and repeated", "A [Source 3]. B [3]. C [Source 1].", []string{"Source 3", "Source 1"}},
		{"ignores non-numeric brackets", "See [figure] and [Source A].", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCitations(tt.in))
		})
	}
}

func TestResolveCitations(t *testing.T) {
	catalog := report.NewSourceCatalog()
	catalog.Add("https://example.com/a", "A") // Source 1
	catalog.Add("https://example.com/b", "B") // Source 2

	t.Run("known markers normalized and kept", func(t *testing.T) {
		content, ids, dropped := ResolveCitations("Claim [1]. Another [Source 2].", catalog)
		assert.Equal(t, "Claim [Source 1]. Another [Source 2].", content)
		assert.Equal(t, []string{"Source 1", "Source 2"}, ids)
		assert.Zero(t, dropped)
	})

	t.Run("unknown markers stripped and counted", func(t *testing.T) {
		content, ids, dropped := ResolveCitations("Real [Source 1]. Invented [Source 7]. Also invented [Source 7] again [9].", catalog)
		assert.NotContains(t, content, "Source 7")
		assert.NotContains(t, content, "[9]")
		assert.Contains(t, content, "[Source 1]")
		assert.Equal(t, []string{"Source 1"}, ids)
		assert.Equal(t, 2, dropped, "dropped counts distinct identifiers")
	})

	t.Run("stripping leaves clean punctuation", func(t *testing.T) {
		content, _, _ := ResolveCitations("Claim [Source 9].", catalog)
		assert.Equal(t, "Claim.", content)
	})

	t.Run("repeated known marker listed once", func(t *testing.T) {
		_, ids, _ := ResolveCitations("X [Source 1]. Y [Source 1].", catalog)
		assert.Equal(t, []string{"Source 1"}, ids)
	})
}
