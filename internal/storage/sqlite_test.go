package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

func TestSQLiteStore_SaveAndLoadRoundTrip(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	catalog := report.NewSourceCatalog()
	catalog.Add("https://example.com/a", "Example A")
	catalog.Add("https://example.com/b", "Example B")

	state := &report.GenerationState{
		RunID:     "run-1",
		Query:     "impact of solid-state batteries",
		Structure: testStructure(),
		Completed: []*report.GeneratedSection{
			{
				Spec:      report.SectionSpec{Title: "Background", ChapterNumber: 1, SectionNumber: 1, Kind: report.KindBody},
				Content:   "Some content [Source 1].",
				WordCount: 4,
				Citations: []string{"Source 1"},
				Summary:   "Background summary.",
			},
		},
		NextIndex:          2,
		ResearchHighlights: "### Q\nfindings",
		Catalog:            catalog,
	}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, state.Query, loaded.Query)
	assert.Equal(t, 2, loaded.NextIndex)
	require.Len(t, loaded.Completed, 1)
	assert.Equal(t, "Background", loaded.Completed[0].Spec.Title)
	assert.Equal(t, []string{"Source 1"}, loaded.Completed[0].Citations)

	// Catalog survives with its dedup index rebuilt.
	require.NotNil(t, loaded.Catalog)
	assert.Equal(t, 2, loaded.Catalog.Len())
	assert.Equal(t, "Source 1", loaded.Catalog.Add("https://example.com/a", ""))
}

func TestSQLiteStore_SaveIsUpsert(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	state := &report.GenerationState{RunID: "run-1", Query: "q", Structure: testStructure(), NextIndex: 1}
	require.NoError(t, store.Save(ctx, state))

	state.NextIndex = 5
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 5, loaded.NextIndex)

	runs, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].NextIndex)
	assert.Equal(t, 8, runs[0].TotalSections)
	assert.WithinDuration(t, time.Now(), runs[0].UpdatedAt, time.Minute)
}

func TestSQLiteStore_LoadUnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	_, err = store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestSQLiteStore_Delete(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, &report.GenerationState{RunID: "run-1", Query: "q"}))
	require.NoError(t, store.Delete(ctx, "run-1"))

	_, err = store.Load(ctx, "run-1")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func testStructure() *report.Structure {
	chapters := []report.Chapter{
		{Title: "One", ChapterNumber: 1, Sections: []report.SectionSpec{
			{Title: "A", ChapterNumber: 1, SectionNumber: 1, Kind: report.KindBody},
			{Title: "B", ChapterNumber: 1, SectionNumber: 2, Kind: report.KindBody},
			{Title: "C", ChapterNumber: 1, SectionNumber: 3, Kind: report.KindBody},
		}},
		{Title: "Two", ChapterNumber: 2, Sections: []report.SectionSpec{
			{Title: "D", ChapterNumber: 2, SectionNumber: 1, Kind: report.KindBody},
			{Title: "E", ChapterNumber: 2, SectionNumber: 2, Kind: report.KindBody},
			{Title: "F", ChapterNumber: 2, SectionNumber: 3, Kind: report.KindBody},
		}},
	}
	return &report.Structure{
		ExecutiveSummary: report.SectionSpec{Title: "Executive Summary", ChapterNumber: 0, SectionNumber: 1, Kind: report.KindExecutiveSummary},
		Chapters:         chapters,
		Conclusion:       report.SectionSpec{Title: "Conclusion", ChapterNumber: 3, SectionNumber: 1, Kind: report.KindConclusion},
	}
}
