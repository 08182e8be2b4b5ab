package window

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpyopark/MMU-RAG-competition/internal/llm"
	"github.com/kpyopark/MMU-RAG-competition/internal/report"
)

// fakeClient replays canned responses and records every request.
type fakeClient struct {
	responses []llm.Result
	err       error
	calls     []llm.Request
}

func (f *fakeClient) Generate(_ context.Context, req llm.Request) (llm.Result, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return llm.Result{}, f.err
	}
	if len(f.responses) == 0 {
		return llm.Result{Text: "canned summary."}, nil
	}
	res := f.responses[0]
	if len(f.responses) > 1 {
		f.responses = f.responses[1:]
	}
	return res, nil
}

func testSection(title, content string) *report.GeneratedSection {
	return &report.GeneratedSection{
		Spec:      report.SectionSpec{Title: title, ChapterNumber: 1, SectionNumber: 1, Perspective: "Technical", Kind: report.KindBody},
		Content:   content,
		WordCount: report.CountWords(content),
	}
}

func TestCompressorCachesByFingerprint(t *testing.T) {
	client := &fakeClient{responses: []llm.Result{{Text: "compressed summary."}}}
	c := NewCompressor(client, NewMemoryCache(), 200)
	section := testSection("Background", "Full content of the section. It has several sentences.")

	first := c.Compress(context.Background(), section)
	second := c.Compress(context.Background(), section)

	assert.Equal(t, "compressed summary.", first)
	assert.Equal(t, first, second)
	assert.Len(t, client.calls, 1, "second call must hit the cache")
}

func TestCompressorDifferentContentDifferentKey(t *testing.T) {
	client := &fakeClient{}
	c := NewCompressor(client, NewMemoryCache(), 200)

	c.Compress(context.Background(), testSection("A", "Content one."))
	c.Compress(context.Background(), testSection("A", "Content two."))

	assert.Len(t, client.calls, 2)
}

func TestCompressorFallsBackToTruncation(t *testing.T) {
	content := words(400) + ". " + words(400) + "."
	section := testSection("Long", content)

	t.Run("on error", func(t *testing.T) {
		client := &fakeClient{err: &llm.TerminalError{Err: fmt.Errorf("boom")}}
		c := NewCompressor(client, NewMemoryCache(), 200)
		got := c.Compress(context.Background(), section)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, EstimateTokens(got), 200)
	})

	t.Run("on empty response", func(t *testing.T) {
		client := &fakeClient{responses: []llm.Result{{Text: "   "}}}
		c := NewCompressor(client, NewMemoryCache(), 200)
		got := c.Compress(context.Background(), section)
		require.NotEmpty(t, got)
		assert.LessOrEqual(t, EstimateTokens(got), 200)
	})
}

func TestCompressorClampsOversizedSummary(t *testing.T) {
	client := &fakeClient{responses: []llm.Result{{Text: words(500) + "."}}}
	c := NewCompressor(client, NewMemoryCache(), 100)

	got := c.Compress(context.Background(), testSection("X", "Content."))
	assert.LessOrEqual(t, EstimateTokens(got), 100)
}

func TestMergeSummariesCached(t *testing.T) {
	client := &fakeClient{responses: []llm.Result{{Text: "merged block."}}}
	c := NewCompressor(client, NewMemoryCache(), 200)
	summaries := []string{"[1.1] A: alpha.", "[1.2] B: beta."}

	first := c.MergeSummaries(context.Background(), summaries)
	second := c.MergeSummaries(context.Background(), summaries)

	assert.Equal(t, "merged block.", first)
	assert.Equal(t, first, second)
	assert.Len(t, client.calls, 1)
}

func TestFingerprintIsStable(t *testing.T) {
	a := Fingerprint("Title", "content")
	b := Fingerprint("Title", "content")
	c := Fingerprint("Title2", "content")
	d := Fingerprint("Title", "content2")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a, d)
}
