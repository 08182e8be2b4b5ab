package validator

import (
	"context"
	"math"
	"strings"
)

// Embedder converts texts to vectors for semantic similarity scoring.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Scorer computes a [0,1] similarity between two texts.
type Scorer interface {
	Similarity(ctx context.Context, a, b string) (float64, error)
}

// LexicalScorer is the embedding-free proxy: Jaccard similarity over
// lowercased token sets. Deterministic and dependency-free, it is also the
// fallback when an embedding call fails.
type LexicalScorer struct{}

func (LexicalScorer) Similarity(_ context.Context, a, b string) (float64, error) {
	return jaccard(tokenSet(a), tokenSet(b)), nil
}

// EmbeddingScorer scores with cosine similarity over embeddings.
type EmbeddingScorer struct {
	embedder Embedder
}

func NewEmbeddingScorer(e Embedder) *EmbeddingScorer {
	return &EmbeddingScorer{embedder: e}
}

func (s *EmbeddingScorer) Similarity(ctx context.Context, a, b string) (float64, error) {
	vectors, err := s.embedder.Embed(ctx, []string{a, b})
	if err != nil {
		return 0, err
	}
	if len(vectors) != 2 {
		return jaccard(tokenSet(a), tokenSet(b)), nil
	}
	return cosine(vectors[0], vectors[1]), nil
}

func tokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		f = strings.Trim(f, ".,;:!?()[]\"'`*#")
		if f == "" {
			continue
		}
		set[f] = true
	}
	return set
}

func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for t := range a {
		if b[t] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
