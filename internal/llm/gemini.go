package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"
)

// GeminiClient implements Client on the Gemini API, including the grounded
// generation mode backed by Google Search.
type GeminiClient struct {
	client      *genai.Client
	model       string
	callTimeout time.Duration
	maxAttempts int
}

// NewGeminiClient creates a Gemini-backed generation client.
func NewGeminiClient(ctx context.Context, apiKey, modelName string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       modelName,
		callTimeout: 120 * time.Second,
		maxAttempts: defaultMaxAttempts,
	}, nil
}

// WithCallTimeout sets the per-call deadline, aligned with the caller's
// overall report deadline.
func (g *GeminiClient) WithCallTimeout(d time.Duration) *GeminiClient {
	g.callTimeout = d
	return g
}

// Generate performs one generation with retry on transient failures.
func (g *GeminiClient) Generate(ctx context.Context, req Request) (Result, error) {
	return withRetry(ctx, g.maxAttempts, func() (Result, error) {
		callCtx, cancel := context.WithTimeout(ctx, g.callTimeout)
		defer cancel()
		return g.generateOnce(callCtx, req)
	})
}

func (g *GeminiClient) generateOnce(ctx context.Context, req Request) (Result, error) {
	cfg := &genai.GenerateContentConfig{}
	if req.MaxOutputTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxOutputTokens)
	}
	temp := float32(req.Temperature)
	cfg.Temperature = &temp
	if req.SystemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	if req.Grounded {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.Prompt), cfg)
	if err != nil {
		return Result{}, classify(err)
	}

	res := Result{Text: cleanMarkdownFence(resp.Text())}
	if req.Grounded {
		res.Citations = extractGroundingCitations(resp)
	}
	return res, nil
}

// extractGroundingCitations pulls web sources out of the grounding metadata.
// The metadata lives on the first candidate, and the URL field is Web.URI.
func extractGroundingCitations(resp *genai.GenerateContentResponse) []Citation {
	if len(resp.Candidates) == 0 || resp.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []Citation
	for _, chunk := range resp.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		out = append(out, Citation{URL: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return out
}

// classify sorts an API error into the transient/terminal taxonomy.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TransientError{Err: err}
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 429, apiErr.Code == 502, apiErr.Code == 503, apiErr.Code == 504:
			return &TransientError{Err: err}
		default:
			return &TerminalError{Err: err}
		}
	}
	s := err.Error()
	for _, token := range []string{"429", "RESOURCE_EXHAUSTED", "timeout", "502", "503", "504", "connection reset"} {
		if strings.Contains(s, token) {
			return &TransientError{Err: err}
		}
	}
	return &TerminalError{Err: err}
}

// cleanMarkdownFence strips a wrapping code fence that models sometimes add,
// including a language tag like ```json or ```markdown.
func cleanMarkdownFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if i := strings.IndexByte(text, '\n'); i >= 0 && len(strings.Fields(text[:i])) <= 1 {
		text = text[i+1:]
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
