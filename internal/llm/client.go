package llm

import (
	"context"
	"errors"
	"fmt"
)

// Citation is one web source returned by a grounded generation call.
type Citation struct {
	URL   string
	Title string
}

// Request describes a single generation call.
type Request struct {
	Prompt          string
	SystemPrompt    string
	Temperature     float64
	MaxOutputTokens int
	// Grounded enables web-grounded generation: the model searches, synthesizes
	// and returns citations alongside the text.
	Grounded bool
}

// Result is the outcome of a generation call.
type Result struct {
	Text      string
	Citations []Citation
}

// Client is the external generation capability. Implementations must respect
// MaxOutputTokens as a hard cap and honour context cancellation.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

// TransientError marks a retryable failure (rate limit, timeout, 5xx). The
// caller's retry loop handles these; they surface only once retries are spent.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient generation error: %v", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// TerminalError marks a non-retryable failure (malformed request, exhausted
// quota, invalid key). It aborts the current section's generation.
type TerminalError struct {
	Err error
}

func (e *TerminalError) Error() string { return fmt.Sprintf("terminal generation error: %v", e.Err) }
func (e *TerminalError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientError.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsTerminal reports whether err is (or wraps) a TerminalError.
func IsTerminal(err error) bool {
	var te *TerminalError
	return errors.As(err, &te)
}
