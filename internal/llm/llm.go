// Package llm runs the single-shot model calls used for lead scoring and
// field extraction, over whichever backend is configured.
package llm

import (
	"context"

	"github.com/sells-group/lead-enricher/internal/provider"
)

// Request is one single-shot prompt.
type Request struct {
	// Step names the pipeline step for logging ("score", "extract").
	Step      string
	System    string
	Prompt    string
	Selection provider.Selection
}

// Completer returns the model's free-text reply to a prompt.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
