package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/gemini"
)

// GeminiCompleter sends prompts to the Gemini API with a configured model.
type GeminiCompleter struct {
	client gemini.Client
	model  string
	retry  resilience.RetryConfig
}

// NewGeminiCompleter creates a GeminiCompleter.
func NewGeminiCompleter(client gemini.Client, model string, retry resilience.RetryConfig) *GeminiCompleter {
	retry.ShouldRetry = resilience.Any(gemini.IsRetryable, resilience.IsTransient)
	return &GeminiCompleter{client: client, model: model, retry: retry}
}

// Complete implements Completer.
func (c *GeminiCompleter) Complete(ctx context.Context, req Request) (string, error) {
	temp := float32(0)
	genReq := gemini.Request{
		Model:       c.model,
		System:      req.System,
		Prompt:      req.Prompt,
		Temperature: &temp,
	}

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("gemini", req.Step)
	text, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		return c.client.Generate(ctx, genReq)
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s via gemini", req.Step)
	}
	return text, nil
}
