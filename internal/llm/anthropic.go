package llm

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/anthropic"
)

// AnthropicCompleter sends prompts to the Anthropic Messages API. The model
// is fixed by configuration; the batch selection is not used.
type AnthropicCompleter struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	retry     resilience.RetryConfig
}

// NewAnthropicCompleter creates an AnthropicCompleter.
func NewAnthropicCompleter(client anthropic.Client, model string, maxTokens int64, retry resilience.RetryConfig) *AnthropicCompleter {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	retry.ShouldRetry = resilience.Any(anthropic.IsRetryable, resilience.IsTransient)
	return &AnthropicCompleter{client: client, model: model, maxTokens: maxTokens, retry: retry}
}

// Complete implements Completer.
func (c *AnthropicCompleter) Complete(ctx context.Context, req Request) (string, error) {
	temp := 0.0
	msgReq := anthropic.MessageRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      req.System,
		Messages:    []anthropic.Message{{Role: "user", Content: req.Prompt}},
		Temperature: &temp,
	}

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("anthropic", req.Step)
	resp, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return c.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s via anthropic", req.Step)
	}
	resp.Usage.LogCost(c.model, req.Step)
	return resp.Text(), nil
}
