package llm

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/chatstream"
)

// ChatCompleter sends prompts through the chat backend, each in a fresh
// conversation with no history, using the batch's resolved models.
type ChatCompleter struct {
	client           chatstream.Client
	focusMode        string
	optimizationMode string
	retry            resilience.RetryConfig
}

// NewChatCompleter creates a ChatCompleter.
func NewChatCompleter(client chatstream.Client, focusMode, optimizationMode string, retry resilience.RetryConfig) *ChatCompleter {
	retry.ShouldRetry = resilience.Any(chatstream.IsRetryable, resilience.IsTransient)
	return &ChatCompleter{
		client:           client,
		focusMode:        focusMode,
		optimizationMode: optimizationMode,
		retry:            retry,
	}
}

// Complete implements Completer.
func (c *ChatCompleter) Complete(ctx context.Context, req Request) (string, error) {
	chatReq := chatstream.Request{
		Content:            req.Prompt,
		ChatID:             uuid.NewString(),
		FocusMode:          c.focusMode,
		OptimizationMode:   c.optimizationMode,
		ChatModel:          req.Selection.Chat,
		EmbeddingModel:     req.Selection.Embedding,
		SystemInstructions: req.System,
	}

	retry := c.retry
	retry.OnRetry = resilience.RetryLogger("chat", req.Step)
	answer, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
		chatReq.MessageID = uuid.NewString()
		return c.client.Send(ctx, chatReq)
	})
	if err != nil {
		return "", eris.Wrapf(err, "llm: %s via chat backend", req.Step)
	}
	return answer, nil
}
