// Package session runs one lead's enrichment conversation against the chat
// backend: every planned question, in order, within a single chat.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/planner"
	"github.com/sells-group/lead-enricher/internal/provider"
	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/pkg/chatstream"
)

// DefaultQuestionDelay is the pause between consecutive questions.
const DefaultQuestionDelay = 2 * time.Second

// Params configures a session run.
type Params struct {
	Client    chatstream.Client
	Planner   *planner.Planner
	Selection provider.Selection

	FocusMode          string
	OptimizationMode   string
	SystemInstructions string

	// QuestionDelay is slept between consecutive questions. Zero disables it.
	QuestionDelay time.Duration
	Retry         resilience.RetryConfig
	// BreakerThreshold is the number of consecutive transport failures after
	// which the remaining questions are answered with placeholders without
	// calling the backend. Zero disables the breaker.
	BreakerThreshold int
}

// Transcript is the outcome of one session.
type Transcript struct {
	Lead    model.Lead
	ChatID  string
	Results []model.EnrichmentResult
	// Failed counts questions answered with an error placeholder.
	Failed int
}

// Placeholder is the answer recorded for a question that failed.
func Placeholder(err error) string {
	return "Error: " + err.Error()
}

// Run asks every planned question for email's company, strictly one after
// another, carrying the growing conversation history into each request. A
// failed question gets a placeholder answer and the session moves on, so the
// transcript always holds exactly one result per question. The only error
// returned is for an email the lead cannot be derived from.
func Run(ctx context.Context, email string, p Params) (*Transcript, error) {
	if p.Client == nil {
		return nil, eris.New("session: chat client is required")
	}
	plan := p.Planner
	if plan == nil {
		plan = planner.New()
	}

	lead, questions, err := plan.PlanFor(email)
	if err != nil {
		return nil, eris.Wrap(err, "session: plan questions")
	}

	t := &Transcript{
		Lead:    lead,
		ChatID:  uuid.NewString(),
		Results: make([]model.EnrichmentResult, 0, len(questions)),
	}
	log := zap.L().With(
		zap.String("email", lead.Email),
		zap.String("chat_id", t.ChatID),
	)

	retry := p.Retry
	retry.ShouldRetry = resilience.Any(chatstream.IsRetryable, resilience.IsTransient)
	var breaker *resilience.CircuitBreaker
	if p.BreakerThreshold > 0 {
		breakerCfg := resilience.BreakerFromSettings(p.BreakerThreshold)
		breakerCfg.ShouldTrip = tripsBreaker
		breakerCfg.OnStateChange = func(from, to resilience.CircuitState) {
			log.Warn("session: breaker state changed",
				zap.Stringer("from", from),
				zap.Stringer("to", to),
			)
		}
		breaker = resilience.NewCircuitBreaker(breakerCfg)
	}

	history := make([]chatstream.Turn, 0, 2*len(questions))
	for i, q := range questions {
		if i > 0 {
			_ = resilience.Pause(ctx, p.QuestionDelay)
		}

		req := chatstream.Request{
			Content:            q,
			ChatID:             t.ChatID,
			History:            history,
			FocusMode:          p.FocusMode,
			OptimizationMode:   p.OptimizationMode,
			ChatModel:          p.Selection.Chat,
			EmbeddingModel:     p.Selection.Embedding,
			SystemInstructions: p.SystemInstructions,
		}

		start := time.Now()
		answer, err := ask(ctx, p.Client, breaker, retry, req, i)
		if err != nil {
			t.Failed++
			answer = Placeholder(err)
			log.Warn("session: question failed",
				zap.Int("question_index", i),
				zap.Error(err),
			)
		} else {
			log.Debug("session: question answered",
				zap.Int("question_index", i),
				zap.Int("answer_len", len(answer)),
				zap.Duration("elapsed", time.Since(start)),
			)
		}

		t.Results = append(t.Results, model.EnrichmentResult{Question: q, Answer: answer})
		history = append(history,
			chatstream.Turn{Role: chatstream.RoleHuman, Text: q},
			chatstream.Turn{Role: chatstream.RoleAssistant, Text: answer},
		)
	}

	fields := []zap.Field{
		zap.Int("questions", len(questions)),
		zap.Int("failed", t.Failed),
	}
	if breaker != nil {
		fields = append(fields, zap.Stringer("breaker", breaker.State()))
	}
	log.Info("session: complete", fields...)
	return t, nil
}

// tripsBreaker counts transport and status failures only. A backend error
// record concerns a single question, and cancellation is not a backend fault.
func tripsBreaker(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var bse *chatstream.BackendStreamError
	return !errors.As(err, &bse)
}

func ask(
	ctx context.Context,
	client chatstream.Client,
	breaker *resilience.CircuitBreaker,
	retry resilience.RetryConfig,
	req chatstream.Request,
	index int,
) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	retry.OnRetry = resilience.RetryLogger("chat", "question",
		zap.String("chat_id", req.ChatID),
		zap.Int("question_index", index),
	)
	send := func(ctx context.Context) (string, error) {
		return resilience.DoVal(ctx, retry, func(ctx context.Context) (string, error) {
			req.MessageID = uuid.NewString()
			return client.Send(ctx, req)
		})
	}
	if breaker == nil {
		return send(ctx)
	}
	return resilience.ExecuteVal(ctx, breaker, send)
}
