package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/config"
	"github.com/sells-group/lead-enricher/internal/crm"
	"github.com/sells-group/lead-enricher/internal/enrich"
	"github.com/sells-group/lead-enricher/internal/extract"
	"github.com/sells-group/lead-enricher/internal/llm"
	"github.com/sells-group/lead-enricher/internal/planner"
	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/internal/scorer"
	"github.com/sells-group/lead-enricher/internal/store"
	anthropicpkg "github.com/sells-group/lead-enricher/pkg/anthropic"
	"github.com/sells-group/lead-enricher/pkg/chatstream"
	"github.com/sells-group/lead-enricher/pkg/gemini"
	"github.com/sells-group/lead-enricher/pkg/salesforce"
)

// pipelineEnv holds the initialized clients and the enricher needed by the
// enrich and serve commands.
type pipelineEnv struct {
	Store    store.Store // nil when recording is disabled
	Enricher *enrich.Enricher
	Planner  *planner.Planner
	CRM      bool
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates the config for mode, opens the store and builds the
// Enricher. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	plan, err := planner.Load(cfg.Enrichment.QuestionsFile)
	if err != nil {
		return nil, err
	}

	chat := newChatClient(cfg.Chat)
	completer, err := newCompleter(ctx, cfg, chat)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	opts := []enrich.Option{enrich.WithPlanner(plan)}
	if st != nil {
		opts = append(opts, enrich.WithStore(st))
	} else {
		zap.L().Debug("run store disabled")
	}

	env := &pipelineEnv{Store: st, Planner: plan}
	if cfg.Salesforce.Enabled {
		client, err := salesforce.Connect(salesforce.Config{
			LoginURL: cfg.Salesforce.LoginURL,
			Username: cfg.Salesforce.Username,
			ClientID: cfg.Salesforce.ClientID,
			KeyPath:  cfg.Salesforce.KeyPath,
		}, salesforce.WithRateLimit(cfg.Salesforce.RateLimitRPS))
		if err != nil {
			env.Close()
			return nil, err
		}
		opts = append(opts, enrich.WithCRM(crm.NewSalesforceSink(client, crm.WithScoreField(cfg.Salesforce.ScoreField))))
		env.CRM = true
		zap.L().Info("salesforce write-back enabled")
	}

	env.Enricher = enrich.New(
		chat,
		scorer.New(completer),
		extract.New(completer, cfg.Enrichment.PhoneRegion),
		enrichSettings(cfg),
		opts...,
	)
	return env, nil
}

func newChatClient(c config.ChatConfig) chatstream.Client {
	opts := []chatstream.Option{
		chatstream.WithBaseURL(c.BaseURL),
		chatstream.WithRateLimit(c.RateLimitRPS),
	}
	if c.TimeoutSecs > 0 {
		opts = append(opts, chatstream.WithTimeout(time.Duration(c.TimeoutSecs)*time.Second))
	}
	if c.MaxRecordBytes > 0 {
		opts = append(opts, chatstream.WithMaxRecordBytes(c.MaxRecordBytes))
	}
	return chatstream.NewClient(opts...)
}

// newCompleter returns the model the scorer and extractor prompt.
func newCompleter(ctx context.Context, c *config.Config, chat chatstream.Client) (llm.Completer, error) {
	retry := resilience.RetryFromSettings(c.Chat.RetryAttempts, c.Chat.RetryBackoffMs)

	switch c.Scoring.Provider {
	case config.ScoringChat, "":
		return llm.NewChatCompleter(chat, c.Chat.FocusMode, c.Chat.OptimizationMode, retry), nil
	case config.ScoringAnthropic:
		client := anthropicpkg.NewClient(c.Anthropic.Key)
		return llm.NewAnthropicCompleter(client, c.Anthropic.Model, c.Anthropic.MaxTokens, retry), nil
	case config.ScoringGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{APIKey: c.Gemini.Key, BaseURL: c.Gemini.BaseURL})
		if err != nil {
			return nil, err
		}
		return llm.NewGeminiCompleter(client, c.Gemini.Model, retry), nil
	default:
		return nil, eris.Errorf("unsupported scoring provider: %s", c.Scoring.Provider)
	}
}

func enrichSettings(c *config.Config) enrich.Settings {
	return enrich.Settings{
		Defaults:         c.Models,
		FocusMode:        c.Chat.FocusMode,
		OptimizationMode: c.Chat.OptimizationMode,
		QuestionDelay:    resilience.Millis(c.Enrichment.QuestionDelayMs),
		LeadDelay:        resilience.Millis(c.Enrichment.LeadDelayMs),
		Retry:            resilience.RetryFromSettings(c.Chat.RetryAttempts, c.Chat.RetryBackoffMs),
		BreakerThreshold: c.Enrichment.BreakerThreshold,
		ParallelEvidence: c.Enrichment.ParallelEvidence,
	}
}
