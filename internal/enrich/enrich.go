// Package enrich runs enrichment batches: one session, score and field
// extraction per lead, strictly one lead after another.
package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-enricher/internal/crm"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/planner"
	"github.com/sells-group/lead-enricher/internal/provider"
	"github.com/sells-group/lead-enricher/internal/resilience"
	"github.com/sells-group/lead-enricher/internal/session"
	"github.com/sells-group/lead-enricher/internal/store"
	"github.com/sells-group/lead-enricher/pkg/chatstream"
)

// DefaultLeadDelay is the pause between consecutive leads.
const DefaultLeadDelay = 3 * time.Second

// ErrNoValidEmails is the batch error when normalization leaves nothing to do.
const ErrNoValidEmails = "no valid emails provided"

// Scorer rates a lead from its enrichment evidence.
type Scorer interface {
	Score(ctx context.Context, company string, results []model.EnrichmentResult, sel provider.Selection) (model.ScoreReport, error)
}

// Extractor pulls CRM fields from enrichment evidence. It never fails.
type Extractor interface {
	Extract(ctx context.Context, company string, results []model.EnrichmentResult, sel provider.Selection) model.StructuredFields
}

// Settings holds the deployment-level knobs shared by every batch.
type Settings struct {
	// Defaults fill provider/model choices a batch leaves empty.
	Defaults         provider.Requested
	FocusMode        string
	OptimizationMode string

	QuestionDelay    time.Duration
	LeadDelay        time.Duration
	Retry            resilience.RetryConfig
	BreakerThreshold int
	// ParallelEvidence runs scoring and extraction concurrently.
	ParallelEvidence bool
}

// Options are the per-batch caller choices. Empty fields fall back to Settings.
type Options struct {
	Requested          provider.Requested
	FocusMode          string
	OptimizationMode   string
	SystemInstructions string
	// Source labels the recorded run.
	Source model.RunSource
	// PushCRM sends successful leads to the configured CRM sink.
	PushCRM bool
}

// Enricher orchestrates enrichment batches.
type Enricher struct {
	chat      chatstream.Client
	planner   *planner.Planner
	scorer    Scorer
	extractor Extractor
	store     store.Store
	crm       crm.Sink
	settings  Settings
}

// Option configures optional Enricher collaborators.
type Option func(*Enricher)

// WithStore records every batch and lead outcome to st.
func WithStore(st store.Store) Option {
	return func(e *Enricher) { e.store = st }
}

// WithCRM enables pushing successful leads to sink when a batch asks for it.
func WithCRM(sink crm.Sink) Option {
	return func(e *Enricher) { e.crm = sink }
}

// WithPlanner replaces the default question planner.
func WithPlanner(p *planner.Planner) Option {
	return func(e *Enricher) {
		if p != nil {
			e.planner = p
		}
	}
}

// New creates an Enricher.
func New(chat chatstream.Client, sc Scorer, ex Extractor, settings Settings, opts ...Option) *Enricher {
	e := &Enricher{
		chat:      chat,
		planner:   planner.New(),
		scorer:    sc,
		extractor: ex,
		settings:  settings,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// EnrichBatch enriches every valid email in order and aggregates the
// outcomes. It never returns an error: a failed lead is recorded on its
// outcome and in Errors, and batch-level failures produce an unsuccessful
// outcome with no results.
func (e *Enricher) EnrichBatch(ctx context.Context, emails []string, opts Options) model.BatchOutcome {
	valid := model.NormalizeEmails(emails)
	log := zap.L().With(zap.Int("emails", len(valid)), zap.String("source", string(opts.Source)))
	if len(valid) == 0 {
		log.Warn("enrich: no valid emails", zap.Int("received", len(emails)))
		return model.NewFailedBatch(ErrNoValidEmails)
	}

	runID := e.createRun(ctx, opts.Source, valid)

	sel, err := e.resolve(ctx, opts.Requested)
	if err != nil {
		log.Error("enrich: provider resolution failed", zap.Error(err))
		outcome := model.NewFailedBatch("configuration error: " + err.Error())
		return e.completeRun(ctx, runID, outcome)
	}
	log.Info("enrich: batch started",
		zap.String("chat_provider", sel.Chat.Provider),
		zap.String("chat_model", sel.Chat.Name),
		zap.String("embedding_provider", sel.Embedding.Provider),
		zap.String("embedding_model", sel.Embedding.Name),
	)

	outcome := model.BatchOutcome{
		Success: true,
		Results: make([]model.LeadOutcome, 0, len(valid)),
		Errors:  []string{},
	}
	start := time.Now()
	for i, email := range valid {
		if i > 0 {
			_ = resilience.Pause(ctx, e.settings.LeadDelay)
		}

		lead := e.enrichLead(ctx, email, sel, opts)
		if lead.Failed() {
			outcome.Success = false
			outcome.Errors = append(outcome.Errors, fmt.Sprintf("%s: %s", email, lead.Error))
		} else if opts.PushCRM {
			e.push(ctx, &lead)
		}
		e.saveLead(ctx, runID, lead)
		outcome.Results = append(outcome.Results, lead)
	}

	log.Info("enrich: batch complete",
		zap.Bool("success", outcome.Success),
		zap.Int("failed", len(outcome.Errors)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return e.completeRun(ctx, runID, outcome)
}

func (e *Enricher) resolve(ctx context.Context, req provider.Requested) (provider.Selection, error) {
	if e.chat == nil {
		return provider.Selection{}, eris.Wrap(provider.ErrConfiguration, "enrich: chat client is required")
	}
	if e.scorer == nil || e.extractor == nil {
		return provider.Selection{}, eris.Wrap(provider.ErrConfiguration, "enrich: scorer and extractor are required")
	}
	cat, err := e.chat.Providers(ctx)
	if err != nil {
		return provider.Selection{}, eris.Wrap(err, "enrich: list providers")
	}
	return provider.Resolve(req.Merge(e.settings.Defaults), cat)
}

// enrichLead never panics or returns an error; both end up on the outcome.
func (e *Enricher) enrichLead(ctx context.Context, email string, sel provider.Selection, opts Options) (out model.LeadOutcome) {
	out = model.LeadOutcome{Email: email, EnrichmentData: []model.EnrichmentResult{}}
	if lead, err := model.ParseLead(email); err == nil {
		out.Company = lead.Company
	}
	log := zap.L().With(zap.String("email", email))

	defer func() {
		if r := recover(); r != nil {
			out.Error = fmt.Sprintf("enrich: panic: %v", r)
			log.Error("enrich: lead panicked", zap.Any("panic", r))
		}
	}()

	t, err := session.Run(ctx, email, session.Params{
		Client:             e.chat,
		Planner:            e.planner,
		Selection:          sel,
		FocusMode:          firstNonEmpty(opts.FocusMode, e.settings.FocusMode),
		OptimizationMode:   firstNonEmpty(opts.OptimizationMode, e.settings.OptimizationMode),
		SystemInstructions: opts.SystemInstructions,
		QuestionDelay:      e.settings.QuestionDelay,
		Retry:              e.settings.Retry,
		BreakerThreshold:   e.settings.BreakerThreshold,
	})
	if err != nil {
		out.Error = err.Error()
		log.Warn("enrich: session failed", zap.Error(err))
		return out
	}
	out.Company = t.Lead.Company
	out.ChatID = t.ChatID
	out.EnrichmentData = t.Results

	report, fields, err := e.evaluate(ctx, t.Lead.Company, t.Results, sel)
	if fields != nil {
		out.StructuredFields = fields
	}
	if err != nil {
		out.Error = err.Error()
		log.Warn("enrich: evaluation failed", zap.Error(err))
		return out
	}
	out.Score = &report.Score
	out.Reason = &report.Reason

	log.Info("enrich: lead complete",
		zap.String("chat_id", out.ChatID),
		zap.Float64("score", report.Score),
		zap.Int("failed_questions", t.Failed),
		zap.Int("fields", len(out.StructuredFields)),
	)
	return out
}

// evaluate scores and extracts fields from the evidence, concurrently when
// configured. Sequentially, a scoring failure skips extraction.
func (e *Enricher) evaluate(ctx context.Context, company string, results []model.EnrichmentResult, sel provider.Selection) (model.ScoreReport, model.StructuredFields, error) {
	if !e.settings.ParallelEvidence {
		report, err := e.scorer.Score(ctx, company, results, sel)
		if err != nil {
			return model.ScoreReport{}, nil, err
		}
		return report, e.extractor.Extract(ctx, company, results, sel), nil
	}

	var report model.ScoreReport
	var fields model.StructuredFields
	var g errgroup.Group
	g.Go(func() error {
		var err error
		report, err = e.scorer.Score(ctx, company, results, sel)
		return err
	})
	g.Go(func() error {
		fields = e.extractor.Extract(ctx, company, results, sel)
		return nil
	})
	if err := g.Wait(); err != nil {
		return model.ScoreReport{}, fields, err
	}
	return report, fields, nil
}

func (e *Enricher) push(ctx context.Context, lead *model.LeadOutcome) {
	if e.crm == nil {
		return
	}
	id, err := e.crm.Push(ctx, *lead)
	if err != nil {
		lead.CRMError = err.Error()
		zap.L().Warn("enrich: crm push failed", zap.String("email", lead.Email), zap.Error(err))
		return
	}
	lead.SalesforceID = id
}

func (e *Enricher) createRun(ctx context.Context, source model.RunSource, emails []string) string {
	if e.store == nil {
		return ""
	}
	if source == "" {
		source = model.RunSourceCLI
	}
	run, err := e.store.CreateRun(ctx, source, emails)
	if err != nil {
		zap.L().Warn("enrich: failed to record run", zap.Error(err))
		return ""
	}
	return run.ID
}

func (e *Enricher) saveLead(ctx context.Context, runID string, lead model.LeadOutcome) {
	if runID == "" {
		return
	}
	if err := e.store.SaveLead(ctx, runID, lead); err != nil {
		zap.L().Warn("enrich: failed to record lead",
			zap.String("run_id", runID),
			zap.String("email", lead.Email),
			zap.Error(err),
		)
	}
}

func (e *Enricher) completeRun(ctx context.Context, runID string, outcome model.BatchOutcome) model.BatchOutcome {
	if runID == "" {
		return outcome
	}
	outcome.RunID = runID
	if err := e.store.CompleteRun(context.WithoutCancel(ctx), runID, outcome); err != nil {
		zap.L().Warn("enrich: failed to complete run", zap.String("run_id", runID), zap.Error(err))
	}
	return outcome
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
