package main

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/enrich"
	"github.com/sells-group/lead-enricher/internal/export"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/provider"
	"github.com/sells-group/lead-enricher/pkg/notion"
)

var (
	enrichFile           string
	enrichFromNotion     bool
	enrichOut            string
	enrichPushSalesforce bool
	enrichChatProvider   string
	enrichChatModel      string
	enrichFocusMode      string
	enrichOptimization   string
	enrichSystem         string
)

var enrichCmd = &cobra.Command{
	Use:   "enrich [email...]",
	Short: "Enrich a batch of leads",
	Long:  "Enriches leads given as arguments, read from --file (csv, xlsx or one email per line), or pulled from the Notion lead queue with --notion.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mode := "enrich"
		if enrichFromNotion {
			mode = "notion"
		}
		env, err := initPipeline(ctx, mode)
		if err != nil {
			return err
		}
		defer env.Close()

		if enrichPushSalesforce && !env.CRM {
			return eris.New("enrich: --push-salesforce requires salesforce.enabled")
		}

		opts := enrichOptions()
		var queued []notion.QueuedLead
		var emails []string
		if enrichFromNotion {
			nc := notion.NewClient(cfg.Notion.Token)
			queued, err = notion.QueuedLeads(ctx, nc, cfg.Notion.LeadDB)
			if err != nil {
				return err
			}
			emails = queuedEmails(queued)
			opts.Source = model.RunSourceNotion

			outcome := env.Enricher.EnrichBatch(ctx, emails, opts)
			writeBackNotion(ctx, nc, queued, outcome)
			return reportOutcome(outcome)
		}

		emails, err = collectEmails(args, enrichFile)
		if err != nil {
			return err
		}
		outcome := env.Enricher.EnrichBatch(ctx, emails, opts)
		return reportOutcome(outcome)
	},
}

func init() {
	enrichCmd.Flags().StringVar(&enrichFile, "file", "", "read emails from a csv, xlsx or text file")
	enrichCmd.Flags().BoolVar(&enrichFromNotion, "notion", false, "enrich the queued leads in the Notion lead database")
	enrichCmd.Flags().StringVar(&enrichOut, "out", "", "write results to a .json, .csv or .xlsx file instead of stdout")
	enrichCmd.Flags().BoolVar(&enrichPushSalesforce, "push-salesforce", false, "upsert successful leads into Salesforce")
	enrichCmd.Flags().StringVar(&enrichChatProvider, "chat-provider", "", "chat model provider (default from config or backend)")
	enrichCmd.Flags().StringVar(&enrichChatModel, "chat-model", "", "chat model name (default from config or backend)")
	enrichCmd.Flags().StringVar(&enrichFocusMode, "focus-mode", "", "backend focus mode (default from config)")
	enrichCmd.Flags().StringVar(&enrichOptimization, "optimization-mode", "", "backend optimization mode: speed, balanced or quality")
	enrichCmd.Flags().StringVar(&enrichSystem, "system-instructions", "", "extra system instructions sent with every question")
	rootCmd.AddCommand(enrichCmd)
}

func enrichOptions() enrich.Options {
	return enrich.Options{
		Requested: provider.Requested{
			ChatProvider: enrichChatProvider,
			ChatModel:    enrichChatModel,
		},
		FocusMode:          enrichFocusMode,
		OptimizationMode:   enrichOptimization,
		SystemInstructions: enrichSystem,
		Source:             model.RunSourceCLI,
		PushCRM:            enrichPushSalesforce,
	}
}

// collectEmails merges positional emails with those read from file.
func collectEmails(args []string, file string) ([]string, error) {
	emails := append([]string{}, args...)
	if file != "" {
		fromFile, err := export.ReadEmails(file)
		if err != nil {
			return nil, err
		}
		emails = append(emails, fromFile...)
	}
	if len(emails) == 0 {
		return nil, eris.New("enrich: provide emails as arguments, --file or --notion")
	}
	return emails, nil
}

func queuedEmails(queued []notion.QueuedLead) []string {
	emails := make([]string, 0, len(queued))
	for _, q := range queued {
		emails = append(emails, q.Email)
	}
	return emails
}

// notionUpdate is the status written back to one queue page.
type notionUpdate struct {
	PageID string
	Status string
	Score  *float64
}

// notionUpdates matches outcomes back to queue pages by normalized email.
// Pages whose email was rejected or never processed are marked failed.
func notionUpdates(queued []notion.QueuedLead, outcome model.BatchOutcome) []notionUpdate {
	byEmail := make(map[string]model.LeadOutcome, len(outcome.Results))
	for _, r := range outcome.Results {
		byEmail[r.Email] = r
	}

	updates := make([]notionUpdate, 0, len(queued))
	for _, q := range queued {
		lead, ok := byEmail[strings.ToLower(strings.TrimSpace(q.Email))]
		if !ok || lead.Failed() {
			updates = append(updates, notionUpdate{PageID: q.PageID, Status: notion.StatusFailed})
			continue
		}
		updates = append(updates, notionUpdate{PageID: q.PageID, Status: notion.StatusEnriched, Score: lead.Score})
	}
	return updates
}

func writeBackNotion(ctx context.Context, nc notion.Client, queued []notion.QueuedLead, outcome model.BatchOutcome) {
	for _, u := range notionUpdates(queued, outcome) {
		if err := notion.UpdateLeadStatus(context.WithoutCancel(ctx), nc, u.PageID, u.Status, u.Score); err != nil {
			zap.L().Warn("notion write-back failed", zap.String("page_id", u.PageID), zap.Error(err))
		}
	}
}

// reportOutcome writes the batch to --out or stdout and fails the command
// when any lead failed.
func reportOutcome(outcome model.BatchOutcome) error {
	if enrichOut != "" {
		if err := export.WriteFile(enrichOut, outcome); err != nil {
			return err
		}
		zap.L().Info("results written", zap.String("path", enrichOut), zap.Int("leads", len(outcome.Results)))
	} else if err := export.WriteJSON(os.Stdout, outcome); err != nil {
		return err
	}

	if !outcome.Success {
		return eris.Errorf("enrich: %d error(s): %s", len(outcome.Errors), strings.Join(outcome.Errors, "; "))
	}
	return nil
}
