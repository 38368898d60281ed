package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sells-group/lead-enricher/internal/planner"
)

var questionsCmd = &cobra.Command{
	Use:   "questions <email>",
	Short: "Print the questions that would be asked for a lead",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := planner.Load(cfg.Enrichment.QuestionsFile)
		if err != nil {
			return err
		}
		return printQuestions(os.Stdout, p, args[0])
	},
}

func init() {
	rootCmd.AddCommand(questionsCmd)
}

func printQuestions(w io.Writer, p *planner.Planner, email string) error {
	lead, questions, err := p.PlanFor(email)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "%s (%s)\n\n", lead.Company, lead.Domain)
	for i, q := range questions {
		_, _ = fmt.Fprintf(w, "%2d. %s\n", i+1, q)
	}
	return nil
}
