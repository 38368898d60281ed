// Package scorer rates an enriched lead against a fixed 90-point rubric.
package scorer

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/llm"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/provider"
)

// MaxScore is the rubric total.
const MaxScore = 90

// ReasonUnavailable is the reason reported when the reply has no reason.
const ReasonUnavailable = "N/A"

var (
	totalRe  = regexp.MustCompile(`(?i)total\s+score\s*:\s*\**\s*(-?\d+(?:\.\d+)?)`)
	reasonRe = regexp.MustCompile(`(?im)^\W*reason\s*:`)
)

// Scorer sends the evidence for one lead to a model and parses its rubric
// reply.
type Scorer struct {
	model llm.Completer
}

// New creates a Scorer.
func New(m llm.Completer) *Scorer {
	return &Scorer{model: m}
}

// Score rates the lead. It fails only when the model call fails; a reply
// that does not follow the rubric format scores 0.
func (s *Scorer) Score(ctx context.Context, company string, results []model.EnrichmentResult, sel provider.Selection) (model.ScoreReport, error) {
	reply, err := s.model.Complete(ctx, llm.Request{
		Step:      "score",
		System:    systemPrompt,
		Prompt:    BuildPrompt(company, results),
		Selection: sel,
	})
	if err != nil {
		return model.ScoreReport{}, eris.Wrapf(err, "scorer: score %s", company)
	}

	report := ParseScore(reply)
	zap.L().Debug("scorer: parsed score",
		zap.String("company", company),
		zap.Float64("score", report.Score),
		zap.Bool("has_reason", report.Reason != ReasonUnavailable),
	)
	return report, nil
}

// BuildPrompt renders the rubric prompt for the given evidence.
func BuildPrompt(company string, results []model.EnrichmentResult) string {
	return fmt.Sprintf(rubricPrompt, company, model.FormatEvidence(results))
}

// ParseScore reads a rubric reply. The score is the number after
// "Total Score:", clamped to 0..90, or 0 if there is none. When the reply has
// a "Reason:" line the whole trimmed reply is kept as the reason; otherwise
// the reason is "N/A".
func ParseScore(text string) model.ScoreReport {
	report := model.ScoreReport{Reason: ReasonUnavailable}

	if m := totalRe.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			report.Score = min(max(v, 0), MaxScore)
		}
	}
	if reasonRe.MatchString(text) {
		report.Reason = strings.TrimSpace(text)
	}
	return report
}
