package model

import (
	"fmt"
	"strings"
)

// FormatEvidence renders the question/answer pairs as one numbered text
// block for the scoring and extraction prompts.
func FormatEvidence(results []EnrichmentResult) string {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "Q%d: %s\nA%d: %s\n", i+1, r.Question, i+1, r.Answer)
	}
	return b.String()
}
