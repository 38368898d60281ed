package extract

import (
	"fmt"
	"strings"

	"github.com/sells-group/lead-enricher/internal/model"
)

const systemPrompt = "You extract CRM fields from research notes. You reply with a single JSON object and nothing else."

var fieldHints = map[string]string{
	model.FieldCustomerType:  "B2B, B2C or Both",
	model.FieldContactSearch: "best department or role to contact for a sales conversation",
	model.FieldPhone:         "main company phone number",
	model.FieldMobile:        "mobile phone number, if one is published",
	model.FieldDescription:   "one-sentence company description",
	model.FieldStreet:        "headquarters street address",
	model.FieldCity:          "headquarters city",
	model.FieldState:         "headquarters state or province",
	model.FieldZip:           "headquarters postal code",
	model.FieldCountry:       "headquarters country",
}

// BuildPrompt renders the extraction prompt for a company's evidence.
func BuildPrompt(company string, results []model.EnrichmentResult) string {
	var fields strings.Builder
	for _, name := range model.FieldNames {
		fmt.Fprintf(&fields, "  %q: string or null, // %s\n", name, fieldHints[name])
	}

	return fmt.Sprintf(`From the research below about "%s", fill in this JSON object:
{
%s}

Research:
%s
Return ONLY the JSON object, with no explanation and no code fences. Use null for any field the research does not answer.`,
		company, fields.String(), model.FormatEvidence(results))
}
