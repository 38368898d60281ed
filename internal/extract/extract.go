// Package extract pulls CRM-style fields for a lead out of its enrichment
// answers.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/llm"
	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/internal/provider"
)

// DefaultRegion is used to parse phone numbers written without a country code.
const DefaultRegion = "US"

var objectRe = regexp.MustCompile(`(?s)\{.*?\}`)

// Extractor asks a model for the structured fields of one lead.
type Extractor struct {
	model  llm.Completer
	region string
}

// New creates an Extractor. region is the default phone region; empty means US.
func New(m llm.Completer, region string) *Extractor {
	if region == "" {
		region = DefaultRegion
	}
	return &Extractor{model: m, region: strings.ToUpper(region)}
}

// Extract returns the fields the model found. It never fails: a failed call
// is logged and yields an empty set.
func (e *Extractor) Extract(ctx context.Context, company string, results []model.EnrichmentResult, sel provider.Selection) model.StructuredFields {
	reply, err := e.model.Complete(ctx, llm.Request{
		Step:      "extract",
		System:    systemPrompt,
		Prompt:    BuildPrompt(company, results),
		Selection: sel,
	})
	if err != nil {
		zap.L().Warn("extract: model call failed",
			zap.String("company", company),
			zap.Error(err),
		)
		return model.StructuredFields{}
	}

	fields := ParseFields(reply)
	if len(fields) == 0 {
		zap.L().Debug("extract: no fields in reply",
			zap.String("company", company),
			zap.Int("reply_len", len(reply)),
		)
	}
	return NormalizePhones(fields, e.region)
}

// ParseFields decodes the first {...} in text (shortest match) as a JSON
// object. Only keys in model.FieldNames are kept. String values are kept,
// null becomes nil, and other values are kept as their JSON text. Anything
// that does not decode yields an empty set.
func ParseFields(text string) model.StructuredFields {
	out := model.StructuredFields{}

	match := objectRe.FindString(text)
	if match == "" {
		return out
	}

	dec := json.NewDecoder(strings.NewReader(match))
	dec.UseNumber()
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return out
	}

	for k, v := range raw {
		if !slices.Contains(model.FieldNames, k) {
			continue
		}
		v = bytes.TrimSpace(v)
		switch {
		case bytes.Equal(v, []byte("null")):
			out[k] = nil
		case len(v) > 0 && v[0] == '"':
			var s string
			if err := json.Unmarshal(v, &s); err != nil {
				continue
			}
			out[k] = &s
		default:
			s := string(v)
			out[k] = &s
		}
	}
	return out
}

// NormalizePhones rewrites the Phone and Mobile values in E.164 form.
// Numbers that do not parse as valid are kept trimmed.
func NormalizePhones(fields model.StructuredFields, region string) model.StructuredFields {
	for _, name := range []string{model.FieldPhone, model.FieldMobile} {
		v, ok := fields[name]
		if !ok || v == nil {
			continue
		}
		n := NormalizeE164(*v, region)
		fields[name] = &n
	}
	return fields
}

// NormalizeE164 formats a phone number as E.164, or returns the trimmed input
// if it is not a valid number.
func NormalizeE164(input, region string) string {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return trimmed
	}
	number, err := phonenumbers.Parse(trimmed, region)
	if err != nil || !phonenumbers.IsValidNumber(number) {
		return trimmed
	}
	return phonenumbers.Format(number, phonenumbers.E164)
}
