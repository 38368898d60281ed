// Package crm writes enriched leads back to the CRM.
package crm

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-enricher/internal/model"
	"github.com/sells-group/lead-enricher/pkg/salesforce"
)

// Sink receives successfully enriched leads.
type Sink interface {
	// Push writes outcome to the CRM and returns the CRM record ID.
	Push(ctx context.Context, outcome model.LeadOutcome) (string, error)
}

// DefaultFieldMap maps structured field names to Salesforce Lead fields.
var DefaultFieldMap = map[string]string{
	model.FieldCustomerType:  "Customer_Type__c",
	model.FieldContactSearch: "Contact_Search__c",
	model.FieldPhone:         "Phone",
	model.FieldMobile:        "MobilePhone",
	model.FieldDescription:   "Description",
	model.FieldStreet:        "Street",
	model.FieldCity:          "City",
	model.FieldState:         "State",
	model.FieldZip:           "PostalCode",
	model.FieldCountry:       "Country",
}

// DefaultScoreField is the Lead field that receives the rubric score.
const DefaultScoreField = "Lead_Score__c"

// SalesforceSink upserts a Salesforce Lead per outcome, matched by Email.
type SalesforceSink struct {
	client     salesforce.Client
	fieldMap   map[string]string
	scoreField string
}

// Option configures a SalesforceSink.
type Option func(*SalesforceSink)

// WithFieldMap replaces the structured-field to Salesforce-field mapping.
func WithFieldMap(m map[string]string) Option {
	return func(s *SalesforceSink) {
		if len(m) > 0 {
			s.fieldMap = m
		}
	}
}

// WithScoreField sets the Lead field written with the score. An empty name
// skips the score.
func WithScoreField(name string) Option {
	return func(s *SalesforceSink) {
		s.scoreField = name
	}
}

// NewSalesforceSink creates a Sink backed by client.
func NewSalesforceSink(client salesforce.Client, opts ...Option) *SalesforceSink {
	s := &SalesforceSink{
		client:     client,
		fieldMap:   DefaultFieldMap,
		scoreField: DefaultScoreField,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SalesforceSink) Push(ctx context.Context, outcome model.LeadOutcome) (string, error) {
	if outcome.Failed() {
		return "", eris.Errorf("crm: lead %s failed enrichment", outcome.Email)
	}
	fields := s.Fields(outcome)
	id, created, err := salesforce.UpsertLead(ctx, s.client, outcome.Email, fields)
	if err != nil {
		return "", eris.Wrapf(err, "crm: push %s", outcome.Email)
	}
	zap.L().Info("crm: lead pushed",
		zap.String("email", outcome.Email),
		zap.String("salesforce_id", id),
		zap.Bool("created", created),
		zap.Int("fields", len(fields)),
	)
	return id, nil
}

// Fields builds the Lead record for outcome. Unknown (null) and empty values
// are left out so existing CRM data is not blanked.
func (s *SalesforceSink) Fields(outcome model.LeadOutcome) map[string]any {
	fields := map[string]any{
		"Company":  outcome.Company,
		"LastName": lastName(outcome.Email),
	}
	if lead, err := model.ParseLead(outcome.Email); err == nil {
		fields["Website"] = lead.Domain
	}
	for name, sfName := range s.fieldMap {
		if v := strings.TrimSpace(outcome.StructuredFields.Value(name)); v != "" {
			fields[sfName] = v
		}
	}
	if s.scoreField != "" && outcome.Score != nil {
		fields[s.scoreField] = *outcome.Score
	}
	return fields
}

// lastName is the email local part; Salesforce requires LastName on create.
func lastName(email string) string {
	local, _, _ := strings.Cut(email, "@")
	if local == "" {
		return "Unknown"
	}
	return local
}
