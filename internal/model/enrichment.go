package model

// EnrichmentResult pairs one planned question with its answer. When the
// question failed, Answer holds an error placeholder instead.
type EnrichmentResult struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// ScoreReport is the parsed outcome of the rubric scoring call.
type ScoreReport struct {
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// StructuredFields maps CRM field names to extracted values. A nil value means
// the model reported the field as unknown.
type StructuredFields map[string]*string

// CRM field names requested from the extraction call.
const (
	FieldCustomerType  = "CustomerType"
	FieldContactSearch = "ContactSearch"
	FieldPhone         = "Phone"
	FieldMobile        = "Mobile"
	FieldDescription   = "Description"
	FieldStreet        = "Street"
	FieldCity          = "City"
	FieldState         = "State"
	FieldZip           = "Zip"
	FieldCountry       = "Country"
)

// FieldNames lists the structured fields in prompt order.
var FieldNames = []string{
	FieldCustomerType,
	FieldContactSearch,
	FieldPhone,
	FieldMobile,
	FieldDescription,
	FieldStreet,
	FieldCity,
	FieldState,
	FieldZip,
	FieldCountry,
}

// Value returns the field value or "" when absent or null.
func (f StructuredFields) Value(name string) string {
	if v, ok := f[name]; ok && v != nil {
		return *v
	}
	return ""
}

// LeadOutcome is the fully assembled enrichment of one email.
type LeadOutcome struct {
	Email            string             `json:"email"`
	Company          string             `json:"company"`
	ChatID           string             `json:"chatId"`
	EnrichmentData   []EnrichmentResult `json:"enrichmentData"`
	Score            *float64           `json:"score,omitempty"`
	Reason           *string            `json:"reason,omitempty"`
	StructuredFields StructuredFields   `json:"structuredFields,omitempty"`
	Error            string             `json:"error,omitempty"`
	SalesforceID     string             `json:"salesforceId,omitempty"`
	CRMError         string             `json:"crmError,omitempty"`
}

// Failed reports whether the lead ended with an error.
func (o LeadOutcome) Failed() bool {
	return o.Error != ""
}

// BatchOutcome aggregates the outcomes of one enrichment batch. Success is
// true iff no lead failed.
type BatchOutcome struct {
	Success bool          `json:"success"`
	Results []LeadOutcome `json:"results"`
	Errors  []string      `json:"errors"`
	// RunID identifies the recorded run when a store is configured.
	RunID string `json:"runId,omitempty"`
}

// NewFailedBatch returns an unsuccessful outcome carrying only batch-level errors.
func NewFailedBatch(errs ...string) BatchOutcome {
	return BatchOutcome{
		Success: false,
		Results: []LeadOutcome{},
		Errors:  errs,
	}
}
