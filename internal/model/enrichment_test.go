package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredFieldsValue(t *testing.T) {
	t.Parallel()

	city := "Austin"
	fields := StructuredFields{FieldCity: &city, FieldCountry: nil}
	assert.Equal(t, "Austin", fields.Value(FieldCity))
	assert.Equal(t, "", fields.Value(FieldCountry))
	assert.Equal(t, "", fields.Value(FieldZip))
}

func TestLeadOutcomeJSONOmitsUnsetOptionals(t *testing.T) {
	t.Parallel()

	out := LeadOutcome{Email: "a@b.com", Company: "b", ChatID: "c1", EnrichmentData: []EnrichmentResult{}}
	data, err := json.Marshal(out)
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"a@b.com","company":"b","chatId":"c1","enrichmentData":[]}`, string(data))
}

func TestNewFailedBatch(t *testing.T) {
	t.Parallel()

	b := NewFailedBatch("boom")
	assert.False(t, b.Success)
	assert.NotNil(t, b.Results)
	assert.Empty(t, b.Results)
	assert.Equal(t, []string{"boom"}, b.Errors)
	assert.Equal(t, RunStatusFailed, StatusFor(b))
	assert.Equal(t, RunStatusComplete, StatusFor(BatchOutcome{Success: true}))
}
