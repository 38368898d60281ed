package salesforce

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Lead represents a Salesforce Lead record.
type Lead struct {
	ID          string `json:"Id" salesforce:"Id"`
	Email       string `json:"Email" salesforce:"Email"`
	Company     string `json:"Company" salesforce:"Company"`
	LastName    string `json:"LastName" salesforce:"LastName"`
	Status      string `json:"Status" salesforce:"Status"`
	Phone       string `json:"Phone" salesforce:"Phone"`
	MobilePhone string `json:"MobilePhone" salesforce:"MobilePhone"`
	Website     string `json:"Website" salesforce:"Website"`
	City        string `json:"City" salesforce:"City"`
	State       string `json:"State" salesforce:"State"`
	Country     string `json:"Country" salesforce:"Country"`
}

// leadFields are the SOQL fields selected for Lead queries.
var leadFields = []string{
	"Id", "Email", "Company", "LastName", "Status",
	"Phone", "MobilePhone", "Website", "City", "State", "Country",
}

// FindLeadByEmail queries Salesforce for a Lead with the given email.
// Returns nil if no lead is found.
func FindLeadByEmail(ctx context.Context, c Client, email string) (*Lead, error) {
	soql := fmt.Sprintf(
		"SELECT %s FROM Lead WHERE Email = '%s' LIMIT 1",
		strings.Join(leadFields, ", "),
		escapeSoql(email),
	)

	var leads []Lead
	if err := c.Query(ctx, soql, &leads); err != nil {
		return nil, eris.Wrap(err, fmt.Sprintf("sf: find lead by email %s", email))
	}
	if len(leads) == 0 {
		return nil, nil
	}
	return &leads[0], nil
}

// UpsertLead updates the Lead matching email or creates one when none
// exists. It returns the record ID and whether the lead was created.
func UpsertLead(ctx context.Context, c Client, email string, fields map[string]any) (string, bool, error) {
	if email == "" {
		return "", false, eris.New("sf: lead email is required")
	}
	if len(fields) == 0 {
		return "", false, eris.New("sf: no fields to write")
	}

	existing, err := FindLeadByEmail(ctx, c, email)
	if err != nil {
		return "", false, err
	}
	if existing != nil {
		if err := c.UpdateOne(ctx, "Lead", existing.ID, fields); err != nil {
			return "", false, eris.Wrap(err, fmt.Sprintf("sf: update lead %s", existing.ID))
		}
		return existing.ID, false, nil
	}

	record := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["Email"] = email
	id, err := c.InsertOne(ctx, "Lead", record)
	if err != nil {
		return "", false, eris.Wrap(err, fmt.Sprintf("sf: create lead %s", email))
	}
	return id, true, nil
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", "\\'")
}
