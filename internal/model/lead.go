package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Lead is a prospective contact identified by email. Company and Domain are
// derived from the address and are never persisted on their own.
type Lead struct {
	Email   string `json:"email"`
	Company string `json:"company"`
	Domain  string `json:"domain"`
}

// ParseLead derives the company identity from an email address. The domain is
// everything after the first "@" and the company is the domain up to its first
// ".". The email itself is returned as given (callers normalize beforehand).
func ParseLead(email string) (Lead, error) {
	at := strings.Index(email, "@")
	if at < 0 {
		return Lead{}, eris.Errorf("model: email %q has no @", email)
	}
	domain := email[at+1:]
	if domain == "" {
		return Lead{}, eris.Errorf("model: email %q has an empty domain", email)
	}
	company, _, _ := strings.Cut(domain, ".")
	return Lead{
		Email:   email,
		Company: company,
		Domain:  domain,
	}, nil
}

// NormalizeEmails trims, lowercases and de-duplicates the given addresses,
// dropping anything empty or without an "@". Order of first appearance is kept.
func NormalizeEmails(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		e := strings.ToLower(strings.TrimSpace(r))
		if e == "" || !strings.Contains(e, "@") {
			continue
		}
		if seen[e] {
			continue
		}
		seen[e] = true
		out = append(out, e)
	}
	return out
}
