package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		email       string
		wantCompany string
		wantDomain  string
		wantErr     string
	}{
		{name: "simple", email: "jane@acme.com", wantCompany: "acme", wantDomain: "acme.com"},
		{name: "subdomain", email: "ops@mail.globex.co.uk", wantCompany: "mail", wantDomain: "mail.globex.co.uk"},
		{name: "no dot", email: "root@localhost", wantCompany: "localhost", wantDomain: "localhost"},
		{name: "missing at", email: "nobody", wantErr: "has no @"},
		{name: "empty domain", email: "nobody@", wantErr: "empty domain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			lead, err := ParseLead(tt.email)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.email, lead.Email)
			assert.Equal(t, tt.wantCompany, lead.Company)
			assert.Equal(t, tt.wantDomain, lead.Domain)
		})
	}
}

func TestNormalizeEmails(t *testing.T) {
	t.Parallel()

	t.Run("trims lowercases and dedupes", func(t *testing.T) {
		t.Parallel()
		got := NormalizeEmails([]string{" A@b.com ", "bad-email", "a@b.com"})
		assert.Equal(t, []string{"a@b.com"}, got)
	})

	t.Run("keeps first-seen order", func(t *testing.T) {
		t.Parallel()
		got := NormalizeEmails([]string{"z@z.io", "", "   ", "a@a.io", "Z@Z.IO"})
		assert.Equal(t, []string{"z@z.io", "a@a.io"}, got)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, NormalizeEmails(nil))
	})
}
