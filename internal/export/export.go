// Package export writes batch outcomes to JSON, CSV and XLSX files and reads
// lead email lists from the same formats.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-enricher/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// FormatFor picks the format from the file extension. Unknown extensions
// are JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".xlsx":
		return FormatXLSX
	default:
		return FormatJSON
	}
}

// Columns are the leading per-lead output columns; the structured fields
// follow in model.FieldNames order, then the CRM columns.
var Columns = []string{"Email", "Company", "Chat ID", "Score", "Reason", "Error"}

const scoreColumn = 3

var crmColumns = []string{"Salesforce ID", "CRM Error"}

// Header returns the full tabular header row.
func Header() []string {
	h := make([]string, 0, len(Columns)+len(model.FieldNames)+len(crmColumns))
	h = append(h, Columns...)
	h = append(h, model.FieldNames...)
	return append(h, crmColumns...)
}

// Row flattens one lead outcome in Header order.
func Row(o model.LeadOutcome) []string {
	row := make([]string, 0, len(Columns)+len(model.FieldNames)+len(crmColumns))
	row = append(row, o.Email, o.Company, o.ChatID, formatScore(o.Score), deref(o.Reason), o.Error)
	for _, name := range model.FieldNames {
		row = append(row, o.StructuredFields.Value(name))
	}
	return append(row, o.SalesforceID, o.CRMError)
}

// WriteFile writes outcome to path in the format its extension selects.
func WriteFile(path string, outcome model.BatchOutcome) error {
	switch FormatFor(path) {
	case FormatXLSX:
		return WriteXLSX(path, outcome.Results)
	case FormatCSV:
		return writeWith(path, func(w io.Writer) error { return WriteCSV(w, outcome.Results) })
	default:
		return writeWith(path, func(w io.Writer) error { return WriteJSON(w, outcome) })
	}
}

func writeWith(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrap(err, "export: create file")
	}
	if err := write(f); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrap(f.Close(), "export: close file")
}

// WriteJSON writes the whole batch outcome as indented JSON.
func WriteJSON(w io.Writer, outcome model.BatchOutcome) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return eris.Wrap(enc.Encode(outcome), "export: encode json")
}

// WriteCSV writes one row per lead.
func WriteCSV(w io.Writer, results []model.LeadOutcome) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header()); err != nil {
		return eris.Wrap(err, "export: write csv header")
	}
	for _, r := range results {
		if err := cw.Write(Row(r)); err != nil {
			return eris.Wrapf(err, "export: write csv row %s", r.Email)
		}
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "export: flush csv")
}

// Sheet names used by WriteXLSX.
const (
	SheetLeads    = "Leads"
	SheetEvidence = "Evidence"
)

// WriteXLSX writes a Leads sheet (one row per lead) and an Evidence sheet
// (one row per question and answer).
func WriteXLSX(path string, results []model.LeadOutcome) error {
	f := xlsx.NewFile()

	leads, err := f.AddSheet(SheetLeads)
	if err != nil {
		return eris.Wrap(err, "export: add leads sheet")
	}
	addRow(leads, Header())
	for _, r := range results {
		row := leads.AddRow()
		for i, v := range Row(r) {
			cell := row.AddCell()
			if i == scoreColumn && r.Score != nil {
				cell.SetFloat(*r.Score)
				continue
			}
			cell.SetString(v)
		}
	}

	evidence, err := f.AddSheet(SheetEvidence)
	if err != nil {
		return eris.Wrap(err, "export: add evidence sheet")
	}
	addRow(evidence, []string{"Email", "#", "Question", "Answer"})
	for _, r := range results {
		for i, qa := range r.EnrichmentData {
			addRow(evidence, []string{r.Email, strconv.Itoa(i + 1), qa.Question, qa.Answer})
		}
	}

	return eris.Wrap(f.Save(path), "export: save xlsx")
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

func formatScore(score *float64) string {
	if score == nil {
		return ""
	}
	return strconv.FormatFloat(*score, 'f', -1, 64)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
