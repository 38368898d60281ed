package export

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// ReadEmails loads a lead list. CSV and XLSX files use the column headed
// "email" (any case) or, without one, the first column; any other file is
// read one address per line. Values are returned as found, minus blanks.
func ReadEmails(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "export: open csv")
		}
		defer f.Close() //nolint:errcheck
		r := csv.NewReader(f)
		r.FieldsPerRecord = -1
		rows, err := r.ReadAll()
		if err != nil {
			return nil, eris.Wrap(err, "export: read csv")
		}
		return emailColumn(rows), nil
	case ".xlsx":
		f, err := xlsx.OpenFile(path)
		if err != nil {
			return nil, eris.Wrap(err, "export: open xlsx")
		}
		if len(f.Sheets) == 0 {
			return nil, eris.New("export: xlsx has no sheets")
		}
		var rows [][]string
		for _, row := range f.Sheets[0].Rows {
			cells := make([]string, len(row.Cells))
			for j, cell := range row.Cells {
				cells[j] = cell.String()
			}
			rows = append(rows, cells)
		}
		return emailColumn(rows), nil
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "export: open list")
		}
		defer f.Close() //nolint:errcheck
		return readLines(f)
	}
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, eris.Wrap(sc.Err(), "export: read list")
}

// emailColumn picks the email column from tabular rows. A header row is
// recognised by an "email" cell; otherwise every row is data.
func emailColumn(rows [][]string) []string {
	if len(rows) == 0 {
		return nil
	}
	col, start := 0, 0
	for i, h := range rows[0] {
		if strings.EqualFold(strings.TrimSpace(h), "email") {
			col, start = i, 1
			break
		}
	}

	var out []string
	for _, row := range rows[start:] {
		if col >= len(row) {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			out = append(out, v)
		}
	}
	return out
}
