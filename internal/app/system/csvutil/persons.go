// internal/app/system/csvutil/persons.go
package csvutil

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/dalemusser/memberhub/internal/app/store/queries/personlist"
	"github.com/dalemusser/memberhub/internal/app/system/format"
)

// PersonsHeader is the first line of a persons export.
var PersonsHeader = []string{"Name", "Email", "Phone", "Status", "Active organizations", "Created"}

// WritePersons writes rows as CSV with a header line.
func WritePersons(w io.Writer, rows []personlist.Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(PersonsHeader); err != nil {
		return err
	}
	for _, r := range rows {
		created := r.CreatedAt
		rec := []string{
			cell(r.Name),
			cell(r.Email),
			cell(r.Phone),
			r.Status,
			cell(strings.Join(r.OrgNames, "; ")),
			format.Date(&created),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// cell neutralises values a spreadsheet would evaluate as a formula.
func cell(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}
