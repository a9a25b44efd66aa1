// Package exporter writes query results as downloadable files.
package exporter

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/SimonWaldherr/sqlmystery/internal/query"
)

// Options controls exporter behavior.
type Options struct {
	PrettyJSON   bool
	CSVNoHeader  bool
	CSVDelimiter rune
}

// ValueToString renders a cell the way the page shows it. NULL is empty.
func ValueToString(v any) string {
	if v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case json.Number:
		return t.String()
	case time.Time:
		return t.Format("2006-01-02 15:04:05")
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(t)
	}
}

func requireRows(out query.Outcome) error {
	if out.Kind == query.Failed {
		return fmt.Errorf("cannot export failed query: %s", out.Reason)
	}
	return nil
}

// WriteCSV writes the outcome's rows as CSV. Column order is preserved and
// an empty outcome yields only the header.
func WriteCSV(w io.Writer, out query.Outcome, opts Options) error {
	if err := requireRows(out); err != nil {
		return err
	}
	csvw := csv.NewWriter(w)
	if opts.CSVDelimiter != 0 {
		csvw.Comma = opts.CSVDelimiter
	}
	if !opts.CSVNoHeader && len(out.Columns) > 0 {
		if err := csvw.Write(out.Columns); err != nil {
			return err
		}
	}
	for _, r := range out.Rows {
		row := make([]string, len(r))
		for i, v := range r {
			row[i] = ValueToString(v)
		}
		if err := csvw.Write(row); err != nil {
			return err
		}
	}
	csvw.Flush()
	return csvw.Error()
}

// WriteJSON writes the rows as a JSON array of objects keyed by column.
// Duplicate column names keep the last value.
func WriteJSON(w io.Writer, out query.Outcome, opts Options) error {
	if err := requireRows(out); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	if opts.PrettyJSON {
		enc.SetIndent("", "  ")
	}
	rows := make([]map[string]any, len(out.Rows))
	for i, r := range out.Rows {
		m := make(map[string]any, len(out.Columns))
		for j, c := range out.Columns {
			if j < len(r) {
				m[c] = r[j]
			}
		}
		rows[i] = m
	}
	return enc.Encode(rows)
}

type xmlField struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

type xmlRow struct {
	Fields []xmlField `xml:"col"`
}

type xmlRows struct {
	XMLName xml.Name `xml:"rows"`
	Rows    []xmlRow `xml:"row"`
}

// WriteXML writes <rows><row><col name="...">value</col>...</row></rows>.
// Column names go into an attribute since SQL names are rarely valid tags.
func WriteXML(w io.Writer, out query.Outcome) error {
	if err := requireRows(out); err != nil {
		return err
	}
	xr := xmlRows{Rows: make([]xmlRow, 0, len(out.Rows))}
	for _, r := range out.Rows {
		row := xmlRow{Fields: make([]xmlField, 0, len(out.Columns))}
		for j, c := range out.Columns {
			if j < len(r) {
				row.Fields = append(row.Fields, xmlField{Name: c, Value: ValueToString(r[j])})
			}
		}
		xr.Rows = append(xr.Rows, row)
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(xr); err != nil {
		return err
	}
	return enc.Flush()
}

// Write dispatches on format: "csv", "json" or "xml".
func Write(w io.Writer, format string, out query.Outcome, opts Options) error {
	switch format {
	case "csv":
		return WriteCSV(w, out, opts)
	case "json":
		return WriteJSON(w, out, opts)
	case "xml":
		return WriteXML(w, out)
	default:
		return fmt.Errorf("unsupported export format %q", format)
	}
}

// ContentType returns the MIME type for a supported format.
func ContentType(format string) string {
	switch format {
	case "csv":
		return "text/csv; charset=utf-8"
	case "xml":
		return "application/xml; charset=utf-8"
	default:
		return "application/json"
	}
}
