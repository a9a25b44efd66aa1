// Package dataset loads the CSV sources of the mystery into in-memory tables.
//
// A Dataset is an ordered list of named, typed columns and an ordered list of
// rows. The schema is never declared: the first record is the header and the
// column types are inferred from the data, the way a dataframe library would
// do it (INTEGER, REAL, BOOLEAN, or TEXT, with NULL for missing values).
//
// Input handling:
//   - Transparent GZIP input
//   - Encoding: UTF-8, UTF-8 BOM, UTF-16LE/BE (BOM-based)
//   - Fixed delimiter or auto-detection among , ; \t |
//   - Short rows padded with NULL, long rows rejected
//
// Example:
//
//	ds, err := dataset.Load("crimes", "data/crimes.csv", nil)
//	fmt.Printf("%d rows, columns %v\n", len(ds.Rows), ds.ColumnNames())
package dataset

import (
	"bufio"
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyInput is returned when a source has no header record.
var ErrEmptyInput = errors.New("empty input")

// ColumnType is the inferred storage class of a column.
type ColumnType int

const (
	// Text columns hold strings.
	Text ColumnType = iota
	// Integer columns hold int64 values.
	Integer
	// Real columns hold float64 values.
	Real
	// Boolean columns hold bool values.
	Boolean
)

func (t ColumnType) String() string {
	switch t {
	case Integer:
		return "INTEGER"
	case Real:
		return "REAL"
	case Boolean:
		return "BOOLEAN"
	default:
		return "TEXT"
	}
}

// Column is a named, typed column.
type Column struct {
	Name string
	Type ColumnType
}

// Dataset is a parsed source. Rows hold int64, float64, bool, string or nil
// and are never modified after Read returns.
type Dataset struct {
	Name      string
	Columns   []Column
	Rows      [][]any
	Encoding  string // "utf-8", "utf-8-bom", "utf-16le", "utf-16be"
	Delimiter rune
}

// ColumnNames returns the column names in order.
func (d *Dataset) ColumnNames() []string {
	out := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		out[i] = c.Name
	}
	return out
}

// Options configures parsing. All fields are optional.
type Options struct {
	// Delimiter forces a field separator. Zero means auto-detect among
	// DelimiterCandidates.
	Delimiter rune

	// DelimiterCandidates tested during auto-detection. Default: , ; \t |
	DelimiterCandidates []rune

	// NullLiterals are read as NULL (exact match). Defaults to the usual
	// dataframe NA markers ("", "NA", "N/A", "NULL", "NaN", ...).
	NullLiterals []string

	// SampleBytes caps the data used for delimiter detection (default 128KB).
	SampleBytes int
}

// Source names one CSV file and the table it becomes.
type Source struct {
	Name string
	Path string
}

func applyDefaults(o *Options) {
	if len(o.DelimiterCandidates) == 0 {
		o.DelimiterCandidates = []rune{',', ';', '\t', '|'}
	}
	if o.NullLiterals == nil {
		o.NullLiterals = []string{
			"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
			"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
			"n/a", "nan", "null",
		}
	}
	if o.SampleBytes <= 0 {
		o.SampleBytes = 128 * 1024
	}
}

// Load opens path and parses it as the dataset called name.
func Load(name, path string, opts *Options) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", name, err)
	}
	defer f.Close()

	ds, err := Read(name, f, opts)
	if err != nil {
		return nil, fmt.Errorf("load %s from %s: %w", name, path, err)
	}
	return ds, nil
}

// LoadAll loads every source in order and stops at the first failure.
func LoadAll(sources []Source, opts *Options) ([]*Dataset, error) {
	out := make([]*Dataset, 0, len(sources))
	for _, src := range sources {
		ds, err := Load(src.Name, src.Path, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, ds)
	}
	return out, nil
}

// Read parses delimited text from src.
func Read(name string, src io.Reader, opts *Options) (*Dataset, error) {
	o := Options{}
	if opts != nil {
		o = *opts
	}
	applyDefaults(&o)

	ds := &Dataset{Name: name}

	br := bufio.NewReader(maybeGzip(src))
	head, _ := br.Peek(4)
	ds.Encoding = encodingOf(head)

	// BOMOverride strips a UTF-8 BOM and decodes UTF-16 when a UTF-16 BOM
	// is present; plain UTF-8 passes through.
	sr := bufio.NewReaderSize(transform.NewReader(br, unicode.BOMOverride(unicode.UTF8.NewDecoder())), o.SampleBytes)

	delim := o.Delimiter
	if delim == 0 {
		sample, _ := sr.Peek(o.SampleBytes)
		delim = sniffDelimiter(sample, o.DelimiterCandidates)
	}
	ds.Delimiter = delim

	csvr := csv.NewReader(sr)
	csvr.Comma = delim
	csvr.FieldsPerRecord = -1
	csvr.LazyQuotes = true

	header, err := csvr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrEmptyInput
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := mangleColumnNames(header)

	var records [][]string
	for {
		rec, err := csvr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read record: %w", err)
		}
		if len(rec) > len(names) {
			line, _ := csvr.FieldPos(0)
			return nil, fmt.Errorf("expected %d fields in line %d, saw %d", len(names), line, len(rec))
		}
		records = append(records, rec)
	}

	types := inferColumnTypes(records, len(names), o.NullLiterals)
	ds.Columns = make([]Column, len(names))
	for i, n := range names {
		ds.Columns[i] = Column{Name: n, Type: types[i]}
	}

	ds.Rows = make([][]any, len(records))
	for r, rec := range records {
		row := make([]any, len(names))
		for c := range names {
			var cell string
			present := c < len(rec)
			if present {
				cell = rec[c]
			}
			if !present || isNullValue(cell, o.NullLiterals) {
				continue
			}
			row[c] = convertValue(cell, types[c])
		}
		ds.Rows[r] = row
	}
	return ds, nil
}

// mangleColumnNames keeps header names verbatim, naming blanks
// "Unnamed: N" and suffixing duplicates with ".1", ".2", ...
func mangleColumnNames(h []string) []string {
	out := make([]string, len(h))
	taken := make(map[string]bool, len(h))
	next := make(map[string]int)
	for i, s := range h {
		if s == "" {
			s = "Unnamed: " + strconv.Itoa(i)
		}
		name := s
		for taken[name] {
			next[s]++
			name = s + "." + strconv.Itoa(next[s])
		}
		taken[name] = true
		out[i] = name
	}
	return out
}

func maybeGzip(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	magic, _ := br.Peek(2)
	if len(magic) >= 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		gr, err := gzip.NewReader(br)
		if err == nil {
			return gr
		}
	}
	return br
}
