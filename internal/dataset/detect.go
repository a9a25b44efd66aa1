package dataset

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// encodingOf names the encoding announced by a byte order mark.
func encodingOf(head []byte) string {
	switch {
	case bytes.HasPrefix(head, bomUTF8):
		return "utf-8-bom"
	case bytes.HasPrefix(head, bomUTF16LE):
		return "utf-16le"
	case bytes.HasPrefix(head, bomUTF16BE):
		return "utf-16be"
	}
	return "utf-8"
}

// sniffRecords caps how many records one delimiter guess reads.
const sniffRecords = 200

// sniffDelimiter parses the sample once per candidate and keeps the one
// under which most records are as wide as the header. Ties go to the wider
// header, then to the earlier candidate. A candidate that leaves the header
// in one piece never wins; without a winner the delimiter is ','.
func sniffDelimiter(sample []byte, cands []rune) rune {
	// the sample usually ends mid-record
	if i := bytes.LastIndexAny(sample, "\r\n"); i > 0 {
		sample = sample[:i]
	}

	best, bestWidth, bestShare := ',', 0, -1.0
	for _, c := range cands {
		width, share := fit(sample, c)
		if width < 2 {
			continue
		}
		if share > bestShare || (share == bestShare && width > bestWidth) {
			best, bestWidth, bestShare = c, width, share
		}
	}
	return best
}

// fit reports the header width under delim and the share of the following
// records with that width. A sample without data records fits fully.
func fit(sample []byte, delim rune) (width int, share float64) {
	r := csv.NewReader(bytes.NewReader(sample))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true

	header, err := r.Read()
	if err != nil {
		return 0, 0
	}
	width = len(header)

	seen, match := 0, 0
	for seen < sniffRecords {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return width, 0
		}
		seen++
		if len(rec) == width {
			match++
		}
	}
	if seen == 0 {
		return width, 1
	}
	return width, float64(match) / float64(seen)
}
