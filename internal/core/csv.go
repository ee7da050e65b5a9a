package core

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ParseRows reads CSV text into rows keyed by the trimmed header labels.
// The first record is the header. Rows whose cells are all blank are
// dropped, and a short row only sets the labels it has values for.
// Empty input yields no rows.
func ParseRows(data []byte) ([]RawRow, error) {
	data = bytes.TrimPrefix(sanitizeUTF8(data), utf8BOM)

	records, err := parseCSV(data)
	if err != nil {
		return nil, fmt.Errorf("invalid csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	header := make([]string, len(records[0]))
	for i, label := range records[0] {
		header[i] = strings.TrimSpace(label)
	}

	rows := make([]RawRow, 0, len(records)-1)
	for _, record := range records[1:] {
		if isEmptyRow(record) {
			continue
		}
		row := make(RawRow, len(header))
		for i, label := range header {
			if i >= len(record) || label == "" {
				continue
			}
			row[label] = record[i]
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func sanitizeUTF8(data []byte) []byte {
	if utf8.Valid(data) {
		return data
	}

	var buf bytes.Buffer
	buf.Grow(len(data))

	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			buf.WriteRune('\uFFFD')
			data = data[1:]
		} else {
			buf.WriteRune(r)
			data = data[size:]
		}
	}

	return buf.Bytes()
}

func parseCSV(data []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
