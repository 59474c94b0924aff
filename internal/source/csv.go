// Package source fetches dataset files and decodes them into raw records.
// Decoders are format-only: they never interpret dates or numbers, which
// is the row parser's job.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yellowduckie/duckline/internal/model"
)

// DecodeCSV reads a header row followed by data rows, keying each row by
// exact header name. Quoted fields may contain commas. Short rows leave
// trailing columns absent; blank lines are skipped.
func DecodeCSV(r io.Reader) ([]model.RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return []model.RawRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading csv header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	var out []model.RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading csv: %w", err)
		}
		rec := make(model.RawRecord, len(header))
		for i, h := range header {
			if i < len(row) {
				rec[h] = row[i]
			}
		}
		out = append(out, rec)
	}
	if out == nil {
		out = []model.RawRecord{}
	}
	return out, nil
}
