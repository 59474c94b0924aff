package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/util"
)

// jsonlRow is the canonical pipe format, one point per line:
//
//	{"series":"price","date":"2024-01-01","value":0.5,"aux":{"likes":3}}
type jsonlRow struct {
	Series string             `json:"series,omitempty"`
	Date   string             `json:"date"`
	Value  *float64           `json:"value"`
	Aux    map[string]float64 `json:"aux,omitempty"`
}

// ReadPoints reads JSONL points from r and returns the series name found on
// the first record that carries one. A null value becomes NaN. Blank lines
// and lines starting with // are skipped.
func ReadPoints(r io.Reader) (string, model.Series, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var out model.Series
	name := ""
	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec jsonlRow
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return "", nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		if name == "" && rec.Series != "" {
			name = rec.Series
		}
		date, ok := util.ParseInstant(rec.Date)
		if !ok {
			return "", nil, fmt.Errorf("line %d: invalid date %q", lineNum, rec.Date)
		}
		val := math.NaN()
		if rec.Value != nil {
			val = *rec.Value
		}
		out = append(out, model.Point{Date: util.TruncateDay(date), Value: val, Aux: rec.Aux})
	}
	if err := scanner.Err(); err != nil {
		return "", nil, fmt.Errorf("reading input: %w", err)
	}
	if len(out) == 0 {
		return "", nil, fmt.Errorf("no points read from input (is stdin empty?)")
	}
	return name, out, nil
}

// WriteJSONL writes points as JSONL. NaN values are written as null.
func WriteJSONL(w io.Writer, name string, s model.Series) error {
	enc := json.NewEncoder(w)
	for _, p := range s {
		row := jsonlRow{Series: name, Date: util.DayKey(p.Date), Aux: p.Aux}
		if !math.IsNaN(p.Value) {
			v := p.Value
			row.Value = &v
		}
		if err := enc.Encode(row); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY reports whether stdout is a terminal rather than a pipe.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}

// StdinIsPiped reports whether stdin is a pipe or file rather than a terminal.
func StdinIsPiped() bool {
	return !term.IsTerminal(int(os.Stdin.Fd()))
}
