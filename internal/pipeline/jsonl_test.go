package pipeline_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

func isNaN(v float64) bool { return math.IsNaN(v) }

// jsonl joins lines with newlines and appends a trailing newline.
func jsonl(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

func mkpoint(year, month, day int, value float64) model.Point {
	return model.Point{Date: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), Value: value}
}

// ─── ReadPoints ───────────────────────────────────────────────────────────────

func TestReadBasic(t *testing.T) {
	input := jsonl(
		`{"series":"price","date":"2024-01-01","value":0.5}`,
		`{"series":"price","date":"2024-01-02","value":0.6,"aux":{"likes":3}}`,
	)
	name, s, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "price" {
		t.Errorf("series: expected price, got %q", name)
	}
	if len(s) != 2 {
		t.Fatalf("expected 2 points, got %d", len(s))
	}
	if s[1].Value != 0.6 || s[1].AuxValue("likes") != 3 {
		t.Errorf("unexpected second point %+v", s[1])
	}
}

func TestReadNullBecomesNaN(t *testing.T) {
	_, s, err := pipeline.ReadPoints(strings.NewReader(`{"date":"2024-01-01","value":null}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !isNaN(s[0].Value) {
		t.Errorf("expected NaN, got %g", s[0].Value)
	}
}

func TestReadSkipsBlankAndCommentLines(t *testing.T) {
	input := jsonl(
		"",
		"// produced by duckline series get",
		`{"date":"2024-01-01","value":1}`,
		"   ",
	)
	_, s, err := pipeline.ReadPoints(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(s) != 1 {
		t.Errorf("expected 1 point, got %d", len(s))
	}
}

func TestReadErrors(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"blank only":   "\n\n",
		"invalid json": `{"date":`,
		"invalid date": `{"date":"yesterday","value":1}`,
		"string value": `{"date":"2024-01-01","value":"1"}`,
	}
	for name, in := range cases {
		if _, _, err := pipeline.ReadPoints(strings.NewReader(in)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

// ─── WriteJSONL ───────────────────────────────────────────────────────────────

func TestWriteFormat(t *testing.T) {
	var buf bytes.Buffer
	s := model.Series{mkpoint(2024, 6, 15, 3.5), mkpoint(2024, 6, 16, math.NaN())}
	if err := pipeline.WriteJSONL(&buf, "price", s); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{`"series":"price"`, `"date":"2024-06-15"`, `"value":3.5`, `"value":null`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s:\n%s", want, out)
		}
	}
	if lines := nonEmptyLines(out); len(lines) != 2 {
		t.Errorf("expected one line per point, got %d", len(lines))
	}
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, "x", nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

// ─── Round-trip ───────────────────────────────────────────────────────────────

func TestRoundTrip(t *testing.T) {
	original := model.Series{
		mkpoint(2024, 1, 1, 3.5),
		mkpoint(2024, 1, 2, math.NaN()),
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Value: 4.2, Aux: map[string]float64{"likes": 7}},
	}
	var buf bytes.Buffer
	if err := pipeline.WriteJSONL(&buf, "roundtrip", original); err != nil {
		t.Fatalf("WriteJSONL: %v", err)
	}
	name, result, err := pipeline.ReadPoints(&buf)
	if err != nil {
		t.Fatalf("ReadPoints: %v", err)
	}
	if name != "roundtrip" {
		t.Errorf("expected name roundtrip, got %q", name)
	}
	if len(result) != len(original) {
		t.Fatalf("length mismatch: expected %d, got %d", len(original), len(result))
	}
	for i, orig := range original {
		if !orig.Date.Equal(result[i].Date) {
			t.Errorf("point %d date: expected %v, got %v", i, orig.Date, result[i].Date)
		}
		if isNaN(orig.Value) != isNaN(result[i].Value) || (!isNaN(orig.Value) && orig.Value != result[i].Value) {
			t.Errorf("point %d value: expected %g, got %g", i, orig.Value, result[i].Value)
		}
	}
	if result[2].AuxValue("likes") != 7 {
		t.Error("aux values should survive the round trip")
	}
}
