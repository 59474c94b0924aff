// Package render converts Result values into human-readable or machine-parseable
// output. Every kind is first tabulated into headers and rows; the table, csv,
// tsv and md formats share that step, while json and jsonl encode the payload.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/yellowduckie/duckline/internal/analyze"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/pipeline"
	"github.com/yellowduckie/duckline/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted --format value.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// ValidFormat reports whether f is an accepted --format value.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// RenderTo writes to stdout by default; if path is non-empty, writes to file.
func RenderTo(path string, result *model.Result, format string) error {
	if path == "" {
		return Render(os.Stdout, result, format)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer f.Close()
	return Render(f, result, format)
}

// ─── Tabulation ───────────────────────────────────────────────────────────────

// grid is the format-neutral form of a result.
type grid struct {
	headers []string
	right   []bool // right-align numeric columns in the table format
	rows    [][]string
}

// tabulate lays out the payload of result as rows. Unknown kinds or payload
// types return an error naming the kind.
func tabulate(result *model.Result) (*grid, error) {
	switch data := result.Data.(type) {
	case *model.NamedSeries:
		return seriesGrid(data), nil
	case *model.Composite:
		return compositeGrid(data), nil
	case []model.Nearest:
		return nearestGrid(data), nil
	case []model.DatasetInfo:
		return datasetsGrid(data), nil
	case []analyze.Summary:
		return summaryGrid(data), nil
	case *model.Table:
		g := &grid{headers: data.Headers, right: make([]bool, len(data.Headers)), rows: data.Rows}
		return g, nil
	default:
		return nil, fmt.Errorf("render: cannot tabulate %q payload of type %T", result.Kind, result.Data)
	}
}

func seriesGrid(ns *model.NamedSeries) *grid {
	aux := ns.Points.AuxNames()
	g := &grid{
		headers: append([]string{"DATE", strings.ToUpper(ns.Name)}, upper(aux)...),
		right:   rightFrom(1, 2+len(aux)),
	}
	for _, p := range ns.Points {
		row := []string{util.DayKey(p.Date), formatValue(p.Value)}
		for _, a := range aux {
			row = append(row, formatValue(p.AuxValue(a)))
		}
		g.rows = append(g.rows, row)
	}
	return g
}

func compositeGrid(c *model.Composite) *grid {
	g := &grid{
		headers: append([]string{"DATE"}, upper(c.Keys)...),
		right:   rightFrom(1, 1+len(c.Keys)),
	}
	for _, rec := range c.Records {
		row := []string{util.DayKey(rec.Date)}
		for _, k := range c.Keys {
			row = append(row, formatValue(rec.Values[k]))
		}
		g.rows = append(g.rows, row)
	}
	return g
}

func nearestGrid(ns []model.Nearest) *grid {
	g := &grid{
		headers: []string{"SERIES", "QUERY", "DATE", "VALUE", "OFFSET"},
		right:   []bool{false, false, false, true, true},
	}
	for _, n := range ns {
		offset := int(math.Round(n.Point.Date.Sub(util.TruncateDay(n.Query)).Hours() / 24))
		g.rows = append(g.rows, []string{
			n.Series,
			util.DayKey(n.Query),
			util.DayKey(n.Point.Date),
			formatValue(n.Point.Value),
			fmt.Sprintf("%+dd", offset),
		})
	}
	return g
}

func datasetsGrid(ds []model.DatasetInfo) *grid {
	g := &grid{
		headers: []string{"NAME", "TITLE", "FORMAT", "DATE COLUMN", "DUPLICATES", "METRICS", "LOCATION"},
		right:   make([]bool, 7),
	}
	counted := false
	for _, d := range ds {
		counted = counted || d.Points > 0
	}
	if counted {
		g.headers = append(g.headers, "POINTS")
		g.right = append(g.right, true)
	}
	for _, d := range ds {
		row := []string{
			d.Name, d.Title, d.Format, d.DateColumn, d.Duplicates,
			strings.Join(d.Metrics, ","), d.Location,
		}
		if counted {
			row = append(row, strconv.Itoa(d.Points))
		}
		g.rows = append(g.rows, row)
	}
	return g
}

func summaryGrid(ss []analyze.Summary) *grid {
	g := &grid{
		headers: []string{"SERIES", "COUNT", "START", "END", "MIN", "MEDIAN", "MEAN", "MAX", "LAST", "CHANGE %", "TREND"},
		right:   []bool{false, true, false, false, true, true, true, true, true, true, false},
	}
	for _, s := range ss {
		start, end := "", ""
		if s.Count > 0 {
			start, end = util.DayKey(s.Start), util.DayKey(s.End)
		}
		g.rows = append(g.rows, []string{
			s.Name,
			strconv.Itoa(s.Count),
			start, end,
			formatValue(s.Min),
			formatValue(s.Median),
			formatValue(s.Mean),
			formatValue(s.Max),
			formatValue(s.Last),
			formatPct(s.ChangePct),
			s.Direction,
		})
	}
	return g
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}

// rightFrom marks columns [from, n) as right-aligned.
func rightFrom(from, n int) []bool {
	r := make([]bool, n)
	for i := from; i < n; i++ {
		r[i] = true
	}
	return r
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per line. Series use the pipe format read
// by the transform commands; composites flatten to {"date":..., key: value}.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch data := result.Data.(type) {
	case *model.NamedSeries:
		return pipeline.WriteJSONL(w, data.Name, data.Points)
	case *model.Composite:
		for _, rec := range data.Records {
			row := make(map[string]interface{}, len(rec.Values)+1)
			for k, v := range rec.Values {
				if math.IsNaN(v) {
					row[k] = nil
				} else {
					row[k] = v
				}
			}
			row["date"] = util.DayKey(rec.Date)
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	case []model.Nearest:
		return encodeEach(enc, data)
	case []model.DatasetInfo:
		return encodeEach(enc, data)
	case []analyze.Summary:
		return encodeEach(enc, data)
	case *model.Table:
		for _, r := range data.Rows {
			row := make(map[string]string, len(r))
			for i, h := range data.Headers {
				if i < len(r) {
					row[strings.ToLower(h)] = r[i]
				}
			}
			if err := enc.Encode(row); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(result.Data)
	}
}

func encodeEach[T any](enc *json.Encoder, items []T) error {
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	g, err := tabulate(result)
	if err != nil {
		// Fallback: JSON
		return renderJSON(w, result)
	}
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(g.headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	align := make([]int, len(g.headers))
	for i := range align {
		align[i] = tablewriter.ALIGN_LEFT
		if i < len(g.right) && g.right[i] {
			align[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetColumnAlignment(align)
	tw.SetAutoWrapText(false)
	tw.SetColWidth(60)
	tw.AppendBulk(g.rows)
	tw.Render()
	return nil
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	g, err := tabulate(result)
	if err != nil {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	} else {
		headers := make([]string, len(g.headers))
		for i, h := range g.headers {
			headers[i] = strings.ReplaceAll(strings.ToLower(h), " ", "_")
		}
		_ = cw.Write(headers)
		for _, r := range g.rows {
			_ = cw.Write(r)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	g, err := tabulate(result)
	if err != nil {
		return renderJSON(w, result)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(g.headers, " | "))
	seps := make([]string, len(g.headers))
	for i := range seps {
		seps[i] = "---"
		if i < len(g.right) && g.right[i] {
			seps[i] = "--:"
		}
	}
	fmt.Fprintf(w, "|%s|\n", strings.Join(seps, "|"))
	for _, r := range g.rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// Warn writes one yellow warning line.
func Warn(w io.Writer, format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(w, "⚠  "+format+"\n", args...)
}

// PrintFooter writes warnings and, in verbose mode, stats to w. Warnings are
// coloured when w is a terminal; fatih/color disables itself otherwise.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, msg := range result.Warnings {
		Warn(w, msg)
	}
	if verbose {
		src := "live"
		if result.Stats.CacheHit {
			src = "store"
		}
		extra := ""
		if result.Stats.Rejected > 0 {
			extra = fmt.Sprintf(" • %d rejected rows", result.Stats.Rejected)
		}
		color.New(color.Faint).Fprintf(w, "\n[%s • %d items • %dms • %s%s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
			extra,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a value for display with at most six decimals and
// no trailing zeros (0.012300 → 0.0123). Missing values (NaN) render as ".".
func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	s := strconv.FormatFloat(v, 'f', 6, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" {
		s = "0"
	}
	return s
}

func formatPct(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}

