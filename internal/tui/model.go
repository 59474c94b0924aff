// Package tui is the interactive explorer: a terminal chart of one series
// with a cursor that follows the mouse or the arrow keys. Every cursor move
// turns the column back into a date and looks up the nearest point of every
// loaded series.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/yellowduckie/duckline/internal/chart"
	"github.com/yellowduckie/duckline/internal/lookup"
	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/scale"
	"github.com/yellowduckie/duckline/internal/transform"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
	minChartRows  = 5
	// header, chart title, x axis line and labels, tooltip, status, help
	chromeRows    = 7
	fastStep      = 10
	reloadTimeout = time.Minute
)

// ReloadFunc produces a fresh set of series. It runs off the UI goroutine.
type ReloadFunc func(ctx context.Context) (map[string]model.Series, error)

// LoadedMsg replaces the explorer's series. A non-nil Err keeps the
// current series on screen and reports the failure.
type LoadedMsg struct {
	Series map[string]model.Series
	Err    error
}

// Options configures a new explorer.
type Options struct {
	Series map[string]model.Series
	// Focus names the series charted first; empty picks the first by name.
	Focus  string
	Window transform.Window
	// Now anchors the trailing windows.
	Now    time.Time
	Reload ReloadFunc
}

// Model is the bubbletea model of the explorer.
type Model struct {
	all    map[string]model.Series
	view   map[string]model.Series
	names  []string
	focus  int
	window transform.Window
	now    time.Time
	reload ReloadFunc

	// cursor is a column inside the plot area; -1 hides it.
	cursor        int
	width, height int
	loading       bool
	status        string
	err           error
}

// New builds the explorer model.
func New(o Options) Model {
	w := o.Window
	if w == "" {
		w = transform.WindowAll
	}
	now := o.Now
	if now.IsZero() {
		now = time.Now()
	}
	m := Model{
		window: w,
		now:    now,
		reload: o.Reload,
		cursor: -1,
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.setSeries(o.Series)
	for i, n := range m.names {
		if n == o.Focus {
			m.focus = i
		}
	}
	return m
}

// NewProgram wraps m in a full-screen program that reports every mouse
// motion, not only clicks.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseAllMotion())
}

func (m *Model) setSeries(set map[string]model.Series) {
	focused := m.Focused()
	m.all = set
	m.names = make([]string, 0, len(set))
	for n := range set {
		m.names = append(m.names, n)
	}
	sort.Strings(m.names)
	m.focus = 0
	for i, n := range m.names {
		if n == focused {
			m.focus = i
		}
	}
	m.applyWindow()
}

func (m *Model) applyWindow() {
	m.view = make(map[string]model.Series, len(m.all))
	for n, s := range m.all {
		m.view[n] = transform.FilterWindow(s, m.window, m.now)
	}
	m.clampCursor()
}

// Focused returns the name of the charted series.
func (m Model) Focused() string {
	if len(m.names) == 0 {
		return ""
	}
	return m.names[m.focus]
}

// Window returns the active trailing window.
func (m Model) Window() transform.Window { return m.window }

// Cursor returns the cursor column, -1 when hidden.
func (m Model) Cursor() int { return m.cursor }

// ─── Geometry ─────────────────────────────────────────────────────────────────

func (m Model) chartRows() int {
	rows := m.height - chromeRows
	if rows < minChartRows {
		rows = minChartRows
	}
	return rows
}

// plotOptions pins the x domain to the extent of every windowed series so
// the cursor date means the same thing whichever series is focused.
func (m Model) plotOptions() chart.PlotOptions {
	o := chart.PlotOptions{Width: m.width, Height: m.chartRows()}
	all := make([]model.Series, 0, len(m.view))
	for _, s := range m.view {
		all = append(all, s)
	}
	if lo, hi, ok := scale.Extent(all...); ok {
		o.Start, o.End = lo, hi
	}
	return o
}

func (m Model) layout() (scale.TimeScale, int) {
	return chart.Layout(m.view[m.Focused()], m.plotOptions())
}

func (m *Model) clampCursor() {
	if m.cursor < 0 {
		return
	}
	xs, _ := m.layout()
	if m.cursor > xs.Width-1 {
		m.cursor = xs.Width - 1
	}
}

// Query returns the date under the cursor.
func (m Model) Query() (time.Time, bool) {
	if m.cursor < 0 || len(m.names) == 0 {
		return time.Time{}, false
	}
	xs, _ := m.layout()
	if xs.Start.IsZero() {
		return time.Time{}, false
	}
	return xs.Invert(float64(m.cursor)), true
}

// Nearest returns the point of every windowed series nearest the cursor.
func (m Model) Nearest() map[string]model.Point {
	q, ok := m.Query()
	if !ok {
		return nil
	}
	return lookup.LocateAll(m.view, q)
}

// ─── Update ───────────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.clampCursor()
		return m, nil

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			m.status = "reload failed, showing last good data"
			return m, nil
		}
		m.err = nil
		m.status = fmt.Sprintf("reloaded %d series at %s", len(msg.Series), time.Now().Format("15:04:05"))
		m.setSeries(msg.Series)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		return m.handleMouse(msg)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if msg.Action == tea.MouseActionPress {
			m.cycleFocus(-1)
		}
		return m, nil
	case tea.MouseButtonWheelDown:
		if msg.Action == tea.MouseActionPress {
			m.cycleFocus(1)
		}
		return m, nil
	}
	if msg.Action != tea.MouseActionMotion && msg.Action != tea.MouseActionPress {
		return m, nil
	}
	xs, offset := m.layout()
	col := msg.X - offset
	if col < 0 || col >= xs.Width {
		return m, nil
	}
	m.cursor = col
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "left", "h":
		m.moveCursor(-1)
	case "right", "l":
		m.moveCursor(1)
	case "shift+left", "H":
		m.moveCursor(-fastStep)
	case "shift+right", "L":
		m.moveCursor(fastStep)
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		xs, _ := m.layout()
		m.cursor = xs.Width - 1
	case "tab", "down", "j":
		m.cycleFocus(1)
	case "shift+tab", "up", "k":
		m.cycleFocus(-1)
	case "w":
		m.cycleWindow(1)
	case "W":
		m.cycleWindow(-1)
	case "1", "2", "3", "4", "5", "6", "7":
		i := int(msg.String()[0] - '1')
		if i < len(transform.Windows) {
			m.window = transform.Windows[i]
			m.applyWindow()
		}
	case "r":
		if m.reload == nil || m.loading {
			return m, nil
		}
		m.loading = true
		m.status = "reloading…"
		return m, m.reloadCmd()
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	xs, _ := m.layout()
	if m.cursor < 0 {
		m.cursor = xs.Width - 1
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor > xs.Width-1 {
		m.cursor = xs.Width - 1
	}
}

func (m *Model) cycleFocus(delta int) {
	if len(m.names) == 0 {
		return
	}
	m.focus = (m.focus + delta + len(m.names)) % len(m.names)
	m.clampCursor()
}

func (m *Model) cycleWindow(delta int) {
	n := len(transform.Windows)
	i := 0
	for j, w := range transform.Windows {
		if w == m.window {
			i = j
		}
	}
	m.window = transform.Windows[(i+delta+n)%n]
	m.applyWindow()
}

func (m Model) reloadCmd() tea.Cmd {
	reload := m.reload
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		set, err := reload(ctx)
		return LoadedMsg{Series: set, Err: err}
	}
}

// ─── View ─────────────────────────────────────────────────────────────────────

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")

	name := m.Focused()
	if name == "" {
		sb.WriteString(dimStyle.Render("no series loaded"))
		sb.WriteString("\n")
		return sb.String()
	}

	opts := m.plotOptions()
	q, hasCursor := m.Query()
	if hasCursor {
		opts.Cursor = q
	}
	var plot strings.Builder
	if err := chart.Plot(&plot, name, m.view[name], opts); err != nil {
		sb.WriteString(seriesStyle.Render(name))
		sb.WriteString("\n")
		sb.WriteString(dimStyle.Render(fmt.Sprintf("  nothing to chart in window %s: %v", m.window, err)))
		sb.WriteString("\n")
	} else {
		sb.WriteString(chartStyle.Render(strings.TrimRight(plot.String(), "\n")))
		sb.WriteString("\n")
	}

	if hasCursor {
		sb.WriteString(tooltipStyle.Render(chart.Tooltip(q, m.Nearest())))
	} else {
		sb.WriteString(dimStyle.Render("move the mouse over the chart or press ←/→"))
	}
	sb.WriteString("\n")

	switch {
	case m.err != nil:
		sb.WriteString(errorStyle.Render(m.status + ": " + m.err.Error()))
	case m.status != "":
		sb.WriteString(dimStyle.Render(m.status))
	}
	sb.WriteString("\n")
	sb.WriteString(dimStyle.Render("←/→ move · tab series · w window · 1-7 pick window · r reload · q quit"))
	return sb.String()
}

func (m Model) renderHeader() string {
	tabs := make([]string, 0, len(transform.Windows))
	for _, w := range transform.Windows {
		label := strings.ToUpper(string(w))
		if w == m.window {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}
	left := brandStyle.Render("duckline") + " " + lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	right := dimStyle.Render(fmt.Sprintf("%d/%d %s", m.focus+1, len(m.names), m.Focused()))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}
