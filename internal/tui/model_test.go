package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/transform"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func daily(start string, values ...float64) model.Series {
	d := day(start)
	s := make(model.Series, len(values))
	for i, v := range values {
		s[i] = model.Point{Date: d.AddDate(0, 0, i), Value: v}
	}
	return s
}

func testSet() map[string]model.Series {
	return map[string]model.Series{
		"price":     daily("2024-01-01", 1, 2, 3, 4, 5, 6, 7, 8, 9, 10),
		"dominance": daily("2024-01-01", 50, 51, 52, 53, 54, 55, 56, 57, 58, 59),
	}
}

func testModel() Model {
	m := New(Options{Series: testSet(), Now: day("2024-01-10")})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	return updated.(Model)
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func TestNewSortsNamesAndHonoursFocus(t *testing.T) {
	m := New(Options{Series: testSet()})
	if m.Focused() != "dominance" {
		t.Errorf("default focus: expected dominance, got %s", m.Focused())
	}
	m = New(Options{Series: testSet(), Focus: "price"})
	if m.Focused() != "price" {
		t.Errorf("focus: expected price, got %s", m.Focused())
	}
	if m.Cursor() != -1 {
		t.Errorf("cursor should start hidden, got %d", m.Cursor())
	}
	if m.Window() != transform.WindowAll {
		t.Errorf("window: expected all, got %s", m.Window())
	}
}

func TestRightArrowRevealsCursorAtLatestDay(t *testing.T) {
	m := update(t, testModel(), tea.KeyMsg{Type: tea.KeyRight})
	q, ok := m.Query()
	if !ok {
		t.Fatal("expected a cursor after the first arrow press")
	}
	if !q.Equal(day("2024-01-10")) {
		t.Errorf("query: expected 2024-01-10, got %s", q)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if q2, _ := m.Query(); !q2.Equal(q) {
		t.Errorf("cursor should clamp at the right edge, got %s", q2)
	}
}

func TestMouseMotionLocatesEverySeries(t *testing.T) {
	m := testModel()
	_, offset := m.layout()
	m = update(t, m, tea.MouseMsg{X: offset, Y: 5, Action: tea.MouseActionMotion})
	if m.Cursor() != 0 {
		t.Fatalf("cursor: expected 0, got %d", m.Cursor())
	}
	q, _ := m.Query()
	if !q.Equal(day("2024-01-01")) {
		t.Errorf("query: expected 2024-01-01, got %s", q)
	}
	near := m.Nearest()
	if len(near) != 2 {
		t.Fatalf("expected a point per series, got %d", len(near))
	}
	if near["price"].Value != 1 || near["dominance"].Value != 50 {
		t.Errorf("unexpected nearest points: %+v", near)
	}
}

func TestMouseOutsidePlotIgnored(t *testing.T) {
	m := testModel()
	m = update(t, m, tea.MouseMsg{X: 0, Y: 5, Action: tea.MouseActionMotion})
	if m.Cursor() != -1 {
		t.Errorf("pointer over the y labels should not move the cursor, got %d", m.Cursor())
	}
	m = update(t, m, tea.MouseMsg{X: 500, Y: 5, Action: tea.MouseActionMotion})
	if m.Cursor() != -1 {
		t.Errorf("pointer past the right edge should not move the cursor, got %d", m.Cursor())
	}
}

func TestMouseMiddleOfPlot(t *testing.T) {
	m := testModel()
	xs, offset := m.layout()
	m = update(t, m, tea.MouseMsg{X: offset + xs.Width/2, Action: tea.MouseActionMotion})
	q, _ := m.Query()
	near := m.Nearest()
	p := near["price"]
	if d := p.Date.Sub(q); d > 12*time.Hour || d < -12*time.Hour {
		t.Errorf("nearest price %s too far from query %s", p.Date, q)
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := testModel()
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Focused() != "price" {
		t.Errorf("expected price, got %s", m.Focused())
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Focused() != "dominance" {
		t.Errorf("focus should wrap, got %s", m.Focused())
	}
	m = update(t, m, tea.MouseMsg{Button: tea.MouseButtonWheelDown, Action: tea.MouseActionPress})
	if m.Focused() != "price" {
		t.Errorf("wheel should cycle focus, got %s", m.Focused())
	}
}

func TestWindowKeys(t *testing.T) {
	m := testModel()
	m = update(t, m, key("w"))
	if m.Window() != transform.Window1W {
		t.Errorf("w from all should wrap to 1w, got %s", m.Window())
	}
	if got := len(m.view["price"]); got >= 10 {
		t.Errorf("1w window should drop early days, kept %d", got)
	}
	m = update(t, m, key("7"))
	if m.Window() != transform.WindowAll || len(m.view["price"]) != 10 {
		t.Errorf("7 should select all, got %s with %d points", m.Window(), len(m.view["price"]))
	}
	m = update(t, m, key("W"))
	if m.Window() != transform.Window12M {
		t.Errorf("W should step back to 12m, got %s", m.Window())
	}
}

func TestLoadedMsgFailureKeepsData(t *testing.T) {
	m := testModel()
	m = update(t, m, LoadedMsg{Err: errors.New("boom")})
	if len(m.view) != 2 {
		t.Errorf("failed reload should keep the series, got %d", len(m.view))
	}
	if !strings.Contains(m.View(), "boom") {
		t.Error("view should report the reload error")
	}
}

func TestLoadedMsgReplacesSeriesKeepingFocus(t *testing.T) {
	m := update(t, testModel(), tea.KeyMsg{Type: tea.KeyTab})
	set := testSet()
	set["engagement"] = daily("2024-01-05", 3, 4)
	m = update(t, m, LoadedMsg{Series: set})
	if len(m.names) != 3 {
		t.Fatalf("expected 3 series, got %d", len(m.names))
	}
	if m.Focused() != "price" {
		t.Errorf("focus should follow the name, got %s", m.Focused())
	}
}

func TestReloadKeyRunsReload(t *testing.T) {
	calls := 0
	m := New(Options{
		Series: testSet(),
		Reload: func(ctx context.Context) (map[string]model.Series, error) {
			calls++
			return testSet(), nil
		},
	})
	updated, cmd := m.Update(key("r"))
	if cmd == nil {
		t.Fatal("expected a reload command")
	}
	if _, again := updated.(Model).Update(key("r")); again != nil {
		t.Error("a second reload should wait for the first")
	}
	msg, ok := cmd().(LoadedMsg)
	if !ok || msg.Err != nil || calls != 1 {
		t.Errorf("unexpected reload result: %+v (calls %d)", msg, calls)
	}
}

func TestReloadWithoutFuncIsNoop(t *testing.T) {
	_, cmd := testModel().Update(key("r"))
	if cmd != nil {
		t.Error("expected no command without a reload func")
	}
}

func TestViewShowsTooltip(t *testing.T) {
	m := update(t, testModel(), tea.KeyMsg{Type: tea.KeyRight})
	out := m.View()
	for _, want := range []string{"duckline", "2024-01-10", "price 10", "dominance 59"} {
		if !strings.Contains(out, want) {
			t.Errorf("view missing %q:\n%s", want, out)
		}
	}
}

func TestViewEmpty(t *testing.T) {
	m := New(Options{})
	if !strings.Contains(m.View(), "no series loaded") {
		t.Error("expected empty-state message")
	}
}

func TestQuitKeys(t *testing.T) {
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyCtrlC}, {Type: tea.KeyEsc}} {
		_, cmd := testModel().Update(k)
		if cmd == nil {
			t.Errorf("%s should quit", k.String())
		}
	}
}
