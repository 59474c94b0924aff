package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yellowduckie/duckline/internal/app"
	"github.com/yellowduckie/duckline/internal/config"
	"github.com/yellowduckie/duckline/internal/logger"
)

func TestOutputWriterDefault(t *testing.T) {
	globalFlags.Out = ""
	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter default: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout writer passthrough")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("default closer should be nil error, got: %v", err)
	}
}

func TestOutputWriterFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.txt")
	globalFlags.Out = p
	t.Cleanup(func() { globalFlags.Out = "" })

	w, closeFn, err := outputWriter(os.Stdout)
	if err != nil {
		t.Fatalf("outputWriter file: %v", err)
	}
	if w == os.Stdout {
		t.Fatalf("expected file writer, got stdout")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("closing output writer: %v", err)
	}
	if _, err := os.Stat(p); err != nil {
		t.Fatalf("expected output file to exist: %v", err)
	}
}

func TestNormaliseNames(t *testing.T) {
	got := normaliseNames([]string{" Price", "price", "", "BTC-Dominance"})
	want := []string{"price", "btc-dominance"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestHumanBytes(t *testing.T) {
	cases := map[int64]string{512: "512 B", 2048: "2.0 KB", 3 << 20: "3.0 MB"}
	for in, want := range cases {
		if got := humanBytes(in); got != want {
			t.Errorf("humanBytes(%d): expected %s, got %s", in, want, got)
		}
	}
}

func TestParseDateArg(t *testing.T) {
	got, err := parseDateArg("2024-03-14T18:30:00Z")
	if err != nil {
		t.Fatal(err)
	}
	if got.Format("2006-01-02 15:04") != "2024-03-14 00:00" {
		t.Errorf("expected the UTC day, got %s", got)
	}
	if _, err := parseDateArg("soon"); err == nil {
		t.Error("expected error for garbage date")
	}
}

// ─── loadSet ──────────────────────────────────────────────────────────────────

func testDeps(t *testing.T, dataDir string) *app.Deps {
	t.Helper()
	cfg := &config.Config{
		DataDir:     dataDir,
		Timeout:     time.Second,
		Concurrency: 2,
		LogLevel:    "warn",
		Window:      "all",
		DBPath:      filepath.Join(t.TempDir(), "duckline.db"),
		Now:         time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
	}
	deps, err := app.New(cfg, logger.Discard())
	if err != nil {
		t.Fatalf("app.New: %v", err)
	}
	return deps
}

func writePrices(t *testing.T, dir string) {
	t.Helper()
	body := "date,phicoin\n2024-01-10,0.1\n2024-03-01,0.2\n2024-03-14,0.3\n"
	if err := os.WriteFile(filepath.Join(dir, "simplified-prices.csv"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadSetAppliesWindow(t *testing.T) {
	dir := t.TempDir()
	writePrices(t, dir)
	deps := testDeps(t, dir)

	l, err := loadSet(context.Background(), deps, []string{"PRICE"}, loadFlags{window: "1m"})
	if err != nil {
		t.Fatalf("loadSet: %v", err)
	}
	if len(l.Names) != 1 || l.Names[0] != "price" {
		t.Fatalf("names: %v", l.Names)
	}
	if got := len(l.Series["price"]); got != 2 {
		t.Errorf("1m window: expected 2 points, got %d", got)
	}
	if l.FromStore {
		t.Error("expected a live load")
	}
}

func TestLoadSetFallsBackToStore(t *testing.T) {
	dir := t.TempDir()
	writePrices(t, dir)
	deps := testDeps(t, dir)

	if _, err := loadSet(context.Background(), deps, []string{"price"}, loadFlags{save: true}); err != nil {
		t.Fatalf("saving load: %v", err)
	}
	if err := os.Remove(filepath.Join(dir, "simplified-prices.csv")); err != nil {
		t.Fatal(err)
	}

	l, err := loadSet(context.Background(), deps, []string{"price"}, loadFlags{})
	if err != nil {
		t.Fatalf("expected fallback to the store, got %v", err)
	}
	if !l.FromStore || len(l.Warnings) != 1 || len(l.Series["price"]) != 3 {
		t.Errorf("unexpected fallback result: store=%v warnings=%v points=%d",
			l.FromStore, l.Warnings, len(l.Series["price"]))
	}
}

func TestLoadSetErrors(t *testing.T) {
	deps := testDeps(t, t.TempDir())
	ctx := context.Background()
	if _, err := loadSet(ctx, deps, []string{"price"}, loadFlags{}); err == nil {
		t.Error("expected error when the file is missing and nothing is stored")
	}
	if _, err := loadSet(ctx, deps, []string{"price"}, loadFlags{fromStore: true, save: true}); err == nil {
		t.Error("expected error for --store with --save")
	}
	if _, err := loadSet(ctx, deps, []string{"price"}, loadFlags{window: "2w"}); err == nil {
		t.Error("expected error for a bad window")
	}
}
