package store_test

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/store"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// testDB opens a fresh isolated database in t.TempDir().
// It is closed and deleted automatically when the test ends.
func testDB(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// makeDaily builds consecutive daily points starting at year-month-01.
func makeDaily(year, month int, values ...float64) model.Series {
	out := make(model.Series, len(values))
	for i, v := range values {
		out[i] = model.Point{
			Date:  time.Date(year, time.Month(month), 1+i, 0, 0, 0, 0, time.UTC),
			Value: v,
		}
	}
	return out
}

// ─── Open / Close ─────────────────────────────────────────────────────────────

func TestOpenCreatesDB(t *testing.T) {
	s := testDB(t)
	if _, err := os.Stat(s.Path()); err != nil {
		t.Errorf("expected db file at %s: %v", s.Path(), err)
	}
}

func TestOpenCreatesParentDirs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "duckline.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer s.Close()
	if s.Path() != path {
		t.Errorf("Path: expected %s, got %s", path, s.Path())
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.PutSeries("price", "", makeDaily(2024, 1, 1, 2)); err != nil {
		t.Fatal(err)
	}
	s.Close()

	s, err = store.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	got, ok, err := s.GetSeries("price")
	if err != nil || !ok || len(got.Points) != 2 {
		t.Errorf("expected 2 points after reopen, got ok=%v err=%v len=%d", ok, err, len(got.Points))
	}
}

// ─── Series ───────────────────────────────────────────────────────────────────

func TestPutGetSeries(t *testing.T) {
	s := testDB(t)
	in := makeDaily(2024, 1, 0.1, 0.2, 0.3)
	in[1].Aux = map[string]float64{"likes": 4}

	if err := s.PutSeries("price", "load-1", in); err != nil {
		t.Fatalf("PutSeries: %v", err)
	}
	got, ok, err := s.GetSeries("price")
	if err != nil || !ok {
		t.Fatalf("GetSeries: ok=%v err=%v", ok, err)
	}
	if got.LoadID != "load-1" {
		t.Errorf("LoadID: expected load-1, got %q", got.LoadID)
	}
	if got.SavedAt.IsZero() {
		t.Error("SavedAt should be stamped")
	}
	if len(got.Points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(got.Points))
	}
	for i := range in {
		if !got.Points[i].Date.Equal(in[i].Date) || got.Points[i].Value != in[i].Value {
			t.Errorf("point %d: expected %v, got %v", i, in[i], got.Points[i])
		}
	}
	if got.Points[1].AuxValue("likes") != 4 {
		t.Errorf("aux not preserved: %v", got.Points[1].Aux)
	}
}

func TestGetSeriesNotFound(t *testing.T) {
	s := testDB(t)
	_, ok, err := s.GetSeries("nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected not found")
	}
}

func TestPutSeriesNaNRoundTrip(t *testing.T) {
	s := testDB(t)
	if err := s.PutSeries("x", "", makeDaily(2024, 1, 1, math.NaN(), 3)); err != nil {
		t.Fatalf("PutSeries with NaN: %v", err)
	}
	got, _, err := s.GetSeries("x")
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(got.Points[1].Value) {
		t.Errorf("expected NaN to survive the round trip, got %g", got.Points[1].Value)
	}
}

func TestPutSeriesEmptyIsFound(t *testing.T) {
	s := testDB(t)
	if err := s.PutSeries("empty", "", nil); err != nil {
		t.Fatal(err)
	}
	got, ok, err := s.GetSeries("empty")
	if err != nil || !ok {
		t.Fatalf("expected empty series to be found: ok=%v err=%v", ok, err)
	}
	if len(got.Points) != 0 {
		t.Errorf("expected no points, got %d", len(got.Points))
	}
}

func TestPutSeriesOverwrites(t *testing.T) {
	s := testDB(t)
	_ = s.PutSeries("price", "a", makeDaily(2024, 1, 1))
	_ = s.PutSeries("price", "b", makeDaily(2024, 1, 1, 2))
	got, _, _ := s.GetSeries("price")
	if got.LoadID != "b" || len(got.Points) != 2 {
		t.Errorf("expected overwrite by load b, got %q with %d points", got.LoadID, len(got.Points))
	}
}

func TestListSeries(t *testing.T) {
	s := testDB(t)
	_ = s.PutSeries("transactions", "", makeDaily(2024, 2, 5, 6))
	_ = s.PutSeries("price", "", makeDaily(2024, 1, 1, 2, 3))

	entries, err := s.ListSeries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "price" || entries[1].Name != "transactions" {
		t.Errorf("expected name order, got %s, %s", entries[0].Name, entries[1].Name)
	}
	if entries[0].Points != 3 || entries[0].Last.Day() != 3 || entries[0].Bytes == 0 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestDeleteSeries(t *testing.T) {
	s := testDB(t)
	_ = s.PutSeries("price", "", makeDaily(2024, 1, 1))
	if err := s.DeleteSeries("price"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := s.GetSeries("price"); ok {
		t.Error("expected series to be gone")
	}
	if err := s.DeleteSeries("price"); err != nil {
		t.Errorf("deleting a missing series should be a no-op: %v", err)
	}
}

// ─── Loads ────────────────────────────────────────────────────────────────────

func TestSaveLoad(t *testing.T) {
	s := testDB(t)
	series := map[string]model.Series{
		"price":        makeDaily(2024, 1, 1, 2),
		"transactions": makeDaily(2024, 1, 7),
	}
	loadedAt := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	if err := s.SaveLoad(store.LoadRecord{ID: "L1", LoadedAt: loadedAt, Rejected: 4}, series); err != nil {
		t.Fatalf("SaveLoad: %v", err)
	}

	recs, err := s.ListLoads()
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 load record, got %d", len(recs))
	}
	r := recs[0]
	if r.ID != "L1" || r.Points != 3 || r.Rejected != 4 || !r.LoadedAt.Equal(loadedAt) {
		t.Errorf("unexpected record: %+v", r)
	}
	if strings.Join(r.Datasets, ",") != "price,transactions" {
		t.Errorf("datasets: %v", r.Datasets)
	}

	got, ok, _ := s.GetSeries("transactions")
	if !ok || got.LoadID != "L1" {
		t.Errorf("series should carry the load ID, got %+v", got)
	}
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

func TestStatsCountsRows(t *testing.T) {
	s := testDB(t)
	_ = s.PutSeries("a", "", makeDaily(2024, 1, 1))
	_ = s.PutSeries("b", "", makeDaily(2024, 1, 1))
	_ = s.SaveLoad(store.LoadRecord{ID: "L"}, map[string]model.Series{"c": makeDaily(2024, 1, 1)})

	stats, err := s.Stats()
	if err != nil {
		t.Fatal(err)
	}
	counts := map[string]int{}
	for _, st := range stats {
		counts[st.Name] = st.Count
		if st.Count > 0 && st.Bytes == 0 {
			t.Errorf("%s: expected non-zero bytes", st.Name)
		}
	}
	if counts["series"] != 3 || counts["loads"] != 1 {
		t.Errorf("unexpected counts: %v", counts)
	}
}

func TestClearBucketLeavesOthersIntact(t *testing.T) {
	s := testDB(t)
	_ = s.SaveLoad(store.LoadRecord{ID: "L"}, map[string]model.Series{"a": makeDaily(2024, 1, 1)})

	if err := s.ClearBucket("series"); err != nil {
		t.Fatal(err)
	}
	if entries, _ := s.ListSeries(); len(entries) != 0 {
		t.Errorf("expected series cleared, got %d", len(entries))
	}
	if recs, _ := s.ListLoads(); len(recs) != 1 {
		t.Errorf("expected loads intact, got %d", len(recs))
	}
}

func TestClearBucketUnknown(t *testing.T) {
	s := testDB(t)
	if err := s.ClearBucket("_meta"); err == nil {
		t.Error("expected error clearing an internal bucket")
	}
}

func TestClearAll(t *testing.T) {
	s := testDB(t)
	_ = s.SaveLoad(store.LoadRecord{ID: "L"}, map[string]model.Series{"a": makeDaily(2024, 1, 1)})
	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	stats, _ := s.Stats()
	for _, st := range stats {
		if st.Count != 0 {
			t.Errorf("%s: expected 0 rows after ClearAll, got %d", st.Name, st.Count)
		}
	}
	// still usable
	if err := s.PutSeries("a", "", makeDaily(2024, 1, 1)); err != nil {
		t.Errorf("store unusable after ClearAll: %v", err)
	}
}
