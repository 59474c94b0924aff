package series_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowduckie/duckline/internal/model"
	"github.com/yellowduckie/duckline/internal/series"
	"github.com/yellowduckie/duckline/internal/util"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func impressionsConfig() series.Config {
	return series.Config{
		DateColumn: "Date",
		Metrics: []series.Field{
			{Name: "impressions", Column: "Impressions", Missing: series.MissingZero},
			{Name: "likes", Column: "Likes", Missing: series.MissingZero},
		},
		Duplicates: series.DuplicateFirst,
	}
}

func priceConfig() series.Config {
	return series.Config{
		DateColumn: "date",
		Metrics:    []series.Field{{Name: "phicoin", Column: "phicoin", Missing: series.MissingPositive}},
		Duplicates: series.DuplicateLast,
	}
}

// ─── ParseRow ─────────────────────────────────────────────────────────────────

func TestParseRowMissingCountIsZero(t *testing.T) {
	p, err := series.ParseRow(model.RawRecord{"Date": "Mon, Jan 01, 2024", "Impressions": "100"}, impressionsConfig())
	require.NoError(t, err)
	assert.Equal(t, 100.0, p.Value)
	assert.Equal(t, 0.0, p.AuxValue("likes"))
	assert.Contains(t, p.Aux, "likes")
}

func TestParseRowBadDate(t *testing.T) {
	_, err := series.ParseRow(model.RawRecord{"Date": "garbage", "Impressions": "5"}, impressionsConfig())
	assert.ErrorIs(t, err, series.ErrBadDate)

	_, err = series.ParseRow(model.RawRecord{"Impressions": "5"}, impressionsConfig())
	assert.ErrorIs(t, err, series.ErrBadDate)
}

func TestParseRowPositivePolicy(t *testing.T) {
	cfg := priceConfig()

	_, err := series.ParseRow(model.RawRecord{"date": "2024-01-01", "phicoin": "0"}, cfg)
	assert.ErrorIs(t, err, series.ErrNonPositive)

	_, err = series.ParseRow(model.RawRecord{"date": "2024-01-01", "phicoin": ""}, cfg)
	assert.ErrorIs(t, err, series.ErrMissingValue)

	p, err := series.ParseRow(model.RawRecord{"date": "2024-01-01", "phicoin": "0.0123"}, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 0.0123, p.Value, 1e-12)
}

func TestParseRowRejectPolicy(t *testing.T) {
	cfg := series.Config{
		DateColumn: "timestamp",
		Metrics:    []series.Field{{Name: "dominance", Column: "dominance", Missing: series.MissingReject}},
	}
	_, err := series.ParseRow(model.RawRecord{"timestamp": "1704067200", "dominance": "n/a"}, cfg)
	assert.True(t, errors.Is(err, series.ErrMissingValue))

	p, err := series.ParseRow(model.RawRecord{"timestamp": "1704067200", "dominance": "0"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 0.0, p.Value)
}

func TestParseRowCounterField(t *testing.T) {
	cfg := series.Config{
		DateColumn: "Time",
		Metrics:    []series.Field{{Name: "txCount"}},
		Duplicates: series.DuplicateSum,
	}
	p, err := series.ParseRow(model.RawRecord{"Time": "2024-01-01T10:00:00Z"}, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Value)
}

// ─── Build ────────────────────────────────────────────────────────────────────

func TestBuildSortsQuotedLongForm(t *testing.T) {
	rows := []model.RawRecord{
		{"Date": `"Tue, Jan 02, 2024"`, "Impressions": "200"},
		{"Date": `"Mon, Jan 01, 2024"`, "Impressions": "100"},
	}
	got, stats := series.Build(rows, impressionsConfig())
	require.Len(t, got, 2)
	assert.Equal(t, day("2024-01-01"), got[0].Date)
	assert.Equal(t, 100.0, got[0].Value)
	assert.Equal(t, day("2024-01-02"), got[1].Date)
	assert.Equal(t, 200.0, got[1].Value)
	assert.Equal(t, 0, stats.Rejected)
	assert.True(t, got.IsSorted())
}

func TestBuildDropsGarbageRow(t *testing.T) {
	rows := []model.RawRecord{
		{"Date": "Mon, Jan 01, 2024", "Impressions": "100"},
		{"Date": "garbage", "Impressions": "999"},
		{"Date": "Tue, Jan 02, 2024", "Impressions": "200"},
	}
	got, stats := series.Build(rows, impressionsConfig())
	assert.Len(t, got, len(rows)-1)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, map[string]int{"bad_date": 1}, stats.Reasons)
}

func TestBuildEmpty(t *testing.T) {
	got, stats := series.Build(nil, impressionsConfig())
	assert.Empty(t, got)
	assert.Equal(t, 0, stats.Rows)
}

func TestBuildDuplicatePolicies(t *testing.T) {
	rows := []model.RawRecord{
		{"date": "2024-01-01T08:00:00Z", "phicoin": "1"},
		{"date": "2024-01-02", "phicoin": "5"},
		{"date": "2024-01-01T20:00:00Z", "phicoin": "2"},
	}

	cfg := priceConfig()
	cfg.Duplicates = series.DuplicateFirst
	first, stats := series.Build(rows, cfg)
	require.Len(t, first, 2)
	assert.Equal(t, 1.0, first[0].Value)
	assert.Equal(t, 1, stats.Duplicates)

	cfg.Duplicates = series.DuplicateLast
	last, _ := series.Build(rows, cfg)
	require.Len(t, last, 2)
	assert.Equal(t, 2.0, last[0].Value)

	cfg.Duplicates = series.DuplicateSum
	sum, _ := series.Build(rows, cfg)
	require.Len(t, sum, 2)
	assert.Equal(t, 3.0, sum[0].Value)
	assert.Equal(t, day("2024-01-01"), sum[0].Date)
}

func TestBuildCountsEventsPerDay(t *testing.T) {
	cfg := series.Config{
		DateColumn: "Time",
		Metrics:    []series.Field{{Name: "txCount"}},
		Duplicates: series.DuplicateSum,
	}
	rows := []model.RawRecord{
		{"Time": "1704103200"}, // 2024-01-01 10:00 UTC
		{"Time": "1704067200"}, // 2024-01-01 00:00 UTC
		{"Time": "1704153600"}, // 2024-01-02 00:00 UTC
	}
	got, _ := series.Build(rows, cfg)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].Value)
	assert.Equal(t, 1.0, got[1].Value)
}

func TestBuildSumAuxDoesNotAlias(t *testing.T) {
	cfg := impressionsConfig()
	cfg.Duplicates = series.DuplicateSum
	rows := []model.RawRecord{
		{"Date": "2024-01-01", "Impressions": "1", "Likes": "2"},
		{"Date": "2024-01-01", "Impressions": "3", "Likes": "4"},
	}
	got, _ := series.Build(rows, cfg)
	require.Len(t, got, 1)
	assert.Equal(t, 4.0, got[0].Value)
	assert.Equal(t, 6.0, got[0].AuxValue("likes"))
}

func TestBuildIdempotentUnderFirstWins(t *testing.T) {
	rows := []model.RawRecord{
		{"Date": "Wed, Jan 03, 2024", "Impressions": "3"},
		{"Date": "Mon, Jan 01, 2024", "Impressions": "1"},
		{"Date": "Tue, Jan 02, 2024", "Impressions": "2"},
	}
	once, _ := series.Build(rows, impressionsConfig())
	twice, stats := series.Build(append(append([]model.RawRecord{}, rows...), rows...), impressionsConfig())
	assert.Equal(t, once, twice)
	assert.Equal(t, 3, stats.Duplicates)
}

func TestBuildDayKeysUnique(t *testing.T) {
	rows := []model.RawRecord{
		{"date": "2024-02-01T01:00:00Z", "phicoin": "1"},
		{"date": "2024-02-01T23:00:00-05:00", "phicoin": "2"}, // 2024-02-02 UTC
		{"date": "2024-02-02", "phicoin": "3"},
	}
	got, _ := series.Build(rows, priceConfig())
	seen := map[string]bool{}
	for _, p := range got {
		k := util.DayKey(p.Date)
		assert.False(t, seen[k], "duplicate day key %s", k)
		seen[k] = true
	}
	assert.Len(t, got, 2)
}

// ─── Config ───────────────────────────────────────────────────────────────────

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, impressionsConfig().Validate())

	bad := impressionsConfig()
	bad.DateColumn = ""
	assert.Error(t, bad.Validate())

	bad = impressionsConfig()
	bad.Metrics = append(bad.Metrics, series.Field{Name: "likes", Column: "x"})
	assert.Error(t, bad.Validate())

	bad = impressionsConfig()
	bad.Metrics[0].Missing = "maybe"
	assert.Error(t, bad.Validate())

	bad = impressionsConfig()
	bad.Duplicates = "avg"
	assert.Error(t, bad.Validate())
}
