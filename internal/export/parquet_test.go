package export

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yellowduckie/duckline/internal/model"
)

func day(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func TestRowStructTags(t *testing.T) {
	schema := parquet.SchemaOf(new(Row))
	for _, col := range []string{"date", "day", "series", "metric", "value"} {
		_, ok := schema.Lookup(col)
		assert.True(t, ok, "column %s should exist", col)
	}
}

func TestSeriesRowsIncludesAux(t *testing.T) {
	s := model.Series{
		{Date: day("2024-01-01"), Value: 100, Aux: map[string]float64{"likes": 3, "replies": 1}},
		{Date: day("2024-01-02"), Value: math.NaN(), Aux: map[string]float64{"likes": 5}},
	}
	rows := SeriesRows("engagement", "impressions", s)
	require.Len(t, rows, 5)

	assert.Equal(t, "impressions", rows[0].Metric)
	assert.Equal(t, "likes", rows[1].Metric)
	assert.Equal(t, "replies", rows[2].Metric)
	assert.Equal(t, "2024-01-02", rows[3].Day)
	assert.Nil(t, rows[3].Value, "NaN becomes null")
	require.NotNil(t, rows[4].Value)
	assert.Equal(t, 5.0, *rows[4].Value)
}

func TestCompositeRows(t *testing.T) {
	c := model.Composite{
		Keys: []string{"price", "dominance"},
		Records: []model.CompositeRecord{
			{Date: day("2024-01-01"), Values: map[string]float64{"price": 0.5, "dominance": 0}},
		},
	}
	rows := CompositeRows(c)
	require.Len(t, rows, 2)
	assert.Equal(t, "price", rows[0].Series)
	assert.Equal(t, "dominance", rows[1].Series)
	require.NotNil(t, rows[1].Value)
	assert.Equal(t, 0.0, *rows[1].Value, "zero fill is a real value, not null")
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	in := SeriesRows("price", "phicoin", model.Series{
		{Date: day("2024-01-02"), Value: 0.2},
		{Date: day("2024-01-01"), Value: math.NaN()},
	})
	require.NoError(t, WriteFile(path, in))

	out, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "2024-01-01", out[0].Day, "rows come back ordered by day")
	assert.Nil(t, out[0].Value)
	assert.True(t, out[1].Date.Equal(day("2024-01-02")))
	require.NotNil(t, out[1].Value)
	assert.Equal(t, 0.2, *out[1].Value)
}

func TestWriteEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, nil))
	assert.NotZero(t, buf.Len(), "an empty file still carries the schema footer")
}
