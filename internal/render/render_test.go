package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/guregu/null/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/recap/backend/internal/contracts"
	"github.com/wonny/recap/backend/pkg/logger"
)

func sampleRecap(status contracts.ReportStatus) *contracts.Recap {
	date := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := []contracts.ReturnRecord{
		{Instrument: "NVDA", Date: date, Close: 490, PrevClose: 480, DailyReturn: 10, ReturnPct: null.FloatFrom(2.08)},
		{Instrument: "MSFT", Date: date, Close: 367, PrevClose: 370, DailyReturn: -3, ReturnPct: null.FloatFrom(-0.81)},
		{Instrument: "ZERO", Date: date, Close: 1},
	}
	r := &contracts.Recap{
		RunID:     "run-1",
		Date:      date,
		Status:    status,
		Summary:   contracts.RecapSummary{Instruments: 3, WithReturns: 2, MeanReturnPct: 0.63, Gainers: 1, Losers: 1},
		TopMovers: rows[:2],
		Table:     rows,
		Headlines: []contracts.NewsItem{{Instrument: "NVDA", Title: "Nvidia “rallies”", Publisher: "Reuters", Link: "https://example.com/a", PublishedAt: date}},
		Quality: contracts.QualityReport{
			Score:     1,
			Passed:    true,
			Threshold: 1,
			Checks:    []contracts.QualityCheckResult{{Rule: "completeness", Passed: true, Detail: "3/3"}},
		},
	}
	if status == contracts.ReportDegraded {
		r.Banner = "DEGRADED: data quality check failed"
		r.Quality.Passed = false
	}
	return r
}

func TestNew(t *testing.T) {
	rs, err := New([]string{"pdf", "json"}, t.TempDir(), logger.Nop())
	require.NoError(t, err)
	require.Len(t, rs, 2)
	assert.Equal(t, FormatPDF, rs[0].Format())
	assert.Equal(t, FormatJSON, rs[1].Format())

	_, err = New([]string{"docx"}, t.TempDir(), logger.Nop())
	assert.Error(t, err)
}

func TestPath(t *testing.T) {
	p := Path("outputs", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), FormatPDF)
	assert.Equal(t, filepath.Join("outputs", "market_recap_20240105.pdf"), p)
}

func TestWritePDF(t *testing.T) {
	for _, status := range []contracts.ReportStatus{contracts.ReportClean, contracts.ReportDegraded} {
		t.Run(string(status), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, WritePDF(&buf, sampleRecap(status)))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
		})
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	path, err := NewPDFRenderer(dir, logger.Nop()).Render(context.Background(), sampleRecap(contracts.ReportClean))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "market_recap_20240105.pdf"), path)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestJSONRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	path, err := NewJSONRenderer(dir, logger.Nop()).Render(context.Background(), sampleRecap(contracts.ReportDegraded))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "market_recap_20240105.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "DEGRADED", decoded["status"])
	table := decoded["table"].([]interface{})
	assert.Nil(t, table[2].(map[string]interface{})["return_pct"])
}

func TestWriteAtomic_FailedWriteLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), FormatPDF)

	err := writeAtomic(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("%PDF-1.3 partial"))
		return errors.New("disk full")
	})
	require.EqualError(t, err, "disk full")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no partial or temp file")
}

func TestWriteAtomic_ReplacesExisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "market_recap_20240105.json")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	require.NoError(t, writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write([]byte("new"))
		return err
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
