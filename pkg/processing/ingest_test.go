package processing_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/source"
)

func exportJSON(t *testing.T, n int) []byte {
	t.Helper()

	records := make([]map[string]string, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, map[string]string{
			"timestamp":   "2024-01-01 12:00:00",
			"vram_usage":  "1.5/2.1",
			"info":        "app:foo",
			"system_info": "arch:x86_64",
			"model_info":  "torch:2.0.1",
			"device_info": "device:NVIDIA GeForce RTX 4090",
			"xformers":    "0.0.20",
			"model_name":  "model",
			"user":        "alice",
			"notes":       "",
		})
	}

	data, err := json.Marshal(records)
	require.NoError(t, err)

	return data
}

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	_, err := w.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)

	defer func() { _ = enc.Close() }()

	return enc.EncodeAll(data, nil)
}

func TestIngestService_Ingest(t *testing.T) {
	plain := exportJSON(t, 3)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "plain", data: plain},
		{name: "gzip", data: gzipped(t, plain)},
		{name: "zstd", data: zstded(t, plain)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			ctx := context.Background()
			metrics := processing.NewMetrics()

			svc := processing.NewIngestService(testLogger(), s, nil, 1<<20, metrics)

			report, err := svc.Ingest(ctx, tt.data)
			require.NoError(t, err)

			assert.True(t, report.Success)
			assert.NotEmpty(t, report.JobID)
			assert.Equal(t, 3, report.TotalRows)
			assert.Equal(t, 3, report.InsertedRows)
			assert.Zero(t, report.ErrorRows)

			count, err := s.CountRuns(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)

			runs, err := s.ListRuns(ctx)
			require.NoError(t, err)
			assert.Equal(t, "alice", *runs[0].User)
			assert.Equal(t, "", *runs[0].Notes)
		})
	}
}

func TestIngestService_ReplacesRuns(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	svc := processing.NewIngestService(testLogger(), s, nil, 0, nil)

	_, err := svc.Ingest(ctx, exportJSON(t, 5))
	require.NoError(t, err)

	_, err = processing.NewAppDetailsService(testLogger(), s).Run(ctx)
	require.NoError(t, err)

	report, err := svc.Ingest(ctx, exportJSON(t, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, report.InsertedRows)

	count, err := s.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	details, err := s.ListAppDetails(ctx)
	require.NoError(t, err)
	assert.Empty(t, details)
}

func TestIngestService_Validation(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantIndex int
		wantField string
	}{
		{
			name:      "invalid json",
			body:      `{"not":"an array"}`,
			wantIndex: -1,
			wantField: "body",
		},
		{
			name:      "missing timestamp",
			body:      `[{"timestamp":"2024-01-01","vram_usage":"1.5"},{"vram_usage":"1.5"}]`,
			wantIndex: 1,
			wantField: "timestamp",
		},
		{
			name:      "timestamp without digits",
			body:      `[{"timestamp":"yesterday","vram_usage":"1.5"}]`,
			wantIndex: 0,
			wantField: "timestamp",
		},
		{
			name:      "empty vram usage",
			body:      `[{"timestamp":"2024-01-01","vram_usage":""}]`,
			wantIndex: 0,
			wantField: "vram_usage",
		},
		{
			name:      "vram usage without number or unit",
			body:      `[{"timestamp":"2024-01-01","vram_usage":"n/a"}]`,
			wantIndex: 0,
			wantField: "vram_usage",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			svc := processing.NewIngestService(testLogger(), s, nil, 0, nil)

			_, err := svc.Ingest(context.Background(), []byte(tt.body))
			require.Error(t, err)

			var verr *processing.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.wantIndex, verr.Index)
			assert.Equal(t, tt.wantField, verr.Field)

			count, err := s.CountRuns(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestIngestService_MaxSize(t *testing.T) {
	s := setupTestStore(t)
	plain := exportJSON(t, 50)
	limit := int64(len(plain) - 1)

	svc := processing.NewIngestService(testLogger(), s, nil, limit, nil)

	_, err := svc.Ingest(context.Background(), plain)
	require.ErrorIs(t, err, processing.ErrPayloadTooLarge)

	// The compressed payload fits but inflates past the limit.
	compressed := gzipped(t, plain)
	require.Less(t, int64(len(compressed)), limit)

	_, err = svc.Ingest(context.Background(), compressed)
	require.ErrorIs(t, err, processing.ErrPayloadTooLarge)
}

func TestIngestService_IngestFromSource(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(
		filepath.Join(dir, "runs.json.gz"), gzipped(t, exportJSON(t, 4)), 0o600,
	))

	reader := source.NewLocalReader(&config.LocalSourceConfig{Enabled: true, Directory: dir})

	s := setupTestStore(t)
	svc := processing.NewIngestService(testLogger(), s, reader, 0, nil)
	ctx := context.Background()

	names, err := svc.ListSource(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"runs.json.gz"}, names)

	report, err := svc.IngestFromSource(ctx, "runs.json.gz")
	require.NoError(t, err)
	assert.Equal(t, "runs.json.gz", report.Source)
	assert.Equal(t, 4, report.InsertedRows)

	_, err = svc.IngestFromSource(ctx, "missing.json")
	require.ErrorIs(t, err, processing.ErrExportNotFound)

	_, err = svc.IngestFromSource(ctx, "../secret.json")
	require.ErrorIs(t, err, source.ErrInvalidName)

	noSource := processing.NewIngestService(testLogger(), s, nil, 0, nil)
	_, err = noSource.IngestFromSource(ctx, "runs.json")
	require.ErrorIs(t, err, processing.ErrNoSource)
}
