package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethpandaops/itsbench/pkg/source"
	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// RunReplacer swaps the stored runs for a new batch.
type RunReplacer interface {
	ReplaceRuns(ctx context.Context, runs []store.Run) ([]store.Run, error)
}

// IngestReport is the outcome of replacing the runs table.
type IngestReport struct {
	JobID        string   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Source       string   `json:"source,omitempty" yaml:"source,omitempty"`
	Success      bool     `json:"success" yaml:"success"`
	Message      string   `json:"message" yaml:"message"`
	TotalRows    int      `json:"total_rows" yaml:"total_rows"`
	InsertedRows int      `json:"inserted_rows" yaml:"inserted_rows"`
	ErrorRows    int      `json:"error_rows" yaml:"error_rows"`
	ErrorData    []string `json:"error_data" yaml:"error_data"`
}

// runRecord is one entry of a run export file.
type runRecord struct {
	Timestamp  *string `json:"timestamp"`
	VramUsage  *string `json:"vram_usage"`
	Info       *string `json:"info"`
	SystemInfo *string `json:"system_info"`
	ModelInfo  *string `json:"model_info"`
	DeviceInfo *string `json:"device_info"`
	Xformers   *string `json:"xformers"`
	ModelName  *string `json:"model_name"`
	User       *string `json:"user"`
	Notes      *string `json:"notes"`
}

// IngestService loads run export files into the runs table.
type IngestService struct {
	log      logrus.FieldLogger
	store    RunReplacer
	reader   source.Reader
	maxBytes int64
	metrics  *Metrics
}

// NewIngestService creates a new IngestService. reader may be nil when
// no export source is configured; maxBytes <= 0 disables the size limit.
func NewIngestService(
	log logrus.FieldLogger,
	s RunReplacer,
	reader source.Reader,
	maxBytes int64,
	metrics *Metrics,
) *IngestService {
	return &IngestService{
		log:      log.WithField("component", "ingest"),
		store:    s,
		reader:   reader,
		maxBytes: maxBytes,
		metrics:  metrics,
	}
}

// Ingest decodes a JSON array of runs, optionally gzip or zstd
// compressed, validates every record and replaces the runs table with
// them. Derived tables are emptied and need re-deriving afterwards.
func (s *IngestService) Ingest(ctx context.Context, data []byte) (*IngestReport, error) {
	jobID := uuid.NewString()
	log := s.log.WithField("job_id", jobID)

	if s.maxBytes > 0 && int64(len(data)) > s.maxBytes {
		return nil, ErrPayloadTooLarge
	}

	payload, err := s.decompress(data)
	if err != nil {
		return nil, err
	}

	var records []runRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, &ValidationError{
			Index: -1, Field: "body", Reason: fmt.Sprintf("invalid JSON format: %v", err),
		}
	}

	runs := make([]store.Run, 0, len(records))

	for i, rec := range records {
		if err := validateRecord(i, rec); err != nil {
			log.WithError(err).WithField("index", i).Warn("Rejecting upload")

			return nil, err
		}

		runs = append(runs, store.Run{
			Timestamp:  rec.Timestamp,
			VramUsage:  rec.VramUsage,
			Info:       rec.Info,
			SystemInfo: rec.SystemInfo,
			ModelInfo:  rec.ModelInfo,
			DeviceInfo: rec.DeviceInfo,
			Xformers:   rec.Xformers,
			ModelName:  rec.ModelName,
			User:       rec.User,
			Notes:      rec.Notes,
		})
	}

	report := &IngestReport{
		JobID:     jobID,
		TotalRows: len(runs),
		ErrorData: make([]string, 0),
	}

	inserted, err := s.store.ReplaceRuns(ctx, runs)
	if err != nil {
		report.Message = "Failed to store runs"
		report.ErrorRows = len(runs)
		report.ErrorData = append(report.ErrorData, fmt.Sprintf("Transaction failed: %v", err))

		log.WithError(err).Error("Ingest transaction rolled back")
		s.metrics.observeIngest(report)

		return report, nil
	}

	report.Success = true
	report.InsertedRows = len(inserted)
	report.Message = "Data processed successfully"

	log.WithFields(logrus.Fields{
		"total_rows":    report.TotalRows,
		"inserted_rows": report.InsertedRows,
	}).Info("Runs ingested")
	s.metrics.observeIngest(report)

	return report, nil
}

// IngestFromSource ingests the named export file from the configured
// source backend.
func (s *IngestService) IngestFromSource(ctx context.Context, name string) (*IngestReport, error) {
	if s.reader == nil {
		return nil, ErrNoSource
	}

	data, err := s.reader.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}

	if data == nil {
		return nil, fmt.Errorf("%w: %q", ErrExportNotFound, name)
	}

	report, err := s.Ingest(ctx, data)
	if err != nil {
		return nil, err
	}

	report.Source = name

	return report, nil
}

// ListSource returns the export files available in the source backend.
func (s *IngestService) ListSource(ctx context.Context) ([]string, error) {
	if s.reader == nil {
		return nil, ErrNoSource
	}

	names, err := s.reader.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing export files: %w", err)
	}

	return names, nil
}

// decompress inflates gzip or zstd payloads detected by their magic
// bytes. Plain payloads are returned unchanged.
func (s *IngestService) decompress(data []byte) ([]byte, error) {
	var (
		r   io.Reader
		err error
	)

	switch {
	case bytes.HasPrefix(data, gzipMagic):
		var gz *gzip.Reader

		gz, err = gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, &ValidationError{Index: -1, Field: "body", Reason: fmt.Sprintf("invalid gzip data: %v", err)}
		}

		defer func() { _ = gz.Close() }()

		r = gz
	case bytes.HasPrefix(data, zstdMagic):
		var zr *zstd.Decoder

		zr, err = zstd.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, &ValidationError{Index: -1, Field: "body", Reason: fmt.Sprintf("invalid zstd data: %v", err)}
		}

		defer zr.Close()

		r = zr
	default:
		return data, nil
	}

	if s.maxBytes > 0 {
		r = io.LimitReader(r, s.maxBytes+1)
	}

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, &ValidationError{Index: -1, Field: "body", Reason: fmt.Sprintf("decompressing: %v", err)}
	}

	if s.maxBytes > 0 && int64(len(out)) > s.maxBytes {
		return nil, ErrPayloadTooLarge
	}

	return out, nil
}

// validateRecord checks the two fields every run must carry.
func validateRecord(index int, rec runRecord) error {
	if rec.Timestamp == nil || *rec.Timestamp == "" {
		return &ValidationError{Index: index, Field: "timestamp", Reason: "cannot be empty"}
	}

	if !strings.ContainsAny(*rec.Timestamp, "0123456789") {
		return &ValidationError{Index: index, Field: "timestamp", Reason: "invalid timestamp format"}
	}

	if rec.VramUsage == nil || *rec.VramUsage == "" {
		return &ValidationError{Index: index, Field: "vram_usage", Reason: "cannot be empty"}
	}

	// Size units (GB, MB, KB, B) all end in B.
	if !strings.ContainsAny(*rec.VramUsage, "0123456789B") {
		return &ValidationError{Index: index, Field: "vram_usage", Reason: "invalid VRAM usage format"}
	}

	return nil
}
