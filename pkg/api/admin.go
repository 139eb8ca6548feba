package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/source"
	"github.com/ethpandaops/itsbench/pkg/store"
)

// multipartOverhead is the allowance for multipart framing on top of the
// maximum upload size.
const multipartOverhead = 1 << 20

// writeProcessingError maps a processing error to an HTTP status.
func (s *server) writeProcessingError(w http.ResponseWriter, err error) {
	var (
		verr     *processing.ValidationError
		maxBytes *http.MaxBytesError
	)

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{verr.Error()})
	case errors.Is(err, processing.ErrPayloadTooLarge), errors.As(err, &maxBytes):
		writeJSON(w, http.StatusRequestEntityTooLarge,
			errorResponse{processing.ErrPayloadTooLarge.Error()})
	case errors.Is(err, source.ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, errorResponse{err.Error()})
	case errors.Is(err, processing.ErrNoSource),
		errors.Is(err, processing.ErrExportNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{err.Error()})
	default:
		s.log.WithError(err).Error("Processing request failed")
		writeJSON(w, http.StatusInternalServerError,
			errorResponse{"internal error"})
	}
}

// writeReport writes a report with 200 on success and 500 otherwise.
func writeReport(w http.ResponseWriter, success bool, report any) {
	status := http.StatusOK
	if !success {
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, report)
}

// --- Ingestion ---

// handleSaveData replaces the runs table with an uploaded export file
// sent as the multipart field "file".
func (s *server) handleSaveData(w http.ResponseWriter, r *http.Request) {
	if s.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize+multipartOverhead)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			s.writeProcessingError(w, err)

			return
		}

		writeJSON(w, http.StatusBadRequest,
			errorResponse{"multipart field \"file\" is required"})

		return
	}

	defer func() { _ = file.Close() }()

	if !source.IsExportFile(header.Filename) {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"file must be .json, .json.gz or .json.zst"})

		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	report, err := s.ingest.Ingest(r.Context(), data)
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	report.Source = header.Filename

	writeReport(w, report.Success, report)
}

// handleListSources lists export files in the configured source backend.
func (s *server) handleListSources(w http.ResponseWriter, r *http.Request) {
	names, err := s.ingest.ListSource(r.Context())
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"files": names})
}

// handleIngestSource ingests one export file from the source backend.
func (s *server) handleIngestSource(w http.ResponseWriter, r *http.Request) {
	report, err := s.ingest.IngestFromSource(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}

// --- Re-derivation ---

// handleProcess returns a handler re-deriving table.
func (s *server) handleProcess(table processing.Table) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := s.coordinator.Process(r.Context(), table)
		if err != nil {
			s.writeProcessingError(w, err)

			return
		}

		writeReport(w, report.Success, report)
	}
}

// handleProcessAll re-derives every table. The enrichment passes follow
// unless ?enrich=false is given.
func (s *server) handleProcessAll(w http.ResponseWriter, r *http.Request) {
	enrich := r.URL.Query().Get("enrich") != "false"

	report, err := s.coordinator.ProcessAll(r.Context(), enrich)
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}

// --- Enrichment ---

func (s *server) handleUpdateGPUBrands(w http.ResponseWriter, r *http.Request) {
	report, err := s.coordinator.UpdateGPUBrands(r.Context())
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}

func (s *server) handleUpdateGPULaptopInfo(w http.ResponseWriter, r *http.Request) {
	report, err := s.coordinator.UpdateGPULaptopInfo(r.Context())
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}

func (s *server) handleUpdateRunMoreDetails(w http.ResponseWriter, r *http.Request) {
	report, err := s.coordinator.UpdateModelMaps(r.Context())
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}

// --- App names ---

func (s *server) handleAppDetailsAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.appNames.Analyze(r.Context())
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func (s *server) handleFixAppNames(w http.ResponseWriter, r *http.Request) {
	var req store.AppNameFixes
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			errorResponse{"invalid request body"})

		return
	}

	report, err := s.appNames.Fix(r.Context(), req)
	if err != nil {
		s.writeProcessingError(w, err)

		return
	}

	writeReport(w, report.Success, report)
}
