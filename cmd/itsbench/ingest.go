package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/source"
	"github.com/spf13/cobra"
)

var (
	ingestFile    string
	ingestObject  string
	ingestProcess bool
	ingestOutput  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Replace the runs table with an export file",
	Long: `Replace the runs table with the contents of a run export file. The file
is either a local path (--file) or an object in the configured source
backend (--object). Exports may be plain JSON or gzip/zstd compressed.`,
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestFile, "file", "",
		"local export file to ingest")
	ingestCmd.Flags().StringVar(&ingestObject, "object", "",
		"export file name in the configured source backend")
	ingestCmd.Flags().BoolVar(&ingestProcess, "process", false,
		"re-derive all tables and run enrichment after ingesting")
	ingestCmd.Flags().StringVar(&ingestOutput, "output", outputText,
		"output format (text, json, yaml)")

	ingestCmd.MarkFlagsMutuallyExclusive("file", "object")
	ingestCmd.MarkFlagsOneRequired("file", "object")
}

type ingestResult struct {
	Ingest  *processing.IngestReport `json:"ingest" yaml:"ingest"`
	Process *processing.AllReport    `json:"process,omitempty" yaml:"process,omitempty"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	if err := validateOutput(ingestOutput); err != nil {
		return err
	}

	if ingestFile != "" && !source.IsExportFile(ingestFile) {
		return fmt.Errorf("file must be .json, .json.gz or .json.zst: %s", ingestFile)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	maxUpload, err := cfg.Ingest.MaxUploadBytes()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}

	defer func() {
		if err := st.Stop(); err != nil {
			log.WithError(err).Warn("Failed to close store")
		}
	}()

	metrics := processing.NewMetrics()
	coordinator := processing.NewCoordinator(
		log, st, metrics, cfg.Processing.Concurrency,
	)
	svc := processing.NewIngestService(
		log, coordinator, source.NewReader(&cfg.Ingest.Source), maxUpload, metrics,
	)

	var report *processing.IngestReport

	if ingestFile != "" {
		data, err := readExportFile(ingestFile, maxUpload)
		if err != nil {
			return err
		}

		report, err = svc.Ingest(ctx, data)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", ingestFile, err)
		}

		report.Source = filepath.Base(ingestFile)
	} else {
		report, err = svc.IngestFromSource(ctx, ingestObject)
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", ingestObject, err)
		}
	}

	result := &ingestResult{Ingest: report}

	if report.Success && ingestProcess {
		result.Process, err = coordinator.ProcessAll(ctx, true)
		if err != nil {
			return fmt.Errorf("processing tables: %w", err)
		}
	}

	if err := render(cmd.OutOrStdout(), ingestOutput, result, func(w io.Writer) {
		writeIngestText(w, result)
	}); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if !report.Success {
		return errors.New(report.Message)
	}

	if result.Process != nil && !result.Process.Success {
		return errors.New("one or more processing steps failed")
	}

	return nil
}

// readExportFile reads path, refusing files larger than maxBytes.
func readExportFile(path string, maxBytes int64) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s: %w", path, processing.ErrPayloadTooLarge)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	return data, nil
}

func writeIngestText(w io.Writer, result *ingestResult) {
	r := result.Ingest

	fmt.Fprintf(w, "Ingest %s (job %s)\n", r.Source, r.JobID)
	fmt.Fprintf(w, "  %s\n", r.Message)
	fmt.Fprintf(w, "  rows: %d total, %d inserted, %d errors\n",
		r.TotalRows, r.InsertedRows, r.ErrorRows)
	writeErrors(w, r.ErrorData, maxTextErrors)

	if result.Process != nil {
		fmt.Fprintln(w)
		writeAllText(w, result.Process)
	}
}
