package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/spf13/cobra"
)

// maxTextErrors caps the error lines printed per report in text output.
const maxTextErrors = 10

const tableAll = "all"

var (
	processTable  string
	processEnrich bool
	processOutput string
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Re-derive normalized tables from the runs table",
	Long: `Re-derive one or all normalized tables from the runs table. Each table
is replaced atomically. With --enrich the GPU brand, laptop and model map
passes run afterwards.`,
	RunE: runProcess,
}

func init() {
	rootCmd.AddCommand(processCmd)

	names := make([]string, 0, len(processing.Tables)+1)
	for _, t := range processing.Tables {
		names = append(names, string(t))
	}

	names = append(names, tableAll)

	processCmd.Flags().StringVar(&processTable, "table", tableAll,
		"table to re-derive ("+strings.Join(names, ", ")+")")
	processCmd.Flags().BoolVar(&processEnrich, "enrich", false,
		"run the enrichment passes after re-derivation")
	processCmd.Flags().StringVar(&processOutput, "output", outputText,
		"output format (text, json, yaml)")
}

func runProcess(cmd *cobra.Command, args []string) error {
	if err := validateOutput(processOutput); err != nil {
		return err
	}

	var table processing.Table

	if processTable != tableAll {
		t, err := processing.ParseTable(processTable)
		if err != nil {
			return err
		}

		table = t
	}

	cfg, err := loadConfig()
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

	coordinator := processing.NewCoordinator(
		log, st, processing.NewMetrics(), cfg.Processing.Concurrency,
	)

	result, err := runTables(ctx, coordinator, table, processEnrich)
	if err != nil {
		return err
	}

	if err := render(cmd.OutOrStdout(), processOutput, result, func(w io.Writer) {
		writeAllText(w, result)
	}); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}

	if !result.Success {
		return errors.New("one or more processing steps failed")
	}

	return nil
}

// runTables re-derives table, or every table when table is empty, and
// optionally runs enrichment.
func runTables(
	ctx context.Context,
	coordinator *processing.Coordinator,
	table processing.Table,
	enrich bool,
) (*processing.AllReport, error) {
	if table == "" {
		all, err := coordinator.ProcessAll(ctx, enrich)
		if err != nil {
			return nil, fmt.Errorf("processing tables: %w", err)
		}

		return all, nil
	}

	report, err := coordinator.Process(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("processing %s: %w", table, err)
	}

	result := &processing.AllReport{
		Success:      report.Success,
		Rederivation: []*processing.Report{report},
	}

	if enrich && report.Success {
		result.Enrichment, err = coordinator.Enrich(ctx)
		if err != nil {
			return nil, fmt.Errorf("enriching: %w", err)
		}
	}

	return result, nil
}

func writeAllText(w io.Writer, all *processing.AllReport) {
	for _, r := range all.Rederivation {
		status := "ok"
		if !r.Success {
			status = "FAILED"
		}

		fmt.Fprintf(w, "%-12s %-6s %s\n", r.Table, status, r.Message)
		fmt.Fprintf(w, "    rows: %d total, %d inserted, %d errors, %d skipped\n",
			r.TotalRows, r.InsertedRows, r.ErrorRows, r.SkippedRows)
		writeErrors(w, r.ErrorData, maxTextErrors)
	}

	e := all.Enrichment
	if e == nil {
		return
	}

	if e.Brands != nil {
		fmt.Fprintf(w, "%-12s %s\n", "gpu-brands", e.Brands.Message)

		for _, c := range e.Brands.UpdateCountsByBrand {
			fmt.Fprintf(w, "    %s: %d\n", c.BrandName, c.Count)
		}

		writeErrors(w, e.Brands.ErrorData, maxTextErrors)
	}

	if e.Laptop != nil {
		fmt.Fprintf(w, "%-12s %s\n", "gpu-laptop", e.Laptop.Message)
		fmt.Fprintf(w, "    updates: %d total, %d laptop\n",
			e.Laptop.TotalUpdates, e.Laptop.LaptopOnlyUpdates)
		writeErrors(w, e.Laptop.ErrorData, maxTextErrors)
	}

	if e.ModelMap != nil {
		fmt.Fprintf(w, "%-12s %s\n", "model-map", e.ModelMap.Message)
		fmt.Fprintf(w, "    updated: %d, not found: %d\n",
			e.ModelMap.Updated, e.ModelMap.NotFound)
		writeErrors(w, e.ModelMap.ErrorData, maxTextErrors)
	}
}
