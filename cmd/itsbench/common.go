package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by --output.
const (
	outputText = "text"
	outputJSON = "json"
	outputYAML = "yaml"
)

// loadConfig loads and validates the files given with --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFiles...)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	// global.log_level applies unless --log-level was given explicitly.
	if cfg.Global.LogLevel != "" && !rootCmd.PersistentFlags().Changed("log-level") {
		level, err := logrus.ParseLevel(cfg.Global.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("invalid global.log_level %q: %w", cfg.Global.LogLevel, err)
		}

		log.SetLevel(level)
	}

	return cfg, nil
}

// openStore starts the configured store and seeds model maps. The
// caller must Stop the returned store.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	st := store.NewStore(log, &cfg.Database)
	if err := st.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting store: %w", err)
	}

	if err := st.SeedModelMaps(ctx, cfg.ModelMaps); err != nil {
		_ = st.Stop()

		return nil, fmt.Errorf("seeding model maps: %w", err)
	}

	return st, nil
}

// validateOutput rejects unknown --output values.
func validateOutput(format string) error {
	switch format {
	case outputText, outputJSON, outputYAML:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (expected text, json or yaml)", format)
	}
}

// render writes v as JSON or YAML, or calls text for the text format.
func render(w io.Writer, format string, v any, text func(w io.Writer)) error {
	switch format {
	case outputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")

		return enc.Encode(v)
	case outputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)

		if err := enc.Encode(v); err != nil {
			return err
		}

		return enc.Close()
	default:
		text(w)

		return nil
	}
}

// writeErrors prints indented error lines, capped at limit.
func writeErrors(w io.Writer, errs []string, limit int) {
	for i, e := range errs {
		if i == limit {
			fmt.Fprintf(w, "    ... %d more\n", len(errs)-limit)

			break
		}

		fmt.Fprintf(w, "    %s\n", strings.TrimSpace(e))
	}
}
