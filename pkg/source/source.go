package source

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ethpandaops/itsbench/pkg/config"
)

// ErrInvalidName is returned for object names that are not plain export
// file names.
var ErrInvalidName = errors.New("invalid export file name")

// exportExtensions are the file suffixes accepted as run exports.
var exportExtensions = []string{".json", ".json.gz", ".json.zst"}

// Reader provides read access to run export files kept in a backend
// (local directory or S3). Names are flat file names relative to the
// configured directory or prefix.
type Reader interface {
	// List returns the names of all export files, sorted.
	List(ctx context.Context) ([]string, error)

	// Get reads one export file.
	// Returns (nil, nil) when the file does not exist.
	Get(ctx context.Context, name string) ([]byte, error)
}

// NewReader creates the Reader for the enabled backend, or nil when no
// backend is enabled.
func NewReader(cfg *config.SourceConfig) Reader {
	switch {
	case cfg.S3.Enabled:
		return NewS3Reader(&cfg.S3)
	case cfg.Local.Enabled:
		return NewLocalReader(&cfg.Local)
	default:
		return nil
	}
}

// IsExportFile reports whether name carries an accepted export suffix.
func IsExportFile(name string) bool {
	lower := strings.ToLower(name)

	for _, ext := range exportExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}

	return false
}

// validateName rejects names that are empty, nested or escape the root.
func validateName(name string) error {
	if name == "" || name == "." || name == ".." ||
		path.Base(name) != name || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if !IsExportFile(name) {
		return fmt.Errorf("%w: %q has no export suffix", ErrInvalidName, name)
	}

	return nil
}
