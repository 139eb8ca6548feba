package processing

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge is returned when an upload exceeds the configured
// maximum size, compressed or not.
var ErrPayloadTooLarge = errors.New("payload exceeds maximum upload size")

// ErrNoSource is returned by IngestFromSource when no source backend is
// configured.
var ErrNoSource = errors.New("no run source configured")

// ErrExportNotFound is returned by IngestFromSource for a missing file.
var ErrExportNotFound = errors.New("export file not found")

// ValidationError describes caller input that cannot be processed.
// Index is the 0-based record position, or -1 when the error is not
// tied to a record.
type ValidationError struct {
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}

	return fmt.Sprintf("record %d: %s: %s", e.Index+1, e.Field, e.Reason)
}
