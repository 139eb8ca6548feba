package processing

import (
	"fmt"
	"strings"
)

// Table names a destination table that can be re-derived from runs.
type Table string

const (
	TablePerformance Table = "its"
	TableAppDetails  Table = "app-details"
	TableSystemInfo  Table = "system-info"
	TableLibraries   Table = "libraries"
	TableGPU         Table = "gpu"
	TableRunDetails  Table = "run-details"
)

// Tables lists every re-derivable table in processing order.
var Tables = []Table{
	TablePerformance,
	TableAppDetails,
	TableSystemInfo,
	TableLibraries,
	TableGPU,
	TableRunDetails,
}

// ParseTable resolves a table name as accepted on the command line and
// in API paths.
func ParseTable(name string) (Table, error) {
	for _, t := range Tables {
		if string(t) == name {
			return t, nil
		}
	}

	names := make([]string, 0, len(Tables))
	for _, t := range Tables {
		names = append(names, string(t))
	}

	return "", fmt.Errorf(
		"unknown table %q (expected one of: %s)", name, strings.Join(names, ", "),
	)
}

// Report is the outcome of one re-derivation job.
type Report struct {
	JobID        string   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Table        Table    `json:"table" yaml:"table"`
	Success      bool     `json:"success" yaml:"success"`
	Message      string   `json:"message" yaml:"message"`
	TotalRows    int      `json:"total_rows" yaml:"total_rows"`
	InsertedRows int      `json:"inserted_rows" yaml:"inserted_rows"`
	ErrorRows    int      `json:"error_rows" yaml:"error_rows"`
	SkippedRows  int      `json:"skipped_rows" yaml:"skipped_rows"`
	ErrorData    []string `json:"error_data" yaml:"error_data"`
}

// BrandCount is the number of GPUs updated to one brand.
type BrandCount struct {
	BrandName string `json:"brand_name" yaml:"brand_name"`
	Count     int    `json:"count" yaml:"count"`
}

// BrandReport is the outcome of a GPU brand classification pass.
type BrandReport struct {
	JobID               string       `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Success             bool         `json:"success" yaml:"success"`
	Message             string       `json:"message" yaml:"message"`
	TotalUpdates        int          `json:"total_updates" yaml:"total_updates"`
	UpdateCountsByBrand []BrandCount `json:"update_counts_by_brand" yaml:"update_counts_by_brand"`
	ErrorRows           int          `json:"error_rows" yaml:"error_rows"`
	ErrorData           []string     `json:"error_data" yaml:"error_data"`
}

// LaptopReport is the outcome of a GPU laptop classification pass.
type LaptopReport struct {
	JobID             string   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Success           bool     `json:"success" yaml:"success"`
	Message           string   `json:"message" yaml:"message"`
	TotalUpdates      int      `json:"total_updates" yaml:"total_updates"`
	LaptopOnlyUpdates int      `json:"laptop_only_updates" yaml:"laptop_only_updates"`
	ErrorRows         int      `json:"error_rows" yaml:"error_rows"`
	ErrorData         []string `json:"error_data" yaml:"error_data"`
}

// ModelMapReport is the outcome of a model map backfill pass.
type ModelMapReport struct {
	JobID     string   `json:"job_id,omitempty" yaml:"job_id,omitempty"`
	Success   bool     `json:"success" yaml:"success"`
	Message   string   `json:"message" yaml:"message"`
	Updated   int      `json:"updated" yaml:"updated"`
	NotFound  int      `json:"not_found" yaml:"not_found"`
	ErrorRows int      `json:"error_rows" yaml:"error_rows"`
	ErrorData []string `json:"error_data" yaml:"error_data"`
}

// EnrichReport groups the results of the three enrichment passes.
type EnrichReport struct {
	Brands   *BrandReport    `json:"gpu_brands" yaml:"gpu_brands"`
	Laptop   *LaptopReport   `json:"gpu_laptop" yaml:"gpu_laptop"`
	ModelMap *ModelMapReport `json:"model_map" yaml:"model_map"`
}

// AllReport is the outcome of re-deriving every table, optionally
// followed by the enrichment passes.
type AllReport struct {
	Success      bool          `json:"success" yaml:"success"`
	Rederivation []*Report     `json:"rederivation" yaml:"rederivation"`
	Enrichment   *EnrichReport `json:"enrichment,omitempty" yaml:"enrichment,omitempty"`
}

// rowError formats a transform failure for the 1-based row position.
func rowError(index int, err error) string {
	return fmt.Sprintf("Run %d: %v", index+1, err)
}
