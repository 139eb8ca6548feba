package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/itsbench/pkg/parser"
	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
)

const (
	enrichGPUBrands = "gpu_brands"
	enrichGPULaptop = "gpu_laptop"
	enrichModelMap  = "model_map"
)

var errMissingDevice = errors.New("missing device")

// GPUStore is the storage surface of the GPU enrichment passes.
type GPUStore interface {
	ListGPUs(ctx context.Context) ([]store.GPU, error)
	UpdateGPU(ctx context.Context, gpu *store.GPU) error
}

// ModelMapStore is the storage surface of the model map backfill.
type ModelMapStore interface {
	ListRunDetailsWithoutModelMap(ctx context.Context) ([]store.RunMoreDetails, error)
	FindModelMapByName(ctx context.Context, modelName string) (*store.ModelMap, error)
	UpdateRunDetails(ctx context.Context, details *store.RunMoreDetails) error
}

// GPUBrandService classifies the brand of every GPU row in place.
type GPUBrandService struct {
	log   logrus.FieldLogger
	store GPUStore
}

// NewGPUBrandService creates a new GPUBrandService.
func NewGPUBrandService(log logrus.FieldLogger, s GPUStore) *GPUBrandService {
	return &GPUBrandService{
		log:   log.WithField("component", "gpu-brands"),
		store: s,
	}
}

// Run updates the brand of each GPU row. Rows without a device and rows
// whose update fails are reported and left unchanged.
func (s *GPUBrandService) Run(ctx context.Context) (*BrandReport, error) {
	gpus, err := s.store.ListGPUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gpus: %w", err)
	}

	report := &BrandReport{
		Success:             true,
		UpdateCountsByBrand: make([]BrandCount, 0, len(parser.Brands)),
		ErrorData:           make([]string, 0),
	}

	if len(gpus) == 0 {
		report.Message = "No GPU data found to update"
		for _, b := range parser.Brands {
			report.UpdateCountsByBrand = append(report.UpdateCountsByBrand,
				BrandCount{BrandName: b.DisplayName()})
		}

		return report, nil
	}

	counts := make(map[parser.Brand]int, len(parser.Brands))

	for i := range gpus {
		gpu := &gpus[i]

		if gpu.Device == nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("GPU %d: %v", gpu.ID, errMissingDevice))

			s.log.WithField("gpu_id", gpu.ID).Warn("Skipping GPU without device")

			continue
		}

		brand := parser.ClassifyBrand(*gpu.Device)
		name := string(brand)
		gpu.Brand = &name

		if err := s.store.UpdateGPU(ctx, gpu); err != nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("GPU %d: %v", gpu.ID, err))

			s.log.WithError(err).WithField("gpu_id", gpu.ID).Warn("Failed to update GPU brand")

			continue
		}

		counts[brand]++
		report.TotalUpdates++
	}

	for _, b := range parser.Brands {
		report.UpdateCountsByBrand = append(report.UpdateCountsByBrand,
			BrandCount{BrandName: b.DisplayName(), Count: counts[b]})
	}

	report.Message = "GPU brand information updated successfully!"

	s.log.WithFields(logrus.Fields{
		"total_updates": report.TotalUpdates,
		"error_rows":    report.ErrorRows,
	}).Info("GPU brands updated")

	return report, nil
}

// GPULaptopService flags every GPU row as laptop or desktop in place.
type GPULaptopService struct {
	log   logrus.FieldLogger
	store GPUStore
}

// NewGPULaptopService creates a new GPULaptopService.
func NewGPULaptopService(log logrus.FieldLogger, s GPUStore) *GPULaptopService {
	return &GPULaptopService{
		log:   log.WithField("component", "gpu-laptop"),
		store: s,
	}
}

// Run sets the laptop flag of each GPU row using parser.IsLaptopGPU.
func (s *GPULaptopService) Run(ctx context.Context) (*LaptopReport, error) {
	gpus, err := s.store.ListGPUs(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching gpus: %w", err)
	}

	report := &LaptopReport{
		Success:   true,
		ErrorData: make([]string, 0),
	}

	for i := range gpus {
		gpu := &gpus[i]

		if gpu.Device == nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("GPU %d: %v", gpu.ID, errMissingDevice))

			s.log.WithField("gpu_id", gpu.ID).Warn("Skipping GPU without device")

			continue
		}

		isLaptop := parser.IsLaptopGPU(*gpu.Device)
		gpu.IsLaptop = &isLaptop

		if err := s.store.UpdateGPU(ctx, gpu); err != nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("GPU %d: %v", gpu.ID, err))

			s.log.WithError(err).WithField("gpu_id", gpu.ID).Warn("Failed to update GPU laptop flag")

			continue
		}

		report.TotalUpdates++
		if isLaptop {
			report.LaptopOnlyUpdates++
		}
	}

	report.Message = "GPU laptop information updated successfully!"

	s.log.WithFields(logrus.Fields{
		"total_updates":       report.TotalUpdates,
		"laptop_only_updates": report.LaptopOnlyUpdates,
		"error_rows":          report.ErrorRows,
	}).Info("GPU laptop flags updated")

	return report, nil
}

// ModelMapService links RunMoreDetails rows to the ModelMap entry with
// the same model name.
type ModelMapService struct {
	log   logrus.FieldLogger
	store ModelMapStore
}

// NewModelMapService creates a new ModelMapService.
func NewModelMapService(log logrus.FieldLogger, s ModelMapStore) *ModelMapService {
	return &ModelMapService{
		log:   log.WithField("component", "model-map"),
		store: s,
	}
}

// Run links every unlinked RunMoreDetails row that has an exact model
// name match. Unmatched rows stay unlinked and count as not found.
func (s *ModelMapService) Run(ctx context.Context) (*ModelMapReport, error) {
	details, err := s.store.ListRunDetailsWithoutModelMap(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching run details: %w", err)
	}

	report := &ModelMapReport{
		Success:   true,
		ErrorData: make([]string, 0),
	}

	if len(details) == 0 {
		report.Message = "All RunMoreDetails entries already have ModelMapId."

		return report, nil
	}

	for i := range details {
		d := &details[i]

		if d.ModelName == nil {
			report.NotFound++

			continue
		}

		mm, err := s.store.FindModelMapByName(ctx, *d.ModelName)
		if err != nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("RunMoreDetails %d: %v", d.ID, err))

			s.log.WithError(err).WithField("run_details_id", d.ID).Warn("Model map lookup failed")

			continue
		}

		if mm == nil {
			report.NotFound++

			s.log.WithField("model_name", *d.ModelName).Debug("No model map entry")

			continue
		}

		d.ModelMapID = &mm.ID

		if err := s.store.UpdateRunDetails(ctx, d); err != nil {
			report.ErrorRows++
			report.ErrorData = append(report.ErrorData,
				fmt.Sprintf("RunMoreDetails %d: %v", d.ID, err))

			s.log.WithError(err).WithField("run_details_id", d.ID).Warn("Failed to link model map")

			continue
		}

		report.Updated++
	}

	report.Message = fmt.Sprintf(
		"RunMoreDetails updated with ModelMapId successfully. Updated: %d, Not found: %d",
		report.Updated, report.NotFound,
	)

	s.log.WithFields(logrus.Fields{
		"updated":    report.Updated,
		"not_found":  report.NotFound,
		"error_rows": report.ErrorRows,
	}).Info("Model map backfill completed")

	return report, nil
}
