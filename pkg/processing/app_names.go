package processing

import (
	"context"
	"fmt"

	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
)

// AppNamesStore is the storage surface of app name maintenance.
type AppNamesStore interface {
	AnalyzeAppDetails(ctx context.Context) (*store.AppDetailsAnalysis, error)
	FixAppNames(ctx context.Context, names store.AppNameFixes) (*store.AppNameFixResult, error)
}

// AppNamesReport is the outcome of an app name fix.
type AppNamesReport struct {
	Success       bool                   `json:"success" yaml:"success"`
	Message       string                 `json:"message" yaml:"message"`
	UpdatedCounts store.AppNameFixResult `json:"updated_counts" yaml:"updated_counts"`
	TotalUpdates  int64                  `json:"total_updates" yaml:"total_updates"`
}

// AppNamesService inspects and repairs missing app names in AppDetails.
type AppNamesService struct {
	log   logrus.FieldLogger
	store AppNamesStore
}

// NewAppNamesService creates a new AppNamesService.
func NewAppNamesService(log logrus.FieldLogger, s AppNamesStore) *AppNamesService {
	return &AppNamesService{
		log:   log.WithField("component", "app-names"),
		store: s,
	}
}

// Analyze counts AppDetails rows lacking an app name.
func (s *AppNamesService) Analyze(ctx context.Context) (*store.AppDetailsAnalysis, error) {
	analysis, err := s.store.AnalyzeAppDetails(ctx)
	if err != nil {
		return nil, fmt.Errorf("analyzing app details: %w", err)
	}

	return analysis, nil
}

// Fix writes the given names to rows matching the known url patterns.
// Every name is required.
func (s *AppNamesService) Fix(
	ctx context.Context, names store.AppNameFixes,
) (*AppNamesReport, error) {
	for _, f := range []struct {
		field string
		value string
	}{
		{"automatic1111_name", names.Automatic1111},
		{"vladmandic_name", names.Vladmandic},
		{"stable_diffusion_name", names.StableDiffusion},
		{"null_app_name_null_url_name", names.NullAppNameNullURL},
	} {
		if f.value == "" {
			return nil, &ValidationError{Index: -1, Field: f.field, Reason: "must not be empty"}
		}
	}

	res, err := s.store.FixAppNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("fixing app names: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"automatic1111":          res.Automatic1111,
		"vladmandic":             res.Vladmandic,
		"stable_diffusion":       res.StableDiffusion,
		"null_app_name_null_url": res.NullAppNameNullURL,
	}).Info("App names fixed")

	return &AppNamesReport{
		Success:       true,
		Message:       "App names updated successfully",
		UpdatedCounts: *res,
		TotalUpdates:  res.Total(),
	}, nil
}
