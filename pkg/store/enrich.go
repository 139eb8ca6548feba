package store

import (
	"context"
	"fmt"

	"github.com/ethpandaops/itsbench/pkg/config"
)

// UpdateGPU writes the enrichment columns (brand, isLaptop) of one GPU row.
func (s *store) UpdateGPU(ctx context.Context, gpu *GPU) error {
	result := s.db.WithContext(ctx).
		Model(&GPU{ID: gpu.ID}).
		Select("Brand", "IsLaptop").
		Updates(gpu)
	if result.Error != nil {
		return fmt.Errorf("updating gpu %d: %w", gpu.ID, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("updating gpu %d: %w", gpu.ID, ErrNotFound)
	}

	return nil
}

// ListRunDetailsWithoutModelMap returns run details rows that are not yet
// linked to a model map, ordered by id.
func (s *store) ListRunDetailsWithoutModelMap(
	ctx context.Context,
) ([]RunMoreDetails, error) {
	var rows []RunMoreDetails
	if err := s.db.WithContext(ctx).
		Where(`"ModelMapId" IS NULL`).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing unmapped run details: %w", err)
	}

	return rows, nil
}

// UpdateRunDetails writes the model map link of one run details row.
func (s *store) UpdateRunDetails(
	ctx context.Context, details *RunMoreDetails,
) error {
	result := s.db.WithContext(ctx).
		Model(&RunMoreDetails{ID: details.ID}).
		Select("ModelMapID").
		Updates(details)
	if result.Error != nil {
		return fmt.Errorf("updating run details %d: %w",
			details.ID, result.Error)
	}

	if result.RowsAffected == 0 {
		return fmt.Errorf("updating run details %d: %w",
			details.ID, ErrNotFound)
	}

	return nil
}

// FindModelMapByName returns the lowest-id model map whose model name
// equals modelName exactly, or nil when there is none.
func (s *store) FindModelMapByName(
	ctx context.Context, modelName string,
) (*ModelMap, error) {
	var maps []ModelMap
	if err := s.db.WithContext(ctx).
		Where("model_name = ?", modelName).
		Order("id ASC").
		Limit(1).
		Find(&maps).Error; err != nil {
		return nil, fmt.Errorf("finding model map %q: %w", modelName, err)
	}

	if len(maps) == 0 {
		return nil, nil
	}

	return &maps[0], nil
}

// SeedModelMaps inserts configured model maps, updating the base model of
// entries that already exist.
func (s *store) SeedModelMaps(
	ctx context.Context, maps []config.ModelMapConfig,
) error {
	for _, m := range maps {
		existing, err := s.FindModelMapByName(ctx, m.ModelName)
		if err != nil {
			return err
		}

		if existing != nil {
			base := m.BaseModel
			existing.BaseModel = &base

			if err := s.db.WithContext(ctx).
				Save(existing).Error; err != nil {
				return fmt.Errorf("updating model map %q: %w", m.ModelName, err)
			}

			continue
		}

		name, base := m.ModelName, m.BaseModel

		if err := s.db.WithContext(ctx).
			Create(&ModelMap{ModelName: &name, BaseModel: &base}).Error; err != nil {
			return fmt.Errorf("seeding model map %q: %w", m.ModelName, err)
		}
	}

	if len(maps) > 0 {
		s.log.WithField("count", len(maps)).Info("Model maps seeded")
	}

	return nil
}
