package store

import (
	"context"
	"fmt"
)

// AnalyzeAppDetails counts app details rows without an app name, split by
// whether a url is present.
func (s *store) AnalyzeAppDetails(
	ctx context.Context,
) (*AppDetailsAnalysis, error) {
	var a AppDetailsAnalysis

	if err := s.db.WithContext(ctx).Model(&AppDetails{}).
		Count(&a.TotalRows).Error; err != nil {
		return nil, fmt.Errorf("counting app details: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&AppDetails{}).
		Where("app_name IS NULL AND url IS NULL").
		Count(&a.NullAppNameNullURL).Error; err != nil {
		return nil, fmt.Errorf("counting app details without name and url: %w", err)
	}

	if err := s.db.WithContext(ctx).Model(&AppDetails{}).
		Where("app_name IS NULL AND url IS NOT NULL").
		Count(&a.NullAppNameNonNullURL).Error; err != nil {
		return nil, fmt.Errorf("counting app details without name: %w", err)
	}

	return &a, nil
}

// FixAppNames backfills app names from well-known repository urls. The
// updates run in order in one transaction and later ones only touch rows
// still lacking a name, except the AUTOMATIC1111 rule which always applies.
func (s *store) FixAppNames(
	ctx context.Context, names AppNameFixes,
) (*AppNameFixResult, error) {
	var res AppNameFixResult

	updates := []struct {
		target *int64
		name   string
		where  string
	}{
		{&res.Automatic1111, names.Automatic1111,
			"url LIKE '%AUTOMATIC1111%'"},
		{&res.Vladmandic, names.Vladmandic,
			"url LIKE '%vladmandic%' AND (app_name IS NULL OR app_name = '')"},
		{&res.StableDiffusion, names.StableDiffusion,
			"url LIKE '%stable-diffusion-webui%' AND app_name IS NULL"},
		{&res.NullAppNameNullURL, names.NullAppNameNullURL,
			"app_name IS NULL AND url IS NULL"},
	}

	err := s.Transaction(ctx, func(tx *Tx) error {
		for _, u := range updates {
			result := tx.db.Model(&AppDetails{}).
				Where(u.where).
				Update("app_name", u.name)
			if result.Error != nil {
				return fmt.Errorf("updating app names (%s): %w",
					u.where, result.Error)
			}

			*u.target = result.RowsAffected
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &res, nil
}
