package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// ReplaceRuns swaps the whole runs table for the given batch. Derived
// tables reference runs, so they are emptied in the same transaction and
// must be re-derived afterwards.
func (s *store) ReplaceRuns(ctx context.Context, runs []Run) ([]Run, error) {
	var inserted []Run

	err := s.Transaction(ctx, func(tx *Tx) error {
		for _, clearTable := range []func(*Tx) error{
			Clear[PerformanceResult],
			Clear[AppDetails],
			Clear[SystemInfo],
			Clear[Libraries],
			Clear[GPU],
			Clear[RunMoreDetails],
		} {
			if err := clearTable(tx); err != nil {
				return err
			}
		}

		var err error

		inserted, err = Replace(tx, runs)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("replacing runs: %w", err)
	}

	s.log.WithField("runs", len(inserted)).Info("Runs replaced")

	return inserted, nil
}

// ListRuns returns a snapshot of every run ordered by id.
func (s *store) ListRuns(ctx context.Context) ([]Run, error) {
	var runs []Run
	if err := s.db.WithContext(ctx).
		Order("id ASC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}

	return runs, nil
}

// CountRuns returns the number of stored runs.
func (s *store) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).
		Model(&Run{}).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("counting runs: %w", err)
	}

	return count, nil
}

// listAll loads every row of T ordered by id.
func listAll[T any](ctx context.Context, db *gorm.DB, what string) ([]T, error) {
	var rows []T
	if err := db.WithContext(ctx).
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing %s: %w", what, err)
	}

	return rows, nil
}

// ListPerformanceResults returns every performance row ordered by id.
func (s *store) ListPerformanceResults(
	ctx context.Context,
) ([]PerformanceResult, error) {
	return listAll[PerformanceResult](ctx, s.db, "performance results")
}

// ListAppDetails returns every app details row ordered by id.
func (s *store) ListAppDetails(ctx context.Context) ([]AppDetails, error) {
	return listAll[AppDetails](ctx, s.db, "app details")
}

// ListSystemInfo returns every system info row ordered by id.
func (s *store) ListSystemInfo(ctx context.Context) ([]SystemInfo, error) {
	return listAll[SystemInfo](ctx, s.db, "system info")
}

// ListLibraries returns every libraries row ordered by id.
func (s *store) ListLibraries(ctx context.Context) ([]Libraries, error) {
	return listAll[Libraries](ctx, s.db, "libraries")
}

// ListGPUs returns every GPU row ordered by id.
func (s *store) ListGPUs(ctx context.Context) ([]GPU, error) {
	return listAll[GPU](ctx, s.db, "gpus")
}

// ListRunDetails returns every run details row ordered by id.
func (s *store) ListRunDetails(ctx context.Context) ([]RunMoreDetails, error) {
	return listAll[RunMoreDetails](ctx, s.db, "run details")
}

// ListModelMaps returns every model map ordered by id.
func (s *store) ListModelMaps(ctx context.Context) ([]ModelMap, error) {
	return listAll[ModelMap](ctx, s.db, "model maps")
}
