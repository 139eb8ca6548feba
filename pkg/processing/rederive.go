package processing

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
)

// progressInterval is how many source rows pass between progress logs.
const progressInterval = 100

// errSkip marks a run that yields no record without being an error.
var errSkip = errors.New("skipped")

// errMissingID is reported for runs without a primary key.
var errMissingID = errors.New("missing run id")

// Backend is the storage surface a re-derivation needs: a snapshot of
// the runs and a transaction to replace the destination table in.
type Backend interface {
	ListRuns(ctx context.Context) ([]store.Run, error)
	Transaction(ctx context.Context, fn func(tx *store.Tx) error) error
}

// Rederiver rebuilds one destination table from the runs table.
type Rederiver interface {
	// Table returns the destination table.
	Table() Table

	// Run re-derives the table. Storage failures while replacing the
	// table are reported through the Report; only a failure to read the
	// runs is returned as an error.
	Run(ctx context.Context) (*Report, error)
}

// buildFunc turns one run into a destination record. It returns errSkip
// to drop the run silently and any other error to count it as failed.
type buildFunc[T any] func(run store.Run) (T, error)

type rederiver[T any] struct {
	log     logrus.FieldLogger
	table   Table
	backend Backend
	build   buildFunc[T]
}

// Compile-time interface check.
var _ Rederiver = (*rederiver[store.GPU])(nil)

func newRederiver[T any](
	log logrus.FieldLogger,
	table Table,
	backend Backend,
	build buildFunc[T],
) *rederiver[T] {
	return &rederiver[T]{
		log:     log.WithField("component", "rederive").WithField("table", table),
		table:   table,
		backend: backend,
		build:   build,
	}
}

func (r *rederiver[T]) Table() Table {
	return r.table
}

// transformResult is the outcome of the transform phase.
type transformResult[T any] struct {
	records []T
	skipped int
	errors  []string
}

// transform builds records for runs in their given order. It never
// fails: rows that cannot be built are counted and described instead.
func (r *rederiver[T]) transform(runs []store.Run) transformResult[T] {
	res := transformResult[T]{
		records: make([]T, 0, len(runs)),
		errors:  make([]string, 0),
	}

	for i, run := range runs {
		if i > 0 && i%progressInterval == 0 {
			r.log.WithField("processed", i).Info("Transform progress")
		}

		if run.ID == 0 {
			res.errors = append(res.errors, rowError(i, errMissingID))

			r.log.WithField("index", i).Warn("Skipping run without id")

			continue
		}

		record, err := r.build(run)
		if errors.Is(err, errSkip) {
			res.skipped++

			r.log.WithField("run_id", run.ID).Debug("Run yields no record")

			continue
		}

		if err != nil {
			res.errors = append(res.errors, rowError(i, err))

			r.log.WithError(err).
				WithField("run_id", run.ID).
				WithField("index", i).
				Warn("Skipping run")

			continue
		}

		res.records = append(res.records, record)
	}

	return res
}

// persist clears the destination table and inserts records inside one
// transaction. On error nothing is committed.
func (r *rederiver[T]) persist(ctx context.Context, records []T) (int, error) {
	var inserted []T

	err := r.backend.Transaction(ctx, func(tx *store.Tx) error {
		var err error

		inserted, err = store.Replace(tx, records)

		return err
	})
	if err != nil {
		return 0, err
	}

	return len(inserted), nil
}

func (r *rederiver[T]) Run(ctx context.Context) (*Report, error) {
	runs, err := r.backend.ListRuns(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching runs: %w", err)
	}

	r.log.WithField("total_rows", len(runs)).Info("Re-derivation started")

	res := r.transform(runs)

	report := &Report{
		Table:       r.table,
		TotalRows:   len(runs),
		ErrorRows:   len(res.errors),
		SkippedRows: res.skipped,
		ErrorData:   res.errors,
	}

	inserted, err := r.persist(ctx, res.records)
	if err != nil {
		report.Success = false
		report.Message = fmt.Sprintf("Failed to replace %s data", r.table)
		report.ErrorData = append(report.ErrorData, fmt.Sprintf("Transaction failed: %v", err))

		r.log.WithError(err).Error("Re-derivation transaction rolled back")

		return report, nil
	}

	report.Success = true
	report.InsertedRows = inserted
	report.Message = fmt.Sprintf(
		"%s data processed: %d inserted, %d errors, %d skipped",
		r.table, inserted, report.ErrorRows, report.SkippedRows,
	)

	r.log.WithFields(logrus.Fields{
		"inserted_rows": inserted,
		"error_rows":    report.ErrorRows,
		"skipped_rows":  report.SkippedRows,
	}).Info("Re-derivation completed")

	return report, nil
}
