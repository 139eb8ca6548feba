package processing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// defaultConcurrency is the number of tables re-derived in parallel when
// no explicit concurrency value is configured.
const defaultConcurrency = 3

// Coordinator serializes jobs per destination table and runs the
// re-derivation and enrichment services with job ids and metrics.
type Coordinator struct {
	log         logrus.FieldLogger
	metrics     *Metrics
	concurrency int

	runs       RunReplacer
	rederivers map[Table]Rederiver
	locks      map[Table]*sync.Mutex

	brands   *GPUBrandService
	laptop   *GPULaptopService
	modelMap *ModelMapService
}

// Compile-time interface check.
var _ RunReplacer = (*Coordinator)(nil)

// NewCoordinator wires every processing service to st.
func NewCoordinator(
	log logrus.FieldLogger,
	st store.Store,
	metrics *Metrics,
	concurrency int,
) *Coordinator {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	c := &Coordinator{
		log:         log.WithField("component", "coordinator"),
		metrics:     metrics,
		concurrency: concurrency,
		runs:        st,
		rederivers:  make(map[Table]Rederiver, len(Tables)),
		locks:       make(map[Table]*sync.Mutex, len(Tables)),
		brands:      NewGPUBrandService(log, st),
		laptop:      NewGPULaptopService(log, st),
		modelMap:    NewModelMapService(log, st),
	}

	for _, t := range Tables {
		c.rederivers[t] = NewRederiver(log, t, st)
		c.locks[t] = &sync.Mutex{}
	}

	return c
}

// Process re-derives one table. Calls for the same table run one at a
// time; calls for different tables run independently.
func (c *Coordinator) Process(ctx context.Context, table Table) (*Report, error) {
	svc, ok := c.rederivers[table]
	if !ok {
		return nil, fmt.Errorf("unknown table %q", table)
	}

	mu := c.locks[table]
	mu.Lock()
	defer mu.Unlock()

	jobID := uuid.NewString()
	log := c.log.WithFields(logrus.Fields{"job_id": jobID, "table": table})
	start := time.Now()

	log.Info("Processing job started")

	report, err := svc.Run(ctx)
	if err != nil {
		log.WithError(err).Error("Processing job failed")

		return nil, err
	}

	report.JobID = jobID
	duration := time.Since(start)
	c.metrics.observeReport(report, duration.Seconds())

	log.WithFields(logrus.Fields{
		"success":       report.Success,
		"inserted_rows": report.InsertedRows,
		"error_rows":    report.ErrorRows,
		"duration":      duration.Round(time.Millisecond),
	}).Info("Processing job completed")

	return report, nil
}

// ProcessAll re-derives every table with bounded parallelism. With
// enrich set, the enrichment passes follow once all tables are rebuilt.
// Reports are returned in Tables order.
func (c *Coordinator) ProcessAll(ctx context.Context, enrich bool) (*AllReport, error) {
	reports := make([]*Report, len(Tables))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for i, table := range Tables {
		g.Go(func() error {
			report, err := c.Process(gCtx, table)
			if err != nil {
				return fmt.Errorf("processing %s: %w", table, err)
			}

			reports[i] = report

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	all := &AllReport{Success: true, Rederivation: reports}

	for _, r := range reports {
		if !r.Success {
			all.Success = false
		}
	}

	if !enrich {
		return all, nil
	}

	enriched, err := c.Enrich(ctx)
	if err != nil {
		return nil, err
	}

	all.Enrichment = enriched

	return all, nil
}

// Enrich runs the brand, laptop and model map passes in that order.
func (c *Coordinator) Enrich(ctx context.Context) (*EnrichReport, error) {
	brands, err := c.UpdateGPUBrands(ctx)
	if err != nil {
		return nil, err
	}

	laptop, err := c.UpdateGPULaptopInfo(ctx)
	if err != nil {
		return nil, err
	}

	modelMap, err := c.UpdateModelMaps(ctx)
	if err != nil {
		return nil, err
	}

	return &EnrichReport{Brands: brands, Laptop: laptop, ModelMap: modelMap}, nil
}

// ReplaceRuns swaps the runs table while holding every destination
// table, since replacing runs empties them all. Locks are taken in Tables
// order.
func (c *Coordinator) ReplaceRuns(ctx context.Context, runs []store.Run) ([]store.Run, error) {
	for _, t := range Tables {
		c.locks[t].Lock()
	}

	defer func() {
		for _, t := range Tables {
			c.locks[t].Unlock()
		}
	}()

	return c.runs.ReplaceRuns(ctx, runs)
}

// UpdateGPUBrands classifies GPU brands while holding the GPU table.
func (c *Coordinator) UpdateGPUBrands(ctx context.Context) (*BrandReport, error) {
	mu := c.locks[TableGPU]
	mu.Lock()
	defer mu.Unlock()

	jobID := uuid.NewString()

	report, err := c.brands.Run(ctx)
	if err != nil {
		c.log.WithError(err).WithField("job_id", jobID).Error("GPU brand update failed")

		return nil, err
	}

	report.JobID = jobID
	c.metrics.addEnrichUpdates(enrichGPUBrands, report.TotalUpdates)

	return report, nil
}

// UpdateGPULaptopInfo classifies laptop GPUs while holding the GPU table.
func (c *Coordinator) UpdateGPULaptopInfo(ctx context.Context) (*LaptopReport, error) {
	mu := c.locks[TableGPU]
	mu.Lock()
	defer mu.Unlock()

	jobID := uuid.NewString()

	report, err := c.laptop.Run(ctx)
	if err != nil {
		c.log.WithError(err).WithField("job_id", jobID).Error("GPU laptop update failed")

		return nil, err
	}

	report.JobID = jobID
	c.metrics.addEnrichUpdates(enrichGPULaptop, report.TotalUpdates)

	return report, nil
}

// UpdateModelMaps links run details to model maps while holding the
// run details table.
func (c *Coordinator) UpdateModelMaps(ctx context.Context) (*ModelMapReport, error) {
	mu := c.locks[TableRunDetails]
	mu.Lock()
	defer mu.Unlock()

	jobID := uuid.NewString()

	report, err := c.modelMap.Run(ctx)
	if err != nil {
		c.log.WithError(err).WithField("job_id", jobID).Error("Model map update failed")

		return nil, err
	}

	report.JobID = jobID
	c.metrics.addEnrichUpdates(enrichModelMap, report.Updated)

	return report, nil
}
