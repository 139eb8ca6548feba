package processing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/store"
)

func seedGPUs(t *testing.T, s store.Store, devices ...*string) {
	t.Helper()

	ctx := context.Background()
	runs := make([]store.Run, len(devices))
	seeded := seed(t, s, runs...)

	gpus := make([]store.GPU, 0, len(devices))
	for i, d := range devices {
		gpus = append(gpus, store.GPU{RunID: seeded[i].ID, Device: d})
	}

	require.NoError(t, s.Transaction(ctx, func(tx *store.Tx) error {
		_, err := store.Replace(tx, gpus)

		return err
	}))
}

func TestGPUBrandService(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seedGPUs(t, s,
		str("NVIDIA GeForce RTX 4090"),
		str("AMD-compatible NVIDIA driver"),
		str("AMD Radeon RX 7900 XTX"),
		str("Intel Arc A770"),
		str("Apple M2"),
		nil,
	)

	report, err := processing.NewGPUBrandService(testLogger(), s).Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "GPU brand information updated successfully!", report.Message)
	assert.Equal(t, 5, report.TotalUpdates)
	assert.Equal(t, 1, report.ErrorRows)
	assert.Equal(t, []processing.BrandCount{
		{BrandName: "Nvidia", Count: 2},
		{BrandName: "Amd", Count: 1},
		{BrandName: "Intel", Count: 1},
		{BrandName: "Unknown", Count: 1},
	}, report.UpdateCountsByBrand)

	gpus, err := s.ListGPUs(ctx)
	require.NoError(t, err)

	brands := make([]*string, 0, len(gpus))
	for _, g := range gpus {
		brands = append(brands, g.Brand)
	}

	assert.Equal(t, []*string{
		str("nvidia"), str("nvidia"), str("amd"), str("intel"), str("unknown"), nil,
	}, brands)
}

func TestGPUBrandService_NoGPUs(t *testing.T) {
	s := setupTestStore(t)

	report, err := processing.NewGPUBrandService(testLogger(), s).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "No GPU data found to update", report.Message)
	assert.Zero(t, report.TotalUpdates)
	assert.Len(t, report.UpdateCountsByBrand, 4)
}

func TestGPULaptopService(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seedGPUs(t, s,
		str("NVIDIA GeForce RTX 3070 Laptop GPU"),
		str("AMD Radeon RX 6800M"),
		str("NVIDIA GeForce RTX 4090"),
		nil,
	)

	report, err := processing.NewGPULaptopService(testLogger(), s).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, "GPU laptop information updated successfully!", report.Message)
	assert.Equal(t, 3, report.TotalUpdates)
	assert.Equal(t, 2, report.LaptopOnlyUpdates)
	assert.Equal(t, 1, report.ErrorRows)

	gpus, err := s.ListGPUs(ctx)
	require.NoError(t, err)
	require.Len(t, gpus, 4)
	assert.True(t, *gpus[0].IsLaptop)
	assert.True(t, *gpus[1].IsLaptop)
	assert.False(t, *gpus[2].IsLaptop)
	assert.Nil(t, gpus[3].IsLaptop)

	// Re-running yields the same flags.
	again, err := processing.NewGPULaptopService(testLogger(), s).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, report.LaptopOnlyUpdates, again.LaptopOnlyUpdates)
}

// failingGPUStore fails every update.
type failingGPUStore struct {
	store.Store
}

func (failingGPUStore) UpdateGPU(context.Context, *store.GPU) error {
	return errors.New("disk full")
}

func TestGPUBrandService_UpdateFailuresContinue(t *testing.T) {
	s := setupTestStore(t)

	seedGPUs(t, s, str("NVIDIA A100"), str("Radeon VII"))

	report, err := processing.NewGPUBrandService(testLogger(), failingGPUStore{s}).
		Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Zero(t, report.TotalUpdates)
	assert.Equal(t, 2, report.ErrorRows)
	assert.Contains(t, report.ErrorData[0], "disk full")
}

func TestModelMapService(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SeedModelMaps(ctx, []config.ModelMapConfig{
		{ModelName: "v1-5-pruned-emaonly", BaseModel: "SD 1.5"},
	}))

	withName := func(name *string) store.Run {
		r := fullRun()
		r.ModelName = name

		return r
	}

	seed(t, s,
		withName(str("v1-5-pruned-emaonly")),
		withName(str("sd_xl_base_1.0")),
		withName(nil),
	)

	_, err := processing.NewRunDetailsService(testLogger(), s).Run(ctx)
	require.NoError(t, err)

	svc := processing.NewModelMapService(testLogger(), s)

	report, err := svc.Run(ctx)
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 2, report.NotFound)
	assert.Equal(t,
		"RunMoreDetails updated with ModelMapId successfully. Updated: 1, Not found: 2",
		report.Message)

	details, err := s.ListRunDetails(ctx)
	require.NoError(t, err)
	require.Len(t, details, 3)
	require.NotNil(t, details[0].ModelMapID)
	assert.Nil(t, details[1].ModelMapID)
	assert.Nil(t, details[2].ModelMapID)

	// Unmatched rows stay eligible and are retried.
	again, err := svc.Run(ctx)
	require.NoError(t, err)
	assert.Zero(t, again.Updated)
	assert.Equal(t, 2, again.NotFound)
}

func TestModelMapService_NothingToMap(t *testing.T) {
	s := setupTestStore(t)

	report, err := processing.NewModelMapService(testLogger(), s).Run(context.Background())
	require.NoError(t, err)

	assert.True(t, report.Success)
	assert.Equal(t, "All RunMoreDetails entries already have ModelMapId.", report.Message)
}
