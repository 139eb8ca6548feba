package processing_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/itsbench/pkg/processing"
	"github.com/ethpandaops/itsbench/pkg/store"
)

var testFixes = store.AppNameFixes{
	Automatic1111:      "AUTOMATIC1111",
	Vladmandic:         "SD.Next",
	StableDiffusion:    "stable-diffusion-webui",
	NullAppNameNullURL: "Unknown",
}

func TestAppNamesService(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	seed(t, s,
		store.Run{Info: str("app:old url:https://github.com/AUTOMATIC1111/stable-diffusion-webui")},
		store.Run{Info: str("url:https://github.com/vladmandic/automatic")},
		store.Run{Info: str("updated:2024-01-01")},
		store.Run{Info: str("app:kept url:https://example.com")},
	)

	_, err := processing.NewAppDetailsService(testLogger(), s).Run(ctx)
	require.NoError(t, err)

	svc := processing.NewAppNamesService(testLogger(), s)

	analysis, err := svc.Analyze(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), analysis.TotalRows)
	assert.Equal(t, int64(1), analysis.NullAppNameNullURL)
	assert.Equal(t, int64(1), analysis.NullAppNameNonNullURL)

	report, err := svc.Fix(ctx, testFixes)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, int64(1), report.UpdatedCounts.Automatic1111)
	assert.Equal(t, int64(1), report.UpdatedCounts.Vladmandic)
	assert.Equal(t, int64(0), report.UpdatedCounts.StableDiffusion)
	assert.Equal(t, int64(1), report.UpdatedCounts.NullAppNameNullURL)
	assert.Equal(t, int64(3), report.TotalUpdates)

	rows, err := s.ListAppDetails(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, *r.AppName)
	}

	assert.Equal(t, []string{"AUTOMATIC1111", "SD.Next", "Unknown", "kept"}, names)
}

func TestAppNamesService_FixRequiresAllNames(t *testing.T) {
	svc := processing.NewAppNamesService(testLogger(), setupTestStore(t))

	fixes := testFixes
	fixes.StableDiffusion = ""

	_, err := svc.Fix(context.Background(), fixes)
	require.Error(t, err)

	var verr *processing.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "stable_diffusion_name", verr.Field)
}
