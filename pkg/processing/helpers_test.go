package processing_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/itsbench/pkg/config"
	"github.com/ethpandaops/itsbench/pkg/store"
)

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)

	return log
}

func setupTestStore(t *testing.T) store.Store {
	t.Helper()

	cfg := &config.DatabaseConfig{
		Driver:    "sqlite",
		SQLite:    config.SQLiteDatabaseConfig{Path: ":memory:"},
		BatchSize: 2,
	}

	s := store.NewStore(testLogger(), cfg)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func str(s string) *string {
	return &s
}

func seed(t *testing.T, s store.Store, runs ...store.Run) []store.Run {
	t.Helper()

	inserted, err := s.ReplaceRuns(context.Background(), runs)
	require.NoError(t, err)
	require.Len(t, inserted, len(runs))

	return inserted
}

// fullRun returns a run with every source column populated.
func fullRun() store.Run {
	return store.Run{
		Timestamp:  str("2024-01-01 12:00:00"),
		VramUsage:  str("1.5/invalid/2.1"),
		Info:       str("app:stable-diffusion-webui updated:2024-01-01 hash:abc123 url:https://github.com/AUTOMATIC1111/stable-diffusion-webui"),
		SystemInfo: str("arch:x86_64 cpu:Intel Core i7 system:Linux release:5.15.0 python:3.10.6"),
		ModelInfo:  str("torch:2.0.1+cu118 autocast half xformers:0.0.20 diffusers:0.18.2 transformers:4.30.2"),
		DeviceInfo: str("device:NVIDIA GeForce RTX 4090 (1) (sm_89) (8, 9) cuda:11.8 cudnn:8700 driver:535.104"),
		Xformers:   str("0.0.20"),
		ModelName:  str("v1-5-pruned-emaonly"),
		User:       str("alice"),
		Notes:      str("first run"),
	}
}

// phantomBackend lists the stored runs plus one run that does not exist,
// so any insert referencing it violates the foreign key.
type phantomBackend struct {
	store.Store
}

func (p phantomBackend) ListRuns(ctx context.Context) ([]store.Run, error) {
	runs, err := p.Store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}

	phantom := fullRun()
	phantom.ID = 9999

	return append(runs, phantom), nil
}
