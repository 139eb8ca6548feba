package processing

import (
	"errors"

	"github.com/ethpandaops/itsbench/pkg/parser"
	"github.com/ethpandaops/itsbench/pkg/store"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

var (
	errMissingInfo       = errors.New("missing info")
	errMissingSystemInfo = errors.New("missing system_info")
	errMissingModelInfo  = errors.New("missing model_info")
	errMissingXformers   = errors.New("missing xformers")
	errMissingDeviceInfo = errors.New("missing device_info")
)

// NewPerformanceService re-derives performanceResult from vram_usage.
// Every run yields a record; runs without parseable values get a nil
// average.
func NewPerformanceService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TablePerformance, backend, buildPerformance)
}

// NewAppDetailsService re-derives AppDetails from info.
func NewAppDetailsService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TableAppDetails, backend, buildAppDetails)
}

// NewSystemInfoService re-derives SystemInfo from system_info. Runs whose
// system_info lacks any of the five fields are skipped, not failed.
func NewSystemInfoService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TableSystemInfo, backend, buildSystemInfo)
}

// NewLibrariesService re-derives Libraries from model_info and xformers.
func NewLibrariesService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TableLibraries, backend, buildLibraries)
}

// NewGPUService re-derives GPU from device_info.
func NewGPUService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TableGPU, backend, buildGPU)
}

// NewRunDetailsService re-derives RunMoreDetails by projecting runs.
func NewRunDetailsService(log logrus.FieldLogger, backend Backend) Rederiver {
	return newRederiver(log, TableRunDetails, backend, buildRunDetails)
}

// NewRederiver returns the service for table, or nil for an unknown one.
func NewRederiver(log logrus.FieldLogger, table Table, backend Backend) Rederiver {
	switch table {
	case TablePerformance:
		return NewPerformanceService(log, backend)
	case TableAppDetails:
		return NewAppDetailsService(log, backend)
	case TableSystemInfo:
		return NewSystemInfoService(log, backend)
	case TableLibraries:
		return NewLibrariesService(log, backend)
	case TableGPU:
		return NewGPUService(log, backend)
	case TableRunDetails:
		return NewRunDetailsService(log, backend)
	default:
		return nil
	}
}

func buildPerformance(run store.Run) (store.PerformanceResult, error) {
	var raw string
	if run.VramUsage != nil {
		raw = *run.VramUsage
	}

	perf := parser.ParsePerformance(raw)

	values := datatypes.JSONSlice[float64]{}
	values = append(values, perf.Values...)

	return store.PerformanceResult{
		RunID:     run.ID,
		Its:       raw,
		ItsValues: values,
		AvgIts:    perf.Average,
	}, nil
}

func buildAppDetails(run store.Run) (store.AppDetails, error) {
	if run.Info == nil {
		return store.AppDetails{}, errMissingInfo
	}

	app := parser.ParseAppDetails(*run.Info)

	return store.AppDetails{
		RunID:   run.ID,
		AppName: app.AppName,
		Updated: app.Updated,
		Hash:    app.Hash,
		URL:     app.URL,
	}, nil
}

func buildSystemInfo(run store.Run) (store.SystemInfo, error) {
	if run.SystemInfo == nil {
		return store.SystemInfo{}, errMissingSystemInfo
	}

	info := parser.ParseSystemInfo(*run.SystemInfo)
	if !info.IsComplete() {
		return store.SystemInfo{}, errSkip
	}

	return store.SystemInfo{
		RunID:   run.ID,
		Arch:    *info.Arch,
		CPU:     *info.CPU,
		System:  *info.System,
		Release: *info.Release,
		Python:  *info.Python,
	}, nil
}

func buildLibraries(run store.Run) (store.Libraries, error) {
	if run.ModelInfo == nil {
		return store.Libraries{}, errMissingModelInfo
	}

	if run.Xformers == nil {
		return store.Libraries{}, errMissingXformers
	}

	libs := parser.ParseLibraries(*run.ModelInfo)
	xformers1 := *run.Xformers

	return store.Libraries{
		RunID:        run.ID,
		Torch:        libs.Version(parser.LibraryTorch),
		Xformers:     libs.Version(parser.LibraryXformers),
		Xformers1:    &xformers1,
		Diffusers:    libs.Version(parser.LibraryDiffusers),
		Transformers: libs.Version(parser.LibraryTransformers),
	}, nil
}

func buildGPU(run store.Run) (store.GPU, error) {
	if run.DeviceInfo == nil {
		return store.GPU{}, errMissingDeviceInfo
	}

	gpu := parser.ParseGPUInfo(*run.DeviceInfo)

	return store.GPU{
		RunID:   run.ID,
		Device:  gpu.Device,
		Driver:  gpu.Driver,
		GPUChip: gpu.GPUChip,
	}, nil
}

func buildRunDetails(run store.Run) (store.RunMoreDetails, error) {
	return store.RunMoreDetails{
		RunID:     run.ID,
		Timestamp: run.Timestamp,
		ModelName: run.ModelName,
		User:      run.User,
		Notes:     run.Notes,
	}, nil
}
