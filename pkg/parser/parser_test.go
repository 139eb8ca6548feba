package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) *string {
	return &s
}

func TestParseAppDetails(t *testing.T) {
	tests := []struct {
		name string
		info string
		want AppDetails
	}{
		{
			name: "all fields",
			info: "app:foo updated:2024-01-01 hash:abc url:http://x",
			want: AppDetails{
				AppName: str("foo"),
				Updated: str("2024-01-01"),
				Hash:    str("abc"),
				URL:     str("http://x"),
			},
		},
		{
			name: "single field",
			info: "app:bar",
			want: AppDetails{AppName: str("bar")},
		},
		{
			name: "unknown keys and bare tokens dropped",
			info: "junk app:sd.next extra other:1 hash:f00",
			want: AppDetails{AppName: str("sd.next"), Hash: str("f00")},
		},
		{
			name: "duplicate key keeps last",
			info: "app:first app:second",
			want: AppDetails{AppName: str("second")},
		},
		{
			name: "empty",
			info: "",
			want: AppDetails{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseAppDetails(tt.info))
		})
	}
}

func TestAppDetails_ValidAndSummary(t *testing.T) {
	assert.False(t, ParseAppDetails("").IsValid())

	parsed := ParseAppDetails("url:http://x noise app:foo")
	assert.True(t, parsed.IsValid())
	assert.Equal(t, "app:foo url:http://x", parsed.Summary())
}

func TestParseSystemInfo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  SystemInfo
	}{
		{
			name:  "multi word cpu",
			input: "arch:x86_64 cpu:Intel Core i7 system:Linux release:5.15.0 python:3.9.0",
			want: SystemInfo{
				Arch:    str("x86_64"),
				CPU:     str("Intel Core i7"),
				System:  str("Linux"),
				Release: str("5.15.0"),
				Python:  str("3.9.0"),
			},
		},
		{
			name:  "cpu with symbols",
			input: "arch:AMD64 cpu:Intel64 Family 6 Model 165 Stepping 5, GenuineIntel system:Windows release:Windows-10-10.0.19045-SP0 python:3.10.6",
			want: SystemInfo{
				Arch:    str("AMD64"),
				CPU:     str("Intel64 Family 6 Model 165 Stepping 5, GenuineIntel"),
				System:  str("Windows"),
				Release: str("Windows-10-10.0.19045-SP0"),
				Python:  str("3.10.6"),
			},
		},
		{
			name:  "double space inside cpu is kept",
			input: "cpu:Intel  Core python:3.10",
			want: SystemInfo{
				CPU:    str("Intel  Core"),
				Python: str("3.10"),
			},
		},
		{
			name:  "unknown key ends continuation",
			input: "cpu:Ryzen 9 gpu:none extra words python:3.11",
			want: SystemInfo{
				CPU:    str("Ryzen 9"),
				Python: str("3.11"),
			},
		},
		{
			name:  "empty",
			input: "",
			want:  SystemInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseSystemInfo(tt.input))
		})
	}
}

func TestSystemInfo_PartialIsValidButIncomplete(t *testing.T) {
	parsed := ParseSystemInfo("arch:x86_64 cpu:Intel")

	assert.True(t, parsed.IsValid())
	assert.False(t, parsed.IsComplete())
	assert.Equal(t, "arch:x86_64 cpu:Intel", parsed.Summary())

	full := ParseSystemInfo("python:3.9 release:5 system:Linux cpu:x arch:arm64")
	assert.True(t, full.IsComplete())
	assert.Equal(t, "arch:arm64 cpu:x system:Linux release:5 python:3.9", full.Summary())
}

func TestParseGPUInfo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  GPUInfo
	}{
		{
			name:  "device driver chip",
			input: "device:NVIDIA GeForce RTX 3080 driver:470.82.01 GA102",
			want: GPUInfo{
				Device:  str("NVIDIA GeForce RTX 3080"),
				Driver:  str("470.82.01"),
				GPUChip: str("GA102"),
			},
		},
		{
			name:  "memory size stays on device",
			input: "device:NVIDIA 8GB driver:531.79",
			want: GPUInfo{
				Device: str("NVIDIA 8GB"),
				Driver: str("531.79"),
			},
		},
		{
			name:  "unknown key opens chip",
			input: "device:NVIDIA GeForce RTX 4090 (1) (sm_89) cuda:12.1 cudnn:8801 driver:531.79",
			want: GPUInfo{
				Device:  str("NVIDIA GeForce RTX 4090 (1) (sm_89)"),
				Driver:  str("531.79"),
				GPUChip: str("cuda:12.1 cudnn:8801"),
			},
		},
		{
			name:  "tokens after chip opens never return to device",
			input: "device:AMD driver:1 Radeon 16GB",
			want: GPUInfo{
				Device:  str("AMD"),
				Driver:  str("1"),
				GPUChip: str("Radeon 16GB"),
			},
		},
		{
			name:  "bare tokens before device dropped",
			input: "stray device:Arc",
			want:  GPUInfo{Device: str("Arc")},
		},
		{
			name:  "empty",
			input: "",
			want:  GPUInfo{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseGPUInfo(tt.input))
		})
	}
}

func TestGPUInfo_Summary(t *testing.T) {
	parsed := ParseGPUInfo("driver:1 chip device:X")

	assert.True(t, parsed.IsValid())
	assert.Equal(t, "device:X driver:1 chip", parsed.Summary())
	assert.False(t, ParseGPUInfo("").IsValid())
}

func TestParseLibraries(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Libraries
	}{
		{
			name:  "continuation stops at next key",
			input: "torch:2.0.0+cu118 xformers:0.0.22",
			want: Libraries{
				Torch:    str("2.0.0+cu118"),
				Xformers: str("0.0.22"),
			},
		},
		{
			name:  "torch build flags",
			input: "torch:2.0.1 autocast half xformers:0.0.20 diffusers:0.18.2 transformers:4.30.2",
			want: Libraries{
				Torch:        str("2.0.1 autocast half"),
				Xformers:     str("0.0.20"),
				Diffusers:    str("0.18.2"),
				Transformers: str("4.30.2"),
			},
		},
		{
			name:  "unknown keys while torch open",
			input: "torch:2.1.0 backend:cuda diffusers:0.21.0",
			want: Libraries{
				Torch:     str("2.1.0 backend:cuda"),
				Diffusers: str("0.21.0"),
			},
		},
		{
			name:  "bare tokens after closed torch dropped",
			input: "xformers:0.0.22 extra torch:2 diffusers:1 trailing",
			want: Libraries{
				Torch:     str("2"),
				Xformers:  str("0.0.22"),
				Diffusers: str("1"),
			},
		},
		{
			name:  "empty",
			input: "",
			want:  Libraries{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLibraries(tt.input))
		})
	}
}

func TestLibraries_HasAllRequired(t *testing.T) {
	parsed := ParseLibraries("torch:2 xformers:0.1")

	assert.True(t, parsed.HasAllRequired(LibraryTorch, LibraryXformers))
	assert.False(t, parsed.HasAllRequired(LibraryTorch, LibraryDiffusers))
	assert.False(t, parsed.HasAllRequired("numpy"))
	assert.True(t, parsed.HasAllRequired())
	assert.Equal(t, "torch:2 xformers:0.1", parsed.Summary())
}

func TestParsePerformance(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		values  []float64
		average *float64
	}{
		{
			name:    "basic series",
			input:   "1.5/2.1/1.8",
			values:  []float64{1.5, 2.1, 1.8},
			average: ptrFloat(1.8),
		},
		{
			name:    "invalid token dropped",
			input:   "1.5/invalid/2.1",
			values:  []float64{1.5, 2.1},
			average: ptrFloat(1.8),
		},
		{
			name:    "whitespace trimmed",
			input:   " 1.5 / 2.1 / 1.8 ",
			values:  []float64{1.5, 2.1, 1.8},
			average: ptrFloat(1.8),
		},
		{
			name:   "nan and inf dropped",
			input:  "NaN/inf",
			values: []float64{},
		},
		{
			name:    "signed infinities dropped",
			input:   "-Inf/2.0/+Inf",
			values:  []float64{2.0},
			average: ptrFloat(2.0),
		},
		{
			name:   "empty",
			input:  "",
			values: []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParsePerformance(tt.input)

			assert.Equal(t, tt.input, got.Raw)
			assert.InDeltaSlice(t, tt.values, got.Values, 1e-9)

			if tt.average == nil {
				assert.Nil(t, got.Average)
				assert.False(t, got.IsValid())

				return
			}

			require.NotNil(t, got.Average)
			assert.InDelta(t, *tt.average, *got.Average, 1e-9)
			assert.True(t, got.IsValid())
		})
	}
}

func TestValidatePerformance(t *testing.T) {
	_, err := ValidatePerformance("")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ValidatePerformance("   ")
	assert.ErrorIs(t, err, ErrEmptyInput)

	_, err = ValidatePerformance("abc")
	assert.ErrorIs(t, err, ErrNoValidValues)

	_, err = ValidatePerformance("0.05/1.5")

	var invalid *InvalidValueError
	require.ErrorAs(t, err, &invalid)
	assert.InDelta(t, 0.05, invalid.Value, 1e-12)

	_, err = ValidatePerformance("1.5/120")
	require.ErrorAs(t, err, &invalid)
	assert.InDelta(t, 120.0, invalid.Value, 1e-12)

	p, err := ValidatePerformance("1.5/2.5")
	require.NoError(t, err)
	require.NotNil(t, p.Average)
	assert.InDelta(t, 2.0, *p.Average, 1e-9)
}

func TestPerformance_Statistics(t *testing.T) {
	stats := ParsePerformance("3/1/2").Statistics()

	assert.Equal(t, Stats{Min: 1, Max: 3, Avg: 2, Count: 3}, stats)
	assert.Equal(t, Stats{}, ParsePerformance("x").Statistics())

	assert.Equal(t, "ITS: 3/1/2 (avg: 2.00, min: 1.00, max: 3.00)",
		ParsePerformance("3/1/2").Summary())
	assert.Equal(t, "No valid ITS values", ParsePerformance("").Summary())
}

func ptrFloat(v float64) *float64 {
	return &v
}
