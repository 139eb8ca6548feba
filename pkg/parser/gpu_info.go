package parser

// GPUInfo is the accelerator description parsed from a run's device_info
// string, e.g. "device:NVIDIA GeForce RTX 4090 (1) (sm_89) (8, 9) cuda:12.1 cudnn:8801 driver:531.79".
type GPUInfo struct {
	Device  *string `json:"device"`
	Driver  *string `json:"driver"`
	GPUChip *string `json:"gpu_chip"`
}

var gpuInfoTokenizer = &tokenizer{
	fields: map[string]field{
		"device": {continuation: continueUntilKeyed},
		"driver": {opensCatchAll: true},
	},
	catchAll: "gpu_chip",
}

// ParseGPUInfo parses a device_info string. Bare tokens after device: are
// part of the device name (which keeps memory sizes such as "8GB" attached)
// until driver: or any unrecognized keyed token is seen. From then on every
// unrecognized token is collected into GPUChip.
func ParseGPUInfo(deviceInfo string) GPUInfo {
	values := gpuInfoTokenizer.scan(deviceInfo)

	return GPUInfo{
		Device:  lookup(values, "device"),
		Driver:  lookup(values, "driver"),
		GPUChip: lookup(values, "gpu_chip"),
	}
}

// IsValid reports whether at least one field was parsed.
func (g GPUInfo) IsValid() bool {
	return g.Device != nil || g.Driver != nil || g.GPUChip != nil
}

// Summary renders the parsed fields back into canonical form. The chip
// text is emitted as-is.
func (g GPUInfo) Summary() string {
	return summarize(
		pair{"device", g.Device},
		pair{"driver", g.Driver},
		pair{"", g.GPUChip},
	)
}
