package parser

import "strings"

// Brand is the vendor classification of a GPU device string.
type Brand string

// Known brands, in the order they are reported.
const (
	BrandNvidia  Brand = "nvidia"
	BrandAMD     Brand = "amd"
	BrandIntel   Brand = "intel"
	BrandUnknown Brand = "unknown"
)

// Brands lists every brand in reporting order.
var Brands = []Brand{BrandNvidia, BrandAMD, BrandIntel, BrandUnknown}

// brandMarkers are checked in order; the first brand with a matching
// lowercase substring wins.
var brandMarkers = []struct {
	brand   Brand
	markers []string
}{
	{BrandNvidia, []string{"nvidia", "quadro", "geforce", "tesla", "cuda"}},
	{BrandAMD, []string{"amd", "radeon"}},
	{BrandIntel, []string{"intel"}},
}

// ClassifyBrand maps a device string to a brand by case-insensitive
// substring match. NVIDIA markers take precedence over AMD, AMD over Intel.
func ClassifyBrand(device string) Brand {
	lower := strings.ToLower(device)

	for _, bm := range brandMarkers {
		for _, m := range bm.markers {
			if strings.Contains(lower, m) {
				return bm.brand
			}
		}
	}

	return BrandUnknown
}

// DisplayName is the capitalized brand name used in reports.
func (b Brand) DisplayName() string {
	switch b {
	case BrandNvidia:
		return "Nvidia"
	case BrandAMD:
		return "Amd"
	case BrandIntel:
		return "Intel"
	default:
		return "Unknown"
	}
}

// IsLaptopGPU reports whether a device string names a mobile part: it
// mentions "Laptop" or "Mobile", or it is an AMD part whose name ends in "M"
// (e.g. "AMD Radeon RX 6800M"). Matching is case-sensitive.
func IsLaptopGPU(device string) bool {
	if strings.Contains(device, "Laptop") || strings.Contains(device, "Mobile") {
		return true
	}

	return strings.Contains(device, "AMD") && strings.HasSuffix(device, "M")
}
