package parser

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Accepted range for a single it/s sample in strict validation.
const (
	MinITS = 0.1
	MaxITS = 100.0
)

var (
	// ErrEmptyInput is returned by ValidatePerformance for a blank string.
	ErrEmptyInput = errors.New("empty input string")
	// ErrNoValidValues is returned by ValidatePerformance when no sample parses.
	ErrNoValidValues = errors.New("no valid numeric values found")
)

// InvalidValueError reports a parsed sample outside [MinITS, MaxITS].
type InvalidValueError struct {
	Value float64
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid its value: %v", e.Value)
}

// Performance is the it/s series parsed from a run's vram_usage string,
// e.g. "7.52/7.61/7.49".
type Performance struct {
	Values  []float64 `json:"its_values"`
	Average *float64  `json:"avg_its"`
	Raw     string    `json:"raw"`
}

// Stats summarizes a performance series.
type Stats struct {
	Min   float64 `json:"min_its"`
	Max   float64 `json:"max_its"`
	Avg   float64 `json:"avg_its"`
	Count int     `json:"count"`
}

// ParsePerformance splits the input on '/' and keeps every piece that
// parses as a finite number. It never fails: Average is nil when no piece
// survives.
func ParsePerformance(raw string) Performance {
	p := Performance{
		Values: make([]float64, 0, strings.Count(raw, "/")+1),
		Raw:    raw,
	}

	for _, piece := range strings.Split(raw, "/") {
		v, err := strconv.ParseFloat(strings.TrimSpace(piece), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}

		p.Values = append(p.Values, v)
	}

	if len(p.Values) > 0 {
		avg := mean(p.Values)
		p.Average = &avg
	}

	return p
}

// ValidatePerformance is the strict variant of ParsePerformance. It returns
// ErrEmptyInput, ErrNoValidValues or an *InvalidValueError for the first
// sample outside the accepted range.
func ValidatePerformance(raw string) (Performance, error) {
	if strings.TrimSpace(raw) == "" {
		return Performance{}, ErrEmptyInput
	}

	p := ParsePerformance(raw)
	if len(p.Values) == 0 {
		return Performance{}, ErrNoValidValues
	}

	for _, v := range p.Values {
		if v < MinITS || v > MaxITS {
			return Performance{}, &InvalidValueError{Value: v}
		}
	}

	return p, nil
}

// IsValid reports whether at least one sample was parsed.
func (p Performance) IsValid() bool {
	return len(p.Values) > 0 && p.Average != nil
}

// Statistics returns min, max, mean and count. An empty series yields the
// zero Stats.
func (p Performance) Statistics() Stats {
	if len(p.Values) == 0 {
		return Stats{}
	}

	s := Stats{
		Min:   math.Inf(1),
		Max:   math.Inf(-1),
		Avg:   mean(p.Values),
		Count: len(p.Values),
	}

	for _, v := range p.Values {
		s.Min = math.Min(s.Min, v)
		s.Max = math.Max(s.Max, v)
	}

	return s
}

// Summary is a one-line human readable description of the series.
func (p Performance) Summary() string {
	if len(p.Values) == 0 {
		return "No valid ITS values"
	}

	s := p.Statistics()

	return fmt.Sprintf("ITS: %s (avg: %.2f, min: %.2f, max: %.2f)",
		p.Raw, s.Avg, s.Min, s.Max)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}
