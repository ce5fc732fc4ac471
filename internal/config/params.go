package config

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/banshee-data/eegqc/internal/eeg"
)

// InvalidParameterError reports an override whose name, type or value is not
// acceptable.
type InvalidParameterError struct {
	Name   string
	Value  interface{}
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s=%v: %s", e.Name, e.Value, e.Reason)
}

// Params is the fully-resolved parameter set for one detector run. Every
// field holds a value.
type Params struct {
	RobustDeviationThreshold    float64 `json:"robust_deviation_threshold"`
	HighFrequencyNoiseThreshold float64 `json:"high_frequency_noise_threshold"`
	CorrelationWindowSeconds    float64 `json:"correlation_window_seconds"`
	CorrelationThreshold        float64 `json:"correlation_threshold"`
	BadTimeThreshold            float64 `json:"bad_time_threshold"`
	RansacSampleSize            int     `json:"ransac_sample_size"`
	RansacChannelFraction       float64 `json:"ransac_channel_fraction"`
	RansacCorrelationThreshold  float64 `json:"ransac_correlation_threshold"`
	RansacUnbrokenTime          float64 `json:"ransac_unbroken_time"`
	RansacWindowSeconds         float64 `json:"ransac_window_seconds"`
	RansacSeed                  int64   `json:"ransac_seed"`
	ReferenceChannels           []int   `json:"reference_channels"`
	Workers                     int     `json:"workers"`
}

// Resolve applies defaults and normalises the reference channels for a
// recording with channelCount channels.
func (c *NoisyConfig) Resolve(channelCount int) (Params, error) {
	if err := c.Validate(); err != nil {
		return Params{}, err
	}
	p := Params{
		RobustDeviationThreshold:    c.GetRobustDeviationThreshold(),
		HighFrequencyNoiseThreshold: c.GetHighFrequencyNoiseThreshold(),
		CorrelationWindowSeconds:    c.GetCorrelationWindowSeconds(),
		CorrelationThreshold:        c.GetCorrelationThreshold(),
		BadTimeThreshold:            c.GetBadTimeThreshold(),
		RansacSampleSize:            c.GetRansacSampleSize(),
		RansacChannelFraction:       c.GetRansacChannelFraction(),
		RansacCorrelationThreshold:  c.GetRansacCorrelationThreshold(),
		RansacUnbrokenTime:          c.GetRansacUnbrokenTime(),
		RansacWindowSeconds:         c.GetRansacWindowSeconds(),
		RansacSeed:                  c.GetRansacSeed(),
		Workers:                     c.GetWorkers(),
	}
	if len(c.ReferenceChannels) == 0 {
		p.ReferenceChannels = eeg.AllChannels(channelCount)
	} else {
		p.ReferenceChannels = eeg.NormalizeChannels(c.ReferenceChannels)
	}
	if err := p.Check(channelCount); err != nil {
		return Params{}, err
	}
	return p, nil
}

// DefaultParams returns the defaults for a recording with channelCount
// channels.
func DefaultParams(channelCount int) Params {
	p, err := EmptyNoisyConfig().Resolve(channelCount)
	if err != nil {
		// Defaults always satisfy their own constraints.
		panic(err)
	}
	return p
}

// Check verifies a Params value built or edited by hand: every scalar must
// satisfy its constraint and the reference channels must be sorted, unique
// and within 1..channelCount.
func (p Params) Check(channelCount int) error {
	cfg := p.toConfig()
	if err := cfg.Validate(); err != nil {
		return err
	}
	if !sort.IntsAreSorted(p.ReferenceChannels) {
		return &InvalidParameterError{Name: "reference_channels", Value: p.ReferenceChannels, Reason: "must be sorted ascending"}
	}
	for i := 1; i < len(p.ReferenceChannels); i++ {
		if p.ReferenceChannels[i] == p.ReferenceChannels[i-1] {
			return &InvalidParameterError{Name: "reference_channels", Value: p.ReferenceChannels, Reason: "must not contain duplicates"}
		}
	}
	if err := eeg.CheckChannels(p.ReferenceChannels, channelCount); err != nil {
		return &InvalidParameterError{Name: "reference_channels", Value: p.ReferenceChannels, Reason: err.Error()}
	}
	return nil
}

func (p Params) toConfig() *NoisyConfig {
	return &NoisyConfig{
		RobustDeviationThreshold:    ptrFloat64(p.RobustDeviationThreshold),
		HighFrequencyNoiseThreshold: ptrFloat64(p.HighFrequencyNoiseThreshold),
		CorrelationWindowSeconds:    ptrFloat64(p.CorrelationWindowSeconds),
		CorrelationThreshold:        ptrFloat64(p.CorrelationThreshold),
		BadTimeThreshold:            ptrFloat64(p.BadTimeThreshold),
		RansacSampleSize:            ptrInt(p.RansacSampleSize),
		RansacChannelFraction:       ptrFloat64(p.RansacChannelFraction),
		RansacCorrelationThreshold:  ptrFloat64(p.RansacCorrelationThreshold),
		RansacUnbrokenTime:          ptrFloat64(p.RansacUnbrokenTime),
		RansacWindowSeconds:         ptrFloat64(p.RansacWindowSeconds),
		RansacSeed:                  ptrInt64(p.RansacSeed),
		ReferenceChannels:           p.ReferenceChannels,
		Workers:                     ptrInt(p.Workers),
	}
}

// descriptor declares one scalar parameter: its names, how to read and write
// it on a NoisyConfig, and its constraint.
type descriptor struct {
	name    string // snake_case, as in JSON files
	alias   string // camelCase, as used by callers passing maps
	integer bool
	check   func(v float64) string // "" when valid
	get     func(c *NoisyConfig) (float64, bool)
	set     func(c *NoisyConfig, v float64)
}

func positive(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return "must be positive and finite"
	}
	return ""
}

func unitInterval(v float64) string {
	if math.IsNaN(v) || v <= 0 || v > 1 {
		return "must be in (0, 1]"
	}
	return ""
}

// MaxRansacSampleSize bounds ransac_sample_size. Every subset holds an
// interpolation matrix for the whole montage.
const MaxRansacSampleSize = 10000

func sampleSize(v float64) string {
	if v < 1 || v > MaxRansacSampleSize {
		return fmt.Sprintf("must be in [1, %d]", MaxRansacSampleSize)
	}
	return ""
}

func nonNegative(v float64) string {
	if v < 0 {
		return "must not be negative"
	}
	return ""
}

func anyValue(float64) string { return "" }

func floatField(name, alias string, check func(float64) string, field func(c *NoisyConfig) **float64) descriptor {
	return descriptor{
		name:  name,
		alias: alias,
		check: check,
		get: func(c *NoisyConfig) (float64, bool) {
			if p := *field(c); p != nil {
				return *p, true
			}
			return 0, false
		},
		set: func(c *NoisyConfig, v float64) { *field(c) = ptrFloat64(v) },
	}
}

var descriptors = []descriptor{
	floatField("robust_deviation_threshold", "robustDeviationThreshold", positive,
		func(c *NoisyConfig) **float64 { return &c.RobustDeviationThreshold }),
	floatField("high_frequency_noise_threshold", "highFrequencyNoiseThreshold", positive,
		func(c *NoisyConfig) **float64 { return &c.HighFrequencyNoiseThreshold }),
	floatField("correlation_window_seconds", "correlationWindowSeconds", positive,
		func(c *NoisyConfig) **float64 { return &c.CorrelationWindowSeconds }),
	floatField("correlation_threshold", "correlationThreshold", unitInterval,
		func(c *NoisyConfig) **float64 { return &c.CorrelationThreshold }),
	floatField("bad_time_threshold", "badTimeThreshold", positive,
		func(c *NoisyConfig) **float64 { return &c.BadTimeThreshold }),
	floatField("ransac_channel_fraction", "ransacChannelFraction", unitInterval,
		func(c *NoisyConfig) **float64 { return &c.RansacChannelFraction }),
	floatField("ransac_correlation_threshold", "ransacCorrelationThreshold", unitInterval,
		func(c *NoisyConfig) **float64 { return &c.RansacCorrelationThreshold }),
	// Values >= 1 are read as seconds, so only positivity is enforced.
	floatField("ransac_unbroken_time", "ransacUnbrokenTime", positive,
		func(c *NoisyConfig) **float64 { return &c.RansacUnbrokenTime }),
	floatField("ransac_window_seconds", "ransacWindowSeconds", positive,
		func(c *NoisyConfig) **float64 { return &c.RansacWindowSeconds }),
	{
		name: "ransac_sample_size", alias: "ransacSampleSize", integer: true, check: sampleSize,
		get: func(c *NoisyConfig) (float64, bool) {
			if c.RansacSampleSize == nil {
				return 0, false
			}
			return float64(*c.RansacSampleSize), true
		},
		set: func(c *NoisyConfig, v float64) { c.RansacSampleSize = ptrInt(int(v)) },
	},
	{
		name: "ransac_seed", alias: "ransacSeed", integer: true, check: anyValue,
		get: func(c *NoisyConfig) (float64, bool) {
			if c.RansacSeed == nil {
				return 0, false
			}
			return float64(*c.RansacSeed), true
		},
		set: func(c *NoisyConfig, v float64) { c.RansacSeed = ptrInt64(int64(v)) },
	},
	{
		name: "workers", alias: "workers", integer: true, check: nonNegative,
		get: func(c *NoisyConfig) (float64, bool) {
			if c.Workers == nil {
				return 0, false
			}
			return float64(*c.Workers), true
		},
		set: func(c *NoisyConfig, v float64) { c.Workers = ptrInt(int(v)) },
	},
}

func lookupDescriptor(name string) (descriptor, bool) {
	for _, d := range descriptors {
		if d.name == name || d.alias == name {
			return d, true
		}
	}
	return descriptor{}, false
}

// toFloat64 converts a decoded override value to float64.
func toFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// toChannels converts a decoded override value to channel numbers.
func toChannels(v interface{}) ([]int, bool) {
	switch val := v.(type) {
	case []int:
		return append([]int(nil), val...), true
	case []interface{}:
		out := make([]int, len(val))
		for i, item := range val {
			f, ok := toFloat64(item)
			if !ok || f != math.Trunc(f) {
				return nil, false
			}
			out[i] = int(f)
		}
		return out, true
	case []float64:
		out := make([]int, len(val))
		for i, f := range val {
			if f != math.Trunc(f) {
				return nil, false
			}
			out[i] = int(f)
		}
		return out, true
	default:
		if f, ok := toFloat64(v); ok && f == math.Trunc(f) {
			return []int{int(f)}, true
		}
		return nil, false
	}
}

// NoisyConfigFromOverrides builds a NoisyConfig from a caller mapping of
// parameter name to value. Both snake_case and camelCase names are accepted.
// Unknown names, wrong types and constraint violations fail with
// *InvalidParameterError.
func NoisyConfigFromOverrides(overrides map[string]interface{}) (*NoisyConfig, error) {
	cfg := EmptyNoisyConfig()

	// Sorted for a stable first error.
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := overrides[name]
		if value == nil {
			continue
		}
		if name == "reference_channels" || name == "referenceChannels" {
			chans, ok := toChannels(value)
			if !ok {
				return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be a list of integers"}
			}
			cfg.ReferenceChannels = chans
			continue
		}
		d, ok := lookupDescriptor(name)
		if !ok {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "unknown parameter"}
		}
		f, ok := toFloat64(value)
		if !ok {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be numeric"}
		}
		if d.integer && f != math.Trunc(f) {
			return nil, &InvalidParameterError{Name: name, Value: value, Reason: "must be an integer"}
		}
		if reason := d.check(f); reason != "" {
			return nil, &InvalidParameterError{Name: d.name, Value: value, Reason: reason}
		}
		d.set(cfg, f)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
