package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical detector defaults file.
const DefaultConfigPath = "config/noisy.defaults.json"

// Defaults for every detector parameter. Reference channels default to all
// channels of the recording and are filled in by Resolve.
const (
	DefaultRobustDeviationThreshold    = 5.0
	DefaultHighFrequencyNoiseThreshold = 5.0
	DefaultCorrelationWindowSeconds    = 1.0
	DefaultCorrelationThreshold        = 0.4
	DefaultBadTimeThreshold            = 0.01
	DefaultRansacSampleSize            = 50
	DefaultRansacChannelFraction       = 0.25
	DefaultRansacCorrelationThreshold  = 0.75
	DefaultRansacUnbrokenTime          = 0.4
	DefaultRansacWindowSeconds         = 5.0
	DefaultRansacSeed                  = 435656
)

// NoisyConfig holds caller overrides for the noisy-channel detector. A nil
// field means "use the default", so partial JSON files and partial override
// maps are safe.
type NoisyConfig struct {
	// Method 1: amplitude deviation
	RobustDeviationThreshold *float64 `json:"robust_deviation_threshold,omitempty"`

	// Methods 2 and 3: high-frequency noise and windowed correlation
	HighFrequencyNoiseThreshold *float64 `json:"high_frequency_noise_threshold,omitempty"`
	CorrelationWindowSeconds    *float64 `json:"correlation_window_seconds,omitempty"`
	CorrelationThreshold        *float64 `json:"correlation_threshold,omitempty"`
	BadTimeThreshold            *float64 `json:"bad_time_threshold,omitempty"`

	// Method 4: RANSAC
	RansacSampleSize           *int     `json:"ransac_sample_size,omitempty"`
	RansacChannelFraction      *float64 `json:"ransac_channel_fraction,omitempty"`
	RansacCorrelationThreshold *float64 `json:"ransac_correlation_threshold,omitempty"`
	RansacUnbrokenTime         *float64 `json:"ransac_unbroken_time,omitempty"` // fraction if < 1, seconds otherwise
	RansacWindowSeconds        *float64 `json:"ransac_window_seconds,omitempty"`
	RansacSeed                 *int64   `json:"ransac_seed,omitempty"`

	// 1-based channel numbers to evaluate; empty means all channels.
	ReferenceChannels []int `json:"reference_channels,omitempty"`

	// Upper bound on concurrent window workers; 0 means GOMAXPROCS.
	Workers *int `json:"workers,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrInt(v int) *int             { return &v }
func ptrInt64(v int64) *int64       { return &v }

// EmptyNoisyConfig returns a NoisyConfig with every field unset.
func EmptyNoisyConfig() *NoisyConfig {
	return &NoisyConfig{}
}

// LoadNoisyConfig loads a NoisyConfig from a JSON file.
// The file must have a .json extension and be at most 1MB. Fields omitted
// from the file keep their defaults.
func LoadNoisyConfig(path string) (*NoisyConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	cfg, err := NoisyConfigFromOverrides(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching the current directory and its parents. Panics if the file cannot
// be loaded, intended for test setup.
func MustLoadDefaultConfig() *NoisyConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
	}
	for _, path := range candidates {
		if cfg, err := LoadNoisyConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks every set field against its declared constraint.
func (c *NoisyConfig) Validate() error {
	for _, d := range descriptors {
		v, ok := d.get(c)
		if !ok {
			continue
		}
		if reason := d.check(v); reason != "" {
			return &InvalidParameterError{Name: d.name, Value: v, Reason: reason}
		}
	}
	for _, ch := range c.ReferenceChannels {
		if ch < 1 {
			return &InvalidParameterError{Name: "reference_channels", Value: ch, Reason: "channel numbers must be positive"}
		}
	}
	return nil
}

// GetRobustDeviationThreshold returns the robust_deviation_threshold value or the default.
func (c *NoisyConfig) GetRobustDeviationThreshold() float64 {
	if c.RobustDeviationThreshold == nil {
		return DefaultRobustDeviationThreshold
	}
	return *c.RobustDeviationThreshold
}

// GetHighFrequencyNoiseThreshold returns the high_frequency_noise_threshold value or the default.
func (c *NoisyConfig) GetHighFrequencyNoiseThreshold() float64 {
	if c.HighFrequencyNoiseThreshold == nil {
		return DefaultHighFrequencyNoiseThreshold
	}
	return *c.HighFrequencyNoiseThreshold
}

// GetCorrelationWindowSeconds returns the correlation_window_seconds value or the default.
func (c *NoisyConfig) GetCorrelationWindowSeconds() float64 {
	if c.CorrelationWindowSeconds == nil {
		return DefaultCorrelationWindowSeconds
	}
	return *c.CorrelationWindowSeconds
}

// GetCorrelationThreshold returns the correlation_threshold value or the default.
func (c *NoisyConfig) GetCorrelationThreshold() float64 {
	if c.CorrelationThreshold == nil {
		return DefaultCorrelationThreshold
	}
	return *c.CorrelationThreshold
}

// GetBadTimeThreshold returns the bad_time_threshold value or the default.
func (c *NoisyConfig) GetBadTimeThreshold() float64 {
	if c.BadTimeThreshold == nil {
		return DefaultBadTimeThreshold
	}
	return *c.BadTimeThreshold
}

// GetRansacSampleSize returns the ransac_sample_size value or the default.
func (c *NoisyConfig) GetRansacSampleSize() int {
	if c.RansacSampleSize == nil {
		return DefaultRansacSampleSize
	}
	return *c.RansacSampleSize
}

// GetRansacChannelFraction returns the ransac_channel_fraction value or the default.
func (c *NoisyConfig) GetRansacChannelFraction() float64 {
	if c.RansacChannelFraction == nil {
		return DefaultRansacChannelFraction
	}
	return *c.RansacChannelFraction
}

// GetRansacCorrelationThreshold returns the ransac_correlation_threshold value or the default.
func (c *NoisyConfig) GetRansacCorrelationThreshold() float64 {
	if c.RansacCorrelationThreshold == nil {
		return DefaultRansacCorrelationThreshold
	}
	return *c.RansacCorrelationThreshold
}

// GetRansacUnbrokenTime returns the ransac_unbroken_time value or the default.
func (c *NoisyConfig) GetRansacUnbrokenTime() float64 {
	if c.RansacUnbrokenTime == nil {
		return DefaultRansacUnbrokenTime
	}
	return *c.RansacUnbrokenTime
}

// GetRansacWindowSeconds returns the ransac_window_seconds value or the default.
func (c *NoisyConfig) GetRansacWindowSeconds() float64 {
	if c.RansacWindowSeconds == nil {
		return DefaultRansacWindowSeconds
	}
	return *c.RansacWindowSeconds
}

// GetRansacSeed returns the ransac_seed value or the default.
func (c *NoisyConfig) GetRansacSeed() int64 {
	if c.RansacSeed == nil {
		return DefaultRansacSeed
	}
	return *c.RansacSeed
}

// GetWorkers returns the workers value or 0 (use GOMAXPROCS).
func (c *NoisyConfig) GetWorkers() int {
	if c.Workers == nil {
		return 0
	}
	return *c.Workers
}
