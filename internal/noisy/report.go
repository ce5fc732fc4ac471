package noisy

import (
	"github.com/banshee-data/eegqc/internal/config"
	"github.com/banshee-data/eegqc/internal/eeg"
)

// Method names a reason a channel was flagged.
type Method string

const (
	MethodNaN         Method = "nan"
	MethodNoData      Method = "no_data"
	MethodDeviation   Method = "deviation"
	MethodHFNoise     Method = "hf_noise"
	MethodCorrelation Method = "correlation"
	MethodDropOut     Method = "drop_out"
	MethodRansac      Method = "ransac"
)

// Report is the complete outcome of one detector run. Channel sets hold
// sorted 1-based channel numbers. Per-channel slices have one entry per
// recording channel, indexed by channel number minus one; per-window slices
// are [channel][window]. Channels outside the evaluation set keep neutral
// values (z-score 0, correlation 1).
type Report struct {
	Params       config.Params `json:"params"`
	ChannelCount int           `json:"channel_count"`
	Labels       []string      `json:"labels"`
	SampleCount  int           `json:"sample_count"`
	SampleRate   float64       `json:"sample_rate"`

	// EvaluationChannels are the reference channels that survived the NaN
	// and no-data pre-screen.
	EvaluationChannels []int `json:"evaluation_channels"`

	NoisyChannels              []int `json:"noisy_channels"`
	BadChannelsFromNaNs        []int `json:"bad_channels_from_nans"`
	BadChannelsFromNoData      []int `json:"bad_channels_from_no_data"`
	BadChannelsFromDeviation   []int `json:"bad_channels_from_deviation"`
	BadChannelsFromHFNoise     []int `json:"bad_channels_from_hf_noise"`
	BadChannelsFromCorrelation []int `json:"bad_channels_from_correlation"`
	BadChannelsFromDropOuts    []int `json:"bad_channels_from_drop_outs"`
	BadChannelsFromRansac      []int `json:"bad_channels_from_ransac"`

	// Method 1
	ChannelDeviationMedian float64   `json:"channel_deviation_median"`
	ChannelDeviationSD     float64   `json:"channel_deviation_sd"`
	ChannelDeviations      []float64 `json:"channel_deviations"`
	RobustChannelDeviation []float64 `json:"robust_channel_deviation"`

	// Method 2
	HFFiltered      bool      `json:"hf_filtered"`
	NoisinessMedian float64   `json:"noisiness_median"`
	NoisinessSD     float64   `json:"noisiness_sd"`
	ZScoreHFNoise   []float64 `json:"zscore_hf_noise"`

	// Method 3
	CorrelationWindow             eeg.WindowGrid `json:"correlation_window"`
	MaximumCorrelations           [][]float64    `json:"maximum_correlations"`
	MedianMaxCorrelation          []float64      `json:"median_max_correlation"`
	NoiseLevels                   [][]float64    `json:"noise_levels"`
	WindowDeviations              [][]float64    `json:"window_deviations"`
	DropOuts                      [][]bool       `json:"drop_outs"`
	FractionBadCorrelationWindows []float64      `json:"fraction_bad_correlation_windows"`
	FractionDropOutWindows        []float64      `json:"fraction_drop_out_windows"`

	// Method 4
	RansacPerformed         bool           `json:"ransac_performed"`
	RansacFailed            bool           `json:"ransac_failed"`
	RansacMessage           string         `json:"ransac_message,omitempty"`
	RansacErr               error          `json:"-"`
	RansacChannels          []int          `json:"ransac_channels,omitempty"`
	RansacSubsetSize        int            `json:"ransac_subset_size"`
	RansacWindow            eeg.WindowGrid `json:"ransac_window"`
	RansacCorrelations      [][]float64    `json:"ransac_correlations,omitempty"`
	RansacBadWindowFraction []float64      `json:"ransac_bad_window_fraction"`

	NoseDirection string `json:"nose_direction,omitempty"`
}

func newReport(rec *eeg.Recording, params config.Params) *Report {
	n := rec.ChannelCount()
	return &Report{
		Params:                        params,
		ChannelCount:                  n,
		Labels:                        labels(rec),
		SampleCount:                   rec.SampleCount(),
		SampleRate:                    rec.SampleRate,
		NoisyChannels:                 []int{},
		BadChannelsFromNaNs:           []int{},
		BadChannelsFromNoData:         []int{},
		BadChannelsFromDeviation:      []int{},
		BadChannelsFromHFNoise:        []int{},
		BadChannelsFromCorrelation:    []int{},
		BadChannelsFromDropOuts:       []int{},
		BadChannelsFromRansac:         []int{},
		ChannelDeviations:             make([]float64, n),
		RobustChannelDeviation:        make([]float64, n),
		ZScoreHFNoise:                 make([]float64, n),
		MedianMaxCorrelation:          ones(n),
		FractionBadCorrelationWindows: make([]float64, n),
		FractionDropOutWindows:        make([]float64, n),
		RansacBadWindowFraction:       make([]float64, n),
		NoseDirection:                 rec.NoseDirection,
	}
}

func labels(rec *eeg.Recording) []string {
	out := make([]string, rec.ChannelCount())
	for i := range out {
		out[i] = rec.Label(i + 1)
	}
	return out
}

func ones(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 1
	}
	return out
}

// sets returns the per-method sets keyed by method, in report order.
func (r *Report) sets() []struct {
	method   Method
	channels []int
} {
	return []struct {
		method   Method
		channels []int
	}{
		{MethodNaN, r.BadChannelsFromNaNs},
		{MethodNoData, r.BadChannelsFromNoData},
		{MethodDeviation, r.BadChannelsFromDeviation},
		{MethodHFNoise, r.BadChannelsFromHFNoise},
		{MethodCorrelation, r.BadChannelsFromCorrelation},
		{MethodDropOut, r.BadChannelsFromDropOuts},
		{MethodRansac, r.BadChannelsFromRansac},
	}
}

// Explain lists the methods that flagged a 1-based channel.
func (r *Report) Explain(channel int) []Method {
	var out []Method
	for _, s := range r.sets() {
		for _, ch := range s.channels {
			if ch == channel {
				out = append(out, s.method)
				break
			}
		}
	}
	return out
}

// IsNoisy reports whether a 1-based channel is in the final set.
func (r *Report) IsNoisy(channel int) bool {
	for _, ch := range r.NoisyChannels {
		if ch == channel {
			return true
		}
	}
	return false
}

func (r *Report) aggregate() {
	var all [][]int
	for _, s := range r.sets() {
		all = append(all, s.channels)
	}
	r.NoisyChannels = eeg.Union(all...)
	if r.NoisyChannels == nil {
		r.NoisyChannels = []int{}
	}
}
