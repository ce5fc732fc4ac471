// Package report renders noisy-channel reports for people and downstream
// tools: a JSON document, PNG summary plots and an HTML dashboard.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/banshee-data/eegqc/internal/config"
	"github.com/banshee-data/eegqc/internal/fsutil"
	"github.com/banshee-data/eegqc/internal/noisy"
)

// Meta identifies one detector run.
type Meta struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Document is the JSON form of a report. JSON has no NaN or Inf, so every
// float is carried as a pointer and non-finite values become null.
type Document struct {
	Meta Meta `json:"meta"`

	Params             config.Params `json:"params"`
	ChannelCount       int           `json:"channel_count"`
	SampleCount        int           `json:"sample_count"`
	SampleRate         float64       `json:"sample_rate"`
	Labels             []string      `json:"labels"`
	EvaluationChannels []int         `json:"evaluation_channels"`
	NoseDirection      string        `json:"nose_direction,omitempty"`

	NoisyChannels []int            `json:"noisy_channels"`
	BadChannels   map[string][]int `json:"bad_channels"`

	Deviation   DeviationSection   `json:"deviation"`
	HFNoise     HFNoiseSection     `json:"hf_noise"`
	Correlation CorrelationSection `json:"correlation"`
	Ransac      RansacSection      `json:"ransac"`
}

type DeviationSection struct {
	Median     *float64   `json:"median"`
	SD         *float64   `json:"sd"`
	Deviations []*float64 `json:"channel_deviations"`
	ZScores    []*float64 `json:"zscores"`
}

type HFNoiseSection struct {
	Filtered bool       `json:"filtered"`
	Median   *float64   `json:"median"`
	SD       *float64   `json:"sd"`
	ZScores  []*float64 `json:"zscores"`
}

type CorrelationSection struct {
	WindowSamples         int          `json:"window_samples"`
	WindowOffsets         []int        `json:"window_offsets"`
	MaximumCorrelations   [][]*float64 `json:"maximum_correlations"`
	MedianMaxCorrelation  []*float64   `json:"median_max_correlation"`
	NoiseLevels           [][]*float64 `json:"noise_levels"`
	WindowDeviations      [][]*float64 `json:"window_deviations"`
	DropOuts              [][]bool     `json:"drop_outs"`
	FractionBadWindows    []*float64   `json:"fraction_bad_windows"`
	FractionDropOutWindow []*float64   `json:"fraction_drop_out_windows"`
}

type RansacSection struct {
	Performed         bool         `json:"performed"`
	Failed            bool         `json:"failed"`
	Message           string       `json:"message,omitempty"`
	Channels          []int        `json:"channels,omitempty"`
	SubsetSize        int          `json:"subset_size"`
	WindowSamples     int          `json:"window_samples"`
	WindowOffsets     []int        `json:"window_offsets"`
	Correlations      [][]*float64 `json:"correlations,omitempty"`
	BadWindowFraction []*float64   `json:"bad_window_fraction"`
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

func finiteSlice(x []float64) []*float64 {
	out := make([]*float64, len(x))
	for i, v := range x {
		out[i] = finite(v)
	}
	return out
}

func finiteMatrix(x [][]float64) [][]*float64 {
	if x == nil {
		return nil
	}
	out := make([][]*float64, len(x))
	for i, row := range x {
		out[i] = finiteSlice(row)
	}
	return out
}

// NewDocument converts a report to its JSON form.
func NewDocument(r *noisy.Report, meta Meta) *Document {
	bad := map[string][]int{
		string(noisy.MethodNaN):         r.BadChannelsFromNaNs,
		string(noisy.MethodNoData):      r.BadChannelsFromNoData,
		string(noisy.MethodDeviation):   r.BadChannelsFromDeviation,
		string(noisy.MethodHFNoise):     r.BadChannelsFromHFNoise,
		string(noisy.MethodCorrelation): r.BadChannelsFromCorrelation,
		string(noisy.MethodDropOut):     r.BadChannelsFromDropOuts,
		string(noisy.MethodRansac):      r.BadChannelsFromRansac,
	}
	return &Document{
		Meta:               meta,
		Params:             r.Params,
		ChannelCount:       r.ChannelCount,
		SampleCount:        r.SampleCount,
		SampleRate:         r.SampleRate,
		Labels:             r.Labels,
		EvaluationChannels: r.EvaluationChannels,
		NoseDirection:      r.NoseDirection,
		NoisyChannels:      r.NoisyChannels,
		BadChannels:        bad,
		Deviation: DeviationSection{
			Median:     finite(r.ChannelDeviationMedian),
			SD:         finite(r.ChannelDeviationSD),
			Deviations: finiteSlice(r.ChannelDeviations),
			ZScores:    finiteSlice(r.RobustChannelDeviation),
		},
		HFNoise: HFNoiseSection{
			Filtered: r.HFFiltered,
			Median:   finite(r.NoisinessMedian),
			SD:       finite(r.NoisinessSD),
			ZScores:  finiteSlice(r.ZScoreHFNoise),
		},
		Correlation: CorrelationSection{
			WindowSamples:         r.CorrelationWindow.Samples,
			WindowOffsets:         r.CorrelationWindow.Offsets,
			MaximumCorrelations:   finiteMatrix(r.MaximumCorrelations),
			MedianMaxCorrelation:  finiteSlice(r.MedianMaxCorrelation),
			NoiseLevels:           finiteMatrix(r.NoiseLevels),
			WindowDeviations:      finiteMatrix(r.WindowDeviations),
			DropOuts:              r.DropOuts,
			FractionBadWindows:    finiteSlice(r.FractionBadCorrelationWindows),
			FractionDropOutWindow: finiteSlice(r.FractionDropOutWindows),
		},
		Ransac: RansacSection{
			Performed:         r.RansacPerformed,
			Failed:            r.RansacFailed,
			Message:           r.RansacMessage,
			Channels:          r.RansacChannels,
			SubsetSize:        r.RansacSubsetSize,
			WindowSamples:     r.RansacWindow.Samples,
			WindowOffsets:     r.RansacWindow.Offsets,
			Correlations:      finiteMatrix(r.RansacCorrelations),
			BadWindowFraction: finiteSlice(r.RansacBadWindowFraction),
		},
	}
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *noisy.Report, meta Meta) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewDocument(r, meta)); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// SaveJSON writes the report to path on fsys.
func SaveJSON(fsys fsutil.FileSystem, path string, r *noisy.Report, meta Meta) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteJSON(f, r, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
