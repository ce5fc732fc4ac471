package noisy

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/eegqc/internal/config"
	"github.com/banshee-data/eegqc/internal/eeg"
	"github.com/banshee-data/eegqc/internal/monitoring"
	"github.com/banshee-data/eegqc/internal/synthetic"
	"github.com/banshee-data/eegqc/internal/testutil"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	m.Run()
}

func noisyChannelRecording() *eeg.Recording {
	rec := synthetic.Smooth(synthetic.Options{
		Channels:       10,
		SampleRate:     1000,
		Seconds:        10,
		Seed:           1,
		NoiseAmplitude: 0.05,
	})
	synthetic.ReplaceWithNoise(rec, 5, 10, 99)
	return rec
}

// montageRecording has enough located channels for the spatial method.
func montageRecording() *eeg.Recording {
	return synthetic.Smooth(synthetic.Options{
		Channels:       32,
		SampleRate:     250,
		Seconds:        20,
		Seed:           3,
		NoiseAmplitude: 0.05,
		Locations:      true,
	})
}

func TestFindNoisyChannels_NoisyChannel(t *testing.T) {
	rec := noisyChannelRecording()
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	assert.Contains(t, report.BadChannelsFromDeviation, 5)
	assert.Contains(t, report.BadChannelsFromCorrelation, 5)
	assert.Contains(t, report.BadChannelsFromHFNoise, 5)
	assert.Contains(t, report.NoisyChannels, 5)
	for ch := 1; ch <= 10; ch++ {
		if ch == 5 {
			continue
		}
		assert.NotContains(t, report.BadChannelsFromDeviation, ch, "channel %d", ch)
		assert.NotContains(t, report.BadChannelsFromCorrelation, ch, "channel %d", ch)
	}

	assert.True(t, report.HFFiltered)
	assert.Equal(t, 10, report.CorrelationWindow.Len())
	assert.Equal(t, 1000, report.CorrelationWindow.Samples)
	assert.Less(t, report.MedianMaxCorrelation[4], 0.4)
	assert.Greater(t, report.MedianMaxCorrelation[0], 0.9)
	assert.Equal(t, 1.0, report.FractionBadCorrelationWindows[4])
	assert.Empty(t, report.BadChannelsFromDropOuts)
	testutil.AssertFinite(t, "robust channel deviation", report.RobustChannelDeviation)

	assert.False(t, report.RansacPerformed)
	assert.Empty(t, report.BadChannelsFromRansac)
}

func TestFindNoisyChannels_HighFrequencyNoise(t *testing.T) {
	rec := synthetic.Smooth(synthetic.Options{
		Channels:       10,
		SampleRate:     1000,
		Seconds:        10,
		Seed:           1,
		NoiseAmplitude: 0.05,
	})
	synthetic.AddSine(rec, 4, 200, 0.5)
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	require.True(t, report.HFFiltered)
	assert.Equal(t, []int{4}, report.BadChannelsFromHFNoise)
	assert.Greater(t, report.ZScoreHFNoise[3], 5.0)
	// The 200 Hz component is filtered out before correlating.
	assert.NotContains(t, report.BadChannelsFromCorrelation, 4)
	assert.Contains(t, report.Explain(4), MethodHFNoise)
	for k, v := range report.NoiseLevels[3] {
		assert.Greater(t, v, 5.0, "window %d", k)
	}
}

func TestFindNoisyChannels_DropOutWindows(t *testing.T) {
	rec := synthetic.Smooth(synthetic.Options{
		Channels:       10,
		SampleRate:     250,
		Seconds:        10,
		Seed:           4,
		NoiseAmplitude: 0.05,
	})
	// Zero channel 3 well past windows 3 and 4 so the filtered signal is
	// exactly zero inside them.
	for i := 550; i < 1450; i++ {
		rec.Data[2][i] = 0
	}
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	require.Equal(t, 10, report.CorrelationWindow.Len())
	assert.Empty(t, report.BadChannelsFromNoData)
	assert.Equal(t, []int{3}, report.BadChannelsFromDropOuts)
	assert.Equal(t, []bool{false, false, false, true, true, false, false, false, false, false}, report.DropOuts[2])
	assert.InDelta(t, 0.2, report.FractionDropOutWindows[2], 1e-12)
	for _, k := range []int{3, 4} {
		assert.Equal(t, 0.0, report.MaximumCorrelations[2][k], "window %d", k)
		assert.Equal(t, 0.0, report.NoiseLevels[2][k], "window %d", k)
	}
	testutil.AssertFinite(t, "maximum correlations", report.MaximumCorrelations[2])
	assert.Contains(t, report.BadChannelsFromCorrelation, 3)
	assert.Contains(t, report.Explain(3), MethodDropOut)
	for ch := 1; ch <= 10; ch++ {
		if ch != 3 {
			assert.Zero(t, report.FractionDropOutWindows[ch-1], "channel %d", ch)
		}
	}
}

func TestFindNoisyChannels_IdenticalChannels(t *testing.T) {
	rec := synthetic.Identical(synthetic.Options{Channels: 8, SampleRate: 500, Seconds: 4})
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	for ch := 0; ch < 8; ch++ {
		for k, v := range report.MaximumCorrelations[ch] {
			assert.InDelta(t, 1.0, v, 1e-9, "channel %d window %d", ch+1, k)
		}
	}
	assert.Empty(t, report.BadChannelsFromCorrelation)
	assert.Empty(t, report.BadChannelsFromDropOuts)
	// Zero spread across channels gives non-finite scores, which never flag.
	assert.Empty(t, report.BadChannelsFromDeviation)
	assert.Empty(t, report.BadChannelsFromHFNoise)
	assert.Empty(t, report.NoisyChannels)
}

func TestFindNoisyChannels_ReferenceChannelsNormalised(t *testing.T) {
	rec := noisyChannelRecording()
	cfg, err := config.NoisyConfigFromOverrides(map[string]interface{}{
		"referenceChannels": []interface{}{7.0, 2.0, 5.0, 2.0, 9.0, 7.0},
	})
	require.NoError(t, err)
	params, err := cfg.Resolve(rec.ChannelCount())
	require.NoError(t, err)
	require.Equal(t, []int{2, 5, 7, 9}, params.ReferenceChannels)

	report, err := FindNoisyChannels(rec, params)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5, 7, 9}, report.EvaluationChannels)
	assert.Equal(t, []int{2, 5, 7, 9}, report.Params.ReferenceChannels)

	// Channels outside the selection keep neutral values.
	for _, ch := range []int{1, 3, 4, 6, 8, 10} {
		assert.Zero(t, report.ChannelDeviations[ch-1], "channel %d", ch)
		assert.Zero(t, report.RobustChannelDeviation[ch-1], "channel %d", ch)
		assert.Equal(t, 1.0, report.MedianMaxCorrelation[ch-1], "channel %d", ch)
	}
	assert.NotZero(t, report.ChannelDeviations[4])
	assert.Less(t, report.MedianMaxCorrelation[4], 0.4)
	assert.Contains(t, report.BadChannelsFromCorrelation, 5)
}

func TestFindNoisyChannels_RejectsUnnormalisedParams(t *testing.T) {
	rec := noisyChannelRecording()
	params := config.DefaultParams(rec.ChannelCount())
	params.ReferenceChannels = []int{3, 1}
	_, err := FindNoisyChannels(rec, params)
	var perr *config.InvalidParameterError
	require.True(t, errors.As(err, &perr), "got %v", err)

	params.ReferenceChannels = []int{1, 11}
	_, err = FindNoisyChannels(rec, params)
	require.True(t, errors.As(err, &perr), "got %v", err)
}

func TestFindNoisyChannels_InvalidInput(t *testing.T) {
	tests := []struct {
		name string
		rec  *eeg.Recording
	}{
		{"nil", nil},
		{"no channels", &eeg.Recording{SampleRate: 100}},
		{"ragged", &eeg.Recording{SampleRate: 100, Data: [][]float64{{1, 2, 3}, {1, 2}}}},
		{"zero rate", &eeg.Recording{Data: [][]float64{{1, 2, 3}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindNoisyChannels(tt.rec, config.DefaultParams(1))
			var ierr *eeg.InvalidInputError
			assert.True(t, errors.As(err, &ierr), "got %v", err)
		})
	}
}

func TestFindNoisyChannels_LowSampleRateSkipsHFNoise(t *testing.T) {
	rec := synthetic.Smooth(synthetic.Options{Channels: 10, SampleRate: 100, Seconds: 20, Seed: 4, NoiseAmplitude: 0.05})
	synthetic.ReplaceWithNoise(rec, 3, 10, 5)
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	assert.False(t, report.HFFiltered)
	assert.Empty(t, report.BadChannelsFromHFNoise)
	for i, z := range report.ZScoreHFNoise {
		assert.Zero(t, z, "channel %d", i+1)
	}
	for _, row := range report.NoiseLevels {
		for _, v := range row {
			assert.Zero(t, v)
		}
	}
	assert.Contains(t, report.BadChannelsFromDeviation, 3)
}

func TestFindNoisyChannels_DeviationMonotonic(t *testing.T) {
	rec := synthetic.Smooth(synthetic.Options{Channels: 12, SampleRate: 200, Seconds: 5, Seed: 8, NoiseAmplitude: 0.05})
	rng := rand.New(rand.NewSource(11))
	for ch := 1; ch <= 12; ch++ {
		scale := 1 + 4*rng.Float64()
		for i := range rec.Data[ch-1] {
			rec.Data[ch-1][i] *= scale
		}
	}

	var previous []int
	for i, threshold := range []float64{0.5, 1, 1.5, 2, 3, 5, 8} {
		params := config.DefaultParams(rec.ChannelCount())
		params.RobustDeviationThreshold = threshold
		report, err := FindNoisyChannels(rec, params)
		require.NoError(t, err)
		if i > 0 {
			assert.Subset(t, previous, report.BadChannelsFromDeviation, "threshold %g", threshold)
		}
		previous = report.BadChannelsFromDeviation
	}
}

func TestFindNoisyChannels_UnionAndExplain(t *testing.T) {
	rec := noisyChannelRecording()
	synthetic.Flatten(rec, 2, 0.5)
	synthetic.InjectNaN(rec, 8, 100)
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	assert.Equal(t, []int{8}, report.BadChannelsFromNaNs)
	assert.Equal(t, []int{2}, report.BadChannelsFromNoData)
	assert.NotContains(t, report.EvaluationChannels, 2)
	assert.NotContains(t, report.EvaluationChannels, 8)
	assert.Equal(t, []Method{MethodNaN}, report.Explain(8))
	assert.Equal(t, []Method{MethodNoData}, report.Explain(2))

	want := eeg.Union(
		report.BadChannelsFromNaNs,
		report.BadChannelsFromNoData,
		report.BadChannelsFromDeviation,
		report.BadChannelsFromHFNoise,
		report.BadChannelsFromCorrelation,
		report.BadChannelsFromDropOuts,
		report.BadChannelsFromRansac,
	)
	assert.Equal(t, want, report.NoisyChannels)
	for ch := 1; ch <= rec.ChannelCount(); ch++ {
		assert.Equal(t, report.IsNoisy(ch), len(report.Explain(ch)) > 0, "channel %d", ch)
	}
	assert.True(t, report.IsNoisy(5))
	assert.False(t, report.IsNoisy(1))
}

func TestFindNoisyChannels_AllChannelsUnusable(t *testing.T) {
	rec := &eeg.Recording{SampleRate: 200, Data: [][]float64{make([]float64, 400), make([]float64, 400)}}
	report, err := FindNoisyChannels(rec, config.DefaultParams(2))
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, report.BadChannelsFromNoData)
	assert.Equal(t, []int{1, 2}, report.NoisyChannels)
	assert.Empty(t, report.EvaluationChannels)
	assert.Equal(t, 2, report.CorrelationWindow.Len())
	assert.False(t, report.RansacPerformed)
}

func TestFindNoisyChannels_NoLocationsSkipsRansac(t *testing.T) {
	rec := montageRecording()
	rec.Locations = nil
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)
	assert.False(t, report.RansacPerformed)
	assert.False(t, report.RansacFailed)
	assert.NoError(t, report.RansacErr)
	assert.Empty(t, report.BadChannelsFromRansac)
	assert.NotEmpty(t, report.RansacMessage)
	for _, f := range report.RansacBadWindowFraction {
		assert.Zero(t, f)
	}
}

func TestFindNoisyChannels_RansacCleanMontage(t *testing.T) {
	rec := montageRecording()
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	require.True(t, report.RansacPerformed, report.RansacMessage)
	assert.False(t, report.RansacFailed)
	assert.Equal(t, 8, report.RansacSubsetSize)
	assert.Equal(t, 4, report.RansacWindow.Len())
	assert.Len(t, report.RansacChannels, 32)
	assert.Empty(t, report.BadChannelsFromRansac)
	assert.Empty(t, report.BadChannelsFromDeviation)
	for ch, row := range report.RansacCorrelations {
		for k, v := range row {
			assert.Greater(t, v, 0.75, "channel %d window %d", ch+1, k)
		}
	}
}

func TestFindNoisyChannels_RansacSubsetSizeFromRecording(t *testing.T) {
	tests := []struct {
		name      string
		refs      int
		performed bool
	}{
		{"half the montage", 16, true},
		{"too few candidates for the subset", 8, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := montageRecording()
			params := config.DefaultParams(rec.ChannelCount())
			params.ReferenceChannels = eeg.AllChannels(tt.refs)
			report, err := FindNoisyChannels(rec, params)
			require.NoError(t, err)

			// round(0.25 * 32), whatever the reference selection.
			assert.Equal(t, 8, report.RansacSubsetSize)
			assert.Equal(t, tt.performed, report.RansacPerformed, report.RansacMessage)
			assert.False(t, report.RansacFailed)
			if tt.performed {
				assert.Equal(t, eeg.AllChannels(tt.refs), report.RansacChannels)
			} else {
				assert.NotEmpty(t, report.RansacMessage)
				assert.Empty(t, report.BadChannelsFromRansac)
			}
		})
	}
}

func TestFindNoisyChannels_RansacFlagsInconsistentChannel(t *testing.T) {
	rec := montageRecording()
	// An inverted channel still correlates strongly in absolute value and
	// keeps its amplitude, so only the spatial prediction can catch it.
	for i := range rec.Data[6] {
		rec.Data[6][i] = -rec.Data[6][i]
	}
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	require.True(t, report.RansacPerformed, report.RansacMessage)
	assert.NotContains(t, report.BadChannelsFromCorrelation, 7)
	assert.NotContains(t, report.BadChannelsFromDeviation, 7)
	assert.Contains(t, report.BadChannelsFromRansac, 7)
	assert.Equal(t, 1.0, report.RansacBadWindowFraction[6])
	assert.Contains(t, report.Explain(7), MethodRansac)
}

func TestFindNoisyChannels_RansacDeterministic(t *testing.T) {
	rec := montageRecording()
	synthetic.ReplaceWithNoise(rec, 11, 1, 12)
	params := config.DefaultParams(rec.ChannelCount())
	params.Workers = 3

	first, err := FindNoisyChannels(rec, params)
	require.NoError(t, err)
	params.Workers = 1
	second, err := FindNoisyChannels(rec, params)
	require.NoError(t, err)

	first.Params.Workers, second.Params.Workers = 0, 0
	if diff := cmp.Diff(first, second, cmpopts.EquateNaNs()); diff != "" {
		t.Errorf("reports differ between runs (-first +second):\n%s", diff)
	}
}

func TestFindNoisyChannels_InvalidLocationFailsRansacOnly(t *testing.T) {
	rec := montageRecording()
	rec.Locations[3] = &eeg.Location{X: math.NaN(), Y: 0.1, Z: 0.2}
	report, err := FindNoisyChannels(rec, config.DefaultParams(rec.ChannelCount()))
	require.NoError(t, err)

	assert.False(t, report.RansacPerformed)
	assert.True(t, report.RansacFailed)
	assert.NotEmpty(t, report.RansacMessage)
	var lerr *eeg.InvalidChannelLocationError
	require.True(t, errors.As(report.RansacErr, &lerr))
	assert.Equal(t, 4, lerr.Channel)
	assert.Empty(t, report.BadChannelsFromRansac)
	assert.Equal(t, 20, report.CorrelationWindow.Len())
}

func TestFindNoisyChannels_RansacInsufficientChannels(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		fraction float64
	}{
		{"too few candidates", 2, 1},
		{"subset too small", 6, 0.2},
		{"subset covers every candidate", 6, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := synthetic.Smooth(synthetic.Options{
				Channels: tt.channels, SampleRate: 200, Seconds: 10, Seed: 2, NoiseAmplitude: 0.05, Locations: true,
			})
			params := config.DefaultParams(rec.ChannelCount())
			params.RansacChannelFraction = tt.fraction
			report, err := FindNoisyChannels(rec, params)
			require.NoError(t, err)
			assert.False(t, report.RansacPerformed)
			assert.False(t, report.RansacFailed)
			assert.NotEmpty(t, report.RansacMessage)
			assert.Empty(t, report.BadChannelsFromRansac)
		})
	}
}

func TestDrawSubsets(t *testing.T) {
	a := drawSubsets(rand.New(rand.NewSource(435656)), 20, 5, 30)
	b := drawSubsets(rand.New(rand.NewSource(435656)), 20, 5, 30)
	require.Equal(t, a, b)
	require.Len(t, a, 30)
	for _, s := range a {
		require.Len(t, s, 5)
		for i := range s {
			assert.GreaterOrEqual(t, s[i], 0)
			assert.Less(t, s[i], 20)
			if i > 0 {
				assert.Less(t, s[i-1], s[i], "subset %v not sorted and unique", s)
			}
		}
	}
	c := drawSubsets(rand.New(rand.NewSource(1)), 20, 5, 30)
	assert.NotEqual(t, a, c)
}

func TestNewProjectorReproducesConstant(t *testing.T) {
	montage := synthetic.Montage(12)
	locs := make([]eeg.Location, len(montage))
	for i, l := range montage {
		locs[i] = l.Unit()
	}
	proj, err := NewProjector(eeg.AllChannels(12), locs, 4, 10, 7, 2)
	require.NoError(t, err)
	require.Len(t, proj.Matrices, 10)

	cols := make([][]float64, 12)
	for j := range cols {
		cols[j] = []float64{2.5, -1, 0}
	}
	pred := proj.Predict(cols)
	for j := range pred {
		assert.InDeltaSlice(t, cols[j], pred[j], 1e-6, "channel %d", j+1)
	}

	_, err = NewProjector(eeg.AllChannels(12), locs[:3], 4, 10, 7, 2)
	assert.Error(t, err)
	_, err = NewProjector(eeg.AllChannels(12), locs, 13, 10, 7, 2)
	assert.Error(t, err)
}

func TestUnbrokenLimit(t *testing.T) {
	assert.InDelta(t, 400.0, unbrokenLimit(0.4, 1000, 250), 1e-9)
	assert.InDelta(t, 250.0, unbrokenLimit(1, 1000, 250), 1e-9)
	assert.InDelta(t, 750.0, unbrokenLimit(3, 1000, 250), 1e-9)
}

func TestRansacUnbrokenSeconds(t *testing.T) {
	rec := montageRecording()
	for i := range rec.Data[6] {
		rec.Data[6][i] = -rec.Data[6][i]
	}
	params := config.DefaultParams(rec.ChannelCount())
	// Four 5 s windows are bad; 25 s of bad time is never reached.
	params.RansacUnbrokenTime = 25
	report, err := FindNoisyChannels(rec, params)
	require.NoError(t, err)
	require.True(t, report.RansacPerformed)
	assert.NotContains(t, report.BadChannelsFromRansac, 7)
	assert.Equal(t, 1.0, report.RansacBadWindowFraction[6])
}
