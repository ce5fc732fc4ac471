package noisy

import (
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"github.com/banshee-data/eegqc/internal/config"
	"github.com/banshee-data/eegqc/internal/eeg"
	"github.com/banshee-data/eegqc/internal/monitoring"
)

// analysis carries the shared, read-only inputs of one detector run. The
// analysers write their results into report.
type analysis struct {
	rec     *eeg.Recording
	params  config.Params
	report  *Report
	workers int

	// channels are the evaluated 1-based channel numbers; column j of raw
	// and filtered holds channel channels[j].
	channels []int
	raw      *mat.Dense // samples × channels
	filtered *mat.Dense // samples × channels; aliases raw when unfiltered
}

// FindNoisyChannels runs the full detector over rec. Parameters usually come
// from config.NoisyConfig.Resolve; an empty ReferenceChannels selects every
// channel.
//
// Malformed recordings fail with *eeg.InvalidInputError and bad parameters
// with *config.InvalidParameterError before any computation. A RANSAC failure
// caused by unusable channel locations does not fail the run; it is recorded
// in Report.RansacFailed and Report.RansacErr.
func FindNoisyChannels(rec *eeg.Recording, params config.Params) (*Report, error) {
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	if len(params.ReferenceChannels) == 0 {
		params.ReferenceChannels = eeg.AllChannels(rec.ChannelCount())
	}
	if err := params.Check(rec.ChannelCount()); err != nil {
		return nil, err
	}

	workers := params.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	a := &analysis{
		rec:     rec,
		params:  params,
		report:  newReport(rec, params),
		workers: workers,
	}

	start := time.Now()
	a.prescreen()
	if len(a.channels) == 0 {
		monitoring.Logf("noisy: no usable reference channels out of %d", len(params.ReferenceChannels))
		a.emptyWindows()
		a.report.RansacMessage = "no usable reference channels"
		a.report.aggregate()
		return a.report, nil
	}
	a.prepare()

	devMedian, devSD := a.findBadByDeviation()
	if err := a.lowPass(); err != nil {
		return nil, err
	}
	noiseMedian, noiseSD := a.findBadByHFNoise()
	if err := a.findBadByCorrelation(devMedian, devSD, noiseMedian, noiseSD); err != nil {
		return nil, err
	}
	monitoring.Debugf("noisy: methods 1-3 over %d channels took %v", len(a.channels), time.Since(start))

	start = time.Now()
	a.findBadByRansac()
	monitoring.Debugf("noisy: ransac took %v (performed=%v)", time.Since(start), a.report.RansacPerformed)

	a.report.aggregate()
	return a.report, nil
}

// parallelFor runs fn for 0..n-1 on at most workers goroutines. Each call
// must write only to its own output slots.
func parallelFor(workers, n int, fn func(i int) error) error {
	var g errgroup.Group
	g.SetLimit(max(workers, 1))
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
