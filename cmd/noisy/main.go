// Command noisy runs noisy-channel detection on an EEG recording and writes
// the report as JSON, PNG plots and an HTML dashboard.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/google/uuid"

	"github.com/banshee-data/eegqc/internal/config"
	"github.com/banshee-data/eegqc/internal/eeg"
	"github.com/banshee-data/eegqc/internal/fsutil"
	"github.com/banshee-data/eegqc/internal/monitoring"
	"github.com/banshee-data/eegqc/internal/noisy"
	"github.com/banshee-data/eegqc/internal/report"
	"github.com/banshee-data/eegqc/internal/security"
	"github.com/banshee-data/eegqc/internal/synthetic"
	"github.com/banshee-data/eegqc/internal/timeutil"
	"github.com/banshee-data/eegqc/internal/version"
)

// Config holds the command-line configuration.
type Config struct {
	RecordingFile string
	ConfigFile    string
	Demo          string
	OutputDir     string
	OutputJSON    string
	OutputHTML    string
	Plots         bool
	Workers       int
	Verbose       bool
	ShowVersion   bool
}

// Demo scenarios selectable with -demo.
const (
	DemoNoisy     = "noisy"
	DemoIdentical = "identical"
	DemoInverted  = "inverted"
)

func main() {
	cfg := parseFlags()

	if cfg.ShowVersion {
		fmt.Println(version.String())
		return
	}
	if cfg.RecordingFile == "" && cfg.Demo == "" {
		log.Fatal("either -recording or -demo is required")
	}
	if cfg.Verbose {
		monitoring.SetDebugLogger(log.Printf)
	}

	rn := &runner{fs: fsutil.OSFileSystem{}, clock: timeutil.RealClock{}, out: os.Stdout}
	if _, err := rn.run(cfg); err != nil {
		log.Fatalf("Detection failed: %v", err)
	}
}

func parseFlags() Config {
	cfg := Config{}

	flag.StringVar(&cfg.RecordingFile, "recording", "", "Path to a JSON recording")
	flag.StringVar(&cfg.ConfigFile, "config", "", "Path to a JSON parameter file (defaults apply when empty)")
	flag.StringVar(&cfg.Demo, "demo", "", "Analyse a synthetic recording instead: noisy, identical, inverted")
	flag.StringVar(&cfg.OutputDir, "output", "", "Output directory for results")
	flag.StringVar(&cfg.OutputJSON, "json", "", "Output JSON filename (e.g., report.json)")
	flag.StringVar(&cfg.OutputHTML, "html", "", "Output dashboard filename (e.g., report.html)")
	flag.BoolVar(&cfg.Plots, "plots", false, "Write PNG plots into the output directory")
	flag.IntVar(&cfg.Workers, "workers", 0, "Parallel workers (0 = GOMAXPROCS)")
	flag.BoolVar(&cfg.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&cfg.ShowVersion, "version", false, "Print the version and exit")

	flag.Parse()

	return cfg
}

// demoRecording builds one of the synthetic scenarios.
func demoRecording(name string) (*eeg.Recording, error) {
	opts := synthetic.Options{Channels: 32, SampleRate: 250, Seconds: 30, Seed: 1, NoiseAmplitude: 0.05, Locations: true}
	switch name {
	case DemoNoisy:
		rec := synthetic.Smooth(opts)
		synthetic.ReplaceWithNoise(rec, 5, 10, 2)
		synthetic.Flatten(rec, 12, 0)
		return rec, nil
	case DemoIdentical:
		return synthetic.Identical(opts), nil
	case DemoInverted:
		rec := synthetic.Smooth(opts)
		for i := range rec.Data[6] {
			rec.Data[6][i] = -rec.Data[6][i]
		}
		return rec, nil
	}
	return nil, fmt.Errorf("unknown demo %q (want %s, %s or %s)", name, DemoNoisy, DemoIdentical, DemoInverted)
}

func loadInputs(cfg Config) (*eeg.Recording, config.Params, string, error) {
	var (
		rec    *eeg.Recording
		source string
		err    error
	)
	if cfg.RecordingFile != "" {
		rec, err = eeg.LoadRecording(cfg.RecordingFile)
		source = cfg.RecordingFile
	} else {
		rec, err = demoRecording(cfg.Demo)
		source = "demo:" + cfg.Demo
	}
	if err != nil {
		return nil, config.Params{}, "", err
	}

	nc := config.EmptyNoisyConfig()
	if cfg.ConfigFile != "" {
		if nc, err = config.LoadNoisyConfig(cfg.ConfigFile); err != nil {
			return nil, config.Params{}, "", err
		}
	}
	if cfg.Workers > 0 {
		nc.Workers = &cfg.Workers
	}
	params, err := nc.Resolve(rec.ChannelCount())
	if err != nil {
		return nil, config.Params{}, "", err
	}
	return rec, params, source, nil
}

// runner carries the side-effecting dependencies of one CLI invocation.
type runner struct {
	fs    fsutil.FileSystem
	clock timeutil.Clock
	out   io.Writer
}

func (rn *runner) run(cfg Config) (*noisy.Report, error) {
	rec, params, source, err := loadInputs(cfg)
	if err != nil {
		return nil, err
	}

	meta := report.Meta{
		RunID:       uuid.NewString(),
		Source:      source,
		Version:     version.Version,
		GeneratedAt: rn.clock.Now().UTC(),
	}
	log.Printf("Run %s: %d channels, %d samples at %g Hz from %s",
		meta.RunID, rec.ChannelCount(), rec.SampleCount(), rec.SampleRate, source)

	start := rn.clock.Now()
	r, err := noisy.FindNoisyChannels(rec, params)
	if err != nil {
		return nil, err
	}
	log.Printf("Detection finished in %v", rn.clock.Since(start))

	printResults(rn.out, r)

	dir := cfg.OutputDir
	if dir == "" {
		dir = "."
	}
	if cfg.OutputJSON != "" || cfg.OutputHTML != "" || cfg.Plots {
		if err := rn.fs.MkdirAll(dir, 0755); err != nil {
			return r, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if cfg.OutputJSON != "" {
		path, err := security.OutputPath(dir, cfg.OutputJSON)
		if err != nil {
			return r, err
		}
		if err := report.SaveJSON(rn.fs, path, r, meta); err != nil {
			return r, err
		}
		log.Printf("Report exported to: %s", path)
	}
	if cfg.OutputHTML != "" {
		path, err := security.OutputPath(dir, cfg.OutputHTML)
		if err != nil {
			return r, err
		}
		if err := report.SaveDashboard(rn.fs, path, r, meta); err != nil {
			return r, err
		}
		log.Printf("Dashboard exported to: %s", path)
	}
	if cfg.Plots {
		n, err := report.GeneratePlots(rn.fs, r, dir)
		if err != nil {
			return r, err
		}
		log.Printf("Generated %d plots in %s", n, dir)
	}
	return r, nil
}

func printResults(w io.Writer, r *noisy.Report) {
	fmt.Fprintf(w, "Channels evaluated: %d of %d\n", len(r.EvaluationChannels), r.ChannelCount)
	fmt.Fprintf(w, "Noisy channels:     %v\n", r.NoisyChannels)
	for _, ch := range r.NoisyChannels {
		fmt.Fprintf(w, "  %-8s %v\n", r.Labels[ch-1], r.Explain(ch))
	}
	switch {
	case r.RansacPerformed:
		fmt.Fprintf(w, "RANSAC:             performed (%d channels, subset %d)\n", len(r.RansacChannels), r.RansacSubsetSize)
	case r.RansacFailed:
		fmt.Fprintf(w, "RANSAC:             failed: %s\n", r.RansacMessage)
	default:
		fmt.Fprintf(w, "RANSAC:             skipped: %s\n", r.RansacMessage)
	}
}
