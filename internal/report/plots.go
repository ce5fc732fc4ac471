package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/banshee-data/eegqc/internal/fsutil"
	"github.com/banshee-data/eegqc/internal/noisy"
)

// Plot file names written by GeneratePlots.
const (
	ScoresPlotFile      = "channel_scores.png"
	CorrelationPlotFile = "max_correlation.png"
	RansacPlotFile      = "ransac_correlation.png"
)

// GeneratePlots writes PNG summaries of r into outputDir on fsys. The RANSAC
// plot is only written when the spatial method ran. Returns the number of
// plots generated and any error.
func GeneratePlots(fsys fsutil.FileSystem, r *noisy.Report, outputDir string) (int, error) {
	if err := fsys.MkdirAll(outputDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output dir: %w", err)
	}

	count := 0
	if err := scoresPlot(fsys, r, filepath.Join(outputDir, ScoresPlotFile)); err != nil {
		return count, fmt.Errorf("scores plot: %w", err)
	}
	count++

	if r.CorrelationWindow.Len() > 0 {
		err := windowPlot(fsys, r, "Maximum correlation per window", "Max |r|",
			r.MaximumCorrelations, r.Params.CorrelationThreshold,
			filepath.Join(outputDir, CorrelationPlotFile))
		if err != nil {
			return count, fmt.Errorf("correlation plot: %w", err)
		}
		count++
	}

	if r.RansacPerformed {
		err := windowPlot(fsys, r, "RANSAC prediction correlation per window", "r",
			r.RansacCorrelations, r.Params.RansacCorrelationThreshold,
			filepath.Join(outputDir, RansacPlotFile))
		if err != nil {
			return count, fmt.Errorf("ransac plot: %w", err)
		}
		count++
	}
	return count, nil
}

// savePNG renders p at the size used for every summary plot.
func savePNG(fsys fsutil.FileSystem, p *plot.Plot, path string) error {
	wt, err := p.WriterTo(14*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return err
	}
	f, err := fsys.Create(path)
	if err != nil {
		return err
	}
	if _, err := wt.WriteTo(f); err != nil {
		f.Close()
		return fmt.Errorf("save %s: %w", path, err)
	}
	return f.Close()
}

// plottable replaces non-finite values, which plotter rejects, with zero.
func plottable(x []float64) plotter.Values {
	out := make(plotter.Values, len(x))
	for i, v := range x {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out[i] = v
		}
	}
	return out
}

// scoresPlot draws the deviation and HF-noise z-scores side by side with
// their thresholds.
func scoresPlot(fsys fsutil.FileSystem, r *noisy.Report, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Channel z-scores (%d channels, noisy: %v)", r.ChannelCount, r.NoisyChannels)
	p.Y.Label.Text = "Robust z-score"

	w := vg.Points(6)
	dev, err := plotter.NewBarChart(plottable(r.RobustChannelDeviation), w)
	if err != nil {
		return err
	}
	dev.Color = color.RGBA{R: 49, G: 104, B: 142, A: 255}
	dev.LineStyle.Width = 0
	dev.Offset = -w / 2

	hf, err := plotter.NewBarChart(plottable(r.ZScoreHFNoise), w)
	if err != nil {
		return err
	}
	hf.Color = color.RGBA{R: 253, G: 174, B: 97, A: 255}
	hf.LineStyle.Width = 0
	hf.Offset = w / 2

	p.Add(dev, hf)
	p.Legend.Add("deviation", dev)
	p.Legend.Add("hf noise", hf)

	addThreshold(p, r.Params.RobustDeviationThreshold, "deviation threshold", dev.Color)
	addThreshold(p, r.Params.HighFrequencyNoiseThreshold, "hf threshold", hf.Color)
	p.NominalX(r.Labels...)

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return savePNG(fsys, p, path)
}

func addThreshold(p *plot.Plot, y float64, label string, c color.Color) {
	line := plotter.NewFunction(func(float64) float64 { return y })
	line.Color = c
	line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
}

// windowPlot draws one line per evaluated channel across windows.
func windowPlot(fsys fsutil.FileSystem, r *noisy.Report, title, yLabel string, values [][]float64, threshold float64, path string) error {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Window"
	p.Y.Label.Text = yLabel

	colors := generateColors(len(r.EvaluationChannels))
	for i, ch := range r.EvaluationChannels {
		row := values[ch-1]
		pts := make(plotter.XYs, 0, len(row))
		for k, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			pts = append(pts, plotter.XY{X: float64(k), Y: v})
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(r.Labels[ch-1], line)
	}
	addThreshold(p, threshold, "threshold", color.Black)

	p.Legend.Top = false
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = 10

	return savePNG(fsys, p, path)
}

// generateColors creates a palette of n distinct colors.
func generateColors(n int) []color.Color {
	if n <= 0 {
		return nil
	}

	colors := make([]color.Color, n)
	for i := 0; i < n; i++ {
		hue := float64(i) / float64(n)
		r, g, b := hslToRGB(hue, 0.7, 0.5)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hslToRGB converts HSL to RGB (0-255 range)
func hslToRGB(h, s, l float64) (r, g, b uint8) {
	var rf, gf, bf float64

	if s == 0 {
		rf, gf, bf = l, l, l
	} else {
		var q float64
		if l < 0.5 {
			q = l * (1 + s)
		} else {
			q = l + s - l*s
		}
		p := 2*l - q
		rf = hueToRGB(p, q, h+1.0/3.0)
		gf = hueToRGB(p, q, h)
		bf = hueToRGB(p, q, h-1.0/3.0)
	}

	return uint8(rf * 255), uint8(gf * 255), uint8(bf * 255)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6.0:
		return p + (q-p)*6*t
	case t < 1.0/2.0:
		return q
	case t < 2.0/3.0:
		return p + (q-p)*(2.0/3.0-t)*6
	}
	return p
}
