package report

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/eegqc/internal/fsutil"
	"github.com/banshee-data/eegqc/internal/noisy"
)

// AssetsHost is where the dashboard loads the echarts scripts from.
var AssetsHost = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis is the heatmap palette.
var viridis = []string{"#440154", "#482777", "#3e4989", "#31688e", "#26828e", "#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725"}

// chartValue converts v for echarts, which treats "-" as a missing point.
func chartValue(v float64) interface{} {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return v
}

func windowLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

// windowHeatMap shows one row per evaluated channel and one column per
// window.
func windowHeatMap(r *noisy.Report, title, subtitle string, values [][]float64, windows int) *charts.HeatMap {
	rows := make([]string, len(r.EvaluationChannels))
	data := make([]opts.HeatMapData, 0, len(r.EvaluationChannels)*windows)
	for i, ch := range r.EvaluationChannels {
		rows[i] = r.Labels[ch-1]
		for k := 0; k < windows; k++ {
			data = append(data, opts.HeatMapData{Value: []interface{}{k, i, chartValue(values[ch-1][k])}})
		}
	}

	hm := charts.NewHeatMap()
	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: fmt.Sprintf("%dpx", 120+18*len(rows)), AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "category", Data: windowLabels(windows), Name: "Window", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Type: "category", Data: rows}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        0,
			Max:        1,
			InRange:    &opts.VisualMapInRange{Color: viridis},
			Orient:     "horizontal",
			Left:       "center",
			Bottom:     "2%",
		}),
	)
	hm.AddSeries("correlation", data)
	return hm
}

// scoresBar shows the per-channel z-scores of the amplitude and
// high-frequency methods.
func scoresBar(r *noisy.Report) *charts.Bar {
	dev := make([]opts.BarData, r.ChannelCount)
	hf := make([]opts.BarData, r.ChannelCount)
	for i := 0; i < r.ChannelCount; i++ {
		dev[i] = opts.BarData{Value: chartValue(r.RobustChannelDeviation[i])}
		hf[i] = opts.BarData{Value: chartValue(r.ZScoreHFNoise[i])}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px", AssetsHost: AssetsHost}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Channel z-scores",
			Subtitle: fmt.Sprintf("noisy=%v deviation>%g hf>%g", r.NoisyChannels, r.Params.RobustDeviationThreshold, r.Params.HighFrequencyNoiseThreshold),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
	)
	bar.SetXAxis(r.Labels).
		AddSeries("deviation", dev).
		AddSeries("hf noise", hf)
	return bar
}

// RenderDashboard writes an HTML page with the report's charts.
func RenderDashboard(w io.Writer, r *noisy.Report, meta Meta) error {
	page := components.NewPage()
	page.SetAssetsHost(AssetsHost)
	page.AddCharts(scoresBar(r))

	if n := r.CorrelationWindow.Len(); n > 0 && len(r.EvaluationChannels) > 0 {
		sub := fmt.Sprintf("run=%s window=%d samples threshold=%g", meta.RunID, r.CorrelationWindow.Samples, r.Params.CorrelationThreshold)
		page.AddCharts(windowHeatMap(r, "Maximum correlation", sub, r.MaximumCorrelations, n))
	}
	if r.RansacPerformed {
		n := r.RansacWindow.Len()
		sub := fmt.Sprintf("run=%s window=%d samples threshold=%g", meta.RunID, r.RansacWindow.Samples, r.Params.RansacCorrelationThreshold)
		page.AddCharts(windowHeatMap(r, "RANSAC prediction correlation", sub, r.RansacCorrelations, n))
	}

	var buf bytes.Buffer
	if err := page.Render(&buf); err != nil {
		return fmt.Errorf("render error: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// SaveDashboard writes the dashboard to path on fsys.
func SaveDashboard(fsys fsutil.FileSystem, path string, r *noisy.Report, meta Meta) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := RenderDashboard(f, r, meta); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
