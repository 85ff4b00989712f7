package report

import (
	"fmt"
	"io"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Meta identifies the run a factor report describes.
type Meta struct {
	RunID    string
	Strategy string
	Frames   int
	Height   int
	Width    int
	Workers  int
	Elapsed  time.Duration
}

// RenderFactorReport writes an HTML line chart of per-frame correction
// factors with the run metadata in the chart header.
func RenderFactorReport(w io.Writer, meta Meta, factors []float64) error {
	if len(factors) == 0 {
		return fmt.Errorf("report: no factors to chart")
	}

	x := make([]int, len(factors))
	data := make([]opts.LineData, len(factors))
	for i, f := range factors {
		x[i] = i
		data[i] = opts.LineData{Value: f}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Intensity Fluctuation Correction",
			Width:     "900px",
			Height:    "500px",
		}),
		charts.WithTitleOpts(opts.Title{
			Title: "Per-frame correction factors",
			Subtitle: fmt.Sprintf("run=%s strategy=%s %d frames of %dx%d workers=%d elapsed=%s",
				meta.RunID, meta.Strategy, meta.Frames, meta.Height, meta.Width,
				meta.Workers, meta.Elapsed.Round(time.Millisecond)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "factor"}),
	)
	line.SetXAxis(x).AddSeries("factor", data,
		charts.WithLineChartOpts(opts.LineChart{Smooth: opts.Bool(false)}))

	if err := line.Render(w); err != nil {
		return fmt.Errorf("report: rendering factor chart: %w", err)
	}
	return nil
}
