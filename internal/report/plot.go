// Package report renders correction-run diagnostics. Factor drift
// across a stack is the quantity this system exists to remove, so both
// writers chart per-frame factors: a static PNG for logs and archives,
// an HTML page for interactive inspection.
package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// WriteFactorPlot writes a line plot of per-frame correction factors.
// The encoder is chosen by the path's extension; use .png.
func WriteFactorPlot(path, title string, factors []float64) error {
	if len(factors) == 0 {
		return fmt.Errorf("report: no factors to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "frame"
	p.Y.Label.Text = "correction factor"

	xys := make(plotter.XYs, len(factors))
	for i, f := range factors {
		xys[i].X = float64(i)
		xys[i].Y = f
	}
	line, err := plotter.NewLine(xys)
	if err != nil {
		return fmt.Errorf("report: building factor line: %w", err)
	}
	p.Add(plotter.NewGrid(), line)

	if err := p.Save(8*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("report: saving factor plot: %w", err)
	}
	return nil
}
