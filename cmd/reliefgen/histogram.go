package main

import (
	"context"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/Faultbox/relief-forge/internal/config"
	"github.com/Faultbox/relief-forge/internal/imageio"
	"github.com/Faultbox/relief-forge/internal/pipeline"
	"github.com/Faultbox/relief-forge/pkg/depthmap"
	"github.com/Faultbox/relief-forge/pkg/relief"
)

const histogramBins = 256

func cmdHistogram(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: reliefgen histogram <depth.png> <out.png>")
	}

	depth, err := pipeline.DecodeFile(args[0])
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	b := depth.Bounds()
	w, h := relief.TargetResolution(b.Dx(), b.Dy(), cfg.Relief.MaxResolution)
	grid := depthmap.FromImage(imageio.Resample(depth, w, h))

	opts := cfg.Relief.DepthOptions()
	opts.Enhance.Enabled = true
	processed, _ := depthmap.Process(grid, opts)

	before := depthmap.Histogram(grid.Values, histogramBins)
	after := depthmap.Histogram(processed.Values, histogramBins)
	if err := renderHistogram(before, after, args[1]); err != nil {
		return err
	}
	fmt.Printf("Histogram of %dx%d grid written to %s\n", w, h, args[1])
	return nil
}

// renderHistogram draws both histograms as overlaid bar charts. The image
// format follows the extension of path.
func renderHistogram(before, after []int, path string) error {
	p := plot.New()
	p.Title.Text = "Depth histogram"
	p.X.Label.Text = "Depth bin"
	p.Y.Label.Text = "Pixels"

	series := []struct {
		name   string
		counts []int
		color  color.Color
	}{
		{"original", before, color.RGBA{R: 90, G: 90, B: 90, A: 255}},
		{"enhanced", after, color.RGBA{R: 220, G: 80, B: 40, A: 200}},
	}
	for _, s := range series {
		vals := make(plotter.Values, len(s.counts))
		for i, c := range s.counts {
			vals[i] = float64(c)
		}
		bars, err := plotter.NewBarChart(vals, vg.Points(1))
		if err != nil {
			return fmt.Errorf("histogram %s: %w", s.name, err)
		}
		bars.Color = s.color
		bars.LineStyle.Width = 0
		p.Add(bars)
		p.Legend.Add(s.name, bars)
	}

	p.Legend.Top = true
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}
