// Package visualize renders diagnostic plots for trained models: target
// distributions, loss curves, prediction scatter and error density.
package visualize

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

const (
	histBins   = 30
	plotWidth  = 8 * vg.Inch
	plotHeight = 6 * vg.Inch
)

var (
	targetColor = color.NRGBA{R: 70, G: 130, B: 180, A: 140}
	predColor   = color.NRGBA{R: 220, G: 100, B: 60, A: 140}
)

// DistributionPlot overlays the histograms of target and predicted values,
// marks mean and mean±sigma of each series, and reports the RMSE in the
// title.
func DistributionPlot(path string, pred, target []float64, rmse float64) error {
	if len(pred) == 0 || len(pred) != len(target) {
		return errors.Errorf("visualize: %d predictions for %d targets", len(pred), len(target))
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Jsc distribution (RMSE = %.5f)", rmse)
	p.X.Label.Text = "Jsc (mA/cm2)"
	p.Y.Label.Text = "count"

	tHist, err := plotter.NewHist(plotter.Values(target), histBins)
	if err != nil {
		return errors.Wrap(err, "target histogram")
	}
	tHist.FillColor = targetColor

	pHist, err := plotter.NewHist(plotter.Values(pred), histBins)
	if err != nil {
		return errors.Wrap(err, "prediction histogram")
	}
	pHist.FillColor = predColor

	p.Add(tHist, pHist)
	p.Legend.Add("true", tHist)
	p.Legend.Add("predicted", pHist)
	p.Legend.Top = true

	ymax := math.Max(maxBinCount(target), maxBinCount(pred))
	addStatLines(p, target, targetColor, ymax)
	addStatLines(p, pred, predColor, ymax)

	return save(p, path)
}

func addStatLines(p *plot.Plot, xs []float64, c color.NRGBA, ymax float64) {
	mean, sigma := stat.MeanStdDev(xs, nil)
	solid := color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255}
	for _, v := range []float64{mean, mean - sigma, mean + sigma} {
		line, err := plotter.NewLine(plotter.XYs{{X: v, Y: 0}, {X: v, Y: ymax}})
		if err != nil {
			continue
		}
		line.Color = solid
		line.Width = vg.Points(1)
		if v != mean {
			line.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(line)
	}
}

// maxBinCount returns the largest bin count of a uniform histogram over xs,
// used to scale the marker lines to the plotted bars.
func maxBinCount(xs []float64) float64 {
	min, max := xs[0], xs[0]
	for _, v := range xs {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		return float64(len(xs))
	}
	counts := make([]int, histBins)
	w := (max - min) / histBins
	for _, v := range xs {
		b := int((v - min) / w)
		if b >= histBins {
			b = histBins - 1
		}
		counts[b]++
	}
	best := 0
	for _, c := range counts {
		if c > best {
			best = c
		}
	}
	return float64(best)
}

// LossHistoryPlot draws the per-epoch training loss on a log-scale Y axis.
func LossHistoryPlot(path string, history []float64) error {
	if len(history) == 0 {
		return errors.New("visualize: empty loss history")
	}

	p := plot.New()
	p.Title.Text = "training loss"
	p.X.Label.Text = "epoch"
	p.Y.Label.Text = "loss"

	xys := make(plotter.XYs, len(history))
	logScale := true
	for i, v := range history {
		xys[i] = plotter.XY{X: float64(i + 1), Y: v}
		if v <= 0 {
			logScale = false
		}
	}
	if logScale {
		p.Y.Scale = plot.LogScale{}
		p.Y.Tick.Marker = plot.LogTicks{Prec: -1}
	}

	line, err := plotter.NewLine(xys)
	if err != nil {
		return errors.Wrap(err, "loss line")
	}
	line.Color = color.NRGBA{R: 70, G: 130, B: 180, A: 255}
	p.Add(line, plotter.NewGrid())

	return save(p, path)
}

// ScatterPlot draws predictions against targets with the identity line.
func ScatterPlot(path string, pred, target []float64) error {
	if len(pred) == 0 || len(pred) != len(target) {
		return errors.Errorf("visualize: %d predictions for %d targets", len(pred), len(target))
	}

	p := plot.New()
	p.Title.Text = "predicted vs true"
	p.X.Label.Text = "true Jsc"
	p.Y.Label.Text = "predicted Jsc"

	xys := make(plotter.XYs, len(pred))
	min, max := target[0], target[0]
	for i := range pred {
		xys[i] = plotter.XY{X: target[i], Y: pred[i]}
		min = math.Min(min, math.Min(target[i], pred[i]))
		max = math.Max(max, math.Max(target[i], pred[i]))
	}

	sc, err := plotter.NewScatter(xys)
	if err != nil {
		return errors.Wrap(err, "scatter")
	}
	sc.GlyphStyle.Radius = vg.Points(1.8)
	sc.GlyphStyle.Color = predColor

	ident, err := plotter.NewLine(plotter.XYs{{X: min, Y: min}, {X: max, Y: max}})
	if err != nil {
		return errors.Wrap(err, "identity line")
	}
	ident.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}

	p.Add(sc, ident, plotter.NewGrid())
	return save(p, path)
}

// binGrid is a uniform 2D histogram over (target, prediction) pairs.
type binGrid struct {
	xmin, xmax float64
	ymin, ymax float64
	nx, ny     int
	counts     []float64
}

func (g *binGrid) Dims() (int, int)   { return g.nx, g.ny }
func (g *binGrid) Z(c, r int) float64 { return g.counts[r*g.nx+c] }
func (g *binGrid) X(c int) float64 {
	return g.xmin + (float64(c)+0.5)*(g.xmax-g.xmin)/float64(g.nx)
}
func (g *binGrid) Y(r int) float64 {
	return g.ymin + (float64(r)+0.5)*(g.ymax-g.ymin)/float64(g.ny)
}

// DensityPlot draws a heat map of the joint (true, predicted) distribution.
func DensityPlot(path string, pred, target []float64) error {
	if len(pred) == 0 || len(pred) != len(target) {
		return errors.Errorf("visualize: %d predictions for %d targets", len(pred), len(target))
	}

	g := &binGrid{nx: 24, ny: 24}
	g.xmin, g.xmax = bounds(target)
	g.ymin, g.ymax = bounds(pred)
	g.counts = make([]float64, g.nx*g.ny)
	for i := range pred {
		c := bin(target[i], g.xmin, g.xmax, g.nx)
		r := bin(pred[i], g.ymin, g.ymax, g.ny)
		g.counts[r*g.nx+c]++
	}

	p := plot.New()
	p.Title.Text = "prediction density"
	p.X.Label.Text = "true Jsc"
	p.Y.Label.Text = "predicted Jsc"

	hm := plotter.NewHeatMap(g, palette.Heat(16, 1))
	p.Add(hm)

	return save(p, path)
}

func bounds(xs []float64) (float64, float64) {
	min, max := xs[0], xs[0]
	for _, v := range xs {
		min = math.Min(min, v)
		max = math.Max(max, v)
	}
	if min == max {
		// widen a degenerate range so binning stays defined
		min -= 0.5
		max += 0.5
	}
	return min, max
}

func bin(v, min, max float64, n int) int {
	b := int((v - min) / (max - min) * float64(n))
	if b < 0 {
		b = 0
	}
	if b >= n {
		b = n - 1
	}
	return b
}

func save(p *plot.Plot, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create plot dir")
	}
	if err := p.Save(plotWidth, plotHeight, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
