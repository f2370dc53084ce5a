package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"github.com/KaramelBytes/airfit-cli/internal/pipeline"
	"github.com/KaramelBytes/airfit-cli/internal/utils"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var (
	lineColor = color.RGBA{R: 20, G: 80, B: 200, A: 255}
	bestColor = color.RGBA{R: 200, G: 30, B: 30, A: 255}
	bandColor = color.RGBA{R: 120, G: 120, B: 120, A: 200}
)

// Plots writes fit-quality curves into dir and returns the file paths.
// Subset plots need res.Subsets; the CV plot needs res.CV.
func Plots(res *pipeline.Result, dir string) ([]string, error) {
	if err := utils.EnsureDir(dir); err != nil {
		return nil, err
	}
	var paths []string
	if s := res.Subsets; s != nil {
		curves := []struct {
			file, label, stat string
			best              int
		}{
			{"rss.png", "RSS", "rss", len(s.Sizes)},
			{"adjr2.png", "Adjusted R²", "adjr2", s.BestAdjR2},
			{"cp.png", "Cp", "cp", s.BestCp},
			{"bic.png", "BIC", "bic", s.BestBIC},
		}
		for _, c := range curves {
			path := filepath.Join(dir, c.file)
			if err := sizeCurve(path, c.label, s.Sequence(c.stat), c.best); err != nil {
				return paths, fmt.Errorf("plot %s: %w", c.file, err)
			}
			paths = append(paths, path)
		}
	}
	if res.CV != nil {
		path := filepath.Join(dir, "cv_error.png")
		if err := cvCurve(path, res.CV.Mean, res.CV.StdErr, res.CV.MinSize); err != nil {
			return paths, fmt.Errorf("plot cv_error.png: %w", err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func sizeXYs(vals []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(vals))
	for i, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i + 1), Y: v})
	}
	return xys
}

func newSizePlot(title, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Number of predictors"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	return p
}

func sizeCurve(path, label string, vals []float64, best int) error {
	xys := sizeXYs(vals)
	if len(xys) == 0 {
		return fmt.Errorf("no finite %s values", label)
	}
	p := newSizePlot(label+" by subset size", label)
	line, points, err := plotter.NewLinePoints(xys)
	if err != nil {
		return err
	}
	line.Color = lineColor
	line.Width = vg.Points(1.2)
	points.GlyphStyle.Color = lineColor
	p.Add(line, points)
	if best >= 1 && best <= len(vals) && !math.IsNaN(vals[best-1]) && !math.IsInf(vals[best-1], 0) {
		hl, err := plotter.NewScatter(plotter.XYs{{X: float64(best), Y: vals[best-1]}})
		if err != nil {
			return err
		}
		hl.GlyphStyle.Color = bestColor
		hl.GlyphStyle.Radius = vg.Points(4)
		p.Add(hl)
		p.Legend.Add(fmt.Sprintf("best (size %d)", best), hl)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}

func cvCurve(path string, mean, se []float64, best int) error {
	p := newSizePlot("Cross-validated error by subset size", "Mean squared error")
	mxy := sizeXYs(mean)
	if len(mxy) == 0 {
		return fmt.Errorf("no finite cross-validation errors")
	}
	upper := make([]float64, len(mean))
	lower := make([]float64, len(mean))
	for i := range mean {
		upper[i] = mean[i] + se[i]
		lower[i] = mean[i] - se[i]
	}
	line, points, err := plotter.NewLinePoints(mxy)
	if err != nil {
		return err
	}
	line.Color = lineColor
	points.GlyphStyle.Color = lineColor
	p.Add(line, points)
	p.Legend.Add("mean", line)
	for i, band := range [][]float64{upper, lower} {
		l, err := plotter.NewLine(sizeXYs(band))
		if err != nil {
			return err
		}
		l.Color = bandColor
		l.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(l)
		if i == 0 {
			p.Legend.Add("±1 SE", l)
		}
	}
	if best >= 1 && best <= len(mean) {
		hl, err := plotter.NewScatter(plotter.XYs{{X: float64(best), Y: mean[best-1]}})
		if err != nil {
			return err
		}
		hl.GlyphStyle.Color = bestColor
		hl.GlyphStyle.Radius = vg.Points(4)
		p.Add(hl)
		p.Legend.Add(fmt.Sprintf("minimum (size %d)", best), hl)
	}
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
