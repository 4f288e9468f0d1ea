package exporter

import (
	"bytes"
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"drtbatch/pkg/contracts/domain"
)

// EncodeMatrixPlot renders every gamma column against tau on a log axis as PNG.
// Samples with non-positive tau are left out.
func EncodeMatrixPlot(matrix *domain.MasterMatrix) ([]byte, error) {
	p := plot.New()
	p.Title.Text = "Distribution of relaxation times"
	p.X.Label.Text = "tau (s)"
	p.Y.Label.Text = "gamma (ohm)"
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	p.Add(plotter.NewGrid())

	colors := generateColors(len(matrix.Columns))
	lines := 0
	for i, col := range matrix.Columns {
		pts := make(plotter.XYs, 0, len(col))
		for k, g := range col {
			if matrix.Tau[k] > 0 {
				pts = append(pts, plotter.XY{X: matrix.Tau[k], Y: g})
			}
		}
		if len(pts) == 0 {
			continue
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, fmt.Errorf("failed to build line for %s: %w", matrix.Labels[i], err)
		}
		line.Color = colors[i]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(matrix.Labels[i], line)
		lines++
	}
	if lines == 0 {
		return nil, fmt.Errorf("no samples with positive tau to plot")
	}
	p.Legend.Top = true

	writer, err := p.WriterTo(10*vg.Inch, 6*vg.Inch, "png")
	if err != nil {
		return nil, fmt.Errorf("failed to render plot: %w", err)
	}
	var buf bytes.Buffer
	if _, err := writer.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to encode plot: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMatrixPlot writes the matrix plot to path atomically
func (w *CSVWriter) WriteMatrixPlot(path string, matrix *domain.MasterMatrix) error {
	data, err := EncodeMatrixPlot(matrix)
	if err != nil {
		return err
	}
	return w.files.WriteFileAtomic(path, data)
}

// generateColors spreads n colors around the hue circle
func generateColors(n int) []color.Color {
	colors := make([]color.Color, n)
	for i := range colors {
		h := float64(i) / float64(max(n, 1))
		r, g, b := hueToRGB(h)
		colors[i] = color.RGBA{R: r, G: g, B: b, A: 255}
	}
	return colors
}

// hueToRGB converts a hue in [0,1) at full saturation and 80% value
func hueToRGB(h float64) (uint8, uint8, uint8) {
	const v = 0.8
	h6 := h * 6
	sector := int(h6) % 6
	f := h6 - float64(int(h6))
	q := v * (1 - f)
	t := v * f

	var r, g, b float64
	switch sector {
	case 0:
		r, g, b = v, t, 0
	case 1:
		r, g, b = q, v, 0
	case 2:
		r, g, b = 0, v, t
	case 3:
		r, g, b = 0, q, v
	case 4:
		r, g, b = t, 0, v
	default:
		r, g, b = v, 0, q
	}
	return uint8(r * 255), uint8(g * 255), uint8(b * 255)
}
