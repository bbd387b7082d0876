// Package plot renders heatmaps and validation curves with gonum/plot.
package plot

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/decisionlab/pkg/errors"
	"github.com/YuminosukeSato/decisionlab/pkg/log"
)

// Centimeter is one centimetre as a vg.Length.
const Centimeter = vg.Centimeter

// Figure is a drawing of a fixed size that can be written in any format
// supported by gonum/plot (png, svg, pdf, eps, jpg, tif).
type Figure struct {
	Width  vg.Length
	Height vg.Length

	draw func(draw.Canvas)
}

// NewFigure returns a figure drawn by fn.
func NewFigure(width, height vg.Length, fn func(draw.Canvas)) *Figure {
	return &Figure{Width: width, Height: height, draw: fn}
}

// WriteTo renders the figure in format and writes it to w.
func (f *Figure) WriteTo(w io.Writer, format string) (int64, error) {
	c, err := draw.NewFormattedCanvas(f.Width, f.Height, format)
	if err != nil {
		return 0, errors.Wrapf(err, "render figure as %s", format)
	}
	f.draw(draw.New(c))
	return c.WriteTo(w)
}

// Save writes the figure to path, creating missing directories. The format
// is taken from the file extension.
func (f *Figure) Save(path string) error {
	format := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	if format == "" {
		return errors.NewValueError("Figure.Save", "file name has no extension: "+path)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	if _, err := f.WriteTo(file, format); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	log.GetLoggerWithName("plot").Debug("Figure saved",
		log.OperationKey, log.OperationPlot,
		log.PathKey, path,
	)
	return nil
}
