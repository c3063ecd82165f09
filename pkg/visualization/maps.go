package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/tiff"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// ToGray16 maps m linearly onto the full 16-bit range, its minimum to black
// and its maximum to white. A constant map becomes black.
func ToGray16(m mat.Matrix) *image.Gray16 {
	rows, cols := m.Dims()
	lo, hi := mat.Min(m), mat.Max(m)
	span := hi - lo

	img := image.NewGray16(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			var value uint16
			if span > 0 {
				value = uint16(math.Max(0, math.Min(65535, (m.At(y, x)-lo)/span*65535)))
			}
			img.SetGray16(x, y, color.Gray16{Y: value})
		}
	}
	return img
}

// SaveGray writes m as a grayscale image. The format follows the file
// extension: .png and .tif/.tiff keep 16 bits, .jpg/.jpeg is 8-bit.
func SaveGray(m mat.Matrix, filename string) error {
	return SaveImage(ToGray16(m), filename)
}

// SaveImage encodes img by the extension of filename.
func SaveImage(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".png":
		err = png.Encode(file, img)
	case ".tif", ".tiff":
		err = tiff.Encode(file, img, &tiff.Options{Compression: tiff.Deflate})
	case ".jpg", ".jpeg":
		err = jpeg.Encode(file, img, &jpeg.Options{Quality: 90})
	default:
		return fmt.Errorf("unsupported image format: %q (must be .png, .tif or .jpg)", ext)
	}
	if err != nil {
		return fmt.Errorf("encode %s: %w", filename, err)
	}
	return file.Close()
}

// grid adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type grid struct {
	m mat.Matrix
}

func (g grid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g grid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g grid) X(c int) float64 { return float64(c) }
func (g grid) Y(r int) float64 { return float64(r) }

// SaveHeatmap renders m with a diverging blue-red colour map and writes it
// to filename. The format follows the extension (png, svg, pdf, ...).
func SaveHeatmap(m mat.Matrix, title, filename string) error {
	if mat.Min(m) == mat.Max(m) {
		return fmt.Errorf("heatmap %s: map is constant", title)
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	cmap := moreland.SmoothBlueRed()
	cmap.SetMin(0)
	cmap.SetMax(1)

	h := plotter.NewHeatMap(grid{m: m}, cmap.Palette(255))

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "scan column"
	p.Y.Label.Text = "scan row"
	p.Add(h)

	if err := p.Save(6*vg.Inch, 6*vg.Inch, filename); err != nil {
		return fmt.Errorf("save heatmap %s: %w", filename, err)
	}
	return nil
}
