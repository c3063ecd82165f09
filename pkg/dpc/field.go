package dpc

import (
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Field is a 2D vector field over the scan grid, stored as one matrix per
// component. X follows detector columns and Y detector rows.
type Field struct {
	X *mat.Dense
	Y *mat.Dense
}

// NewField pairs two components after checking they share a shape.
func NewField(x, y *mat.Dense) (*Field, error) {
	xr, xc := x.Dims()
	yr, yc := y.Dims()
	if xr != yr || xc != yc {
		return nil, invalidParam("field components differ in shape: %dx%d vs %dx%d", xr, xc, yr, yc)
	}
	return &Field{X: x, Y: y}, nil
}

// Dims returns the scan grid size.
func (f *Field) Dims() (rows, cols int) { return f.X.Dims() }

// Rotate returns the field with every vector rotated in-plane by angle
// radians:
//
//	rX = X cos(angle) - Y sin(angle)
//	rY = X sin(angle) + Y cos(angle)
func (f *Field) Rotate(angle float64) *Field {
	sin, cos := math.Sincos(angle)
	rows, cols := f.Dims()

	var xc, ys, xs, yc mat.Dense
	xc.Scale(cos, f.X)
	ys.Scale(sin, f.Y)
	xs.Scale(sin, f.X)
	yc.Scale(cos, f.Y)

	rx := mat.NewDense(rows, cols, nil)
	ry := mat.NewDense(rows, cols, nil)
	rx.Sub(&xc, &ys)
	ry.Add(&xs, &yc)
	return &Field{X: rx, Y: ry}
}

// Complex packs the field into one complex matrix, X as the real part and
// Y as the imaginary part.
func (f *Field) Complex() *mat.CDense {
	rows, cols := f.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, complex(f.X.At(i, j), f.Y.At(i, j)))
		}
	}
	return out
}

// FieldFromComplex splits a complex matrix back into components.
func FieldFromComplex(c *mat.CDense) *Field {
	rows, cols := c.Dims()
	x := mat.NewDense(rows, cols, nil)
	y := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			v := c.At(i, j)
			x.Set(i, j, real(v))
			y.Set(i, j, imag(v))
		}
	}
	return &Field{X: x, Y: y}
}

// Gradient2D differentiates g along rows and along columns, using central
// differences inside the grid and one-sided differences on its border. An
// axis of length one has zero derivative.
func Gradient2D(g mat.Matrix) (dRow, dCol *mat.Dense) {
	rows, cols := g.Dims()
	dRow = mat.NewDense(rows, cols, nil)
	dCol = mat.NewDense(rows, cols, nil)

	col := make([]float64, rows)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = g.At(r, c)
		}
		for r, v := range Gradient1D(col) {
			dRow.Set(r, c, v)
		}
	}

	row := make([]float64, cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			row[c] = g.At(r, c)
		}
		dCol.SetRow(r, Gradient1D(row))
	}
	return dRow, dCol
}

// Divergence returns dX/dcol + dY/drow.
func (f *Field) Divergence() *mat.Dense {
	_, dxdc := Gradient2D(f.X)
	dydr, _ := Gradient2D(f.Y)
	var div mat.Dense
	div.Add(dxdc, dydr)
	return &div
}

// Magnitude returns |F| at every scan position.
func (f *Field) Magnitude() *mat.Dense {
	var mag mat.Dense
	mag.Apply(func(i, j int, x float64) float64 {
		return math.Hypot(x, f.Y.At(i, j))
	}, f.X)
	return &mag
}

// ToRGB colours the field by direction and strength: hue is the vector
// angle, saturation is full and value is the magnitude relative to the
// strongest vector.
func (f *Field) ToRGB() *image.RGBA {
	rows, cols := f.Dims()
	mag := f.Magnitude()
	maxMag := mat.Max(mag)

	img := image.NewRGBA(image.Rect(0, 0, cols, rows))
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			h := math.Atan2(f.Y.At(i, j), f.X.At(i, j)) / (2 * math.Pi)
			h -= math.Floor(h)
			v := 0.0
			if maxMag > 0 {
				v = mag.At(i, j) / maxMag
			}
			r, g, b := hsvToRGB(h, 1, v)
			img.SetRGBA(j, i, color.RGBA{R: to8(r), G: to8(g), B: to8(b), A: 255})
		}
	}
	return img
}

func to8(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}

// hsvToRGB converts h, s, v in [0, 1] to r, g, b in [0, 1].
func hsvToRGB(h, s, v float64) (r, g, b float64) {
	i := math.Floor(h * 6)
	f := h*6 - i
	p := v * (1 - s)
	q := v * (1 - s*f)
	t := v * (1 - s*(1-f))
	switch int(i) % 6 {
	case 0:
		return v, t, p
	case 1:
		return q, v, p
	case 2:
		return p, v, t
	case 3:
		return p, q, v
	case 4:
		return t, p, v
	default:
		return v, p, q
	}
}
