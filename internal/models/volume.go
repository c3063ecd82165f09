package models

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// InputKind declares what an Input holds. It is stated by the caller and
// checked against the data shape, never inferred from it.
type InputKind int

const (
	// KindPattern is a single 2D detector image (detRows x detCols).
	KindPattern InputKind = iota

	// KindScanVolume is a 4D diffraction volume
	// (scanRows x scanCols x detRows x detCols).
	KindScanVolume
)

// String returns the name used in config files and on the command line.
func (k InputKind) String() string {
	switch k {
	case KindPattern:
		return "pattern"
	case KindScanVolume:
		return "volume"
	default:
		return fmt.Sprintf("InputKind(%d)", int(k))
	}
}

// ParseInputKind converts a name back into an InputKind.
func ParseInputKind(s string) (InputKind, error) {
	switch s {
	case "pattern", "2d":
		return KindPattern, nil
	case "volume", "4d", "":
		return KindScanVolume, nil
	}
	return 0, fmt.Errorf("unknown input kind %q (must be pattern or volume)", s)
}

// Dims returns the number of axes an input of this kind must have.
func (k InputKind) Dims() int {
	if k == KindPattern {
		return 2
	}
	return 4
}

// ShapeError reports an input whose dimensionality or size does not match
// its declared kind.
type ShapeError struct {
	Kind  InputKind
	Shape []int
	Msg   string
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("invalid %s shape %v: %s", e.Kind, e.Shape, e.Msg)
}

// Input is raw array data tagged with the caller's declared kind.
type Input struct {
	Kind  InputKind
	Shape []int
	Data  []float64
}

// Validate checks that the shape agrees with the declared kind and with the
// amount of data.
func (in Input) Validate() error {
	if len(in.Shape) != in.Kind.Dims() {
		return &ShapeError{Kind: in.Kind, Shape: in.Shape,
			Msg: fmt.Sprintf("expected %d dimensions, got %d", in.Kind.Dims(), len(in.Shape))}
	}
	n := 1
	for _, s := range in.Shape {
		if s <= 0 {
			return &ShapeError{Kind: in.Kind, Shape: in.Shape, Msg: "every axis must be non-empty"}
		}
		n *= s
	}
	if n != len(in.Data) {
		return &ShapeError{Kind: in.Kind, Shape: in.Shape,
			Msg: fmt.Sprintf("shape holds %d values but data has %d", n, len(in.Data))}
	}
	return nil
}

// Pattern returns the input as a single detector image.
func (in Input) Pattern() (*mat.Dense, error) {
	if in.Kind != KindPattern {
		return nil, &ShapeError{Kind: in.Kind, Shape: in.Shape, Msg: "not a single pattern"}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return mat.NewDense(in.Shape[0], in.Shape[1], in.Data), nil
}

// Volume returns the input as a 4D diffraction volume.
func (in Input) Volume() (*Volume, error) {
	if in.Kind != KindScanVolume {
		return nil, &ShapeError{Kind: in.Kind, Shape: in.Shape, Msg: "not a scan volume"}
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &Volume{
		Shape: [4]int{in.Shape[0], in.Shape[1], in.Shape[2], in.Shape[3]},
		Data:  in.Data,
	}, nil
}

// Point is a sub-pixel position in detector space. X runs along detector
// columns, Y along detector rows.
type Point struct {
	X, Y float64
}

// Volume is a 4D diffraction volume stored in row-major order. It is owned
// by the caller and never modified by the analysis code.
type Volume struct {
	// Shape is (scanRows, scanCols, detRows, detCols)
	Shape [4]int

	// Data holds Shape[0]*Shape[1]*Shape[2]*Shape[3] values
	Data []float64
}

// NewVolume wraps data in a Volume after checking its size.
func NewVolume(scanRows, scanCols, detRows, detCols int, data []float64) (*Volume, error) {
	in := Input{Kind: KindScanVolume, Shape: []int{scanRows, scanCols, detRows, detCols}, Data: data}
	if data == nil {
		in.Data = make([]float64, scanRows*scanCols*detRows*detCols)
	}
	return in.Volume()
}

// ScanDims returns the scan grid size.
func (v *Volume) ScanDims() (rows, cols int) { return v.Shape[0], v.Shape[1] }

// DetectorDims returns the detector image size.
func (v *Volume) DetectorDims() (rows, cols int) { return v.Shape[2], v.Shape[3] }

// PatternData returns the detector image recorded at scan position (i, j).
// The returned slice aliases the volume and must not be modified.
func (v *Volume) PatternData(i, j int) []float64 {
	size := v.Shape[2] * v.Shape[3]
	off := (i*v.Shape[1] + j) * size
	return v.Data[off : off+size : off+size]
}

// Pattern returns a copy of the detector image recorded at scan position (i, j).
func (v *Volume) Pattern(i, j int) *mat.Dense {
	src := v.PatternData(i, j)
	data := make([]float64, len(src))
	copy(data, src)
	return mat.NewDense(v.Shape[2], v.Shape[3], data)
}

// Set stores a value; it exists for building synthetic volumes.
func (v *Volume) Set(i, j, r, c int, val float64) {
	v.Data[((i*v.Shape[1]+j)*v.Shape[2]+r)*v.Shape[3]+c] = val
}

// Mean averages the volume over both scan axes, giving the mean
// diffraction pattern.
func (v *Volume) Mean() *mat.Dense {
	rows, cols := v.DetectorDims()
	size := rows * cols
	sum := make([]float64, size)
	positions := v.Shape[0] * v.Shape[1]
	for p := 0; p < positions; p++ {
		src := v.Data[p*size : (p+1)*size]
		for k, val := range src {
			sum[k] += val
		}
	}
	for k := range sum {
		sum[k] /= float64(positions)
	}
	return mat.NewDense(rows, cols, sum)
}
