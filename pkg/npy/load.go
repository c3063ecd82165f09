// Package npy loads detector data stored as NumPy .npy arrays.
package npy

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"

	"stemdpc/internal/models"
)

// Load reads an .npy file and tags it with the declared kind. The kind is
// checked against the stored shape.
func Load(path string, kind models.InputKind) (models.Input, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.Input{}, err
	}
	defer f.Close()

	in, err := Read(f, kind)
	if err != nil {
		return models.Input{}, fmt.Errorf("load %s: %w", path, err)
	}
	return in, nil
}

// Read decodes an .npy stream. Any integer or floating point dtype is
// converted to float64; Fortran-ordered arrays are rejected.
func Read(r io.Reader, kind models.InputKind) (models.Input, error) {
	rd, err := npyio.NewReader(r)
	if err != nil {
		return models.Input{}, fmt.Errorf("read npy header: %w", err)
	}
	descr := rd.Header.Descr
	if descr.Fortran {
		return models.Input{}, fmt.Errorf("fortran-ordered arrays are not supported")
	}

	data, err := readFloat64(rd, descr.Type)
	if err != nil {
		return models.Input{}, err
	}

	in := models.Input{Kind: kind, Shape: append([]int(nil), descr.Shape...), Data: data}
	if err := in.Validate(); err != nil {
		return models.Input{}, err
	}
	return in, nil
}

// readFloat64 reads the payload in its stored type and widens it.
func readFloat64(rd *npyio.Reader, dtype string) ([]float64, error) {
	switch strings.TrimLeft(dtype, "<>|=") {
	case "f8":
		var v []float64
		err := rd.Read(&v)
		return v, err
	case "f4":
		var v []float32
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "u1":
		var v []uint8
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "u2":
		var v []uint16
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "u4":
		var v []uint32
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "i2":
		var v []int16
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "i4":
		var v []int32
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	case "i8":
		var v []int64
		if err := rd.Read(&v); err != nil {
			return nil, err
		}
		return widen(v), nil
	}
	return nil, fmt.Errorf("unsupported npy dtype %q", dtype)
}

type number interface {
	~uint8 | ~uint16 | ~uint32 | ~int16 | ~int32 | ~int64 | ~float32
}

func widen[T number](v []T) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
