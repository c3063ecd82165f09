package npy

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stemdpc/internal/models"
)

// encodeNpy builds a version 1.0 .npy stream by hand
func encodeNpy(t *testing.T, dtype string, shape []int, payload any) []byte {
	t.Helper()

	dims := make([]string, len(shape))
	for i, s := range shape {
		dims[i] = fmt.Sprint(s)
	}
	shapeStr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeStr += ","
	}
	header := fmt.Sprintf("{'descr': '%s', 'fortran_order': False, 'shape': (%s), }", dtype, shapeStr)
	// magic(6) + version(2) + length(2) + header + newline must align to 64
	pad := 64 - (10+len(header)+1)%64
	if pad == 64 {
		pad = 0
	}
	header += strings.Repeat(" ", pad) + "\n"

	var buf bytes.Buffer
	buf.WriteString("\x93NUMPY")
	buf.Write([]byte{1, 0})
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(header))); err != nil {
		t.Fatalf("Failed to write header length: %v", err)
	}
	buf.WriteString(header)
	if err := binary.Write(&buf, binary.LittleEndian, payload); err != nil {
		t.Fatalf("Failed to write payload: %v", err)
	}
	return buf.Bytes()
}

func TestReadVolume(t *testing.T) {
	shape := []int{2, 3, 4, 5}
	data := make([]float64, 2*3*4*5)
	for i := range data {
		data[i] = float64(i) / 2
	}

	in, err := Read(bytes.NewReader(encodeNpy(t, "<f8", shape, data)), models.KindScanVolume)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(in.Shape) != 4 || in.Shape[3] != 5 {
		t.Errorf("Unexpected shape %v", in.Shape)
	}
	vol, err := in.Volume()
	if err != nil {
		t.Fatalf("Volume failed: %v", err)
	}
	if got := vol.PatternData(1, 2)[0]; got != data[(1*3+2)*20] {
		t.Errorf("Pattern (1,2) starts with %v, want %v", got, data[(1*3+2)*20])
	}
}

func TestReadWidensIntegers(t *testing.T) {
	data := []uint16{0, 1, 65535, 7}
	in, err := Read(bytes.NewReader(encodeNpy(t, "<u2", []int{2, 2}, data)), models.KindPattern)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if in.Data[2] != 65535 {
		t.Errorf("Expected 65535, got %v", in.Data[2])
	}

	f32 := []float32{0.5, -1.5, float32(math.Pi), 2}
	in, err = Read(bytes.NewReader(encodeNpy(t, "<f4", []int{2, 2}, f32)), models.KindPattern)
	if err != nil {
		t.Fatalf("Read float32 failed: %v", err)
	}
	if in.Data[1] != -1.5 {
		t.Errorf("Expected -1.5, got %v", in.Data[1])
	}
}

// TestReadKindMismatch verifies that a 2D array declared as a scan volume is rejected
func TestReadKindMismatch(t *testing.T) {
	data := make([]float64, 9)
	_, err := Read(bytes.NewReader(encodeNpy(t, "<f8", []int{3, 3}, data)), models.KindScanVolume)
	var shapeErr *models.ShapeError
	if !errors.As(err, &shapeErr) {
		t.Fatalf("Expected ShapeError, got %v", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pattern.npy")
	if err := os.WriteFile(path, encodeNpy(t, "<f8", []int{2, 3}, []float64{1, 2, 3, 4, 5, 6}), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	in, err := Load(path, models.KindPattern)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	p, err := in.Pattern()
	if err != nil {
		t.Fatalf("Pattern failed: %v", err)
	}
	if p.At(1, 2) != 6 {
		t.Errorf("Expected 6 at (1,2), got %v", p.At(1, 2))
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.npy"), models.KindPattern); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}
