package models

import (
	"errors"
	"testing"
)

func TestParseInputKind(t *testing.T) {
	tests := []struct {
		in      string
		want    InputKind
		wantErr bool
	}{
		{"pattern", KindPattern, false},
		{"2d", KindPattern, false},
		{"volume", KindScanVolume, false},
		{"4d", KindScanVolume, false},
		{"", KindScanVolume, false},
		{"cube", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseInputKind(tc.in)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseInputKind(%q) error = %v, wantErr %v", tc.in, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseInputKind(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		ok   bool
	}{
		{"Pattern", Input{Kind: KindPattern, Shape: []int{2, 3}, Data: make([]float64, 6)}, true},
		{"Volume", Input{Kind: KindScanVolume, Shape: []int{2, 2, 3, 3}, Data: make([]float64, 36)}, true},
		{"VolumeAsPattern", Input{Kind: KindPattern, Shape: []int{2, 2, 3, 3}, Data: make([]float64, 36)}, false},
		{"PatternAsVolume", Input{Kind: KindScanVolume, Shape: []int{2, 3}, Data: make([]float64, 6)}, false},
		{"ShortData", Input{Kind: KindPattern, Shape: []int{2, 3}, Data: make([]float64, 5)}, false},
		{"EmptyAxis", Input{Kind: KindPattern, Shape: []int{0, 3}, Data: nil}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.ok && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if !tc.ok {
				var shapeErr *ShapeError
				if !errors.As(err, &shapeErr) {
					t.Errorf("Expected ShapeError, got %v", err)
				}
			}
		})
	}
}

func TestVolumeAccess(t *testing.T) {
	vol, err := NewVolume(2, 3, 2, 2, nil)
	if err != nil {
		t.Fatalf("NewVolume failed: %v", err)
	}
	if r, c := vol.ScanDims(); r != 2 || c != 3 {
		t.Errorf("Expected 2x3 scan, got %dx%d", r, c)
	}
	if r, c := vol.DetectorDims(); r != 2 || c != 2 {
		t.Errorf("Expected 2x2 detector, got %dx%d", r, c)
	}

	vol.Set(1, 2, 0, 1, 5)
	if got := vol.PatternData(1, 2)[1]; got != 5 {
		t.Errorf("Expected 5 at (1,2,0,1), got %v", got)
	}

	p := vol.Pattern(1, 2)
	p.Set(0, 1, 9)
	if vol.PatternData(1, 2)[1] != 5 {
		t.Errorf("Pattern returned an alias instead of a copy")
	}

	// six positions, one of which holds 5
	mean := vol.Mean()
	if got := mean.At(0, 1); got != 5.0/6 {
		t.Errorf("Expected mean 5/6, got %v", got)
	}
	if got := mean.At(1, 1); got != 0 {
		t.Errorf("Expected mean 0, got %v", got)
	}

	if _, err := NewVolume(2, 2, 2, 2, make([]float64, 3)); err == nil {
		t.Errorf("Expected error for short data")
	}
}
