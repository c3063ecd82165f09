package dpc

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"stemdpc/pkg/spectral"
)

const (
	// DefaultRotationRounds is the number of refinement rounds FindRotation
	// runs when the caller passes zero.
	DefaultRotationRounds = 16

	// RotationCandidates is the number of angles sampled per round.
	RotationCandidates = 100
)

// RotationRound records one sweep of the rotation search.
type RotationRound struct {
	Low, High  float64   // sampled interval [Low, High)
	Angles     []float64 // candidate angles in sweep order
	Curl       []float64 // curl proxy per candidate, lower is better
	Divergence []float64 // divergence proxy per candidate, higher is better
	Cost       []float64 // combined score per candidate, higher is better
	Best       float64   // selected angle
}

// FindRotation returns the in-plane rotation, in radians, that brings the
// field closest to curl-free with maximal divergence. rounds <= 0 selects
// DefaultRotationRounds.
func FindRotation(f *Field, rounds int) (float64, error) {
	history, err := SearchRotation(f, rounds)
	if err != nil {
		return 0, err
	}
	return history[len(history)-1].Best, nil
}

// SearchRotation runs the rotation grid search and returns every round.
//
// Round 0 samples [0, pi). Round i samples the window of half-width
// pi/10^i around the previous best angle. Each candidate is scored by
//
//	cost = -log(C/max(C)) + log(D/max(D))
//
// where C is the curl proxy std(dY/dcol) + std(dX/drow) and D is the
// divergence proxy std(dX/dcol) + std(dY/drow) of the rotated field. The
// highest cost wins, the earliest candidate on ties.
func SearchRotation(f *Field, rounds int) ([]RotationRound, error) {
	if rounds <= 0 {
		rounds = DefaultRotationRounds
	}

	history := make([]RotationRound, 0, rounds)
	round, err := rotationSweep(f, 0, math.Pi)
	if err != nil {
		return nil, err
	}
	history = append(history, round)

	for i := 1; i < rounds; i++ {
		half := math.Pi / math.Pow(10, float64(i))
		best := history[i-1].Best
		round, err := rotationSweep(f, best-half, best+half)
		if err != nil {
			return nil, err
		}
		history = append(history, round)
	}
	return history, nil
}

// rotationSweep scores RotationCandidates angles on [low, high).
func rotationSweep(f *Field, low, high float64) (RotationRound, error) {
	round := RotationRound{
		Low:        low,
		High:       high,
		Angles:     spectral.Linspace(low, high, RotationCandidates, false),
		Curl:       make([]float64, RotationCandidates),
		Divergence: make([]float64, RotationCandidates),
		Cost:       make([]float64, RotationCandidates),
	}

	for k, t := range round.Angles {
		round.Curl[k], round.Divergence[k] = RotationProxies(f, t)
	}

	maxC := floats.Max(round.Curl)
	maxD := floats.Max(round.Divergence)
	if maxC == 0 || maxD == 0 {
		return round, degenerate("find rotation", "field has no spatial variation")
	}

	for k := range round.Angles {
		round.Cost[k] = -math.Log(round.Curl[k]/maxC) + math.Log(round.Divergence[k]/maxD)
	}

	// floats.MaxIdx returns the first maximum, which is the tie-break we want
	round.Best = round.Angles[floats.MaxIdx(round.Cost)]
	return round, nil
}

// RotationProxies rotates f by angle and returns the curl and divergence
// proxies used by the rotation search.
func RotationProxies(f *Field, angle float64) (curl, div float64) {
	r := f.Rotate(angle)
	gXY, gXX := Gradient2D(r.X)
	gYY, gYX := Gradient2D(r.Y)
	curl = popStdDev(gYX) + popStdDev(gXY)
	div = popStdDev(gXX) + popStdDev(gYY)
	return curl, div
}

func popStdDev(m *mat.Dense) float64 {
	raw := m.RawMatrix()
	return math.Sqrt(stat.PopVariance(raw.Data, nil))
}
