package gtree

import (
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// TestSampleMatchesLearnedDensityChiSquared checks that repeatedly calling
// Sample on a trained tree produces draws whose spatial histogram matches
// the tree's own PDF, via a chi-squared goodness-of-fit test (spec.md §8,
// "samples drawn from Sample are distributed according to PDF").
func TestSampleMatchesLearnedDensityChiSquared(t *testing.T) {
	tr := newScalarTree(2)
	tr.SetSettings(Settings{
		SplitThreshold:  0.002,
		LeafReweighting: true,
		DoFiltering:     false,
		SecondMoment:    false,
	})

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20000; i++ {
		x := rng.Float64()*0.4 + 0.1
		y := rng.Float64()*0.4 + 0.1
		tr.Splat(Vector{x, y}, Float64(1), 1)
	}
	tr.Build()
	tr.Refine()
	tr.Build()

	const bins = 8
	observed := make([]float64, bins*bins)
	expected := make([]float64, bins*bins)

	const draws = 20000
	for i := 0; i < draws; i++ {
		x, _, _ := tr.Sample(Vector{rng.Float64(), rng.Float64()})
		bx := int(x[0] * bins)
		by := int(x[1] * bins)
		if bx >= bins {
			bx = bins - 1
		}
		if by >= bins {
			by = bins - 1
		}
		observed[by*bins+bx]++
	}

	cellArea := 1.0 / float64(bins*bins)
	for by := 0; by < bins; by++ {
		for bx := 0; bx < bins; bx++ {
			cx := (float64(bx) + 0.5) / bins
			cy := (float64(by) + 0.5) / bins
			expected[by*bins+bx] = tr.PDF(Vector{cx, cy}) * cellArea * draws
		}
	}

	statistic := stat.ChiSquare(observed, expected)
	dist := distuv.ChiSquared{K: float64(bins*bins - 1)}
	critical := dist.Quantile(0.999)

	if statistic > critical {
		t.Fatalf("chi-squared statistic %v exceeds critical value %v at p=0.999 (df=%d)", statistic, critical, bins*bins-1)
	}
}
