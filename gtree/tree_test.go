package gtree

import (
	"math"
	"testing"
)

func scalarTarget(v Float64) float64 {
	return math.Abs(float64(v))
}

func newScalarTree(dimension int) *Tree[Float64] {
	return NewTree[Float64](dimension, scalarTarget, DefaultSettings())
}

func TestNewTreeStartsUniform(t *testing.T) {
	tr := newScalarTree(2)

	if got := tr.NodeCount(); got != 1 {
		t.Fatalf("NodeCount() = %d, want 1", got)
	}
	if got := tr.Depth(); got != 1 {
		t.Fatalf("Depth() = %d, want 1", got)
	}
	if got := tr.PDF(Vector{0.3, 0.7}); got != 1 {
		t.Fatalf("PDF() = %v, want 1", got)
	}
}

func TestSplatThenBuildConcentratesDensity(t *testing.T) {
	tr := newScalarTree(2)
	// Leaf reweighting would turn every leaf into a per-leaf mean of the
	// (identical) splatted values, so it is off here: density then follows
	// the number of deposits per cell.
	tr.SetSettings(Settings{
		SplitThreshold:  0.002,
		LeafReweighting: false,
		DoFiltering:     false,
		SecondMoment:    false,
	})

	splat := func() {
		for i := 0; i < 2000; i++ {
			tr.Splat(Vector{0.1, 0.1}, Float64(1), 1)
		}
		for i := 0; i < 10; i++ {
			tr.Splat(Vector{0.9, 0.9}, Float64(1), 1)
		}
	}

	splat()
	tr.Build()
	tr.Refine()
	// Refine resets every leaf's accumulators, so deposit again before the
	// second Build.
	splat()
	tr.Build()

	hot := tr.PDF(Vector{0.1, 0.1})
	cold := tr.PDF(Vector{0.9, 0.9})
	if hot <= cold {
		t.Fatalf("expected density near repeated splats to dominate: hot=%v cold=%v", hot, cold)
	}
}

func TestBuildWithoutSamplesResetsToUniform(t *testing.T) {
	tr := newScalarTree(1)
	tr.Build()

	if got := tr.NodeCount(); got != 1 {
		t.Fatalf("NodeCount() = %d, want 1 after empty build", got)
	}
	if got := tr.PDF(Vector{0.5}); got != 1 {
		t.Fatalf("PDF() = %v, want 1 after empty build", got)
	}
}

func TestSampleIsConsistentWithPDF(t *testing.T) {
	tr := newScalarTree(2)
	tr.SetSettings(Settings{
		SplitThreshold:  0.002,
		LeafReweighting: true,
		DoFiltering:     false,
		SecondMoment:    false,
	})

	for i := 0; i < 5000; i++ {
		tr.Splat(Vector{0.2, 0.8}, Float64(1), 1)
	}
	tr.Build()
	tr.Refine()
	tr.Build()

	x, pdf, _ := tr.Sample(Vector{0.5, 0.5})
	for d, v := range x {
		if v < 0 || v >= 1 {
			t.Fatalf("sample component %d out of range: %v", d, v)
		}
	}
	if got := tr.PDF(x); math.Abs(got-pdf) > 1e-9 {
		t.Fatalf("PDF(sample) = %v, want %v (pdf returned by Sample)", got, pdf)
	}
}

func TestResetReturnsToUniform(t *testing.T) {
	tr := newScalarTree(2)
	for i := 0; i < 2000; i++ {
		tr.Splat(Vector{0.1, 0.1}, Float64(1), 1)
	}
	tr.Build()
	tr.Refine()

	tr.Reset()

	if got := tr.NodeCount(); got != 1 {
		t.Fatalf("NodeCount() = %d, want 1 after Reset", got)
	}
	if got := tr.PDF(Vector{0.1, 0.1}); got != 1 {
		t.Fatalf("PDF() = %v, want 1 after Reset", got)
	}
}

func TestNodeCountInvariant(t *testing.T) {
	tr := newScalarTree(2)
	for i := 0; i < 3000; i++ {
		tr.Splat(Vector{0.05, 0.05}, Float64(1), 1)
	}
	tr.Build()
	tr.Refine()

	internalCount := (tr.NodeCount() - 1) / tr.arity
	if want := 1 + internalCount*tr.arity; want != tr.NodeCount() {
		t.Fatalf("NodeCount() = %d, not of the form 1 + k*arity", tr.NodeCount())
	}
}
