package gtree

import (
	"sync"
	"testing"
)

type radianceSample struct {
	position Vector
	radiance float64
}

func extractRadiance(s radianceSample) (Vector, Float64) {
	return s.position, Float64(s.radiance)
}

func newScalarWrapper(dimension int) *Wrapper[radianceSample, Float64] {
	settings := DefaultWrapperSettings()
	settings.UniformProb = 0.5
	return NewWrapper[radianceSample, Float64](dimension, extractRadiance, scalarTarget, settings)
}

func TestWrapperResetStartsUniform(t *testing.T) {
	w := newScalarWrapper(2)

	if got := w.SamplesSoFar(); got != 0 {
		t.Fatalf("SamplesSoFar() = %d, want 0", got)
	}
	if got := w.PDF(Vector{0.3, 0.3}); got != 1 {
		t.Fatalf("PDF() = %v, want 1 for a fresh wrapper", got)
	}
}

func TestWrapperSplatTriggersRebuildAtMilestone(t *testing.T) {
	w := newScalarWrapper(2)

	for i := 0; i < 1100; i++ {
		w.Splat(radianceSample{position: Vector{0.1, 0.1}, radiance: 1}, 1)
	}

	if got := w.SamplesSoFar(); got != 1100 {
		t.Fatalf("SamplesSoFar() = %d, want 1100", got)
	}
	if got := w.Training().NodeCount(); got <= 1 {
		t.Fatalf("Training().NodeCount() = %d, want > 1 after crossing the first milestone", got)
	}
}

func TestWrapperConcurrentSplatAndPDF(t *testing.T) {
	w := newScalarWrapper(2)

	var wg sync.WaitGroup
	for worker := 0; worker < 8; worker++ {
		wg.Add(1)
		go func(seed int) {
			defer wg.Done()
			x, y := 0.05+0.01*float64(seed%5), 0.05+0.01*float64(seed%7)
			for i := 0; i < 500; i++ {
				w.Splat(radianceSample{position: Vector{x, y}, radiance: 1}, 1)
			}
		}(worker)
	}

	for reader := 0; reader < 4; reader++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				w.PDF(Vector{0.5, 0.5})
			}
		}()
	}

	wg.Wait()

	if got := w.SamplesSoFar(); got != 4000 {
		t.Fatalf("SamplesSoFar() = %d, want 4000", got)
	}
}

func TestWrapperUniformProbOneIsPassthrough(t *testing.T) {
	settings := DefaultWrapperSettings()
	settings.UniformProb = 1
	w := NewWrapper[radianceSample, Float64](2, extractRadiance, scalarTarget, settings)

	x, pdf, _ := w.Sample(Vector{0.3, 0.6})
	if pdf != 1 {
		t.Fatalf("Sample() pdf = %v, want 1 when UniformProb == 1", pdf)
	}
	if x[0] != 0.3 || x[1] != 0.6 {
		t.Fatalf("Sample() x = %v, want passthrough of input", x)
	}
}
