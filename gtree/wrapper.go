package gtree

import (
	"sync"
	"sync/atomic"
)

// WrapperSettings configures a Wrapper (spec.md §4.2.1, modeled on
// original_source/include/guiding/wrapper.h's Settings).
type WrapperSettings struct {
	// UniformProb is the mixture weight given to plain uniform sampling,
	// guaranteeing every point in the domain keeps nonzero sampling
	// probability even while the adaptive tree is still cold.
	UniformProb float64  `json:"uniformProb"`
	Child       Settings `json:"child"`
}

// DefaultWrapperSettings returns the defaults spec.md §6 documents:
// uniform_prob = 0.5, child = DefaultSettings().
func DefaultWrapperSettings() WrapperSettings {
	return WrapperSettings{
		UniformProb: 0.5,
		Child:       DefaultSettings(),
	}
}

// Wrapper mediates between concurrent sample generation and periodic
// retraining (spec.md §4.2, "LearningWrapper"), holding two trees: sampling
// (read-mostly, used by Sample/PDF) and training (write-heavy, accumulated
// into by Splat). It is the direct counterpart of
// original_source/include/guiding/wrapper.h's Wrapper<S,C>.
type Wrapper[S any, V Accumulator[V]] struct {
	dimension int
	target    Target[V]
	extract   WrapperTarget[S, V]
	settings  WrapperSettings

	mu       sync.RWMutex
	sampling *Tree[V]
	training *Tree[V]

	samplesSoFar  atomic.Uint64
	nextMilestone atomic.Uint64
}

// NewWrapper constructs a Wrapper over a dimension-dimensional domain.
// extract pulls a deposit position and value out of a caller's Sample type;
// target scores an accumulated Value for the trees' own splat bookkeeping
// (spec.md §4.1.2).
func NewWrapper[S any, V Accumulator[V]](dimension int, extract WrapperTarget[S, V], target Target[V], settings WrapperSettings) *Wrapper[S, V] {
	w := &Wrapper[S, V]{
		dimension: dimension,
		target:    target,
		extract:   extract,
		settings:  settings,
	}
	w.Reset()
	return w
}

// Reset reinitializes both trees to uniform and restarts the milestone
// schedule at 1024 (spec.md §4.2.1, wrapper.h's reset()).
func (w *Wrapper[S, V]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.training = NewTree[V](w.dimension, w.target, w.settings.Child)
	w.sampling = NewTree[V](w.dimension, w.target, w.settings.Child)

	w.samplesSoFar.Store(0)
	w.nextMilestone.Store(1024)
}

// Sample draws a point from the uniform/adaptive mixture (spec.md §4.2.1).
// x must hold dimension uniform numbers in [0,1); x[0] is consumed to
// choose which mixture component generated the point, exactly as
// wrapper.h's sample(). The returned pdf is the mixture density at the
// resulting point regardless of which branch produced it.
func (w *Wrapper[S, V]) Sample(x Vector) (Vector, float64, V) {
	if w.settings.UniformProb == 1 {
		var zero V
		return x, 1, zero
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	pdf := 1 - w.settings.UniformProb
	var value V

	if x[0] < w.settings.UniformProb {
		x[0] /= w.settings.UniformProb
		pdf *= w.sampling.PDF(x)
		value = w.sampling.At(x)
	} else {
		x[0] = (x[0] - w.settings.UniformProb) / (1 - w.settings.UniformProb)
		var treePDF float64
		x, treePDF, value = w.sampling.Sample(x)
		pdf *= treePDF
	}

	pdf += w.settings.UniformProb
	return x, pdf, value
}

// PDF evaluates the mixture density at x without drawing a sample (spec.md
// §4.2.1, wrapper.h's pdf()).
func (w *Wrapper[S, V]) PDF(x Vector) float64 {
	if w.settings.UniformProb == 1 {
		return 1
	}

	w.mu.RLock()
	defer w.mu.RUnlock()

	return w.settings.UniformProb + (1-w.settings.UniformProb)*w.sampling.PDF(x)
}

// Splat deposits one weighted observation into the training tree and, once
// enough deposits have accumulated, triggers a rebuild (spec.md §4.2.1,
// wrapper.h's splat()). The shared lock held around the deposit lets many
// Splat calls run concurrently with each other and with Sample/PDF; only
// the rebuild triggered by crossing a milestone takes the exclusive lock.
func (w *Wrapper[S, V]) Splat(sample S, weight float64) {
	x, value := w.extract(sample)

	w.mu.RLock()
	w.training.Splat(x, value, weight)
	w.mu.RUnlock()

	if w.samplesSoFar.Add(1) > w.nextMilestone.Load() {
		w.step()
	}
}

// step rebuilds the training tree, publishes it as the new sampling tree,
// and refines training for the next learning window, per wrapper.h's
// step(). The double-checked nextMilestone comparison matches the
// original's "someone was here before us" guard: many Splat calls can cross
// the milestone before any of them acquires the exclusive lock.
func (w *Wrapper[S, V]) step() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.samplesSoFar.Load() < w.nextMilestone.Load() {
		return
	}

	w.training.Build()
	w.sampling = w.training.Clone()
	w.training.Refine()

	w.nextMilestone.Store(w.nextMilestone.Load() * 2)
}

// SamplesSoFar returns the number of deposits since the last Reset.
func (w *Wrapper[S, V]) SamplesSoFar() uint64 {
	return w.samplesSoFar.Load()
}

// Sampling returns the current read-mostly tree, for diagnostics and
// visualization (gtreeviz). Callers must not mutate it directly; Splat and
// step alone decide when it's replaced.
func (w *Wrapper[S, V]) Sampling() *Tree[V] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.sampling
}

// Training returns the current write-heavy tree, for diagnostics.
func (w *Wrapper[S, V]) Training() *Tree[V] {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.training
}
