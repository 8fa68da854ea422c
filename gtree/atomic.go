package gtree

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
)

// Accumulator is the contract a user-supplied Value type must satisfy so that
// a Tree can accumulate weighted deposits into it. Add combines two
// accumulated values; Scale multiplies an accumulated value by a scalar
// (used to turn a sum into a mean during build, §4.1.5). NonNegative backs
// the splat-time "value >= 0" assertion spec.md §4.1.2/§7 requires
// unconditionally, so every Value type must be able to answer it.
type Accumulator[V any] interface {
	Add(V) V
	Scale(factor float64) V
	NonNegative() bool
}

// Float64 is the Accumulator implementation for the common case described in
// spec.md's end-to-end scenarios (Value = scalar).
type Float64 float64

func (a Float64) Add(b Float64) Float64       { return a + b }
func (a Float64) Scale(factor float64) Float64 { return Float64(float64(a) * factor) }

func (a Float64) NonNegative() bool { return a >= 0 }

// MarshalBinary/UnmarshalBinary let Float64 round-trip through
// Tree.WriteTo/ReadFrom (gtree/io.go), which dispatches Value serialization
// through encoding.BinaryMarshaler the way
// original_source/include/guiding/guiding.h's has_custom_io<T> trait
// dispatches to a type's own write()/read() when present.
func (a Float64) MarshalBinary() ([]byte, error) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], math.Float64bits(float64(a)))
	return buf[:], nil
}

func (a *Float64) UnmarshalBinary(data []byte) error {
	if len(data) != 8 {
		return fmt.Errorf("gtree: Float64.UnmarshalBinary: want 8 bytes, got %d", len(data))
	}
	*a = Float64(math.Float64frombits(binary.LittleEndian.Uint64(data)))
	return nil
}

// atomicFloat64 is a CAS-loop atomic float, the scalar specialization called
// for in spec.md §9 ("An implementation may specialize the common case
// (scalar float)..."), grounded on original_source/include/guiding/guiding.h's
// atomic<Float> (a compare_exchange_weak loop over the IEEE-754 bit pattern)
// and on the CAS-retry idiom in the sibling example
// rob05c-quadtree__cquadtree.go's Quadtree.Insert.
type atomicFloat64 struct {
	bits atomic.Uint64
}

func (a *atomicFloat64) load() float64 {
	return math.Float64frombits(a.bits.Load())
}

func (a *atomicFloat64) store(v float64) {
	a.bits.Store(math.Float64bits(v))
}

func (a *atomicFloat64) add(delta float64) {
	for {
		old := a.bits.Load()
		next := math.Float64bits(math.Float64frombits(old) + delta)
		if a.bits.CompareAndSwap(old, next) {
			return
		}
	}
}

// atomicValue is a mutex-guarded accumulator for an arbitrary Value type,
// the "locked fallback for user-defined values" spec.md §9 calls for, and
// the direct analogue of guiding.h's generic atomic<V> (std::mutex-guarded).
// Per spec.md §5 ("a short per-cell lock is acceptable since contention is
// distributed across leaves"), this is intentionally a plain mutex rather
// than a lock-free scheme.
type atomicValue[V Accumulator[V]] struct {
	mu  sync.Mutex
	val V
}

func (a *atomicValue[V]) load() V {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.val
}

func (a *atomicValue[V]) store(v V) {
	a.mu.Lock()
	a.val = v
	a.mu.Unlock()
}

func (a *atomicValue[V]) add(delta V) {
	a.mu.Lock()
	a.val = a.val.Add(delta)
	a.mu.Unlock()
}
