package gtree

import "fmt"

// assertf aborts the program when an invariant spec.md documents as an
// assertion (§7: weight/value non-negativity on splat, monotone child
// indices, positive leaf density at a sampled leaf) is violated. The core
// never recovers from these: spec.md §7 is explicit that "there is no
// runtime error taxonomy. Violations abort."
func assertf(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
