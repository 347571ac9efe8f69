package types

// FlushResult is the outcome of one flush cycle.
type FlushResult string

const (
	// FlushSuccess means the snapshot was exported and the deltas committed.
	FlushSuccess FlushResult = "success"
	// FlushPartial means the exporter failed; the unflushed deltas are preserved for the next cycle.
	FlushPartial FlushResult = "partial"
	// FlushTimeout means the exporter did not answer before the deadline; deltas are preserved.
	FlushTimeout FlushResult = "timeout"
)

// String returns the string representation of a FlushResult.
func (r FlushResult) String() string {
	return string(r)
}

// PropagationState classifies what a carrier held under the propagation key.
type PropagationState string

const (
	// PropagationAbsent means the upstream hop never wrote the key.
	PropagationAbsent PropagationState = "absent"
	// PropagationEmpty means the upstream hop was instrumented but had no path key yet.
	PropagationEmpty PropagationState = "empty"
	// PropagationPresent means the carrier held a valid path key.
	PropagationPresent PropagationState = "present"
)

// String returns the string representation of a PropagationState.
func (s PropagationState) String() string {
	return string(s)
}
