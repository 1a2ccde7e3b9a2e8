package container

// Partial is a set of top-level state keys to overwrite.
type Partial map[string]any

// PatchKind tags the variant carried by a Patch.
type PatchKind uint8

const (
	// PatchInvalid is the kind of the zero Patch.
	PatchInvalid PatchKind = iota

	// PatchReplace carries a partial record.
	PatchReplace

	// PatchCompute carries a function from the current state to a partial record.
	PatchCompute
)

// String returns a human-readable name for the patch kind.
func (k PatchKind) String() string {
	switch k {
	case PatchReplace:
		return "replace"
	case PatchCompute:
		return "compute"
	default:
		return "invalid"
	}
}

// Patch is a tagged update for a state of type T.
// Build one with Replace or Compute; the zero value is rejected by SetState.
type Patch[T any] struct {
	kind    PatchKind
	partial Partial
	compute func(T) Partial
}

// Replace returns a patch that merges p into the current state.
func Replace[T any](p Partial) Patch[T] {
	return Patch[T]{kind: PatchReplace, partial: p}
}

// Compute returns a patch that calls fn with the current state and merges the
// partial it returns.
func Compute[T any](fn func(T) Partial) Patch[T] {
	return Patch[T]{kind: PatchCompute, compute: fn}
}

// Kind returns the variant of the patch.
func (p Patch[T]) Kind() PatchKind {
	return p.kind
}

// resolve returns the partial to merge into current.
func (p Patch[T]) resolve(current T) (Partial, error) {
	switch p.kind {
	case PatchReplace:
		return p.partial, nil
	case PatchCompute:
		if p.compute == nil {
			return nil, &PatchError{Reason: "compute patch has no function"}
		}
		return p.compute(current), nil
	default:
		return nil, &PatchError{Reason: "patch is neither a partial record nor a compute function"}
	}
}
