package container

import (
	"errors"
	"fmt"
)

// ErrInvalidPatch is returned by SetState when the patch is neither a partial
// record nor a compute function, or when it cannot be applied to the state.
var ErrInvalidPatch = errors.New("scopestore: invalid patch")

// ErrUncopyable is returned when a state contains a value that cannot be
// deep-copied, such as a channel or an unsafe pointer.
var ErrUncopyable = errors.New("scopestore: state value cannot be copied")

// ErrCyclic is returned when a state contains a pointer cycle.
var ErrCyclic = errors.New("scopestore: state contains a reference cycle")

// ErrDisposed is returned by SetState after the container was disposed.
var ErrDisposed = errors.New("scopestore: container disposed")

// PatchError reports a patch key whose value could not be applied.
type PatchError struct {
	Key    string
	Reason string
}

func (e *PatchError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidPatch, e.Reason)
	}
	return fmt.Sprintf("%s: key %q: %s", ErrInvalidPatch, e.Key, e.Reason)
}

// Unwrap returns ErrInvalidPatch.
func (e *PatchError) Unwrap() error {
	return ErrInvalidPatch
}

// CloneError reports where a deep copy failed.
type CloneError struct {
	// Path is the location of the offending value, e.g. "State.Items[2].Done".
	Path string

	// Err is ErrUncopyable or ErrCyclic.
	Err error
}

func (e *CloneError) Error() string {
	return fmt.Sprintf("%s at %s", e.Err, e.Path)
}

func (e *CloneError) Unwrap() error {
	return e.Err
}
