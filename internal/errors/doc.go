// Package errors turns library errors into coded, actionable messages for
// the counters CLI and server.
//
// Each code maps to a category, a short message, a longer explanation and a
// hint. FromError recognises the sentinel errors of the store, container,
// config and expression packages:
//
//	if err := store.SetState(region, patch); err != nil {
//	    errors.PrintError(os.Stderr, errors.FromError(err))
//	}
//	// Output:
//	// ERROR S002: Invalid patch
//	//
//	//   The patch could not be applied to the current state.
//	//
//	//   Hint: Check that every value has the type of the field it replaces.
package errors
