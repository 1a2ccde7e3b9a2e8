// Package counters is a small demo built on package store.
//
// The state holds three integer counters (x, y and z) and the actions that
// change them. A Board groups consumer views bound to one region. Each view
// selects a slice of the state and re-renders only when that slice changes:
// a CounterView follows one counter, a ProductView follows the {x, y} pair
// and an InertView selects a constant and renders exactly once.
//
// Script and Nested drive the demo from the command line.
package counters
