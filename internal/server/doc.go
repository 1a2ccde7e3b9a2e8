// Package server serves the counters demo over WebSocket.
//
// Every connection to /ws is a session with its own counters scope. Clients
// mount views with select messages and change the counters with increment,
// decrement and set messages. The server pushes a value message each time a
// view re-renders and an error message when a request fails.
//
// Server settings live in a store of their own. Reloading the settings file
// patches that store, and bindings on it update the log level and the
// initial counters of new sessions.
//
// # Messages
//
// Client to server:
//
//	{"type":"select","view":"x","key":"x"}
//	{"type":"select","view":"product","kind":"product"}
//	{"type":"select","view":"sum","expr":"x + y + z","engine":"cel"}
//	{"type":"unselect","view":"x"}
//	{"type":"increment","key":"x"}
//	{"type":"set","key":"z","value":4}
//
// Server to client:
//
//	{"type":"hello","session":"…"}
//	{"type":"value","view":"x","value":1,"count":2}
//	{"type":"error","view":"sum","error":{"code":"X001",…}}
package server
