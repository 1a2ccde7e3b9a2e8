// Package config loads the settings of the counters server.
//
// Settings are read from a JSON or YAML file, chosen by extension, on top of
// the defaults returned by Default. Watch re-reads the file whenever it
// changes so a running server can pick up new settings.
//
// # Configuration File Structure
//
//	addr: ":8080"
//	logLevel: info
//	logFormat: text
//	metrics:
//	  enabled: true
//	  namespace: scopestore
//	  path: /metrics
//	tracing:
//	  enabled: false
//	  tracerName: scopestore
//	events:
//	  enabled: false
//	  selections: false
//	counters:
//	  x: 0
//	  y: 0
//	  z: 0
package config
