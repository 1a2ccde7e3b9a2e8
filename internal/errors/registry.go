package errors

import "sort"

// Template defines a registered error type.
type Template struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
}

// registry maps error codes to their templates.
var registry = map[string]Template{
	// Store errors (S001-S099)
	"S001": {
		Category:   CategoryStore,
		Message:    "No enclosing scope",
		Detail:     "A selection or update ran against a region that has no scope for this store above it, or the scope was already disposed.",
		Suggestion: "Open a scope with store.Scope and pass it, or one of its descendants, to Select and SetState.",
	},
	"S002": {
		Category:   CategoryStore,
		Message:    "Invalid patch",
		Detail:     "The patch could not be applied to the current state.",
		Suggestion: "Check that every value has the type of the field it replaces.",
	},
	"S003": {
		Category:   CategoryStore,
		Message:    "State cannot be copied",
		Detail:     "Every state version is deep-copied. Channels, unsafe pointers and reference cycles cannot be copied.",
		Suggestion: "Keep live resources outside the state, or implement Clone() on the state type.",
	},
	"S004": {
		Category:   CategoryStore,
		Message:    "Container disposed",
		Detail:     "The scope that owned this container was disposed, so it accepts no further updates.",
		Suggestion: "Drop references to update functions when their scope is torn down.",
	},
	"S005": {
		Category:   CategoryStore,
		Message:    "Selection type mismatch",
		Detail:     "Select was called without a selector, but the state type cannot be assigned to the selection type.",
		Suggestion: "Pass a selector, or select into the state type itself with Use.",
	},

	// Config errors (C001-C099)
	"C001": {
		Category:   CategoryConfig,
		Message:    "Invalid configuration",
		Detail:     "The configuration file was read but one of its values is not valid.",
		Suggestion: "Fix the reported field, or remove it to fall back to the default.",
	},
	"C002": {
		Category:   CategoryConfig,
		Message:    "Configuration unreadable",
		Detail:     "The configuration file could not be read or parsed.",
		Suggestion: "Check the path passed with --config and that the file is valid JSON or YAML.",
	},

	// Expression errors (X001-X099)
	"X001": {
		Category:   CategoryExpression,
		Message:    "Expression error",
		Detail:     "A selector expression failed to compile or evaluate.",
		Suggestion: "Engines are expr, cel and js. State keys are variables, and the whole state is available as state.",
	},
}

// Codes returns all registered error codes in order.
func Codes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Lookup returns the template for an error code.
func Lookup(code string) (Template, bool) {
	t, ok := registry[code]
	return t, ok
}
