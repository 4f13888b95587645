package queryengine

import "strings"

// denylist holds case-insensitive substrings that must never appear in a
// predicate. The entries cover dynamic-code-evaluation primitives, global
// and environment object access, browser storage, network-issuing calls,
// module loading, process access, and the classic prototype-pollution
// property. The gate is pattern-based: it complements, but does not replace,
// the restricted CEL environment the predicate is ultimately compiled in.
var denylist = []string{
	// dynamic code evaluation
	"eval(",
	"function(",
	"new function",
	"settimeout",
	"setinterval",
	// global / environment objects
	"globalthis",
	"window.",
	"document.",
	"self.",
	"navigator.",
	// browser storage
	"localstorage",
	"sessionstorage",
	"indexeddb",
	"cookie",
	// network
	"fetch(",
	"xmlhttprequest",
	"websocket",
	// module loading
	"require(",
	"import(",
	// process / environment
	"process.",
	"child_process",
	// prototype pollution
	"__proto__",
	"constructor[",
}

// Validate scans a predicate expression against the denylist before it is
// ever compiled or evaluated. It returns ok=false and the offending pattern
// on any match, anywhere in the expression.
func Validate(expression string) (ok bool, pattern string) {
	lowered := strings.ToLower(expression)
	for _, p := range denylist {
		if strings.Contains(lowered, p) {
			return false, p
		}
	}
	return true, ""
}
