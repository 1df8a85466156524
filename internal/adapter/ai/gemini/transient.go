package gemini

import "strings"

// transientSignatures are upstream error fragments that justify falling
// through to the next model instead of aborting the request.
var transientSignatures = []string{
	"overloaded",
	"quota",
	"rate limit",
}

// IsTransient reports whether an upstream error message matches a known
// transient-failure signature. Kept isolated: it is the branch point that
// decides model fallthrough versus hard abort.
func IsTransient(msg string) bool {
	m := strings.ToLower(msg)
	for _, sig := range transientSignatures {
		if strings.Contains(m, sig) {
			return true
		}
	}
	return false
}
