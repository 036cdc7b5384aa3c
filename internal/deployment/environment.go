package deployment

import "strings"

// Environment is the deployment target class.
type Environment string

const (
	Production Environment = "production"
	Preview    Environment = "preview"
)

// ParseEnvironment maps user input onto an Environment. Anything other than
// "production" resolves to Preview; ok reports whether the input was a known
// value (or empty).
func ParseEnvironment(s string) (env Environment, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Production):
		return Production, true
	case string(Preview), "":
		return Preview, true
	default:
		return Preview, false
	}
}

// Emoji returns the glyph used in the comment header.
func (e Environment) Emoji() string {
	if e == Production {
		return "🚀"
	}
	return "🔍"
}

// DisplayName returns the capitalized environment name.
func (e Environment) DisplayName() string {
	if e == Production {
		return "Production"
	}
	return "Preview"
}
