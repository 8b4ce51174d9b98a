// Package envvar expands ${VAR} placeholders in configuration values.
package envvar

import (
	"os"
	"regexp"
	"strings"
)

// pattern matches ${VAR_NAME} and ${VAR_NAME:-default}.
// Groups: 1 = variable name, 2 = optional default value (after :-).
var pattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)(?::-([^}]*))?\}`)

const defaultSyntaxMarker = ":-"

// Expand replaces ${VAR_NAME} and ${VAR_NAME:-default} placeholders with
// environment values. An unset variable without a default expands to "".
func Expand(value string) string {
	if value == "" {
		return value
	}

	return pattern.ReplaceAllStringFunc(value, expandMatch)
}

// Unresolved returns the names of referenced variables that are unset and
// have no default, so callers can warn about them.
func Unresolved(value string) []string {
	var names []string

	for _, groups := range pattern.FindAllStringSubmatch(value, -1) {
		if strings.Contains(groups[0], defaultSyntaxMarker) {
			continue
		}

		if _, ok := os.LookupEnv(groups[1]); !ok {
			names = append(names, groups[1])
		}
	}

	return names
}

func expandMatch(match string) string {
	groups := pattern.FindStringSubmatch(match)

	envValue, exists := os.LookupEnv(groups[1])
	if exists {
		return envValue
	}

	if strings.Contains(match, defaultSyntaxMarker) {
		return groups[2]
	}

	return ""
}
