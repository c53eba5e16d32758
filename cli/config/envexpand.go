// Package config loads the imagesources.yaml configuration file.
package config

import (
	"os"
	"regexp"
	"strings"
)

// envRef matches ${VAR} and ${VAR:-default}. A bare $VAR is left alone so
// values such as passwords may contain a dollar sign.
var envRef = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*)?\}`)

// ExpandEnv substitutes environment references in a config file.
// ${VAR} becomes the value of VAR, or "" when unset. ${VAR:-default} also
// falls back to default when VAR is empty.
func ExpandEnv(input string) string {
	matches := envRef.FindAllStringSubmatchIndex(input, -1)
	if matches == nil {
		return input
	}

	var b strings.Builder
	b.Grow(len(input))
	last := 0
	for _, m := range matches {
		b.WriteString(input[last:m[0]])
		last = m[1]

		value := os.Getenv(input[m[2]:m[3]])
		if value == "" && m[4] >= 0 {
			value = input[m[4]+len(":-") : m[5]]
		}
		b.WriteString(value)
	}
	b.WriteString(input[last:])
	return b.String()
}
