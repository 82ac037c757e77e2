package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	domainconfig "github.com/wouldcart/Triplexa2-sub014/domain/config"
)

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-[^}]*|:\?[^}]*)?\}`)

// LookupFunc resolves an environment variable.
type LookupFunc func(key string) (string, bool)

// envExpander expands ${...} references in configuration text.
// Supported patterns:
//   - ${VAR} expands to the value of VAR
//   - ${VAR:-default} expands to VAR or "default" if unset or empty
//   - ${VAR:?message} fails if VAR is unset or empty
//
// Bare $VAR is left alone so DSNs and passwords may contain '$'.
type envExpander struct {
	lookup LookupFunc
	// strict fails if a plain ${VAR} is not set.
	strict bool
}

func newEnvExpander(lookup LookupFunc, strict bool) *envExpander {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return &envExpander{lookup: lookup, strict: strict}
}

// Expand expands environment references in input.
func (e *envExpander) Expand(input string) (string, error) {
	var missing []string

	result := envPattern.ReplaceAllStringFunc(input, func(match string) string {
		groups := envPattern.FindStringSubmatch(match)
		name, modifier := groups[1], groups[2]
		value, ok := e.lookup(name)

		switch {
		case strings.HasPrefix(modifier, ":-"):
			if !ok || value == "" {
				return modifier[2:]
			}
		case strings.HasPrefix(modifier, ":?"):
			if !ok || value == "" {
				missing = append(missing, fmt.Sprintf("%s: %s", name, modifier[2:]))
				return match
			}
		default:
			if !ok && e.strict {
				missing = append(missing, name)
			}
		}
		return value
	})

	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s", domainconfig.ErrMissingEnvVar, strings.Join(missing, ", "))
	}
	return result, nil
}

// ExpandEnv expands environment references, leaving unset plain
// references empty.
func ExpandEnv(input string) string {
	result, _ := newEnvExpander(nil, false).Expand(input)
	return result
}

// ExpandEnvStrict expands environment references and fails on any
// missing variable.
func ExpandEnvStrict(input string) (string, error) {
	return newEnvExpander(nil, true).Expand(input)
}
