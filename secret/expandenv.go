package secret

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// `$VAR` and `${VAR}` expand via the process environment. A `${VAR}`
// whose variable is not set is an error, so a missing tunnel token
// fails loudly instead of expanding to an empty secret. `$$` emits a
// literal `$`.
func ExpandEnvStrict(s string) (string, error) {
	// Splitting on the escape and rejoining with a literal dollar
	// keeps escaped text out of the expansion entirely.
	segments := strings.Split(s, "$$")

	missing := make(map[string]struct{})
	for i, segment := range segments {
		for _, match := range envVarPattern.FindAllStringSubmatch(segment, -1) {
			if _, ok := os.LookupEnv(match[1]); !ok {
				missing[match[1]] = struct{}{}
			}
		}
		segments[i] = os.ExpandEnv(segment)
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		sort.Strings(names)
		return "", fmt.Errorf("missing required environment variables: %s", strings.Join(names, ", "))
	}

	return strings.Join(segments, "$"), nil
}
