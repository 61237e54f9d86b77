package secret

import (
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/lo"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// ExpandEnvStrict expands environment variables in s.
//
// $VAR and ${VAR} are expanded as by os.ExpandEnv, except that a ${VAR}
// naming an unset variable is an error. $$ emits a literal $.
func ExpandEnvStrict(s string) (string, error) {
	const dollar = "\x00NEUROSCAN_DOLLAR\x00"
	s = strings.ReplaceAll(s, "$$", dollar)

	missing := lo.Uniq(lo.FilterMap(envVarPattern.FindAllStringSubmatch(s, -1), func(m []string, _ int) (string, bool) {
		_, set := os.LookupEnv(m[1])
		return m[1], !set
	}))
	if len(missing) > 0 {
		slices.Sort(missing)
		return "", fmt.Errorf("%w: %s", ErrMissingEnv, strings.Join(missing, ", "))
	}

	return strings.ReplaceAll(os.ExpandEnv(s), dollar, "$"), nil
}
