// Package pathutil expands operator-supplied filesystem paths, notably the
// disk backend's root directory flag, which accepts environment variables
// and a leading tilde the way shells do.
package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// Expand resolves environment variable references (for example $HOME or
// ${HOME}) and a leading "~" in p, then cleans the result. An empty or
// all-space p expands to "". Relative paths stay relative; callers decide
// whether to absolutize.
func Expand(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	p = os.ExpandEnv(p)
	if p == "~" {
		return os.UserHomeDir()
	}
	if strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, p[2:])
	}
	return filepath.Clean(p), nil
}
