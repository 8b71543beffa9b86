package predict

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken means no access token could be found anywhere.
var ErrNoToken = errors.New("no access token configured")

// ResolveToken finds the remote service access token. Resolution order:
// the explicit value, the TABPFN_ACCESS_TOKEN and TABPFN_TOKEN
// environment variables, then the ~/.tabpfn/token file.
func ResolveToken(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, key := range []string{"TABPFN_ACCESS_TOKEN", "TABPFN_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			return v, nil
		}
	}
	home, err := os.UserHomeDir()
	if err == nil {
		raw, err := os.ReadFile(filepath.Join(home, ".tabpfn", "token"))
		if err == nil {
			if token := strings.TrimSpace(string(raw)); token != "" {
				return token, nil
			}
		}
	}
	return "", ErrNoToken
}
