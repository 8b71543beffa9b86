package cache

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Key derives a stable cache key from an operation name and its
// parameters. Parameters are serialized in sorted key order so two
// maps with the same contents always hash identically.
func Key(operation string, params map[string]any) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(operation)
	for _, k := range keys {
		b.WriteString("|")
		b.WriteString(k)
		b.WriteString("=")
		v, err := json.Marshal(params[k])
		if err != nil {
			b.WriteString(fmt.Sprintf("%v", params[k]))
			continue
		}
		b.Write(v)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%s:%x", operation, sum[:16])
}
