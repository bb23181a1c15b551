package scenario

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// CanonicalHash produces the stable identity of a configuration bundle:
// date-like values are normalized to ISO-8601 strings, the structure is
// serialized as key-sorted compact JSON, and the blob is hashed with
// SHA-256. The digest is invariant to mapping key order and to
// re-serialization, and changes whenever any leaf value changes.
func CanonicalHash(v any) (string, error) {
	blob, err := json.Marshal(normalize(v))
	if err != nil {
		return "", fmt.Errorf("scenario: canonical hash: %w", err)
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

// ShortHash is the first 8 hex characters of a canonical hash, used as the
// human-facing scenario label.
func ShortHash(hash string) string {
	if len(hash) < 8 {
		return hash
	}
	return hash[:8]
}

// normalize rewrites a decoded YAML/JSON structure so that serialization
// is deterministic. encoding/json already sorts map keys and emits compact
// output; this pass converts timestamps to ISO-8601 strings and coerces
// non-string map keys (older YAML decoders produce map[any]any).
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[k] = normalize(val)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			out[i] = normalize(val)
		}
		return out
	case time.Time:
		return x.Format(time.RFC3339)
	default:
		return x
	}
}
