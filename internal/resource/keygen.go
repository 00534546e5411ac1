package resource

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"resource-cache/internal/fetchers"
)

// deriveKey builds the generic cache key used when a fetch component
// supplies no deterministic key of its own: a hash over the request's kind,
// URI, sorted headers, and options, truncated to a fixed-width digest.
// Returns the empty string when no key is derivable.
func deriveKey(req *fetchers.Request) string {
	if req.URI == "" {
		return ""
	}

	var b strings.Builder
	b.WriteString(req.Kind)
	b.WriteString("|")
	b.WriteString(req.URI)

	if len(req.Headers) > 0 {
		names := make([]string, 0, len(req.Headers))
		for name := range req.Headers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString("|")
			b.WriteString(name)
			b.WriteString("=")
			b.WriteString(req.Headers[name])
		}
	}

	if len(req.Options) > 0 {
		// Maps marshal with sorted keys, so this is deterministic
		if opts, err := json.Marshal(req.Options); err == nil {
			b.WriteString("|")
			b.Write(opts)
		}
	}

	digest := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("res:%s:%s", req.Kind, hex.EncodeToString(digest[:])[:32])
}
