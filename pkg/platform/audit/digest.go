package audit

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Digest produces a stable hex digest of an entity state for before/after
// comparison in audit entries. The value is marshalled to JSON first, so any
// struct with deterministic field order digests reproducibly.
func Digest(state any) string {
	raw, err := json.Marshal(state)
	if err != nil {
		// Marshalling domain structs cannot fail in practice; fall back to a
		// digest of the error so the entry is still written.
		raw = fmt.Appendf(nil, "marshal error: %v", err)
	}
	sum := blake2b.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
