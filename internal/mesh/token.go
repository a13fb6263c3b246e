package mesh

import (
	"encoding/hex"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"
)

// Tokenizer generates and validates the Captain/Crew authentication token.
// The default implementation (FNVTokenizer) is explicitly LAN-trust, not
// cryptographic; JWTTokenizer is the documented upgrade path for operators
// who need resistance to an adversary with local-network access.
type Tokenizer interface {
	Generate() (string, error)
	Validate(token string) bool
}

// FNVTokenizer implements the default "<ms_timestamp>:<16-hex FNV-1a hash
// of (timestamp:secret)>" scheme from original_source's sea_mesh_mesh.c.
// An empty secret makes Validate accept any token, matching the original's
// "no secret = open" behavior.
type FNVTokenizer struct {
	Secret string
	Now    func() time.Time // overridable for tests; defaults to time.Now
}

func (t FNVTokenizer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Generate builds a fresh token for the current instant.
func (t FNVTokenizer) Generate() (string, error) {
	ts := t.now().UnixMilli()
	return fmt.Sprintf("%d:%s", ts, hashHex(ts, t.Secret)), nil
}

// Validate recomputes the hash for the token's embedded timestamp and
// compares against its trailing hex digest.
func (t FNVTokenizer) Validate(token string) bool {
	if t.Secret == "" {
		return true
	}
	ts, digest, ok := splitToken(token)
	if !ok {
		return false
	}
	return hashHex(ts, t.Secret) == digest
}

func splitToken(token string) (ts int64, digest string, ok bool) {
	idx := strings.IndexByte(token, ':')
	if idx < 0 {
		return 0, "", false
	}
	ts, err := strconv.ParseInt(token[:idx], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return ts, token[idx+1:], true
}

func hashHex(ts int64, secret string) string {
	material := fmt.Sprintf("%d:%s", ts, secret)
	h := fnv.New64a()
	_, _ = h.Write([]byte(material))
	sum := h.Sum64()
	return hex.EncodeToString(encodeUint64(sum))
}

func encodeUint64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 7; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return b
}
