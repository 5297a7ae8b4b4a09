// Package identity derives the admission key used to deduplicate referral
// submissions. Resolution is a pure function of the event: no store is
// consulted.
package identity

import (
	"crypto/rand"
	"fmt"
	"net/netip"
	"strings"

	"github.com/mr-tron/base58"
)

// Confidence tells callers how much a key can be trusted to identify one
// physical source.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// AnonymousKey is shared by every event with no usable origin signal, so
// unidentifiable sources compete for a single slot per campaign.
const AnonymousKey = "anon"

// MaxSessionTokenLength bounds the tokens accepted as an origin signal.
// Issued tokens are about 22 characters; longer ones are client-forged and
// would not fit the stored key.
const MaxSessionTokenLength = 64

// Event carries the raw origin attributes of a referral submission.
type Event struct {
	ClientIP     string
	SessionToken string
}

// Key is a stable admission key.
type Key struct {
	Value      string
	Confidence Confidence
}

func (k Key) String() string {
	return k.Value
}

// LowConfidence reports whether the key came from a fallback signal.
func (k Key) LowConfidence() bool {
	return k.Confidence != ConfidenceHigh
}

// Resolve maps an event to its admission key. The network address wins when
// it parses; otherwise a well-formed session token is used; otherwise
// AnonymousKey.
func Resolve(ev Event) Key {
	if addr, ok := normalizeAddr(ev.ClientIP); ok {
		return Key{Value: "ip:" + addr, Confidence: ConfidenceHigh}
	}
	if token := strings.TrimSpace(ev.SessionToken); ValidSessionToken(token) {
		return Key{Value: "session:" + token, Confidence: ConfidenceLow}
	}
	return Key{Value: AnonymousKey, Confidence: ConfidenceLow}
}

// ValidSessionToken reports whether token is non-empty, at most
// MaxSessionTokenLength bytes and printable ASCII without spaces.
func ValidSessionToken(token string) bool {
	if token == "" || len(token) > MaxSessionTokenLength {
		return false
	}
	for i := 0; i < len(token); i++ {
		if token[i] <= ' ' || token[i] > '~' {
			return false
		}
	}
	return true
}

// normalizeAddr accepts a bare address, an address with port, or the first
// entry of a forwarded-for list.
func normalizeAddr(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if i := strings.IndexByte(raw, ','); i >= 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	if raw == "" {
		return "", false
	}

	addr, err := netip.ParseAddr(strings.Trim(raw, "[]"))
	if err != nil {
		ap, perr := netip.ParseAddrPort(raw)
		if perr != nil {
			return "", false
		}
		addr = ap.Addr()
	}
	addr = addr.Unmap().WithZone("")
	if !addr.IsValid() || addr.IsUnspecified() {
		return "", false
	}
	return addr.String(), true
}

// NewSessionToken returns a random base58 token for the anonymous session
// cookie.
func NewSessionToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return base58.Encode(b), nil
}
