package identity

import (
	"strings"
	"testing"

	"github.com/mr-tron/base58"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want Key
	}{
		{"ipv4", Event{ClientIP: "203.0.113.7"}, Key{"ip:203.0.113.7", ConfidenceHigh}},
		{"ipv4 with port", Event{ClientIP: "203.0.113.7:51234"}, Key{"ip:203.0.113.7", ConfidenceHigh}},
		{"ipv4 mapped ipv6", Event{ClientIP: "::ffff:203.0.113.7"}, Key{"ip:203.0.113.7", ConfidenceHigh}},
		{"ipv6 canonical form", Event{ClientIP: "2001:DB8:0:0:0:0:0:1"}, Key{"ip:2001:db8::1", ConfidenceHigh}},
		{"bracketed ipv6 with port", Event{ClientIP: "[2001:db8::1]:443"}, Key{"ip:2001:db8::1", ConfidenceHigh}},
		{"ipv6 zone stripped", Event{ClientIP: "fe80::1%eth0"}, Key{"ip:fe80::1", ConfidenceHigh}},
		{"forwarded list uses first hop", Event{ClientIP: "198.51.100.2, 10.0.0.1"}, Key{"ip:198.51.100.2", ConfidenceHigh}},
		{"address wins over session", Event{ClientIP: "198.51.100.2", SessionToken: "abc"}, Key{"ip:198.51.100.2", ConfidenceHigh}},
		{"garbage falls back to session", Event{ClientIP: "not-an-ip", SessionToken: "abc"}, Key{"session:abc", ConfidenceLow}},
		{"unspecified falls back to session", Event{ClientIP: "0.0.0.0", SessionToken: "abc"}, Key{"session:abc", ConfidenceLow}},
		{"nothing at all", Event{}, Key{AnonymousKey, ConfidenceLow}},
		{"token at the length cap", Event{SessionToken: strings.Repeat("a", MaxSessionTokenLength)}, Key{"session:" + strings.Repeat("a", MaxSessionTokenLength), ConfidenceLow}},
		{"oversized token falls back to anon", Event{SessionToken: strings.Repeat("a", MaxSessionTokenLength+1)}, Key{AnonymousKey, ConfidenceLow}},
		{"token with spaces falls back to anon", Event{SessionToken: "a b"}, Key{AnonymousKey, ConfidenceLow}},
		{"non-ascii token falls back to anon", Event{SessionToken: "tökén"}, Key{AnonymousKey, ConfidenceLow}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.ev)
			if got != tt.want {
				t.Fatalf("Resolve(%+v) = %+v, want %+v", tt.ev, got, tt.want)
			}
			if got.LowConfidence() != (tt.want.Confidence == ConfidenceLow) {
				t.Fatalf("LowConfidence mismatch for %+v", got)
			}
		})
	}
}

func TestResolveIsStable(t *testing.T) {
	ev := Event{ClientIP: "192.0.2.44:1000", SessionToken: "tok"}
	first := Resolve(ev)
	for i := 0; i < 10; i++ {
		if got := Resolve(ev); got != first {
			t.Fatalf("resolution changed between calls: %v vs %v", first, got)
		}
	}
}

func TestNewSessionToken(t *testing.T) {
	a, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken failed: %v", err)
	}
	b, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken failed: %v", err)
	}
	if a == b {
		t.Fatal("expected distinct tokens")
	}
	raw, err := base58.Decode(a)
	if err != nil {
		t.Fatalf("token is not base58: %v", err)
	}
	if len(raw) != 16 {
		t.Fatalf("expected 16 random bytes, got %d", len(raw))
	}
}

func TestResolvedKeysFitStoredColumn(t *testing.T) {
	for _, ev := range []Event{
		{ClientIP: "ffff:ffff:ffff:ffff:ffff:ffff:ffff:ffff"},
		{SessionToken: strings.Repeat("z", MaxSessionTokenLength)},
		{SessionToken: strings.Repeat("z", 4096)},
	} {
		if key := Resolve(ev); len(key.Value) > 128 {
			t.Errorf("key %q longer than the admission_key column", key.Value)
		}
	}

	issued, err := NewSessionToken()
	if err != nil {
		t.Fatalf("NewSessionToken failed: %v", err)
	}
	if !ValidSessionToken(issued) {
		t.Fatalf("issued token %q rejected", issued)
	}
}
