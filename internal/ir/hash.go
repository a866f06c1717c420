package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room to change
// the algorithm without colliding with stored values.
const (
	DomainSnapshot = "dealbook/snapshot/v1"
)

// hashWithDomain computes SHA256(domain || 0x00 || data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotDigest returns the digest stored next to a snapshot payload.
// The payload must already be canonical JSON.
func SnapshotDigest(payload []byte) string {
	return hashWithDomain(DomainSnapshot, payload)
}

// CanonicalSnapshot marshals a snapshot payload object and digests it.
func CanonicalSnapshot(payload Object) ([]byte, string, error) {
	data, err := MarshalCanonical(payload)
	if err != nil {
		return nil, "", fmt.Errorf("CanonicalSnapshot: failed to marshal: %w", err)
	}
	return data, SnapshotDigest(data), nil
}

// VerifySnapshotDigest reports whether payload still matches digest.
func VerifySnapshotDigest(payload []byte, digest string) bool {
	return SnapshotDigest(payload) == digest
}
