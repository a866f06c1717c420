// Package ir provides the value model and canonical JSON encoding used for
// persisted snapshot payloads.
//
// This package imports nothing internal. Key constraints:
//   - No float types; numbers reach payloads as int64 or pre-rendered text
//   - Canonical JSON follows RFC 8785 key ordering with NFC strings
//   - Digests are domain-separated SHA-256 (see hash.go)
package ir
