package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotDigestDomainSeparated(t *testing.T) {
	payload := []byte(`{"a":1}`)

	plain := sha256.Sum256(payload)
	assert.NotEqual(t, hex.EncodeToString(plain[:]), SnapshotDigest(payload))

	expected := sha256.Sum256(append([]byte(DomainSnapshot+"\x00"), payload...))
	assert.Equal(t, hex.EncodeToString(expected[:]), SnapshotDigest(payload))
}

func TestCanonicalSnapshotStable(t *testing.T) {
	payload := Object{
		"schema_version": Int(SnapshotSchemaVersion),
		"source_tag":     String("manual"),
		"root_id":        String("c1"),
	}

	data1, digest1, err := CanonicalSnapshot(payload)
	require.NoError(t, err)
	data2, digest2, err := CanonicalSnapshot(payload)
	require.NoError(t, err)

	assert.Equal(t, data1, data2)
	assert.Equal(t, digest1, digest2)
	assert.Len(t, digest1, 64)
	assert.True(t, VerifySnapshotDigest(data1, digest1))
	assert.False(t, VerifySnapshotDigest(append(data1, ' '), digest1))
}

func TestCanonicalSnapshotChangesWithContent(t *testing.T) {
	_, a, err := CanonicalSnapshot(Object{"source_tag": String("apply")})
	require.NoError(t, err)
	_, b, err := CanonicalSnapshot(Object{"source_tag": String("manual")})
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
