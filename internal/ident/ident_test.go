package ident

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUUIDv7Generator_ValidFormat(t *testing.T) {
	id := UUIDv7Generator{}.Generate()

	parsed, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), parsed.Version())
	assert.Regexp(t, `^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`, id)
}

func TestUUIDv7Generator_Concurrent(t *testing.T) {
	gen := UUIDv7Generator{}
	const goroutines = 50

	ids := make(chan string, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ids <- gen.Generate()
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]bool)
	for id := range ids {
		require.False(t, seen[id], "id %s generated twice", id)
		seen[id] = true
	}
	assert.Len(t, seen, goroutines)
}

func TestSequenceGenerator(t *testing.T) {
	gen := NewSequenceGenerator("evt", "first", "second")

	assert.Equal(t, "first", gen.Generate())
	assert.Equal(t, "second", gen.Generate())
	assert.Equal(t, "evt-0003", gen.Generate())
	assert.Equal(t, "evt-0004", gen.Generate())
}

func TestSequenceGenerator_DefaultPrefix(t *testing.T) {
	gen := NewSequenceGenerator("")
	assert.Equal(t, "id-0001", gen.Generate())
}
