package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalBytes(t *testing.T) {
	// ASCII text measures its byte length
	assert.Len(t, CanonicalBytes("Ana"), 3)

	// Multibyte characters count their encoded bytes, not runes
	assert.Len(t, CanonicalBytes("ñ"), 2)

	// A decomposed sequence (n + combining tilde, 3 bytes raw) normalizes
	// to the composed 2-byte form
	decomposed := "ñ"
	require.Len(t, []byte(decomposed), 3)
	assert.Equal(t, []byte("ñ"), CanonicalBytes(decomposed))
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(uint32(42))
	require.NoError(t, err)

	var v uint32
	require.NoError(t, Unmarshal(data, &v))
	assert.Equal(t, uint32(42), v)
}
