package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	assert.Equal(t, uint32(0), CodeOf(nil))
	assert.Equal(t, CodeEmptyName, CodeOf(ErrEmptyName))
	assert.Equal(t, CodeNameTooLong, CodeOf(ErrNameTooLong))
	assert.Equal(t, CodeUnauthorized, CodeOf(ErrUnauthorized))
	assert.Equal(t, CodeNotInitialized, CodeOf(ErrNotInitialized))
	assert.Equal(t, CodeAlreadyInitialized, CodeOf(ErrAlreadyInitialized))

	// Wrapped contract errors keep their code
	wrapped := fmt.Errorf("call failed: %w", ErrUnauthorized)
	assert.Equal(t, CodeUnauthorized, CodeOf(wrapped))

	// Anything else is a host failure
	assert.Equal(t, CodeInternal, CodeOf(errors.New("disk full")))
}

func TestAddressFromString(t *testing.T) {
	addr := AddressFromString("0102030405060708090a0b0c0d0e0f1011121314")
	assert.Equal(t, "0102030405060708090a0b0c0d0e0f1011121314", addr.String())

	// 0x prefix is accepted
	assert.Equal(t, addr, AddressFromString("0x0102030405060708090a0b0c0d0e0f1011121314"))

	// Invalid input yields the zero address
	assert.Equal(t, ZeroAddress, AddressFromString("not-hex"))
}
