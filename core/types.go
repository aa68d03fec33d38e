// Package core defines the types shared by the greeting contract and the
// host environment. Contract code only needs this package together with the
// storage interfaces to run.
package core

import (
	"encoding/hex"
	"strings"
)

// Address represents a blockchain identity
type Address [20]byte

// ZeroAddress is the empty identity
var ZeroAddress = Address{}

func (addr Address) String() string {
	return hex.EncodeToString(addr[:])
}

// AddressFromString converts a hex string to an Address.
// A 0x prefix is accepted. Invalid input yields ZeroAddress.
func AddressFromString(str string) Address {
	str = strings.TrimPrefix(str, "0x")
	b, err := hex.DecodeString(str)
	if err != nil {
		return ZeroAddress
	}
	var addr Address
	copy(addr[:], b)
	return addr
}
