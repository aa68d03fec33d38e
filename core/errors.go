package core

import (
	"errors"
	"fmt"
)

// Wire codes for contract rejections. Whatever invokes the contract sees
// these numbers, so they are stable.
const (
	CodeEmptyName          uint32 = 1
	CodeNameTooLong        uint32 = 2
	CodeUnauthorized       uint32 = 3
	CodeNotInitialized     uint32 = 4
	CodeAlreadyInitialized uint32 = 5

	// CodeInternal marks host storage failures, not contract rejections.
	CodeInternal uint32 = 100
)

// Error is a contract rejection carrying its wire code.
type Error struct {
	Code uint32
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("contract error %d: %s", e.Code, e.Msg)
}

// Common errors returned by the greeting contract
var (
	ErrEmptyName          = &Error{Code: CodeEmptyName, Msg: "empty name"}
	ErrNameTooLong        = &Error{Code: CodeNameTooLong, Msg: "name too long"}
	ErrUnauthorized       = &Error{Code: CodeUnauthorized, Msg: "unauthorized operation"}
	ErrNotInitialized     = &Error{Code: CodeNotInitialized, Msg: "contract not initialized"}
	ErrAlreadyInitialized = &Error{Code: CodeAlreadyInitialized, Msg: "contract already initialized"}
)

// CodeOf returns the wire code for err: 0 for nil, the rejection code for
// contract errors and CodeInternal for everything else.
func CodeOf(err error) uint32 {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}
