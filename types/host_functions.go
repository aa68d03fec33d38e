// Package types contains the constants and parameter types shared by the
// host engine and WebAssembly builds of the greeting contract.
package types

import (
	"github.com/govm-net/greeting/core"
)

// WasmFunctionID defines the function IDs used in host-contract
// communication. Both sides must use these constants; a mismatch between
// host and contract results in undefined behavior.
type WasmFunctionID int32

const (
	// FuncGetSender returns the identity attributed to the current call
	FuncGetSender WasmFunctionID = iota + 1 // 1
	// FuncStorageHas reports whether a live record exists
	FuncStorageHas // 2
	// FuncStorageGet reads a record value
	FuncStorageGet // 3
	// FuncStorageSet writes a record value
	FuncStorageSet // 4
	// FuncStorageExtendTTL refreshes a record's lifetime
	FuncStorageExtendTTL // 5
	// FuncLog emits a contract event
	FuncLog // 6
)

// HostBufferSize defines the size of the buffer used for data exchange
// between host and contract
const HostBufferSize int32 = 2048

// Storage scopes addressable through host calls
const (
	ScopeInstance   = "instance"
	ScopePersistent = "persistent"
)

type StorageHasParams struct {
	Scope string `json:"scope,omitempty"`
	Key   []byte `json:"key,omitempty"`
}

type StorageGetParams struct {
	Scope string `json:"scope,omitempty"`
	Key   []byte `json:"key,omitempty"`
}

type StorageSetParams struct {
	Scope string `json:"scope,omitempty"`
	Key   []byte `json:"key,omitempty"`
	Value []byte `json:"value,omitempty"`
}

type ExtendTTLParams struct {
	Scope     string `json:"scope,omitempty"`
	Key       []byte `json:"key,omitempty"`
	Threshold uint32 `json:"threshold,omitempty"`
	ExtendTo  uint32 `json:"extend_to,omitempty"`
}

type LogParams struct {
	Event     string `json:"event,omitempty"`
	KeyValues []any  `json:"key_values,omitempty"`
}

// HandleContractCallParams is the envelope the host hands to the contract's
// handle_contract_call export.
type HandleContractCallParams struct {
	Contract core.Address `json:"contract,omitempty"`
	Sender   core.Address `json:"sender,omitempty"`
	Function string       `json:"function,omitempty"`
	Args     []byte       `json:"args,omitempty"`
}

// ExecutionResult is the envelope the contract returns to the host.
// Code carries the contract rejection code when Success is false.
type ExecutionResult struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Code    uint32 `json:"code,omitempty"`
	Error   string `json:"error,omitempty"`
}
