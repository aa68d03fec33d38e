// Package vm hosts WebAssembly builds of the greeting contract with wazero.
// The engine exposes the storage environment to the contract through host
// functions and dispatches calls through the contract's
// handle_contract_call export.
package vm

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/govm-net/greeting/core"
	"github.com/govm-net/greeting/storage"
	"github.com/govm-net/greeting/types"
)

// Engine runs compiled greeting contracts against a storage environment.
type Engine struct {
	contractDir string
	env         storage.Env
	sender      core.Address

	ctx       context.Context
	envModule api.Module
}

// NewEngine creates an engine storing deployed contracts under contractDir.
func NewEngine(contractDir string, env storage.Env) (*Engine, error) {
	if contractDir != "" {
		if err := os.MkdirAll(contractDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create contract directory: %w", err)
		}
	}

	return &Engine{
		contractDir: contractDir,
		env:         env,
		ctx:         context.Background(),
	}, nil
}

// SetSender sets the identity attributed to subsequent calls.
func (e *Engine) SetSender(sender core.Address) {
	e.sender = sender
}

// ContractAddress derives the deployment address for code deployed by sender.
func ContractAddress(wasmCode []byte, sender core.Address) core.Address {
	hash := sha256.Sum256(append(append([]byte{}, wasmCode...), sender[:]...))
	var addr core.Address
	copy(addr[:], hash[:20])
	return addr
}

// Deploy stores a compiled contract module and returns its address.
func (e *Engine) Deploy(wasmCode []byte, sender core.Address) (core.Address, error) {
	if len(wasmCode) == 0 {
		return core.ZeroAddress, errors.New("contract code cannot be empty")
	}

	contractAddr := ContractAddress(wasmCode, sender)

	if e.contractDir != "" {
		contractPath := filepath.Join(e.contractDir, contractAddr.String()+".wasm")
		if err := os.WriteFile(contractPath, wasmCode, 0644); err != nil {
			return core.ZeroAddress, fmt.Errorf("failed to store contract code: %w", err)
		}
	}

	return contractAddr, nil
}

// Execute runs a function of a deployed contract with JSON-encoded params.
func (e *Engine) Execute(contractAddr core.Address, function string, params []byte) (any, error) {
	wasmCode, err := os.ReadFile(filepath.Join(e.contractDir, contractAddr.String()+".wasm"))
	if err != nil {
		return nil, fmt.Errorf("failed to read contract code: %w", err)
	}

	module, err := e.initContract(wasmCode)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate WebAssembly module: %w", err)
	}

	out, err := e.callWasmFunction(module, function, params, contractAddr)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}

	var result types.ExecutionResult
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("failed to deserialize result: %w", err)
	}
	if !result.Success {
		return nil, fmt.Errorf("contract rejected call with code %d: %s", result.Code, result.Error)
	}
	return result.Data, nil
}

func (e *Engine) initContract(wasmCode []byte) (api.Module, error) {
	ctx := context.Background()
	runtime := wazero.NewRuntime(ctx)

	compiled, err := runtime.CompileModule(ctx, wasmCode)
	if err != nil {
		return nil, fmt.Errorf("failed to compile WebAssembly module: %w", err)
	}

	builder := runtime.NewHostModuleBuilder("env")

	builder.NewFunctionBuilder().
		WithParameterNames("funcID", "argPtr", "argLen").
		WithResultNames("result").
		WithFunc(func(_ context.Context, m api.Module, funcID, argPtr, argLen uint32) int32 {
			mem := m.Memory()
			if mem == nil {
				return -1
			}
			argData, ok := mem.Read(argPtr, argLen)
			if !ok || len(argData) != int(argLen) {
				return -1
			}
			return e.handleHostSet(funcID, argData)
		}).
		Export("call_host_set")

	builder.NewFunctionBuilder().
		WithParameterNames("funcID", "argPtr", "argLen", "bufferPtr").
		WithResultNames("result").
		WithFunc(func(_ context.Context, m api.Module, funcID, argPtr, argLen, bufferPtr uint32) int32 {
			mem := m.Memory()
			if mem == nil {
				return -1
			}
			argData, ok := mem.Read(argPtr, argLen)
			if !ok || len(argData) != int(argLen) {
				return -1
			}
			return e.handleHostGetBuffer(m, funcID, argData, bufferPtr)
		}).
		Export("call_host_get_buffer")

	envModule, err := builder.Instantiate(e.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate host module: %w", err)
	}
	e.envModule = envModule

	wasi_snapshot_preview1.MustInstantiate(e.ctx, runtime)

	config := wazero.NewModuleConfig().
		WithName("contract").WithStdout(os.Stdout).WithStderr(os.Stderr)

	module, err := runtime.InstantiateModule(ctx, compiled, config.WithStartFunctions("_initialize"))
	if err != nil {
		return nil, fmt.Errorf("failed to instantiate module: %w", err)
	}
	return module, nil
}

func (e *Engine) callWasmFunction(module api.Module, function string, params []byte, contractAddr core.Address) ([]byte, error) {
	allocate := module.ExportedFunction("allocate")
	if allocate == nil {
		return nil, fmt.Errorf("allocate function not found")
	}

	processDataFunc := module.ExportedFunction("handle_contract_call")
	if processDataFunc == nil {
		return nil, fmt.Errorf("handle_contract_call not found")
	}

	input := types.HandleContractCallParams{
		Contract: contractAddr,
		Sender:   e.sender,
		Function: function,
		Args:     params,
	}
	inputBytes, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize handle_contract_call: %w", err)
	}

	result, err := allocate.Call(e.ctx, uint64(len(inputBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to allocate memory: %w", err)
	}
	inputAddr := uint32(result[0])

	if !module.Memory().Write(inputAddr, inputBytes) {
		return nil, fmt.Errorf("failed to write to memory")
	}

	result, err = processDataFunc.Call(e.ctx, uint64(inputAddr), uint64(len(inputBytes)))
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s: %w", function, err)
	}

	var out []byte
	resultLen := int32(result[0])
	if resultLen > 0 {
		getBufferAddress := module.ExportedFunction("get_buffer_address")
		if getBufferAddress == nil {
			return nil, fmt.Errorf("get_buffer_address function not found")
		}

		result, err = getBufferAddress.Call(e.ctx)
		if err != nil {
			return nil, fmt.Errorf("get_buffer_address failed: %w", err)
		}
		bufferPtr := uint32(result[0])

		data, ok := module.Memory().Read(bufferPtr, uint32(resultLen))
		if !ok {
			return nil, fmt.Errorf("failed to read memory:%d, len:%d", bufferPtr, resultLen)
		}
		out = data
	}

	deallocate := module.ExportedFunction("deallocate")
	if deallocate == nil {
		return nil, fmt.Errorf("deallocate function not found")
	}
	if _, err := deallocate.Call(e.ctx, uint64(inputAddr), uint64(len(inputBytes))); err != nil {
		return nil, fmt.Errorf("failed to free memory: %w", err)
	}

	return out, nil
}

func (e *Engine) storeForScope(scope string) (storage.Store, error) {
	switch scope {
	case types.ScopeInstance:
		return e.env.Instance(), nil
	case types.ScopePersistent:
		return e.env.Persistent(), nil
	default:
		return nil, fmt.Errorf("unknown storage scope: %s", scope)
	}
}

// handleHostSet serves host calls that carry data into the environment.
func (e *Engine) handleHostSet(funcID uint32, argData []byte) int32 {
	switch types.WasmFunctionID(funcID) {
	case types.FuncStorageSet:
		var params types.StorageSetParams
		if err := json.Unmarshal(argData, &params); err != nil {
			return -1
		}
		store, err := e.storeForScope(params.Scope)
		if err != nil {
			return -1
		}
		if err := store.Set(params.Key, params.Value); err != nil {
			return -1
		}
		return 0

	case types.FuncStorageExtendTTL:
		var params types.ExtendTTLParams
		if err := json.Unmarshal(argData, &params); err != nil {
			return -1
		}
		if params.Scope == types.ScopeInstance {
			if err := e.env.ExtendInstanceTTL(params.Threshold, params.ExtendTo); err != nil {
				return -1
			}
			return 0
		}
		store, err := e.storeForScope(params.Scope)
		if err != nil {
			return -1
		}
		if err := store.ExtendTTL(params.Key, params.Threshold, params.ExtendTo); err != nil {
			return -1
		}
		return 0

	case types.FuncLog:
		var params types.LogParams
		if err := json.Unmarshal(argData, &params); err != nil {
			return -1
		}
		e.env.Log(params.Event, params.KeyValues...)
		return 0

	default:
		return -1
	}
}

// handleHostGetBuffer serves host calls that read data back into the
// contract's buffer. It returns the number of bytes written, 0 for an
// absent record and -1 on failure.
func (e *Engine) handleHostGetBuffer(m api.Module, funcID uint32, argData []byte, offset uint32) int32 {
	mem := m.Memory()
	if mem == nil {
		return -1
	}

	switch types.WasmFunctionID(funcID) {
	case types.FuncGetSender:
		sender := e.sender
		if !mem.Write(offset, sender[:]) {
			return -1
		}
		return int32(len(sender))

	case types.FuncStorageHas:
		var params types.StorageHasParams
		if err := json.Unmarshal(argData, &params); err != nil {
			return -1
		}
		store, err := e.storeForScope(params.Scope)
		if err != nil {
			return -1
		}
		ok, err := store.Has(params.Key)
		if err != nil {
			return -1
		}
		if ok {
			return 1
		}
		return 0

	case types.FuncStorageGet:
		var params types.StorageGetParams
		if err := json.Unmarshal(argData, &params); err != nil {
			return -1
		}
		store, err := e.storeForScope(params.Scope)
		if err != nil {
			return -1
		}
		data, err := store.Get(params.Key)
		if err != nil {
			return -1
		}
		if data == nil {
			return 0
		}
		if !mem.Write(offset, data) {
			return -1
		}
		return int32(len(data))

	default:
		return -1
	}
}

// Close closes the engine.
func (e *Engine) Close() error {
	if e.envModule != nil {
		if err := e.envModule.Close(e.ctx); err != nil {
			return fmt.Errorf("failed to close env module: %w", err)
		}
	}
	return nil
}
