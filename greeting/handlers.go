package greeting

import (
	"encoding/json"
	"fmt"

	"github.com/govm-net/greeting/core"
)

// Parameter types for the contract's wire surface. Calls arrive as a
// function name plus a JSON-encoded parameter object.

type InitializeParams struct {
	Admin core.Address `json:"admin,omitempty"`
}

type SetLimitParams struct {
	Caller core.Address `json:"caller,omitempty"`
	Limit  uint32       `json:"limit,omitempty"`
}

type GreetParams struct {
	User core.Address `json:"user,omitempty"`
	Name string       `json:"name,omitempty"`
}

type UserParams struct {
	User core.Address `json:"user,omitempty"`
}

type ResetCountParams struct {
	Caller core.Address `json:"caller,omitempty"`
}

type TransferAdminParams struct {
	Caller   core.Address `json:"caller,omitempty"`
	NewAdmin core.Address `json:"new_admin,omitempty"`
}

// Handle dispatches a contract call by function name. The returned value is
// the function's result, nil for functions without one.
func (r *Registry) Handle(function string, params []byte) (any, error) {
	switch function {
	case "initialize":
		return r.handleInitialize(params)
	case "set_limit":
		return r.handleSetLimit(params)
	case "greet":
		return r.handleGreet(params)
	case "get_count":
		return r.Count()
	case "get_count_for_user":
		return r.handleCountForUser(params)
	case "get_last_greeting":
		return r.handleLastGreeting(params)
	case "reset_count":
		return r.handleResetCount(params)
	case "transfer_admin":
		return r.handleTransferAdmin(params)
	default:
		return nil, fmt.Errorf("function not found: %s", function)
	}
}

func unmarshalParams(params []byte, args any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, args); err != nil {
		return fmt.Errorf("failed to unmarshal params: %w", err)
	}
	return nil
}

func (r *Registry) handleInitialize(params []byte) (any, error) {
	var args InitializeParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return nil, r.Initialize(args.Admin)
}

func (r *Registry) handleSetLimit(params []byte) (any, error) {
	var args SetLimitParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return nil, r.SetLimit(args.Caller, args.Limit)
}

func (r *Registry) handleGreet(params []byte) (any, error) {
	var args GreetParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return r.Greet(args.User, args.Name)
}

func (r *Registry) handleCountForUser(params []byte) (any, error) {
	var args UserParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return r.CountForUser(args.User)
}

func (r *Registry) handleLastGreeting(params []byte) (any, error) {
	var args UserParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	name, ok, err := r.LastGreeting(args.User)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return name, nil
}

func (r *Registry) handleResetCount(params []byte) (any, error) {
	var args ResetCountParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return nil, r.ResetCount(args.Caller)
}

func (r *Registry) handleTransferAdmin(params []byte) (any, error) {
	var args TransferAdminParams
	if err := unmarshalParams(params, &args); err != nil {
		return nil, err
	}
	return nil, r.TransferAdmin(args.Caller, args.NewAdmin)
}
