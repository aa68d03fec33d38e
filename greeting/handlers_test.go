package greeting

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/greeting/core"
	"github.com/govm-net/greeting/storage/memory"
)

func mustMarshal(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func TestHandleDispatch(t *testing.T) {
	r := NewRegistry(memory.NewEnv())
	admin := addr(1)
	user := addr(2)

	_, err := r.Handle("initialize", mustMarshal(t, InitializeParams{Admin: admin}))
	require.NoError(t, err)

	result, err := r.Handle("greet", mustMarshal(t, GreetParams{User: user, Name: "Ana"}))
	require.NoError(t, err)
	assert.Equal(t, Reply, result)

	result, err = r.Handle("get_count", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), result)

	result, err = r.Handle("get_count_for_user", mustMarshal(t, UserParams{User: user}))
	require.NoError(t, err)
	assert.Equal(t, uint32(1), result)

	result, err = r.Handle("get_last_greeting", mustMarshal(t, UserParams{User: user}))
	require.NoError(t, err)
	assert.Equal(t, "Ana", result)

	_, err = r.Handle("reset_count", mustMarshal(t, ResetCountParams{Caller: admin}))
	require.NoError(t, err)

	result, err = r.Handle("get_count", nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), result)
}

func TestHandleErrorCodes(t *testing.T) {
	r := NewRegistry(memory.NewEnv())
	admin := addr(1)
	user := addr(2)

	// Admin-only call before initialize
	_, err := r.Handle("reset_count", mustMarshal(t, ResetCountParams{Caller: admin}))
	assert.Equal(t, core.CodeNotInitialized, core.CodeOf(err))

	_, err = r.Handle("initialize", mustMarshal(t, InitializeParams{Admin: admin}))
	require.NoError(t, err)

	_, err = r.Handle("initialize", mustMarshal(t, InitializeParams{Admin: admin}))
	assert.Equal(t, core.CodeAlreadyInitialized, core.CodeOf(err))

	_, err = r.Handle("greet", mustMarshal(t, GreetParams{User: user, Name: ""}))
	assert.Equal(t, core.CodeEmptyName, core.CodeOf(err))

	_, err = r.Handle("set_limit", mustMarshal(t, SetLimitParams{Caller: user, Limit: 2}))
	assert.Equal(t, core.CodeUnauthorized, core.CodeOf(err))

	_, err = r.Handle("set_limit", mustMarshal(t, SetLimitParams{Caller: admin, Limit: 2}))
	require.NoError(t, err)

	_, err = r.Handle("greet", mustMarshal(t, GreetParams{User: user, Name: "ABC"}))
	assert.Equal(t, core.CodeNameTooLong, core.CodeOf(err))
}

func TestHandleLastGreetingAbsent(t *testing.T) {
	r := NewRegistry(memory.NewEnv())

	result, err := r.Handle("get_last_greeting", mustMarshal(t, UserParams{User: addr(2)}))
	require.NoError(t, err)
	assert.Nil(t, result)
}

func TestHandleUnknownFunction(t *testing.T) {
	r := NewRegistry(memory.NewEnv())

	_, err := r.Handle("mint", nil)
	assert.Error(t, err)
}

func TestHandleBadParams(t *testing.T) {
	r := NewRegistry(memory.NewEnv())

	_, err := r.Handle("greet", []byte("not json"))
	assert.Error(t, err)
}
