package greeting

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/greeting/core"
	"github.com/govm-net/greeting/storage/memory"
)

func addr(b byte) core.Address {
	var a core.Address
	a[0] = b
	return a
}

func setupRegistry(t *testing.T) (*Registry, *memory.Env) {
	t.Helper()
	env := memory.NewEnv()
	return NewRegistry(env), env
}

func TestInitialize(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)

	require.NoError(t, r.Initialize(admin))

	// A second call always fails
	err := r.Initialize(addr(2))
	assert.ErrorIs(t, err, core.ErrAlreadyInitialized)

	// State from the first call is preserved: the original admin still
	// passes authorization
	assert.NoError(t, r.ResetCount(admin))
	assert.ErrorIs(t, r.ResetCount(addr(2)), core.ErrUnauthorized)
}

func TestAdminOperationsBeforeInitialize(t *testing.T) {
	r, _ := setupRegistry(t)
	caller := addr(1)

	assert.ErrorIs(t, r.SetLimit(caller, 10), core.ErrNotInitialized)
	assert.ErrorIs(t, r.ResetCount(caller), core.ErrNotInitialized)
	assert.ErrorIs(t, r.TransferAdmin(caller, addr(2)), core.ErrNotInitialized)
}

func TestGreet(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)
	user := addr(2)

	require.NoError(t, r.Initialize(admin))

	reply, err := r.Greet(user, "Ana")
	require.NoError(t, err)
	assert.Equal(t, Reply, reply)

	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	userCount, err := r.CountForUser(user)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), userCount)

	last, ok, err := r.LastGreeting(user)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", last)
}

func TestGreetEmptyName(t *testing.T) {
	r, _ := setupRegistry(t)
	user := addr(2)

	require.NoError(t, r.Initialize(addr(1)))

	_, err := r.Greet(user, "")
	assert.ErrorIs(t, err, core.ErrEmptyName)

	// No counter changed
	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)

	userCount, err := r.CountForUser(user)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), userCount)

	_, ok, err := r.LastGreeting(user)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGreetDefaultLimit(t *testing.T) {
	r, _ := setupRegistry(t)
	user := addr(2)

	require.NoError(t, r.Initialize(addr(1)))

	// 33 bytes exceeds the default limit of 32
	_, err := r.Greet(user, strings.Repeat("A", 33))
	assert.ErrorIs(t, err, core.ErrNameTooLong)

	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)

	// Exactly at the limit succeeds
	_, err = r.Greet(user, strings.Repeat("A", 32))
	assert.NoError(t, err)
}

func TestSetLimit(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)
	user := addr(2)

	require.NoError(t, r.Initialize(admin))
	require.NoError(t, r.SetLimit(admin, 2))

	_, err := r.Greet(user, "ABC")
	assert.ErrorIs(t, err, core.ErrNameTooLong)

	_, err = r.Greet(user, "AB")
	assert.NoError(t, err)

	// Raising the limit lets the longer name through
	require.NoError(t, r.SetLimit(admin, 40))
	_, err = r.Greet(user, strings.Repeat("A", 33))
	assert.NoError(t, err)
}

func TestSetLimitUnauthorized(t *testing.T) {
	r, _ := setupRegistry(t)

	require.NoError(t, r.Initialize(addr(1)))
	assert.ErrorIs(t, r.SetLimit(addr(2), 10), core.ErrUnauthorized)
}

func TestGreetCanonicalLength(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)
	user := addr(2)

	require.NoError(t, r.Initialize(admin))
	require.NoError(t, r.SetLimit(admin, 2))

	// "ñ" is one character but two bytes in canonical form
	_, err := r.Greet(user, "ñ")
	assert.NoError(t, err)

	require.NoError(t, r.SetLimit(admin, 1))
	_, err = r.Greet(user, "ñ")
	assert.ErrorIs(t, err, core.ErrNameTooLong)

	// The decomposed spelling (n + combining tilde, 3 bytes raw)
	// normalizes to the same 2-byte form
	require.NoError(t, r.SetLimit(admin, 2))
	_, err = r.Greet(user, "ñ")
	assert.NoError(t, err)
}

func TestCountsIndependentPerUser(t *testing.T) {
	r, _ := setupRegistry(t)
	alice := addr(2)
	bob := addr(3)

	require.NoError(t, r.Initialize(addr(1)))

	for i := 0; i < 3; i++ {
		_, err := r.Greet(alice, "Ana")
		require.NoError(t, err)
	}
	_, err := r.Greet(bob, "Bob")
	require.NoError(t, err)

	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(4), count)

	aliceCount, err := r.CountForUser(alice)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), aliceCount)

	bobCount, err := r.CountForUser(bob)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), bobCount)

	last, ok, err := r.LastGreeting(alice)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Ana", last)
}

func TestResetCount(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)
	user := addr(2)

	require.NoError(t, r.Initialize(admin))
	_, err := r.Greet(user, "Ana")
	require.NoError(t, err)

	// Non-admin reset is rejected and changes nothing
	assert.ErrorIs(t, r.ResetCount(user), core.ErrUnauthorized)
	count, err := r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), count)

	// Admin reset zeroes the global counter but not the per-user one
	require.NoError(t, r.ResetCount(admin))

	count, err = r.Count()
	require.NoError(t, err)
	assert.Equal(t, uint32(0), count)

	userCount, err := r.CountForUser(user)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), userCount)
}

func TestTransferAdmin(t *testing.T) {
	r, _ := setupRegistry(t)
	admin := addr(1)
	next := addr(2)

	require.NoError(t, r.Initialize(admin))

	assert.ErrorIs(t, r.TransferAdmin(next, next), core.ErrUnauthorized)

	require.NoError(t, r.TransferAdmin(admin, next))

	// Only the new admin passes authorization now
	assert.ErrorIs(t, r.ResetCount(admin), core.ErrUnauthorized)
	assert.NoError(t, r.ResetCount(next))
}

func TestGreetRefreshesTTL(t *testing.T) {
	r, env := setupRegistry(t)
	admin := addr(1)
	user := addr(2)

	require.NoError(t, r.Initialize(admin))
	_, err := r.Greet(user, "Ana")
	require.NoError(t, err)

	// Each greeting refreshes the user records, keeping them alive across
	// ledgers where an untouched record would expire
	for i := 0; i < 5; i++ {
		env.AdvanceLedger(80)
		_, err := r.Greet(user, "Ana")
		require.NoError(t, err)
	}

	userCount, err := r.CountForUser(user)
	require.NoError(t, err)
	assert.Equal(t, uint32(6), userCount)
}
