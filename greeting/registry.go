// Package greeting implements the greeting registry contract: a global
// greeting counter with per-user counters and last-greeting records, plus
// an admin-managed character limit and admin transfer.
//
// The contract owns no state of its own. Everything is read and written
// through the host storage environment, and every rejection happens before
// the first write, so a failed call never changes state.
package greeting

import (
	"fmt"

	"github.com/govm-net/greeting/core"
	"github.com/govm-net/greeting/storage"
)

const (
	// DefaultCharacterLimit bounds greeting length when no limit record exists.
	DefaultCharacterLimit uint32 = 32

	// Reply is the fixed value returned by a successful Greet.
	Reply = "Hola"

	// TTL watermarks used when refreshing storage records
	ttlThreshold uint32 = 100
	ttlExtendTo  uint32 = 100
)

// Registry is the greeting contract bound to a host storage environment.
type Registry struct {
	env storage.Env
}

// NewRegistry creates a registry running against env.
func NewRegistry(env storage.Env) *Registry {
	return &Registry{env: env}
}

// Initialize stores the admin identity, zeroes the greeting counter and
// sets the default character limit. It can succeed at most once per
// environment; a second call fails and leaves the first state intact.
func (r *Registry) Initialize(admin core.Address) error {
	inst := r.env.Instance()
	ok, err := inst.Has(storage.AdminKey())
	if err != nil {
		return fmt.Errorf("failed to check admin record: %w", err)
	}
	if ok {
		return core.ErrAlreadyInitialized
	}

	if err := setJSON(inst, storage.AdminKey(), admin); err != nil {
		return err
	}
	if err := setJSON(inst, storage.GreetingCountKey(), uint32(0)); err != nil {
		return err
	}
	if err := setJSON(inst, storage.CharacterLimitKey(), DefaultCharacterLimit); err != nil {
		return err
	}
	if err := r.env.ExtendInstanceTTL(ttlThreshold, ttlExtendTo); err != nil {
		return err
	}

	r.env.Log("initialized", "admin", admin)
	return nil
}

// SetLimit overwrites the character limit. Admin only.
func (r *Registry) SetLimit(caller core.Address, limit uint32) error {
	if err := r.requireAdmin(caller); err != nil {
		return err
	}

	if err := setJSON(r.env.Instance(), storage.CharacterLimitKey(), limit); err != nil {
		return err
	}
	if err := r.env.ExtendInstanceTTL(ttlThreshold, ttlExtendTo); err != nil {
		return err
	}

	r.env.Log("limit_updated", "caller", caller, "limit", limit)
	return nil
}

// Greet records a greeting by user and returns the fixed reply. The name
// must be non-empty and its canonical serialized form must fit the active
// character limit. Both checks run before any write.
func (r *Registry) Greet(user core.Address, name string) (string, error) {
	if name == "" {
		return "", core.ErrEmptyName
	}

	limit, err := r.characterLimit()
	if err != nil {
		return "", err
	}
	if uint32(len(storage.CanonicalBytes(name))) > limit {
		return "", core.ErrNameTooLong
	}

	inst := r.env.Instance()
	count, err := getUint32(inst, storage.GreetingCountKey())
	if err != nil {
		return "", err
	}
	if err := setJSON(inst, storage.GreetingCountKey(), count+1); err != nil {
		return "", err
	}

	pers := r.env.Persistent()
	userKey := storage.UserCountKey(user)
	userCount, err := getUint32(pers, userKey)
	if err != nil {
		return "", err
	}
	if err := setJSON(pers, userKey, userCount+1); err != nil {
		return "", err
	}
	if err := pers.ExtendTTL(userKey, ttlThreshold, ttlExtendTo); err != nil {
		return "", err
	}

	lastKey := storage.LastGreetingKey(user)
	if err := setJSON(pers, lastKey, name); err != nil {
		return "", err
	}
	if err := pers.ExtendTTL(lastKey, ttlThreshold, ttlExtendTo); err != nil {
		return "", err
	}

	if err := r.env.ExtendInstanceTTL(ttlThreshold, ttlExtendTo); err != nil {
		return "", err
	}

	r.env.Log("greeted", "user", user, "name", name, "count", count+1)
	return Reply, nil
}

// Count returns the global greeting counter, 0 when absent.
func (r *Registry) Count() (uint32, error) {
	return getUint32(r.env.Instance(), storage.GreetingCountKey())
}

// CountForUser returns user's greeting counter, 0 when absent.
func (r *Registry) CountForUser(user core.Address) (uint32, error) {
	return getUint32(r.env.Persistent(), storage.UserCountKey(user))
}

// LastGreeting returns the most recent greeting accepted for user.
// The second result reports whether one exists.
func (r *Registry) LastGreeting(user core.Address) (string, bool, error) {
	data, err := r.env.Persistent().Get(storage.LastGreetingKey(user))
	if err != nil {
		return "", false, fmt.Errorf("failed to read last greeting: %w", err)
	}
	if data == nil {
		return "", false, nil
	}
	var name string
	if err := storage.Unmarshal(data, &name); err != nil {
		return "", false, fmt.Errorf("failed to decode last greeting: %w", err)
	}
	return name, true, nil
}

// ResetCount zeroes the global greeting counter. Admin only. Per-user
// counters are untouched.
func (r *Registry) ResetCount(caller core.Address) error {
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := setJSON(r.env.Instance(), storage.GreetingCountKey(), uint32(0)); err != nil {
		return err
	}
	r.env.Log("count_reset", "caller", caller)
	return nil
}

// TransferAdmin hands the admin role to newAdmin. Admin only.
// The instance TTL is not refreshed here.
func (r *Registry) TransferAdmin(caller, newAdmin core.Address) error {
	if err := r.requireAdmin(caller); err != nil {
		return err
	}
	if err := setJSON(r.env.Instance(), storage.AdminKey(), newAdmin); err != nil {
		return err
	}
	r.env.Log("admin_transferred", "caller", caller, "admin", newAdmin)
	return nil
}

// admin returns the stored admin identity, or ErrNotInitialized when the
// admin record is absent.
func (r *Registry) admin() (core.Address, error) {
	data, err := r.env.Instance().Get(storage.AdminKey())
	if err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to read admin record: %w", err)
	}
	if data == nil {
		return core.ZeroAddress, core.ErrNotInitialized
	}
	var admin core.Address
	if err := storage.Unmarshal(data, &admin); err != nil {
		return core.ZeroAddress, fmt.Errorf("failed to decode admin record: %w", err)
	}
	return admin, nil
}

func (r *Registry) requireAdmin(caller core.Address) error {
	admin, err := r.admin()
	if err != nil {
		return err
	}
	if caller != admin {
		return core.ErrUnauthorized
	}
	return nil
}

// characterLimit returns the configured limit, falling back to the default
// when the record is absent.
func (r *Registry) characterLimit() (uint32, error) {
	data, err := r.env.Instance().Get(storage.CharacterLimitKey())
	if err != nil {
		return 0, fmt.Errorf("failed to read character limit: %w", err)
	}
	if data == nil {
		return DefaultCharacterLimit, nil
	}
	var limit uint32
	if err := storage.Unmarshal(data, &limit); err != nil {
		return 0, fmt.Errorf("failed to decode character limit: %w", err)
	}
	return limit, nil
}

func getUint32(s storage.Store, key []byte) (uint32, error) {
	data, err := s.Get(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read record: %w", err)
	}
	if data == nil {
		return 0, nil
	}
	var v uint32
	if err := storage.Unmarshal(data, &v); err != nil {
		return 0, fmt.Errorf("failed to decode record: %w", err)
	}
	return v, nil
}

func setJSON(s storage.Store, key []byte, v any) error {
	data, err := storage.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	if err := s.Set(key, data); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}
