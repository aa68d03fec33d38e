// Package db implements the storage environment on SQLite using GORM.
package db

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/govm-net/greeting/storage"
)

const (
	scopeInstance   = "instance"
	scopePersistent = "persistent"

	// Lifetime granted to a record on creation, in ledgers
	creationTTL = 100
)

// Record is one scoped key-value entry.
type Record struct {
	gorm.Model
	Scope     string `gorm:"column:scope;not null;uniqueIndex:idx_scope_key;size:16"`
	Key       string `gorm:"column:record_key;not null;uniqueIndex:idx_scope_key;size:128"`
	Value     []byte `gorm:"column:record_value;type:blob;not null"`
	LiveUntil uint32 `gorm:"column:live_until;not null;default:0"`
}

// TableName specifies the table name for Record
func (Record) TableName() string {
	return "records"
}

// ScopeTTL holds the lifetime shared by all records of the instance scope.
type ScopeTTL struct {
	Scope     string `gorm:"column:scope;primaryKey;size:16"`
	LiveUntil uint32 `gorm:"column:live_until;not null;default:0"`
}

// TableName specifies the table name for ScopeTTL
func (ScopeTTL) TableName() string {
	return "scope_ttl"
}

// Event is a contract event record.
type Event struct {
	gorm.Model
	EventName string `gorm:"column:event_name;not null;index;size:255"`
	KeyValues []byte `gorm:"column:key_values;type:blob;not null"` // JSON encoded key-value pairs
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}

// Env implements storage.Env backed by a SQLite database.
type Env struct {
	db     *gorm.DB
	ledger uint32
}

// NewEnv opens (or creates) the database at dbPath.
func NewEnv(dbPath string) (*Env, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}

	gdb, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := gdb.AutoMigrate(&Record{}, &ScopeTTL{}, &Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Env{db: gdb}, nil
}

// Ledger returns the current ledger sequence.
func (e *Env) Ledger() uint32 {
	return e.ledger
}

// SetLedger sets the ledger sequence records are aged against.
func (e *Env) SetLedger(seq uint32) {
	e.ledger = seq
}

// Instance implements storage.Env.
func (e *Env) Instance() storage.Store {
	return instanceStore{e}
}

// Persistent implements storage.Env.
func (e *Env) Persistent() storage.Store {
	return persistentStore{e}
}

// ExtendInstanceTTL implements storage.Env.
func (e *Env) ExtendInstanceTTL(threshold, extendTo uint32) error {
	var ttl ScopeTTL
	result := e.db.Where("scope = ?", scopeInstance).First(&ttl)
	if result.Error == gorm.ErrRecordNotFound {
		return fmt.Errorf("instance scope has no records")
	}
	if result.Error != nil {
		return fmt.Errorf("failed to get scope ttl: %w", result.Error)
	}
	if e.ledger > ttl.LiveUntil {
		return fmt.Errorf("instance scope has expired")
	}
	if ttl.LiveUntil-e.ledger < threshold {
		if err := e.db.Model(&ScopeTTL{}).Where("scope = ?", scopeInstance).
			Update("live_until", e.ledger+extendTo).Error; err != nil {
			return fmt.Errorf("failed to update scope ttl: %w", err)
		}
	}
	return nil
}

// Log implements storage.Env. Events are stored and mirrored to the log.
func (e *Env) Log(event string, keyValues ...any) {
	data, err := json.Marshal(keyValues)
	if err != nil {
		slog.Error("Failed to marshal event data", "error", err)
		return
	}

	record := &Event{
		EventName: event,
		KeyValues: data,
	}
	if err := e.db.Create(record).Error; err != nil {
		slog.Error("Failed to save event", "error", err)
		return
	}

	params := []any{"event", event}
	params = append(params, keyValues...)
	slog.Info("Contract event", params...)
}

func (e *Env) getRecord(scope string, key []byte) (*Record, error) {
	var rec Record
	result := e.db.Where("scope = ? AND record_key = ?", scope, hex.EncodeToString(key)).First(&rec)
	if result.Error == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get record: %w", result.Error)
	}
	return &rec, nil
}

func (e *Env) setRecord(scope string, key, value []byte) error {
	k := hex.EncodeToString(key)
	rec, err := e.getRecord(scope, key)
	if err != nil {
		return err
	}
	if rec == nil {
		rec = &Record{
			Scope:     scope,
			Key:       k,
			Value:     value,
			LiveUntil: e.ledger + creationTTL,
		}
		if err := e.db.Create(rec).Error; err != nil {
			return fmt.Errorf("failed to create record: %w", err)
		}
		return nil
	}

	updates := map[string]any{"record_value": value}
	if e.ledger > rec.LiveUntil {
		// Writing over an expired record recreates it
		updates["live_until"] = e.ledger + creationTTL
	}
	if err := e.db.Model(&Record{}).Where("scope = ? AND record_key = ?", scope, k).
		Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return nil
}

// instanceStore is the contract-wide scope. Lifetime lives in scope_ttl.
type instanceStore struct {
	env *Env
}

func (s instanceStore) scopeLive() (bool, error) {
	var ttl ScopeTTL
	result := s.env.db.Where("scope = ?", scopeInstance).First(&ttl)
	if result.Error == gorm.ErrRecordNotFound {
		return false, nil
	}
	if result.Error != nil {
		return false, fmt.Errorf("failed to get scope ttl: %w", result.Error)
	}
	return s.env.ledger <= ttl.LiveUntil, nil
}

func (s instanceStore) Has(key []byte) (bool, error) {
	live, err := s.scopeLive()
	if err != nil || !live {
		return false, err
	}
	rec, err := s.env.getRecord(scopeInstance, key)
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

func (s instanceStore) Get(key []byte) ([]byte, error) {
	live, err := s.scopeLive()
	if err != nil || !live {
		return nil, err
	}
	rec, err := s.env.getRecord(scopeInstance, key)
	if err != nil || rec == nil {
		return nil, err
	}
	return rec.Value, nil
}

func (s instanceStore) Set(key, value []byte) error {
	live, err := s.scopeLive()
	if err != nil {
		return err
	}
	if !live {
		// First live write (re)creates the scope lifetime
		ttl := ScopeTTL{Scope: scopeInstance, LiveUntil: s.env.ledger + creationTTL}
		if err := s.env.db.Where("scope = ?", scopeInstance).
			Assign(ScopeTTL{LiveUntil: ttl.LiveUntil}).
			FirstOrCreate(&ttl).Error; err != nil {
			return fmt.Errorf("failed to create scope ttl: %w", err)
		}
	}
	return s.env.setRecord(scopeInstance, key, value)
}

func (s instanceStore) ExtendTTL(key []byte, threshold, extendTo uint32) error {
	return s.env.ExtendInstanceTTL(threshold, extendTo)
}

// persistentStore is the per-entity scope with independent record lifetimes.
type persistentStore struct {
	env *Env
}

func (s persistentStore) Has(key []byte) (bool, error) {
	rec, err := s.env.getRecord(scopePersistent, key)
	if err != nil {
		return false, err
	}
	return rec != nil && s.env.ledger <= rec.LiveUntil, nil
}

func (s persistentStore) Get(key []byte) ([]byte, error) {
	rec, err := s.env.getRecord(scopePersistent, key)
	if err != nil {
		return nil, err
	}
	if rec == nil || s.env.ledger > rec.LiveUntil {
		return nil, nil
	}
	return rec.Value, nil
}

func (s persistentStore) Set(key, value []byte) error {
	return s.env.setRecord(scopePersistent, key, value)
}

func (s persistentStore) ExtendTTL(key []byte, threshold, extendTo uint32) error {
	rec, err := s.env.getRecord(scopePersistent, key)
	if err != nil {
		return err
	}
	if rec == nil || s.env.ledger > rec.LiveUntil {
		return fmt.Errorf("record not found")
	}
	if rec.LiveUntil-s.env.ledger < threshold {
		if err := s.env.db.Model(&Record{}).
			Where("scope = ? AND record_key = ?", scopePersistent, hex.EncodeToString(key)).
			Update("live_until", s.env.ledger+extendTo).Error; err != nil {
			return fmt.Errorf("failed to update record ttl: %w", err)
		}
	}
	return nil
}
