package storage

import (
	"github.com/govm-net/greeting/core"
)

// Key layout, one prefix byte per record kind.
//
// Instance scope:
//	'a'                admin identity
//	'c'                global greeting counter
//	'l'                character limit
// Persistent scope:
//	'u' + user_address per-user greeting counter
//	'g' + user_address last accepted greeting

// AdminKey returns the key of the admin record.
func AdminKey() []byte {
	return []byte{'a'}
}

// GreetingCountKey returns the key of the global greeting counter.
func GreetingCountKey() []byte {
	return []byte{'c'}
}

// CharacterLimitKey returns the key of the character limit record.
func CharacterLimitKey() []byte {
	return []byte{'l'}
}

// UserCountKey returns the key of a user's greeting counter.
func UserCountKey(user core.Address) []byte {
	return append([]byte{'u'}, user[:]...)
}

// LastGreetingKey returns the key of a user's last accepted greeting.
func LastGreetingKey(user core.Address) []byte {
	return append([]byte{'g'}, user[:]...)
}
