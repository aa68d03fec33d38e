package storage

import (
	"encoding/json"

	"golang.org/x/text/unicode/norm"
)

// Marshal encodes a stored value as JSON
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal decodes a stored value
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// CanonicalBytes returns the canonical serialized form of a text value:
// NFC-normalized UTF-8. Length limits are enforced against this form, not
// against the character count, so two inputs rendering the same text
// measure the same.
func CanonicalBytes(s string) []byte {
	return []byte(norm.NFC.String(s))
}
