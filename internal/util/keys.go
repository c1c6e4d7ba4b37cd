package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// maxRawKey bounds the user-key portion of a storage key so backends
// with key-length limits stay within them.
const maxRawKey = 128

// Prefix returns the backend keyspace a named cache owns.
func Prefix(name string) string { return "excache:" + name + ":" }

// StorageKey builds the backend key for a cache entry. User keys longer
// than maxRawKey are replaced by a sha256 prefix.
func StorageKey(name, key string) string {
	p := Prefix(name)
	if len(key) <= maxRawKey {
		return p + key
	}
	sum := sha256.Sum256([]byte(key))
	return p + "h:" + hex.EncodeToString(sum[:16])
}
