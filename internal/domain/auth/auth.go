// Package auth models API keys that callers present to the checkout API.
//
// Keys are never stored in clear text: the database holds the hex-encoded
// HMAC-SHA256 of the key under a server-side pepper.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"slices"

	"github.com/go-faster/errors"
)

// Scopes granted to API keys.
const (
	ScopeCheckout   = "checkout"
	ScopeOrdersRead = "orders:read"
)

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// Key is a stored API key.
type Key struct {
	ID     int64
	Name   string
	Hash   string
	Scopes []string
}

// Allows reports whether the key was granted scope.
func (k Key) Allows(scope string) bool {
	return slices.Contains(k.Scopes, scope)
}

// Repository looks up and provisions API keys.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*Key, error)
	Create(ctx context.Context, name, hash string, scopes []string) (*Key, error)
}

// Hash returns the hex HMAC-SHA256 of key under pepper.
func Hash(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether stored equals the hash of key, in constant time.
func Verify(pepper []byte, key, stored string) bool {
	want, err := hex.DecodeString(stored)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hmac.Equal(mac.Sum(nil), want)
}
