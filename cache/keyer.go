package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DefaultNamespace prefixes keys when no namespace is configured.
const DefaultNamespace = "neuroscan"

// Keyer derives cache keys from raw upload content.
//
// Contract:
// - Determinism: identical bytes and variant always produce the same key.
// - Identity: only the content bytes participate; names and timestamps never do.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	Key(variant string, content []byte) (string, error)
}

// ContentKeyer derives keys of the form <namespace>:<variant>:<sha256 hex>.
type ContentKeyer struct {
	Namespace string
}

// NewContentKeyer creates a keyer for the given namespace. An empty
// namespace falls back to DefaultNamespace.
func NewContentKeyer(namespace string) *ContentKeyer {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &ContentKeyer{Namespace: namespace}
}

// Key implements Keyer.
func (k *ContentKeyer) Key(variant string, content []byte) (string, error) {
	return DeriveKey(k.Namespace, variant, content)
}

// DeriveKey hashes the entire content and joins it with namespace and variant.
// The full 64-character digest is kept so that inputs sharing any prefix
// still map to distinct keys.
func DeriveKey(namespace, variant string, content []byte) (string, error) {
	if len(content) == 0 {
		return "", ErrEmptyContent
	}
	if !ValidSegment(namespace) || !ValidSegment(variant) {
		return "", ErrInvalidKey
	}

	sum := sha256.Sum256(content)
	key := namespace + ":" + variant + ":" + hex.EncodeToString(sum[:])
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

// ValidSegment reports whether s can be used as a key namespace or variant.
func ValidSegment(s string) bool {
	if s == "" {
		return false
	}
	return !strings.ContainsAny(s, ": \t\n\r")
}

var _ Keyer = (*ContentKeyer)(nil)
