// Package canonicalize provides RFC 8785 (JSON Canonicalization Scheme)
// compliant serialization for deterministic hashing of authorization state.
package canonicalize

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonicalizer lets an argument type supply its own canonical representation
// instead of the default JSON projection. The returned value must itself be
// JSON-serializable.
type Canonicalizer interface {
	CanonicalValue() any
}

// Value converts a raw argument into its canonical JSON-comparable form.
//
// Structured values are projected through encoding/json, which restricts the
// output to exported fields and honors json tags; unexported fields never
// reach the canonical form. Primitives pass through unchanged (as their JSON
// equivalents). Types implementing Canonicalizer are asked for their own
// representation first.
func Value(v any) (any, error) {
	if c, ok := v.(Canonicalizer); ok {
		v = c.CanonicalValue()
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: value not serializable: %w", err)
	}

	var generic any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonicalize: intermediate decode failed: %w", err)
	}
	return generic, nil
}

// JCS returns the RFC 8785 canonical JSON representation of v.
//
// Key features:
// 1. Map keys are sorted lexicographically by UTF-8 bytes.
// 2. HTML escaping is disabled (unlike standard json.Marshal).
// 3. Number formatting follows the ES6 serialization rules.
func JCS(v any) ([]byte, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("jcs: pre-marshal failed: %w", err)
	}

	canonical, err := jcs.Transform(intermediate)
	if err != nil {
		return nil, fmt.Errorf("jcs: transform failed: %w", err)
	}
	return canonical, nil
}

// CanonicalHash returns the SHA-256 hex digest of the canonical JSON
// representation of v.
func CanonicalHash(v any) (string, error) {
	b, err := JCS(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// HashBytes computes the SHA-256 hash of raw bytes and returns it hex encoded.
func HashBytes(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
