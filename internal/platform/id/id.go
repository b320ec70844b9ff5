// Package id generates compact lowercase identifiers.
package id

import (
	"encoding/base32"
	"strings"

	"github.com/google/uuid"
)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// namespace scopes derived identifiers so they never collide with other
// UUIDv5 users hashing the same names.
var namespace = uuid.MustParse("6f1c3d2e-8a4b-5c7d-9e0f-1a2b3c4d5e6f")

// NewID returns a random 26-character identifier.
func NewID() (string, error) {
	value, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return encode(value), nil
}

// Derive returns a deterministic identifier for the given parts. The same
// parts always produce the same identifier.
func Derive(parts ...string) string {
	return encode(uuid.NewSHA1(namespace, []byte(strings.Join(parts, "|"))))
}

func encode(value uuid.UUID) string {
	return strings.ToLower(encoding.EncodeToString(value[:]))
}
