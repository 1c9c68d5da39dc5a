// Package cryptox derives the login material exchanged with the server.
// The password never leaves the client; only the verifier does.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

const (
	SaltSize = 16
	KeySize  = 32
)

// DeriveMasterKey stretches password with argon2id.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, KeySize)
}

// MakeVerifier hashes the master key into the value stored by the server.
func MakeVerifier(masterKey []byte) []byte {
	sum := sha256.Sum256(masterKey)
	return sum[:]
}

// VerifierEqual compares verifiers in constant time.
func VerifierEqual(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}
