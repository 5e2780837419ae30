// Package codegen provides short code generation.
// Generators should be safe for concurrent use.
package codegen

import (
	"errors"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the 62-character set short codes are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// base62Generator draws every character uniformly from Alphabet. nanoid masks
// random bytes and rejects out-of-range values instead of reducing them modulo 62.
type base62Generator struct{}

// NewBase62 returns a new base62 code generator.
func NewBase62() Generator {
	return base62Generator{}
}

// Generate generates a random base62 string of the specified length.
func (base62Generator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}
	return gonanoid.Generate(Alphabet, length)
}
