// Package authstate produces the unguessable state and nonce values bound to a login attempt.
package authstate

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// DefaultLength is the number of random bytes behind each value (256 bits).
const DefaultLength = 32

type Generator struct {
	length int
	rand   io.Reader
}

func New() *Generator {
	return &Generator{length: DefaultLength, rand: rand.Reader}
}

// NewWithReader is used by tests that need a deterministic or failing entropy source.
func NewWithReader(r io.Reader, length int) *Generator {
	return &Generator{length: length, rand: r}
}

// Generate returns a base64url encoded random value.
func (g *Generator) Generate() (string, error) {
	b := make([]byte, g.length)
	if _, err := io.ReadFull(g.rand, b); err != nil {
		return "", fmt.Errorf("[authstate Generate] failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
