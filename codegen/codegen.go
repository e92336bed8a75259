// Package codegen provides short-code generation and alias validation.
// Generators should be safe for concurrent use.
package codegen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strings"
)

// DefaultAlphabet is alphanumeric with the ambiguous characters
// (0, O, 1, l, I) removed.
const DefaultAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

const (
	MinCodeLength = 1
	MaxCodeLength = 64
)

// Generator generates short codes.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate(length int) (string, error)
}

// randomGenerator implements Generator by drawing from crypto/rand
// over a fixed alphabet. It is safe for concurrent use.
type randomGenerator struct {
	alphabet string
}

// NewRandom returns a Generator producing random codes over the given
// alphabet. An empty alphabet falls back to DefaultAlphabet.
func NewRandom(alphabet string) (Generator, error) {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if err := validateAlphabet(alphabet); err != nil {
		return nil, err
	}
	return &randomGenerator{alphabet: alphabet}, nil
}

// Generate generates a random code of the specified length.
func (g *randomGenerator) Generate(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("length must be positive")
	}

	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	for i := range b {
		b[i] = g.alphabet[int(b[i])%len(g.alphabet)]
	}

	return string(b), nil
}

// ValidateAlias checks a caller-supplied alias against the alphabet and
// the [minLen, maxLen] bounds. Aliases share the uniqueness constraint
// with generated codes; charset and length are the only local checks.
func ValidateAlias(alias, alphabet string, minLen, maxLen int) error {
	if alphabet == "" {
		alphabet = DefaultAlphabet
	}
	if alias == "" {
		return errors.New("alias cannot be empty")
	}
	if len(alias) < minLen {
		return fmt.Errorf("alias too short (minimum %d characters)", minLen)
	}
	if len(alias) > maxLen {
		return fmt.Errorf("alias too long (maximum %d characters)", maxLen)
	}
	for _, c := range alias {
		if !strings.ContainsRune(alphabet, c) {
			return fmt.Errorf("alias contains character %q outside the allowed alphabet", c)
		}
	}
	return nil
}

func validateAlphabet(alphabet string) error {
	if len(alphabet) < 2 {
		return errors.New("alphabet must contain at least 2 characters")
	}
	seen := make(map[rune]bool, len(alphabet))
	for _, c := range alphabet {
		if c >= 0x80 {
			return fmt.Errorf("alphabet must be ASCII, found %q", c)
		}
		if seen[c] {
			return fmt.Errorf("alphabet contains duplicate character %q", c)
		}
		seen[c] = true
	}
	return nil
}
