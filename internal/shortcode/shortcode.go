// Package shortcode generates the random alphanumeric keys used as short URLs.
package shortcode

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	Alphabet                 = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	DefaultLength            = 6
	TriesToGenerateUniqueKey = 10
)

// ErrExhausted is returned when no free key was found in TriesToGenerateUniqueKey attempts.
var ErrExhausted = errors.New("the number of attempts to generate a unique key has been exceeded")

// ExistenceChecker tells whether a key is already taken.
type ExistenceChecker interface {
	IsShortExists(ctx context.Context, short string) (bool, error)
}

// Generator produces keys of a fixed length.
type Generator struct {
	length int
}

// New returns a Generator for keys of the given length.
// Non-positive lengths fall back to DefaultLength.
func New(length int) *Generator {
	if length <= 0 {
		length = DefaultLength
	}

	return &Generator{length: length}
}

// Generate returns a random key without checking it against any storage.
func (g *Generator) Generate() (string, error) {
	result := make([]byte, g.length)
	max := big.NewInt(int64(len(Alphabet)))
	for i := range result {
		randomIndex, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("in internal/shortcode/shortcode.go/Generate(): error while `rand.Int()` calling: %w", err)
		}
		result[i] = Alphabet[randomIndex.Int64()]
	}

	return string(result), nil
}

// GenerateUnique returns a key the checker does not know yet.
func (g *Generator) GenerateUnique(ctx context.Context, checker ExistenceChecker) (string, error) {
	for i := 0; i < TriesToGenerateUniqueKey; i++ {
		short, err := g.Generate()
		if err != nil {
			return "", err
		}

		exists, err := checker.IsShortExists(ctx, short)
		if err != nil {
			return "", err
		}
		if !exists {
			return short, nil
		}
	}

	return "", ErrExhausted
}
