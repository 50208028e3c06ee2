package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Generator produces fixed-length numeric verification codes with an
// expiry timestamp. Codes are drawn uniformly from crypto/rand; a
// predictable source here would defeat the verification guarantee.
type Generator struct {
	length int
	ttl    time.Duration
}

// NewGenerator creates a Generator for codes of the given length and
// validity window.
func NewGenerator(length int, ttl time.Duration) *Generator {
	return &Generator{length: length, ttl: ttl}
}

// Generate returns a numeric code and its expiry time.
func (g *Generator) Generate() (string, time.Time, error) {
	code := make([]byte, g.length)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", time.Time{}, fmt.Errorf("failed to generate code digit: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}
	return string(code), time.Now().Add(g.ttl), nil
}
