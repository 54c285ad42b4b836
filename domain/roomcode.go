package domain

import (
	"math/rand/v2"
	"strings"
)

const (
	defaultAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	defaultCodeLength = 4
)

// CodeGenerator produces short random room codes. Codes are not
// cryptographically secure, and collisions between independent rooms
// are accepted rather than detected.
type CodeGenerator struct {
	alphabet string
	length   int
}

func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{alphabet: defaultAlphabet, length: defaultCodeLength}
}

// NewCodeGeneratorWith lets operators choose alphabet and length.
// Falls back to the defaults when given an empty alphabet or a
// non-positive length.
func NewCodeGeneratorWith(alphabet string, length int) *CodeGenerator {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}
	if length <= 0 {
		length = defaultCodeLength
	}
	return &CodeGenerator{alphabet: alphabet, length: length}
}

// Generate draws each position uniformly from the alphabet.
func (g *CodeGenerator) Generate() string {
	var sb strings.Builder
	sb.Grow(g.length)
	for range g.length {
		sb.WriteByte(g.alphabet[rand.IntN(len(g.alphabet))])
	}
	return sb.String()
}
