// Package shareid derives short, content-addressed identifiers for shared
// ciphertexts.
package shareid

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
)

// DefaultPrefix is prepended to every generated ID
const DefaultPrefix = "bb_"

// Generator handles ID generation and recognition
type Generator struct {
	prefix    string
	hashLen   int
	maxLength int
	pattern   *regexp.Regexp
}

// NewGenerator creates a new ID generator
func NewGenerator(prefix string) *Generator {
	hashLen := 12 // Use first 12 characters of hash
	maxLength := len(prefix) + hashLen

	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `[a-f0-9]{` + fmt.Sprintf("%d", hashLen) + `}$`)

	return &Generator{
		prefix:    prefix,
		hashLen:   hashLen,
		maxLength: maxLength,
		pattern:   pattern,
	}
}

// Generate creates the ID for a given text. Equal texts get equal IDs.
func (g *Generator) Generate(text string) string {
	hash := sha256.Sum256([]byte(text))
	return g.prefix + hex.EncodeToString(hash[:])[:g.hashLen]
}

// MaxLength returns the length of every ID
func (g *Generator) MaxLength() int {
	return g.maxLength
}

// IsID checks if a string is a well-formed ID
func (g *Generator) IsID(s string) bool {
	return g.pattern.MatchString(s)
}
