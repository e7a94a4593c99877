package cipher

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	// ErrEmptyMapping is reported for a mapping without entries.
	ErrEmptyMapping = errors.New("Mapping is empty")

	// ErrDuplicateValues is reported when two keys share a substitute.
	ErrDuplicateValues = errors.New("Mapping contains duplicate values")
)

// ValidationResult is the outcome of ValidateMapping.
type ValidationResult struct {
	Valid bool   `json:"valid"`
	Error string `json:"error,omitempty"`
}

// Err returns the sentinel matching the result, or nil when valid.
func (v ValidationResult) Err() error {
	switch v.Error {
	case "":
		return nil
	case ErrEmptyMapping.Error():
		return ErrEmptyMapping
	case ErrDuplicateValues.Error():
		return ErrDuplicateValues
	default:
		return errors.New(v.Error)
	}
}

// ValidateMapping checks that m is non-empty and injective. It does not
// require the mapping to cover any particular alphabet. Encrypt and Decrypt
// never call it; callers accepting custom tables decide what to do with the
// result.
func ValidateMapping(m *Mapping) ValidationResult {
	if m.Len() == 0 {
		return ValidationResult{Error: ErrEmptyMapping.Error()}
	}

	seen := make(map[rune]struct{}, m.Len())
	for _, v := range m.Values() {
		if _, dup := seen[v]; dup {
			return ValidationResult{Error: ErrDuplicateValues.Error()}
		}
		seen[v] = struct{}{}
	}

	return ValidationResult{Valid: true}
}

// Encrypt substitutes every character of text using m, or the default
// mapping when m is nil. For each character:
//
//   - an exact entry is emitted verbatim;
//   - otherwise the entry for its uppercase form is used, lowercased when
//     the character is a lowercase letter;
//   - otherwise the character is kept.
//
// Bytes that are not valid UTF-8 are copied through unchanged.
func Encrypt(text string, m *Mapping) string {
	if m == nil {
		m = defaultMapping
	}

	var b strings.Builder
	b.Grow(len(text))

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteByte(text[i])
			i += size
			continue
		}
		b.WriteRune(substitute(r, m))
		i += size
	}

	return b.String()
}

// Decrypt reverses Encrypt by encrypting under the reversed mapping. It is
// exact for mappings that pass ValidateMapping.
func Decrypt(text string, m *Mapping) string {
	if m == nil {
		m = defaultMapping
	}
	return Encrypt(text, CreateReverseMapping(m))
}

func substitute(r rune, m *Mapping) rune {
	if to, ok := m.Lookup(r); ok {
		return to
	}

	upper := unicode.ToUpper(r)
	to, ok := m.Lookup(upper)
	if !ok {
		return r
	}
	if isLowerLetter(r, upper) {
		return unicode.ToLower(to)
	}
	return to
}

// isLowerLetter excludes digits and symbols, which have no case.
func isLowerLetter(r, upper rune) bool {
	return unicode.ToLower(r) == r && upper != r
}

// Cipher binds a mapping to its reverse so that repeated decryption does
// not rebuild the reverse table.
type Cipher struct {
	forward *Mapping
	reverse *Mapping
}

// New creates a Cipher for m, or for the default mapping when m is nil.
func New(m *Mapping) *Cipher {
	if m == nil {
		m = defaultMapping
	}
	return &Cipher{
		forward: m,
		reverse: CreateReverseMapping(m),
	}
}

// Encrypt encrypts text with the bound mapping.
func (c *Cipher) Encrypt(text string) string {
	return Encrypt(text, c.forward)
}

// Decrypt decrypts text with the bound mapping.
func (c *Cipher) Decrypt(text string) string {
	return Encrypt(text, c.reverse)
}

// Mapping returns the forward mapping.
func (c *Cipher) Mapping() *Mapping {
	return c.forward
}

// Validate validates the forward mapping.
func (c *Cipher) Validate() ValidationResult {
	return ValidateMapping(c.forward)
}
