// Package session keeps a plaintext and a ciphertext field in sync.
package session

import (
	"sync"
	"unicode/utf8"

	"github.com/hfi/betabet/pkg/cipher"
)

// Snapshot is a point-in-time copy of both fields
type Snapshot struct {
	Plaintext       string `json:"plaintext"`
	Ciphertext      string `json:"ciphertext"`
	PlaintextChars  int    `json:"plaintext_chars"`
	CiphertextChars int    `json:"ciphertext_chars"`
}

// Session holds the two text fields of a translator. Editing one field
// recomputes the other.
type Session struct {
	mu         sync.RWMutex
	cipher     *cipher.Cipher
	plaintext  string
	ciphertext string
}

// New creates an empty session. A nil cipher uses the default mapping.
func New(c *cipher.Cipher) *Session {
	if c == nil {
		c = cipher.New(nil)
	}
	return &Session{cipher: c}
}

// SetPlaintext replaces the plaintext and re-encrypts it
func (s *Session) SetPlaintext(text string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plaintext = text
	s.ciphertext = s.cipher.Encrypt(text)
	return s.snapshot()
}

// SetCiphertext replaces the ciphertext and decrypts it
func (s *Session) SetCiphertext(text string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ciphertext = text
	s.plaintext = s.cipher.Decrypt(text)
	return s.snapshot()
}

// Swap exchanges the two fields as they are, without recomputing either.
func (s *Session) Swap() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plaintext, s.ciphertext = s.ciphertext, s.plaintext
	return s.snapshot()
}

// Clear empties both fields
func (s *Session) Clear() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plaintext = ""
	s.ciphertext = ""
	return s.snapshot()
}

// Snapshot returns the current state
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Session) snapshot() Snapshot {
	return Snapshot{
		Plaintext:       s.plaintext,
		Ciphertext:      s.ciphertext,
		PlaintextChars:  utf8.RuneCountInString(s.plaintext),
		CiphertextChars: utf8.RuneCountInString(s.ciphertext),
	}
}
