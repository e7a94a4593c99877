// Package cipher implements a reversible monoalphabetic substitution cipher
// over Unicode code points.
//
// A Mapping is an ordered, immutable table from one character to another.
// Encrypt looks each input character up in the table (falling back to its
// uppercase form and folding the result back to lowercase), and Decrypt is
// Encrypt under the reversed table. Characters without an entry pass
// through unchanged, so neither operation can fail.
package cipher

import (
	"maps"
	"slices"
	"strings"
)

// Pair is a single substitution entry.
type Pair struct {
	From rune
	To   rune
}

// Mapping is an insertion-ordered substitution table. The zero value and a
// nil *Mapping are both empty. A Mapping is never modified after
// construction, so it may be shared between goroutines.
type Mapping struct {
	pairs []Pair
	index map[rune]int
}

// NewMapping builds a mapping from pairs in the given order. A pair whose
// From is already present replaces the earlier value but keeps its position.
func NewMapping(pairs ...Pair) *Mapping {
	m := &Mapping{
		pairs: make([]Pair, 0, len(pairs)),
		index: make(map[rune]int, len(pairs)),
	}
	for _, p := range pairs {
		m.set(p.From, p.To)
	}
	return m
}

// FromMap builds a mapping from a Go map. Entries are ordered by key so the
// result does not depend on map iteration order.
func FromMap(src map[rune]rune) *Mapping {
	keys := slices.Sorted(maps.Keys(src))
	pairs := make([]Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, Pair{From: k, To: src[k]})
	}
	return NewMapping(pairs...)
}

func (m *Mapping) set(from, to rune) {
	if i, ok := m.index[from]; ok {
		m.pairs[i].To = to
		return
	}
	m.index[from] = len(m.pairs)
	m.pairs = append(m.pairs, Pair{From: from, To: to})
}

// Lookup returns the substitute for r.
func (m *Mapping) Lookup(r rune) (rune, bool) {
	if m == nil {
		return 0, false
	}
	i, ok := m.index[r]
	if !ok {
		return 0, false
	}
	return m.pairs[i].To, true
}

// Len returns the number of entries.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.pairs)
}

// Pairs returns a copy of the entries in insertion order.
func (m *Mapping) Pairs() []Pair {
	if m == nil {
		return nil
	}
	return slices.Clone(m.pairs)
}

// Keys returns the source characters in insertion order.
func (m *Mapping) Keys() []rune {
	keys := make([]rune, 0, m.Len())
	for _, p := range m.Pairs() {
		keys = append(keys, p.From)
	}
	return keys
}

// Values returns the substitutes in insertion order, duplicates included.
func (m *Mapping) Values() []rune {
	values := make([]rune, 0, m.Len())
	for _, p := range m.Pairs() {
		values = append(values, p.To)
	}
	return values
}

// Reverse is the method form of CreateReverseMapping.
func (m *Mapping) Reverse() *Mapping {
	return CreateReverseMapping(m)
}

// Equal reports whether both mappings hold the same entries, ignoring order.
func (m *Mapping) Equal(other *Mapping) bool {
	if m.Len() != other.Len() {
		return false
	}
	for _, p := range m.Pairs() {
		to, ok := other.Lookup(p.From)
		if !ok || to != p.To {
			return false
		}
	}
	return true
}

// String renders the mapping as space separated "K=V" entries.
func (m *Mapping) String() string {
	var b strings.Builder
	for i, p := range m.Pairs() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(p.From)
		b.WriteByte('=')
		b.WriteRune(p.To)
	}
	return b.String()
}

// CreateReverseMapping swaps key and value of every entry, in order. When
// several keys share a value the last of them wins, so the result can be
// smaller than m and decryption under it is lossy; ValidateMapping reports
// such tables. m is not modified.
func CreateReverseMapping(m *Mapping) *Mapping {
	reversed := &Mapping{
		pairs: make([]Pair, 0, m.Len()),
		index: make(map[rune]int, m.Len()),
	}
	for _, p := range m.Pairs() {
		reversed.set(p.To, p.From)
	}
	return reversed
}
