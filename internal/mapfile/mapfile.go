// Package mapfile loads custom substitution tables from YAML or TOML files.
//
// A table file is a flat key/value document whose keys and values are single
// characters, for example in YAML:
//
//	A: Z
//	B: Y
//	"1": "3"
//
// Entry order in the file is kept, which decides the winner when the
// reversed table has colliding keys.
package mapfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/hfi/betabet/pkg/cipher"
)

var (
	// ErrNotSingleCharacter is returned for a key or value that is not
	// exactly one character long.
	ErrNotSingleCharacter = errors.New("entry must be a single character")

	// ErrUnsupportedFormat is returned for unknown file extensions.
	ErrUnsupportedFormat = errors.New("unsupported mapping file format")
)

// Load reads the mapping table at path. The format is chosen by extension:
// .yaml/.yml or .toml. An empty path yields the default mapping.
func Load(path string) (*cipher.Mapping, error) {
	if path == "" {
		return cipher.DefaultMapping(), nil
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	case ".toml":
		return ParseTOML(data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// LoadValidated is Load followed by cipher.ValidateMapping. An invalid table
// is returned together with an error wrapping the validation sentinel so the
// caller can still report on it.
func LoadValidated(path string) (*cipher.Mapping, error) {
	m, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cipher.ValidateMapping(m).Err(); err != nil {
		return m, fmt.Errorf("invalid mapping %s: %w", path, err)
	}
	return m, nil
}

// ParseYAML parses a flat YAML mapping document.
func ParseYAML(data []byte) (*cipher.Mapping, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}
	if len(doc.Content) == 0 {
		return cipher.NewMapping(), nil
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("failed to parse mapping file: line %d: expected a mapping", root.Line)
	}

	pairs := make([]cipher.Pair, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode || value.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("line %d: %w", key.Line, ErrNotSingleCharacter)
		}
		pair, err := toPair(key.Value, value.Value)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", key.Line, err)
		}
		pairs = append(pairs, pair)
	}

	return cipher.NewMapping(pairs...), nil
}

// ParseTOML parses a flat TOML document of quoted keys and string values.
func ParseTOML(data []byte) (*cipher.Mapping, error) {
	var raw map[string]any
	md, err := toml.Decode(string(data), &raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mapping file: %w", err)
	}

	keys := md.Keys()
	pairs := make([]cipher.Pair, 0, len(keys))
	for _, k := range keys {
		if len(k) != 1 {
			return nil, fmt.Errorf("key %s: nested tables are not allowed: %w", k, ErrNotSingleCharacter)
		}
		value, ok := raw[k[0]].(string)
		if !ok {
			return nil, fmt.Errorf("key %s: value is not a string: %w", k, ErrNotSingleCharacter)
		}
		pair, err := toPair(k[0], value)
		if err != nil {
			return nil, fmt.Errorf("key %s: %w", k, err)
		}
		pairs = append(pairs, pair)
	}

	return cipher.NewMapping(pairs...), nil
}

// FromStrings converts a string keyed table, as decoded from JSON, into a
// mapping ordered by key.
func FromStrings(table map[string]string) (*cipher.Mapping, error) {
	src := make(map[rune]rune, len(table))
	for k, v := range table {
		pair, err := toPair(k, v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		src[pair.From] = pair.To
	}
	return cipher.FromMap(src), nil
}

func toPair(key, value string) (cipher.Pair, error) {
	from, ok := singleRune(key)
	if !ok {
		return cipher.Pair{}, fmt.Errorf("%w: key %q", ErrNotSingleCharacter, key)
	}
	to, ok := singleRune(value)
	if !ok {
		return cipher.Pair{}, fmt.Errorf("%w: value %q", ErrNotSingleCharacter, value)
	}
	return cipher.Pair{From: from, To: to}, nil
}

func singleRune(s string) (rune, bool) {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) || (r == utf8.RuneError && size == 1) {
		return 0, false
	}
	return r, true
}
