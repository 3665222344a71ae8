package parts

import (
	"encoding/json"
	"fmt"
	"os"
)

// Opt is an optional value. It distinguishes a descriptor field that is
// absent or null from one that is present with a zero value.
type Opt[T any] struct {
	Value T
	Valid bool
}

// Some returns a valid Opt holding value.
func Some[T any](value T) Opt[T] {
	return Opt[T]{Value: value, Valid: true}
}

// IsZero reports whether the value is absent, so invalid fields drop out
// of encoded descriptors via the omitzero tag.
func (o Opt[T]) IsZero() bool {
	return !o.Valid
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if !o.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

func (o *Opt[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*o = Opt[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &o.Value); err != nil {
		return err
	}
	o.Valid = true
	return nil
}

// Meta is the descriptor stored beside each part. Content names the
// part's text file and Parts the child parts of a composite, both
// relative to the directory containing the part.
type Meta struct {
	Title     Opt[string] `json:"title,omitzero"`
	URL       string      `json:"url,omitempty"`
	Copyright string      `json:"copyright,omitempty"`
	License   string      `json:"license,omitempty"`
	Content   string      `json:"content,omitempty"`
	Parts     []string    `json:"parts,omitzero"`
}

// MetaPath returns the descriptor path for the part at path.
func MetaPath(path string) string {
	return path + MetaSuffix
}

// Meta reads and decodes the descriptor beside path.
func (t *Tree) Meta(path string) (*Meta, error) {
	data, err := os.ReadFile(MetaPath(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor for %s: %w", path, err)
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to decode descriptor for %s: %w", path, err)
	}
	return &meta, nil
}

// WriteMeta encodes meta and writes it beside path.
func WriteMeta(path string, meta *Meta) error {
	data, err := json.MarshalIndent(meta, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(MetaPath(path), data, 0o644)
}
