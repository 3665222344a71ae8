// Package parts reads fragment trees: part descriptors, their content
// files, composite directories, and embedding sidecars.
package parts

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"pearldb/pkg/npy"
)

const (
	// MetaSuffix marks descriptor files. The part path is the descriptor
	// path with this suffix stripped.
	MetaSuffix = ".meta.json"
	// PartsSuffix marks the directory holding a composite part's children.
	PartsSuffix = ".parts"
	// EmbeddingSuffix marks the embedding sidecar stored beside a part.
	EmbeddingSuffix = ".npy"
)

// Tree provides cached access to the parts of one fragment tree.
// All caches are scoped to the Tree, so independent runs never observe
// each other's state. A Tree is not safe for concurrent use.
type Tree struct {
	root    string
	hashes  map[string]Hash
	strings map[string]string
}

// NewTree creates a Tree rooted at the given directory.
func NewTree(root string) *Tree {
	return &Tree{
		root:    filepath.Clean(root),
		hashes:  make(map[string]Hash),
		strings: make(map[string]string),
	}
}

// Root returns the cleaned root path of the tree.
func (t *Tree) Root() string {
	return t.root
}

// Intern returns a canonical instance of s. Descriptor values repeated
// across many parts, such as shared copyright statements, collapse to a
// single allocation.
func (t *Tree) Intern(s string) string {
	if s == "" {
		return ""
	}
	if v, ok := t.strings[s]; ok {
		return v
	}
	t.strings[s] = s
	return s
}

// Info captures the identity and descriptor fields of a single part.
// Embedding is nil when the part has no sidecar.
type Info struct {
	Hash      Hash
	Title     Opt[string]
	Embedding []float64
	URL       string
	Path      string
	Copyright string
	License   string
}

// Info loads the descriptor beside path and pairs it with the part's
// content hash and embedding sidecar, when one exists. A part whose
// descriptor is missing or unreadable keeps its hash; the descriptor
// fields stay unset.
func (t *Tree) Info(path string) (*Info, error) {
	hash, err := t.Hash(path)
	if err != nil {
		return nil, err
	}
	embedding, err := npy.ReadVector(path + EmbeddingSuffix)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read embedding for %s: %w", path, err)
	}
	info := &Info{Hash: hash, Embedding: embedding, Path: path}
	meta, err := t.Meta(path)
	if err != nil {
		return info, nil
	}
	info.Title = meta.Title
	info.URL = meta.URL
	info.Copyright = t.Intern(meta.Copyright)
	info.License = t.Intern(meta.License)
	return info, nil
}
