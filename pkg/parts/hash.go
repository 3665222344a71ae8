package parts

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
)

// Hash identifies a document by the first 16 bytes of the SHA-256 digest
// of its assembled, title-elided text. Parts assembling to the same text
// share a hash regardless of where they sit in the tree.
type Hash [16]byte

// HashDocument hashes assembled document text.
func HashDocument(document string) Hash {
	sum := sha256.Sum256([]byte(document))
	var hash Hash
	copy(hash[:], sum[:len(hash)])
	return hash
}

// Hex returns the lowercase hexadecimal form of the hash. The hex form
// is the primary key used throughout the database files.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

func (h Hash) String() string {
	return h.Hex()
}

// Compare orders hashes bytewise, which matches the lexicographic order
// of their hex forms.
func (h Hash) Compare(other Hash) int {
	return bytes.Compare(h[:], other[:])
}

// Hash returns the content hash of the part at path, assembling its
// title-elided document on first use and caching the result.
func (t *Tree) Hash(path string) (Hash, error) {
	if hash, ok := t.hashes[path]; ok {
		return hash, nil
	}
	document, err := t.Assemble(path, true)
	if err != nil {
		return Hash{}, err
	}
	hash := HashDocument(document)
	t.hashes[path] = hash
	return hash, nil
}
