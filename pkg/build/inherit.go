package build

import (
	"fmt"
	"slices"

	"pearldb/pkg/parts"
)

// inherit copies the nearest ancestor copyright and license onto every
// stored document that lacks its own.
func (b *builder) inherit() error {
	if err := b.inheritValues("copyright", b.copyrights); err != nil {
		return err
	}
	return b.inheritValues("license", b.licenses)
}

// inheritValues walks the parent chain of each stored hash until a
// value turns up, then records it for the queried hash only. Ancestors
// without an entry, untitled ones included, are walked past. A hash
// revisited during one walk means the parent edges form a cycle, which
// is a data integrity error.
func (b *builder) inheritValues(field string, values map[parts.Hash]string) error {
	for _, hash := range sortedSeen(b.seen) {
		if _, ok := values[hash]; ok {
			continue
		}
		visited := map[parts.Hash]bool{hash: true}
		parent, ok := b.parents[hash]
		for ok {
			if visited[parent] {
				return fmt.Errorf("parent edges form a cycle at %s while inheriting %s", parent.Hex(), field)
			}
			visited[parent] = true
			if value, found := values[parent]; found {
				values[hash] = value
				break
			}
			parent, ok = b.parents[parent]
		}
	}
	return nil
}

func sortedSeen(seen map[parts.Hash]bool) []parts.Hash {
	hashes := make([]parts.Hash, 0, len(seen))
	for hash := range seen {
		hashes = append(hashes, hash)
	}
	slices.SortFunc(hashes, parts.Hash.Compare)
	return hashes
}
