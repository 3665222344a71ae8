package parts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Walk returns the part path of every descriptor under the tree root,
// depth-first with directory entries visited in name order. Composite
// directories are descended into; the root directory is descended into
// regardless of its name. Entries that disappear during the walk are
// skipped.
func (t *Tree) Walk() ([]string, error) {
	var found []string
	stack := []string{t.root}
	for len(stack) > 0 {
		path := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		info, err := os.Stat(path)
		if err != nil {
			if path == t.root {
				return nil, fmt.Errorf("failed to scan parts root: %w", err)
			}
			continue
		}
		if info.IsDir() && (path == t.root || strings.HasSuffix(path, PartsSuffix)) {
			entries, err := os.ReadDir(path)
			if err != nil {
				return nil, fmt.Errorf("failed to list %s: %w", path, err)
			}
			for i := len(entries) - 1; i >= 0; i-- {
				stack = append(stack, filepath.Join(path, entries[i].Name()))
			}
		}
		if info.Mode().IsRegular() && strings.HasSuffix(path, MetaSuffix) {
			found = append(found, strings.TrimSuffix(path, MetaSuffix))
		}
	}
	return found, nil
}
