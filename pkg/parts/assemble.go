package parts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Assemble concatenates the document text of the part at path. The part's
// descriptor tree is walked depth-first; each part contributes its title
// as a heading, then its content file, then its children in descriptor
// order, all joined by blank lines. When elideTitle is set the heading of
// the root part is left out, so a document keeps the same text no matter
// which heading its tree hangs under.
func (t *Tree) Assemble(path string, elideTitle bool) (string, error) {
	var blocks []string
	stack := []string{path}
	firstTitle := true
	for len(stack) > 0 {
		part := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		meta, err := t.Meta(part)
		if err != nil {
			return "", err
		}
		elide := firstTitle && elideTitle
		firstTitle = false
		if !elide && meta.Title.Valid && meta.Title.Value != "" {
			blocks = append(blocks, "# "+meta.Title.Value)
		}
		if meta.Content != "" {
			data, err := os.ReadFile(filepath.Join(filepath.Dir(part), meta.Content))
			if err != nil {
				return "", fmt.Errorf("failed to read content for %s: %w", part, err)
			}
			blocks = append(blocks, string(data))
		}
		for i := len(meta.Parts) - 1; i >= 0; i-- {
			stack = append(stack, filepath.Join(filepath.Dir(part), meta.Parts[i]))
		}
	}
	return strings.Join(blocks, "\n\n"), nil
}
