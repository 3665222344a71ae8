// Package db writes the content-addressed document database layout:
// sharded document files plus the hash-keyed metadata tables beside them.
package db

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"pearldb/pkg/npy"
	"pearldb/pkg/parts"

	"gonum.org/v1/gonum/mat"
)

// shardLevels is the number of leading hex characters used as nested
// directories under documents/.
const shardLevels = 3

const readme = "The copyright notices for the documents in the `documents/` directory can be found in the `copyrights.csv.gz` file.\n" +
	"The license terms for the documents in the `documents/` directory can be found in the `licenses.csv.gz` file.\n" +
	"Each line in the file `copyrights.csv`/`licenses.csv` files starts with a document's file name,\n" +
	"followed by a tab character and the copyright/license that applies to the document."

// Writer fills in one database directory.
type Writer struct {
	root string
}

// NewWriter creates the database directory if needed and returns a
// Writer rooted there.
func NewWriter(root string) (*Writer, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	return &Writer{root: root}, nil
}

// Root returns the database directory.
func (w *Writer) Root() string {
	return w.root
}

// SaveDocument stores assembled document text under documents/, sharded
// into nested single-character directories taken from the hash's leading
// hex characters.
func (w *Writer) SaveDocument(hash parts.Hash, document string) error {
	hexForm := hash.Hex()
	dir := filepath.Join(w.root, "documents")
	for _, c := range hexForm[:shardLevels] {
		dir = filepath.Join(dir, string(c))
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create document shard: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, hexForm+".md"), []byte(document), 0o644)
}

// SaveParents writes the child to parent edge table.
func (w *Writer) SaveParents(parents map[parts.Hash]parts.Hash) error {
	rows := make(map[parts.Hash]string, len(parents))
	for child, parent := range parents {
		rows[child] = parent.Hex()
	}
	return w.writeTable("parents.csv", rows, " ", false)
}

// SaveTitles writes the title table. Tabs inside titles become spaces.
func (w *Writer) SaveTitles(titles map[parts.Hash]string) error {
	return w.writeTable("titles.csv", titles, " ", false)
}

// SaveURLs writes the url table. Tabs inside urls become %09 so the
// value stays a working percent-encoded url.
func (w *Writer) SaveURLs(urls map[parts.Hash]string) error {
	return w.writeTable("urls.csv", urls, "%09", false)
}

// SaveCopyrights writes the gzip-compressed copyright table.
func (w *Writer) SaveCopyrights(copyrights map[parts.Hash]string) error {
	return w.writeTable("copyrights.csv.gz", copyrights, " ", true)
}

// SaveLicenses writes the gzip-compressed license table.
func (w *Writer) SaveLicenses(licenses map[parts.Hash]string) error {
	return w.writeTable("licenses.csv.gz", licenses, " ", true)
}

// SaveTags writes the topic flag files, one hex hash per line.
func (w *Writer) SaveTags(conditions, introductions, symptoms map[parts.Hash]bool) error {
	files := []struct {
		name string
		set  map[parts.Hash]bool
	}{
		{name: "is_condition.csv", set: conditions},
		{name: "is_introduction.csv", set: introductions},
		{name: "is_symptoms.csv", set: symptoms},
	}
	for _, file := range files {
		if err := w.writeHashList(file.name, sortedHashes(file.set)); err != nil {
			return err
		}
	}
	return nil
}

// SaveEmbeddings writes the PCA mapping, the projected embeddings, and
// the hash of each projected row in row order. File names carry the
// component count taken from the mapping's column dimension.
func (w *Writer) SaveEmbeddings(hashes []parts.Hash, mapping, projected *mat.Dense) error {
	_, components := mapping.Dims()
	name := fmt.Sprintf("embeddings_pca_%d", components)
	if err := w.saveMatrix(name+"_mapping.npy", mapping); err != nil {
		return err
	}
	if err := w.saveMatrix(name+".npy", projected); err != nil {
		return err
	}
	return w.writeHashList("embeddings_hash.csv", hashes)
}

// saveMatrix writes a dense matrix as a single-precision array file.
func (w *Writer) saveMatrix(name string, m *mat.Dense) error {
	rows, cols := m.Dims()
	values := make([]float32, 0, rows*cols)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			values = append(values, float32(m.At(i, j)))
		}
	}
	return npy.WriteMatrix(filepath.Join(w.root, name), rows, cols, values)
}

// SaveReadme writes the static database README.
func (w *Writer) SaveReadme() error {
	return os.WriteFile(filepath.Join(w.root, "README.md"), []byte(readme), 0o644)
}

// writeTable writes hash-keyed rows sorted by hash, one tab-separated
// line per row with tabs inside values replaced by escape.
func (w *Writer) writeTable(name string, rows map[parts.Hash]string, escape string, compressed bool) error {
	f, err := os.Create(filepath.Join(w.root, name))
	if err != nil {
		return err
	}
	var out io.Writer = f
	var gz *gzip.Writer
	if compressed {
		gz = gzip.NewWriter(f)
		out = gz
	}
	for _, hash := range sortedHashes(rows) {
		value := strings.ReplaceAll(rows[hash], "\t", escape)
		if _, err := fmt.Fprintf(out, "%s\t%s\n", hash.Hex(), value); err != nil {
			f.Close()
			return err
		}
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func (w *Writer) writeHashList(name string, hashes []parts.Hash) error {
	f, err := os.Create(filepath.Join(w.root, name))
	if err != nil {
		return err
	}
	for _, hash := range hashes {
		if _, err := fmt.Fprintf(f, "%s\n", hash.Hex()); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

func sortedHashes[V any](m map[parts.Hash]V) []parts.Hash {
	keys := make([]parts.Hash, 0, len(m))
	for h := range m {
		keys = append(keys, h)
	}
	slices.SortFunc(keys, parts.Hash.Compare)
	return keys
}
