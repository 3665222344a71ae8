// Package build turns a fragment tree into a content-addressed document
// database.
package build

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"pearldb/internal/timing"
	"pearldb/internal/util"
	"pearldb/pkg/db"
	"pearldb/pkg/logger"
	"pearldb/pkg/parts"
	"pearldb/pkg/pca"

	"gonum.org/v1/gonum/mat"
)

// DefaultComponents is the number of principal components kept when no
// override is given.
const DefaultComponents = 128

// Params configures one database build.
type Params struct {
	// Root is the fragment tree to scan.
	Root string
	// Output is the database directory to create.
	Output string
	// SkipParts lists composite directories whose own documents are
	// excluded. Their children stay in the database but lose the edge
	// to the skipped parent.
	SkipParts []string
	// PCAComponents is the number of principal components kept when
	// reducing the embedding matrix.
	PCAComponents int
}

// Stats summarizes a finished build.
type Stats struct {
	Parts      int
	Documents  int
	Duplicates int
	Untitled   int
	Embeddings int
}

// Run builds the database at params.Output. The fragment tree is
// scanned, parent edges are recorded, every unique document is stored
// once, copyright and license notices are inherited down the tree, and
// the collected embeddings are reduced with PCA.
func Run(ctx context.Context, params Params) (*Stats, error) {
	if params.PCAComponents < 1 {
		params.PCAComponents = DefaultComponents
	}
	tree := parts.NewTree(params.Root)

	span := timing.Start("scan")
	found, err := tree.Walk()
	if err != nil {
		return nil, err
	}
	span.Done("parts", len(found))

	stats := &Stats{Parts: len(found)}
	b := newBuilder(tree, params.SkipParts)

	span = timing.Start("link")
	progress := util.NewProgress("link", len(found))
	for _, path := range found {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.link(path); err != nil {
			return nil, err
		}
		progress.Tick()
	}
	span.Done("edges", len(b.parents))

	w, err := db.NewWriter(params.Output)
	if err != nil {
		return nil, err
	}

	span = timing.Start("store")
	progress = util.NewProgress("store", len(b.order))
	for _, path := range b.order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.store(w, path, stats); err != nil {
			return nil, err
		}
		progress.Tick()
	}
	span.Done("documents", stats.Documents)

	if err := b.inherit(); err != nil {
		return nil, err
	}

	if len(b.embeddings) > 0 {
		span = timing.Start("pca")
		if err := b.reduce(w, params.PCAComponents); err != nil {
			return nil, err
		}
		stats.Embeddings = len(b.embeddings)
		span.Done("embeddings", stats.Embeddings)
	}

	if err := b.save(w); err != nil {
		return nil, err
	}
	return stats, nil
}

type builder struct {
	tree *parts.Tree
	skip map[string]bool

	infos map[string]*parts.Info
	order []string

	parents       map[parts.Hash]parts.Hash
	seen          map[parts.Hash]bool
	titles        map[parts.Hash]string
	urls          map[parts.Hash]string
	copyrights    map[parts.Hash]string
	licenses      map[parts.Hash]string
	conditions    map[parts.Hash]bool
	introductions map[parts.Hash]bool
	symptoms      map[parts.Hash]bool

	embeddings      [][]float64
	embeddingHashes []parts.Hash
}

func newBuilder(tree *parts.Tree, skipParts []string) *builder {
	skip := make(map[string]bool, len(skipParts))
	for _, path := range skipParts {
		skip[filepath.Clean(path)] = true
	}
	return &builder{
		tree:          tree,
		skip:          skip,
		infos:         make(map[string]*parts.Info),
		parents:       make(map[parts.Hash]parts.Hash),
		seen:          make(map[parts.Hash]bool),
		titles:        make(map[parts.Hash]string),
		urls:          make(map[parts.Hash]string),
		copyrights:    make(map[parts.Hash]string),
		licenses:      make(map[parts.Hash]string),
		conditions:    make(map[parts.Hash]bool),
		introductions: make(map[parts.Hash]bool),
		symptoms:      make(map[parts.Hash]bool),
	}
}

// info returns the cached Info for path, loading it on first use. Load
// order is preserved for the storage pass.
func (b *builder) info(path string) (*parts.Info, error) {
	if info, ok := b.infos[path]; ok {
		return info, nil
	}
	info, err := b.tree.Info(path)
	if err != nil {
		return nil, err
	}
	b.infos[path] = info
	b.order = append(b.order, path)
	return info, nil
}

// link loads one discovered part and records its parent edge. A part
// whose own composite directory is skipped is ignored entirely; a part
// sitting inside a skipped composite keeps its document but loses the
// edge. The parent part is loaded here even when it was never
// discovered itself, which covers tree roots referenced only as
// parents.
func (b *builder) link(path string) error {
	if b.skip[path+parts.PartsSuffix] {
		return nil
	}
	info, err := b.info(path)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if !strings.HasSuffix(dir, parts.PartsSuffix) || b.skip[dir] {
		return nil
	}
	parentInfo, err := b.info(strings.TrimSuffix(dir, parts.PartsSuffix))
	if err != nil {
		return err
	}
	// last edge wins when the same document hangs in several places
	b.parents[info.Hash] = parentInfo.Hash
	return nil
}

// store writes the document for one part unless its hash was stored
// already. Untitled documents are dropped but still count as seen, so a
// titled copy discovered later stays out as well.
func (b *builder) store(w *db.Writer, path string, stats *Stats) error {
	info := b.infos[path]
	if b.seen[info.Hash] {
		stats.Duplicates++
		return nil
	}
	b.seen[info.Hash] = true

	if !info.Title.Valid {
		logger.Warn("document has no title", "path", info.Path)
		stats.Untitled++
		return nil
	}

	document, err := b.tree.Assemble(path, true)
	if err != nil {
		return err
	}
	if err := w.SaveDocument(info.Hash, document); err != nil {
		return err
	}
	stats.Documents++

	if info.Embedding != nil {
		b.embeddings = append(b.embeddings, info.Embedding)
		b.embeddingHashes = append(b.embeddingHashes, info.Hash)
	}
	b.titles[info.Hash] = info.Title.Value
	if info.URL != "" {
		b.urls[info.Hash] = info.URL
	}
	if info.Copyright != "" {
		b.copyrights[info.Hash] = info.Copyright
	}
	if info.License != "" {
		b.licenses[info.Hash] = info.License
	}
	b.tag(info)
	return nil
}

// reduce fits the PCA mapping over the collected embeddings and stores
// the mapping, the projected matrix, and the row hashes.
func (b *builder) reduce(w *db.Writer, components int) error {
	cols := len(b.embeddings[0])
	if cols == 0 {
		return fmt.Errorf("embedding for %s is empty", b.embeddingHashes[0].Hex())
	}
	data := mat.NewDense(len(b.embeddings), cols, nil)
	for i, embedding := range b.embeddings {
		if len(embedding) != cols {
			return fmt.Errorf("embedding for %s has %d dimensions, want %d",
				b.embeddingHashes[i].Hex(), len(embedding), cols)
		}
		data.SetRow(i, embedding)
	}

	mapping, err := pca.Mapping(data, components)
	if err != nil {
		return err
	}
	return w.SaveEmbeddings(b.embeddingHashes, mapping, pca.Project(data, mapping))
}

// save writes the remaining tables.
func (b *builder) save(w *db.Writer) error {
	if err := w.SaveParents(b.parents); err != nil {
		return err
	}
	if err := w.SaveTitles(b.titles); err != nil {
		return err
	}
	if err := w.SaveURLs(b.urls); err != nil {
		return err
	}
	if err := w.SaveCopyrights(b.copyrights); err != nil {
		return err
	}
	if err := w.SaveLicenses(b.licenses); err != nil {
		return err
	}
	if err := w.SaveTags(b.conditions, b.introductions, b.symptoms); err != nil {
		return err
	}
	return w.SaveReadme()
}
