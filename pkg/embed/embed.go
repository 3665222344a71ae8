// Package embed walks a fragment tree and stores an embedding vector
// beside every part that carries its own text. Parts that already have
// a sidecar are left alone, so an interrupted run can simply be started
// again.
package embed

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"golang.org/x/sync/errgroup"

	"pearldb/internal/timing"
	"pearldb/internal/util"
	"pearldb/pkg/logger"
	"pearldb/pkg/npy"
	"pearldb/pkg/parts"
)

const (
	DefaultBatchSize = 8
	DefaultMaxTokens = 8191
	DefaultEncoding  = "cl100k_base"
)

var (
	maxTries  = 5
	baseDelay = 2 * time.Second
)

// Params configures an embedding run.
type Params struct {
	// Root is the fragment tree to embed.
	Root string
	// BatchSize is the number of documents sent per request.
	BatchSize int
	// Concurrency limits the number of in-flight requests.
	Concurrency int
	// MaxTokens caps the length of each document before it is sent.
	// Zero falls back to DefaultMaxTokens.
	MaxTokens int
	// Encoding names the tiktoken encoding used to measure and cut
	// documents. Empty disables truncation.
	Encoding string
}

// Stats summarizes a finished embedding run.
type Stats struct {
	Parts    int
	Pending  int
	Embedded int
	Failed   int
}

// Run embeds every part under params.Root that has its own content and
// no sidecar yet. Documents are assembled with their titles, truncated
// to the token budget, and sent to the client in batches. A failed
// document is logged and skipped rather than aborting the run.
func Run(ctx context.Context, client Client, params Params) (*Stats, error) {
	if params.BatchSize < 1 {
		params.BatchSize = DefaultBatchSize
	}
	if params.Concurrency < 1 {
		params.Concurrency = 1
	}

	tree := parts.NewTree(params.Root)

	span := timing.Start("scan")
	found, err := tree.Walk()
	if err != nil {
		return nil, err
	}
	stats := &Stats{Parts: len(found)}
	pending := make([]string, 0, len(found))
	for _, path := range found {
		meta, err := tree.Meta(path)
		if err != nil {
			return nil, err
		}
		if meta.Content == "" {
			continue
		}
		if _, err := os.Stat(path + parts.EmbeddingSuffix); err == nil {
			continue
		}
		pending = append(pending, path)
	}
	stats.Pending = len(pending)
	span.Done("parts", stats.Parts, "pending", stats.Pending)

	if len(pending) == 0 {
		return stats, nil
	}

	// The tree caches are not safe for concurrent use, so every
	// document is assembled before the requests fan out.
	span = timing.Start("assemble")
	texts := make([]string, len(pending))
	for i, path := range pending {
		text, err := tree.Assemble(path, false)
		if err != nil {
			return nil, err
		}
		texts[i] = text
	}
	if params.Encoding != "" {
		if err := truncate(texts, params.Encoding, params.MaxTokens); err != nil {
			return nil, err
		}
	}
	span.Done("documents", len(texts))

	span = timing.Start("embed")
	mu := sync.Mutex{}
	progress := util.NewProgress("embed", len(pending))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(params.Concurrency)
	for start := 0; start < len(pending); start += params.BatchSize {
		end := start + params.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		paths := pending[start:end]
		batch := texts[start:end]
		g.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
				embedded, failed := embedBatch(gCtx, client, paths, batch)
				mu.Lock()
				stats.Embedded += embedded
				stats.Failed += failed
				progress.Add(len(paths))
				mu.Unlock()
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	span.Done("embedded", stats.Embedded, "failed", stats.Failed)

	return stats, nil
}

// embedBatch requests the vectors for one batch and writes the
// sidecars. When the batch request keeps failing, every document is
// retried on its own so one poisoned input cannot sink its batch.
func embedBatch(ctx context.Context, client Client, paths []string, texts []string) (embedded, failed int) {
	vectors, err := util.RetryWithBackoff(ctx, maxTries, baseDelay, func(ctx context.Context) ([][]float32, error) {
		return embedAll(ctx, client, texts)
	})
	if err == nil {
		return writeSidecars(paths, vectors)
	}
	logger.Warn("batch embedding failed, retrying documents individually", "err", err)

	for i := range texts {
		text := texts[i]
		vectors, err := util.RetryWithBackoff(ctx, maxTries, baseDelay, func(ctx context.Context) ([][]float32, error) {
			return embedAll(ctx, client, []string{text})
		})
		if err != nil {
			logger.Warn("failed to embed document", "path", paths[i], "err", err)
			failed++
			continue
		}
		e, f := writeSidecars(paths[i:i+1], vectors)
		embedded += e
		failed += f
	}
	return embedded, failed
}

func embedAll(ctx context.Context, client Client, texts []string) ([][]float32, error) {
	vectors, err := client.Embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: got %d, want %d", len(vectors), len(texts))
	}
	return vectors, nil
}

func writeSidecars(paths []string, vectors [][]float32) (embedded, failed int) {
	for i, vector := range vectors {
		if err := npy.WriteVector(paths[i]+parts.EmbeddingSuffix, vector); err != nil {
			logger.Warn("failed to write embedding", "path", paths[i], "err", err)
			failed++
			continue
		}
		embedded++
	}
	return embedded, failed
}

// truncate cuts every document down to maxTokens tokens in place.
func truncate(texts []string, encoding string, maxTokens int) error {
	if maxTokens < 1 {
		maxTokens = DefaultMaxTokens
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return err
	}
	for i, text := range texts {
		tokens := enc.Encode(text, nil, nil)
		if len(tokens) <= maxTokens {
			continue
		}
		texts[i] = enc.Decode(tokens[:maxTokens])
	}
	return nil
}
