package embed

import "context"

// Client generates embedding vectors for batches of document text. The
// returned slice holds one vector per input, in input order.
type Client interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}
