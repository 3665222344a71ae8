package embed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"pearldb/pkg/npy"
	"pearldb/pkg/parts"
)

type fakeClient struct {
	mu          sync.Mutex
	batches     [][]string
	failInputs  map[string]bool
	shortchange bool
	dim         int
}

func (c *fakeClient) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.batches = append(c.batches, append([]string(nil), inputs...))
	for _, input := range inputs {
		if c.failInputs[input] {
			return nil, errors.New("model overloaded")
		}
	}
	out := make([][]float32, 0, len(inputs))
	for _, input := range inputs {
		vec := make([]float32, c.dim)
		vec[0] = float32(len(input))
		out = append(out, vec)
	}
	if c.shortchange && len(out) > 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

func quickRetries(t *testing.T) {
	t.Helper()
	savedTries, savedDelay := maxTries, baseDelay
	maxTries, baseDelay = 2, 0
	t.Cleanup(func() {
		maxTries, baseDelay = savedTries, savedDelay
	})
}

func writeText(t *testing.T, path, text string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatalf("unexpected write error: %v", err)
	}
}

func writePart(t *testing.T, path, text string) {
	t.Helper()
	if err := parts.WriteMeta(path, &parts.Meta{Content: filepath.Base(path) + ".md"}); err != nil {
		t.Fatalf("unexpected descriptor write error: %v", err)
	}
	writeText(t, path+".md", text)
}

// buildFragments lays out three embeddable parts, one composite without
// content, and one part that already has a sidecar.
func buildFragments(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writePart(t, filepath.Join(dir, "A"), "a text")
	writePart(t, filepath.Join(dir, "B"), "b text")
	writePart(t, filepath.Join(dir, "C"), "c text")
	if err := parts.WriteMeta(filepath.Join(dir, "Comp"), &parts.Meta{Title: parts.Some("Composite")}); err != nil {
		t.Fatalf("unexpected descriptor write error: %v", err)
	}
	done := filepath.Join(dir, "Done")
	writePart(t, done, "done text")
	if err := npy.WriteVector(done+parts.EmbeddingSuffix, []float32{9}); err != nil {
		t.Fatalf("unexpected sidecar write error: %v", err)
	}
	return dir
}

func TestRunWritesSidecars(t *testing.T) {
	dir := buildFragments(t)
	client := &fakeClient{dim: 4}

	stats, err := Run(context.Background(), client, Params{
		Root:        dir,
		BatchSize:   2,
		Concurrency: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Parts != 5 || stats.Pending != 3 || stats.Embedded != 3 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	wantBatches := [][]string{{"a text", "b text"}, {"c text"}}
	if len(client.batches) != len(wantBatches) {
		t.Fatalf("unexpected batch count: got %d, want %d", len(client.batches), len(wantBatches))
	}
	for i, want := range wantBatches {
		got := client.batches[i]
		if len(got) != len(want) {
			t.Fatalf("unexpected batch %d: got %v, want %v", i, got, want)
		}
		for j := range want {
			if got[j] != want[j] {
				t.Fatalf("unexpected batch %d: got %v, want %v", i, got, want)
			}
		}
	}

	vector, err := npy.ReadVector(filepath.Join(dir, "A") + parts.EmbeddingSuffix)
	if err != nil {
		t.Fatalf("unexpected sidecar read error: %v", err)
	}
	if len(vector) != 4 || vector[0] != float64(len("a text")) {
		t.Fatalf("unexpected vector: got %v", vector)
	}

	// the pre-existing sidecar is untouched
	vector, err = npy.ReadVector(filepath.Join(dir, "Done") + parts.EmbeddingSuffix)
	if err != nil {
		t.Fatalf("unexpected sidecar read error: %v", err)
	}
	if len(vector) != 1 || vector[0] != 9 {
		t.Fatalf("existing sidecar was overwritten: got %v", vector)
	}
}

func TestRunFallsBackToSingleDocuments(t *testing.T) {
	quickRetries(t)
	dir := buildFragments(t)
	client := &fakeClient{dim: 2, failInputs: map[string]bool{"b text": true}}

	stats, err := Run(context.Background(), client, Params{
		Root:        dir,
		BatchSize:   2,
		Concurrency: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Embedded != 2 || stats.Failed != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if _, err := os.Stat(filepath.Join(dir, "A") + parts.EmbeddingSuffix); err != nil {
		t.Fatalf("missing sidecar for healthy document: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "B") + parts.EmbeddingSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected no sidecar for failing document, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "C") + parts.EmbeddingSuffix); err != nil {
		t.Fatalf("missing sidecar for healthy document: %v", err)
	}

	single := false
	for _, batch := range client.batches {
		if len(batch) == 1 && batch[0] == "a text" {
			single = true
		}
	}
	if !single {
		t.Fatal("expected an individual retry for the healthy document")
	}
}

func TestRunCountMismatchFailsDocuments(t *testing.T) {
	quickRetries(t)
	dir := t.TempDir()
	writePart(t, filepath.Join(dir, "A"), "a text")
	writePart(t, filepath.Join(dir, "B"), "b text")
	client := &fakeClient{dim: 2, shortchange: true}

	stats, err := Run(context.Background(), client, Params{
		Root:        dir,
		BatchSize:   2,
		Concurrency: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Embedded != 0 || stats.Failed != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestRunNothingPending(t *testing.T) {
	dir := t.TempDir()
	done := filepath.Join(dir, "Done")
	writePart(t, done, "done text")
	if err := npy.WriteVector(done+parts.EmbeddingSuffix, []float32{1}); err != nil {
		t.Fatalf("unexpected sidecar write error: %v", err)
	}
	client := &fakeClient{dim: 2}

	stats, err := Run(context.Background(), client, Params{Root: dir})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Parts != 1 || stats.Pending != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(client.batches) != 0 {
		t.Fatalf("unexpected requests: %v", client.batches)
	}
}

func TestRunCanceled(t *testing.T) {
	quickRetries(t)
	dir := t.TempDir()
	writePart(t, filepath.Join(dir, "A"), "a text")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Run(ctx, &fakeClient{dim: 2}, Params{Root: dir}); !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "A") + parts.EmbeddingSuffix); !os.IsNotExist(err) {
		t.Fatalf("expected no sidecar after cancellation, got %v", err)
	}
}
