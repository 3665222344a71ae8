package pca

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestMappingRoundtrip(t *testing.T) {
	rng := rand.New(rand.NewSource(123))
	rows, cols := 100, 10
	data := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, rng.NormFloat64())
		}
	}

	mapping, err := Mapping(data, cols-1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	decomposed := Project(data, mapping)
	var recomposed mat.Dense
	recomposed.Mul(decomposed, mapping.T())

	// most of the variance survives dropping one component, so most
	// entries should recompose to within 10%
	within := 0
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			if math.Abs(1-data.At(i, j)/recomposed.At(i, j)) < 0.1 {
				within++
			}
		}
	}
	if ratio := float64(within) / float64(rows*cols); ratio <= 0.4 {
		t.Fatalf("unexpected recomposition quality: got %.2f, want > 0.4", ratio)
	}
}

func TestMappingFindsDominantDirection(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	rows := 200
	data := mat.NewDense(rows, 3, nil)
	for i := 0; i < rows; i++ {
		data.Set(i, 0, rng.NormFloat64()*100)
		data.Set(i, 1, rng.NormFloat64())
		data.Set(i, 2, rng.NormFloat64())
	}

	mapping, err := Mapping(data, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, c := mapping.Dims()
	if r != 3 || c != 1 {
		t.Fatalf("unexpected mapping dims: got %dx%d, want 3x1", r, c)
	}
	if got := math.Abs(mapping.At(0, 0)); got < 0.99 {
		t.Fatalf("first component misses dominant axis: |v0| = %v", got)
	}
}

func TestMappingColumnsOrthonormal(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	rows, cols := 50, 6
	data := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			data.Set(i, j, rng.NormFloat64())
		}
	}

	mapping, err := Mapping(data, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for a := 0; a < 4; a++ {
		for b := a; b < 4; b++ {
			dot := 0.0
			for i := 0; i < cols; i++ {
				dot += mapping.At(i, a) * mapping.At(i, b)
			}
			want := 0.0
			if a == b {
				want = 1.0
			}
			if math.Abs(dot-want) > 1e-8 {
				t.Fatalf("unexpected dot of columns %d,%d: got %v, want %v", a, b, dot, want)
			}
		}
	}
}

func TestMappingClampsComponents(t *testing.T) {
	data := mat.NewDense(5, 3, []float64{
		1, 0, 2,
		0, 1, 1,
		2, 1, 0,
		1, 2, 1,
		0, 0, 3,
	})
	mapping, err := Mapping(data, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, c := mapping.Dims()
	if r != 3 || c != 3 {
		t.Fatalf("unexpected mapping dims: got %dx%d, want 3x3", r, c)
	}
}

func TestMappingRejectsBadInput(t *testing.T) {
	data := mat.NewDense(5, 3, nil)
	if _, err := Mapping(data, 0); err == nil {
		t.Fatal("expected error for zero components, got nil")
	}
	single := mat.NewDense(1, 3, []float64{1, 2, 3})
	if _, err := Mapping(single, 2); err == nil {
		t.Fatal("expected error for single observation, got nil")
	}
}

func TestProjectSkipsCentering(t *testing.T) {
	data := mat.NewDense(2, 2, []float64{
		3, 5,
		4, 5,
	})
	mapping := mat.NewDense(2, 1, []float64{1, 0})
	out := Project(data, mapping)
	r, c := out.Dims()
	if r != 2 || c != 1 {
		t.Fatalf("unexpected projection dims: got %dx%d, want 2x1", r, c)
	}
	if out.At(0, 0) != 3 || out.At(1, 0) != 4 {
		t.Fatalf("projection was centered: got %v, %v, want 3, 4", out.At(0, 0), out.At(1, 0))
	}
}
