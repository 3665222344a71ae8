// Package pca fits principal component mappings over embedding matrices.
package pca

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Mapping computes the projection basis for the top principal components
// of data, one observation per row. The returned matrix holds one column
// per component, ordered by descending explained variance. A component
// count larger than the data dimension is clamped to it.
func Mapping(data *mat.Dense, components int) (*mat.Dense, error) {
	rows, cols := data.Dims()
	if rows < 2 {
		return nil, fmt.Errorf("need at least two observations, got %d", rows)
	}
	if components < 1 {
		return nil, fmt.Errorf("components must be positive, got %d", components)
	}
	if components > cols {
		components = cols
	}

	cov := mat.NewSymDense(cols, nil)
	stat.CovarianceMatrix(cov, data, nil)

	var eig mat.EigenSym
	if ok := eig.Factorize(cov, true); !ok {
		return nil, errors.New("eigendecomposition of covariance matrix failed")
	}
	var vectors mat.Dense
	eig.VectorsTo(&vectors)

	// eigenvalues come back ascending, the strongest components sit in
	// the last columns
	mapping := mat.NewDense(cols, components, nil)
	for j := 0; j < components; j++ {
		src := cols - 1 - j
		for i := 0; i < cols; i++ {
			mapping.Set(i, j, vectors.At(i, src))
		}
	}
	return mapping, nil
}

// Project multiplies data by mapping. The data is used as-is, without
// centering.
func Project(data, mapping *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Mul(data, mapping)
	return &out
}
