// Package npy reads and writes NumPy .npy array files.
package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sbinet/npyio"
)

// ReadVector loads a one-dimensional float32 or float64 array as
// float64. A single-row or single-column two-dimensional array is
// accepted too.
func ReadVector(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	shape := r.Header.Descr.Shape
	flat := len(shape) == 1 ||
		(len(shape) == 2 && (shape[0] == 1 || shape[1] == 1))
	if !flat {
		return nil, fmt.Errorf("%s holds a %v array, want a vector", path, shape)
	}

	switch dtype := strings.TrimLeft(r.Header.Descr.Type, "<>|="); dtype {
	case "f8":
		var values []float64
		if err := r.Read(&values); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		return values, nil
	case "f4":
		var values []float32
		if err := r.Read(&values); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		out := make([]float64, len(values))
		for i, v := range values {
			out[i] = float64(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%s holds %s values, want floats", path, dtype)
	}
}

// WriteVector writes values as a one-dimensional float32 array.
func WriteVector(path string, values []float32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := npyio.Write(f, values); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// WriteMatrix writes a rows by cols row-major float32 array.
func WriteMatrix(path string, rows, cols int, values []float32) error {
	if len(values) != rows*cols {
		return fmt.Errorf("matrix data length %d does not match %dx%d", len(values), rows, cols)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeMatrix(f, rows, cols, values); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

var magic = []byte{'\x93', 'N', 'U', 'M', 'P', 'Y'}

// writeMatrix emits format version 1.0: the magic string, the version,
// a little-endian header length, the space-padded header dictionary,
// then the raw values.
func writeMatrix(w io.Writer, rows, cols int, values []float32) error {
	header := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%d, %d), }", rows, cols)
	// pad so the data starts on a 64-byte boundary, newline last
	unpadded := len(magic) + 2 + 2 + len(header) + 1
	pad := (64 - unpadded%64) % 64
	header += strings.Repeat(" ", pad) + "\n"

	if _, err := w.Write(magic); err != nil {
		return err
	}
	if _, err := w.Write([]byte{1, 0}); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint16(len(header))); err != nil {
		return err
	}
	if _, err := io.WriteString(w, header); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, values)
}
