package sparsemat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Variant tags used in the serialized form of a WeightMat.
const (
	weightTagSparse uint8 = 0
	weightTagDense  uint8 = 1
)

// ErrBadWeightTag is returned when a serialized weight matrix carries an
// unknown variant tag.
var ErrBadWeightTag = errors.New("unknown weight matrix variant tag")

// maxSliceLen bounds slice lengths read from untrusted input so that a
// corrupt length prefix fails cleanly instead of exhausting memory.
const maxSliceLen = 1 << 40

func writeLen(w io.Writer, n int) error {
	return binary.Write(w, binary.LittleEndian, uint64(n))
}

func readLen(r io.Reader) (int, error) {
	var n uint64
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return 0, err
	}
	if n > maxSliceLen {
		return 0, fmt.Errorf("length prefix %d exceeds sanity bound", n)
	}
	return int(n), nil
}

// WriteTo serializes the weight matrix in little-endian binary form.
func (w *WeightMat) WriteTo(out io.Writer) error {
	if w.dense != nil {
		if err := binary.Write(out, binary.LittleEndian, weightTagDense); err != nil {
			return fmt.Errorf("write weight tag: %w", err)
		}
		rows, cols := w.dense.Shape()
		if err := writeLen(out, rows); err != nil {
			return fmt.Errorf("write dense rows: %w", err)
		}
		if err := writeLen(out, cols); err != nil {
			return fmt.Errorf("write dense cols: %w", err)
		}
		if err := binary.Write(out, binary.LittleEndian, w.dense.Data()); err != nil {
			return fmt.Errorf("write dense data: %w", err)
		}
		return nil
	}

	if err := binary.Write(out, binary.LittleEndian, weightTagSparse); err != nil {
		return fmt.Errorf("write weight tag: %w", err)
	}
	m := w.sparse
	if err := writeLen(out, m.outerDim); err != nil {
		return fmt.Errorf("write outer dim: %w", err)
	}
	if err := writeLen(out, m.innerDim); err != nil {
		return fmt.Errorf("write inner dim: %w", err)
	}
	if err := writeLen(out, len(m.outerInds)); err != nil {
		return fmt.Errorf("write outer count: %w", err)
	}
	if err := writeLen(out, len(m.data)); err != nil {
		return fmt.Errorf("write nnz: %w", err)
	}
	indptr := make([]uint64, len(m.indptr))
	for i, v := range m.indptr {
		indptr[i] = uint64(v)
	}
	if err := binary.Write(out, binary.LittleEndian, indptr); err != nil {
		return fmt.Errorf("write indptr: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, m.outerInds); err != nil {
		return fmt.Errorf("write outer indices: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, m.innerInds); err != nil {
		return fmt.Errorf("write inner indices: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, m.data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

// ReadWeightMat deserializes a weight matrix written by WriteTo.
func ReadWeightMat(in io.Reader) (*WeightMat, error) {
	var tag uint8
	if err := binary.Read(in, binary.LittleEndian, &tag); err != nil {
		return nil, fmt.Errorf("read weight tag: %w", err)
	}

	switch tag {
	case weightTagDense:
		rows, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read dense rows: %w", err)
		}
		cols, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read dense cols: %w", err)
		}
		dense := NewDenseMat(rows, cols)
		if err := binary.Read(in, binary.LittleEndian, dense.Data()); err != nil {
			return nil, fmt.Errorf("read dense data: %w", err)
		}
		return &WeightMat{dense: dense}, nil

	case weightTagSparse:
		outerDim, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read outer dim: %w", err)
		}
		innerDim, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read inner dim: %w", err)
		}
		nOuter, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read outer count: %w", err)
		}
		nnz, err := readLen(in)
		if err != nil {
			return nil, fmt.Errorf("read nnz: %w", err)
		}
		indptr64 := make([]uint64, nOuter+1)
		if err := binary.Read(in, binary.LittleEndian, indptr64); err != nil {
			return nil, fmt.Errorf("read indptr: %w", err)
		}
		m := &LilMat{
			outerDim:  outerDim,
			innerDim:  innerDim,
			indptr:    make([]int, nOuter+1),
			outerInds: make([]uint32, nOuter),
			innerInds: make([]uint32, nnz),
			data:      make([]float32, nnz),
		}
		for i, v := range indptr64 {
			m.indptr[i] = int(v)
		}
		if err := binary.Read(in, binary.LittleEndian, m.outerInds); err != nil {
			return nil, fmt.Errorf("read outer indices: %w", err)
		}
		if err := binary.Read(in, binary.LittleEndian, m.innerInds); err != nil {
			return nil, fmt.Errorf("read inner indices: %w", err)
		}
		if err := binary.Read(in, binary.LittleEndian, m.data); err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
		if m.indptr[0] != 0 || m.indptr[nOuter] != nnz {
			return nil, fmt.Errorf("inconsistent sparse storage: indptr does not span %d values", nnz)
		}
		return &WeightMat{sparse: m}, nil

	default:
		return nil, fmt.Errorf("%w: %d", ErrBadWeightTag, tag)
	}
}
