// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import "fmt"

// Matrix is the uniform view over a compressed-sparse-column matrix
// regardless of whether its column pointers are 32-bit (CSC32) or
// 64-bit (CSC64). Kernels are written against this interface so the
// rank-sum, t-test, and fold-change reductions never need to know
// which pointer width backs the matrix they were handed.
type Matrix interface {
	// Dims returns (nrow, ncol).
	Dims() (int, int)
	// NNZ returns the total number of stored entries.
	NNZ() int64
	// ColRange returns the half-open range [start, end) into the
	// value/row-index arrays occupied by column c.
	ColRange(c int) (start, end int64)
	// RowAt and ValueAt access the k'th stored entry, 0 <= k < NNZ().
	RowAt(k int64) int32
	ValueAt(k int64) float64
	RowNames() []string
	ColNames() []string
}

// CSC32 is the common, sub-2^31-nonzero variant. Its column pointer
// array is int32, matching R's dgCMatrix and the 32-bit half of the
// dual pointer width design note.
type CSC32 struct {
	NRow, NCol int
	X          []float64
	I          []int32
	P          []int32
	Rownames   []string
	Colnames   []string
}

// CSC64 is the "large sparse matrix" variant: an int64 column
// pointer array so nnz may exceed 2^31-1. Structurally identical to
// CSC32 otherwise.
type CSC64 struct {
	NRow, NCol int
	X          []float64
	I          []int32
	P          []int64
	Rownames   []string
	Colnames   []string
}

func (m *CSC32) Dims() (int, int) { return m.NRow, m.NCol }
func (m *CSC32) NNZ() int64       { return int64(m.P[len(m.P)-1]) }
func (m *CSC32) ColRange(c int) (int64, int64) {
	return int64(m.P[c]), int64(m.P[c+1])
}
func (m *CSC32) RowAt(k int64) int32      { return m.I[k] }
func (m *CSC32) ValueAt(k int64) float64  { return m.X[k] }
func (m *CSC32) RowNames() []string       { return m.Rownames }
func (m *CSC32) ColNames() []string       { return m.Colnames }

func (m *CSC64) Dims() (int, int) { return m.NRow, m.NCol }
func (m *CSC64) NNZ() int64       { return m.P[len(m.P)-1] }
func (m *CSC64) ColRange(c int) (int64, int64) {
	return m.P[c], m.P[c+1]
}
func (m *CSC64) RowAt(k int64) int32     { return m.I[k] }
func (m *CSC64) ValueAt(k int64) float64 { return m.X[k] }
func (m *CSC64) RowNames() []string      { return m.Rownames }
func (m *CSC64) ColNames() []string      { return m.Colnames }

// NewCSC32 allocates an uninitialized 32-bit CSC triple of the given
// extent and nnz capacity. It panics if nnz exceeds maxInt32Nnz;
// callers taking nnz from outside input should check with
// FromArrays32 instead, which reports OverflowError rather than
// panicking.
func NewCSC32(nrow, ncol, nnz int) *CSC32 {
	if int64(nnz) > maxInt32Nnz {
		panic(fmt.Sprintf("NewCSC32: nnz %d exceeds int32 pointer capacity", nnz))
	}
	return &CSC32{
		NRow: nrow,
		NCol: ncol,
		X:    make([]float64, nnz),
		I:    make([]int32, nnz),
		P:    make([]int32, ncol+1),
	}
}

// NewCSC64 is the 64-bit-pointer analogue of NewCSC32.
func NewCSC64(nrow, ncol, nnz int64) *CSC64 {
	return &CSC64{
		NRow: int(nrow),
		NCol: int(ncol),
		X:    make([]float64, nnz),
		I:    make([]int32, nnz),
		P:    make([]int64, ncol+1),
	}
}

// FromArrays32 validates and takes ownership of a CSC32 triple. It
// fails with MalformedMatrix if any structural invariant is violated.
func FromArrays32(x []float64, i []int32, p []int32, nrow, ncol int, rownames, colnames []string) (*CSC32, error) {
	if n := len(x); int64(n) > maxInt32Nnz {
		return nil, newError(ErrOverflow, fmt.Sprintf("nnz %d exceeds int32 pointer capacity", n), nil)
	}
	m := &CSC32{NRow: nrow, NCol: ncol, X: x, I: i, P: p, Rownames: rownames, Colnames: colnames}
	if err := validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// FromArrays64 is the 64-bit-pointer analogue of FromArrays32.
func FromArrays64(x []float64, i []int32, p []int64, nrow, ncol int, rownames, colnames []string) (*CSC64, error) {
	m := &CSC64{NRow: nrow, NCol: ncol, X: x, I: i, P: p, Rownames: rownames, Colnames: colnames}
	if err := validate(m); err != nil {
		return nil, err
	}
	return m, nil
}

// validate walks p once and i once per column, O(nnz+ncol), checking
// that p is non-decreasing, p[0]=0,
// p[ncol]=nnz, row indices within each column are strictly ascending,
// and no stored value is exactly zero. Label vector lengths, when
// present, must match the matrix extent.
func validate(m Matrix) error {
	nrow, ncol := m.Dims()
	if nrow < 0 || ncol < 0 {
		return newError(ErrMalformedMatrix, fmt.Sprintf("negative dimension %dx%d", nrow, ncol), nil)
	}
	if len(m.RowNames()) != 0 && len(m.RowNames()) != nrow {
		return newError(ErrMalformedMatrix, fmt.Sprintf("rownames length %d != nrow %d", len(m.RowNames()), nrow), nil)
	}
	if len(m.ColNames()) != 0 && len(m.ColNames()) != ncol {
		return newError(ErrMalformedMatrix, fmt.Sprintf("colnames length %d != ncol %d", len(m.ColNames()), ncol), nil)
	}
	start0, _ := m.ColRange(0)
	if start0 != 0 {
		return newError(ErrMalformedMatrix, "p[0] != 0", nil)
	}
	nnz := m.NNZ()
	nx, ni := nnz, nnz
	switch t := m.(type) {
	case *CSC32:
		nx, ni = int64(len(t.X)), int64(len(t.I))
	case *CSC64:
		nx, ni = int64(len(t.X)), int64(len(t.I))
	}
	if nx != nnz || ni != nnz {
		return newError(ErrMalformedMatrix, fmt.Sprintf("p[ncol] %d != nnz (len(x) %d, len(i) %d)", nnz, nx, ni), nil)
	}
	prevEnd := int64(0)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		if start != prevEnd {
			return newError(ErrMalformedMatrix, fmt.Sprintf("p[%d] discontinuous", c), nil)
		}
		if end < start {
			return newError(ErrMalformedMatrix, fmt.Sprintf("p[%d] > p[%d]", c, c+1), nil)
		}
		prevRow := int32(-1)
		for k := start; k < end; k++ {
			row := m.RowAt(k)
			if row <= prevRow {
				return newError(ErrMalformedMatrix, fmt.Sprintf("row indices in column %d not strictly ascending", c), nil)
			}
			if int(row) >= nrow {
				return newError(ErrMalformedMatrix, fmt.Sprintf("row index %d out of range in column %d", row, c), nil)
			}
			if m.ValueAt(k) == 0 {
				return newError(ErrMalformedMatrix, fmt.Sprintf("explicit zero at column %d", c), nil)
			}
			prevRow = row
		}
		prevEnd = end
	}
	if prevEnd != nnz {
		return newError(ErrMalformedMatrix, fmt.Sprintf("p[ncol] %d != nnz %d", prevEnd, nnz), nil)
	}
	return nil
}
