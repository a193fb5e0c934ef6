// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import "fmt"

// maxInt32Nnz is the largest nnz representable by an int32 pointer
// array; exceeding it is an OverflowError.
const maxInt32Nnz = 1<<31 - 1

// Transpose32 produces the 32-bit-pointer transpose of m. It fails
// with OverflowError if m.NNZ() exceeds maxInt32Nnz.
//
// The algorithm is a bucket-count / prefix-sum / scatter sweep:
// count destination-row occupancy into out.P[1:], prefix-sum it into
// write offsets, then stream the source columns in order, scattering
// each (row, value) into its destination slot and incrementing that
// slot. Row-index ordering in the output falls out for free because
// source columns are visited ascending and each destination row is
// filled in strictly ascending source-column order.
func Transpose32(m Matrix) (*CSC32, error) {
	nnz := m.NNZ()
	if nnz > maxInt32Nnz {
		return nil, newError(ErrOverflow, fmt.Sprintf("nnz %d exceeds int32 pointer capacity", nnz), nil)
	}
	nrow, ncol := m.Dims()
	out := NewCSC32(ncol, nrow, int(nnz))
	transpose32(m, out)
	out.Rownames = m.ColNames()
	out.Colnames = m.RowNames()
	return out, nil
}

// Transpose64 is the 64-bit-pointer analogue of Transpose32; it never
// overflows because nnz is already known to fit in an int64.
func Transpose64(m Matrix) (*CSC64, error) {
	nrow, ncol := m.Dims()
	nnz := m.NNZ()
	out := &CSC64{
		NRow: ncol,
		NCol: nrow,
		X:    make([]float64, nnz),
		I:    make([]int32, nnz),
		P:    make([]int64, nrow+1),
	}
	transpose64(m, out)
	out.Rownames = m.ColNames()
	out.Colnames = m.RowNames()
	return out, nil
}

// transpose32 fills out (already sized) with the transpose of m.
func transpose32(m Matrix, out *CSC32) {
	nrow, ncol := m.Dims()
	counts := make([]int32, nrow+1)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		for k := start; k < end; k++ {
			counts[m.RowAt(k)+1]++
		}
	}
	for r := 1; r <= nrow; r++ {
		counts[r] += counts[r-1]
	}
	// counts now holds the write offset for each destination row.
	write := make([]int32, nrow)
	copy(write, counts[:nrow])
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		for k := start; k < end; k++ {
			row := m.RowAt(k)
			pos := write[row]
			out.X[pos] = m.ValueAt(k)
			out.I[pos] = int32(c)
			write[row]++
		}
	}
	copy(out.P, counts)
}

func transpose64(m Matrix, out *CSC64) {
	nrow, ncol := m.Dims()
	counts := make([]int64, nrow+1)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		for k := start; k < end; k++ {
			counts[m.RowAt(k)+1]++
		}
	}
	for r := 1; r <= nrow; r++ {
		counts[r] += counts[r-1]
	}
	write := make([]int64, nrow)
	copy(write, counts[:nrow])
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		for k := start; k < end; k++ {
			row := m.RowAt(k)
			pos := write[row]
			out.X[pos] = m.ValueAt(k)
			out.I[pos] = int32(c)
			write[row]++
		}
	}
	copy(out.P, counts)
}

// ToDense densifies m into a row-major nrow*ncol buffer (row r, col c
// at index r*ncol+c).
func ToDense(m Matrix) []float64 {
	nrow, ncol := m.Dims()
	out := make([]float64, nrow*ncol)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		base := c
		for k := start; k < end; k++ {
			out[int(m.RowAt(k))*ncol+base] = m.ValueAt(k)
		}
	}
	return out
}

// ToDenseTransposed densifies m directly into its transposed shape
// (ncol*nrow, row c, col r at index c*nrow+r) without materializing an
// intermediate sparse transpose.
func ToDenseTransposed(m Matrix) []float64 {
	nrow, ncol := m.Dims()
	out := make([]float64, nrow*ncol)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		for k := start; k < end; k++ {
			out[c*nrow+int(m.RowAt(k))] = m.ValueAt(k)
		}
	}
	return out
}

// ColSums returns the per-column sum of m, O(nnz).
func ColSums(m Matrix) []float64 {
	_, ncol := m.Dims()
	out := make([]float64, ncol)
	for c := 0; c < ncol; c++ {
		start, end := m.ColRange(c)
		var sum float64
		for k := start; k < end; k++ {
			sum += m.ValueAt(k)
		}
		out[c] = sum
	}
	return out
}

// RowSums returns the per-row sum of m. It partitions columns across
// threads workers, each accumulating into a private nrow-sized
// buffer, then reduces: scatter-add with private per-worker
// accumulators, reduced at the end, no locks in the hot path.
func RowSums(m Matrix, threads int) []float64 {
	nrow, ncol := m.Dims()
	if threads < 1 {
		threads = 1
	}
	if threads == 1 || ncol < threads {
		out := make([]float64, nrow)
		for c := 0; c < ncol; c++ {
			start, end := m.ColRange(c)
			for k := start; k < end; k++ {
				out[m.RowAt(k)] += m.ValueAt(k)
			}
		}
		return out
	}
	partials := make([][]float64, threads)
	thr := throttle{Max: threads}
	chunk := (ncol + threads - 1) / threads
	for w := 0; w < threads; w++ {
		w := w
		thr.Go(func() error {
			lo, hi := w*chunk, (w+1)*chunk
			if hi > ncol {
				hi = ncol
			}
			acc := make([]float64, nrow)
			for c := lo; c < hi; c++ {
				start, end := m.ColRange(c)
				for k := start; k < end; k++ {
					acc[m.RowAt(k)] += m.ValueAt(k)
				}
			}
			partials[w] = acc
			return nil
		})
	}
	thr.Wait()
	out := make([]float64, nrow)
	for _, acc := range partials {
		for r, v := range acc {
			out[r] += v
		}
	}
	return out
}

// CBind32 concatenates CSC32 matrices along columns: a pointer-array
// shift plus a value/row-index copy.
func CBind32(mats []*CSC32) (*CSC32, error) {
	if len(mats) == 0 {
		return NewCSC32(0, 0, 0), nil
	}
	nrow := mats[0].NRow
	var totalCols, totalNNZ int64
	for _, m := range mats {
		if m.NRow != nrow {
			return nil, newError(ErrDimensionMismatch, "cbind: row counts differ", nil)
		}
		totalCols += int64(m.NCol)
		totalNNZ += m.NNZ()
	}
	if totalNNZ > maxInt32Nnz {
		return nil, newError(ErrOverflow, fmt.Sprintf("nnz %d exceeds int32 pointer capacity", totalNNZ), nil)
	}
	out := NewCSC32(nrow, int(totalCols), int(totalNNZ))
	var xoff, coff int
	poff := int32(0)
	for _, m := range mats {
		copy(out.X[xoff:], m.X)
		copy(out.I[xoff:], m.I)
		for c := 0; c <= m.NCol; c++ {
			out.P[coff+c] = poff + m.P[c]
		}
		xoff += len(m.X)
		poff += m.P[m.NCol]
		coff += m.NCol
	}
	if len(mats[0].Rownames) > 0 {
		out.Rownames = mats[0].Rownames
	}
	for _, m := range mats {
		out.Colnames = append(out.Colnames, m.Colnames...)
	}
	return out, nil
}

// RBind32 concatenates CSC32 matrices along rows. Unlike CBind32 this
// is not a pure pointer shift: each output column re-buckets the rows
// contributed by every input matrix, via direct re-bucketing per
// column rather than a dense round-trip.
func RBind32(mats []*CSC32) (*CSC32, error) {
	if len(mats) == 0 {
		return NewCSC32(0, 0, 0), nil
	}
	ncol := mats[0].NCol
	var totalRows int
	var totalNNZ int64
	for _, m := range mats {
		if m.NCol != ncol {
			return nil, newError(ErrDimensionMismatch, "rbind: column counts differ", nil)
		}
		totalRows += m.NRow
		totalNNZ += m.NNZ()
	}
	if totalNNZ > maxInt32Nnz {
		return nil, newError(ErrOverflow, fmt.Sprintf("nnz %d exceeds int32 pointer capacity", totalNNZ), nil)
	}
	out := NewCSC32(totalRows, ncol, int(totalNNZ))
	pos := int32(0)
	rowOffset := 0
	for c := 0; c < ncol; c++ {
		out.P[c] = pos
		rowOffset = 0
		for _, m := range mats {
			start, end := m.ColRange(c)
			for k := start; k < end; k++ {
				out.I[pos] = m.RowAt(k) + int32(rowOffset)
				out.X[pos] = m.ValueAt(k)
				pos++
			}
			rowOffset += m.NRow
		}
	}
	out.P[ncol] = pos
	if len(mats[0].Colnames) > 0 {
		out.Colnames = mats[0].Colnames
	}
	for _, m := range mats {
		out.Rownames = append(out.Rownames, m.Rownames...)
	}
	return out, nil
}

// CBind64 is the 64-bit-pointer analogue of CBind32. Since CSC64 is
// itself the 64-bit type, every CBind64 result is unconditionally
// 64-bit regardless of whether the combined nnz would have fit in
// int32.
func CBind64(mats []*CSC64) (*CSC64, error) {
	if len(mats) == 0 {
		return &CSC64{P: []int64{0}}, nil
	}
	nrow := mats[0].NRow
	var totalCols int
	var totalNNZ int64
	for _, m := range mats {
		if m.NRow != nrow {
			return nil, newError(ErrDimensionMismatch, "cbind: row counts differ", nil)
		}
		totalCols += m.NCol
		totalNNZ += m.NNZ()
	}
	out := &CSC64{NRow: nrow, NCol: totalCols, X: make([]float64, totalNNZ), I: make([]int32, totalNNZ), P: make([]int64, totalCols+1)}
	var xoff, coff int
	var poff int64
	for _, m := range mats {
		copy(out.X[xoff:], m.X)
		copy(out.I[xoff:], m.I)
		for c := 0; c <= m.NCol; c++ {
			out.P[coff+c] = poff + m.P[c]
		}
		xoff += len(m.X)
		poff += m.P[m.NCol]
		coff += m.NCol
	}
	if len(mats[0].Rownames) > 0 {
		out.Rownames = mats[0].Rownames
	}
	for _, m := range mats {
		out.Colnames = append(out.Colnames, m.Colnames...)
	}
	return out, nil
}

// Widen32 promotes a CSC32 to the 64-bit-pointer CSC64 representation
// backed by the same X and I arrays, used whenever a mixed-width
// caller needs every input in a common pointer width.
func Widen32(m *CSC32) *CSC64 {
	p := make([]int64, len(m.P))
	for i, v := range m.P {
		p[i] = int64(v)
	}
	return &CSC64{NRow: m.NRow, NCol: m.NCol, X: m.X, I: m.I, P: p, Rownames: m.Rownames, Colnames: m.Colnames}
}

// CBind concatenates matrices of any mix of pointer widths along
// columns. The result is 64-bit iff the combined nnz exceeds
// maxInt32Nnz or any input is already a *CSC64; otherwise it is the
// fixed-width CBind32 result. Inputs must be *CSC32 or *CSC64.
func CBind(mats []Matrix) (Matrix, error) {
	return bindDispatch(mats,
		func(m32 []*CSC32) (Matrix, error) { return CBind32(m32) },
		func(m64 []*CSC64) (Matrix, error) { return CBind64(m64) },
	)
}

// RBind is the row-concatenation analogue of CBind.
func RBind(mats []Matrix) (Matrix, error) {
	return bindDispatch(mats,
		func(m32 []*CSC32) (Matrix, error) { return RBind32(m32) },
		func(m64 []*CSC64) (Matrix, error) { return RBind64(m64) },
	)
}

// bindDispatch picks the narrowest pointer width that can represent
// every input's combined nnz, widening *CSC32 inputs to *CSC64 only
// when forced to.
func bindDispatch(mats []Matrix, via32 func([]*CSC32) (Matrix, error), via64 func([]*CSC64) (Matrix, error)) (Matrix, error) {
	all32 := true
	var totalNNZ int64
	for _, m := range mats {
		totalNNZ += m.NNZ()
		if _, ok := m.(*CSC32); !ok {
			all32 = false
		}
	}
	if all32 && totalNNZ <= maxInt32Nnz {
		m32 := make([]*CSC32, len(mats))
		for i, m := range mats {
			m32[i] = m.(*CSC32)
		}
		return via32(m32)
	}
	m64 := make([]*CSC64, len(mats))
	for i, m := range mats {
		switch t := m.(type) {
		case *CSC64:
			m64[i] = t
		case *CSC32:
			m64[i] = Widen32(t)
		default:
			return nil, newError(ErrMalformedMatrix, "bind: unsupported Matrix implementation", nil)
		}
	}
	return via64(m64)
}

// RBind64 is the 64-bit-pointer analogue of RBind32.
func RBind64(mats []*CSC64) (*CSC64, error) {
	if len(mats) == 0 {
		return &CSC64{P: []int64{0}}, nil
	}
	ncol := mats[0].NCol
	var totalRows int
	var totalNNZ int64
	for _, m := range mats {
		if m.NCol != ncol {
			return nil, newError(ErrDimensionMismatch, "rbind: column counts differ", nil)
		}
		totalRows += m.NRow
		totalNNZ += m.NNZ()
	}
	out := &CSC64{NRow: totalRows, NCol: ncol, X: make([]float64, totalNNZ), I: make([]int32, totalNNZ), P: make([]int64, ncol+1)}
	var pos int64
	for c := 0; c < ncol; c++ {
		out.P[c] = pos
		rowOffset := 0
		for _, m := range mats {
			start, end := m.ColRange(c)
			for k := start; k < end; k++ {
				out.I[pos] = m.RowAt(k) + int32(rowOffset)
				out.X[pos] = m.ValueAt(k)
				pos++
			}
			rowOffset += m.NRow
		}
	}
	out.P[ncol] = pos
	if len(mats[0].Colnames) > 0 {
		out.Colnames = mats[0].Colnames
	}
	for _, m := range mats {
		out.Rownames = append(out.Rownames, m.Rownames...)
	}
	return out, nil
}
