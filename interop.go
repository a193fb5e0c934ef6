// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/mat"
)

// ToJamesBowmanCSC converts a CSC32 into github.com/james-bowman/sparse's
// CSC type, which implements gonum's mat.Matrix, so the result can be
// fed directly into gonum/nlp routines (e.g. the PCA preview in
// cmd/fastde). This is the only place fastde's own CSC32/CSC64 types
// touch an external concrete sparse-matrix type; the statistical
// kernels never do, since CSC32/CSC64 stay parametric over pointer
// width everywhere else.
func ToJamesBowmanCSC(m *CSC32) *sparse.CSC {
	indptr := make([]int, len(m.P))
	for i, p := range m.P {
		indptr[i] = int(p)
	}
	ind := make([]int, len(m.I))
	for i, v := range m.I {
		ind[i] = int(v)
	}
	return sparse.NewCSC(m.NRow, m.NCol, indptr, ind, m.X)
}

// DenseFromMatrix materializes m as a gonum *mat.Dense, for callers
// that want a gonum-native dense type rather than the flat row-major
// slice ToDense returns.
func DenseFromMatrix(m Matrix) *mat.Dense {
	nrow, ncol := m.Dims()
	return mat.NewDense(nrow, ncol, ToDense(m))
}
