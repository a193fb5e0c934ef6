// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import "math"

// FoldChangeOptions configures the fold-change / detection-rate
// kernel.
type FoldChangeOptions struct {
	Pseudocount float64
	LogBase     float64
	UseExpm1    bool // invert log1p-normalized input before comparing means
}

// DefaultFoldChangeOptions returns the conventional single-cell
// defaults: natural-log inversion, pseudocount 1, log base 2.
func DefaultFoldChangeOptions() FoldChangeOptions {
	return FoldChangeOptions{Pseudocount: 1, LogBase: 2, UseExpm1: true}
}

// FoldChangeResult is one cluster's fold-change / detection-rate
// outcome.
type FoldChangeResult struct {
	Mean1, Mean2 float64
	Pct1, Pct2   float64
	AvgLogFC     float64
}

// FoldChange computes mean/detection-rate/log-fold-change for every
// cluster against its complement, for one feature, from the
// reducer's per-cluster aggregates. totalSum and totalNZ are the
// feature's sum and non-zero count across all N samples.
func FoldChange(aggs []ClusterAggregate, n int, totalSum float64, totalNZ int, opt FoldChangeOptions) []FoldChangeResult {
	results := make([]FoldChangeResult, len(aggs))
	for k, a := range aggs {
		n1 := a.N
		n2 := n - n1
		var r FoldChangeResult
		if n1 > 0 {
			r.Mean1 = a.Sum / float64(n1)
			r.Pct1 = float64(a.NZ) / float64(n1)
		}
		if n2 > 0 {
			r.Mean2 = (totalSum - a.Sum) / float64(n2)
			r.Pct2 = float64(totalNZ-a.NZ) / float64(n2)
		}
		var v1, v2 float64
		if opt.UseExpm1 {
			v1 = math.Expm1(r.Mean1) + opt.Pseudocount
			v2 = math.Expm1(r.Mean2) + opt.Pseudocount
		} else {
			v1 = r.Mean1
			v2 = r.Mean2
		}
		if opt.UseExpm1 {
			r.AvgLogFC = logBase(v1, opt.LogBase) - logBase(v2, opt.LogBase)
		} else {
			r.AvgLogFC = v1 - v2
		}
		results[k] = r
	}
	return results
}

func logBase(x, base float64) float64 {
	return math.Log(x) / math.Log(base)
}
