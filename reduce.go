// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

// ClusterAggregate is the per-(feature, cluster) aggregate produced
// by the reducer.
type ClusterAggregate struct {
	Sum   float64
	SumSq float64 // only populated when the t-test path is requested
	NZ    int
	N     int // n_k, the cluster size; copied in for the caller's convenience
	Min   float64
	Max   float64
	// Hist maps a distinct non-zero value to its count within this
	// cluster. Only populated when the rank-sum path is requested.
	Hist map[float64]int
}

// ClusterSizes returns n_k for every cluster 0..K-1 given the dense
// label vector, and K itself — a one-time precomputation shared by
// every kernel that needs complement sizes.
func ClusterSizes(labels []int32) (sizes []int, k int) {
	for _, l := range labels {
		if int(l)+1 > k {
			k = int(l) + 1
		}
	}
	sizes = make([]int, k)
	for _, l := range labels {
		sizes[l]++
	}
	return sizes, k
}

// ReduceOptions controls which optional accumulators the reducer
// populates, so callers that only need fold-change statistics don't
// pay for histogram construction.
type ReduceOptions struct {
	Histogram bool // populate Hist, needed by the rank-sum kernel
	SumSq     bool // populate SumSq, needed by the t-test kernel
}

// Reduce is the shared inner loop of every statistical test: a single
// pass over one feature's non-zero entries, bucketed by cluster. rows
// and vals are the column's stored (row, value) pairs in ascending
// row order; labels[row] gives the cluster of sample `row`. out must
// already have length K; its zero value is the correct starting
// aggregate for every cluster.
//
// Reduce never allocates beyond the optional per-cluster histogram
// maps.
func Reduce(rows []int32, vals []float64, labels []int32, clusterSizes []int, opt ReduceOptions, out []ClusterAggregate) {
	for k := range out {
		out[k].N = clusterSizes[k]
		out[k].NZ = 0
		out[k].Sum = 0
		out[k].SumSq = 0
		out[k].Min = 0
		out[k].Max = 0
		out[k].Hist = nil
	}
	seenAny := make([]bool, len(out))
	for idx, row := range rows {
		v := vals[idx]
		k := labels[row]
		agg := &out[k]
		agg.Sum += v
		if opt.SumSq {
			agg.SumSq += v * v
		}
		if !seenAny[k] {
			agg.Min, agg.Max = v, v
			seenAny[k] = true
		} else {
			if v < agg.Min {
				agg.Min = v
			}
			if v > agg.Max {
				agg.Max = v
			}
		}
		agg.NZ++
		if opt.Histogram {
			if agg.Hist == nil {
				agg.Hist = make(map[float64]int)
			}
			agg.Hist[v]++
		}
	}
}

// Zeros returns n_k - nz_k for cluster k, the implicit zero-count
// recovered rather than stored.
func (a ClusterAggregate) Zeros() int { return a.N - a.NZ }
