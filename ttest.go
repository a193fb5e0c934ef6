// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// TTestOptions configures the Student's t kernel.
type TTestOptions struct {
	VarEqual    bool // pooled (true) vs Welch (false)
	Alternative Alternative
}

// TTestResult is one cluster's t-test outcome.
type TTestResult struct {
	T      float64
	DF     float64
	PValue float64
}

// TTest computes Student's t-test for every cluster against its
// complement, for one feature, from the reducer's per-cluster
// aggregates (which must have been produced with SumSq: true). N is
// the total sample count for the feature. Zero-valued samples
// contribute zero to Sum and SumSq exactly as non-zero samples would
// contribute their own value — no special zero handling is needed
// here, unlike the rank-sum kernel, because the t-test operates on
// means and variances rather than ranks.
func TTest(aggs []ClusterAggregate, n int, opt TTestOptions) []TTestResult {
	results := make([]TTestResult, len(aggs))
	for k, a := range aggs {
		n1 := a.N
		n2 := n - n1
		if n1 < 2 || n2 < 2 {
			results[k] = TTestResult{PValue: 1}
			continue
		}
		mean1 := a.Sum / float64(n1)
		var2Sum, sum2, n2f := totalComplement(aggs, k, n)
		mean2 := sum2 / n2f
		var1 := sampleVariance(a.Sum, a.SumSq, n1)
		var2 := sampleVariance(sum2, var2Sum, n2)

		var t, df float64
		if opt.VarEqual {
			pooled := (float64(n1-1)*var1 + float64(n2-1)*var2) / float64(n1+n2-2)
			se := math.Sqrt(pooled * (1/float64(n1) + 1/float64(n2)))
			if se == 0 {
				results[k] = TTestResult{PValue: 1}
				continue
			}
			t = (mean1 - mean2) / se
			df = float64(n1 + n2 - 2)
		} else {
			se2 := var1/float64(n1) + var2/float64(n2)
			if se2 <= 0 {
				results[k] = TTestResult{PValue: 1}
				continue
			}
			t = (mean1 - mean2) / math.Sqrt(se2)
			df = se2 * se2 / ((var1*var1)/(float64(n1)*float64(n1)*float64(n1-1)) + (var2*var2)/(float64(n2)*float64(n2)*float64(n2-1)))
		}
		if math.IsNaN(t) || df <= 0 {
			results[k] = TTestResult{PValue: 1}
			continue
		}
		dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
		results[k] = TTestResult{T: t, DF: df, PValue: tPValue(dist, t, opt.Alternative)}
	}
	return results
}

// totalComplement sums Sum, SumSq and n over every cluster other than
// k, i.e. the complement of cluster k.
func totalComplement(aggs []ClusterAggregate, k, n int) (sumSq, sum, nf float64) {
	for j, a := range aggs {
		if j == k {
			continue
		}
		sum += a.Sum
		sumSq += a.SumSq
	}
	nf = float64(n - aggs[k].N)
	return sumSq, sum, nf
}

func sampleVariance(sum, sumSq float64, n int) float64 {
	if n < 2 {
		return 0
	}
	mean := sum / float64(n)
	v := (sumSq - float64(n)*mean*mean) / float64(n-1)
	if v < 0 {
		v = 0
	}
	return v
}

func tPValue(dist distuv.StudentsT, t float64, alt Alternative) float64 {
	switch alt {
	case Greater:
		return dist.CDF(-t)
	case Less:
		return dist.CDF(t)
	default:
		p := 2 * dist.CDF(-math.Abs(t))
		if p > 1 {
			p = 1
		}
		return p
	}
}
