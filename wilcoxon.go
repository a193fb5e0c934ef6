// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// stdNormal is kept as a single package-level distribution value.
// The Src field is never consulted by CDF (it only matters for
// Rand()) but is set for consistency with distuv's usual construction.
var stdNormal = distuv.Normal{Mu: 0, Sigma: 1, Src: rand.NewSource(rand.Uint64())}

// Alternative selects which tail of the null distribution a p-value
// is drawn from.
type Alternative int

const (
	TwoSided Alternative = iota
	Less
	Greater
)

// WMWOptions configures the rank-sum kernel.
type WMWOptions struct {
	ContinuityCorrection bool
	Alternative          Alternative
}

// WMWResult is one cluster's rank-sum outcome: the Mann-Whitney U
// statistic, the z-score it implies, and the resulting p-value.
type WMWResult struct {
	U      float64
	Z      float64
	PValue float64
}

// RankSum computes the Wilcoxon-Mann-Whitney rank-sum test for every
// cluster against its complement, for one feature, from the reducer's
// per-cluster aggregates (which must have been produced with
// Histogram: true). N is the total sample count for the feature.
//
// Ranks are never materialized. The merged, sorted set of distinct
// non-zero values — plus the single zero tie-block of size Z — lets
// every cluster's rank sum be assembled arithmetically in one sorted
// walk. The zero tie-block always takes the lowest ranks 1..Z, so the
// result is correct only when no stored value is negative.
func RankSum(aggs []ClusterAggregate, n int, opt WMWOptions) []WMWResult {
	var totalNZ int
	for _, a := range aggs {
		totalNZ += a.NZ
	}
	z := n - totalNZ // size of the zero tie-block, across all clusters

	totalCount := map[float64]int{}
	for _, a := range aggs {
		for v, c := range a.Hist {
			totalCount[v] += c
		}
	}
	distinct := make([]float64, 0, len(totalCount))
	for v := range totalCount {
		distinct = append(distinct, v)
	}
	sort.Float64s(distinct)

	tieTermSum := tieTerm(float64(z))
	meanRank := make(map[float64]float64, len(distinct))
	cumBelow := float64(z)
	for _, v := range distinct {
		t := totalCount[v]
		meanRank[v] = cumBelow + float64(t+1)/2
		cumBelow += float64(t)
		tieTermSum += tieTerm(float64(t))
	}

	results := make([]WMWResult, len(aggs))
	denom := float64(n) * float64(n-1)
	for k, a := range aggs {
		n1, n2 := a.N, n-a.N
		if n1 == 0 || n2 == 0 {
			results[k] = WMWResult{PValue: 1}
			continue
		}
		rk := (1 + float64(z)) / 2 * float64(a.Zeros())
		for v, c := range a.Hist {
			rk += meanRank[v] * float64(c)
		}
		u := rk - float64(n1*(n1+1))/2
		mu := float64(n1*n2) / 2
		var sigma2 float64
		if denom > 0 {
			sigma2 = float64(n1) * float64(n2) * (float64(n+1) - tieTermSum/denom) / 12
		}
		if sigma2 <= 0 {
			results[k] = WMWResult{U: u, PValue: 1}
			continue
		}
		diff := u - mu
		if opt.ContinuityCorrection && diff != 0 {
			if diff > 0 {
				diff -= 0.5
			} else {
				diff += 0.5
			}
		}
		zscore := diff / math.Sqrt(sigma2)
		results[k] = WMWResult{U: u, Z: zscore, PValue: pValueFromZ(zscore, opt.Alternative)}
	}
	return results
}

// tieTerm is t^3 - t for a tie group of size t, the per-group term of
// the tie-correction sum T = Σ_t (t³ − t).
func tieTerm(t float64) float64 { return t*t*t - t }

func pValueFromZ(z float64, alt Alternative) float64 {
	switch alt {
	case Greater:
		return stdNormal.CDF(-z)
	case Less:
		return stdNormal.CDF(z)
	default:
		p := 2 * stdNormal.CDF(-math.Abs(z))
		if p > 1 {
			p = 1
		}
		return p
	}
}
