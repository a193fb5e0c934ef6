// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"math"
	"math/rand"
	"sort"
	"testing"

	"gopkg.in/check.v1"
)

type wilcoxonSuite struct{}

var _ = check.Suite(&wilcoxonSuite{})

func aggregatesFromDense(vals []float64, labels []int32, sizes []int, k int, opt ReduceOptions) []ClusterAggregate {
	var rows []int32
	var nz []float64
	for i, v := range vals {
		if v != 0 {
			rows = append(rows, int32(i))
			nz = append(nz, v)
		}
	}
	aggs := make([]ClusterAggregate, k)
	Reduce(rows, nz, labels, sizes, opt, aggs)
	return aggs
}

// Feature A = [1,1,1,0,0,0], labels = [0,0,0,1,1,1]: rank-sum on
// cluster 0 gives U = 9.
func (s *wilcoxonSuite) TestRankSumU(c *check.C) {
	labels := []int32{0, 0, 0, 1, 1, 1}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense([]float64{1, 1, 1, 0, 0, 0}, labels, sizes, k, ReduceOptions{Histogram: true})
	res := RankSum(aggs, 6, WMWOptions{ContinuityCorrection: true, Alternative: TwoSided})
	c.Assert(len(res), check.Equals, 2)
	c.Check(res[0].U, check.Equals, 9.0)
	c.Check(res[0].Z > 1.9 && res[0].Z < 2.1, check.Equals, true)
	c.Check(res[0].PValue > 0.04 && res[0].PValue < 0.06, check.Equals, true)

	// feature B is the mirror image of A across the two clusters
	aggsB := aggregatesFromDense([]float64{0, 0, 0, 1, 1, 1}, labels, sizes, k, ReduceOptions{Histogram: true})
	resB := RankSum(aggsB, 6, WMWOptions{ContinuityCorrection: true, Alternative: TwoSided})
	c.Check(resB[1].U, check.Equals, 9.0)
}

// Rank-sum symmetry: U(k, ¬k) + U(¬k, k) == n1*n2 exactly, for a
// two-cluster feature.
func (s *wilcoxonSuite) TestRankSumSymmetry(c *check.C) {
	labels := []int32{0, 0, 0, 1, 1, 1, 1}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense([]float64{4, 1, 0, 2, 2, 5, 0}, labels, sizes, k, ReduceOptions{Histogram: true})
	res := RankSum(aggs, len(labels), WMWOptions{Alternative: TwoSided})
	n1, n2 := sizes[0], sizes[1]
	c.Check(res[0].U+res[1].U, check.Equals, float64(n1*n2))
}

// A perfect separator (feature value equals the cluster label) over
// a balanced two-cluster split of 10 samples gives U in {0, 25} and
// p < 0.01.
func (s *wilcoxonSuite) TestRankSumPerfectSeparator(c *check.C) {
	labels := make([]int32, 10)
	vals := make([]float64, 10)
	for i := range labels {
		if i >= 5 {
			labels[i] = 1
			vals[i] = 1
		}
	}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(vals, labels, sizes, k, ReduceOptions{Histogram: true})
	res := RankSum(aggs, 10, WMWOptions{ContinuityCorrection: true, Alternative: TwoSided})
	for _, r := range res {
		c.Check(r.U == 0 || r.U == 25, check.Equals, true)
		c.Check(r.PValue < 0.01, check.Equals, true)
	}
}

// An all-zero feature is fully tied: every cluster has zero variance
// under the null and the kernel reports p = 1 rather than dividing by
// zero.
func (s *wilcoxonSuite) TestRankSumAllZero(c *check.C) {
	labels := []int32{0, 0, 1, 1, 1}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(make([]float64, 5), labels, sizes, k, ReduceOptions{Histogram: true})
	res := RankSum(aggs, 5, WMWOptions{Alternative: TwoSided})
	for _, r := range res {
		c.Check(r.PValue, check.Equals, 1.0)
	}
}

// averageRanks assigns the classic 1-based, tie-averaged rank to
// every element, independently of the histogram-arithmetic path
// RankSum uses.
func averageRanks(vals []float64) []float64 {
	n := len(vals)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool { return vals[idx[a]] < vals[idx[b]] })
	ranks := make([]float64, n)
	i := 0
	for i < n {
		j := i
		for j+1 < n && vals[idx[j+1]] == vals[idx[i]] {
			j++
		}
		avg := float64(i+j+2) / 2
		for t := i; t <= j; t++ {
			ranks[idx[t]] = avg
		}
		i = j + 1
	}
	return ranks
}

// bruteForceWMW computes the same two-sided WMW p-value directly from
// materialized, tie-averaged ranks rather than the histogram
// arithmetic RankSum uses, as an independent check on the latter.
func bruteForceWMW(vals []float64, labels []int32, k int, cc bool) []WMWResult {
	n := len(vals)
	ranks := averageRanks(vals)
	sizes, _ := ClusterSizes(labels)

	counts := map[float64]int{}
	for _, v := range vals {
		counts[v]++
	}
	var T float64
	for _, t := range counts {
		T += float64(t*t*t - t)
	}

	out := make([]WMWResult, k)
	for grp := 0; grp < k; grp++ {
		n1, n2 := sizes[grp], n-sizes[grp]
		var r float64
		for i, l := range labels {
			if int(l) == grp {
				r += ranks[i]
			}
		}
		u := r - float64(n1*(n1+1))/2
		mu := float64(n1*n2) / 2
		sigma2 := float64(n1*n2) * (float64(n+1) - T/float64(n*(n-1))) / 12
		if sigma2 <= 0 {
			out[grp] = WMWResult{U: u, PValue: 1}
			continue
		}
		diff := u - mu
		if cc && diff != 0 {
			if diff > 0 {
				diff -= 0.5
			} else {
				diff += 0.5
			}
		}
		z := diff / math.Sqrt(sigma2)
		out[grp] = WMWResult{U: u, Z: z, PValue: pValueFromZ(z, TwoSided)}
	}
	return out
}

// RankSum must agree with the brute-force, rank-materializing
// reference to within 1e-10 on randomly generated integer-valued
// data with ties and zeros.
func (s *wilcoxonSuite) TestRankSumMatchesBruteForceReference(c *check.C) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		n := 10 + rng.Intn(190)
		k := 2 + rng.Intn(4)
		labels := make([]int32, n)
		vals := make([]float64, n)
		for i := range labels {
			labels[i] = int32(rng.Intn(k))
			vals[i] = float64(rng.Intn(6)) // 0..5, guarantees ties and zeros
		}
		sizes, kk := ClusterSizes(labels)
		if kk < k {
			continue // a cluster happened to get no members this trial
		}
		aggs := aggregatesFromDense(vals, labels, sizes, kk, ReduceOptions{Histogram: true})
		got := RankSum(aggs, n, WMWOptions{ContinuityCorrection: true, Alternative: TwoSided})
		want := bruteForceWMW(vals, labels, kk, true)
		for grp := range got {
			c.Check(math.Abs(got[grp].U-want[grp].U) < 1e-9, check.Equals, true)
			c.Check(math.Abs(got[grp].PValue-want[grp].PValue) < 1e-10, check.Equals, true)
		}
	}
}

func (s *wilcoxonSuite) TestPValueFromZAlternatives(c *check.C) {
	c.Check(pValueFromZ(0, TwoSided), check.Equals, 1.0)
	c.Check(pValueFromZ(3, Greater) < 0.01, check.Equals, true)
	c.Check(pValueFromZ(-3, Less) < 0.01, check.Equals, true)
}

func BenchmarkRankSum1e3(b *testing.B) { benchmarkRankSum(b, 1000) }
func BenchmarkRankSum1e4(b *testing.B) { benchmarkRankSum(b, 10000) }
func BenchmarkRankSum1e5(b *testing.B) { benchmarkRankSum(b, 100000) }

func benchmarkRankSum(b *testing.B, n int) {
	labels := make([]int32, n)
	vals := make([]float64, n)
	for i := range labels {
		labels[i] = int32(i % 3)
		vals[i] = float64(rand.Intn(1000))
	}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(vals, labels, sizes, k, ReduceOptions{Histogram: true})
	opt := WMWOptions{ContinuityCorrection: true, Alternative: TwoSided}
	for i := 0; i < b.N; i++ {
		RankSum(aggs, n, opt)
	}
}
