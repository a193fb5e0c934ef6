// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import "gopkg.in/check.v1"

type foldchangeSuite struct{}

var _ = check.Suite(&foldchangeSuite{})

func (s *foldchangeSuite) TestFoldChangeBasic(c *check.C) {
	labels := []int32{0, 0, 0, 1, 1, 1}
	vals := []float64{2, 2, 2, 0, 0, 0}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(vals, labels, sizes, k, ReduceOptions{})

	var totalSum float64
	var totalNZ int
	for _, a := range aggs {
		totalSum += a.Sum
		totalNZ += a.NZ
	}
	res := FoldChange(aggs, 6, totalSum, totalNZ, DefaultFoldChangeOptions())

	c.Check(res[0].Mean1, check.Equals, 2.0)
	c.Check(res[0].Pct1, check.Equals, 1.0)
	c.Check(res[0].Pct2, check.Equals, 0.0)
	c.Check(res[0].AvgLogFC > 0, check.Equals, true)
}

// An all-zero feature: pct.1 == pct.2 == 0 for every cluster.
func (s *foldchangeSuite) TestFoldChangeAllZero(c *check.C) {
	labels := []int32{0, 0, 1, 1, 1}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(make([]float64, 5), labels, sizes, k, ReduceOptions{})
	res := FoldChange(aggs, 5, 0, 0, DefaultFoldChangeOptions())
	for _, r := range res {
		c.Check(r.Pct1, check.Equals, 0.0)
		c.Check(r.Pct2, check.Equals, 0.0)
	}
}

func (s *foldchangeSuite) TestFoldChangeRawMeanDifference(c *check.C) {
	labels := []int32{0, 0, 1, 1}
	vals := []float64{4, 4, 1, 1}
	sizes, k := ClusterSizes(labels)
	aggs := aggregatesFromDense(vals, labels, sizes, k, ReduceOptions{})
	var totalSum float64
	var totalNZ int
	for _, a := range aggs {
		totalSum += a.Sum
		totalNZ += a.NZ
	}
	res := FoldChange(aggs, 4, totalSum, totalNZ, FoldChangeOptions{UseExpm1: false})
	c.Check(res[0].AvgLogFC, check.Equals, 3.0)
}
