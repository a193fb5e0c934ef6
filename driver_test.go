// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import "gopkg.in/check.v1"

type driverSuite struct{}

var _ = check.Suite(&driverSuite{})

// buildSamplesByFeatures builds a dense-specified matrix with one row
// per sample and one column per feature, the orientation RunDE
// requires for O(1) per-feature column access.
func buildSamplesByFeatures(c *check.C, dense [][]float64, colnames []string) *CSC64 {
	nrow := len(dense)
	ncol := len(dense[0])
	var x []float64
	var i []int32
	p := make([]int64, ncol+1)
	for col := 0; col < ncol; col++ {
		for row := 0; row < nrow; row++ {
			if v := dense[row][col]; v != 0 {
				x = append(x, v)
				i = append(i, int32(row))
			}
		}
		p[col+1] = int64(len(x))
	}
	m, err := FromArrays64(x, i, p, nrow, ncol, nil, colnames)
	c.Assert(err, check.IsNil)
	return m
}

func (s *driverSuite) TestRunDEBasic(c *check.C) {
	// 6 samples, 2 features; feature 0 separates the two clusters,
	// feature 1 is all-zero.
	m := buildSamplesByFeatures(c, [][]float64{
		{1, 0}, {1, 0}, {1, 0}, {0, 0}, {0, 0}, {0, 0},
	}, []string{"geneA", "geneB"})
	labels := []int32{0, 0, 0, 1, 1, 1}

	cfg := DefaultConfig()
	cfg.MinPct = 0.0
	cfg.LogFCThreshold = 0
	cfg.PThresh = 1
	rows, err := RunDE(m, labels, cfg)
	c.Assert(err, check.IsNil)

	found := false
	for _, r := range rows {
		if r.Gene == "geneA" && r.Cluster == 0 {
			found = true
			c.Check(r.PVal < 0.05, check.Equals, true)
		}
	}
	c.Check(found, check.Equals, true)
}

// An all-zero feature is removed once min_pct defaults to 0.1, since
// pct.1 == pct.2 == 0 everywhere.
func (s *driverSuite) TestRunDEAllZeroFeatureFiltered(c *check.C) {
	m := buildSamplesByFeatures(c, [][]float64{
		{0}, {0}, {0}, {0},
	}, []string{"geneZ"})
	labels := []int32{0, 0, 1, 1}

	cfg := DefaultConfig() // MinPct defaults to 0.1
	rows, err := RunDE(m, labels, cfg)
	c.Assert(err, check.IsNil)
	for _, r := range rows {
		c.Check(r.Gene, check.Not(check.Equals), "geneZ")
	}
}

// only_pos drops a feature whose avg_logFC is negative regardless of
// its p-value.
func (s *driverSuite) TestRunDEOnlyPosFiltersNegativeFoldChange(c *check.C) {
	m := buildSamplesByFeatures(c, [][]float64{
		{0}, {0}, {0}, {5}, {5}, {5},
	}, []string{"geneDown"})
	labels := []int32{0, 0, 0, 1, 1, 1}

	cfg := DefaultConfig()
	cfg.MinPct = 0
	cfg.PThresh = 1
	cfg.LogFCThreshold = 0.25
	cfg.OnlyPos = true
	rows, err := RunDE(m, labels, cfg)
	c.Assert(err, check.IsNil)
	for _, r := range rows {
		if r.Gene == "geneDown" && r.Cluster == 0 {
			c.Fatalf("cluster 0 has negative avg_logFC and should have been dropped by only_pos")
		}
	}
}

// p_val_adj must equal min(1, F * p_val), using the total feature
// count rather than the post-filter row count.
func (s *driverSuite) TestRunDEBonferroniUsesTotalFeatureCount(c *check.C) {
	m := buildSamplesByFeatures(c, [][]float64{
		{1, 0, 0}, {1, 0, 0}, {1, 0, 0}, {0, 0, 0}, {0, 0, 0}, {0, 0, 0},
	}, []string{"geneA", "geneB", "geneC"})
	labels := []int32{0, 0, 0, 1, 1, 1}

	cfg := DefaultConfig()
	cfg.MinPct = 0
	cfg.LogFCThreshold = 0
	cfg.PThresh = 1
	rows, err := RunDE(m, labels, cfg)
	c.Assert(err, check.IsNil)
	c.Assert(len(rows) > 0, check.Equals, true)
	for _, r := range rows {
		want := 3 * r.PVal
		if want > 1 {
			want = 1
		}
		c.Check(r.PValAdj, check.Equals, want)
	}
}

// Applying the filter chain twice must equal applying it once: every
// predicate is a pure function of a row's own fields, so a row that
// survives once survives forever.
func (s *driverSuite) TestApplyFiltersIdempotent(c *check.C) {
	rows := []Row{
		{Gene: "a", Cluster: 0, PVal: 0.001, AvgLogFC: 1.0, Pct1: 0.5, Pct2: 0.1},
		{Gene: "b", Cluster: 0, PVal: 0.5, AvgLogFC: 0.1, Pct1: 0.05, Pct2: 0.01},
		{Gene: "c", Cluster: 1, PVal: 0.0001, AvgLogFC: -2.0, Pct1: 0.9, Pct2: 0.8},
	}
	cfg := DefaultConfig()
	once := applyFilters(rows, cfg)
	twice := applyFilters(once, cfg)
	c.Check(twice, check.DeepEquals, once)
}

func (s *driverSuite) TestRunDERejectsLabelLengthMismatch(c *check.C) {
	m := buildSamplesByFeatures(c, [][]float64{{1}, {2}}, []string{"g"})
	_, err := RunDE(m, []int32{0}, DefaultConfig())
	c.Assert(err, check.NotNil)
}

func (s *driverSuite) TestRunDERejectsUnknownTest(c *check.C) {
	m := buildSamplesByFeatures(c, [][]float64{{1}, {2}}, []string{"g"})
	cfg := DefaultConfig()
	cfg.Test = "bogus"
	_, err := RunDE(m, []int32{0, 1}, cfg)
	c.Assert(err, check.NotNil)
}
