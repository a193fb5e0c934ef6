// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"fmt"
	"math"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Config holds every option the DE driver accepts.
type Config struct {
	Test                 string // "rank_sum" or "t"
	ContinuityCorrection bool
	VarEqual             bool
	Alternative          Alternative
	MinPct               float64
	MinDiffPct           float64
	LogFCThreshold       float64
	OnlyPos              bool
	FoldChange           FoldChangeOptions
	PThresh              float64
	Threads              int
	// FeatureMask, when non-nil, restricts the run to the listed
	// feature indices.
	FeatureMask []int
}

// DefaultConfig returns the conventional one-vs-rest defaults.
func DefaultConfig() Config {
	return Config{
		Test:                 "rank_sum",
		ContinuityCorrection: true,
		VarEqual:             false,
		Alternative:          TwoSided,
		MinPct:               0.1,
		MinDiffPct:           math.Inf(-1),
		LogFCThreshold:       0.25,
		OnlyPos:              false,
		FoldChange:           DefaultFoldChangeOptions(),
		PThresh:              1e-2,
		Threads:              1,
	}
}

// Row is one (feature, cluster) result row of the long result table.
type Row struct {
	Gene      string
	Cluster   int
	PVal      float64
	PValAdj   float64
	AvgLogFC  float64
	Pct1      float64
	Pct2      float64
	featureIx int // stable-sort tiebreaker, ascending feature index
}

// RunDE is the one-vs-rest differential expression driver: it
// iterates features in parallel (a worker pool sized by cfg.Threads
// partitions the feature index space into contiguous ranges),
// invokes the reducer once per feature, hands the aggregates to the
// selected kernel and the fold-change kernel, then filters, sorts,
// and Bonferroni-adjusts the results.
//
// m holds one sample per row and one feature per column (N samples x
// F features), matching CSC's efficient axis: a feature's non-zero
// run is a single column slice. labels has length N. Callers whose
// matrix is oriented the other way around should transpose it first.
func RunDE(m Matrix, labels []int32, cfg Config) ([]Row, error) {
	nSamples, nFeatures := m.Dims()
	if len(labels) != nSamples {
		return nil, newError(ErrDimensionMismatch, fmt.Sprintf("labels length %d != nrow %d", len(labels), nSamples), nil)
	}
	if cfg.Test != "rank_sum" && cfg.Test != "t" {
		return nil, newError(ErrUnknownTest, cfg.Test, nil)
	}
	for _, l := range labels {
		if l < 0 {
			return nil, newError(ErrMalformedMatrix, "negative cluster label", nil)
		}
	}
	clusterSizes, k := ClusterSizes(labels)

	features := cfg.FeatureMask
	if features == nil {
		features = make([]int, nFeatures)
		for i := range features {
			features[i] = i
		}
	}

	threads := cfg.Threads
	if threads < 1 {
		threads = 1
	}
	rowsPerFeature := make([][]Row, len(features))
	thr := throttle{Max: threads}
	chunk := (len(features) + threads - 1) / threads
	if chunk < 1 {
		chunk = 1
	}
	for w := 0; w*chunk < len(features); w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > len(features) {
			hi = len(features)
		}
		thr.Go(func() error {
			aggs := make([]ClusterAggregate, k)
			for idx := lo; idx < hi; idx++ {
				feature := features[idx]
				rows, cols := colRowsAndVals(m, feature)
				opt := ReduceOptions{Histogram: cfg.Test == "rank_sum", SumSq: cfg.Test == "t"}
				Reduce(rows, cols, labels, clusterSizes, opt, aggs)

				var totalSum float64
				var totalNZ int
				for _, a := range aggs {
					totalSum += a.Sum
					totalNZ += a.NZ
				}
				fc := FoldChange(aggs, nSamples, totalSum, totalNZ, cfg.FoldChange)

				var pvals []float64
				if cfg.Test == "rank_sum" {
					wmw := RankSum(aggs, nSamples, WMWOptions{ContinuityCorrection: cfg.ContinuityCorrection, Alternative: cfg.Alternative})
					pvals = make([]float64, k)
					for ki, w := range wmw {
						pvals[ki] = w.PValue
					}
				} else {
					tt := TTest(aggs, nSamples, TTestOptions{VarEqual: cfg.VarEqual, Alternative: cfg.Alternative})
					pvals = make([]float64, k)
					for ki, tr := range tt {
						pvals[ki] = tr.PValue
					}
				}

				geneName := geneNameFor(m, feature)
				var out []Row
				for ki := 0; ki < k; ki++ {
					out = append(out, Row{
						Gene:      geneName,
						Cluster:   ki,
						PVal:      pvals[ki],
						AvgLogFC:  fc[ki].AvgLogFC,
						Pct1:      fc[ki].Pct1,
						Pct2:      fc[ki].Pct2,
						featureIx: feature,
					})
				}
				rowsPerFeature[idx] = out
			}
			return nil
		})
	}
	if err := thr.Wait(); err != nil {
		return nil, err
	}

	var all []Row
	for _, rs := range rowsPerFeature {
		all = append(all, rs...)
	}

	filtered := applyFilters(all, cfg)
	sortRows(filtered)
	for i := range filtered {
		filtered[i].PValAdj = math.Min(1, float64(nFeatures)*filtered[i].PVal)
	}
	log.WithFields(log.Fields{
		"features": nFeatures,
		"clusters": k,
		"rows":     len(filtered),
	}).Debug("RunDE finished")
	return filtered, nil
}

// applyFilters implements the filter chain's selection steps.
// Bonferroni adjustment happens after sorting in RunDE since it
// needs nothing from the filtered set other than the total feature
// count.
func applyFilters(rows []Row, cfg Config) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if math.Max(r.Pct1, r.Pct2) < cfg.MinPct {
			continue
		}
		if math.Abs(r.Pct1-r.Pct2) < cfg.MinDiffPct {
			continue
		}
		if math.Abs(r.AvgLogFC) < cfg.LogFCThreshold {
			continue
		}
		if cfg.OnlyPos && r.AvgLogFC <= 0 {
			continue
		}
		if r.PVal >= cfg.PThresh {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sortRows sorts within each cluster by (p_val ascending, avg_logFC
// descending), with feature index ascending as a stable tiebreaker.
func sortRows(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Cluster != b.Cluster {
			return a.Cluster < b.Cluster
		}
		if a.PVal != b.PVal {
			return a.PVal < b.PVal
		}
		if a.AvgLogFC != b.AvgLogFC {
			return a.AvgLogFC > b.AvgLogFC
		}
		return a.featureIx < b.featureIx
	})
}

func colRowsAndVals(m Matrix, c int) ([]int32, []float64) {
	start, end := m.ColRange(c)
	n := end - start
	rows := make([]int32, n)
	vals := make([]float64, n)
	for i := int64(0); i < n; i++ {
		rows[i] = m.RowAt(start + i)
		vals[i] = m.ValueAt(start + i)
	}
	return rows, vals
}

func geneNameFor(m Matrix, feature int) string {
	names := m.ColNames()
	if feature < len(names) {
		return names[feature]
	}
	return fmt.Sprintf("%d", feature)
}
