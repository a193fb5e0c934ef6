// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/mat"
)

// ResultTable renders rows as a long-format result table: columns
// p_val, p_val_adj, avg_logFC, pct.1, pct.2, cluster, gene, in that
// order, already sorted.
func ResultTable(rows []Row) dataframe.DataFrame {
	n := len(rows)
	pval := make([]float64, n)
	pvalAdj := make([]float64, n)
	logFC := make([]float64, n)
	pct1 := make([]float64, n)
	pct2 := make([]float64, n)
	cluster := make([]int, n)
	gene := make([]string, n)
	for i, r := range rows {
		pval[i] = r.PVal
		pvalAdj[i] = r.PValAdj
		logFC[i] = r.AvgLogFC
		pct1[i] = r.Pct1
		pct2[i] = r.Pct2
		cluster[i] = r.Cluster
		gene[i] = r.Gene
	}
	return dataframe.New(
		series.New(pval, series.Float, "p_val"),
		series.New(pvalAdj, series.Float, "p_val_adj"),
		series.New(logFC, series.Float, "avg_logFC"),
		series.New(pct1, series.Float, "pct.1"),
		series.New(pct2, series.Float, "pct.2"),
		series.New(cluster, series.Int, "cluster"),
		series.New(gene, series.String, "gene"),
	)
}

// WideResult renders rows as an F x K (feature rows, cluster columns)
// wide matrix, one value per (feature, cluster) pair selected by
// valueOf. genes is the ordered list of feature names that become
// the row labels.
func WideResult(rows []Row, genes []string, k int, valueOf func(Row) float64) *mat.Dense {
	index := make(map[string]int, len(genes))
	for i, g := range genes {
		index[g] = i
	}
	out := mat.NewDense(len(genes), k, nil)
	for _, r := range rows {
		if i, ok := index[r.Gene]; ok && r.Cluster < k {
			out.Set(i, r.Cluster, valueOf(r))
		}
	}
	return out
}
