// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kshedden/gonpy"
	"github.com/quickde/fastde"
	log "github.com/sirupsen/logrus"
)

// deCmd is the one-vs-rest differential expression driver's CLI
// front end.
type deCmd struct{}

func (cmd *deCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input matrix `file`")
	labelsFilename := flags.String("labels", "", "cluster label `file`, one integer per sample per line")
	outputFilename := flags.String("o", "-", "output `file`")
	featuresAsRows := flags.Bool("features-as-rows", true, "input matrix rows are features, columns are samples (false: rows are samples, columns are features)")
	test := flags.String("test", "rank_sum", "rank_sum|t")
	cc := flags.Bool("continuity-correction", true, "apply rank-sum continuity correction")
	varEqual := flags.Bool("var-equal", false, "pooled (true) vs Welch (false) t-test")
	alternative := flags.String("alternative", "two.sided", "two.sided|less|greater")
	minPct := flags.Float64("min-pct", 0.1, "minimum detection rate in either group")
	minDiffPct := flags.Float64("min-diff-pct", -1e300, "minimum |pct.1-pct.2|")
	logfcThresh := flags.Float64("logfc-threshold", 0.25, "minimum |avg_logFC|")
	onlyPos := flags.Bool("only-pos", false, "drop non-positive avg_logFC rows")
	pseudocount := flags.Float64("pseudocount", 1, "fold-change pseudocount")
	logBase := flags.Float64("log-base", 2, "fold-change log base")
	useExpm1 := flags.Bool("use-expm1", true, "invert log1p-normalized input before taking fold-change")
	pThresh := flags.Float64("p-thresh", 1e-2, "p-value reporting cutoff")
	threads := flags.Int("threads", 1, "worker count")
	format := flags.String("format", "csv", "csv (long-format table) or npy (wide gene x cluster p_val matrix)")
	if err = flags.Parse(args); err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}
	if *labelsFilename == "" {
		err = fmt.Errorf("%s: -labels is required", prog)
		return 2
	}

	infile, err := openInput(*inputFilename, stdin)
	if err != nil {
		return 1
	}
	defer infile.Close()
	m, err := fastde.ReadMatrix64(infile, isGzip(*inputFilename))
	if err != nil {
		return 1
	}
	// RunDE requires samples as rows, features as columns; transpose
	// whenever the input is stored the other way around.
	var mat fastde.Matrix = m
	if *featuresAsRows {
		mat, err = fastde.Transpose64(m)
		if err != nil {
			return 1
		}
	}

	labelsFile, err := openInput(*labelsFilename, stdin)
	if err != nil {
		return 1
	}
	labels, err := readLabels(labelsFile)
	labelsFile.Close()
	if err != nil {
		return 1
	}

	cfg := fastde.DefaultConfig()
	cfg.Test = *test
	cfg.ContinuityCorrection = *cc
	cfg.VarEqual = *varEqual
	cfg.Alternative, err = parseAlternative(*alternative)
	if err != nil {
		return 2
	}
	cfg.MinPct = *minPct
	cfg.MinDiffPct = *minDiffPct
	cfg.LogFCThreshold = *logfcThresh
	cfg.OnlyPos = *onlyPos
	cfg.FoldChange = fastde.FoldChangeOptions{Pseudocount: *pseudocount, LogBase: *logBase, UseExpm1: *useExpm1}
	cfg.PThresh = *pThresh
	cfg.Threads = *threads

	log.WithFields(log.Fields{"test": cfg.Test, "threads": cfg.Threads}).Info("running differential expression")
	rows, err := fastde.RunDE(mat, labels, cfg)
	if err != nil {
		return 1
	}

	outfile, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer outfile.Close()

	switch *format {
	case "csv", "":
		df := fastde.ResultTable(rows)
		if err = df.WriteCSV(outfile); err != nil {
			return 1
		}
	case "npy":
		genes := mat.ColNames()
		if len(genes) == 0 {
			_, nFeatures := mat.Dims()
			genes = make([]string, nFeatures)
			for i := range genes {
				genes[i] = strconv.Itoa(i)
			}
		}
		if err = writeWideNPY(outfile, rows, genes, labels); err != nil {
			return 1
		}
	default:
		err = fmt.Errorf("invalid -format %q", *format)
		return 2
	}
	return 0
}

func parseAlternative(s string) (fastde.Alternative, error) {
	switch s {
	case "two.sided", "two_sided", "":
		return fastde.TwoSided, nil
	case "less":
		return fastde.Less, nil
	case "greater":
		return fastde.Greater, nil
	default:
		return fastde.TwoSided, fmt.Errorf("invalid -alternative %q", s)
	}
}

func readLabels(r io.Reader) ([]int32, error) {
	var out []int32
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parse label %q: %w", line, err)
		}
		out = append(out, int32(v))
	}
	return out, scanner.Err()
}

// writeWideNPY renders rows as a wide gene x cluster p_val matrix, one
// row per input feature (in column order) and one column per
// cluster, and writes it as a .npy array.
func writeWideNPY(w io.WriteCloser, rows []fastde.Row, genes []string, labels []int32) error {
	_, k := fastde.ClusterSizes(labels)
	wide := fastde.WideResult(rows, genes, k, func(r fastde.Row) float64 { return r.PVal })
	nr, nc := wide.Dims()
	flat := make([]float64, 0, nr*nc)
	for r := 0; r < nr; r++ {
		for c := 0; c < nc; c++ {
			flat = append(flat, wide.At(r, c))
		}
	}
	npw, err := gonpy.NewWriter(w)
	if err != nil {
		return err
	}
	npw.Shape = []int{nr, nc}
	return npw.WriteFloat64(flat)
}
