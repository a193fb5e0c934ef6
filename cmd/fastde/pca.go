// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/james-bowman/nlp"
	"github.com/kshedden/gonpy"
	"github.com/quickde/fastde"
)

// pcaCmd is an optional preview subcommand alongside the DE driver:
// project samples (columns) into their top-k principal components so
// a caller can eyeball cluster separation before running the full DE
// test.
type pcaCmd struct{}

func (cmd *pcaCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file`")
	outputFilename := flags.String("o", "-", "output .npy `file`")
	components := flags.Int("components", 2, "number of principal components")
	if err = flags.Parse(args); err == flag.ErrHelp {
		return 0
	} else if err != nil {
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
	if m.NNZ() > int64(^uint32(0)>>1) {
		err = fmt.Errorf("%s: matrix too large for PCA preview (nnz %d exceeds int32 range)", prog, m.NNZ())
		return 1
	}

	m32, err := fastde.FromArrays32(m.X, m.I, narrow(m.P), m.NRow, m.NCol, m.Rownames, m.Colnames)
	if err != nil {
		return 1
	}
	src := fastde.ToJamesBowmanCSC(m32)

	transform := nlp.NewPCA(*components)
	projected, err := transform.FitTransform(src)
	if err != nil {
		return 1
	}
	rows, cols := projected.Dims()
	flat := make([]float64, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			flat = append(flat, projected.At(r, c))
		}
	}

	outfile, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer outfile.Close()
	npw, err := gonpy.NewWriter(outfile)
	if err != nil {
		return 1
	}
	npw.Shape = []int{rows, cols}
	if err = npw.WriteFloat64(flat); err != nil {
		return 1
	}
	return 0
}

func narrow(p []int64) []int32 {
	out := make([]int32, len(p))
	for i, v := range p {
		out[i] = int32(v)
	}
	return out
}
