// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/kshedden/gonpy"
	"github.com/quickde/fastde"
)

// sumsCmd implements both `rowsums` and `colsums`, distinguished by
// axis.
type sumsCmd struct {
	axis    string // "row" or "col"
	threads int
}

func (cmd *sumsCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
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
	flags.IntVar(&cmd.threads, "threads", 1, "worker count (rowsums only)")
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

	var sums []float64
	if cmd.axis == "row" {
		sums = fastde.RowSums(m, cmd.threads)
	} else {
		sums = fastde.ColSums(m)
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
	npw.Shape = []int{len(sums)}
	if err = npw.WriteFloat64(sums); err != nil {
		return 1
	}
	return 0
}
