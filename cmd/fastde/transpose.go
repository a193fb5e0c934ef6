// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"flag"
	"fmt"
	"io"

	"github.com/quickde/fastde"
	log "github.com/sirupsen/logrus"
)

type transposeCmd struct{}

func (cmd *transposeCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	inputFilename := flags.String("i", "-", "input `file`")
	outputFilename := flags.String("o", "-", "output `file`")
	width := flags.String("width", "64", "pointer width of the transpose, 32 or 64 (32 fails if nnz exceeds int32 range; the output file always stores 64-bit pointers)")
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
	log.Infof("transposing %dx%d, nnz=%d", m.NRow, m.NCol, m.NNZ())

	outfile, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer outfile.Close()

	switch *width {
	case "64":
		t, terr := fastde.Transpose64(m)
		if terr != nil {
			err = terr
			return 1
		}
		err = fastde.WriteMatrix64(outfile, t, isGzip(*outputFilename))
	case "32":
		t, terr := fastde.Transpose32(m)
		if terr != nil {
			err = terr
			return 1
		}
		err = fastde.WriteMatrix64(outfile, fastde.Widen32(t), isGzip(*outputFilename))
	default:
		err = fmt.Errorf("invalid -width %q", *width)
		return 1
	}
	if err != nil {
		return 1
	}
	return 0
}
