// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/quickde/fastde"
)

// bindCmd implements both `rbind` and `cbind` over a list of gob
// matrix files named on the command line, distinguished by axis.
type bindCmd struct {
	axis string // "row" or "col"
}

func (cmd *bindCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var err error
	defer func() {
		if err != nil {
			fmt.Fprintf(stderr, "%s\n", err)
		}
	}()
	flags := flag.NewFlagSet(prog, flag.ContinueOnError)
	flags.SetOutput(stderr)
	outputFilename := flags.String("o", "-", "output `file`")
	if err = flags.Parse(args); err == flag.ErrHelp {
		return 0
	} else if err != nil {
		return 2
	}
	inputs := flags.Args()
	if len(inputs) == 0 {
		err = fmt.Errorf("%s: at least one input file is required", prog)
		return 2
	}

	mats := make([]*fastde.CSC64, 0, len(inputs))
	for _, fn := range inputs {
		f, oerr := os.Open(fn)
		if oerr != nil {
			err = oerr
			return 1
		}
		m, rerr := fastde.ReadMatrix64(f, isGzip(fn))
		f.Close()
		if rerr != nil {
			err = rerr
			return 1
		}
		mats = append(mats, m)
	}

	var out *fastde.CSC64
	if cmd.axis == "row" {
		out, err = fastde.RBind64(mats)
	} else {
		out, err = fastde.CBind64(mats)
	}
	if err != nil {
		return 1
	}

	outfile, err := createOutput(*outputFilename, stdout)
	if err != nil {
		return 1
	}
	defer outfile.Close()
	if err = fastde.WriteMatrix64(outfile, out, isGzip(*outputFilename)); err != nil {
		return 1
	}
	return 0
}
