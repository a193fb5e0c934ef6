// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

// handler is the per-subcommand contract: a single RunCommand method
// taking the program name, the subcommand's own argv, and the three
// standard streams, returning a process exit code.
type handler interface {
	RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int
}

// multi dispatches to one of a fixed set of named subcommands.
type multi map[string]handler

func (m multi) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintf(stderr, "usage: %s {%s} [options]\n", prog, joinKeys(m))
		return 2
	}
	h, ok := m[args[0]]
	if !ok {
		fmt.Fprintf(stderr, "%s: unknown subcommand %q\n", prog, args[0])
		return 2
	}
	return h.RunCommand(prog+" "+args[0], args[1:], stdin, stdout, stderr)
}

func joinKeys(m multi) string {
	var s string
	for k := range m {
		if s != "" {
			s += "|"
		}
		s += k
	}
	return s
}

type versionCmd struct{}

func (versionCmd) RunCommand(prog string, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fmt.Fprintln(stdout, "fastde (unknown version)")
	return 0
}

var handlers = multi{
	"version":  versionCmd{},
	"transpose": &transposeCmd{},
	"densify":   &densifyCmd{},
	"rowsums":   &sumsCmd{axis: "row"},
	"colsums":   &sumsCmd{axis: "col"},
	"rbind":     &bindCmd{axis: "row"},
	"cbind":     &bindCmd{axis: "col"},
	"de":        &deCmd{},
	"pca":       &pcaCmd{},
}

func main() {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.StandardLogger().Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	}
	os.Exit(handlers.RunCommand(os.Args[0], os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
