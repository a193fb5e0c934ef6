// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fastde

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/blake2b"
)

// gobMatrix64 is the on-disk gob encoding of a CSC64 matrix. This is
// a read-then-decode step, not a streaming cursor.
type gobMatrix64 struct {
	NRow, NCol int
	X          []float64
	I          []int32
	P          []int64
	Rownames   []string
	Colnames   []string
}

// WriteMatrix64 gob-encodes m to w, optionally through a parallel
// gzip writer for the compressed case.
func WriteMatrix64(w io.Writer, m *CSC64, gzipCompress bool) error {
	var out io.Writer = w
	var closer io.Closer
	if gzipCompress {
		gw := pgzip.NewWriter(w)
		out = gw
		closer = gw
	}
	bufw := bufio.NewWriter(out)
	enc := gob.NewEncoder(bufw)
	if err := enc.Encode(gobMatrix64{m.NRow, m.NCol, m.X, m.I, m.P, m.Rownames, m.Colnames}); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bufw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if closer != nil {
		return closer.Close()
	}
	return nil
}

// ReadMatrix64 decodes a matrix written by WriteMatrix64. gzipped is
// not auto-detected; callers should decide based on the filename
// (strings.HasSuffix(name, ".gz")).
func ReadMatrix64(r io.Reader, gzipped bool) (*CSC64, error) {
	var in io.Reader = r
	if gzipped {
		gr, err := pgzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer gr.Close()
		in = gr
	}
	dec := gob.NewDecoder(bufio.NewReaderSize(in, 1<<20))
	var gm gobMatrix64
	if err := dec.Decode(&gm); err != nil {
		return nil, fmt.Errorf("gob decode: %w", err)
	}
	m := &CSC64{NRow: gm.NRow, NCol: gm.NCol, X: gm.X, I: gm.I, P: gm.P, Rownames: gm.Rownames, Colnames: gm.Colnames}
	if err := validate(m); err != nil {
		return nil, err
	}
	logChecksum(m)
	return m, nil
}

// logChecksum logs a blake2b fingerprint of the matrix's raw arrays
// at debug level. Diagnostic only: the checksum is never compared
// against a stored value.
func logChecksum(m *CSC64) {
	if !log.IsLevelEnabled(log.DebugLevel) {
		return
	}
	h, _ := blake2b.New256(nil)
	for _, v := range m.X {
		fmt.Fprintf(h, "%x", v)
	}
	for _, v := range m.I {
		fmt.Fprintf(h, "%x", v)
	}
	for _, v := range m.P {
		fmt.Fprintf(h, "%x", v)
	}
	log.WithField("checksum", fmt.Sprintf("%x", h.Sum(nil))).Debug("loaded matrix")
}
