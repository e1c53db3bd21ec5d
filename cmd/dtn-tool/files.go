// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/ulikunitz/xz"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

const xzSuffix = ".xz"

// xzWriteCloser closes both the xz stream and its underlying file.
type xzWriteCloser struct {
	*xz.Writer
	f io.Closer
}

func (w xzWriteCloser) Close() (err error) {
	if xzErr := w.Writer.Close(); xzErr != nil {
		err = multierror.Append(err, xzErr)
	}
	if fErr := w.f.Close(); fErr != nil {
		err = multierror.Append(err, fErr)
	}
	return
}

// xzReadCloser reads a decompressed file.
type xzReadCloser struct {
	*xz.Reader
	f io.Closer
}

func (r xzReadCloser) Close() error {
	return r.f.Close()
}

// openInput opens stdin for "-" or the named file. Files ending in .xz are
// decompressed.
func openInput(name string) (io.ReadCloser, error) {
	if name == "-" {
		return os.Stdin, nil
	}

	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, xzSuffix) {
		return f, nil
	}

	xzR, err := xz.NewReader(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return xzReadCloser{Reader: xzR, f: f}, nil
}

// openOutput creates stdout for "-" or the named file. Files ending in .xz are
// compressed.
func openOutput(name string) (io.WriteCloser, error) {
	if name == "-" {
		return os.Stdout, nil
	}

	f, err := os.Create(name)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(name, xzSuffix) {
		return f, nil
	}

	xzW, err := xz.NewWriter(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return xzWriteCloser{Writer: xzW, f: f}, nil
}

// readInput reads everything from stdin for "-" or from the named file.
func readInput(name string) (data []byte, err error) {
	r, err := openInput(name)
	if err != nil {
		return
	}

	data, err = io.ReadAll(r)
	if closeErr := r.Close(); err == nil {
		err = closeErr
	}
	return
}

// bundleName derives a file name from a Bundle's identifying fields.
func bundleName(b bpv6.Bundle) string {
	id := fmt.Sprintf("%v-%d-%d-%d",
		b.Primary.SourceEID(), b.Primary.CreationTimestamp,
		b.Primary.SequenceNumber, b.Primary.FragmentOffset)
	return hex.EncodeToString([]byte(id))
}
