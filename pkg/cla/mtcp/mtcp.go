// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package mtcp provides a library for the Minimal TCP Convergence-Layer
// Protocol as defined in draft-ietf-dtn-mtcpcl-01.
//
// Each serialized bundle is sent as a CBOR byte string. Empty byte strings
// act as keepalives and are skipped by the receiver.
package mtcp

import (
	"bufio"
	"fmt"
	"io"
	"time"

	"github.com/dtn7/cboring"

	"github.com/dtn7/dtn6-go/pkg/cla/stream"
)

const (
	// keepAliveInterval between empty byte strings on idle connections.
	keepAliveInterval = 5 * time.Second

	// maxFrameSize limits the announced length of a single byte string.
	maxFrameSize = 1 << 30
)

// Framer wraps bundles into CBOR byte strings.
type Framer struct {
	// Interval between keepalives, keepAliveInterval if zero.
	Interval time.Duration
}

// WriteFrame writes the bundle as a CBOR byte string.
func (f Framer) WriteFrame(w io.Writer, frame []byte) error {
	bw := bufio.NewWriter(w)

	if err := cboring.WriteByteStringLen(uint64(len(frame)), bw); err != nil {
		return err
	}
	if _, err := bw.Write(frame); err != nil {
		return err
	}
	return bw.Flush()
}

// KeepAlive writes an empty byte string.
func (f Framer) KeepAlive(w io.Writer) error {
	return cboring.WriteByteStringLen(0, w)
}

// KeepAliveInterval returns the configured interval.
func (f Framer) KeepAliveInterval() time.Duration {
	if f.Interval <= 0 {
		return keepAliveInterval
	}
	return f.Interval
}

// NewFrameReader returns a FrameReader for CBOR byte strings.
func (f Framer) NewFrameReader(r io.Reader) stream.FrameReader {
	return &frameReader{r: bufio.NewReader(r)}
}

type frameReader struct {
	r *bufio.Reader
}

func (fr *frameReader) ReadFrame() ([]byte, error) {
	for {
		n, err := cboring.ReadByteStringLen(fr.r)
		if err != nil {
			return nil, err
		} else if n == 0 {
			continue
		} else if n > maxFrameSize {
			return nil, fmt.Errorf("MTCP byte string of %d bytes exceeds limit", n)
		}

		frame := make([]byte, n)
		if _, err := io.ReadFull(fr.r, frame); err != nil {
			return nil, err
		}
		return frame, nil
	}
}

// NewMTCP creates a new, unconnected MTCP convergence layer.
func NewMTCP() *stream.Adapter {
	return stream.NewAdapter("mtcp", stream.TCPTransport{}, Framer{})
}
