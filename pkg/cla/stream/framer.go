// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"errors"
	"io"
	"time"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// Framer defines how serialized bundles are written onto and read from a
// byte stream.
type Framer interface {
	WriteFrame(w io.Writer, frame []byte) error
	NewFrameReader(r io.Reader) FrameReader
}

// FrameReader returns one serialized bundle per ReadFrame call. At the end
// of the stream, io.EOF is returned.
type FrameReader interface {
	ReadFrame() ([]byte, error)
}

// KeepAliver may be implemented by a Framer to keep idle connections open.
type KeepAliver interface {
	KeepAlive(w io.Writer) error
	KeepAliveInterval() time.Duration
}

// RawFramer writes serialized bundles as they are. Reading relies on the
// self-delimiting bundle headers.
type RawFramer struct{}

// WriteFrame writes the frame unaltered.
func (RawFramer) WriteFrame(w io.Writer, frame []byte) error {
	_, err := w.Write(frame)
	return err
}

// NewFrameReader splits the stream by bpv6.FrameLength.
func (RawFramer) NewFrameReader(r io.Reader) FrameReader {
	return &rawFrameReader{r: r}
}

const rawReadSize = 4096

type rawFrameReader struct {
	r   io.Reader
	buf []byte
	err error
}

func (rr *rawFrameReader) ReadFrame() ([]byte, error) {
	chunk := make([]byte, rawReadSize)

	for {
		if len(rr.buf) > 0 {
			l, err := bpv6.FrameLength(rr.buf)
			if err == nil && l <= len(rr.buf) {
				frame := append([]byte(nil), rr.buf[:l]...)
				rr.buf = rr.buf[l:]
				return frame, nil
			} else if err != nil && !errors.Is(err, bpv6.ErrIncompleteFrame) {
				return nil, err
			}
		}

		if rr.err != nil {
			if rr.err == io.EOF && len(rr.buf) > 0 {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, rr.err
		}

		n, err := rr.r.Read(chunk)
		rr.buf = append(rr.buf, chunk[:n]...)
		rr.err = err
	}
}
