// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
)

// Bundle is a RFC 5050 bundle, consisting of a primary header and a single
// payload block.
type Bundle struct {
	Primary PrimaryHeader
	Payload PayloadBlockHeader
}

// NewBundle creates a Bundle and checks its validity.
func NewBundle(primary PrimaryHeader, payload []byte) (b Bundle, err error) {
	b = Bundle{
		Primary: primary,
		Payload: NewPayloadBlockHeader(payload),
	}
	err = b.CheckValid()
	return
}

// CheckValid returns an array of errors for incorrect data.
func (b Bundle) CheckValid() (errs error) {
	if phErr := b.Primary.CheckValid(); phErr != nil {
		errs = multierror.Append(errs, phErr)
	}

	if bcfErr := b.Payload.ControlFlags.CheckValid(); bcfErr != nil {
		errs = multierror.Append(errs, bcfErr)
	}

	if b.Payload.PayloadLength != uint64(len(b.Payload.Payload)) {
		errs = multierror.Append(errs,
			fmt.Errorf("Bundle: payload length %d differs from payload of %d bytes",
				b.Payload.PayloadLength, len(b.Payload.Payload)))
	}

	if b.Primary.IsFragment() && b.Primary.FragmentOffset+b.Payload.PayloadLength > b.Primary.AduLength {
		errs = multierror.Append(errs,
			fmt.Errorf("Bundle: fragment exceeds ADU length %d", b.Primary.AduLength))
	}

	return
}

// SerializedSize returns the length of the serialized bundle.
func (b Bundle) SerializedSize() int {
	return b.Primary.SerializedSize() + b.Payload.SerializedSize()
}

// MarshalBinary serializes this Bundle into its wire format.
func (b *Bundle) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := b.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the serialized Bundle to w.
func (b *Bundle) WriteTo(w io.Writer) (n int64, err error) {
	var m int64
	if m, err = b.Primary.WriteTo(w); err != nil {
		return
	}
	n += m

	m, err = b.Payload.WriteTo(w)
	n += m
	return
}

// ReadBundle reads a whole Bundle from a stream. The reader is wrapped into
// a bufio.Reader unless it already supports reading single bytes.
func ReadBundle(r io.Reader) (b Bundle, err error) {
	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}

	if b.Primary, err = ReadPrimaryHeader(br); err != nil {
		return
	}
	b.Payload, err = ReadPayloadBlockHeader(br)
	return
}

// ParseBundle parses a Bundle from the start of data and returns the amount
// of consumed bytes.
func ParseBundle(data []byte) (b Bundle, n int, err error) {
	r := bytes.NewReader(data)
	b, err = ReadBundle(r)
	n = len(data) - r.Len()
	return
}

// FrameLength inspects the start of buf and returns the total length of the
// bundle beginning there: primary header, payload block header and payload.
// ErrIncompleteFrame is returned if the headers are not complete yet. The
// payload itself may still be missing; compare the result to len(buf).
func FrameLength(buf []byte) (int, error) {
	_, phLen, err := UnmarshalPrimaryHeader(buf)
	if err != nil {
		return 0, err
	}

	pbh, pbhLen, err := PeekPayloadBlockHeader(buf[phLen:])
	if err != nil {
		return 0, err
	}

	return phLen + pbhLen + int(pbh.PayloadLength), nil
}

// ExtractPayload strips both headers from a serialized bundle.
func ExtractPayload(frame []byte) ([]byte, error) {
	b, _, err := ParseBundle(frame)
	if err != nil {
		return nil, err
	}
	return b.Payload.Payload, nil
}

func (b Bundle) String() string {
	return fmt.Sprintf("bundle(%v, payload: %d bytes)", b.Primary, b.Payload.PayloadLength)
}

// MarshalJSON creates a JSON object for this Bundle.
func (b Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Primary json.Marshaler `json:"primaryHeader"`
		Payload json.Marshaler `json:"payloadBlock"`
	}{
		Primary: b.Primary,
		Payload: b.Payload,
	})
}
