// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/dtn7/dtn6-go/pkg/sdnv"
)

// PayloadBlockType is the block type code of the bundle payload block.
const PayloadBlockType uint8 = 1

// MaxPayloadLength is the largest accepted payload length of a received
// block.
const MaxPayloadLength = math.MaxInt32

// PayloadBlockHeader is the bundle payload block of RFC 5050, section 4.5.2,
// the only canonical block supported here.
type PayloadBlockHeader struct {
	BlockType     uint8
	ControlFlags  BlockControlFlags
	PayloadLength uint64
	Payload       []byte
}

// NewPayloadBlockHeader creates a payload block for this data, marked as the
// last block of its bundle.
func NewPayloadBlockHeader(payload []byte) PayloadBlockHeader {
	return PayloadBlockHeader{
		BlockType:     PayloadBlockType,
		ControlFlags:  LastBlock,
		PayloadLength: uint64(len(payload)),
		Payload:       payload,
	}
}

// HeaderSize returns the length of the serialized header fields, excluding
// the payload itself.
func (pbh PayloadBlockHeader) HeaderSize() int {
	return 1 +
		sdnv.EncodingLength(uint64(pbh.ControlFlags)) +
		sdnv.EncodingLength(pbh.PayloadLength)
}

// SerializedSize returns the length of the whole serialized block.
func (pbh PayloadBlockHeader) SerializedSize() int {
	return pbh.HeaderSize() + int(pbh.PayloadLength)
}

// MarshalBinary serializes this block into its wire format.
func (pbh PayloadBlockHeader) MarshalBinary() ([]byte, error) {
	if pbh.PayloadLength != uint64(len(pbh.Payload)) {
		return nil, fmt.Errorf("PayloadBlockHeader: payload length %d differs from payload of %d bytes",
			pbh.PayloadLength, len(pbh.Payload))
	}

	buf := make([]byte, 0, pbh.SerializedSize())
	buf = append(buf, pbh.BlockType)
	buf = sdnv.Append(buf, uint64(pbh.ControlFlags))
	buf = sdnv.Append(buf, pbh.PayloadLength)
	buf = append(buf, pbh.Payload...)

	return buf, nil
}

// WriteTo writes the serialized block to w.
func (pbh PayloadBlockHeader) WriteTo(w io.Writer) (int64, error) {
	data, err := pbh.MarshalBinary()
	if err != nil {
		return 0, err
	}

	n, err := w.Write(data)
	return int64(n), err
}

func readPayloadFields(r byteReader) (pbh PayloadBlockHeader, err error) {
	if pbh.BlockType, err = r.ReadByte(); err != nil {
		err = streamErr(err)
		return
	} else if pbh.BlockType != PayloadBlockType {
		err = fmt.Errorf("%w: %d", ErrBlockType, pbh.BlockType)
		return
	}

	var flags uint64
	if flags, err = sdnv.Read(r); err != nil {
		err = streamErr(err)
		return
	}
	pbh.ControlFlags = BlockControlFlags(flags)

	if pbh.PayloadLength, err = sdnv.Read(r); err != nil {
		err = streamErr(err)
	} else if pbh.PayloadLength > MaxPayloadLength {
		err = fmt.Errorf("%w: payload length %d", ErrFieldRange, pbh.PayloadLength)
	}
	return
}

// ReadPayloadBlockHeader parses a whole payload block from a stream.
func ReadPayloadBlockHeader(r byteReader) (pbh PayloadBlockHeader, err error) {
	if pbh, err = readPayloadFields(r); err != nil {
		return
	}

	pbh.Payload = make([]byte, pbh.PayloadLength)
	if _, err = io.ReadFull(r, pbh.Payload); err != nil {
		err = streamErr(err)
	}
	return
}

// PeekPayloadBlockHeader parses only the header fields from the start of
// data and returns the amount of consumed bytes. The Payload stays nil.
func PeekPayloadBlockHeader(data []byte) (pbh PayloadBlockHeader, n int, err error) {
	r := bytes.NewReader(data)
	pbh, err = readPayloadFields(r)
	n = len(data) - r.Len()
	return
}

// UnmarshalPayloadBlockHeader parses a whole payload block from the start of
// data and returns the amount of consumed bytes.
func UnmarshalPayloadBlockHeader(data []byte) (pbh PayloadBlockHeader, n int, err error) {
	r := bytes.NewReader(data)
	pbh, err = ReadPayloadBlockHeader(r)
	n = len(data) - r.Len()
	return
}

// MarshalJSON creates a JSON object representing this block. The payload is
// encoded as base64 by encoding/json.
func (pbh PayloadBlockHeader) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		BlockType     uint8             `json:"blockType"`
		ControlFlags  BlockControlFlags `json:"blockControlFlags"`
		PayloadLength uint64            `json:"payloadLength"`
		Payload       []byte            `json:"payload"`
	}{
		BlockType:     pbh.BlockType,
		ControlFlags:  pbh.ControlFlags,
		PayloadLength: pbh.PayloadLength,
		Payload:       pbh.Payload,
	})
}
