// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func TestPayloadBlockHeaderSerialization(t *testing.T) {
	tests := []struct {
		payload []byte
		header  []byte
	}{
		{[]byte{}, []byte{0x01, 0x08, 0x00}},
		{[]byte("hello"), []byte{0x01, 0x08, 0x05}},
		{bytes.Repeat([]byte{0x23}, 400), []byte{0x01, 0x08, 0x83, 0x10}},
	}

	for _, test := range tests {
		pbh := NewPayloadBlockHeader(test.payload)

		data, err := pbh.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}

		if !bytes.Equal(data[:len(test.header)], test.header) {
			t.Fatalf("header is %x, expected %x", data[:len(test.header)], test.header)
		}
		if !bytes.Equal(data[len(test.header):], test.payload) {
			t.Fatalf("payload differs")
		}

		if pbh.HeaderSize() != len(test.header) || pbh.SerializedSize() != len(data) {
			t.Fatalf("sizes %d/%d differ from %d/%d",
				pbh.HeaderSize(), pbh.SerializedSize(), len(test.header), len(data))
		}

		parsed, n, err := UnmarshalPayloadBlockHeader(data)
		if err != nil {
			t.Fatal(err)
		} else if n != len(data) {
			t.Fatalf("consumed %d of %d bytes", n, len(data))
		} else if !reflect.DeepEqual(pbh, parsed) {
			t.Fatalf("%v != %v", pbh, parsed)
		}

		peeked, n, err := PeekPayloadBlockHeader(data[:len(test.header)])
		if err != nil {
			t.Fatal(err)
		} else if n != len(test.header) || peeked.PayloadLength != uint64(len(test.payload)) {
			t.Fatalf("peek returned %d bytes and length %d", n, peeked.PayloadLength)
		}
	}
}

func TestPayloadBlockHeaderErrors(t *testing.T) {
	if _, _, err := PeekPayloadBlockHeader([]byte{0x01, 0x08}); !errors.Is(err, ErrIncompleteFrame) {
		t.Fatalf("truncated header returned %v", err)
	}

	if _, _, err := UnmarshalPayloadBlockHeader([]byte{0x01, 0x08, 0x05, 'h', 'e'}); !errors.Is(err, ErrIncompleteFrame) {
		t.Fatalf("truncated payload returned %v", err)
	}

	if _, _, err := PeekPayloadBlockHeader([]byte{0x09, 0x00, 0x00}); !errors.Is(err, ErrBlockType) {
		t.Fatalf("wrong block type returned %v", err)
	}

	pbh := NewPayloadBlockHeader([]byte("foo"))
	pbh.PayloadLength = 23
	if _, err := pbh.MarshalBinary(); err == nil {
		t.Fatal("inconsistent payload length was serialized")
	}
}
