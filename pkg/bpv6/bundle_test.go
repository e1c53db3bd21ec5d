// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func testBundle(t *testing.T, payload []byte) Bundle {
	b, err := NewBundle(testPrimaryHeader(), payload)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestBundleRoundTrip(t *testing.T) {
	b := testBundle(t, []byte("hello world"))

	data, err := b.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	} else if len(data) != b.SerializedSize() {
		t.Fatalf("serialized %d bytes, expected %d", len(data), b.SerializedSize())
	}

	parsed, n, err := ParseBundle(data)
	if err != nil {
		t.Fatal(err)
	} else if n != len(data) {
		t.Fatalf("consumed %d of %d bytes", n, len(data))
	} else if !reflect.DeepEqual(b, parsed) {
		t.Fatalf("%v != %v", b, parsed)
	}

	streamed, err := ReadBundle(bytes.NewBuffer(data))
	if err != nil {
		t.Fatal(err)
	} else if !reflect.DeepEqual(b, streamed) {
		t.Fatalf("%v != %v", b, streamed)
	}

	payload, err := ExtractPayload(data)
	if err != nil {
		t.Fatal(err)
	} else if string(payload) != "hello world" {
		t.Fatalf("payload is %q", payload)
	}
}

func TestFrameLength(t *testing.T) {
	b := testBundle(t, bytes.Repeat([]byte{0x42}, 300))
	data, _ := b.MarshalBinary()

	headerLen := b.Primary.SerializedSize() + b.Payload.HeaderSize()

	for i := 0; i < headerLen; i++ {
		if _, err := FrameLength(data[:i]); !errors.Is(err, ErrIncompleteFrame) {
			t.Fatalf("FrameLength of %d bytes returned %v", i, err)
		}
	}

	for _, i := range []int{headerLen, headerLen + 1, len(data)} {
		if l, err := FrameLength(data[:i]); err != nil {
			t.Fatal(err)
		} else if l != len(data) {
			t.Fatalf("FrameLength of %d bytes returned %d, expected %d", i, l, len(data))
		}
	}

	two := append(append([]byte{}, data...), data...)
	if l, err := FrameLength(two); err != nil || l != len(data) {
		t.Fatalf("FrameLength of two bundles returned (%d, %v)", l, err)
	}

	if _, err := FrameLength([]byte{0x07, 0x00}); !errors.Is(err, ErrVersion) {
		t.Fatalf("FrameLength of wrong version returned %v", err)
	}
}

func TestBundleCheckValid(t *testing.T) {
	ph := testPrimaryHeader()
	ph.SetFragment(5, 10)

	if _, err := NewBundle(ph, []byte("hello")); err != nil {
		t.Fatalf("valid fragment errored: %v", err)
	}
	if _, err := NewBundle(ph, []byte("hello world")); err == nil {
		t.Fatal("fragment exceeding its ADU is valid")
	}
}

func TestBundleJSON(t *testing.T) {
	b := testBundle(t, []byte("foo"))

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatal(err)
	}

	var obj map[string]map[string]interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatal(err)
	}

	if dst := obj["primaryHeader"]["destination"]; dst != "dtn:dst" {
		t.Fatalf("destination is %v", dst)
	}
	if l := obj["payloadBlock"]["payloadLength"]; l != 3.0 {
		t.Fatalf("payload length is %v", l)
	}
}
