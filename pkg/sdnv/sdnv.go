// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package sdnv implements Self-Delimiting Numeric Values as used by the
// Bundle Protocol version 6, RFC 5050, section 4.1.
//
// An unsigned integer is split into groups of seven bits. The groups are
// written most significant first, one per byte. Every byte except the last
// one has its high bit set.
package sdnv

import (
	"errors"
	"io"
)

const (
	valueMask    byte = 0x7F
	continueMask byte = 0x80

	// MaxLength is the maximum amount of bytes an encoded uint64 might occupy.
	MaxLength = 10
)

var (
	// ErrIncomplete is returned if the input ends before a terminating byte.
	ErrIncomplete = errors.New("sdnv: incomplete value")

	// ErrOverflow is returned if the decoded value does not fit into 64 bits.
	ErrOverflow = errors.New("sdnv: value overflows 64 bits")
)

// EncodingLength returns the amount of bytes required to encode v.
func EncodingLength(v uint64) (n int) {
	for n = 1; v >= 0x80; n++ {
		v >>= 7
	}
	return
}

// Append appends the encoding of v to dst and returns the extended slice.
func Append(dst []byte, v uint64) []byte {
	var l = EncodingLength(v)
	var buf [MaxLength]byte

	for i := l - 1; i >= 0; i-- {
		buf[i] = byte(v) & valueMask
		if i != l-1 {
			buf[i] |= continueMask
		}
		v >>= 7
	}

	return append(dst, buf[:l]...)
}

// Encode returns the SDNV representation of v. Zero is encoded as a single
// zero byte.
func Encode(v uint64) []byte {
	return Append(make([]byte, 0, EncodingLength(v)), v)
}

// IsLast checks if this byte terminates an SDNV, i.e., its high bit is clear.
func IsLast(b byte) bool {
	return b&continueMask == 0
}

// Decode reads an SDNV from the start of data. It returns the value and the
// amount of consumed bytes.
func Decode(data []byte) (value uint64, n int, err error) {
	for n < len(data) {
		b := data[n]
		n++

		if value > (^uint64(0))>>7 {
			err = ErrOverflow
			return
		}
		value = value<<7 | uint64(b&valueMask)

		if IsLast(b) {
			return
		}
	}

	err = ErrIncomplete
	return
}

// Read decodes one SDNV from a byte reader. A stream ending within the value
// results in io.ErrUnexpectedEOF, an already closed stream in io.EOF.
func Read(r io.ByteReader) (value uint64, err error) {
	for i := 0; ; i++ {
		b, bErr := r.ReadByte()
		if bErr == io.EOF && i > 0 {
			err = io.ErrUnexpectedEOF
			return
		} else if bErr != nil {
			err = bErr
			return
		}

		if value > (^uint64(0))>>7 {
			err = ErrOverflow
			return
		}
		value = value<<7 | uint64(b&valueMask)

		if IsLast(b) {
			return
		}
	}
}

// Write encodes v onto w.
func Write(w io.Writer, v uint64) error {
	_, err := w.Write(Encode(v))
	return err
}
