// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bytes"
	"fmt"
)

// Dictionary is the byte array of a primary header, holding NUL-terminated
// endpoint scheme names and scheme-specific parts. Entries are referenced by
// their byte offset. Each Add appends, equal strings are not shared.
type Dictionary struct {
	data []byte
}

// NewDictionary wraps a raw dictionary, e.g., as read from the wire.
func NewDictionary(data []byte) Dictionary {
	return Dictionary{data: append([]byte(nil), data...)}
}

// Add appends an entry and returns its offset.
func (d *Dictionary) Add(entry string) (offset uint64) {
	offset = uint64(len(d.data))
	d.data = append(d.data, entry...)
	d.data = append(d.data, 0x00)
	return
}

// Lookup returns the entry starting at the offset, ending at the next NUL
// byte or at the end of the dictionary.
func (d Dictionary) Lookup(offset uint64) (string, error) {
	if offset >= uint64(len(d.data)) {
		return "", fmt.Errorf("%w: %d of %d", ErrDictionaryOffset, offset, len(d.data))
	}

	tail := d.data[offset:]
	if end := bytes.IndexByte(tail, 0x00); end >= 0 {
		return string(tail[:end]), nil
	}
	return string(tail), nil
}

// EntryLength returns the length of the entry at the offset, without its
// terminating NUL byte.
func (d Dictionary) EntryLength(offset uint64) uint64 {
	entry, _ := d.Lookup(offset)
	return uint64(len(entry))
}

// Bytes returns the raw dictionary.
func (d Dictionary) Bytes() []byte {
	return d.data
}

// Len returns the dictionary's length in bytes.
func (d Dictionary) Len() int {
	return len(d.data)
}
