// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import "errors"

var (
	// ErrIncompleteFrame is returned if a buffer does not contain a whole
	// header or bundle yet. More bytes may complete it.
	ErrIncompleteFrame = errors.New("bpv6: incomplete frame")

	// ErrVersion is returned for primary headers of another protocol version.
	ErrVersion = errors.New("bpv6: unsupported protocol version")

	// ErrBlockType is returned if the block following the primary header is
	// not a payload block.
	ErrBlockType = errors.New("bpv6: unsupported block type")

	// ErrDictionaryOffset is returned for dictionary references pointing
	// outside the dictionary.
	ErrDictionaryOffset = errors.New("bpv6: dictionary offset out of range")

	// ErrFieldRange is returned if a decoded field exceeds its value range.
	ErrFieldRange = errors.New("bpv6: field value out of range")
)
