// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"fmt"
	"sort"
)

// Chunks splits an application data unit into pieces of at most size bytes.
// An empty ADU results in a single empty chunk.
func Chunks(adu []byte, size int) [][]byte {
	if size <= 0 || len(adu) <= size {
		return [][]byte{adu}
	}

	chunks := make([][]byte, 0, (len(adu)+size-1)/size)
	for offset := 0; offset < len(adu); offset += size {
		end := offset + size
		if end > len(adu) {
			end = len(adu)
		}
		chunks = append(chunks, adu[offset:end])
	}
	return chunks
}

// Reassemble merges the payloads of fragments of the same ADU, ordered by
// their fragment offset. A single non-fragment bundle is returned as is.
func Reassemble(bs []Bundle) ([]byte, error) {
	if len(bs) == 0 {
		return nil, fmt.Errorf("no bundles to reassemble")
	}

	if len(bs) == 1 && !bs[0].Primary.IsFragment() {
		return bs[0].Payload.Payload, nil
	}

	frags := make([]Bundle, len(bs))
	copy(frags, bs)
	sort.Slice(frags, func(i, j int) bool {
		return frags[i].Primary.FragmentOffset < frags[j].Primary.FragmentOffset
	})

	aduLength := frags[0].Primary.AduLength
	adu := make([]byte, 0, aduLength)

	for _, frag := range frags {
		if !frag.Primary.IsFragment() {
			return nil, fmt.Errorf("bundle %v is no fragment", frag.Primary)
		} else if frag.Primary.AduLength != aduLength {
			return nil, fmt.Errorf("fragments disagree on ADU length: %d and %d",
				aduLength, frag.Primary.AduLength)
		} else if frag.Primary.FragmentOffset != uint64(len(adu)) {
			return nil, fmt.Errorf("expected fragment at offset %d, got %d",
				len(adu), frag.Primary.FragmentOffset)
		}

		adu = append(adu, frag.Payload.Payload...)
	}

	if uint64(len(adu)) != aduLength {
		return nil, fmt.Errorf("reassembled %d of %d bytes", len(adu), aduLength)
	}
	return adu, nil
}
