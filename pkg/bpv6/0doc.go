// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bpv6 provides the wire format of the Bundle Protocol Version 6 as
// specified in RFC 5050. A Bundle consists of a PrimaryHeader, whose endpoint
// identifiers are stored in a Dictionary, and a single PayloadBlockHeader.
//
//	ph := bpv6.NewPrimaryHeader(0,
//	  bpv6.ParseEndpointID("dtn:dest"), bpv6.ParseEndpointID("dtn:src"),
//	  bpv6.DtnTimeNow(), 0, 0)
//	b, err := bpv6.NewBundle(ph, []byte("hello world"))
//	data, err := b.MarshalBinary()
//
// Received byte streams can be split into bundles with FrameLength, which
// reports ErrIncompleteFrame until the headers are available.
package bpv6
