// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package stcp provides the simplest convergence layer: serialized bundles
// are written back to back onto TCP connections. The receiver splits the
// stream based on the bundle headers.
package stcp

import (
	"github.com/dtn7/dtn6-go/pkg/cla/stream"
)

// NewSTCP creates a new, unconnected STCP convergence layer.
func NewSTCP() *stream.Adapter {
	return stream.NewAdapter("stcp", stream.TCPTransport{}, stream.RawFramer{})
}
