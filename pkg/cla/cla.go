// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cla defines the interface between the bundle engine and its
// Convergence Layer Adapter, the part moving serialized bundles between nodes.
//
// The bundle engine implements BundleProtocol and hands outgoing bundles to a
// ConvergenceLayer. Received bytes, peer changes and the like are reported
// back through the ConvergenceLayer's Channel as ConvergenceStatus values.
//
// The stream subpackage contains a generic ConvergenceLayer on top of byte
// streams. The stcp, mtcp, quicl and ws packages bind it to a transport.
package cla

import (
	"errors"
	"io"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/routing"
)

// DefaultPort is used to receive bundles for endpoints without a route.
const DefaultPort = 4556

var (
	// ErrNoRoute is returned if the routing protocol knows no address.
	ErrNoRoute = errors.New("cla: no route to endpoint")

	// ErrTransport wraps failures of the underlying transport.
	ErrTransport = errors.New("cla: transport failure")

	// ErrAlreadyReceiving is returned when enabling reception twice.
	ErrAlreadyReceiving = errors.New("cla: endpoint is already receiving")

	// ErrNotReceiving is returned when disabling reception of an endpoint
	// which is not receiving.
	ErrNotReceiving = errors.New("cla: endpoint is not receiving")

	// ErrNoRoutingProtocol is returned if no routing protocol was set.
	ErrNoRoutingProtocol = errors.New("cla: no routing protocol")

	// ErrClosed is returned after Close was called.
	ErrClosed = errors.New("cla: convergence layer is closed")
)

// BundleProtocol is implemented by the bundle engine.
type BundleProtocol interface {
	// ReceivePacket passes received bytes, which might hold partial or
	// multiple bundles.
	ReceivePacket(data []byte)

	// PeekBundle returns the oldest serialized bundle queued for
	// transmission from the source endpoint without removing it.
	PeekBundle(src bpv6.EndpointID) ([]byte, error)

	// GetBundle pops the oldest serialized bundle queued for transmission
	// from the source endpoint. A ConvergenceLayer calls it only after the
	// peeked bundle was written successfully.
	GetBundle(src bpv6.EndpointID) ([]byte, error)
}

// ConvergenceLayer transmits serialized bundles between nodes.
type ConvergenceLayer interface {
	// SendPacket transmits the next queued bundle of the given bundle's
	// source. A connection is opened if necessary.
	SendPacket(bundle []byte) error

	// EnableReceive starts accepting bundles for a local endpoint.
	EnableReceive(local bpv6.EndpointID) error

	// DisableReceive stops accepting bundles for a local endpoint.
	DisableReceive(local bpv6.EndpointID) error

	// EnableSend opens a connection for bundles from src towards dst.
	EnableSend(src, dst bpv6.EndpointID) error

	// TransportHandle returns the connection or listener associated to this
	// endpoint, if any.
	TransportHandle(eid bpv6.EndpointID) (io.Closer, bool)

	SetRoutingProtocol(r routing.Protocol)
	RoutingProtocol() routing.Protocol

	SetBundleProtocol(bp BundleProtocol)

	// Channel reports received data and peer changes. It is closed by Close.
	Channel() chan ConvergenceStatus

	// Close all connections and listeners.
	Close() error
}
