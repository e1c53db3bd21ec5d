// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package storage provides FIFO queues of serialized bundles, one queue per
// endpoint.
package storage

import (
	"errors"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// ErrEmpty is returned when popping from an empty or unknown queue.
var ErrEmpty = errors.New("storage: queue is empty")

// Store holds FIFO queues of serialized bundles, indexed by endpoint.
// Implementations must be safe for concurrent use.
type Store interface {
	// Push appends a frame to the endpoint's queue, creating it if necessary.
	Push(eid bpv6.EndpointID, frame []byte) error

	// Pop removes and returns the oldest frame of the endpoint's queue. An
	// empty queue is removed and ErrEmpty is returned.
	Pop(eid bpv6.EndpointID) ([]byte, error)

	// Peek returns the oldest frame of the endpoint's queue without removing
	// it, or ErrEmpty.
	Peek(eid bpv6.EndpointID) ([]byte, error)

	// Len returns the amount of queued frames for this endpoint.
	Len(eid bpv6.EndpointID) int

	// Endpoints returns all endpoints with an existing queue, sorted.
	Endpoints() []bpv6.EndpointID

	// Close the Store. It must not be used afterwards.
	Close() error
}
