// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package routing maps bundle endpoints to the transport addresses of the
// nodes serving them.
package routing

import (
	"errors"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// NoRoute is the address returned for endpoints without a route.
const NoRoute = "127.0.0.1:0"

// ErrDuplicateRoute is returned if an endpoint already has a route.
var ErrDuplicateRoute = errors.New("routing: duplicate route")

// Protocol resolves endpoints to "host:port" addresses. Implementations must
// be safe for concurrent use.
type Protocol interface {
	// AddRoute maps an endpoint to an address.
	AddRoute(eid bpv6.EndpointID, address string) error

	// GetRoute returns the address for an endpoint or NoRoute.
	GetRoute(eid bpv6.EndpointID) string
}

// IsNoRoute checks if an address is the NoRoute sentinel.
func IsNoRoute(address string) bool {
	return address == NoRoute
}
