// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package routing

import (
	"fmt"
	"net"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// Route is a single entry of a StaticRouting table.
type Route struct {
	Endpoint bpv6.EndpointID
	Address  string
}

// RouteConf describes a route in a TOML configuration.
type RouteConf struct {
	Endpoint bpv6.EndpointID `toml:"endpoint"`
	Address  string          `toml:"address"`
}

// StaticRouting is a fixed, manually configured endpoint to address table.
type StaticRouting struct {
	routes map[bpv6.EndpointID]string
	mutex  sync.RWMutex
}

// NewStaticRouting creates an empty StaticRouting table.
func NewStaticRouting() *StaticRouting {
	return &StaticRouting{
		routes: make(map[bpv6.EndpointID]string),
	}
}

// NewStaticRoutingFromConfig creates a StaticRouting table from configured
// routes. A malformed or duplicate entry aborts the creation.
func NewStaticRoutingFromConfig(confs []RouteConf) (*StaticRouting, error) {
	sr := NewStaticRouting()
	for _, conf := range confs {
		if err := sr.AddRoute(conf.Endpoint, conf.Address); err != nil {
			return nil, err
		}
	}
	return sr, nil
}

// AddRoute maps an endpoint to a "host:port" address. Existing routes are
// never replaced, ErrDuplicateRoute is returned instead.
func (sr *StaticRouting) AddRoute(eid bpv6.EndpointID, address string) error {
	if _, _, err := net.SplitHostPort(address); err != nil {
		return fmt.Errorf("route for %v: %w", eid, err)
	}

	sr.mutex.Lock()
	defer sr.mutex.Unlock()

	if prev, exists := sr.routes[eid]; exists {
		return fmt.Errorf("%w: %v is already routed to %s", ErrDuplicateRoute, eid, prev)
	}
	sr.routes[eid] = address

	log.WithFields(log.Fields{
		"endpoint": eid,
		"address":  address,
	}).Debug("Static routing added route")

	return nil
}

// GetRoute returns the address for an endpoint or NoRoute.
func (sr *StaticRouting) GetRoute(eid bpv6.EndpointID) string {
	sr.mutex.RLock()
	defer sr.mutex.RUnlock()

	if address, ok := sr.routes[eid]; ok {
		return address
	}
	return NoRoute
}

// Routes returns all routes, sorted by their endpoint.
func (sr *StaticRouting) Routes() []Route {
	sr.mutex.RLock()
	eids := make([]bpv6.EndpointID, 0, len(sr.routes))
	for eid := range sr.routes {
		eids = append(eids, eid)
	}
	sr.mutex.RUnlock()

	bpv6.SortEndpointIDs(eids)

	routes := make([]Route, len(eids))
	for i, eid := range eids {
		routes[i] = Route{Endpoint: eid, Address: sr.GetRoute(eid)}
	}
	return routes
}
