// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"errors"
	"fmt"
	"sort"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
)

// Registration binds a local endpoint to this Core. Only active
// registrations receive bundles.
type Registration struct {
	Endpoint bpv6.EndpointID `json:"endpoint"`
	Lifetime uint64          `json:"lifetime"`
	Active   bool            `json:"active"`
}

func (r Registration) String() string {
	state := "passive"
	if r.Active {
		state = "active"
	}
	return fmt.Sprintf("registration(%v, %s)", r.Endpoint, state)
}

// enableReceive must be called with the lock held.
func (c *Core) enableReceive(eid bpv6.EndpointID) error {
	if c.conv == nil {
		return ErrNoConvergenceLayer
	}

	if err := c.conv.EnableReceive(eid); err != nil && !errors.Is(err, cla.ErrAlreadyReceiving) {
		return err
	}
	return nil
}

// disableReceive must be called with the lock held.
func (c *Core) disableReceive(eid bpv6.EndpointID) error {
	if c.conv == nil {
		return nil
	}

	if err := c.conv.DisableReceive(eid); err != nil && !errors.Is(err, cla.ErrNotReceiving) {
		return err
	}
	return nil
}

// Register a new endpoint. An active registration starts receiving
// immediately; if this fails, the endpoint stays unregistered.
func (c *Core) Register(eid bpv6.EndpointID, info RegisterInfo) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.registrations[eid]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicateRegistration, eid)
	}

	if info.Active {
		if err := c.enableReceive(eid); err != nil {
			return err
		}
	}

	c.registrations[eid] = &Registration{
		Endpoint: eid,
		Lifetime: info.Lifetime,
		Active:   info.Active,
	}

	log.WithFields(log.Fields{
		"endpoint": eid,
		"active":   info.Active,
		"lifetime": info.Lifetime,
	}).Info("Registered endpoint")

	return nil
}

func (c *Core) registration(eid bpv6.EndpointID) (*Registration, error) {
	reg, ok := c.registrations[eid]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEndpoint, eid)
	}
	return reg, nil
}

// Unregister makes an endpoint's registration passive. Bundles addressed to
// it are still queued, but it stops receiving new ones from the convergence
// layer.
func (c *Core) Unregister(eid bpv6.EndpointID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	reg, err := c.registration(eid)
	if err != nil {
		return err
	} else if !reg.Active {
		return nil
	}

	if err := c.disableReceive(eid); err != nil {
		return err
	}
	reg.Active = false

	log.WithField("endpoint", eid).Info("Endpoint became passive")
	return nil
}

// Bind makes a passive registration active again.
func (c *Core) Bind(eid bpv6.EndpointID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	reg, err := c.registration(eid)
	if err != nil {
		return err
	} else if reg.Active {
		return nil
	}

	if err := c.enableReceive(eid); err != nil {
		return err
	}
	reg.Active = true

	log.WithField("endpoint", eid).Info("Endpoint became active")
	return nil
}

// Close removes an endpoint's registration. Its queues are kept for a later
// registration of the same endpoint.
func (c *Core) Close(eid bpv6.EndpointID) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	reg, err := c.registration(eid)
	if err != nil {
		return err
	}

	if reg.Active {
		if err := c.disableReceive(eid); err != nil {
			log.WithFields(log.Fields{
				"endpoint": eid,
				"error":    err,
			}).Warn("Disabling reception of a closed registration errored")
		}
	}
	delete(c.registrations, eid)

	log.WithField("endpoint", eid).Info("Closed registration")
	return nil
}

// IsRegistered checks for an active or passive registration.
func (c *Core) IsRegistered(eid bpv6.EndpointID) bool {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	_, ok := c.registrations[eid]
	return ok
}

// Registrations returns a copy of all registrations, sorted by endpoint.
func (c *Core) Registrations() []Registration {
	c.mutex.Lock()
	regs := make([]Registration, 0, len(c.registrations))
	for _, reg := range c.registrations {
		regs = append(regs, *reg)
	}
	c.mutex.Unlock()

	sort.Slice(regs, func(i, j int) bool {
		return regs[i].Endpoint.Less(regs[j].Endpoint)
	})
	return regs
}
