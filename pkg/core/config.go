// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"time"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// DefaultBundleSize is the payload size of a single bundle before an ADU is
// fragmented.
const DefaultBundleSize = 512

// RegisterInfo describes a new registration.
type RegisterInfo struct {
	// Lifetime in seconds. It is recorded but not enforced.
	Lifetime uint64

	// Active registrations receive bundles from the convergence layer.
	Active bool
}

// Config of a Core.
type Config struct {
	// NodeID is registered on Start and closed on Stop.
	NodeID bpv6.EndpointID

	// BundleSize is the maximum payload size per bundle; larger data is
	// fragmented. Values below one fall back to DefaultBundleSize.
	BundleSize int

	// RegisterInfo is used for the NodeID's registration.
	RegisterInfo RegisterInfo

	// StorePath selects persistent stores in this directory. The stores are
	// kept in memory if empty.
	StorePath string

	// StartTime and StopTime are offsets for Schedule. A zero StopTime never
	// stops the Core.
	StartTime time.Duration
	StopTime  time.Duration
}

// DefaultConfig returns a Config with sane defaults for the given node.
func DefaultConfig(nodeID bpv6.EndpointID) Config {
	return Config{
		NodeID:     nodeID,
		BundleSize: DefaultBundleSize,
		RegisterInfo: RegisterInfo{
			Lifetime: 0,
			Active:   true,
		},
	}
}

func (conf Config) bundleSize() int {
	if conf.BundleSize < 1 {
		return DefaultBundleSize
	}
	return conf.BundleSize
}
