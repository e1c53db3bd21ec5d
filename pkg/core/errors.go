// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import "errors"

var (
	// ErrDuplicateRegistration is returned when registering an endpoint twice.
	ErrDuplicateRegistration = errors.New("core: endpoint is already registered")

	// ErrUnknownEndpoint is returned for endpoints without a registration, or
	// sending from a passive one.
	ErrUnknownEndpoint = errors.New("core: unknown endpoint")

	// ErrNoData is returned by Receive if nothing is queued for an endpoint.
	ErrNoData = errors.New("core: no data available")

	// ErrEmptyQueue is returned by GetBundle and PeekBundle if a send queue is
	// drained.
	ErrEmptyQueue = errors.New("core: send queue is empty")

	// ErrNoConvergenceLayer is a fatal configuration error on Start.
	ErrNoConvergenceLayer = errors.New("core: no convergence layer configured")

	// ErrNoRoutingProtocol is a fatal configuration error on Start.
	ErrNoRoutingProtocol = errors.New("core: no routing protocol attached")
)
