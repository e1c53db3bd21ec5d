// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/storage"
)

// ReceivePacket appends bytes from the convergence layer to the receive
// buffer and processes every complete bundle.
func (c *Core) ReceivePacket(data []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.recvBuffer = append(c.recvBuffer, data...)
	c.reassemble()
}

// reassemble slices complete bundles off the receive buffer. A malformed
// buffer is discarded, as its framing is lost.
func (c *Core) reassemble() {
	for len(c.recvBuffer) > 0 {
		l, err := bpv6.FrameLength(c.recvBuffer)
		if errors.Is(err, bpv6.ErrIncompleteFrame) {
			return
		} else if err != nil {
			log.WithFields(log.Fields{
				"buffered": len(c.recvBuffer),
				"error":    err,
			}).Warn("Discarding malformed receive buffer")

			c.recvBuffer = nil
			return
		} else if l > len(c.recvBuffer) {
			return
		}

		frame := make([]byte, l)
		copy(frame, c.recvBuffer)

		if l == len(c.recvBuffer) {
			c.recvBuffer = nil
		} else {
			c.recvBuffer = c.recvBuffer[l:]
		}

		c.processBundle(frame)
	}
}

// processBundle queues a bundle for its registered destination or drops it.
func (c *Core) processBundle(frame []byte) {
	ph, _, err := bpv6.UnmarshalPrimaryHeader(frame)
	if err != nil {
		log.WithError(err).Warn("Dropping bundle with malformed primary header")
		return
	}

	dst := ph.DestinationEID()
	fields := log.Fields{
		"sequence":    ph.SequenceNumber,
		"source":      ph.SourceEID(),
		"destination": dst,
		"size":        len(frame),
	}

	if _, ok := c.registrations[dst]; !ok {
		log.WithFields(fields).Info("Dropping bundle for unregistered endpoint")
		return
	}

	if err := c.recvStore.Push(dst, frame); err != nil {
		log.WithFields(fields).WithError(err).Warn("Failed to queue received bundle")
		return
	}

	log.WithFields(fields).Debug("Received bundle")
}

func (c *Core) popReceived(eid bpv6.EndpointID) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, ok := c.registrations[eid]; !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEndpoint, eid)
	}

	frame, err := c.recvStore.Pop(eid)
	if errors.Is(err, storage.ErrEmpty) {
		return nil, ErrNoData
	}
	return frame, err
}

// ReceiveBundle pops the oldest bundle received for a registered endpoint.
func (c *Core) ReceiveBundle(eid bpv6.EndpointID) (bpv6.Bundle, error) {
	frame, err := c.popReceived(eid)
	if err != nil {
		return bpv6.Bundle{}, err
	}

	b, _, err := bpv6.ParseBundle(frame)
	return b, err
}

// Receive pops the payload of the oldest bundle received for a registered
// endpoint. ErrNoData is returned if nothing is queued.
func (c *Core) Receive(eid bpv6.EndpointID) ([]byte, error) {
	b, err := c.ReceiveBundle(eid)
	if err != nil {
		return nil, err
	}
	return b.Payload.Payload, nil
}
