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

// bundles creates the serialized bundles for data. More than one chunk
// results in fragments, each carrying its offset into data.
func (c *Core) bundles(data []byte, src, dst bpv6.EndpointID) ([][]byte, error) {
	chunks := bpv6.Chunks(data, c.conf.bundleSize())
	fragment := len(chunks) > 1

	frames := make([][]byte, 0, len(chunks))
	offset := 0

	for _, chunk := range chunks {
		ph := bpv6.NewPrimaryHeader(0, dst, src, bpv6.DtnTimeNow(), c.idKeeper.Next(), 0)
		if fragment {
			ph.SetFragment(uint64(offset), uint64(len(data)))
		}

		b, err := bpv6.NewBundle(ph, chunk)
		if err != nil {
			return nil, err
		}

		frame, err := b.MarshalBinary()
		if err != nil {
			return nil, err
		}

		frames = append(frames, frame)
		offset += len(chunk)
	}

	return frames, nil
}

// Send data from an active registration to a destination. The data is split
// into bundles of the configured size, queued for src and handed to the
// convergence layer. Transmission failures are logged and leave the bundles
// queued; see Flush.
func (c *Core) Send(data []byte, src, dst bpv6.EndpointID) error {
	c.mutex.Lock()

	if reg, ok := c.registrations[src]; !ok || !reg.Active {
		c.mutex.Unlock()
		return fmt.Errorf("%w: %v is no active registration", ErrUnknownEndpoint, src)
	}

	frames, err := c.bundles(data, src, dst)
	if err != nil {
		c.mutex.Unlock()
		return err
	}

	for _, frame := range frames {
		if err := c.sendStore.Push(src, frame); err != nil {
			c.mutex.Unlock()
			return err
		}
	}
	c.mutex.Unlock()

	log.WithFields(log.Fields{
		"source":      src,
		"destination": dst,
		"size":        len(data),
		"bundles":     len(frames),
	}).Debug("Queued data for sending")

	for _, frame := range frames {
		if err := c.conv.SendPacket(frame); err != nil {
			log.WithFields(log.Fields{
				"source":      src,
				"destination": dst,
				"error":       err,
			}).Warn("Convergence layer failed to send bundle, it stays queued")
			break
		}
	}

	return nil
}

// PeekBundle returns the oldest queued bundle of src, which stays queued.
func (c *Core) PeekBundle(src bpv6.EndpointID) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	frame, err := c.sendStore.Peek(src)
	if errors.Is(err, storage.ErrEmpty) {
		return nil, fmt.Errorf("%w: %v", ErrEmptyQueue, src)
	}
	return frame, err
}

// GetBundle pops the oldest queued bundle of src. It is called by the
// convergence layer after each successful transmission.
func (c *Core) GetBundle(src bpv6.EndpointID) ([]byte, error) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	frame, err := c.sendStore.Pop(src)
	if errors.Is(err, storage.ErrEmpty) {
		return nil, fmt.Errorf("%w: %v", ErrEmptyQueue, src)
	} else if err != nil {
		return nil, err
	}

	if ph, _, phErr := bpv6.UnmarshalPrimaryHeader(frame); phErr == nil {
		log.WithFields(log.Fields{
			"sequence":    ph.SequenceNumber,
			"source":      src,
			"destination": ph.DestinationEID(),
			"size":        len(frame),
		}).Debug("Sent bundle dequeued")
	}

	return frame, nil
}

// Flush retries the transmission of all bundles queued for src. It stops at
// the first failure and returns the amount of sent bundles.
func (c *Core) Flush(src bpv6.EndpointID) (sent int, err error) {
	if c.conv == nil {
		return 0, ErrNoConvergenceLayer
	}

	c.mutex.Lock()
	pending := c.sendStore.Len(src)
	c.mutex.Unlock()

	for ; sent < pending; sent++ {
		c.mutex.Lock()
		frame, peekErr := c.sendStore.Peek(src)
		c.mutex.Unlock()

		if errors.Is(peekErr, storage.ErrEmpty) {
			return
		} else if peekErr != nil {
			err = peekErr
			return
		}

		if err = c.conv.SendPacket(frame); err != nil {
			return
		}
	}

	if sent > 0 {
		log.WithFields(log.Fields{
			"source":  src,
			"bundles": sent,
		}).Info("Flushed send queue")
	}
	return
}

// FlushAll calls Flush for every active registration with queued bundles.
// Queues of passive or closed endpoints are left untouched.
func (c *Core) FlushAll() {
	c.mutex.Lock()
	var eids []bpv6.EndpointID
	for _, eid := range c.sendStore.Endpoints() {
		if reg, ok := c.registrations[eid]; ok && reg.Active {
			eids = append(eids, eid)
		}
	}
	c.mutex.Unlock()

	for _, eid := range eids {
		if _, err := c.Flush(eid); err != nil {
			log.WithFields(log.Fields{
				"source": eid,
				"error":  err,
			}).Debug("Flushing send queue errored")
		}
	}
}

// Pending returns the amount of bundles queued for transmission from src.
func (c *Core) Pending(src bpv6.EndpointID) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.sendStore.Len(src)
}
