// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package core implements the bundle engine: registration of local
// endpoints, fragmentation and queueing of outgoing data and reassembly of
// incoming byte streams into queued bundles.
//
// A Core is bound to one convergence layer and one routing protocol. All of
// its state is serialized by a single lock; the convergence layer is never
// called back while holding it, except for enabling or disabling reception.
package core

import (
	"path/filepath"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
	"github.com/dtn7/dtn6-go/pkg/routing"
	"github.com/dtn7/dtn6-go/pkg/storage"
)

// Core is the bundle engine of a node.
type Core struct {
	conf   Config
	conv   cla.ConvergenceLayer
	router routing.Protocol

	registrations map[bpv6.EndpointID]*Registration
	sendStore     storage.Store
	recvStore     storage.Store
	recvBuffer    []byte
	idKeeper      *IdKeeper

	mutex sync.Mutex

	handlerAck   chan struct{}
	shutdownOnce sync.Once
}

func newStores(storePath string) (send, recv storage.Store, err error) {
	if storePath == "" {
		return storage.NewMemoryStore(), storage.NewMemoryStore(), nil
	}

	if send, err = storage.NewBadgerStore(filepath.Join(storePath, "send")); err != nil {
		return
	}
	if recv, err = storage.NewBadgerStore(filepath.Join(storePath, "recv")); err != nil {
		_ = send.Close()
		send = nil
	}
	return
}

// NewCore creates a Core for the configuration. The convergence layer and
// routing protocol are wired together; missing ones are reported by Start.
func NewCore(conf Config, conv cla.ConvergenceLayer, router routing.Protocol) (*Core, error) {
	sendStore, recvStore, err := newStores(conf.StorePath)
	if err != nil {
		return nil, err
	}

	c := &Core{
		conf:   conf,
		conv:   conv,
		router: router,

		registrations: make(map[bpv6.EndpointID]*Registration),
		sendStore:     sendStore,
		recvStore:     recvStore,
		idKeeper:      NewIdKeeper(),

		handlerAck: make(chan struct{}),
	}

	if conv != nil {
		if router != nil {
			conv.SetRoutingProtocol(router)
		}
		conv.SetBundleProtocol(c)

		go c.handler()
	} else {
		close(c.handlerAck)
	}

	log.WithFields(log.Fields{
		"node":        conf.NodeID,
		"bundle size": conf.bundleSize(),
		"store":       conf.StorePath,
	}).Debug("Created Core")

	return c, nil
}

// handler drains the convergence layer's Channel until it is closed.
func (c *Core) handler() {
	defer close(c.handlerAck)

	for cs := range c.conv.Channel() {
		switch cs.MessageType {
		case cla.ReceivedData:
			crd, ok := cs.Message.(cla.ConvergenceReceivedData)
			if !ok {
				log.WithFields(log.Fields{
					"cla":     cs.Sender,
					"message": cs.Message,
				}).Warn("Received data status without ConvergenceReceivedData")
				continue
			}
			c.ReceivePacket(crd.Data)

		case cla.PeerAppeared, cla.PeerDisappeared:
			log.WithFields(log.Fields{
				"cla":  cs.Sender,
				"type": cs.MessageType,
				"peer": cs.Message,
			}).Debug("Core received peer status")

		default:
			log.WithFields(log.Fields{
				"cla":    cs.Sender,
				"type":   cs.MessageType,
				"status": cs,
			}).Warn("Received ConvergenceStatus with unknown type")
		}
	}
}

// Config returns the Core's configuration.
func (c *Core) Config() Config {
	return c.conf
}

// checkConfig reports fatal configuration errors.
func (c *Core) checkConfig() error {
	if c.conv == nil {
		return ErrNoConvergenceLayer
	}
	if c.router == nil {
		return ErrNoRoutingProtocol
	}
	return nil
}

// Start registers the node's own endpoint.
func (c *Core) Start() error {
	if err := c.checkConfig(); err != nil {
		return err
	}

	log.WithField("node", c.conf.NodeID).Info("Starting Core")
	return c.Register(c.conf.NodeID, c.conf.RegisterInfo)
}

// Stop closes the node's own registration.
func (c *Core) Stop() error {
	log.WithField("node", c.conf.NodeID).Info("Stopping Core")
	return c.Close(c.conf.NodeID)
}

// Schedule Start and, if configured, Stop at their offsets.
func (c *Core) Schedule(sched Scheduler) {
	log.WithFields(log.Fields{
		"now":   sched.Now(),
		"start": c.conf.StartTime,
		"stop":  c.conf.StopTime,
	}).Debug("Scheduling Core")

	sched.Schedule(c.conf.StartTime, func() {
		if err := c.Start(); err != nil {
			log.WithError(err).Error("Starting Core errored")
		}
	})

	if c.conf.StopTime > 0 {
		sched.Schedule(c.conf.StopTime, func() {
			if err := c.Stop(); err != nil {
				log.WithError(err).Warn("Stopping Core errored")
			}
		})
	}
}

// Shutdown closes the convergence layer and the stores. The Core must not be
// used afterwards.
func (c *Core) Shutdown() (err error) {
	c.shutdownOnce.Do(func() {
		if c.conv != nil {
			if convErr := c.conv.Close(); convErr != nil {
				err = multierror.Append(err, convErr)
			}
		}
		<-c.handlerAck

		c.mutex.Lock()
		defer c.mutex.Unlock()

		for _, s := range []storage.Store{c.sendStore, c.recvStore} {
			if sErr := s.Close(); sErr != nil {
				err = multierror.Append(err, sErr)
			}
		}

		log.WithField("node", c.conf.NodeID).Info("Core was shut down")
	})
	return
}
