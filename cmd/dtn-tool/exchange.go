// SPDX-FileCopyrightText: 2020, 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/agent"
	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/core"
)

// exchange payloads between an user and a dtnd over the filesystem.
type exchange struct {
	directory  string
	endpointId bpv6.EndpointID
	knownFiles sync.Map
	client     *agent.RestClient
	watcher    *fsnotify.Watcher

	closeChan       chan os.Signal
	payloadReadChan chan []byte
	stopSyn         chan struct{}
}

// startExchange to exchange payloads between client and a dtnd.
func startExchange(args []string) {
	if len(args) != 3 {
		printUsage()
	}

	var (
		restUrl    = args[0]
		endpointId = args[1]
		directory  = args[2]

		err error
	)

	ex := &exchange{
		directory:       directory,
		endpointId:      parseEndpoint(endpointId),
		client:          agent.NewRestClient(restUrl),
		closeChan:       make(chan os.Signal, 1),
		payloadReadChan: make(chan []byte),
		stopSyn:         make(chan struct{}),
	}

	signal.Notify(ex.closeChan, os.Interrupt)

	if err = ex.register(); err != nil {
		printFatal(err, "Registering endpoint errored")
	}

	if ex.watcher, err = fsnotify.NewWatcher(); err != nil {
		printFatal(err, "Starting file watcher errored")
	}
	if err = ex.watcher.Add(directory); err != nil {
		printFatal(err, "Adding directory to file watcher errored")
	}

	go ex.handlePayloadRead()
	ex.handler()
}

// register the endpoint actively or bind an existing passive registration.
func (ex *exchange) register() error {
	regs, err := ex.client.Registrations()
	if err != nil {
		return err
	}

	for _, reg := range regs {
		if reg.Endpoint == ex.endpointId {
			return ex.client.Bind(ex.endpointId)
		}
	}
	return ex.client.Register(ex.endpointId, core.RegisterInfo{Active: true})
}

// cleanFilepath creates a relative path from the initial path to a new file's path.
func (ex *exchange) cleanFilepath(f string) string {
	if rel, err := filepath.Rel(ex.directory, f); err != nil {
		log.WithField("path", f).WithError(err).Fatal("Failed to clean file path")
		return ""
	} else {
		return rel
	}
}

func (ex *exchange) handler() {
	defer func() {
		close(ex.stopSyn)
		_ = ex.watcher.Close()

		if err := ex.client.Close(ex.endpointId); err != nil {
			log.WithError(err).Warn("Closing registration errored")
		}
	}()

	for i := 0; ; {
		select {
		case <-ex.closeChan:
			log.Info("Received interrupt signal")
			return

		case e, ok := <-ex.watcher.Events:
			if !ok {
				log.Error("fsnotify's Event channel was closed")
				return
			}

			if _, ok := ex.knownFiles.Load(ex.cleanFilepath(e.Name)); ok {
				log.WithField("file", e.Name).Debug("Skipping file; already known")
				continue
			}

			if e.Op&fsnotify.Create == 0 {
				log.WithFields(log.Fields{
					"file":      e.Name,
					"operation": e.Op.String(),
				}).Debug("Ignoring fsnotify event")
				continue
			}

			ex.readNewFile(e)

		case err, ok := <-ex.watcher.Errors:
			if !ok {
				log.Error("fsnotify's Errors channel was closed")
				return
			}

			log.WithError(err).Error("fsnotify errored")
			return

		case payload, ok := <-ex.payloadReadChan:
			if !ok {
				log.Error("Payload reader channel was closed")
				return
			}

			fileName := fmt.Sprintf("received-%d-%d", time.Now().Unix(), i)
			filePath := filepath.Join(ex.directory, fileName)
			i++

			// Store first, the fsnotify event might be faster than WriteFile's return.
			ex.knownFiles.Store(fileName, struct{}{})

			logger := log.WithFields(log.Fields{
				"file": filePath,
				"size": len(payload),
			})

			if err := os.WriteFile(filePath, payload, 0644); err != nil {
				logger.WithError(err).Error("Writing file errored")
				return
			}

			logger.Info("Saved received payload")
		}
	}
}

func (ex *exchange) readNewFile(e fsnotify.Event) {
	for i := 0; i < 5; i++ {
		if f, err := openInput(e.Name); err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Opening file errored, retrying..")
		} else if b, err := bpv6.ReadBundle(f); err != nil {
			_ = f.Close()
			log.WithError(err).WithField("file", e.Name).Warn("Unmarshalling Bundle errored, retrying..")
		} else if err := f.Close(); err != nil {
			log.WithError(err).WithField("file", e.Name).Warn("Closing file errored, retrying..")
		} else if err := ex.client.Send(b.Payload.Payload, ex.endpointId, b.Primary.DestinationEID()); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"file":   e.Name,
				"bundle": b,
			}).Error("Sending payload errored")
			return
		} else {
			log.WithFields(log.Fields{
				"file":        e.Name,
				"destination": b.Primary.DestinationEID(),
				"size":        len(b.Payload.Payload),
			}).Info("Sent payload")
			return
		}

		time.Sleep(time.Duration(math.Pow(2, float64(i))) * 100 * time.Millisecond)
	}

	log.WithField("file", e.Name).Error("Failed to process file, giving up.")
}

func (ex *exchange) handlePayloadRead() {
	defer close(ex.payloadReadChan)

	for {
		payload, ok, err := ex.client.Receive(ex.endpointId)
		if err != nil {
			log.WithError(err).Error("Receiving payload errored")
			return
		}

		if !ok {
			select {
			case <-ex.stopSyn:
				return
			case <-time.After(receivePollInterval):
				continue
			}
		}

		select {
		case <-ex.stopSyn:
			return
		case ex.payloadReadChan <- payload:
		}
	}
}
