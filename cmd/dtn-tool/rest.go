// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/agent"
	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/core"
)

// receivePollInterval between two unsuccessful receive requests.
const receivePollInterval = 500 * time.Millisecond

func parseEndpoint(uri string) bpv6.EndpointID {
	eid, ok := bpv6.ParseEndpointIDStrict(uri)
	if !ok {
		printFatal(fmt.Errorf("invalid endpoint %q", uri), "Parsing endpoint errored")
	}
	return eid
}

// registerEndpoint for the "register" CLI option.
func registerEndpoint(args []string) {
	if len(args) != 2 && len(args) != 3 {
		printUsage()
	}

	info := core.RegisterInfo{Active: true}
	if len(args) == 3 {
		if args[2] != "passive" {
			printUsage()
		}
		info.Active = false
	}

	client := agent.NewRestClient(args[0])
	if err := client.Register(parseEndpoint(args[1]), info); err != nil {
		printFatal(err, "Registering endpoint errored")
	}
}

// unregisterEndpoint for the "unregister" CLI option.
func unregisterEndpoint(args []string) {
	if len(args) != 2 {
		printUsage()
	}

	client := agent.NewRestClient(args[0])
	if err := client.Unregister(parseEndpoint(args[1])); err != nil {
		printFatal(err, "Unregistering endpoint errored")
	}
}

// sendData for the "send" CLI option.
func sendData(args []string) {
	if len(args) != 4 {
		printUsage()
	}

	var (
		client   = agent.NewRestClient(args[0])
		sender   = parseEndpoint(args[1])
		receiver = parseEndpoint(args[2])
	)

	data, err := readInput(args[3])
	if err != nil {
		printFatal(err, "Reading input errored")
	}

	if err := client.Send(data, sender, receiver); err != nil {
		printFatal(err, "Sending data errored")
	}

	log.WithFields(log.Fields{
		"sender":   sender,
		"receiver": receiver,
		"size":     len(data),
	}).Info("Sent data")
}

// receiveData for the "recv" CLI option.
func receiveData(args []string) {
	if len(args) != 2 && len(args) != 3 {
		printUsage()
	}

	var (
		client  = agent.NewRestClient(args[0])
		eid     = parseEndpoint(args[1])
		outName = "-"
	)
	if len(args) == 3 {
		outName = args[2]
	}

	var payload []byte
	for {
		data, ok, err := client.Receive(eid)
		if err != nil {
			printFatal(err, "Receiving data errored")
		} else if ok {
			payload = data
			break
		}

		time.Sleep(receivePollInterval)
	}

	f, err := openOutput(outName)
	if err != nil {
		printFatal(err, "Creating file errored")
	}
	if _, err = f.Write(payload); err != nil {
		printFatal(err, "Writing payload errored")
	}
	if err = f.Close(); err != nil {
		printFatal(err, "Closing file errored")
	}
}

// flushEndpoint for the "flush" CLI option.
func flushEndpoint(args []string) {
	if len(args) != 2 {
		printUsage()
	}

	client := agent.NewRestClient(args[0])
	sent, err := client.Flush(parseEndpoint(args[1]))
	if err != nil {
		printFatal(err, "Flushing endpoint errored")
	}

	fmt.Printf("%d bundle(s) sent\n", sent)
}
