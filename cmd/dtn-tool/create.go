// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// bundleLifetime of created Bundles in seconds.
const bundleLifetime = 24 * 60 * 60

// newBundle addresses a single Bundle from sender to receiver.
func newBundle(sender, receiver string, data []byte) (b bpv6.Bundle, err error) {
	src, ok := bpv6.ParseEndpointIDStrict(sender)
	if !ok {
		return b, fmt.Errorf("invalid sender %q", sender)
	}
	dst, ok := bpv6.ParseEndpointIDStrict(receiver)
	if !ok {
		return b, fmt.Errorf("invalid receiver %q", receiver)
	}

	ph := bpv6.NewPrimaryHeader(0, dst, src, bpv6.DtnTimeNow(), 0, bundleLifetime)
	return bpv6.NewBundle(ph, data)
}

// createBundle for the "create" CLI option.
func createBundle(args []string) {
	if len(args) != 3 && len(args) != 4 {
		printUsage()
	}

	var (
		sender    = args[0]
		receiver  = args[1]
		dataInput = args[2]
		outName   = ""
	)

	data, err := readInput(dataInput)
	if err != nil {
		printFatal(err, "Reading input errored")
	}

	b, err := newBundle(sender, receiver, data)
	if err != nil {
		printFatal(err, "Building Bundle errored")
	}

	if len(args) == 4 {
		outName = args[3]
	} else {
		outName = bundleName(b)
	}

	f, err := openOutput(outName)
	if err != nil {
		printFatal(err, "Creating file errored")
	}

	if _, err = b.WriteTo(f); err != nil {
		printFatal(err, "Writing Bundle errored")
	}
	if err = f.Close(); err != nil {
		printFatal(err, "Closing file errored")
	}
}
