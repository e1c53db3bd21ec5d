// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// showBundle for the "show" CLI options.
func showBundle(args []string) {
	if len(args) != 1 {
		printUsage()
	}

	f, err := openInput(args[0])
	if err != nil {
		printFatal(err, "Opening file for reading errored")
	}

	b, err := bpv6.ReadBundle(f)
	if err != nil {
		printFatal(err, "Unmarshaling Bundle errored")
	}
	if err = f.Close(); err != nil {
		printFatal(err, "Closing file errored")
	}

	bMsg, err := b.MarshalJSON()
	if err != nil {
		printFatal(err, "Marshaling JSON errored")
	}
	fmt.Println(string(bMsg))
}
