// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

// printUsage of dtn-tool and exit with an error code afterwards.
func printUsage() {
	_, _ = fmt.Fprintf(os.Stderr, "Usage of %s create|show|register|unregister|send|recv|flush|exchange:\n\n", os.Args[0])

	_, _ = fmt.Fprintf(os.Stderr, "%s create sender receiver -|filename [-|bundle-name]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Creates a new Bundle, addressed from sender to receiver, with the stdin (-) or\n")
	_, _ = fmt.Fprintf(os.Stderr, "  the given file (filename) as payload. If no bundle-name is specified, a\n")
	_, _ = fmt.Fprintf(os.Stderr, "  name is derived from the Bundle. A bundle-name ending in .xz is compressed.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s show -|filename\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Prints a JSON version of a Bundle, read from stdin (-) or filename.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s register rest-url endpoint-id [passive]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Registers an endpoint at the dtnd's RESTful Application Agent, e.g.,\n")
	_, _ = fmt.Fprintf(os.Stderr, "  http://localhost:8080/rest. Passive registrations do not receive.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s unregister rest-url endpoint-id\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Removes an endpoint's registration.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s send rest-url sender receiver -|filename\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Sends the stdin (-) or the given file from a registered sender.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s recv rest-url endpoint-id [-|filename]\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Waits for the next payload of a registered endpoint and writes it to the\n")
	_, _ = fmt.Fprintf(os.Stderr, "  stdout (-) or the given file.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s flush rest-url endpoint-id\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  Retries the transmission of an endpoint's queued Bundles.\n\n")

	_, _ = fmt.Fprintf(os.Stderr, "%s exchange rest-url endpoint-id directory\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  %s registers the endpoint and writes incoming payloads in the\n", os.Args[0])
	_, _ = fmt.Fprintf(os.Stderr, "  directory. If the user drops a new Bundle in the directory, its payload\n")
	_, _ = fmt.Fprintf(os.Stderr, "  will be sent to its destination.\n\n")

	os.Exit(1)
}

// printFatal logs the error and exits with an error code afterwards.
func printFatal(err error, msg string) {
	log.WithError(err).Error(msg)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
	}

	switch os.Args[1] {
	case "create":
		createBundle(os.Args[2:])

	case "show":
		showBundle(os.Args[2:])

	case "register":
		registerEndpoint(os.Args[2:])

	case "unregister":
		unregisterEndpoint(os.Args[2:])

	case "send":
		sendData(os.Args[2:])

	case "recv":
		receiveData(os.Args[2:])

	case "flush":
		flushEndpoint(os.Args[2:])

	case "exchange":
		startExchange(os.Args[2:])

	default:
		printUsage()
	}
}
