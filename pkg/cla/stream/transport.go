// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"io"
)

// Conn is a bidirectional byte stream between two nodes.
type Conn interface {
	io.ReadWriteCloser

	// RemoteAddress describes the peer, used for logging and status reports.
	RemoteAddress() string
}

// Listener accepts incoming Conns.
type Listener interface {
	// Accept blocks until a new Conn arrives or the Listener is closed.
	Accept() (Conn, error)

	// Address returns the bound address, e.g., with a resolved port.
	Address() string

	Close() error
}

// Transport creates Conns and Listeners for "host:port" addresses.
type Transport interface {
	Dial(address string) (Conn, error)
	Listen(address string) (Listener, error)
}
