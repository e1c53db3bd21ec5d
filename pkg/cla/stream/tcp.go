// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package stream

import (
	"net"
)

// TCPTransport is a Transport based on TCP connections.
type TCPTransport struct{}

type tcpConn struct {
	net.Conn
}

func (c tcpConn) RemoteAddress() string {
	return c.RemoteAddr().String()
}

type tcpListener struct {
	ln net.Listener
}

func (l tcpListener) Accept() (Conn, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		return nil, err
	}
	return tcpConn{conn}, nil
}

func (l tcpListener) Address() string {
	return l.ln.Addr().String()
}

func (l tcpListener) Close() error {
	return l.ln.Close()
}

// Dial a new TCP connection.
func (TCPTransport) Dial(address string) (Conn, error) {
	conn, err := dial(address)
	if err != nil {
		return nil, err
	}
	return tcpConn{conn}, nil
}

// Listen on a TCP address.
func (TCPTransport) Listen(address string) (Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return tcpListener{ln}, nil
}
