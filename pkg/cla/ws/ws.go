// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package ws implements a convergence layer transmitting bundles as binary
// WebSocket messages. Each message carries a part of the bundle stream; the
// raw framing splits it back into bundles.
package ws

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/cla/stream"
)

const (
	// Path of the WebSocket endpoint on the listening HTTP server.
	Path = "/bpv6"

	closeTimeout = time.Second
)

// NewWS creates a convergence layer using WebSocket connections.
func NewWS() *stream.Adapter {
	return stream.NewAdapter("ws", Transport{}, stream.RawFramer{})
}

// Transport is a stream.Transport based on WebSockets.
type Transport struct{}

// Dial a WebSocket connection to the address's Path.
func (Transport) Dial(address string) (stream.Conn, error) {
	wsConn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://%s%s", address, Path), nil)
	if err != nil {
		return nil, err
	}
	return newConn(wsConn), nil
}

// Listen serves the Path on an HTTP server for this address.
func (Transport) Listen(address string) (stream.Listener, error) {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}

	l := &listener{
		ln:      ln,
		conns:   make(chan stream.Conn),
		stopSyn: make(chan struct{}),
	}

	mux := http.NewServeMux()
	mux.HandleFunc(Path, l.upgrade)
	l.server = &http.Server{Handler: mux}

	go func() {
		if err := l.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithFields(log.Fields{
				"address": address,
				"error":   err,
			}).Warn("WebSocket listener's HTTP server errored")
		}
	}()

	return l, nil
}

type listener struct {
	ln       net.Listener
	server   *http.Server
	upgrader websocket.Upgrader

	conns     chan stream.Conn
	stopSyn   chan struct{}
	closeOnce sync.Once
}

func (l *listener) upgrade(rw http.ResponseWriter, r *http.Request) {
	wsConn, err := l.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		log.WithError(err).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	select {
	case l.conns <- newConn(wsConn):
	case <-l.stopSyn:
		_ = wsConn.Close()
	}
}

func (l *listener) Accept() (stream.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.stopSyn:
		return nil, net.ErrClosed
	}
}

func (l *listener) Address() string {
	return l.ln.Addr().String()
}

func (l *listener) Close() (err error) {
	l.closeOnce.Do(func() {
		close(l.stopSyn)
		err = l.server.Close()
	})
	return
}

// conn presents the binary messages of a WebSocket as a byte stream.
type conn struct {
	ws     *websocket.Conn
	reader io.Reader

	closeOnce sync.Once
}

func newConn(ws *websocket.Conn) *conn {
	return &conn{ws: ws}
}

func (c *conn) RemoteAddress() string {
	return c.ws.RemoteAddr().String()
}

// Read from the current message, continuing with the next one when drained.
// A normal closure by the peer results in io.EOF.
func (c *conn) Read(p []byte) (int, error) {
	for {
		if c.reader == nil {
			messageType, r, err := c.ws.NextReader()
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return 0, io.EOF
			} else if err != nil {
				return 0, err
			} else if messageType != websocket.BinaryMessage {
				return 0, fmt.Errorf("WebSocket message type %d is not binary", messageType)
			}
			c.reader = r
		}

		n, err := c.reader.Read(p)
		if errors.Is(err, io.EOF) {
			c.reader = nil
			if n == 0 {
				continue
			}
			err = nil
		}
		return n, err
	}
}

// Write p as a single binary message.
func (c *conn) Write(p []byte) (int, error) {
	wc, err := c.ws.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return 0, err
	}

	n, err := wc.Write(p)
	if err != nil {
		return n, err
	}
	return n, wc.Close()
}

func (c *conn) Close() (err error) {
	c.closeOnce.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeTimeout))
		err = c.ws.Close()
	})
	return
}
