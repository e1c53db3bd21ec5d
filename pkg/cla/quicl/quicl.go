// SPDX-FileCopyrightText: 2022 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package quicl implements a QUIC convergence layer. It is not part of the
Bundle Protocol's specifications.

A sender dials the peer's address and opens one bidirectional stream, which
carries its bundles back to back. The listener accepts connections and
handles every opened stream as an independent sequence of bundles. QUIC
handles the (de-)multiplexing, retransmissions and keepalives.

Listeners use a fresh self-signed certificate; dialers skip its verification.
*/
package quicl

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/quic-go/quic-go"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/cla/quicl/internal"
	"github.com/dtn7/dtn6-go/pkg/cla/stream"
)

// dialTimeout bounds the connection establishment of a sender.
const dialTimeout = 2 * time.Second

// NewQUICL creates a convergence layer sending bundles over QUIC streams.
func NewQUICL() *stream.Adapter {
	return stream.NewAdapter("quicl", Transport{}, stream.RawFramer{})
}

// Transport is a stream.Transport based on QUIC.
type Transport struct{}

// Dial a QUIC connection and open its stream.
func (Transport) Dial(address string) (stream.Conn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	session, err := quic.DialAddr(ctx, address, internal.DialerTLSConfig(), internal.QUICConfig())
	if err != nil {
		return nil, err
	}

	st, err := session.OpenStreamSync(ctx)
	if err != nil {
		_ = session.CloseWithError(internal.ConnectionError, "opening stream failed")
		return nil, err
	}

	return &conn{Stream: st, session: session, closeSession: true}, nil
}

// Listen for QUIC connections.
func (Transport) Listen(address string) (stream.Listener, error) {
	tlsConf, err := internal.ListenerTLSConfig()
	if err != nil {
		return nil, err
	}

	ln, err := quic.ListenAddr(address, tlsConf, internal.QUICConfig())
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	l := &listener{
		ln:       ln,
		streams:  make(chan stream.Conn),
		sessions: make(map[quic.Connection]struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}

	l.wg.Add(1)
	go l.acceptSessions()

	return l, nil
}

// conn is a single QUIC stream. Dialed conns own their session.
type conn struct {
	quic.Stream

	session      quic.Connection
	closeSession bool
	closeOnce    sync.Once
}

func (c *conn) RemoteAddress() string {
	return c.session.RemoteAddr().String()
}

// Read maps a peer's orderly shutdown to io.EOF.
func (c *conn) Read(p []byte) (int, error) {
	n, err := c.Stream.Read(p)

	var appErr *quic.ApplicationError
	if errors.As(err, &appErr) && appErr.ErrorCode == internal.ApplicationShutdown {
		err = io.EOF
	}
	return n, err
}

func (c *conn) Close() (err error) {
	c.closeOnce.Do(func() {
		err = c.Stream.Close()
		c.Stream.CancelRead(0)

		if c.closeSession {
			if sErr := c.session.CloseWithError(internal.ApplicationShutdown, "closing"); sErr != nil && err == nil {
				err = sErr
			}
		}
	})
	return
}

// listener spawns a goroutine per accepted session, forwarding its streams.
type listener struct {
	ln      *quic.Listener
	streams chan stream.Conn

	sessions map[quic.Connection]struct{}
	mutex    sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func (l *listener) acceptSessions() {
	defer l.wg.Done()

	for {
		session, err := l.ln.Accept(l.ctx)
		if err != nil {
			if l.ctx.Err() == nil {
				log.WithFields(log.Fields{
					"address": l.Address(),
					"error":   err,
				}).Warn("QUICL listener failed to accept connection")
			}
			return
		}

		l.mutex.Lock()
		l.sessions[session] = struct{}{}
		l.mutex.Unlock()

		log.WithFields(log.Fields{
			"address": l.Address(),
			"peer":    session.RemoteAddr(),
		}).Debug("QUICL listener accepted new connection")

		l.wg.Add(1)
		go l.acceptStreams(session)
	}
}

func (l *listener) acceptStreams(session quic.Connection) {
	defer l.wg.Done()
	defer func() {
		l.mutex.Lock()
		delete(l.sessions, session)
		l.mutex.Unlock()
	}()

	for {
		st, err := session.AcceptStream(l.ctx)
		if err != nil {
			var appErr *quic.ApplicationError
			if l.ctx.Err() == nil && !errors.As(err, &appErr) {
				log.WithFields(log.Fields{
					"peer":  session.RemoteAddr(),
					"error": err,
				}).Debug("QUICL connection stopped accepting streams")
			}
			return
		}

		select {
		case l.streams <- &conn{Stream: st, session: session}:
		case <-l.ctx.Done():
			st.CancelRead(0)
			return
		}
	}
}

func (l *listener) Accept() (stream.Conn, error) {
	select {
	case c := <-l.streams:
		return c, nil
	case <-l.ctx.Done():
		return nil, l.ctx.Err()
	}
}

func (l *listener) Address() string {
	return l.ln.Addr().String()
}

func (l *listener) Close() error {
	l.cancel()
	err := l.ln.Close()

	l.mutex.Lock()
	for session := range l.sessions {
		_ = session.CloseWithError(internal.ApplicationShutdown, "listener closed")
	}
	l.mutex.Unlock()

	l.wg.Wait()
	return err
}
