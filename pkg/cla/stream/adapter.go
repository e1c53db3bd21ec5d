// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package stream implements a cla.ConvergenceLayer on top of any byte stream
// Transport. Outgoing connections are indexed by the bundles' source
// endpoint, listeners by the local endpoints they receive for.
package stream

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
	"github.com/dtn7/dtn6-go/pkg/routing"
)

// Adapter is a cla.ConvergenceLayer for a Transport and a Framer.
type Adapter struct {
	name      string
	transport Transport
	framer    Framer

	routing routing.Protocol
	bp      cla.BundleProtocol

	senders   map[bpv6.EndpointID]*sender
	sendLocks map[bpv6.EndpointID]*sync.Mutex
	receivers map[bpv6.EndpointID]string
	listeners map[string]*listener
	mutex     sync.Mutex

	reportChan   chan cla.ConvergenceStatus
	reportClosed bool
	reportMutex  sync.RWMutex

	wg        sync.WaitGroup
	stopSyn   chan struct{}
	closeOnce sync.Once
}

// NewAdapter creates a new Adapter. The name is used for logging only.
func NewAdapter(name string, transport Transport, framer Framer) *Adapter {
	return &Adapter{
		name:      name,
		transport: transport,
		framer:    framer,

		senders:   make(map[bpv6.EndpointID]*sender),
		sendLocks: make(map[bpv6.EndpointID]*sync.Mutex),
		receivers: make(map[bpv6.EndpointID]string),
		listeners: make(map[string]*listener),

		reportChan: make(chan cla.ConvergenceStatus, 100),
		stopSyn:    make(chan struct{}),
	}
}

func (a *Adapter) String() string {
	return a.name
}

func (a *Adapter) isClosed() bool {
	select {
	case <-a.stopSyn:
		return true
	default:
		return false
	}
}

// report a ConvergenceStatus unless the Adapter is closing.
func (a *Adapter) report(cs cla.ConvergenceStatus) {
	a.reportMutex.RLock()
	defer a.reportMutex.RUnlock()

	if a.reportClosed {
		return
	}

	select {
	case a.reportChan <- cs:
	case <-a.stopSyn:
	}
}

// SetRoutingProtocol sets the routing protocol to resolve endpoints.
func (a *Adapter) SetRoutingProtocol(r routing.Protocol) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.routing = r
}

// RoutingProtocol returns the current routing protocol.
func (a *Adapter) RoutingProtocol() routing.Protocol {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.routing
}

// SetBundleProtocol sets the bundle engine to fetch queued bundles from.
func (a *Adapter) SetBundleProtocol(bp cla.BundleProtocol) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.bp = bp
}

func (a *Adapter) bundleProtocol() cla.BundleProtocol {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.bp
}

// Channel reports received data and peer changes.
func (a *Adapter) Channel() chan cla.ConvergenceStatus {
	return a.reportChan
}

// route resolves an endpoint to its address.
func (a *Adapter) route(eid bpv6.EndpointID) (string, error) {
	r := a.RoutingProtocol()
	if r == nil {
		return "", cla.ErrNoRoutingProtocol
	}

	address := r.GetRoute(eid)
	if routing.IsNoRoute(address) {
		return "", fmt.Errorf("%w: %v", cla.ErrNoRoute, eid)
	}
	return address, nil
}

// listenAddress resolves a local endpoint to the address to listen on. Only
// the routed port is used, bound on all interfaces. Unrouted endpoints use
// the default port.
func (a *Adapter) listenAddress(local bpv6.EndpointID) string {
	port := fmt.Sprint(cla.DefaultPort)
	if r := a.routing; r != nil {
		if address := r.GetRoute(local); !routing.IsNoRoute(address) {
			if _, routedPort, err := net.SplitHostPort(address); err == nil {
				port = routedPort
			} else {
				log.WithFields(log.Fields{
					"cla":      a,
					"endpoint": local,
					"address":  address,
				}).Warn("Route has no port, using the default port")
			}
		}
	}
	return net.JoinHostPort("", port)
}

// EnableReceive starts listening for a local endpoint. Endpoints sharing an
// address share its listener.
func (a *Adapter) EnableReceive(local bpv6.EndpointID) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if a.isClosed() {
		return cla.ErrClosed
	}

	if _, exists := a.receivers[local]; exists {
		return fmt.Errorf("%w: %v", cla.ErrAlreadyReceiving, local)
	}

	address := a.listenAddress(local)
	if l, exists := a.listeners[address]; exists {
		l.locals[local] = struct{}{}
		a.receivers[local] = address
		return nil
	}

	ln, err := a.transport.Listen(address)
	if err != nil {
		return fmt.Errorf("%w: listening on %s: %v", cla.ErrTransport, address, err)
	}

	l := newListener(ln, address)
	l.locals[local] = struct{}{}
	a.listeners[address] = l
	a.receivers[local] = address

	a.wg.Add(1)
	go a.acceptLoop(l)

	log.WithFields(log.Fields{
		"cla":      a,
		"endpoint": local,
		"address":  ln.Address(),
	}).Info("Convergence layer started listening")

	return nil
}

// DisableReceive stops listening for a local endpoint. The listener is
// closed together with its connections when its last endpoint leaves.
func (a *Adapter) DisableReceive(local bpv6.EndpointID) error {
	a.mutex.Lock()

	address, exists := a.receivers[local]
	if !exists {
		a.mutex.Unlock()
		return fmt.Errorf("%w: %v", cla.ErrNotReceiving, local)
	}
	delete(a.receivers, local)

	l := a.listeners[address]
	delete(l.locals, local)
	if len(l.locals) > 0 {
		a.mutex.Unlock()
		return nil
	}
	delete(a.listeners, address)
	a.mutex.Unlock()

	log.WithFields(log.Fields{
		"cla":      a,
		"endpoint": local,
		"address":  address,
	}).Info("Convergence layer stopped listening")

	return l.close()
}

func (a *Adapter) acceptLoop(l *listener) {
	defer a.wg.Done()

	for {
		conn, err := l.ln.Accept()
		if err != nil {
			if !l.isClosing() {
				log.WithFields(log.Fields{
					"cla":     a,
					"address": l.address,
					"error":   err,
				}).Warn("Convergence layer failed to accept connection")
			}
			return
		}

		if !l.track(conn) {
			_ = conn.Close()
			return
		}

		log.WithFields(log.Fields{
			"cla":  a,
			"peer": conn.RemoteAddress(),
		}).Debug("Convergence layer accepted connection")

		a.report(cla.NewConvergencePeerAppeared(a, conn.RemoteAddress()))

		a.wg.Add(1)
		go a.readLoop(l, conn)
	}
}

func (a *Adapter) readLoop(l *listener, conn Conn) {
	defer a.wg.Done()
	defer l.untrack(conn)

	fr := a.framer.NewFrameReader(conn)
	for {
		frame, err := fr.ReadFrame()
		if err != nil {
			if !errors.Is(err, io.EOF) && !l.isClosing() {
				log.WithFields(log.Fields{
					"cla":   a,
					"peer":  conn.RemoteAddress(),
					"error": err,
				}).Warn("Convergence layer failed to read from connection")
			}

			_ = conn.Close()
			a.report(cla.NewConvergencePeerDisappeared(a, conn.RemoteAddress()))
			return
		}

		log.WithFields(log.Fields{
			"cla":  a,
			"peer": conn.RemoteAddress(),
			"size": len(frame),
		}).Debug("Convergence layer received data")

		a.report(cla.NewConvergenceReceivedData(a, l.address, frame))
	}
}

// EnableSend opens a connection towards dst's address, used for bundles
// from src. An existing connection of src is replaced.
func (a *Adapter) EnableSend(src, dst bpv6.EndpointID) error {
	address, err := a.route(dst)
	if err != nil {
		return err
	}

	_, err = a.connect(src, address)
	return err
}

func (a *Adapter) connect(src bpv6.EndpointID, address string) (*sender, error) {
	conn, err := a.transport.Dial(address)
	if err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", cla.ErrTransport, address, err)
	}

	s := newSender(conn, address)

	a.mutex.Lock()
	if a.isClosed() {
		a.mutex.Unlock()
		_ = conn.Close()
		return nil, cla.ErrClosed
	}
	old := a.senders[src]
	a.senders[src] = s

	ka, keepAlive := a.framer.(KeepAliver)
	if keepAlive {
		a.wg.Add(1)
	}
	a.mutex.Unlock()

	if old != nil {
		old.close()
	}

	if keepAlive {
		go a.keepAlive(src, s, ka)
	}

	log.WithFields(log.Fields{
		"cla":     a,
		"source":  src,
		"address": address,
	}).Debug("Convergence layer opened connection")

	a.report(cla.NewConvergencePeerAppeared(a, address))
	return s, nil
}

func (a *Adapter) sender(src bpv6.EndpointID) *sender {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	return a.senders[src]
}

// senderFor returns src's connection if it leads to the address, otherwise
// a new one is opened.
func (a *Adapter) senderFor(src bpv6.EndpointID, address string) (*sender, error) {
	if s := a.sender(src); s != nil && s.address == address {
		return s, nil
	}
	return a.connect(src, address)
}

func (a *Adapter) dropSender(src bpv6.EndpointID, s *sender) {
	a.mutex.Lock()
	if a.senders[src] == s {
		delete(a.senders, src)
	}
	a.mutex.Unlock()

	s.close()
	a.report(cla.NewConvergencePeerDisappeared(a, s.address))
}

func (a *Adapter) keepAlive(src bpv6.EndpointID, s *sender, ka KeepAliver) {
	defer a.wg.Done()

	ticker := time.NewTicker(ka.KeepAliveInterval())
	defer ticker.Stop()

	for {
		select {
		case <-a.stopSyn:
			return

		case <-s.stopSyn:
			return

		case <-ticker.C:
			if err := s.keepAlive(ka); err != nil {
				log.WithFields(log.Fields{
					"cla":     a,
					"address": s.address,
					"error":   err,
				}).Warn("Convergence layer's keepalive failed")

				a.dropSender(src, s)
				return
			}
		}
	}
}

// sourceLock returns the mutex serializing transmissions from src.
func (a *Adapter) sourceLock(src bpv6.EndpointID) *sync.Mutex {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	l, ok := a.sendLocks[src]
	if !ok {
		l = new(sync.Mutex)
		a.sendLocks[src] = l
	}
	return l
}

// SendPacket transmits the oldest bundle queued for the given bundle's
// source. Without a BundleProtocol, the given bundle itself is sent. The
// queued bundle is only dequeued after it was written; every failure leaves
// it queued. Transmissions from the same source are serialized.
func (a *Adapter) SendPacket(bundle []byte) error {
	ph, _, err := bpv6.UnmarshalPrimaryHeader(bundle)
	if err != nil {
		return err
	}
	src := ph.SourceEID()

	lock := a.sourceLock(src)
	lock.Lock()
	defer lock.Unlock()

	data, dst := bundle, ph.DestinationEID()
	bp := a.bundleProtocol()
	if bp != nil {
		if data, err = bp.PeekBundle(src); err != nil {
			return err
		}

		queued, _, err := bpv6.UnmarshalPrimaryHeader(data)
		if err != nil {
			return err
		}
		dst = queued.DestinationEID()
	}

	address, err := a.route(dst)
	if err != nil {
		return err
	}

	s, err := a.senderFor(src, address)
	if err != nil {
		return err
	}

	if err := s.write(a.framer, data); err != nil {
		log.WithFields(log.Fields{
			"cla":     a,
			"address": s.address,
			"error":   err,
		}).Warn("Convergence layer failed to send bundle")

		a.dropSender(src, s)
		return fmt.Errorf("%w: %v", cla.ErrTransport, err)
	}

	if bp != nil {
		if _, err := bp.GetBundle(src); err != nil {
			return err
		}
	}

	log.WithFields(log.Fields{
		"cla":     a,
		"source":  src,
		"address": s.address,
		"size":    len(data),
	}).Debug("Convergence layer sent bundle")

	return nil
}

// TransportHandle returns src's outgoing connection or the listener of a
// receiving local endpoint.
func (a *Adapter) TransportHandle(eid bpv6.EndpointID) (io.Closer, bool) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if s, ok := a.senders[eid]; ok {
		return s.conn, true
	}
	if address, ok := a.receivers[eid]; ok {
		return a.listeners[address].ln, true
	}
	return nil, false
}

// Close all connections and listeners and finally the Channel.
func (a *Adapter) Close() (err error) {
	a.closeOnce.Do(func() {
		close(a.stopSyn)

		a.mutex.Lock()
		senders, listeners := a.senders, a.listeners
		a.senders = make(map[bpv6.EndpointID]*sender)
		a.receivers = make(map[bpv6.EndpointID]string)
		a.listeners = make(map[string]*listener)
		a.mutex.Unlock()

		for _, s := range senders {
			s.close()
		}
		for _, l := range listeners {
			if lErr := l.close(); lErr != nil {
				err = multierror.Append(err, lErr)
			}
		}

		a.wg.Wait()

		a.reportMutex.Lock()
		a.reportClosed = true
		close(a.reportChan)
		a.reportMutex.Unlock()

		log.WithField("cla", a).Debug("Convergence layer closed")
	})
	return
}

// sender is an outgoing connection.
type sender struct {
	conn    Conn
	address string
	mutex   sync.Mutex

	stopSyn   chan struct{}
	closeOnce sync.Once
}

func newSender(conn Conn, address string) *sender {
	return &sender{
		conn:    conn,
		address: address,
		stopSyn: make(chan struct{}),
	}
}

func (s *sender) write(framer Framer, data []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return framer.WriteFrame(s.conn, data)
}

func (s *sender) keepAlive(ka KeepAliver) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return ka.KeepAlive(s.conn)
}

func (s *sender) close() {
	s.closeOnce.Do(func() {
		close(s.stopSyn)
		_ = s.conn.Close()
	})
}

// listener tracks a Listener, its local endpoints and accepted connections.
type listener struct {
	ln      Listener
	address string
	locals  map[bpv6.EndpointID]struct{}

	conns   map[Conn]struct{}
	closing bool
	mutex   sync.Mutex
}

func newListener(ln Listener, address string) *listener {
	return &listener{
		ln:      ln,
		address: address,
		locals:  make(map[bpv6.EndpointID]struct{}),
		conns:   make(map[Conn]struct{}),
	}
}

// track an accepted connection; false if the listener is already closing.
func (l *listener) track(conn Conn) bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	if l.closing {
		return false
	}
	l.conns[conn] = struct{}{}
	return true
}

func (l *listener) untrack(conn Conn) {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	delete(l.conns, conn)
}

func (l *listener) isClosing() bool {
	l.mutex.Lock()
	defer l.mutex.Unlock()

	return l.closing
}

func (l *listener) close() error {
	l.mutex.Lock()
	l.closing = true
	conns := l.conns
	l.conns = make(map[Conn]struct{})
	l.mutex.Unlock()

	for conn := range conns {
		_ = conn.Close()
	}
	return l.ln.Close()
}
