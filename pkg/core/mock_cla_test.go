// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"fmt"
	"io"
	"io/ioutil"
	"sync"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/cla"
	"github.com/dtn7/dtn6-go/pkg/routing"
)

// mockNetwork connects mockCLAs by their listening addresses.
type mockNetwork struct {
	listeners map[string]*mockCLA
	mutex     sync.Mutex
}

func newMockNetwork() *mockNetwork {
	return &mockNetwork{listeners: make(map[string]*mockCLA)}
}

func (n *mockNetwork) listen(address string, m *mockCLA) error {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if other, ok := n.listeners[address]; ok && other != m {
		return fmt.Errorf("%w: address %s in use", cla.ErrTransport, address)
	}
	n.listeners[address] = m
	return nil
}

func (n *mockNetwork) unlisten(address string) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	delete(n.listeners, address)
}

func (n *mockNetwork) lookup(address string) *mockCLA {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	return n.listeners[address]
}

// mockCLA is an in-process cla.ConvergenceLayer. Deliveries are split into
// pieces of chunkSize bytes, if set, to simulate a byte stream.
type mockCLA struct {
	network *mockNetwork

	routing routing.Protocol
	bp      cla.BundleProtocol

	receivers map[bpv6.EndpointID]string
	fail      bool
	chunkSize int
	closed    bool
	mutex     sync.Mutex

	ch chan cla.ConvergenceStatus
}

func newMockCLA(network *mockNetwork) *mockCLA {
	return &mockCLA{
		network:   network,
		receivers: make(map[bpv6.EndpointID]string),
		ch:        make(chan cla.ConvergenceStatus, 1024),
	}
}

func (m *mockCLA) String() string {
	return "mock"
}

func (m *mockCLA) setFail(fail bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.fail = fail
}

func (m *mockCLA) isReceiving(eid bpv6.EndpointID) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	_, ok := m.receivers[eid]
	return ok
}

func (m *mockCLA) deliver(address string, data []byte) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return
	}

	step := m.chunkSize
	if step <= 0 {
		step = len(data)
	}
	for _, chunk := range bpv6.Chunks(data, step) {
		m.ch <- cla.NewConvergenceReceivedData(m, address, chunk)
	}
}

func (m *mockCLA) route(eid bpv6.EndpointID) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.routing == nil {
		return "", cla.ErrNoRoutingProtocol
	}
	address := m.routing.GetRoute(eid)
	if routing.IsNoRoute(address) {
		return "", fmt.Errorf("%w: %v", cla.ErrNoRoute, eid)
	}
	return address, nil
}

func (m *mockCLA) SendPacket(bundle []byte) error {
	ph, _, err := bpv6.UnmarshalPrimaryHeader(bundle)
	if err != nil {
		return err
	}

	address, err := m.route(ph.DestinationEID())
	if err != nil {
		return err
	}

	m.mutex.Lock()
	fail, bp := m.fail, m.bp
	m.mutex.Unlock()

	peer := m.network.lookup(address)
	if fail || peer == nil {
		return fmt.Errorf("%w: %s unreachable", cla.ErrTransport, address)
	}

	data := bundle
	if bp != nil {
		if data, err = bp.PeekBundle(ph.SourceEID()); err != nil {
			return err
		}
	}

	peer.deliver(address, data)

	if bp != nil {
		_, err = bp.GetBundle(ph.SourceEID())
	}
	return err
}

func (m *mockCLA) EnableReceive(local bpv6.EndpointID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if _, ok := m.receivers[local]; ok {
		return cla.ErrAlreadyReceiving
	}

	address := fmt.Sprintf("mock:%d", cla.DefaultPort)
	if m.routing != nil {
		if a := m.routing.GetRoute(local); !routing.IsNoRoute(a) {
			address = a
		}
	}

	if err := m.network.listen(address, m); err != nil {
		return err
	}
	m.receivers[local] = address
	return nil
}

func (m *mockCLA) DisableReceive(local bpv6.EndpointID) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	address, ok := m.receivers[local]
	if !ok {
		return cla.ErrNotReceiving
	}
	delete(m.receivers, local)

	for _, other := range m.receivers {
		if other == address {
			return nil
		}
	}
	m.network.unlisten(address)
	return nil
}

func (m *mockCLA) EnableSend(_, dst bpv6.EndpointID) error {
	_, err := m.route(dst)
	return err
}

func (m *mockCLA) TransportHandle(eid bpv6.EndpointID) (io.Closer, bool) {
	if m.isReceiving(eid) {
		return ioutil.NopCloser(nil), true
	}
	return nil, false
}

func (m *mockCLA) SetRoutingProtocol(r routing.Protocol) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.routing = r
}

func (m *mockCLA) RoutingProtocol() routing.Protocol {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.routing
}

func (m *mockCLA) SetBundleProtocol(bp cla.BundleProtocol) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.bp = bp
}

func (m *mockCLA) Channel() chan cla.ConvergenceStatus {
	return m.ch
}

func (m *mockCLA) Close() error {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if !m.closed {
		m.closed = true
		close(m.ch)

		for _, address := range m.receivers {
			m.network.unlisten(address)
		}
	}
	return nil
}
