// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/core"
)

// mockEngine delivers sent data locally to the destination's mailbox.
type mockEngine struct {
	regs    map[bpv6.EndpointID]*core.Registration
	mailbox map[bpv6.EndpointID][][]byte
	mutex   sync.Mutex
}

func newMockEngine() *mockEngine {
	return &mockEngine{
		regs:    make(map[bpv6.EndpointID]*core.Registration),
		mailbox: make(map[bpv6.EndpointID][][]byte),
	}
}

func (me *mockEngine) reg(eid bpv6.EndpointID) (*core.Registration, error) {
	if reg, ok := me.regs[eid]; ok {
		return reg, nil
	}
	return nil, fmt.Errorf("%w: %v", core.ErrUnknownEndpoint, eid)
}

func (me *mockEngine) Register(eid bpv6.EndpointID, info core.RegisterInfo) error {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	if _, ok := me.regs[eid]; ok {
		return core.ErrDuplicateRegistration
	}
	me.regs[eid] = &core.Registration{Endpoint: eid, Lifetime: info.Lifetime, Active: info.Active}
	return nil
}

func (me *mockEngine) setActive(eid bpv6.EndpointID, active bool) error {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	reg, err := me.reg(eid)
	if err == nil {
		reg.Active = active
	}
	return err
}

func (me *mockEngine) Unregister(eid bpv6.EndpointID) error {
	return me.setActive(eid, false)
}

func (me *mockEngine) Bind(eid bpv6.EndpointID) error {
	return me.setActive(eid, true)
}

func (me *mockEngine) Close(eid bpv6.EndpointID) error {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	if _, err := me.reg(eid); err != nil {
		return err
	}
	delete(me.regs, eid)
	return nil
}

func (me *mockEngine) Send(data []byte, src, dst bpv6.EndpointID) error {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	if reg, err := me.reg(src); err != nil {
		return err
	} else if !reg.Active {
		return core.ErrUnknownEndpoint
	}
	me.mailbox[dst] = append(me.mailbox[dst], data)
	return nil
}

func (me *mockEngine) Receive(eid bpv6.EndpointID) ([]byte, error) {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	if _, err := me.reg(eid); err != nil {
		return nil, err
	}

	queue := me.mailbox[eid]
	if len(queue) == 0 {
		return nil, core.ErrNoData
	}
	me.mailbox[eid] = queue[1:]
	return queue[0], nil
}

func (me *mockEngine) Flush(src bpv6.EndpointID) (int, error) {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	_, err := me.reg(src)
	return 0, err
}

func (me *mockEngine) Registrations() (regs []core.Registration) {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	for _, reg := range me.regs {
		regs = append(regs, *reg)
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].Endpoint.Less(regs[j].Endpoint) })
	return
}
