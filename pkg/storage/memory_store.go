// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"sync"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// MemoryStore is a volatile Store.
type MemoryStore struct {
	queues map[bpv6.EndpointID][][]byte
	mutex  sync.Mutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		queues: make(map[bpv6.EndpointID][][]byte),
	}
}

// Push appends a frame to the endpoint's queue.
func (ms *MemoryStore) Push(eid bpv6.EndpointID, frame []byte) error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	ms.queues[eid] = append(ms.queues[eid], frame)
	return nil
}

// Pop removes and returns the oldest frame of the endpoint's queue.
func (ms *MemoryStore) Pop(eid bpv6.EndpointID) ([]byte, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	queue, ok := ms.queues[eid]
	if !ok {
		return nil, ErrEmpty
	} else if len(queue) == 0 {
		delete(ms.queues, eid)
		return nil, ErrEmpty
	}

	frame := queue[0]
	queue[0] = nil
	ms.queues[eid] = queue[1:]

	return frame, nil
}

// Peek returns the oldest frame of the endpoint's queue.
func (ms *MemoryStore) Peek(eid bpv6.EndpointID) ([]byte, error) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	if queue := ms.queues[eid]; len(queue) > 0 {
		return queue[0], nil
	}
	return nil, ErrEmpty
}

// Len returns the amount of queued frames for this endpoint.
func (ms *MemoryStore) Len(eid bpv6.EndpointID) int {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	return len(ms.queues[eid])
}

// Endpoints returns all endpoints with an existing queue.
func (ms *MemoryStore) Endpoints() []bpv6.EndpointID {
	ms.mutex.Lock()
	eids := make([]bpv6.EndpointID, 0, len(ms.queues))
	for eid := range ms.queues {
		eids = append(eids, eid)
	}
	ms.mutex.Unlock()

	bpv6.SortEndpointIDs(eids)
	return eids
}

// Close drops all queues.
func (ms *MemoryStore) Close() error {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()

	ms.queues = make(map[bpv6.EndpointID][][]byte)
	return nil
}
