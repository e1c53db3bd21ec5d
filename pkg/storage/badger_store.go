// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/timshannon/badgerhold"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// BadgerStore is a persistent Store, backed by badgerhold. Queued frames
// survive a restart.
type BadgerStore struct {
	bh  *badgerhold.Store
	dir string

	// seq is the next item key; mutex serializes pops of the same queue.
	seq   uint64
	mutex sync.Mutex
}

// NewBadgerStore creates a new BadgerStore or opens an existing one from the
// given directory.
func NewBadgerStore(dir string) (s *BadgerStore, err error) {
	opts := badgerhold.DefaultOptions
	opts.Dir = dir
	opts.ValueDir = dir
	opts.Logger = log.StandardLogger()
	opts.Options.ValueLogFileSize = 1<<28 - 1

	if dirErr := os.MkdirAll(dir, 0700); dirErr != nil {
		err = dirErr
		return
	}

	bh, bhErr := badgerhold.Open(opts)
	if bhErr != nil {
		err = bhErr
		return
	}

	s = &BadgerStore{bh: bh, dir: dir}

	var items []QueueItem
	if findErr := bh.Find(&items, nil); findErr != nil {
		_ = bh.Close()
		s, err = nil, findErr
		return
	}
	for _, item := range items {
		if item.Seq >= s.seq {
			s.seq = item.Seq + 1
		}
	}

	log.WithFields(log.Fields{
		"dir":   dir,
		"items": len(items),
	}).Debug("Opened BadgerStore")

	return
}

// Push appends a frame to the endpoint's queue.
func (s *BadgerStore) Push(eid bpv6.EndpointID, frame []byte) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item := newQueueItem(s.seq, eid, frame)
	if err := s.bh.Insert(item.Seq, item); err != nil {
		return err
	}
	s.seq++

	return nil
}

func (s *BadgerStore) queue(eid bpv6.EndpointID, limit int) (items []QueueItem, err error) {
	query := badgerhold.Where("Endpoint").Eq(eid.Uri()).SortBy("Seq")
	if limit > 0 {
		query = query.Limit(limit)
	}

	err = s.bh.Find(&items, query)
	return
}

// Pop removes and returns the oldest frame of the endpoint's queue.
func (s *BadgerStore) Pop(eid bpv6.EndpointID) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items, err := s.queue(eid, 1)
	if err != nil {
		return nil, err
	} else if len(items) == 0 {
		return nil, ErrEmpty
	}

	if err := s.bh.Delete(items[0].Seq, QueueItem{}); err != nil {
		return nil, err
	}
	return items[0].Frame, nil
}

// Peek returns the oldest frame of the endpoint's queue.
func (s *BadgerStore) Peek(eid bpv6.EndpointID) ([]byte, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items, err := s.queue(eid, 1)
	if err != nil {
		return nil, err
	} else if len(items) == 0 {
		return nil, ErrEmpty
	}
	return items[0].Frame, nil
}

// Len returns the amount of queued frames for this endpoint.
func (s *BadgerStore) Len(eid bpv6.EndpointID) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	items, err := s.queue(eid, 0)
	if err != nil {
		log.WithError(err).WithField("endpoint", eid).Warn("BadgerStore failed to query queue")
		return 0
	}
	return len(items)
}

// Endpoints returns all endpoints with queued frames.
func (s *BadgerStore) Endpoints() []bpv6.EndpointID {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	var items []QueueItem
	if err := s.bh.Find(&items, nil); err != nil {
		log.WithError(err).Warn("BadgerStore failed to query endpoints")
		return nil
	}

	known := make(map[bpv6.EndpointID]struct{})
	for _, item := range items {
		known[bpv6.ParseEndpointID(item.Endpoint)] = struct{}{}
	}

	eids := make([]bpv6.EndpointID, 0, len(known))
	for eid := range known {
		eids = append(eids, eid)
	}
	bpv6.SortEndpointIDs(eids)

	return eids
}

// Close the BadgerStore. It must not be used afterwards.
func (s *BadgerStore) Close() error {
	return s.bh.Close()
}
