// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package storage

import (
	"time"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
)

// QueueItem is a queued frame as stored by the BadgerStore. Items of the same
// endpoint are ordered by their sequence number.
type QueueItem struct {
	Seq      uint64 `badgerhold:"key"`
	Endpoint string `badgerholdIndex:"Endpoint"`
	Stored   time.Time

	Frame []byte
}

func newQueueItem(seq uint64, eid bpv6.EndpointID, frame []byte) QueueItem {
	return QueueItem{
		Seq:      seq,
		Endpoint: eid.Uri(),
		Stored:   time.Now(),
		Frame:    frame,
	}
}
