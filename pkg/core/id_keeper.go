// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package core

import (
	"sync"
)

// IdKeeper hands out the creation timestamp's sequence numbers for outgoing
// bundles. They increase monotonically per Core, independent of endpoints.
type IdKeeper struct {
	next  uint64
	mutex sync.Mutex
}

// NewIdKeeper creates a new IdKeeper, starting at zero.
func NewIdKeeper() *IdKeeper {
	return &IdKeeper{}
}

// Next returns the next sequence number.
func (idk *IdKeeper) Next() uint64 {
	idk.mutex.Lock()
	defer idk.mutex.Unlock()

	seq := idk.next
	idk.next++
	return seq
}
