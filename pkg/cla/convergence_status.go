// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
)

// ConvergenceMessageType indicates the kind of a ConvergenceStatus.
type ConvergenceMessageType uint

const (
	_ ConvergenceMessageType = iota

	// ReceivedData shows the reception of bytes. The Message's type must be a
	// ConvergenceReceivedData struct.
	ReceivedData

	// PeerDisappeared shows the disappearance of a peer. The Message's type must
	// be the peer's address string.
	PeerDisappeared

	// PeerAppeared shows the appearance of a peer. The Message's type must be
	// the peer's address string.
	PeerAppeared
)

func (cms ConvergenceMessageType) String() string {
	switch cms {
	case ReceivedData:
		return "Received Data"
	case PeerDisappeared:
		return "Peer Disappeared"
	case PeerAppeared:
		return "Peer Appeared"
	default:
		return "Unknown Type"
	}
}

// ConvergenceStatus allows transmission of information via a return channel
// from a ConvergenceLayer.
type ConvergenceStatus struct {
	Sender      ConvergenceLayer
	MessageType ConvergenceMessageType
	Message     interface{}
}

func (cs ConvergenceStatus) String() string {
	return fmt.Sprintf("%v-Convergence Status from %v", cs.MessageType, cs.Sender)
}

// ConvergenceReceivedData is the Message of a ReceivedData ConvergenceStatus.
type ConvergenceReceivedData struct {
	// Address of the listener which received the data.
	Address string
	Data    []byte
}

// NewConvergenceReceivedData creates a new ConvergenceStatus for a
// ReceivedData type.
func NewConvergenceReceivedData(sender ConvergenceLayer, address string, data []byte) ConvergenceStatus {
	return ConvergenceStatus{
		Sender:      sender,
		MessageType: ReceivedData,
		Message: ConvergenceReceivedData{
			Address: address,
			Data:    data,
		},
	}
}

// NewConvergencePeerDisappeared creates a new ConvergenceStatus for a
// PeerDisappeared type, transmitting the peer's address.
func NewConvergencePeerDisappeared(sender ConvergenceLayer, peer string) ConvergenceStatus {
	return ConvergenceStatus{
		Sender:      sender,
		MessageType: PeerDisappeared,
		Message:     peer,
	}
}

// NewConvergencePeerAppeared creates a new ConvergenceStatus for a
// PeerAppeared type, transmitting the peer's address.
func NewConvergencePeerAppeared(sender ConvergenceLayer, peer string) ConvergenceStatus {
	return ConvergenceStatus{
		Sender:      sender,
		MessageType: PeerAppeared,
		Message:     peer,
	}
}
