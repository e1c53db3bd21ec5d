// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BlockControlFlags is an uint which represents the Block Processing Control
// Flags as specified in RFC 5050, section 4.3.
type BlockControlFlags uint64

const (
	// ReplicateBlock requires this block to be replicated in every fragment.
	ReplicateBlock BlockControlFlags = 0x01

	// StatusReportBlock requires transmission of a status report if this block cannot be processed.
	StatusReportBlock BlockControlFlags = 0x02

	// DeleteBundle requires bundle deletion if this block cannot be processed.
	DeleteBundle BlockControlFlags = 0x04

	// LastBlock marks the last block of a bundle.
	LastBlock BlockControlFlags = 0x08

	// DiscardBlock requires the block to be discarded if it cannot be processed.
	DiscardBlock BlockControlFlags = 0x10

	// ForwardedWithoutProcessing is set if the block was forwarded without being processed.
	ForwardedWithoutProcessing BlockControlFlags = 0x20

	// EIDReference indicates the block contains an EID-reference field.
	EIDReference BlockControlFlags = 0x40
)

// Has returns true if a given flag or mask of flags is set.
func (bcf BlockControlFlags) Has(flag BlockControlFlags) bool {
	return (bcf & flag) != 0
}

// CheckValid returns an error for incorrect data.
func (bcf BlockControlFlags) CheckValid() error {
	if bcf.Has(EIDReference) {
		return fmt.Errorf("BlockControlFlags: EID references are not supported")
	}
	return nil
}

// Strings returns an array of all flags as a string representation.
func (bcf BlockControlFlags) Strings() (fields []string) {
	checks := []struct {
		field BlockControlFlags
		text  string
	}{
		{EIDReference, "EID_REFERENCE"},
		{ForwardedWithoutProcessing, "FORWARDED_WITHOUT_PROCESSING"},
		{DiscardBlock, "DISCARD_BLOCK"},
		{LastBlock, "LAST_BLOCK"},
		{DeleteBundle, "DELETE_BUNDLE"},
		{StatusReportBlock, "REQUEST_STATUS_REPORT"},
		{ReplicateBlock, "REPLICATE_BLOCK"},
	}

	for _, check := range checks {
		if bcf.Has(check.field) {
			fields = append(fields, check.text)
		}
	}

	return
}

// MarshalJSON returns a JSON array of control flags.
func (bcf BlockControlFlags) MarshalJSON() ([]byte, error) {
	return json.Marshal(bcf.Strings())
}

func (bcf BlockControlFlags) String() string {
	return strings.Join(bcf.Strings(), ",")
}
