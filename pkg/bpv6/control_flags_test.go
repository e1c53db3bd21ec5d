// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
)

func TestBundleControlFlagsHas(t *testing.T) {
	var cf = IsFragment | CustodyTransferRequested

	if !cf.Has(IsFragment) {
		t.Error("cf has no IsFragment-flag even when it was set")
	}

	if cf.Has(StatusRequestDeletion) {
		t.Error("cf has StatusRequestDeletion-flag which was not set")
	}
}

func TestBundleControlFlagsBits(t *testing.T) {
	tests := []struct {
		flag BundleControlFlags
		bit  uint
	}{
		{IsFragment, 0},
		{AdministrativeRecordPayload, 1},
		{MustNotFragmented, 2},
		{CustodyTransferRequested, 3},
		{SingletonDestination, 4},
		{RequestUserApplicationAck, 5},
		{StatusRequestReception, 14},
		{StatusRequestCustodyAccept, 15},
		{StatusRequestForward, 16},
		{StatusRequestDelivery, 17},
		{StatusRequestDeletion, 18},
	}

	for _, test := range tests {
		if test.flag != 1<<test.bit {
			t.Errorf("flag %v is not bit %d", test.flag, test.bit)
		}
	}
}

func TestBundleControlFlagsAdministrative(t *testing.T) {
	cf := AdministrativeRecordPayload | IsFragment
	if errs := cf.CheckValid(); errs != nil {
		t.Fatalf("Initial set resulted in an invalid state: %v", errs)
	}

	cf |= StatusRequestCustodyAccept
	errs := cf.CheckValid()
	if errs == nil {
		t.Fatal("Status report request for an administrative record is valid")
	}

	errFlag := false
	for _, err := range errs.(*multierror.Error).WrappedErrors() {
		if strings.Contains(err.Error(), "administrative record") {
			errFlag = true
		}
	}
	if !errFlag {
		t.Fatalf("Expected administrative record error, got %v", errs)
	}
}

func TestBundleControlFlagsStrings(t *testing.T) {
	cf := IsFragment | StatusRequestDelivery

	if s := cf.String(); s != "REQUESTED_DELIVERY_STATUS_REPORT,IS_FRAGMENT" {
		t.Fatalf("String is %s", s)
	}

	data, err := json.Marshal(cf)
	if err != nil {
		t.Fatal(err)
	} else if string(data) != `["REQUESTED_DELIVERY_STATUS_REPORT","IS_FRAGMENT"]` {
		t.Fatalf("JSON is %s", data)
	}
}

func TestBlockControlFlags(t *testing.T) {
	cf := LastBlock | ReplicateBlock

	if !cf.Has(LastBlock) || cf.Has(DiscardBlock) {
		t.Fatalf("Has is broken for %v", cf)
	}
	if s := cf.String(); s != "LAST_BLOCK,REPLICATE_BLOCK" {
		t.Fatalf("String is %s", s)
	}
	if err := cf.CheckValid(); err != nil {
		t.Fatal(err)
	}
	if err := (cf | EIDReference).CheckValid(); err == nil {
		t.Fatal("EID reference is valid")
	}
}
