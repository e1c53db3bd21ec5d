// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"testing"

	"github.com/BurntSushi/toml"
)

func TestParseCLAType(t *testing.T) {
	tests := []struct {
		name  string
		t     CLAType
		valid bool
	}{
		{"stcp", STCP, true},
		{"MTCP", MTCP, true},
		{"quicl", QUICL, true},
		{"ws", WS, true},
		{"tcpclv4", 0, false},
		{"", 0, false},
	}

	for _, test := range tests {
		claType, err := ParseCLAType(test.name)
		if (err == nil) != test.valid {
			t.Fatalf("%q: expected valid = %t, got %v", test.name, test.valid, err)
		} else if test.valid && claType != test.t {
			t.Fatalf("%q resulted in %v", test.name, claType)
		}
	}
}

func TestCLATypeToml(t *testing.T) {
	var conf struct {
		Type CLAType `toml:"type"`
	}

	if _, err := toml.Decode(`type = "quicl"`, &conf); err != nil {
		t.Fatal(err)
	} else if conf.Type != QUICL {
		t.Fatalf("decoded %v", conf.Type)
	}

	if _, err := toml.Decode(`type = "carrier-pigeon"`, &conf); err == nil {
		t.Fatal("unknown type was decoded")
	}
}

func TestConvergenceMessageTypeString(t *testing.T) {
	for _, cms := range []ConvergenceMessageType{ReceivedData, PeerAppeared, PeerDisappeared} {
		if cms.String() == "Unknown Type" {
			t.Fatalf("%d has no name", cms)
		}
	}
}
