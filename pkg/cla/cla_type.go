// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package cla

import (
	"fmt"
	"strings"
)

// CLAType is one of the supported convergence layer implementations.
type CLAType uint

const (
	// STCP transmits plain serialized bundles over TCP.
	STCP CLAType = 0

	// MTCP is the "Minimal TCP Convergence-Layer Protocol", wrapping each
	// bundle into a CBOR byte string.
	MTCP CLAType = 1

	// QUICL transmits bundles over QUIC streams.
	QUICL CLAType = 2

	// WS transmits bundles as WebSocket binary messages.
	WS CLAType = 3
)

var claTypeNames = map[CLAType]string{
	STCP:  "stcp",
	MTCP:  "mtcp",
	QUICL: "quicl",
	WS:    "ws",
}

func (t CLAType) String() string {
	if name, ok := claTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", uint(t))
}

// ParseCLAType returns the CLAType for its case-insensitive name.
func ParseCLAType(name string) (CLAType, error) {
	for t, n := range claTypeNames {
		if strings.EqualFold(n, name) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown convergence layer %q", name)
}

// UnmarshalText parses a CLAType from a configuration.
func (t *CLAType) UnmarshalText(text []byte) (err error) {
	*t, err = ParseCLAType(string(text))
	return
}

// MarshalText returns the CLAType's name.
func (t CLAType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}
