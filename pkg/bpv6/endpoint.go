// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"encoding/json"
	"sort"
	"strings"
)

const (
	// MaxEndpointPartLength is the maximum length of both an endpoint's scheme
	// and its scheme-specific part. Longer values are truncated.
	MaxEndpointPartLength = 1023

	dtnNoneScheme = "dtn"
	dtnNoneSsp    = "none"
)

// EndpointID is a bundle endpoint identifier, a URI of the form
// "scheme:ssp". The zero value is not valid, use DtnNone instead.
//
// EndpointIDs are immutable and comparable and may be used as map keys.
type EndpointID struct {
	scheme string
	ssp    string
}

// DtnNone returns the null endpoint "dtn:none".
func DtnNone() EndpointID {
	return EndpointID{scheme: dtnNoneScheme, ssp: dtnNoneSsp}
}

func truncateEndpointPart(s string) string {
	if len(s) > MaxEndpointPartLength {
		return s[:MaxEndpointPartLength]
	}
	return s
}

// NewEndpointID creates an EndpointID from a scheme and a scheme-specific
// part. If either is empty, the null endpoint is returned.
func NewEndpointID(scheme, ssp string) EndpointID {
	if scheme == "" || ssp == "" {
		return DtnNone()
	}

	return EndpointID{
		scheme: truncateEndpointPart(scheme),
		ssp:    truncateEndpointPart(ssp),
	}
}

// ParseEndpointID splits a URI at its first colon into scheme and
// scheme-specific part. Malformed URIs result in the null endpoint.
func ParseEndpointID(uri string) EndpointID {
	scheme, ssp, found := strings.Cut(uri, ":")
	if !found {
		return DtnNone()
	}
	return NewEndpointID(scheme, ssp)
}

// ParseEndpointIDStrict works like ParseEndpointID, but reports whether the
// input was well-formed.
func ParseEndpointIDStrict(uri string) (eid EndpointID, ok bool) {
	scheme, ssp, found := strings.Cut(uri, ":")
	ok = found && scheme != "" && ssp != ""
	eid = NewEndpointID(scheme, ssp)
	return
}

// Scheme returns the scheme name, e.g., "dtn".
func (eid EndpointID) Scheme() string {
	if eid.scheme == "" {
		return dtnNoneScheme
	}
	return eid.scheme
}

// Ssp returns the scheme-specific part.
func (eid EndpointID) Ssp() string {
	if eid.ssp == "" {
		return dtnNoneSsp
	}
	return eid.ssp
}

// Uri returns the full "scheme:ssp" representation.
func (eid EndpointID) Uri() string {
	return eid.Scheme() + ":" + eid.Ssp()
}

func (eid EndpointID) String() string {
	return eid.Uri()
}

// IsNone checks if this is the null endpoint.
func (eid EndpointID) IsNone() bool {
	return eid.Scheme() == dtnNoneScheme && eid.Ssp() == dtnNoneSsp
}

// Compare orders EndpointIDs by their URI string.
func (eid EndpointID) Compare(other EndpointID) int {
	return strings.Compare(eid.Uri(), other.Uri())
}

// Less reports whether this EndpointID sorts before the other one.
func (eid EndpointID) Less(other EndpointID) bool {
	return eid.Compare(other) < 0
}

// SortEndpointIDs sorts the slice in place by URI.
func SortEndpointIDs(eids []EndpointID) {
	sort.Slice(eids, func(i, j int) bool { return eids[i].Less(eids[j]) })
}

// MarshalText returns the URI.
func (eid EndpointID) MarshalText() ([]byte, error) {
	return []byte(eid.Uri()), nil
}

// UnmarshalText parses a URI, falling back to the null endpoint.
func (eid *EndpointID) UnmarshalText(text []byte) error {
	*eid = ParseEndpointID(string(text))
	return nil
}

// MarshalJSON returns the URI as a JSON string.
func (eid EndpointID) MarshalJSON() ([]byte, error) {
	return json.Marshal(eid.Uri())
}

// UnmarshalJSON reads an URI from a JSON string.
func (eid *EndpointID) UnmarshalJSON(data []byte) error {
	var uri string
	if err := json.Unmarshal(data, &uri); err != nil {
		return err
	}
	*eid = ParseEndpointID(uri)
	return nil
}
