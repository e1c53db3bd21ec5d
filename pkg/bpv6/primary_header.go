// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/dtn6-go/pkg/sdnv"
)

const (
	dtnVersion uint8 = 6

	// maxDictionaryLength bounds the dictionary of a primary header holding
	// four endpoints of at most MaxEndpointPartLength bytes per part.
	maxDictionaryLength = 8 * (MaxEndpointPartLength + 1)
)

// byteReader is satisfied by bytes.Reader and bufio.Reader.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// EndpointRef locates an endpoint's scheme and scheme-specific part within a
// primary header's dictionary.
type EndpointRef struct {
	SchemeOffset uint64
	SspOffset    uint64
}

// PrimaryHeader is the primary bundle block of RFC 5050, section 4.5.1.
type PrimaryHeader struct {
	Version         uint8
	ProcessingFlags BundleControlFlags

	// BlockLength is the length of the header's body following this field.
	// It is updated by MarshalBinary and set while parsing.
	BlockLength uint64

	Destination EndpointRef
	Source      EndpointRef
	ReportTo    EndpointRef
	Custodian   EndpointRef

	CreationTimestamp DtnTime
	SequenceNumber    uint64

	// Lifetime in seconds.
	Lifetime uint64

	Dictionary Dictionary

	FragmentOffset uint64
	AduLength      uint64
}

// NewPrimaryHeader creates a new PrimaryHeader. The source is also used as
// the report-to endpoint, the custodian is set to dtn:none.
func NewPrimaryHeader(flags BundleControlFlags, destination, source EndpointID,
	timestamp DtnTime, sequenceNumber uint64, lifetime uint64) PrimaryHeader {
	ph := PrimaryHeader{
		Version:           dtnVersion,
		ProcessingFlags:   flags,
		CreationTimestamp: timestamp,
		SequenceNumber:    sequenceNumber,
		Lifetime:          lifetime,
	}

	ph.SetDestination(destination)
	ph.SetSource(source)
	ph.SetReportTo(source)
	ph.SetCustodian(DtnNone())
	ph.BlockLength = ph.bodyLength()

	return ph
}

func (ph *PrimaryHeader) addEndpoint(eid EndpointID) EndpointRef {
	return EndpointRef{
		SchemeOffset: ph.Dictionary.Add(eid.Scheme()),
		SspOffset:    ph.Dictionary.Add(eid.Ssp()),
	}
}

func (ph PrimaryHeader) endpoint(ref EndpointRef) EndpointID {
	scheme, schemeErr := ph.Dictionary.Lookup(ref.SchemeOffset)
	ssp, sspErr := ph.Dictionary.Lookup(ref.SspOffset)
	if schemeErr != nil || sspErr != nil {
		return DtnNone()
	}
	return NewEndpointID(scheme, ssp)
}

// SetDestination appends the destination endpoint to the dictionary.
func (ph *PrimaryHeader) SetDestination(eid EndpointID) {
	ph.Destination = ph.addEndpoint(eid)
}

// SetSource appends the source endpoint to the dictionary.
func (ph *PrimaryHeader) SetSource(eid EndpointID) {
	ph.Source = ph.addEndpoint(eid)
}

// SetReportTo appends the report-to endpoint to the dictionary.
func (ph *PrimaryHeader) SetReportTo(eid EndpointID) {
	ph.ReportTo = ph.addEndpoint(eid)
}

// SetCustodian appends the custodian endpoint to the dictionary.
func (ph *PrimaryHeader) SetCustodian(eid EndpointID) {
	ph.Custodian = ph.addEndpoint(eid)
}

// DestinationEID returns the destination endpoint from the dictionary.
func (ph PrimaryHeader) DestinationEID() EndpointID {
	return ph.endpoint(ph.Destination)
}

// SourceEID returns the source endpoint from the dictionary.
func (ph PrimaryHeader) SourceEID() EndpointID {
	return ph.endpoint(ph.Source)
}

// ReportToEID returns the report-to endpoint from the dictionary.
func (ph PrimaryHeader) ReportToEID() EndpointID {
	return ph.endpoint(ph.ReportTo)
}

// CustodianEID returns the custodian endpoint from the dictionary.
func (ph PrimaryHeader) CustodianEID() EndpointID {
	return ph.endpoint(ph.Custodian)
}

// IsFragment checks the fragment processing flag.
func (ph PrimaryHeader) IsFragment() bool {
	return ph.ProcessingFlags.Has(IsFragment)
}

// SetFragment marks this header as a fragment of an ADU of the given total
// length, starting at offset.
func (ph *PrimaryHeader) SetFragment(offset, aduLength uint64) {
	ph.ProcessingFlags |= IsFragment
	ph.FragmentOffset = offset
	ph.AduLength = aduLength
}

// Priority returns the class of service, which is always PriorityBulk. The
// priority bits of ProcessingFlags are preserved but not interpreted.
func (ph PrimaryHeader) Priority() Priority {
	return PriorityBulk
}

func (ph PrimaryHeader) refs() []uint64 {
	return []uint64{
		ph.Destination.SchemeOffset, ph.Destination.SspOffset,
		ph.Source.SchemeOffset, ph.Source.SspOffset,
		ph.ReportTo.SchemeOffset, ph.ReportTo.SspOffset,
		ph.Custodian.SchemeOffset, ph.Custodian.SspOffset,
	}
}

// bodyLength is the length of everything following the block length field.
func (ph PrimaryHeader) bodyLength() (l uint64) {
	for _, ref := range ph.refs() {
		l += uint64(sdnv.EncodingLength(ref))
	}

	l += uint64(sdnv.EncodingLength(uint64(ph.CreationTimestamp)))
	l += uint64(sdnv.EncodingLength(ph.SequenceNumber))
	l += uint64(sdnv.EncodingLength(ph.Lifetime))
	l += uint64(sdnv.EncodingLength(uint64(ph.Dictionary.Len())))
	l += uint64(ph.Dictionary.Len())

	if ph.IsFragment() {
		l += uint64(sdnv.EncodingLength(ph.FragmentOffset))
		l += uint64(sdnv.EncodingLength(ph.AduLength))
	}

	return
}

// SerializedSize returns the exact length of MarshalBinary's output.
func (ph PrimaryHeader) SerializedSize() int {
	bodyLen := ph.bodyLength()
	return 1 +
		sdnv.EncodingLength(uint64(ph.ProcessingFlags)) +
		sdnv.EncodingLength(bodyLen) +
		int(bodyLen)
}

// MarshalBinary serializes this PrimaryHeader into its wire format and
// updates the BlockLength field.
func (ph *PrimaryHeader) MarshalBinary() ([]byte, error) {
	ph.BlockLength = ph.bodyLength()

	buf := make([]byte, 0, ph.SerializedSize())
	buf = append(buf, ph.Version)
	buf = sdnv.Append(buf, uint64(ph.ProcessingFlags))
	buf = sdnv.Append(buf, ph.BlockLength)

	for _, ref := range ph.refs() {
		buf = sdnv.Append(buf, ref)
	}

	buf = sdnv.Append(buf, uint64(ph.CreationTimestamp))
	buf = sdnv.Append(buf, ph.SequenceNumber)
	buf = sdnv.Append(buf, ph.Lifetime)
	buf = sdnv.Append(buf, uint64(ph.Dictionary.Len()))
	buf = append(buf, ph.Dictionary.Bytes()...)

	if ph.IsFragment() {
		buf = sdnv.Append(buf, ph.FragmentOffset)
		buf = sdnv.Append(buf, ph.AduLength)
	}

	return buf, nil
}

// WriteTo writes the serialized PrimaryHeader to w.
func (ph *PrimaryHeader) WriteTo(w io.Writer) (int64, error) {
	data, _ := ph.MarshalBinary()
	n, err := w.Write(data)
	return int64(n), err
}

// streamErr maps a premature end of stream to ErrIncompleteFrame.
func streamErr(err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, sdnv.ErrIncomplete) {
		return ErrIncompleteFrame
	}
	return err
}

// ReadPrimaryHeader parses a PrimaryHeader from a stream.
func ReadPrimaryHeader(r byteReader) (ph PrimaryHeader, err error) {
	if ph.Version, err = r.ReadByte(); err != nil {
		err = streamErr(err)
		return
	} else if ph.Version != dtnVersion {
		err = fmt.Errorf("%w: %d", ErrVersion, ph.Version)
		return
	}

	var flags uint64
	if flags, err = sdnv.Read(r); err != nil {
		err = streamErr(err)
		return
	}
	ph.ProcessingFlags = BundleControlFlags(flags)

	var refs [8]uint64
	fields := []*uint64{
		&ph.BlockLength,
		&refs[0], &refs[1], &refs[2], &refs[3], &refs[4], &refs[5], &refs[6], &refs[7],
	}
	for _, field := range fields {
		if *field, err = sdnv.Read(r); err != nil {
			err = streamErr(err)
			return
		}
	}
	ph.Destination = EndpointRef{refs[0], refs[1]}
	ph.Source = EndpointRef{refs[2], refs[3]}
	ph.ReportTo = EndpointRef{refs[4], refs[5]}
	ph.Custodian = EndpointRef{refs[6], refs[7]}

	var timestamp, dictLength uint64
	for _, field := range []*uint64{&timestamp, &ph.SequenceNumber, &ph.Lifetime, &dictLength} {
		if *field, err = sdnv.Read(r); err != nil {
			err = streamErr(err)
			return
		}
	}
	ph.CreationTimestamp = DtnTime(timestamp)

	if dictLength > maxDictionaryLength {
		err = fmt.Errorf("%w: dictionary length %d", ErrFieldRange, dictLength)
		return
	}

	dict := make([]byte, dictLength)
	if _, err = io.ReadFull(r, dict); err != nil {
		err = streamErr(err)
		return
	}
	ph.Dictionary = NewDictionary(dict)

	if ph.IsFragment() {
		for _, field := range []*uint64{&ph.FragmentOffset, &ph.AduLength} {
			if *field, err = sdnv.Read(r); err != nil {
				err = streamErr(err)
				return
			}
		}
	}

	for _, ref := range refs {
		if ref >= dictLength {
			err = fmt.Errorf("%w: %d of %d", ErrDictionaryOffset, ref, dictLength)
			return
		}
	}

	return
}

// UnmarshalPrimaryHeader parses a PrimaryHeader from the start of data and
// returns the amount of consumed bytes. ErrIncompleteFrame is returned if
// data ends within the header.
func UnmarshalPrimaryHeader(data []byte) (ph PrimaryHeader, n int, err error) {
	r := bytes.NewReader(data)
	ph, err = ReadPrimaryHeader(r)
	n = len(data) - r.Len()
	return
}

// CheckValid returns an array of errors for incorrect data.
func (ph PrimaryHeader) CheckValid() (errs error) {
	if ph.Version != dtnVersion {
		errs = multierror.Append(errs,
			fmt.Errorf("PrimaryHeader: Wrong Version, %d instead of %d", ph.Version, dtnVersion))
	}

	if bcfErr := ph.ProcessingFlags.CheckValid(); bcfErr != nil {
		errs = multierror.Append(errs, bcfErr)
	}

	for _, ref := range ph.refs() {
		if ref >= uint64(ph.Dictionary.Len()) {
			errs = multierror.Append(errs,
				fmt.Errorf("PrimaryHeader: dictionary offset %d exceeds dictionary of %d bytes",
					ref, ph.Dictionary.Len()))
		}
	}

	if ph.IsFragment() && ph.FragmentOffset >= ph.AduLength {
		errs = multierror.Append(errs,
			fmt.Errorf("PrimaryHeader: fragment offset %d is not within ADU of %d bytes",
				ph.FragmentOffset, ph.AduLength))
	}

	if ph.SourceEID().IsNone() && ph.IsFragment() {
		errs = multierror.Append(errs,
			fmt.Errorf("PrimaryHeader: Source is dtn:none, but Bundle is fragmented"))
	}

	return
}

func (ph PrimaryHeader) String() string {
	var b strings.Builder

	_, _ = fmt.Fprintf(&b, "version: %d, ", ph.Version)
	_, _ = fmt.Fprintf(&b, "bundle processing control flags: %b, ", ph.ProcessingFlags)
	_, _ = fmt.Fprintf(&b, "destination: %v, ", ph.DestinationEID())
	_, _ = fmt.Fprintf(&b, "source: %v, ", ph.SourceEID())
	_, _ = fmt.Fprintf(&b, "report to: %v, ", ph.ReportToEID())
	_, _ = fmt.Fprintf(&b, "custodian: %v, ", ph.CustodianEID())
	_, _ = fmt.Fprintf(&b, "creation timestamp: (%v, %d), ", ph.CreationTimestamp, ph.SequenceNumber)
	_, _ = fmt.Fprintf(&b, "lifetime: %d", ph.Lifetime)

	if ph.IsFragment() {
		_, _ = fmt.Fprintf(&b, ", fragment offset: %d, ", ph.FragmentOffset)
		_, _ = fmt.Fprintf(&b, "adu length: %d", ph.AduLength)
	}

	return b.String()
}

// MarshalJSON creates a JSON object representing this PrimaryHeader.
func (ph PrimaryHeader) MarshalJSON() ([]byte, error) {
	type fragment struct {
		Offset    uint64 `json:"offset"`
		AduLength uint64 `json:"aduLength"`
	}

	var frag *fragment
	if ph.IsFragment() {
		frag = &fragment{ph.FragmentOffset, ph.AduLength}
	}

	return json.Marshal(&struct {
		ControlFlags   BundleControlFlags `json:"bundleControlFlags"`
		Priority       string             `json:"priority"`
		Destination    EndpointID         `json:"destination"`
		Source         EndpointID         `json:"source"`
		ReportTo       EndpointID         `json:"reportTo"`
		Custodian      EndpointID         `json:"custodian"`
		CreationTime   DtnTime            `json:"creationTime"`
		SequenceNumber uint64             `json:"sequenceNo"`
		Lifetime       uint64             `json:"lifetime"`
		Fragment       *fragment          `json:"fragment,omitempty"`
	}{
		ControlFlags:   ph.ProcessingFlags,
		Priority:       ph.Priority().String(),
		Destination:    ph.DestinationEID(),
		Source:         ph.SourceEID(),
		ReportTo:       ph.ReportToEID(),
		Custodian:      ph.CustodianEID(),
		CreationTime:   ph.CreationTimestamp,
		SequenceNumber: ph.SequenceNumber,
		Lifetime:       ph.Lifetime,
		Fragment:       frag,
	})
}
