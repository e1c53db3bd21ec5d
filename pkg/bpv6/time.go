// SPDX-FileCopyrightText: 2019, 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bpv6

import (
	"encoding/json"
	"time"
)

// DtnTime is an integer representation of seconds since the start of the year
// 2000 (UTC), as used by RFC 5050's creation timestamps.
type DtnTime uint64

const (
	seconds1970To2k = 946684800

	// DtnTimeEpoch represents the zero timestamp/epoch.
	DtnTimeEpoch DtnTime = 0
)

// Time returns a UTC-based time.Time for this DtnTime.
func (t DtnTime) Time() time.Time {
	return time.Unix(int64(t)+seconds1970To2k, 0).UTC()
}

// String returns this DtnTime's string representation.
func (t DtnTime) String() string {
	return t.Time().Format("2006-01-02 15:04:05")
}

// MarshalJSON creates a JSON string for this DtnTime.
func (t DtnTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// DtnTimeFromTime returns the DtnTime for the time.Time. Times before the
// year 2000 are mapped to the epoch.
func DtnTimeFromTime(t time.Time) DtnTime {
	if sec := t.UTC().Unix() - seconds1970To2k; sec > 0 {
		return DtnTime(sec)
	}
	return DtnTimeEpoch
}

// DtnTimeNow returns the current (UTC) time as DtnTime.
func DtnTimeNow() DtnTime {
	return DtnTimeFromTime(time.Now())
}
