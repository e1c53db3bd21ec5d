// SPDX-FileCopyrightText: 2022 Markus Sommer
//
// SPDX-License-Identifier: GPL-3.0-or-later

package internal

import "github.com/quic-go/quic-go"

const (
	// ConnectionError designates errors in data transmission.
	ConnectionError quic.ApplicationErrorCode = 3
	// ApplicationShutdown is sent when a connection is closed locally.
	ApplicationShutdown quic.ApplicationErrorCode = 5
)
