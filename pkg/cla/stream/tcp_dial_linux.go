// SPDX-FileCopyrightText: 2021 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux
// +build linux

package stream

import (
	"net"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// Socket options from tcp(7) to detect lost links fast, as nodes in a
// disruption tolerant network may vanish at any time.

// dialControl is the net.Dialer's Control function to set the socket options.
func dialControl(_, _ string, rawConn syscall.RawConn) (err error) {
	const (
		// keepCnt is the maximum number of keepalive probes.
		keepCnt int = 1

		// keepIdle is the idle time in seconds before probing.
		keepIdle int = 5

		// keepIntvl is the time in seconds between probes.
		keepIntvl int = 3

		// userTimeout is the time in milliseconds transmitted data may stay
		// unacknowledged.
		userTimeout int = 2000
	)

	opts := []struct{ level, opt, value int }{
		{unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1},
		{unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepCnt},
		{unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, keepIdle},
		{unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, keepIntvl},
		{unix.IPPROTO_TCP, unix.TCP_USER_TIMEOUT, userTimeout},
	}

	ctrlErr := rawConn.Control(func(fd uintptr) {
		for _, o := range opts {
			if err = unix.SetsockoptInt(int(fd), o.level, o.opt, o.value); err != nil {
				return
			}
		}
	})
	if err == nil {
		err = ctrlErr
	}
	return
}

// dial a new TCP connection with socket options set. The negative KeepAlive
// stops net.Dialer from overwriting them.
func dial(address string) (net.Conn, error) {
	dialer := &net.Dialer{
		Timeout:   time.Second,
		KeepAlive: -1,
		Control:   dialControl,
	}
	return dialer.Dial("tcp", address)
}
