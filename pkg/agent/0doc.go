// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent exposes a bundle engine to applications.
//
// The RestAgent serves the application-facing operations as JSON over HTTP:
// registration management, sending data and polling for received data. The
// RestClient is its counterpart, e.g., used by the dtn-tool.
package agent
