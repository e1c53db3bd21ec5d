// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import "github.com/dtn7/dtn6-go/pkg/core"

// RestRegisterRequest describes a JSON to be POSTed to /register.
type RestRegisterRequest struct {
	EndpointId string `json:"endpoint_id"`
	Lifetime   uint64 `json:"lifetime"`
	Passive    bool   `json:"passive"`
}

// RestEndpointRequest describes a JSON to be POSTed to /unregister, /bind,
// /close or /flush.
type RestEndpointRequest struct {
	EndpointId string `json:"endpoint_id"`
}

// RestResponse describes a JSON response for requests without further
// results.
type RestResponse struct {
	Error string `json:"error"`
}

// RestSendRequest describes a JSON to be POSTed to /send. The payload is
// base64 encoded.
type RestSendRequest struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Payload     []byte `json:"payload"`
}

// RestReceiveResponse describes a JSON response for /receive?endpoint_id=.
// Available is false if nothing was queued.
type RestReceiveResponse struct {
	Error     string `json:"error"`
	Available bool   `json:"available"`
	Payload   []byte `json:"payload"`
}

// RestFlushResponse describes a JSON response for /flush.
type RestFlushResponse struct {
	Error string `json:"error"`
	Sent  int    `json:"sent"`
}

// RestRegistrationsResponse describes a JSON response for /registrations.
type RestRegistrationsResponse struct {
	Error         string              `json:"error"`
	Registrations []core.Registration `json:"registrations"`
}
