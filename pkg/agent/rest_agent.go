// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/core"
)

// Engine is the application-facing part of a bundle engine, implemented by
// core.Core.
type Engine interface {
	Register(eid bpv6.EndpointID, info core.RegisterInfo) error
	Unregister(eid bpv6.EndpointID) error
	Bind(eid bpv6.EndpointID) error
	Close(eid bpv6.EndpointID) error
	Send(data []byte, src, dst bpv6.EndpointID) error
	Receive(eid bpv6.EndpointID) ([]byte, error)
	Flush(src bpv6.EndpointID) (int, error)
	Registrations() []core.Registration
}

// RestAgent is a RESTful Application Agent for an Engine.
type RestAgent struct {
	router *mux.Router
	engine Engine
}

// NewRestAgent creates a new RESTful Application Agent, registering its
// handlers at the router.
func NewRestAgent(router *mux.Router, engine Engine) (ra *RestAgent) {
	ra = &RestAgent{
		router: router,
		engine: engine,
	}

	ra.router.HandleFunc("/register", ra.handleRegister).Methods(http.MethodPost)
	ra.router.HandleFunc("/unregister", ra.endpointHandler("unregister", engine.Unregister)).Methods(http.MethodPost)
	ra.router.HandleFunc("/bind", ra.endpointHandler("bind", engine.Bind)).Methods(http.MethodPost)
	ra.router.HandleFunc("/close", ra.endpointHandler("close", engine.Close)).Methods(http.MethodPost)
	ra.router.HandleFunc("/flush", ra.handleFlush).Methods(http.MethodPost)
	ra.router.HandleFunc("/send", ra.handleSend).Methods(http.MethodPost)
	ra.router.HandleFunc("/receive", ra.handleReceive).Methods(http.MethodGet).Queries("endpoint_id", "{endpoint_id}")
	ra.router.HandleFunc("/registrations", ra.handleRegistrations).Methods(http.MethodGet)

	return ra
}

// ServeHTTP is a http.Handler to be bound to a HTTP endpoint, e.g., /rest.
func (ra *RestAgent) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ra.router.ServeHTTP(w, r)
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func parseEndpoint(uri string) (bpv6.EndpointID, error) {
	if eid, ok := bpv6.ParseEndpointIDStrict(uri); ok {
		return eid, nil
	}
	return bpv6.EndpointID{}, fmt.Errorf("malformed endpoint ID %q", uri)
}

func writeResponse(w http.ResponseWriter, op string, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).WithField("operation", op).Warn("Failed to write REST response")
	}
}

// handleRegister processes /register POST requests.
func (ra *RestAgent) handleRegister(w http.ResponseWriter, r *http.Request) {
	var (
		registerRequest  RestRegisterRequest
		registerResponse RestResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&registerRequest); jsonErr != nil {
		registerResponse.Error = jsonErr.Error()
	} else if eid, eidErr := parseEndpoint(registerRequest.EndpointId); eidErr != nil {
		registerResponse.Error = eidErr.Error()
	} else {
		info := core.RegisterInfo{
			Lifetime: registerRequest.Lifetime,
			Active:   !registerRequest.Passive,
		}
		registerResponse.Error = errorString(ra.engine.Register(eid, info))
	}

	log.WithFields(log.Fields{
		"request":  registerRequest,
		"response": registerResponse,
	}).Info("Processing REST registration")

	writeResponse(w, "register", registerResponse)
}

// endpointHandler processes POST requests passing a single endpoint to op.
func (ra *RestAgent) endpointHandler(name string, op func(bpv6.EndpointID) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			request  RestEndpointRequest
			response RestResponse
		)

		if jsonErr := json.NewDecoder(r.Body).Decode(&request); jsonErr != nil {
			response.Error = jsonErr.Error()
		} else if eid, eidErr := parseEndpoint(request.EndpointId); eidErr != nil {
			response.Error = eidErr.Error()
		} else {
			response.Error = errorString(op(eid))
		}

		log.WithFields(log.Fields{
			"operation": name,
			"endpoint":  request.EndpointId,
			"error":     response.Error,
		}).Info("Processing REST request")

		writeResponse(w, name, response)
	}
}

// handleFlush processes /flush POST requests.
func (ra *RestAgent) handleFlush(w http.ResponseWriter, r *http.Request) {
	var (
		flushRequest  RestEndpointRequest
		flushResponse RestFlushResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&flushRequest); jsonErr != nil {
		flushResponse.Error = jsonErr.Error()
	} else if eid, eidErr := parseEndpoint(flushRequest.EndpointId); eidErr != nil {
		flushResponse.Error = eidErr.Error()
	} else {
		sent, err := ra.engine.Flush(eid)
		flushResponse.Sent = sent
		flushResponse.Error = errorString(err)
	}

	log.WithFields(log.Fields{
		"endpoint": flushRequest.EndpointId,
		"response": flushResponse,
	}).Info("Processing REST flush")

	writeResponse(w, "flush", flushResponse)
}

// handleSend processes /send POST requests.
func (ra *RestAgent) handleSend(w http.ResponseWriter, r *http.Request) {
	var (
		sendRequest  RestSendRequest
		sendResponse RestResponse
	)

	if jsonErr := json.NewDecoder(r.Body).Decode(&sendRequest); jsonErr != nil {
		sendResponse.Error = jsonErr.Error()
	} else if src, srcErr := parseEndpoint(sendRequest.Source); srcErr != nil {
		sendResponse.Error = srcErr.Error()
	} else if dst, dstErr := parseEndpoint(sendRequest.Destination); dstErr != nil {
		sendResponse.Error = dstErr.Error()
	} else {
		sendResponse.Error = errorString(ra.engine.Send(sendRequest.Payload, src, dst))
	}

	log.WithFields(log.Fields{
		"source":      sendRequest.Source,
		"destination": sendRequest.Destination,
		"size":        len(sendRequest.Payload),
		"error":       sendResponse.Error,
	}).Info("Processing REST send")

	writeResponse(w, "send", sendResponse)
}

// handleReceive processes /receive GET requests.
func (ra *RestAgent) handleReceive(w http.ResponseWriter, r *http.Request) {
	var receiveResponse RestReceiveResponse

	uri := mux.Vars(r)["endpoint_id"]
	if eid, eidErr := parseEndpoint(uri); eidErr != nil {
		receiveResponse.Error = eidErr.Error()
	} else if payload, err := ra.engine.Receive(eid); errors.Is(err, core.ErrNoData) {
		receiveResponse.Available = false
	} else if err != nil {
		receiveResponse.Error = err.Error()
	} else {
		receiveResponse.Available = true
		receiveResponse.Payload = payload
	}

	log.WithFields(log.Fields{
		"endpoint":  uri,
		"available": receiveResponse.Available,
		"error":     receiveResponse.Error,
	}).Debug("Processing REST receive")

	writeResponse(w, "receive", receiveResponse)
}

// handleRegistrations processes /registrations GET requests.
func (ra *RestAgent) handleRegistrations(w http.ResponseWriter, _ *http.Request) {
	writeResponse(w, "registrations", RestRegistrationsResponse{
		Registrations: ra.engine.Registrations(),
	})
}
