// SPDX-FileCopyrightText: 2020 Alvar Penning
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dtn7/dtn6-go/pkg/bpv6"
	"github.com/dtn7/dtn6-go/pkg/core"
)

// RestClient talks to a RestAgent.
type RestClient struct {
	base   string
	client *http.Client
}

// NewRestClient for a RestAgent's base URL, e.g., http://localhost:8080/rest.
func NewRestClient(base string) *RestClient {
	return &RestClient{
		base:   strings.TrimSuffix(base, "/"),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (rc *RestClient) post(path string, request, response interface{}) error {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(request); err != nil {
		return err
	}

	resp, err := rc.client.Post(rc.base+path, "application/json", buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, response)
}

func (rc *RestClient) get(path string, response interface{}) error {
	resp, err := rc.client.Get(rc.base + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return decodeResponse(resp, response)
}

func decodeResponse(resp *http.Response, response interface{}) error {
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("REST agent responded %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(response)
}

func responseError(msg string) error {
	if msg == "" {
		return nil
	}
	return errors.New(msg)
}

// Register an endpoint.
func (rc *RestClient) Register(eid bpv6.EndpointID, info core.RegisterInfo) error {
	var response RestResponse
	request := RestRegisterRequest{
		EndpointId: eid.String(),
		Lifetime:   info.Lifetime,
		Passive:    !info.Active,
	}

	if err := rc.post("/register", request, &response); err != nil {
		return err
	}
	return responseError(response.Error)
}

func (rc *RestClient) endpointRequest(path string, eid bpv6.EndpointID) error {
	var response RestResponse
	if err := rc.post(path, RestEndpointRequest{EndpointId: eid.String()}, &response); err != nil {
		return err
	}
	return responseError(response.Error)
}

// Unregister makes an endpoint passive.
func (rc *RestClient) Unregister(eid bpv6.EndpointID) error {
	return rc.endpointRequest("/unregister", eid)
}

// Bind makes an endpoint active.
func (rc *RestClient) Bind(eid bpv6.EndpointID) error {
	return rc.endpointRequest("/bind", eid)
}

// Close an endpoint's registration.
func (rc *RestClient) Close(eid bpv6.EndpointID) error {
	return rc.endpointRequest("/close", eid)
}

// Flush retries the transmission of src's queued bundles.
func (rc *RestClient) Flush(src bpv6.EndpointID) (int, error) {
	var response RestFlushResponse
	if err := rc.post("/flush", RestEndpointRequest{EndpointId: src.String()}, &response); err != nil {
		return 0, err
	}
	return response.Sent, responseError(response.Error)
}

// Send data from src to dst.
func (rc *RestClient) Send(data []byte, src, dst bpv6.EndpointID) error {
	var response RestResponse
	request := RestSendRequest{
		Source:      src.String(),
		Destination: dst.String(),
		Payload:     data,
	}

	if err := rc.post("/send", request, &response); err != nil {
		return err
	}
	return responseError(response.Error)
}

// Receive the next payload for an endpoint. ok is false if nothing is queued.
func (rc *RestClient) Receive(eid bpv6.EndpointID) (payload []byte, ok bool, err error) {
	var response RestReceiveResponse
	if err = rc.get("/receive?endpoint_id="+url.QueryEscape(eid.String()), &response); err != nil {
		return
	} else if err = responseError(response.Error); err != nil {
		return
	}
	return response.Payload, response.Available, nil
}

// Registrations of the engine.
func (rc *RestClient) Registrations() ([]core.Registration, error) {
	var response RestRegistrationsResponse
	if err := rc.get("/registrations", &response); err != nil {
		return nil, err
	}
	return response.Registrations, responseError(response.Error)
}
