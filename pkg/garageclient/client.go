/*
Copyright The Garage Operator Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package garageclient is a typed HTTP client over a Garage instance's
// admin API, grounded on the teacher's instanceStatusClient
// (controllers/instance_status.go): a timeout-wrapped *http.Client. Each
// call makes one request and does not retry; failures carry a Kind, and
// Error.Retryable tells callers whether retrying can help.
package garageclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

const (
	connectionTimeout = 2 * time.Second
	requestTimeout    = 30 * time.Second
)

// Client talks to one Garage instance's admin HTTP API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// New builds a Client targeting baseURL (e.g. "http://garage.ns.svc:3903")
// and authenticating every call with the given bearer token.
func New(baseURL, token string) *Client {
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{Timeout: connectionTimeout}).DialContext,
			},
			Timeout: requestTimeout,
		},
		baseURL: baseURL,
		token:   token,
	}
}

// do issues a request, classifying a 409 response as Conflict. Endpoints
// where a 409 actually means "already exists, adopt it by lookup" (bucket
// and key creation) use doCreate instead.
func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	return c.doWithConflictKind(ctx, method, path, query, body, out, Conflict)
}

// doCreate is do's counterpart for creation endpoints, classifying a 409
// as AlreadyExists so callers adopt the existing object by lookup instead
// of retrying a create that can never succeed.
func (c *Client) doCreate(ctx context.Context, method, path string, query map[string]string, body, out interface{}) error {
	return c.doWithConflictKind(ctx, method, path, query, body, out, AlreadyExists)
}

func (c *Client) doWithConflictKind(ctx context.Context, method, path string, query map[string]string, body, out interface{}, conflictKind Kind) error {
	var reqBody *bytes.Buffer
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		reqBody = bytes.NewBuffer(encoded)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	url := c.baseURL + path
	if len(query) > 0 {
		q := make([]byte, 0, 64)
		q = append(q, '?')
		first := true
		for k, v := range query {
			if !first {
				q = append(q, '&')
			}
			first = false
			q = append(q, []byte(k+"="+v)...)
		}
		url += string(q)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Kind: Transport, Cause: err}
	}
	defer resp.Body.Close()

	if err := classifyStatus(resp.StatusCode, conflictKind); err != nil {
		return err
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return &Error{Kind: Protocol, Cause: errors.Wrap(err, "decoding response body")}
	}
	return nil
}

func classifyStatus(code int, conflictKind Kind) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return &Error{Kind: NotFound, Cause: fmt.Errorf("status %d", code)}
	case code == http.StatusConflict:
		return &Error{Kind: conflictKind, Cause: fmt.Errorf("status %d", code)}
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &Error{Kind: Unauthorized, Cause: fmt.Errorf("status %d", code)}
	case code >= 500:
		return &Error{Kind: Transport, Cause: fmt.Errorf("status %d", code)}
	default:
		return &Error{Kind: Protocol, Cause: fmt.Errorf("unexpected status %d", code)}
	}
}
