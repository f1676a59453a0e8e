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

package garageclient

import (
	"context"
	"net/http"
)

// GetStatus returns the cluster's nodes and current layout version.
func (c *Client) GetStatus(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := c.do(ctx, http.MethodGet, "/status", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApplyLayout submits a new layout version built from assignments.
func (c *Client) ApplyLayout(ctx context.Context, req ApplyLayoutRequest) (*ApplyLayoutResponse, error) {
	var out ApplyLayoutResponse
	if err := c.do(ctx, http.MethodPost, "/layout", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetCluster returns the cluster's aggregate capacity.
func (c *Client) GetCluster(ctx context.Context) (*ClusterResponse, error) {
	var out ClusterResponse
	if err := c.do(ctx, http.MethodGet, "/cluster", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateBucket registers a new bucket under globalAlias, returning the
// Garage-assigned bucket ID. Returns an AlreadyExists error when the alias
// is already registered; callers should adopt the existing bucket via
// GetBucketByAlias instead of retrying.
func (c *Client) CreateBucket(ctx context.Context, globalAlias string) (*BucketResponse, error) {
	var out BucketResponse
	body := map[string]string{"globalAlias": globalAlias}
	if err := c.doCreate(ctx, http.MethodPost, "/bucket", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBucketByID fetches a bucket descriptor by its Garage ID.
func (c *Client) GetBucketByID(ctx context.Context, id string) (*BucketResponse, error) {
	var out BucketResponse
	if err := c.do(ctx, http.MethodGet, "/bucket", map[string]string{"id": id}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetBucketByAlias fetches a bucket descriptor by its global alias, used
// to adopt a bucket whose alias already existed on CreateBucket.
func (c *Client) GetBucketByAlias(ctx context.Context, globalAlias string) (*BucketResponse, error) {
	var out BucketResponse
	if err := c.do(ctx, http.MethodGet, "/bucket", map[string]string{"globalAlias": globalAlias}, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateBucketQuotas replaces a bucket's quotas.
func (c *Client) UpdateBucketQuotas(ctx context.Context, id string, quotas Quotas) error {
	body := map[string]interface{}{"id": id, "quotas": quotas}
	return c.do(ctx, http.MethodPut, "/bucket", nil, body, nil)
}

// DeleteBucket removes a bucket by ID. A NotFound response is treated by
// callers as an already-clean state, not a failure.
func (c *Client) DeleteBucket(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/bucket", map[string]string{"id": id}, nil, nil)
}

// CreateKey provisions a new access key named name. SecretAccessKey is
// returned only on this call; it must be persisted immediately.
func (c *Client) CreateKey(ctx context.Context, name string) (*KeyResponse, error) {
	var out KeyResponse
	body := map[string]string{"name": name}
	if err := c.doCreate(ctx, http.MethodPost, "/key", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteKey removes an access key by ID.
func (c *Client) DeleteKey(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/key", map[string]string{"id": id}, nil, nil)
}

// AllowKey grants the given permission flags to keyID on bucketID.
func (c *Client) AllowKey(ctx context.Context, bucketID, keyID string, perms Permissions) error {
	body := map[string]interface{}{"bucketId": bucketID, "keyId": keyID, "permissions": perms}
	return c.do(ctx, http.MethodPost, "/bucket/allow", nil, body, nil)
}

// DenyKey revokes the given permission flags from keyID on bucketID.
func (c *Client) DenyKey(ctx context.Context, bucketID, keyID string, perms Permissions) error {
	body := map[string]interface{}{"bucketId": bucketID, "keyId": keyID, "permissions": perms}
	return c.do(ctx, http.MethodPost, "/bucket/deny", nil, body, nil)
}
