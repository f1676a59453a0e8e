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

import "context"

// API is the set of admin operations a reconciler needs against one
// Garage instance. *Client implements it; tests substitute a fake.
type API interface {
	GetStatus(ctx context.Context) (*StatusResponse, error)
	ApplyLayout(ctx context.Context, req ApplyLayoutRequest) (*ApplyLayoutResponse, error)
	GetCluster(ctx context.Context) (*ClusterResponse, error)

	CreateBucket(ctx context.Context, globalAlias string) (*BucketResponse, error)
	GetBucketByID(ctx context.Context, id string) (*BucketResponse, error)
	GetBucketByAlias(ctx context.Context, globalAlias string) (*BucketResponse, error)
	UpdateBucketQuotas(ctx context.Context, id string, quotas Quotas) error
	DeleteBucket(ctx context.Context, id string) error

	CreateKey(ctx context.Context, name string) (*KeyResponse, error)
	DeleteKey(ctx context.Context, id string) error
	AllowKey(ctx context.Context, bucketID, keyID string, perms Permissions) error
	DenyKey(ctx context.Context, bucketID, keyID string, perms Permissions) error
}

// Factory builds an API client for a Garage instance reachable at
// baseURL, authenticating with token.
type Factory func(baseURL, token string) API

// NewFactory returns the default Factory, constructing a real *Client.
func NewFactory() Factory {
	return func(baseURL, token string) API {
		return New(baseURL, token)
	}
}

var _ API = (*Client)(nil)
