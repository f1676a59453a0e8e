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

// Node is one member of the cluster as reported by GetStatus.
type Node struct {
	ID                string `json:"id"`
	Hostname          string `json:"hostname"`
	FreeMetaCapacity  int64  `json:"freeMetaCapacity"`
	FreeDataCapacity  int64  `json:"freeDataCapacity"`
}

// StatusResponse is the GetStatus response body.
type StatusResponse struct {
	Nodes         []Node `json:"nodes"`
	LayoutVersion int64  `json:"layoutVersion"`
}

// LayoutAssignment describes one node's desired position in the cluster
// topology.
type LayoutAssignment struct {
	NodeID   string   `json:"id"`
	Zone     string   `json:"zone"`
	Capacity int64    `json:"capacity"`
	Tags     []string `json:"tags"`
}

// ApplyLayoutRequest is the ApplyLayout request body.
type ApplyLayoutRequest struct {
	Assignments []LayoutAssignment `json:"assignments"`
	Version     int64              `json:"version"`
}

// ApplyLayoutResponse is the ApplyLayout response body.
type ApplyLayoutResponse struct {
	Version int64 `json:"version"`
}

// ClusterResponse is the GetCluster response body.
type ClusterResponse struct {
	// Capacity is the aggregate byte capacity across all nodes.
	Capacity int64 `json:"capacity"`
}

// Quotas mirrors the quota fields Garage accepts/reports on a bucket.
type Quotas struct {
	MaxObjectCount *uint64 `json:"maxObjectCount,omitempty"`
	MaxSize        *int64  `json:"maxSize,omitempty"`
}

// Permissions is the (read, write, owner) triple Garage reports for a
// key-bucket binding.
type Permissions struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
	Owner bool `json:"owner"`
}

// KeyPermission pairs a key ID with its permissions on a bucket, as
// reported inside a bucket descriptor.
type KeyPermission struct {
	KeyID       string      `json:"keyId"`
	Permissions Permissions `json:"permissions"`
}

// BucketResponse is the CreateBucket/GetBucket response body.
type BucketResponse struct {
	ID      string          `json:"id"`
	Quotas  Quotas          `json:"quotas"`
	Keys    []KeyPermission `json:"keys"`
}

// KeyResponse is the CreateKey response body. SecretAccessKey is only ever
// populated by CreateKey; it is never returned again by the admin API.
type KeyResponse struct {
	AccessKeyID     string `json:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
}
