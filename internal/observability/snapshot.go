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

// Package observability holds the process-global, mutex-guarded snapshot
// of the last reconciled instance of each custom resource kind, served as
// JSON on the operator's "/" endpoint.
package observability

import "sync"

// Entry is the last-observed state of one reconciled resource.
type Entry struct {
	Name               string `json:"name"`
	Namespace          string `json:"namespace"`
	ObservedGeneration int64  `json:"observedGeneration"`
	LastError          string `json:"lastError,omitempty"`
}

// Snapshot is the operator's single process-global mutable datum. Held
// only across O(1) struct-copy operations per spec.md §5.
type Snapshot struct {
	mu        sync.Mutex
	garage    map[string]Entry
	bucket    map[string]Entry
	accessKey map[string]Entry
}

// NewSnapshot builds an empty Snapshot, ready to record entries.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		garage:    map[string]Entry{},
		bucket:    map[string]Entry{},
		accessKey: map[string]Entry{},
	}
}

// RecordGarage records the latest observed state of a Garage CR.
func (s *Snapshot) RecordGarage(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.garage[key] = entry
}

// RecordBucket records the latest observed state of a Bucket CR.
func (s *Snapshot) RecordBucket(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bucket[key] = entry
}

// RecordAccessKey records the latest observed state of an AccessKey CR.
func (s *Snapshot) RecordAccessKey(key string, entry Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accessKey[key] = entry
}

// View is the JSON-serializable copy returned to callers: a list per kind,
// matching the HTTP surface's `{garage: [...], bucket: [...], accesskey:
// [...]}` contract.
type View struct {
	Garage    []Entry `json:"garage"`
	Bucket    []Entry `json:"bucket"`
	AccessKey []Entry `json:"accesskey"`
}

// Snapshot returns a point-in-time copy of the recorded state.
func (s *Snapshot) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := View{
		Garage:    make([]Entry, 0, len(s.garage)),
		Bucket:    make([]Entry, 0, len(s.bucket)),
		AccessKey: make([]Entry, 0, len(s.accessKey)),
	}
	for _, e := range s.garage {
		view.Garage = append(view.Garage, e)
	}
	for _, e := range s.bucket {
		view.Bucket = append(view.Bucket, e)
	}
	for _, e := range s.accessKey {
		view.AccessKey = append(view.AccessKey, e)
	}
	return view
}
