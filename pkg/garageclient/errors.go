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

import "fmt"

// Kind classifies an admin API failure so callers can decide whether to
// retry, adopt, or surface the error as terminal.
type Kind string

const (
	// NotFound means the admin API reported no such object.
	NotFound Kind = "NotFound"
	// AlreadyExists means the admin API refused to create an object
	// because its alias/name is already taken; callers should adopt it
	// via a lookup rather than retry as a failure.
	AlreadyExists Kind = "AlreadyExists"
	// Unauthorized means the bearer token was rejected.
	Unauthorized Kind = "Unauthorized"
	// Conflict means a concurrent modification was detected.
	Conflict Kind = "Conflict"
	// Transport means the request could not complete (dial/timeout/5xx).
	Transport Kind = "Transport"
	// Protocol means the response could not be parsed as expected.
	Protocol Kind = "Protocol"
)

// Error is the typed error envelope returned by every Client method.
type Error struct {
	Kind  Kind
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("garage admin api: %s: %v", e.Kind, e.Cause)
}

// Unwrap exposes the underlying cause to errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller should retry the call with
// backoff. NotFound and AlreadyExists are resolved by the caller's own
// adopt/lookup logic rather than retried.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case NotFound, AlreadyExists:
		return false
	default:
		return true
	}
}
