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

// Package controller hosts the Garage, Bucket and AccessKey reconcilers,
// generalizing the teacher's controllers package (cluster_controller.go,
// backup_controller.go) to the object-store domain: three independent
// loops sharing a small helper surface rather than a deep abstraction.
package controller

import apierrors "k8s.io/apimachinery/pkg/api/errors"

// Kind classifies a reconcile failure so the dispatch layer can decide the
// requeue policy without re-deriving it from the error's shape.
type Kind string

const (
	// SpecInvalid means the user's spec fails validation. Surfaced as
	// Errored; not retried with backoff, waits for a spec change.
	SpecInvalid Kind = "SpecInvalid"

	// DependencyNotReady means a referenced Garage/Bucket was not found
	// or is not yet Ready. Status stays Creating; short requeue.
	DependencyNotReady Kind = "DependencyNotReady"

	// KubernetesAPI means a transient API server error (conflict,
	// timeout, 5xx). Retried with exponential backoff.
	KubernetesAPI Kind = "KubernetesAPI"

	// AdminAPI means a transient Garage admin API error. Retried with
	// backoff.
	AdminAPI Kind = "AdminAPI"

	// ConflictResolved means an AlreadyExists from the admin API was
	// adopted by lookup rather than treated as a failure.
	ConflictResolved Kind = "ConflictResolved"

	// Terminal means a non-recoverable condition. Status set to
	// Errored; long requeue.
	Terminal Kind = "Terminal"
)

// Retryable reports whether a failure of this kind should be retried with
// exponential backoff by the dispatch layer.
func (k Kind) Retryable() bool {
	switch k {
	case KubernetesAPI, AdminAPI:
		return true
	default:
		return false
	}
}

// classifiable is implemented by errors that already know their own Kind.
type classifiable interface {
	ReconcileKind() Kind
}

// specError is a SpecInvalid failure carrying a human-readable reason.
type specError struct{ reason string }

func (e *specError) Error() string       { return e.reason }
func (e *specError) ReconcileKind() Kind { return SpecInvalid }

// NewSpecError wraps a validation failure as a SpecInvalid error.
func NewSpecError(reason string) error {
	return &specError{reason: reason}
}

// terminalError is a Terminal failure carrying a human-readable reason.
type terminalError struct{ reason string }

func (e *terminalError) Error() string       { return e.reason }
func (e *terminalError) ReconcileKind() Kind { return Terminal }

// NewTerminalError wraps a non-recoverable failure as a Terminal error.
func NewTerminalError(reason string) error {
	return &terminalError{reason: reason}
}

// Classify maps err to its reconcile Kind: errors constructed by this
// package report their own kind; Kubernetes API errors are classified by
// apierrors; everything else (including *garageclient.Error) is treated
// as a retryable admin-API failure, the most common case for admin calls.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}
	if c, ok := err.(classifiable); ok {
		return c.ReconcileKind()
	}
	if apierrors.IsConflict(err) || apierrors.IsTimeout(err) || apierrors.IsServerTimeout(err) ||
		apierrors.IsServiceUnavailable(err) || apierrors.IsInternalError(err) {
		return KubernetesAPI
	}
	return AdminAPI
}
