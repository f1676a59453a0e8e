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

package v0alpha

import (
	"fmt"

	"k8s.io/apimachinery/pkg/api/resource"
	"k8s.io/apimachinery/pkg/types"
)

// NamespacedRef is a reference to an object in a (possibly different)
// namespace of the same Kubernetes cluster.
type NamespacedRef struct {
	// Name of the referenced object
	Name string `json:"name"`

	// Namespace of the referenced object. Defaults to the referencing
	// object's own namespace when empty.
	// +optional
	Namespace string `json:"namespace,omitempty"`
}

// NamespacedName resolves this reference against a default namespace, used
// when Namespace is left empty.
func (r NamespacedRef) NamespacedName(defaultNamespace string) types.NamespacedName {
	namespace := r.Namespace
	if namespace == "" {
		namespace = defaultNamespace
	}
	return types.NamespacedName{Namespace: namespace, Name: r.Name}
}

// State is the reconciliation phase reported on the status of every
// resource kind managed by this operator.
type State string

const (
	// StateCreating is the initial state: either the resource's
	// dependencies aren't ready yet, or the resource's remote/workload
	// objects haven't been materialized.
	StateCreating State = "Creating"

	// StateLayingOut is used only by Garage: the Deployment is ready and
	// the operator is submitting the cluster layout.
	StateLayingOut State = "LayingOut"

	// StateConfiguring is a Bucket/AccessKey state that no reconciler
	// sets: both go from Creating straight to Ready or Errored, with
	// quotas and permissions reconciled in the same pass.
	StateConfiguring State = "Configuring"

	// StateReady means the resource fully matches its declared spec.
	StateReady State = "Ready"

	// StateErrored means the last reconcile failed; see the Kubernetes
	// Event attached to the resource for the reason.
	StateErrored State = "Errored"
)

// PvcSpec describes a storage volume that is either an existing claim the
// user has already created, or a request for the operator to create one.
type PvcSpec struct {
	// ExistingClaim names a PersistentVolumeClaim, in the same namespace
	// as the owning Garage, that already exists. When set, the operator
	// does not create or manage the claim's lifecycle.
	// +optional
	ExistingClaim string `json:"existingClaim,omitempty"`

	// Size is the requested capacity of the claim the operator should
	// create. Required when ExistingClaim is empty.
	// +optional
	Size resource.Quantity `json:"size,omitempty"`

	// StorageClass is the storage class of the claim the operator should
	// create. Empty means the cluster default storage class.
	// +optional
	StorageClass string `json:"storageClass,omitempty"`
}

// IsExisting reports whether this PvcSpec references an already-existing
// claim rather than requesting the operator to create one.
func (p PvcSpec) IsExisting() bool {
	return p.ExistingClaim != ""
}

// Validate rejects a negative Size. resource.Quantity parses "-5Mi" without
// complaint since sign isn't a syntax error; a claim the operator is asked
// to create still must not request negative capacity.
func (p PvcSpec) Validate() error {
	if p.IsExisting() {
		return nil
	}
	if p.Size.Sign() < 0 {
		return fmt.Errorf("size %s must not be negative", p.Size.String())
	}
	return nil
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (p *PvcSpec) DeepCopyInto(out *PvcSpec) {
	*out = *p
	out.Size = p.Size.DeepCopy()
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new PvcSpec.
func (p *PvcSpec) DeepCopy() *PvcSpec {
	if p == nil {
		return nil
	}
	out := new(PvcSpec)
	p.DeepCopyInto(out)
	return out
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (r *NamespacedRef) DeepCopyInto(out *NamespacedRef) {
	*out = *r
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new NamespacedRef.
func (r *NamespacedRef) DeepCopy() *NamespacedRef {
	if r == nil {
		return nil
	}
	out := new(NamespacedRef)
	r.DeepCopyInto(out)
	return out
}
