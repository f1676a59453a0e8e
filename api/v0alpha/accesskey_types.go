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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// AccessKeyFinalizerName is added to every AccessKey so the operator can
// revoke permissions and delete the remote key before the Kubernetes object
// disappears.
const AccessKeyFinalizerName = "accesskeys.deuxfleurs.fr/cleanup"

// AccessKeyPermissions is the desired (read, write, owner) triple for an
// AccessKey against its bucket.
type AccessKeyPermissions struct {
	// +optional
	Read bool `json:"read,omitempty"`
	// +optional
	Write bool `json:"write,omitempty"`
	// +optional
	Owner bool `json:"owner,omitempty"`
}

// Friendly renders the permission triple as a three-character projection:
// `R`/`-`, `W`/`-`, `O`/`-`.
func (p AccessKeyPermissions) Friendly() string {
	flag := func(set bool, letter byte) byte {
		if set {
			return letter
		}
		return '-'
	}
	return string([]byte{
		flag(p.Read, 'R'),
		flag(p.Write, 'W'),
		flag(p.Owner, 'O'),
	})
}

// AccessKeySpec is the desired state of an AccessKey.
type AccessKeySpec struct {
	// GarageRef names the Garage cluster the key is provisioned against.
	GarageRef NamespacedRef `json:"garageRef"`

	// BucketRef names the Bucket the key grants access to.
	BucketRef NamespacedRef `json:"bucketRef"`

	// Permissions are the desired access flags on BucketRef.
	// +optional
	Permissions AccessKeyPermissions `json:"permissions,omitempty"`

	// SecretRef names the Secret the operator materializes the
	// credential pair into. Defaults to `<name>.<bucket>.<garage>.key`
	// in this AccessKey's namespace.
	// +optional
	SecretRef *NamespacedRef `json:"secretRef,omitempty"`
}

// AccessKeyStatus is the observed state of an AccessKey.
type AccessKeyStatus struct {
	// ID is the remote Garage access key ID. Immutable once set.
	// +optional
	ID string `json:"id,omitempty"`

	// PermissionsFriendly is the derived "RWO"-style projection of
	// spec.permissions, recomputed every reconcile.
	// +optional
	PermissionsFriendly string `json:"permissionsFriendly,omitempty"`

	// State is the current reconciliation phase.
	// +optional
	State State `json:"state,omitempty"`

	// ObservedGeneration is the generation most recently acted upon.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Bucket",type="string",JSONPath=".spec.bucketRef.name"
// +kubebuilder:printcolumn:name="Permissions",type="string",JSONPath=".status.permissionsFriendly"
// +kubebuilder:printcolumn:name="Status",type="string",JSONPath=".status.state"

// AccessKey is the Schema for the AccessKey API: an S3 credential scoped to
// a single Bucket.
type AccessKey struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec AccessKeySpec `json:"spec"`
	// +optional
	Status AccessKeyStatus `json:"status,omitempty"`
}

// IsReady reports whether the key has converged.
func (k *AccessKey) IsReady() bool {
	return k != nil && k.Status.State == StateReady
}

// DefaultSecretName is the Secret name used when spec.secretRef is unset.
func (k *AccessKey) DefaultSecretName() string {
	return k.Name + "." + k.Spec.BucketRef.Name + "." + k.Spec.GarageRef.Name + ".key"
}

// ResolvedSecretRef returns the effective secretRef, applying defaults for
// an unset name and/or namespace.
func (k *AccessKey) ResolvedSecretRef() NamespacedRef {
	if k.Spec.SecretRef == nil {
		return NamespacedRef{Name: k.DefaultSecretName(), Namespace: k.Namespace}
	}
	ref := *k.Spec.SecretRef
	if ref.Name == "" {
		ref.Name = k.DefaultSecretName()
	}
	if ref.Namespace == "" {
		ref.Namespace = k.Namespace
	}
	return ref
}

// +kubebuilder:object:root=true

// AccessKeyList contains a list of AccessKeys.
type AccessKeyList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []AccessKey `json:"items"`
}

func init() {
	SchemeBuilder.Register(&AccessKey{}, &AccessKeyList{})
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AccessKeyPermissions) DeepCopyInto(out *AccessKeyPermissions) { *out = *in }

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AccessKeySpec) DeepCopyInto(out *AccessKeySpec) {
	*out = *in
	out.GarageRef = in.GarageRef
	out.BucketRef = in.BucketRef
	out.Permissions = in.Permissions
	if in.SecretRef != nil {
		out.SecretRef = in.SecretRef.DeepCopy()
	}
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AccessKeyStatus) DeepCopyInto(out *AccessKeyStatus) { *out = *in }

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AccessKey) DeepCopyInto(out *AccessKey) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new AccessKey.
func (in *AccessKey) DeepCopy() *AccessKey {
	if in == nil {
		return nil
	}
	out := new(AccessKey)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *AccessKey) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *AccessKeyList) DeepCopyInto(out *AccessKeyList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]AccessKey, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new AccessKeyList.
func (in *AccessKeyList) DeepCopy() *AccessKeyList {
	if in == nil {
		return nil
	}
	out := new(AccessKeyList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *AccessKeyList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
