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
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// BucketFinalizerName is added to every Bucket so the operator can remove
// the remote bucket from Garage before the Kubernetes object disappears.
const BucketFinalizerName = "buckets.deuxfleurs.fr/cleanup"

// BucketQuotas mirrors the quota fields Garage accepts on a bucket.
type BucketQuotas struct {
	// MaxObjectCount caps the number of objects the bucket may hold.
	// +optional
	MaxObjectCount *uint64 `json:"maxObjectCount,omitempty"`

	// MaxSize caps the bucket's total object size.
	// +optional
	MaxSize *resource.Quantity `json:"maxSize,omitempty"`
}

// Validate rejects a negative MaxSize. resource.Quantity parses "-5Mi"
// without complaint since sign isn't a syntax error; a quota this operator
// pushes to the admin API still must not request a negative size cap.
func (q BucketQuotas) Validate() error {
	if q.MaxSize != nil && q.MaxSize.Sign() < 0 {
		return fmt.Errorf("maxSize %s must not be negative", q.MaxSize.String())
	}
	return nil
}

// BucketSpec is the desired state of a Bucket.
type BucketSpec struct {
	// GarageRef names the Garage cluster this bucket belongs to.
	GarageRef NamespacedRef `json:"garageRef"`

	// Quotas bounds this bucket's size/object count. A nil field leaves
	// that quota unset (unlimited) in Garage.
	// +optional
	Quotas BucketQuotas `json:"quotas,omitempty"`
}

// BucketStatus is the observed state of a Bucket.
type BucketStatus struct {
	// ID is the remote Garage bucket identifier. Immutable once set.
	// +optional
	ID string `json:"id,omitempty"`

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
// +kubebuilder:printcolumn:name="Garage",type="string",JSONPath=".spec.garageRef.name"
// +kubebuilder:printcolumn:name="Status",type="string",JSONPath=".status.state"

// Bucket is the Schema for the Bucket API: a logical bucket inside a
// referenced Garage cluster.
type Bucket struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	Spec BucketSpec `json:"spec"`
	// +optional
	Status BucketStatus `json:"status,omitempty"`
}

// IsReady reports whether the bucket has converged.
func (b *Bucket) IsReady() bool {
	return b != nil && b.Status.State == StateReady
}

// GlobalAlias is the alias this operator registers the bucket under in
// Garage: `<namespace>.<name>`.
func (b *Bucket) GlobalAlias() string {
	return b.Namespace + "." + b.Name
}

// +kubebuilder:object:root=true

// BucketList contains a list of Buckets.
type BucketList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Bucket `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Bucket{}, &BucketList{})
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *BucketQuotas) DeepCopyInto(out *BucketQuotas) {
	*out = *in
	if in.MaxObjectCount != nil {
		v := *in.MaxObjectCount
		out.MaxObjectCount = &v
	}
	if in.MaxSize != nil {
		q := in.MaxSize.DeepCopy()
		out.MaxSize = &q
	}
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *BucketSpec) DeepCopyInto(out *BucketSpec) {
	*out = *in
	out.GarageRef = in.GarageRef
	in.Quotas.DeepCopyInto(&out.Quotas)
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *BucketStatus) DeepCopyInto(out *BucketStatus) { *out = *in }

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *Bucket) DeepCopyInto(out *Bucket) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new Bucket.
func (in *Bucket) DeepCopy() *Bucket {
	if in == nil {
		return nil
	}
	out := new(Bucket)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *Bucket) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *BucketList) DeepCopyInto(out *BucketList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]Bucket, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new BucketList.
func (in *BucketList) DeepCopy() *BucketList {
	if in == nil {
		return nil
	}
	out := new(BucketList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *BucketList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
