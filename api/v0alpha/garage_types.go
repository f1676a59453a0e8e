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

// GaragePorts lists the four TCP ports a Garage instance listens on.
type GaragePorts struct {
	// Admin is the admin HTTP API port.
	// +kubebuilder:default:=3903
	Admin int32 `json:"admin,omitempty"`

	// RPC is the inter-node RPC port.
	// +kubebuilder:default:=3901
	RPC int32 `json:"rpc,omitempty"`

	// S3API is the S3-compatible API port.
	// +kubebuilder:default:=3900
	S3API int32 `json:"s3Api,omitempty"`

	// S3Web is the static-website-serving port.
	// +kubebuilder:default:=3902
	S3Web int32 `json:"s3Web,omitempty"`
}

// GarageConfig is the subset of Garage's own configuration file that this
// operator manages on the user's behalf.
type GarageConfig struct {
	// Ports the Garage instance listens on.
	// +optional
	Ports GaragePorts `json:"ports,omitempty"`

	// Region is the S3 region name this cluster answers to.
	Region string `json:"region"`

	// ReplicationMode is Garage's replication_mode setting, e.g. "none",
	// "2", "3".
	// +kubebuilder:default:="none"
	ReplicationMode string `json:"replicationMode,omitempty"`
}

// GarageSecrets names the Secrets carrying the admin and rpc bearer
// tokens. Unset fields fall back to the `<name>-admin.key` /
// `<name>-rpc.key` convention in the Garage's own namespace.
type GarageSecrets struct {
	// Admin references the Secret holding the admin API bearer token,
	// under key `token`.
	// +optional
	Admin *NamespacedRef `json:"admin,omitempty"`

	// RPC references the Secret holding the inter-node RPC shared
	// secret, under key `token`.
	// +optional
	RPC *NamespacedRef `json:"rpc,omitempty"`
}

// GarageStorage lists the storage claims backing a Garage instance: one
// metadata volume and one or more data volumes.
type GarageStorage struct {
	// Meta is the volume Garage stores its metadata database on.
	Meta PvcSpec `json:"meta"`

	// Data lists the volumes Garage stores object data on. At least one
	// is required.
	// +kubebuilder:validation:MinItems=1
	Data []PvcSpec `json:"data"`
}

// GarageSpec is the desired state of a Garage cluster.
type GarageSpec struct {
	// AutoLayout, when true, makes the operator submit a one-shot
	// cluster layout assignment once the Deployment becomes ready. When
	// false, the operator leaves layout to be performed out of band.
	// +optional
	AutoLayout bool `json:"autoLayout,omitempty"`

	// Config holds the rendered Garage configuration parameters.
	Config GarageConfig `json:"config"`

	// Secrets names the admin/rpc bearer-token Secrets.
	// +optional
	Secrets GarageSecrets `json:"secrets,omitempty"`

	// Storage lists the meta and data volumes for this instance.
	Storage GarageStorage `json:"storage"`
}

// GarageStatus is the observed state of a Garage cluster.
type GarageStatus struct {
	// State is the current reconciliation phase.
	// +optional
	State State `json:"state,omitempty"`

	// Capacity is the aggregate byte capacity last reported by the
	// admin API's cluster status.
	// +optional
	Capacity int64 `json:"capacity,omitempty"`

	// ObservedGeneration is the generation most recently acted upon.
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// +genclient
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:printcolumn:name="Region",type="string",JSONPath=".spec.config.region"
// +kubebuilder:printcolumn:name="Replication",type="string",JSONPath=".spec.config.replicationMode"
// +kubebuilder:printcolumn:name="Capacity",type="integer",JSONPath=".status.capacity"
// +kubebuilder:printcolumn:name="Status",type="string",JSONPath=".status.state"

// Garage is the Schema for the Garage API: a distributed S3-compatible
// object store cluster.
type Garage struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata"`

	// Specification of the desired state of the cluster.
	Spec GarageSpec `json:"spec"`

	// Most recently observed status of the cluster.
	// +optional
	Status GarageStatus `json:"status,omitempty"`
}

// IsReady reports whether the cluster has converged.
func (g *Garage) IsReady() bool {
	return g != nil && g.Status.State == StateReady
}

// +kubebuilder:object:root=true

// GarageList contains a list of Garage clusters.
type GarageList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Garage `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Garage{}, &GarageList{})
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GaragePorts) DeepCopyInto(out *GaragePorts) { *out = *in }

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageConfig) DeepCopyInto(out *GarageConfig) {
	*out = *in
	out.Ports = in.Ports
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageSecrets) DeepCopyInto(out *GarageSecrets) {
	*out = *in
	if in.Admin != nil {
		out.Admin = in.Admin.DeepCopy()
	}
	if in.RPC != nil {
		out.RPC = in.RPC.DeepCopy()
	}
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageStorage) DeepCopyInto(out *GarageStorage) {
	*out = *in
	in.Meta.DeepCopyInto(&out.Meta)
	if in.Data != nil {
		out.Data = make([]PvcSpec, len(in.Data))
		for i := range in.Data {
			in.Data[i].DeepCopyInto(&out.Data[i])
		}
	}
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageSpec) DeepCopyInto(out *GarageSpec) {
	*out = *in
	in.Config.DeepCopyInto(&out.Config)
	in.Secrets.DeepCopyInto(&out.Secrets)
	in.Storage.DeepCopyInto(&out.Storage)
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageStatus) DeepCopyInto(out *GarageStatus) { *out = *in }

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *Garage) DeepCopyInto(out *Garage) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ObjectMeta.DeepCopyInto(&out.ObjectMeta)
	in.Spec.DeepCopyInto(&out.Spec)
	out.Status = in.Status
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new Garage.
func (in *Garage) DeepCopy() *Garage {
	if in == nil {
		return nil
	}
	out := new(Garage)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *Garage) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}

// DeepCopyInto is an autogenerated deepcopy function, copying the receiver, writing into out. in must be non-nil.
func (in *GarageList) DeepCopyInto(out *GarageList) {
	*out = *in
	out.TypeMeta = in.TypeMeta
	in.ListMeta.DeepCopyInto(&out.ListMeta)
	if in.Items != nil {
		out.Items = make([]Garage, len(in.Items))
		for i := range in.Items {
			in.Items[i].DeepCopyInto(&out.Items[i])
		}
	}
}

// DeepCopy is an autogenerated deepcopy function, copying the receiver, creating a new GarageList.
func (in *GarageList) DeepCopy() *GarageList {
	if in == nil {
		return nil
	}
	out := new(GarageList)
	in.DeepCopyInto(out)
	return out
}

// DeepCopyObject is an autogenerated deepcopy function, copying the receiver, creating a new runtime.Object.
func (in *GarageList) DeepCopyObject() runtime.Object {
	if c := in.DeepCopy(); c != nil {
		return c
	}
	return nil
}
