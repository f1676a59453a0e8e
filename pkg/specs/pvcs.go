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

package specs

import (
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

// MetaRole and DataRolePrefix name the storage roles used in claim names,
// labels, and mount paths.
const (
	MetaRole       = "meta"
	DataRolePrefix = "data"
)

// DataRole returns the role name of the i-th data volume.
func DataRole(i int) string {
	return fmt.Sprintf("%s-%d", DataRolePrefix, i)
}

// PVCName returns the name this operator gives a claim it creates for
// garage's given storage role.
func PVCName(garage *v0alpha.Garage, role string) string {
	return garage.Name + "-" + role
}

// MountPath returns the in-container path the given storage role is
// mounted at.
func MountPath(role string) string {
	if role == MetaRole {
		return "/mnt/meta"
	}
	return "/mnt/" + role
}

// RenderPVC builds the PersistentVolumeClaim this operator manages for
// one storage role, when spec does not reference an existing claim.
// Callers must check spec.IsExisting() first.
func RenderPVC(garage *v0alpha.Garage, role string, spec v0alpha.PvcSpec) *corev1.PersistentVolumeClaim {
	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      PVCName(garage, role),
			Namespace: garage.Namespace,
			Labels:    ObjectLabels(garage, role),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.ResourceRequirements{
				Requests: corev1.ResourceList{
					corev1.ResourceStorage: spec.Size,
				},
			},
		},
	}
	if spec.StorageClass != "" {
		pvc.Spec.StorageClassName = &spec.StorageClass
	}
	return pvc
}

// ClaimName returns the name of the PVC a storage role resolves to,
// whether it is an existing claim or one this operator creates.
func ClaimName(garage *v0alpha.Garage, role string, spec v0alpha.PvcSpec) string {
	if spec.IsExisting() {
		return spec.ExistingClaim
	}
	return PVCName(garage, role)
}
