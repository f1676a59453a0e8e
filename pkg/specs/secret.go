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
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

// RenderAccessKeySecret builds the Opaque Secret an AccessKey's one-time
// credential pair is materialized into.
func RenderAccessKeySecret(
	name, namespace string,
	accessKeyID, secretAccessKey string,
) *corev1.Secret {
	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			"accessKeyId":     []byte(accessKeyID),
			"secretAccessKey": []byte(secretAccessKey),
		},
	}
}

// GarageDefaultSecretName returns the default Secret name for a Garage's
// admin/rpc bearer token when spec.secrets leaves it unset.
func GarageDefaultSecretName(garage *v0alpha.Garage, role string) string {
	return garage.Name + "-" + role + ".key"
}
