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

// Package specs renders the Kubernetes sub-objects (PersistentVolumeClaim,
// ConfigMap, Service, Deployment, Secret) a Garage reconciler materializes
// from a Garage/AccessKey custom resource, generalizing the teacher's
// pkg/specs builder-function shape (func Render<Kind>(...) *corev1.Kind)
// to the Garage domain.
package specs

import (
	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

const (
	// LabelCluster names the Garage CR a rendered object belongs to.
	LabelCluster = "deuxfleurs.fr/garage"

	// LabelRole further qualifies a rendered object's purpose, e.g.
	// "meta", "data-0".
	LabelRole = "deuxfleurs.fr/role"
)

// SelectorLabels returns the labels a Garage Deployment's pods carry and
// its Service selects on.
func SelectorLabels(garage *v0alpha.Garage) map[string]string {
	return map[string]string{
		LabelCluster: garage.Name,
	}
}

// ObjectLabels returns SelectorLabels plus a role label, applied to every
// object this operator renders for a Garage.
func ObjectLabels(garage *v0alpha.Garage, role string) map[string]string {
	labels := SelectorLabels(garage)
	if role != "" {
		labels[LabelRole] = role
	}
	return labels
}
