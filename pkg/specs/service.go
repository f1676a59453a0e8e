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
	"k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

// ServiceName returns the name of the Service exposing a Garage's ports.
func ServiceName(garage *v0alpha.Garage) string {
	return garage.Name
}

// RenderService builds the single Service exposing admin/rpc/s3Api/s3Web
// by name, selecting the Deployment's pods.
func RenderService(garage *v0alpha.Garage) *corev1.Service {
	ports := garage.Spec.Config.Ports
	return &corev1.Service{
		ObjectMeta: v1.ObjectMeta{
			Name:      ServiceName(garage),
			Namespace: garage.Namespace,
			Labels:    ObjectLabels(garage, ""),
		},
		Spec: corev1.ServiceSpec{
			Selector: SelectorLabels(garage),
			Ports: []corev1.ServicePort{
				{Name: "admin", Port: ports.Admin, TargetPort: intstr.FromInt(int(ports.Admin))},
				{Name: "rpc", Port: ports.RPC, TargetPort: intstr.FromInt(int(ports.RPC))},
				{Name: "s3api", Port: ports.S3API, TargetPort: intstr.FromInt(int(ports.S3API))},
				{Name: "s3web", Port: ports.S3Web, TargetPort: intstr.FromInt(int(ports.S3Web))},
			},
		},
	}
}
