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
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

const (
	// ContainerName is the name of the single container in the
	// Deployment's pod template.
	ContainerName = "garage"

	configVolumeName = "config"
	configMountPath  = "/etc/garage.toml"
)

// DeploymentName returns the name of the Deployment running a Garage
// instance.
func DeploymentName(garage *v0alpha.Garage) string {
	return garage.Name
}

// Image returns the Garage container image to run, at the given pinned
// version.
func Image(version string) string {
	return "dxflrs/garage:" + version
}

// ImageVersion extracts the version tag from an image built by Image,
// returning the empty string if image is not tagged.
func ImageVersion(image string) string {
	idx := strings.LastIndex(image, ":")
	if idx < 0 {
		return ""
	}
	return image[idx+1:]
}

// RenderDeployment builds the single-replica Deployment running the
// Garage container, mounting the meta/data claims, the config map, and
// projecting the admin/rpc secrets as environment variables.
func RenderDeployment(
	garage *v0alpha.Garage,
	image string,
	adminSecretName, rpcSecretName string,
) *appsv1.Deployment {
	labels := SelectorLabels(garage)
	ports := garage.Spec.Config.Ports

	volumes := []corev1.Volume{
		{
			Name: configVolumeName,
			VolumeSource: corev1.VolumeSource{
				ConfigMap: &corev1.ConfigMapVolumeSource{
					LocalObjectReference: corev1.LocalObjectReference{Name: ConfigMapName(garage)},
				},
			},
		},
		{
			Name: MetaRole,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: ClaimName(garage, MetaRole, garage.Spec.Storage.Meta),
				},
			},
		},
	}
	mounts := []corev1.VolumeMount{
		{Name: configVolumeName, MountPath: configMountPath, SubPath: "garage.toml"},
		{Name: MetaRole, MountPath: MountPath(MetaRole)},
	}

	for i, dataSpec := range garage.Spec.Storage.Data {
		role := DataRole(i)
		volumes = append(volumes, corev1.Volume{
			Name: role,
			VolumeSource: corev1.VolumeSource{
				PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
					ClaimName: ClaimName(garage, role, dataSpec),
				},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: role, MountPath: MountPath(role)})
	}

	env := []corev1.EnvVar{
		{
			Name: "GARAGE_ADMIN_TOKEN",
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: adminSecretName},
					Key:                  "token",
				},
			},
		},
		{
			Name: "GARAGE_RPC_SECRET",
			ValueFrom: &corev1.EnvVarSource{
				SecretKeyRef: &corev1.SecretKeySelector{
					LocalObjectReference: corev1.LocalObjectReference{Name: rpcSecretName},
					Key:                  "token",
				},
			},
		},
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      DeploymentName(garage),
			Namespace: garage.Namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: ptr.To(int32(1)),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  ContainerName,
							Image: image,
							Ports: []corev1.ContainerPort{
								{Name: "admin", ContainerPort: ports.Admin},
								{Name: "rpc", ContainerPort: ports.RPC},
								{Name: "s3api", ContainerPort: ports.S3API},
								{Name: "s3web", ContainerPort: ports.S3Web},
							},
							Env:          env,
							VolumeMounts: mounts,
							Args:         []string{"server"},
						},
					},
					Volumes: volumes,
				},
			},
		},
	}
}
