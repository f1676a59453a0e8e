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
	"bytes"
	"fmt"

	"github.com/BurntSushi/toml"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

// ConfigMapName returns the name of the ConfigMap holding garage.toml for
// a Garage CR.
func ConfigMapName(garage *v0alpha.Garage) string {
	return garage.Name + "-config"
}

// garageTOML mirrors the subset of Garage's on-disk configuration file
// this operator manages, per spec.md §4.2 step 3.
type garageTOML struct {
	MetadataDir     string   `toml:"metadata_dir"`
	DataDir         []string `toml:"data_dir"`
	ReplicationMode string `toml:"replication_mode"`
	RPCBindAddr     string `toml:"rpc_bind_addr"`
	RPCPublicAddr   string `toml:"rpc_public_addr"`
	RPCSecret       string `toml:"rpc_secret"`

	S3API s3APISection `toml:"s3_api"`
	S3Web s3WebSection `toml:"s3_web"`
	Admin adminSection `toml:"admin"`
}

type s3APISection struct {
	S3Region  string `toml:"s3_region"`
	APIBindAddr string `toml:"api_bind_addr"`
}

type s3WebSection struct {
	BindAddr string `toml:"bind_addr"`
}

type adminSection struct {
	APIBindAddr string `toml:"api_bind_addr"`
	AdminToken  string `toml:"admin_token"`
}

// RenderConfig serializes garage's TOML configuration document given the
// resolved admin/rpc bearer tokens (already read from their Secrets).
func RenderConfig(garage *v0alpha.Garage, adminToken, rpcToken string) (string, error) {
	ports := garage.Spec.Config.Ports
	dataDirs := make([]string, len(garage.Spec.Storage.Data))
	for i := range garage.Spec.Storage.Data {
		dataDirs[i] = MountPath(DataRole(i))
	}

	doc := garageTOML{
		MetadataDir:     MountPath(MetaRole),
		DataDir:         dataDirs,
		ReplicationMode: garage.Spec.Config.ReplicationMode,
		RPCBindAddr:     fmt.Sprintf("[::]:%d", ports.RPC),
		RPCPublicAddr:   fmt.Sprintf("127.0.0.1:%d", ports.RPC),
		RPCSecret:       rpcToken,
		S3API: s3APISection{
			S3Region:    garage.Spec.Config.Region,
			APIBindAddr: fmt.Sprintf("[::]:%d", ports.S3API),
		},
		S3Web: s3WebSection{
			BindAddr: fmt.Sprintf("[::]:%d", ports.S3Web),
		},
		Admin: adminSection{
			APIBindAddr: fmt.Sprintf("[::]:%d", ports.Admin),
			AdminToken:  adminToken,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(doc); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// RenderConfigMap wraps the rendered TOML document in a ConfigMap.
func RenderConfigMap(garage *v0alpha.Garage, adminToken, rpcToken string) (*corev1.ConfigMap, error) {
	body, err := RenderConfig(garage, adminToken, rpcToken)
	if err != nil {
		return nil, err
	}
	return &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ConfigMapName(garage),
			Namespace: garage.Namespace,
			Labels:    ObjectLabels(garage, ""),
		},
		Data: map[string]string{
			"garage.toml": body,
		},
	}, nil
}
