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

package show

import (
	"context"
	"fmt"

	"github.com/cheynewallace/tabby"
	"github.com/logrusorgru/aurora/v3"
	"github.com/spf13/cobra"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/cli-runtime/pkg/genericclioptions"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
)

// newStatusCmd creates the "show status" subcommand, printing a coloured
// table of every Garage, Bucket and AccessKey in the current namespace (or
// every namespace, with --all-namespaces).
func newStatusCmd(configFlags *genericclioptions.ConfigFlags) *cobra.Command {
	var allNamespaces bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the status of Garage clusters, Buckets and AccessKeys",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, namespace, err := newClient(configFlags)
			if err != nil {
				return err
			}
			listOpts := []client.ListOption{}
			if !allNamespaces {
				listOpts = append(listOpts, client.InNamespace(namespace))
			}
			return printStatus(cmd.Context(), cli, listOpts)
		},
	}

	cmd.Flags().BoolVarP(&allNamespaces, "all-namespaces", "A", false,
		"list resources across every namespace")

	return cmd
}

func newClient(configFlags *genericclioptions.ConfigFlags) (client.Client, string, error) {
	kubeconfig := configFlags.ToRawKubeConfigLoader()

	restConfig, err := kubeconfig.ClientConfig()
	if err != nil {
		return nil, "", err
	}

	scheme := runtime.NewScheme()
	if err := clientgoscheme.AddToScheme(scheme); err != nil {
		return nil, "", err
	}
	if err := v0alpha.AddToScheme(scheme); err != nil {
		return nil, "", err
	}

	cli, err := client.New(restConfig, client.Options{Scheme: scheme})
	if err != nil {
		return nil, "", err
	}

	namespace, _, err := kubeconfig.Namespace()
	if err != nil {
		return nil, "", err
	}

	return cli, namespace, nil
}

func printStatus(ctx context.Context, cli client.Client, listOpts []client.ListOption) error {
	var garages v0alpha.GarageList
	if err := cli.List(ctx, &garages, listOpts...); err != nil {
		return err
	}
	fmt.Println(aurora.Green("Garage clusters"))
	garageTable := tabby.New()
	garageTable.AddHeader("NAMESPACE", "NAME", "STATUS", "CAPACITY (GiB)")
	for _, garage := range garages.Items {
		garageTable.AddLine(garage.Namespace, garage.Name, colorState(garage.Status.State), garage.Status.Capacity>>30)
	}
	garageTable.Print()

	var buckets v0alpha.BucketList
	if err := cli.List(ctx, &buckets, listOpts...); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(aurora.Green("Buckets"))
	bucketTable := tabby.New()
	bucketTable.AddHeader("NAMESPACE", "NAME", "STATUS", "REMOTE ID")
	for _, bucket := range buckets.Items {
		bucketTable.AddLine(bucket.Namespace, bucket.Name, colorState(bucket.Status.State), bucket.Status.ID)
	}
	bucketTable.Print()

	var keys v0alpha.AccessKeyList
	if err := cli.List(ctx, &keys, listOpts...); err != nil {
		return err
	}
	fmt.Println()
	fmt.Println(aurora.Green("Access keys"))
	keyTable := tabby.New()
	keyTable.AddHeader("NAMESPACE", "NAME", "BUCKET", "PERMISSIONS", "STATUS")
	for _, key := range keys.Items {
		keyTable.AddLine(key.Namespace, key.Name, key.Spec.BucketRef.Name, key.Status.PermissionsFriendly, colorState(key.Status.State))
	}
	keyTable.Print()

	return nil
}

func colorState(state v0alpha.State) interface{} {
	switch state {
	case v0alpha.StateReady:
		return aurora.Green(state)
	case v0alpha.StateErrored:
		return aurora.Red(state)
	case "":
		return aurora.Yellow("Unknown")
	default:
		return aurora.Yellow(state)
	}
}
