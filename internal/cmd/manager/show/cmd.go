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

// Package show implements the show command subfeatures.
package show

import (
	"github.com/spf13/cobra"
	"k8s.io/cli-runtime/pkg/genericclioptions"
)

// NewCmd creates the new cobra command.
func NewCmd() *cobra.Command {
	configFlags := genericclioptions.NewConfigFlags(true)

	cmd := cobra.Command{
		Use:           "show [cmd]",
		Short:         "Useful data printing subfeature",
		SilenceErrors: true,
	}

	configFlags.AddFlags(cmd.PersistentFlags())
	cmd.AddCommand(newStatusCmd(configFlags))

	return &cmd
}
