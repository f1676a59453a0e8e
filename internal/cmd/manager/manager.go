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

// Package manager contains the common behaviors of the manager subcommand.
package manager

import (
	"github.com/spf13/pflag"
	"k8s.io/klog/v2"
	ctrl "sigs.k8s.io/controller-runtime"

	"github.com/simple-rack/garage-operator/internal/configuration"
	mlog "github.com/simple-rack/garage-operator/pkg/management/log"
)

// Flags contains the set of values necessary for configuring the manager's
// logging before any subcommand runs.
type Flags struct {
	logLevel string
}

// AddFlags binds manager configuration flags to flags.
func (l *Flags) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&l.logLevel, "log-level", configuration.Current.LogLevel,
		"the desired log level, one of error, warning, info and debug")
}

// ConfigureLogging builds the zap-backed logr.Logger honoring the flags
// passed by the user and installs it as the logger every package in the
// process logs through.
func (l *Flags) ConfigureLogging() {
	logger := mlog.NewZapLogger(l.logLevel)

	ctrl.SetLogger(logger)
	klog.SetLogger(logger)
	mlog.SetLogger(logger)
}
