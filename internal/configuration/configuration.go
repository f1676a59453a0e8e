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

// Package configuration contains the process-wide configuration of the
// operator, read from environment variables and optionally overlaid with a
// ConfigMap/Secret.
package configuration

import (
	"fmt"
	"strings"
	"time"

	"github.com/blang/semver"

	"github.com/simple-rack/garage-operator/pkg/configparser"
)

const (
	// DefaultGarageVersion is the default of Data.GarageVersion, the
	// container image tag used for every Garage workload unless
	// GARAGE_VERSION overrides it.
	DefaultGarageVersion = "v1.0.1"

	// DefaultSteadyStateRequeue is how long a reconciler waits after a
	// successful reconcile before running again.
	DefaultSteadyStateRequeue = 30 * time.Minute

	// DefaultDependencyRequeue is how long Bucket/AccessKey wait before
	// re-checking a not-yet-Ready dependency.
	DefaultDependencyRequeue = 30 * time.Second

	// DefaultProbeRequeue is how often the Garage reconciler polls
	// Deployment readiness while Creating.
	DefaultProbeRequeue = 7 * time.Second

	// DefaultBackoffBase is the starting delay of the exponential
	// backoff requeue issued after a reconcile error.
	DefaultBackoffBase = time.Second

	// DefaultBackoffCap bounds the exponential backoff requeue delay.
	DefaultBackoffCap = 5 * time.Minute
)

// Data is the struct containing the operator's process-wide configuration.
// Code should use the "Current" package variable.
type Data struct {
	// WatchNamespace restricts the operator to a single namespace when
	// set. Empty means watch every namespace.
	WatchNamespace string `json:"watchNamespace" env:"WATCH_NAMESPACE"`

	// GarageVersion is the container image tag used for the Garage
	// workload. Overridden per-Garage by spec in a future API version;
	// v0alpha always uses this process-wide value.
	GarageVersion string `json:"garageVersion" env:"GARAGE_VERSION"`

	// LogLevel is a comma-separated list of zap logging directives,
	// e.g. "info" or "debug,garageclient=error".
	LogLevel string `json:"logLevel" env:"LOG_LEVEL"`

	// OpenTelemetryEndpointURL is the OTLP exporter target. Wiring the
	// exporter itself is an external collaborator per spec.md §1; the
	// operator only reads the value into this field.
	OpenTelemetryEndpointURL string `json:"openTelemetryEndpointURL" env:"OPENTELEMETRY_ENDPOINT_URL"`

	// MetricsBindAddress holds the METRICS_BIND_ADDRESS value. The
	// /health, /metrics and / HTTP surface does not read it; it binds to
	// the controller command's --metrics-bind-address flag.
	MetricsBindAddress string `json:"metricsBindAddress" env:"METRICS_BIND_ADDRESS"`
}

// Current is the configuration used by the operator process.
var Current = NewConfiguration()

func newDefaultConfig() *Data {
	return &Data{
		GarageVersion:      DefaultGarageVersion,
		LogLevel:           "info",
		MetricsBindAddress: ":8080",
	}
}

// NewConfiguration creates a new configuration by reading the process
// environment over the compiled-in defaults.
func NewConfiguration() *Data {
	config := newDefaultConfig()
	config.ReadConfigMap(nil)
	return config
}

// ReadConfigMap reads the configuration from the environment, overlaid by
// the passed-in ConfigMap/Secret data map.
func (config *Data) ReadConfigMap(data map[string]string) {
	configparser.ReadConfigMap(config, newDefaultConfig(), data, configparser.OsEnvironment{})
}

// WatchedNamespaces returns the list of namespaces to watch, or an empty
// slice when every namespace should be watched.
func (config *Data) WatchedNamespaces() []string {
	if config.WatchNamespace == "" {
		return nil
	}
	return []string{config.WatchNamespace}
}

// ParsedGarageVersion validates GarageVersion as a semantic version, tolerating
// the leading "v" Garage's release tags use. An operator shipping a malformed
// GARAGE_VERSION should fail fast at startup rather than let every Garage
// reconcile render a Deployment pinned to a bogus tag.
func (config *Data) ParsedGarageVersion() (semver.Version, error) {
	version, err := semver.ParseTolerant(config.GarageVersion)
	if err != nil {
		return semver.Version{}, fmt.Errorf("invalid GARAGE_VERSION %q: %w", config.GarageVersion, err)
	}
	return version, nil
}

// IsMajorUpgrade reports whether moving from current to target crosses a
// major version boundary, which Garage does not support as a rolling
// in-place image swap.
func IsMajorUpgrade(current, target string) (bool, error) {
	currentVersion, err := semver.ParseTolerant(strings.TrimSpace(current))
	if err != nil {
		return false, fmt.Errorf("invalid current version %q: %w", current, err)
	}
	targetVersion, err := semver.ParseTolerant(strings.TrimSpace(target))
	if err != nil {
		return false, fmt.Errorf("invalid target version %q: %w", target, err)
	}
	return targetVersion.Major != currentVersion.Major, nil
}
