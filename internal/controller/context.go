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

package controller

import (
	"time"

	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/simple-rack/garage-operator/internal/metrics"
	"github.com/simple-rack/garage-operator/internal/observability"
	"github.com/simple-rack/garage-operator/pkg/garageclient"
)

// SharedContext bundles everything all three reconcilers need and that
// isn't specific to one CR kind, the way the teacher's ClusterReconciler
// is itself built once and handed a DiscoveryClient/Scheme/Recorder. It is
// built once in internal/cmd/manager/controller and injected into the
// Garage, Bucket and AccessKey reconcilers.
type SharedContext struct {
	client.Client

	// Scheme is the runtime Scheme used to set owner references and
	// type-check rendered objects, mirroring ClusterReconciler's own
	// Scheme field.
	Scheme *runtime.Scheme

	// AdminClientFactory builds a garageclient.API for a resolved
	// baseURL/token pair. Tests substitute a factory returning a fake.
	AdminClientFactory garageclient.Factory

	// Recorder emits the Kubernetes Events every successful state
	// transition and every surfaced error produces, per spec.md §4.1 and
	// §7's "no logs-only errors" policy.
	Recorder record.EventRecorder

	// StartedAt is the process-start instant, exposed for diagnostics.
	StartedAt time.Time

	// Metrics is the process-wide, dedicated-registry metric set.
	Metrics *metrics.Set

	// Snapshot is the mutex-guarded state reported on the HTTP surface.
	Snapshot *observability.Snapshot
}

// NewSharedContext builds a SharedContext ready to inject into reconcilers.
func NewSharedContext(
	cli client.Client,
	scheme *runtime.Scheme,
	adminFactory garageclient.Factory,
	recorder record.EventRecorder,
	metricSet *metrics.Set,
	snapshot *observability.Snapshot,
) *SharedContext {
	return &SharedContext{
		Client:             cli,
		Scheme:             scheme,
		AdminClientFactory: adminFactory,
		Recorder:           recorder,
		StartedAt:          time.Now(),
		Metrics:            metricSet,
		Snapshot:           snapshot,
	}
}
