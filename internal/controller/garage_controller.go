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
	"context"
	"fmt"
	"time"

	"dario.cat/mergo"
	"github.com/hashicorp/go-multierror"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/manager"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"
	"github.com/simple-rack/garage-operator/internal/observability"
	"github.com/simple-rack/garage-operator/pkg/garageclient"
	"github.com/simple-rack/garage-operator/pkg/management/log"
	"github.com/simple-rack/garage-operator/pkg/specs"
)

// fieldManager is the identity this operator claims field ownership under
// on every server-side apply.
const fieldManager = "garage-operator"

var defaultGarageConfig = v0alpha.GarageConfig{
	Ports: v0alpha.GaragePorts{Admin: 3903, RPC: 3901, S3API: 3900, S3Web: 3902},
	ReplicationMode: "none",
}

// GarageReconciler reconciles Garage objects: it materializes a running
// Garage Deployment from spec and then performs one-shot cluster layout
// against the admin API, generalizing the teacher's ClusterReconciler.
type GarageReconciler struct {
	*SharedContext
}

// NewGarageReconciler builds a GarageReconciler sharing shared.
func NewGarageReconciler(shared *SharedContext) *GarageReconciler {
	return &GarageReconciler{SharedContext: shared}
}

// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=garages,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=garages/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=apps,resources=deployments,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=services;configmaps;persistentvolumeclaims,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create

// Reconcile drives one Garage CR towards its declared state.
func (r *GarageReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	contextLogger := log.FromContext(ctx).WithName("garage")
	start := time.Now()

	var garage v0alpha.Garage
	if err := r.Get(ctx, req.NamespacedName, &garage); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	result, err := r.reconcile(ctx, &garage)
	r.Metrics.ObserveReconcile("Garage", garage.Namespace, start, err)
	r.Snapshot.RecordGarage(req.String(), observability.Entry{
		Name:               garage.Name,
		Namespace:          garage.Namespace,
		ObservedGeneration: garage.Generation,
		LastError:          errString(err),
	})

	if err != nil {
		contextLogger.Error(err, "reconcile failed")
		r.Recorder.Event(&garage, corev1.EventTypeWarning, "ReconcileFailed", err.Error())
		if kind := Classify(err); !kind.Retryable() {
			return ctrl.Result{RequeueAfter: configuration.DefaultSteadyStateRequeue}, nil
		}
	}
	return result, err
}

func (r *GarageReconciler) reconcile(ctx context.Context, garage *v0alpha.Garage) (ctrl.Result, error) {
	effectiveConfig := garage.Spec.Config
	if err := mergo.Merge(&effectiveConfig, defaultGarageConfig); err != nil {
		return ctrl.Result{}, NewTerminalError(fmt.Sprintf("merging config defaults: %v", err))
	}
	garage.Spec.Config = effectiveConfig

	adminRef := garage.Spec.Secrets.Admin
	if adminRef == nil {
		adminRef = &v0alpha.NamespacedRef{Name: specs.GarageDefaultSecretName(garage, "admin")}
	}
	rpcRef := garage.Spec.Secrets.RPC
	if rpcRef == nil {
		rpcRef = &v0alpha.NamespacedRef{Name: specs.GarageDefaultSecretName(garage, "rpc")}
	}
	adminToken, err := r.resolveSecretToken(ctx, *adminRef, garage.Namespace)
	if err != nil {
		return r.errored(ctx, garage, err)
	}
	rpcToken, err := r.resolveSecretToken(ctx, *rpcRef, garage.Namespace)
	if err != nil {
		return r.errored(ctx, garage, err)
	}

	if err := r.applyStorage(ctx, garage); err != nil {
		return r.errored(ctx, garage, err)
	}

	configMap, err := specs.RenderConfigMap(garage, adminToken, rpcToken)
	if err != nil {
		return r.errored(ctx, garage, NewTerminalError(fmt.Sprintf("rendering config: %v", err)))
	}
	if err := r.serverSideApply(ctx, garage, configMap); err != nil {
		return r.errored(ctx, garage, err)
	}

	service := specs.RenderService(garage)
	if err := r.serverSideApply(ctx, garage, service); err != nil {
		return r.errored(ctx, garage, err)
	}

	adminSecretName := adminRef.NamespacedName(garage.Namespace).Name
	rpcSecretName := rpcRef.NamespacedName(garage.Namespace).Name
	image := specs.Image(configuration.Current.GarageVersion)

	var priorDeployment appsv1.Deployment
	if err := r.Get(ctx, types.NamespacedName{Namespace: garage.Namespace, Name: specs.DeploymentName(garage)}, &priorDeployment); err == nil && len(priorDeployment.Spec.Template.Spec.Containers) > 0 {
		if runningImage := priorDeployment.Spec.Template.Spec.Containers[0].Image; runningImage != "" && runningImage != image {
			if major, err := configuration.IsMajorUpgrade(specs.ImageVersion(runningImage), configuration.Current.GarageVersion); err != nil {
				r.Recorder.Eventf(garage, corev1.EventTypeWarning, "VersionCheckFailed", "could not compare running and configured Garage versions: %v", err)
			} else if major {
				return r.errored(ctx, garage, NewTerminalError(fmt.Sprintf(
					"refusing in-place major version change from %s to %s; Garage does not support rolling major upgrades",
					runningImage, image)))
			}
		}
	} else if !apierrors.IsNotFound(err) {
		return r.errored(ctx, garage, err)
	}

	deployment := specs.RenderDeployment(garage, image, adminSecretName, rpcSecretName)
	if err := r.serverSideApply(ctx, garage, deployment); err != nil {
		return r.errored(ctx, garage, err)
	}

	var observedDeployment appsv1.Deployment
	if err := r.Get(ctx, types.NamespacedName{Namespace: garage.Namespace, Name: deployment.Name}, &observedDeployment); err != nil {
		return r.errored(ctx, garage, err)
	}
	if observedDeployment.Status.ReadyReplicas < 1 {
		if err := r.patchStatus(ctx, garage, func() {
			garage.Status.State = v0alpha.StateCreating
			garage.Status.ObservedGeneration = garage.Generation
		}); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: configuration.DefaultProbeRequeue}, nil
	}

	admin := r.AdminClientFactory(adminBaseURL(garage), adminToken)
	if err := r.layout(ctx, garage, admin); err != nil {
		return r.errored(ctx, garage, err)
	}

	cluster, err := admin.GetCluster(ctx)
	if err != nil {
		return r.errored(ctx, garage, err)
	}

	if err := r.patchStatus(ctx, garage, func() {
		garage.Status.State = v0alpha.StateReady
		garage.Status.Capacity = cluster.Capacity
		garage.Status.ObservedGeneration = garage.Generation
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Event(garage, corev1.EventTypeNormal, "Ready", "Garage cluster converged")
	return ctrl.Result{RequeueAfter: configuration.DefaultSteadyStateRequeue}, nil
}

// layout performs the one-shot cluster topology assignment, skipped
// entirely when spec.autoLayout is false, per spec.md §4.2 step 8.
func (r *GarageReconciler) layout(ctx context.Context, garage *v0alpha.Garage, admin garageclient.API) error {
	if !garage.Spec.AutoLayout {
		return nil
	}

	status, err := admin.GetStatus(ctx)
	if err != nil {
		return err
	}
	if status.LayoutVersion > 0 {
		return nil
	}

	if err := r.patchStatus(ctx, garage, func() {
		garage.Status.State = v0alpha.StateLayingOut
		garage.Status.ObservedGeneration = garage.Generation
	}); err != nil {
		return err
	}

	assignments := make([]garageclient.LayoutAssignment, 0, len(status.Nodes))
	var assignmentErrs error
	for _, node := range status.Nodes {
		capacity, err := bytesToGiB(node.FreeMetaCapacity)
		if err != nil {
			assignmentErrs = multierror.Append(assignmentErrs, fmt.Errorf("node %s: %w", node.ID, err))
			continue
		}
		assignments = append(assignments, garageclient.LayoutAssignment{
			NodeID:   node.ID,
			Zone:     garage.Namespace,
			Capacity: capacity,
			Tags:     []string{},
		})
	}
	if assignmentErrs != nil {
		return NewTerminalError(assignmentErrs.Error())
	}

	_, err = admin.ApplyLayout(ctx, garageclient.ApplyLayoutRequest{
		Assignments: assignments,
		Version:     status.LayoutVersion + 1,
	})
	return err
}

// bytesToGiB rounds a byte count down to whole gibibytes, the unit Garage's
// layout assignment expects capacities in.
func bytesToGiB(bytes int64) (int64, error) {
	const gib = 1 << 30
	if bytes < 0 {
		return 0, fmt.Errorf("negative free capacity %d", bytes)
	}
	return bytes / gib, nil
}

func adminBaseURL(garage *v0alpha.Garage) string {
	return fmt.Sprintf("http://%s.%s.svc:%d", specs.ServiceName(garage), garage.Namespace, garage.Spec.Config.Ports.Admin)
}

func (r *GarageReconciler) applyStorage(ctx context.Context, garage *v0alpha.Garage) error {
	roles := make(map[string]v0alpha.PvcSpec, 1+len(garage.Spec.Storage.Data))
	roles[specs.MetaRole] = garage.Spec.Storage.Meta
	for i, dataSpec := range garage.Spec.Storage.Data {
		roles[specs.DataRole(i)] = dataSpec
	}

	for role, pvcSpec := range roles {
		if pvcSpec.IsExisting() {
			continue
		}
		if err := pvcSpec.Validate(); err != nil {
			return NewSpecError(fmt.Sprintf("storage role %s: %v", role, err))
		}
		pvc := specs.RenderPVC(garage, role, pvcSpec)
		if err := r.serverSideApply(ctx, garage, pvc); err != nil {
			return err
		}
	}
	return nil
}

// serverSideApply patches obj as the force-owning field manager, setting
// an owner reference to garage first, mirroring spec.md §4.2 step 6.
func (r *GarageReconciler) serverSideApply(ctx context.Context, garage *v0alpha.Garage, obj client.Object) error {
	if err := controllerutil.SetControllerReference(garage, obj, r.Scheme); err != nil {
		return NewTerminalError(fmt.Sprintf("setting owner reference: %v", err))
	}
	obj.SetManagedFields(nil)
	return r.Patch(ctx, obj, client.Apply, client.FieldOwner(fieldManager), client.ForceOwnership)
}

func (r *GarageReconciler) errored(ctx context.Context, garage *v0alpha.Garage, cause error) (ctrl.Result, error) {
	if err := r.patchStatus(ctx, garage, func() {
		garage.Status.State = v0alpha.StateErrored
		garage.Status.ObservedGeneration = garage.Generation
	}); err != nil {
		return ctrl.Result{}, err
	}
	if Classify(cause) == DependencyNotReady {
		return ctrl.Result{RequeueAfter: configuration.DefaultDependencyRequeue}, nil
	}
	return ctrl.Result{}, cause
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// SetupWithManager wires the Garage reconciler into mgr, watching its
// owned workload kinds the way ClusterReconciler.SetupWithManager does.
func (r *GarageReconciler) SetupWithManager(mgr manager.Manager, maxConcurrentReconciles int) error {
	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrentReconciles, RateLimiter: defaultRateLimiter()}).
		For(&v0alpha.Garage{}).
		Owns(&appsv1.Deployment{}).
		Owns(&corev1.Service{}).
		Owns(&corev1.ConfigMap{}).
		Owns(&corev1.PersistentVolumeClaim{}).
		Complete(r)
}
