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
	"time"

	"github.com/google/go-cmp/cmp"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/source"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"
	"github.com/simple-rack/garage-operator/internal/observability"
	"github.com/simple-rack/garage-operator/pkg/garageclient"
	"github.com/simple-rack/garage-operator/pkg/management/log"
)

// BucketReconciler reconciles Bucket objects against their referenced
// Garage cluster's admin API, generalizing the teacher's backup_controller
// shape (dependency pre-check, finalizer-driven remote cleanup) to a
// resource whose lifetime is bound to a remote, not a workload, object.
type BucketReconciler struct {
	*SharedContext
}

// NewBucketReconciler builds a BucketReconciler sharing shared.
func NewBucketReconciler(shared *SharedContext) *BucketReconciler {
	return &BucketReconciler{SharedContext: shared}
}

// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=buckets,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=buckets/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=garages,verbs=get;list;watch

// Reconcile drives one Bucket CR towards its declared state.
func (r *BucketReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	contextLogger := log.FromContext(ctx).WithName("bucket")
	start := time.Now()

	var bucket v0alpha.Bucket
	if err := r.Get(ctx, req.NamespacedName, &bucket); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	result, err := r.reconcile(ctx, &bucket)
	r.Metrics.ObserveReconcile("Bucket", bucket.Namespace, start, err)
	r.Snapshot.RecordBucket(req.String(), observability.Entry{
		Name:               bucket.Name,
		Namespace:          bucket.Namespace,
		ObservedGeneration: bucket.Generation,
		LastError:          errString(err),
	})

	if err != nil {
		contextLogger.Error(err, "reconcile failed")
		r.Recorder.Event(&bucket, corev1.EventTypeWarning, "ReconcileFailed", err.Error())
	}
	return result, err
}

func (r *BucketReconciler) reconcile(ctx context.Context, bucket *v0alpha.Bucket) (ctrl.Result, error) {
	garage, err := r.resolveGarage(ctx, bucket.Spec.GarageRef, bucket.Namespace)
	if err != nil && Classify(err) != DependencyNotReady {
		return ctrl.Result{}, err
	}
	if garage == nil || !garage.IsReady() {
		if !bucket.DeletionTimestamp.IsZero() {
			return ctrl.Result{}, r.removeFinalizer(ctx, bucket, v0alpha.BucketFinalizerName)
		}
		if statusErr := r.patchStatus(ctx, bucket, func() {
			bucket.Status.State = v0alpha.StateCreating
			bucket.Status.ObservedGeneration = bucket.Generation
		}); statusErr != nil {
			return ctrl.Result{}, statusErr
		}
		return ctrl.Result{RequeueAfter: configuration.DefaultDependencyRequeue}, nil
	}

	adminToken, err := r.garageAdminToken(ctx, garage)
	if err != nil {
		return r.erroredBucket(ctx, bucket, err)
	}
	admin := r.AdminClientFactory(adminBaseURLForGarage(garage), adminToken)

	if !bucket.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, r.deleteBucket(ctx, bucket, admin)
	}

	if err := r.addFinalizer(ctx, bucket, v0alpha.BucketFinalizerName); err != nil {
		return ctrl.Result{}, err
	}

	if bucket.Status.ID == "" {
		id, err := r.createOrLocateBucket(ctx, bucket, admin)
		if err != nil {
			return r.erroredBucket(ctx, bucket, err)
		}
		if err := r.patchStatus(ctx, bucket, func() {
			bucket.Status.ID = id
		}); err != nil {
			return ctrl.Result{}, err
		}
	}

	if err := r.reconcileQuotas(ctx, bucket, admin); err != nil {
		return r.erroredBucket(ctx, bucket, err)
	}

	if err := r.patchStatus(ctx, bucket, func() {
		bucket.Status.State = v0alpha.StateReady
		bucket.Status.ObservedGeneration = bucket.Generation
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Event(bucket, corev1.EventTypeNormal, "Ready", "Bucket converged")
	return ctrl.Result{RequeueAfter: configuration.DefaultSteadyStateRequeue}, nil
}

func (r *BucketReconciler) deleteBucket(ctx context.Context, bucket *v0alpha.Bucket, admin garageclient.API) error {
	if bucket.Status.ID != "" {
		if err := admin.DeleteBucket(ctx, bucket.Status.ID); err != nil {
			if gerr, ok := err.(*garageclient.Error); !ok || gerr.Kind != garageclient.NotFound {
				return err
			}
		}
	}
	return r.removeFinalizer(ctx, bucket, v0alpha.BucketFinalizerName)
}

func (r *BucketReconciler) createOrLocateBucket(ctx context.Context, bucket *v0alpha.Bucket, admin garageclient.API) (string, error) {
	alias := bucket.GlobalAlias()
	created, err := admin.CreateBucket(ctx, alias)
	if err == nil {
		return created.ID, nil
	}
	gerr, ok := err.(*garageclient.Error)
	if !ok || gerr.Kind != garageclient.AlreadyExists {
		return "", err
	}
	existing, err := admin.GetBucketByAlias(ctx, alias)
	if err != nil {
		return "", err
	}
	return existing.ID, nil
}

func (r *BucketReconciler) reconcileQuotas(ctx context.Context, bucket *v0alpha.Bucket, admin garageclient.API) error {
	if err := bucket.Spec.Quotas.Validate(); err != nil {
		return NewSpecError(err.Error())
	}

	current, err := admin.GetBucketByID(ctx, bucket.Status.ID)
	if err != nil {
		return err
	}

	desired := garageclient.Quotas{MaxObjectCount: bucket.Spec.Quotas.MaxObjectCount}
	if bucket.Spec.Quotas.MaxSize != nil {
		bytes := bucket.Spec.Quotas.MaxSize.Value()
		desired.MaxSize = &bytes
	}

	if cmp.Equal(current.Quotas, desired) {
		return nil
	}
	return admin.UpdateBucketQuotas(ctx, bucket.Status.ID, desired)
}

// resolveGarage looks up ref, returning a DependencyNotReady-classified
// error (and a nil Garage) when it is absent, distinguishing that case
// from a genuine Kubernetes API failure.
func (r *BucketReconciler) resolveGarage(ctx context.Context, ref v0alpha.NamespacedRef, defaultNamespace string) (*v0alpha.Garage, error) {
	var garage v0alpha.Garage
	name := ref.NamespacedName(defaultNamespace)
	if err := r.Get(ctx, name, &garage); err != nil {
		if apierrors.IsNotFound(err) {
			return nil, dependencyNotReadyError{}
		}
		return nil, err
	}
	return &garage, nil
}

func (r *BucketReconciler) garageAdminToken(ctx context.Context, garage *v0alpha.Garage) (string, error) {
	adminRef := garage.Spec.Secrets.Admin
	if adminRef == nil {
		adminRef = &v0alpha.NamespacedRef{Name: garage.Name + "-admin.key"}
	}
	return r.resolveSecretToken(ctx, *adminRef, garage.Namespace)
}

func (r *BucketReconciler) erroredBucket(ctx context.Context, bucket *v0alpha.Bucket, cause error) (ctrl.Result, error) {
	if err := r.patchStatus(ctx, bucket, func() {
		bucket.Status.State = v0alpha.StateErrored
		bucket.Status.ObservedGeneration = bucket.Generation
	}); err != nil {
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, cause
}

func adminBaseURLForGarage(garage *v0alpha.Garage) string {
	return adminBaseURL(garage)
}

// dependencyNotReadyError classifies as DependencyNotReady without
// carrying a user-facing message beyond what the caller already logs.
type dependencyNotReadyError struct{}

func (dependencyNotReadyError) Error() string       { return "referenced Garage is absent or not Ready" }
func (dependencyNotReadyError) ReconcileKind() Kind { return DependencyNotReady }

// SetupWithManager wires the Bucket reconciler into mgr, mapping its
// referenced Garage's events back to dependent Buckets.
func (r *BucketReconciler) SetupWithManager(mgr manager.Manager, maxConcurrentReconciles int) error {
	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrentReconciles, RateLimiter: defaultRateLimiter()}).
		For(&v0alpha.Bucket{}).
		Watches(
			&source.Kind{Type: &v0alpha.Garage{}},
			handler.EnqueueRequestsFromMapFunc(r.mapGarageToBuckets),
		).
		Complete(r)
}

func (r *BucketReconciler) mapGarageToBuckets(obj client.Object) []ctrl.Request {
	garage, ok := obj.(*v0alpha.Garage)
	if !ok {
		return nil
	}

	var buckets v0alpha.BucketList
	if err := r.List(context.Background(), &buckets, client.InNamespace(garage.Namespace)); err != nil {
		return nil
	}

	var requests []ctrl.Request
	for i := range buckets.Items {
		bucket := &buckets.Items[i]
		if bucket.Spec.GarageRef.NamespacedName(bucket.Namespace).Name == garage.Name {
			requests = append(requests, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(bucket)})
		}
	}
	return requests
}
