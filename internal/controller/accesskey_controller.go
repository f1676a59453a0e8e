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
	"strings"
	"time"

	"github.com/thoas/go-funk"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/handler"
	"sigs.k8s.io/controller-runtime/pkg/manager"
	"sigs.k8s.io/controller-runtime/pkg/source"

	v0alpha "github.com/simple-rack/garage-operator/api/v0alpha"
	"github.com/simple-rack/garage-operator/internal/configuration"
	"github.com/simple-rack/garage-operator/internal/observability"
	"github.com/simple-rack/garage-operator/pkg/garageclient"
	"github.com/simple-rack/garage-operator/pkg/management/log"
	"github.com/simple-rack/garage-operator/pkg/specs"
)

// AccessKeyReconciler reconciles AccessKey objects: it provisions an S3
// key inside a bucket, persists the returned secret, and synchronizes
// permissions, generalizing the teacher's database_controller shape
// (a reconciler whose object lives entirely behind an admin API call,
// with a Kubernetes Secret as its one piece of materialized state).
type AccessKeyReconciler struct {
	*SharedContext
}

// NewAccessKeyReconciler builds an AccessKeyReconciler sharing shared.
func NewAccessKeyReconciler(shared *SharedContext) *AccessKeyReconciler {
	return &AccessKeyReconciler{SharedContext: shared}
}

// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=accesskeys,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=accesskeys/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=deuxfleurs.fr,resources=buckets;garages,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;list;watch;create;update;patch;delete

// Reconcile drives one AccessKey CR towards its declared state.
func (r *AccessKeyReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	contextLogger := log.FromContext(ctx).WithName("accesskey")
	start := time.Now()

	var key v0alpha.AccessKey
	if err := r.Get(ctx, req.NamespacedName, &key); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	result, err := r.reconcile(ctx, &key)
	r.Metrics.ObserveReconcile("AccessKey", key.Namespace, start, err)
	r.Snapshot.RecordAccessKey(req.String(), observability.Entry{
		Name:               key.Name,
		Namespace:          key.Namespace,
		ObservedGeneration: key.Generation,
		LastError:          errString(err),
	})

	if err != nil {
		contextLogger.Error(err, "reconcile failed")
		r.Recorder.Event(&key, corev1.EventTypeWarning, "ReconcileFailed", err.Error())
	}
	return result, err
}

func (r *AccessKeyReconciler) reconcile(ctx context.Context, key *v0alpha.AccessKey) (ctrl.Result, error) {
	garage, err := r.resolveGarageForKey(ctx, key.Spec.GarageRef, key.Namespace)
	if err != nil && Classify(err) != DependencyNotReady {
		return ctrl.Result{}, err
	}

	var bucket v0alpha.Bucket
	bucketReady := false
	if garage != nil && garage.IsReady() {
		if err := r.Get(ctx, key.Spec.BucketRef.NamespacedName(key.Namespace), &bucket); err == nil {
			bucketReady = bucket.IsReady()
		} else if !apierrors.IsNotFound(err) {
			return ctrl.Result{}, err
		}
	}

	if garage == nil || !garage.IsReady() || !bucketReady {
		if !key.DeletionTimestamp.IsZero() {
			return ctrl.Result{}, r.removeFinalizer(ctx, key, v0alpha.AccessKeyFinalizerName)
		}
		if statusErr := r.patchStatus(ctx, key, func() {
			key.Status.State = v0alpha.StateCreating
			key.Status.ObservedGeneration = key.Generation
			key.Status.PermissionsFriendly = key.Spec.Permissions.Friendly()
		}); statusErr != nil {
			return ctrl.Result{}, statusErr
		}
		return ctrl.Result{RequeueAfter: configuration.DefaultDependencyRequeue}, nil
	}

	adminToken, err := r.garageAdminToken(ctx, garage)
	if err != nil {
		return r.erroredKey(ctx, key, err)
	}
	admin := r.AdminClientFactory(adminBaseURLForGarage(garage), adminToken)

	if !key.DeletionTimestamp.IsZero() {
		return ctrl.Result{}, r.deleteKey(ctx, key, &bucket, admin)
	}

	if err := r.addFinalizer(ctx, key, v0alpha.AccessKeyFinalizerName); err != nil {
		return ctrl.Result{}, err
	}

	if key.Status.ID == "" {
		if err := r.createKeyAndSecret(ctx, key, admin); err != nil {
			return r.erroredKey(ctx, key, err)
		}
	}

	if changed, err := r.reconcilePermissions(ctx, key, &bucket, admin); err != nil {
		return r.erroredKey(ctx, key, err)
	} else if len(changed) > 0 {
		r.Recorder.Eventf(key, corev1.EventTypeNormal, "PermissionsChanged", "updated: %s", strings.Join(changed, ","))
	}

	if err := r.patchStatus(ctx, key, func() {
		key.Status.State = v0alpha.StateReady
		key.Status.ObservedGeneration = key.Generation
		key.Status.PermissionsFriendly = key.Spec.Permissions.Friendly()
	}); err != nil {
		return ctrl.Result{}, err
	}
	r.Recorder.Event(key, corev1.EventTypeNormal, "Ready", "AccessKey converged")
	return ctrl.Result{RequeueAfter: configuration.DefaultSteadyStateRequeue}, nil
}

// createKeyAndSecret implements spec.md §4.4's mandatory secret race
// remediation: the one-time secretAccessKey is only ever returned by
// CreateKey, so a Secret-write failure after a successful remote create
// must delete the just-created key and leave status.id empty, letting a
// retry create cleanly instead of orphaning an unusable remote key.
func (r *AccessKeyReconciler) createKeyAndSecret(ctx context.Context, key *v0alpha.AccessKey, admin garageclient.API) error {
	created, err := admin.CreateKey(ctx, key.Namespace+"."+key.Name)
	if err != nil {
		return err
	}

	ref := key.ResolvedSecretRef()
	secret := specs.RenderAccessKeySecret(ref.Name, ref.Namespace, created.AccessKeyID, created.SecretAccessKey)
	if err := controllerutil.SetControllerReference(key, secret, r.Scheme); err != nil {
		_ = admin.DeleteKey(ctx, created.AccessKeyID)
		return NewTerminalError("setting owner reference on access key secret: " + err.Error())
	}

	if err := r.Create(ctx, secret); err != nil {
		if deleteErr := admin.DeleteKey(ctx, created.AccessKeyID); deleteErr != nil {
			return deleteErr
		}
		return err
	}

	return r.patchStatus(ctx, key, func() {
		key.Status.ID = created.AccessKeyID
	})
}

func (r *AccessKeyReconciler) deleteKey(ctx context.Context, key *v0alpha.AccessKey, bucket *v0alpha.Bucket, admin garageclient.API) error {
	if key.Status.ID != "" {
		if bucket.Status.ID != "" {
			_ = admin.DenyKey(ctx, bucket.Status.ID, key.Status.ID, garageclient.Permissions{Read: true, Write: true, Owner: true})
		}
		if err := admin.DeleteKey(ctx, key.Status.ID); err != nil {
			if gerr, ok := err.(*garageclient.Error); !ok || gerr.Kind != garageclient.NotFound {
				return err
			}
		}
	}
	return r.removeFinalizer(ctx, key, v0alpha.AccessKeyFinalizerName)
}

// reconcilePermissions diffs the desired (read, write, owner) triple
// against what the admin API currently reports for this key on its
// bucket, granting/revoking only the flags that differ.
func (r *AccessKeyReconciler) reconcilePermissions(ctx context.Context, key *v0alpha.AccessKey, bucket *v0alpha.Bucket, admin garageclient.API) ([]string, error) {
	descriptor, err := admin.GetBucketByID(ctx, bucket.Status.ID)
	if err != nil {
		return nil, err
	}

	var current garageclient.Permissions
	for _, kp := range descriptor.Keys {
		if kp.KeyID == key.Status.ID {
			current = kp.Permissions
			break
		}
	}

	desired := garageclient.Permissions{
		Read:  key.Spec.Permissions.Read,
		Write: key.Spec.Permissions.Write,
		Owner: key.Spec.Permissions.Owner,
	}

	changed := changedFlags(current, desired)
	if len(changed) == 0 {
		return nil, nil
	}

	toAllow := garageclient.Permissions{
		Read:  !current.Read && desired.Read,
		Write: !current.Write && desired.Write,
		Owner: !current.Owner && desired.Owner,
	}
	toDeny := garageclient.Permissions{
		Read:  current.Read && !desired.Read,
		Write: current.Write && !desired.Write,
		Owner: current.Owner && !desired.Owner,
	}

	if funk.Contains([]bool{toAllow.Read, toAllow.Write, toAllow.Owner}, true) {
		if err := admin.AllowKey(ctx, bucket.Status.ID, key.Status.ID, toAllow); err != nil {
			return nil, err
		}
	}
	if funk.Contains([]bool{toDeny.Read, toDeny.Write, toDeny.Owner}, true) {
		if err := admin.DenyKey(ctx, bucket.Status.ID, key.Status.ID, toDeny); err != nil {
			return nil, err
		}
	}
	return changed, nil
}

// changedFlags names the permission flags whose current value differs
// from the desired one, used both to decide whether any admin call is
// needed and to label the resulting Event.
func changedFlags(current, desired garageclient.Permissions) []string {
	var changed []string
	if current.Read != desired.Read {
		changed = append(changed, "read")
	}
	if current.Write != desired.Write {
		changed = append(changed, "write")
	}
	if current.Owner != desired.Owner {
		changed = append(changed, "owner")
	}
	return changed
}

func (r *AccessKeyReconciler) resolveGarageForKey(ctx context.Context, ref v0alpha.NamespacedRef, defaultNamespace string) (*v0alpha.Garage, error) {
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

func (r *AccessKeyReconciler) garageAdminToken(ctx context.Context, garage *v0alpha.Garage) (string, error) {
	adminRef := garage.Spec.Secrets.Admin
	if adminRef == nil {
		adminRef = &v0alpha.NamespacedRef{Name: garage.Name + "-admin.key"}
	}
	return r.resolveSecretToken(ctx, *adminRef, garage.Namespace)
}

func (r *AccessKeyReconciler) erroredKey(ctx context.Context, key *v0alpha.AccessKey, cause error) (ctrl.Result, error) {
	if err := r.patchStatus(ctx, key, func() {
		key.Status.State = v0alpha.StateErrored
		key.Status.ObservedGeneration = key.Generation
		key.Status.PermissionsFriendly = key.Spec.Permissions.Friendly()
	}); err != nil {
		return ctrl.Result{}, err
	}
	return ctrl.Result{}, cause
}

// SetupWithManager wires the AccessKey reconciler into mgr, watching its
// materialized Secret and mapping referenced Garage/Bucket events back to
// dependent AccessKeys.
func (r *AccessKeyReconciler) SetupWithManager(mgr manager.Manager, maxConcurrentReconciles int) error {
	return ctrl.NewControllerManagedBy(mgr).
		WithOptions(controller.Options{MaxConcurrentReconciles: maxConcurrentReconciles, RateLimiter: defaultRateLimiter()}).
		For(&v0alpha.AccessKey{}).
		Owns(&corev1.Secret{}).
		Watches(
			&source.Kind{Type: &v0alpha.Garage{}},
			handler.EnqueueRequestsFromMapFunc(r.mapGarageToAccessKeys),
		).
		Watches(
			&source.Kind{Type: &v0alpha.Bucket{}},
			handler.EnqueueRequestsFromMapFunc(r.mapBucketToAccessKeys),
		).
		Complete(r)
}

func (r *AccessKeyReconciler) mapGarageToAccessKeys(obj client.Object) []ctrl.Request {
	garage, ok := obj.(*v0alpha.Garage)
	if !ok {
		return nil
	}

	var keys v0alpha.AccessKeyList
	if err := r.List(context.Background(), &keys, client.InNamespace(garage.Namespace)); err != nil {
		return nil
	}

	var requests []ctrl.Request
	for i := range keys.Items {
		key := &keys.Items[i]
		if key.Spec.GarageRef.NamespacedName(key.Namespace).Name == garage.Name {
			requests = append(requests, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
		}
	}
	return requests
}

func (r *AccessKeyReconciler) mapBucketToAccessKeys(obj client.Object) []ctrl.Request {
	bucket, ok := obj.(*v0alpha.Bucket)
	if !ok {
		return nil
	}

	var keys v0alpha.AccessKeyList
	if err := r.List(context.Background(), &keys, client.InNamespace(bucket.Namespace)); err != nil {
		return nil
	}

	var requests []ctrl.Request
	for i := range keys.Items {
		key := &keys.Items[i]
		if key.Spec.BucketRef.NamespacedName(key.Namespace).Name == bucket.Name {
			requests = append(requests, ctrl.Request{NamespacedName: client.ObjectKeyFromObject(key)})
		}
	}
	return requests
}
